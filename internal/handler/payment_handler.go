package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/Kalion254/vyg-member-portal/internal/middleware"
	"github.com/Kalion254/vyg-member-portal/internal/payment"
	"github.com/gin-gonic/gin"
)

// PaymentInitiator defines the gateway operation used by PaymentHandler.
type PaymentInitiator interface {
	Initiate(ctx context.Context, amount json.Number, phone, accountReference string) (json.RawMessage, error)
}

type PaymentHandler struct {
	payments PaymentInitiator
}

type InitiateRequest struct {
	Amount           json.Number `json:"amount"`
	AccountReference string      `json:"accountReference"`
	Phone            string      `json:"phone"`
}

func NewPaymentHandler(payments PaymentInitiator) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Amount == "" || req.Phone == "" {
		middleware.RespondWithError(c, http.StatusBadRequest, "amount and phone required")
		return
	}

	data, err := h.payments.Initiate(c.Request.Context(), req.Amount, req.Phone, req.AccountReference)
	if err != nil {
		if errors.Is(err, payment.ErrValidation) {
			middleware.RespondWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		middleware.RespondWithError(c, http.StatusBadGateway, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "data": data})
}

// Callback accepts asynchronous payment results from the gateway. The
// payload is logged and acknowledged unconditionally; reconciliation
// against initiated requests is handled outside this engine.
func (h *PaymentHandler) Callback(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 2000))
	if err == nil {
		log.Printf("MPESA callback: %s", body)
	}

	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
}
