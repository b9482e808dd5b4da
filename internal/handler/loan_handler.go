package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/Kalion254/vyg-member-portal/internal/loan"
	"github.com/Kalion254/vyg-member-portal/internal/middleware"
	"github.com/Kalion254/vyg-member-portal/internal/models"
	"github.com/gin-gonic/gin"
)

// ApplicationService defines the stage machine operations used by
// LoanHandler.
type ApplicationService interface {
	Submit(ctx context.Context, cmd loan.SubmitCommand) (*models.LoanApplication, error)
	Get(ctx context.Context, id string) (*models.LoanApplication, error)
	List(ctx context.Context) ([]*models.LoanApplication, error)
	Approve(ctx context.Context, id string) (*models.Loan, error)
	Reject(ctx context.Context, id string) (models.Status, error)
	AdvanceStage(ctx context.Context, id string) (models.Status, error)
}

type LoanHandler struct {
	apps ApplicationService
}

type SubmitApplicationRequest struct {
	MemberUID   string                 `json:"memberUid"`
	Form        models.ApplicationForm `json:"form"`
	Attachments []models.Attachment    `json:"attachments"`
}

func NewLoanHandler(apps ApplicationService) *LoanHandler {
	return &LoanHandler{apps: apps}
}

func (h *LoanHandler) SubmitApplication(c *gin.Context) {
	var req SubmitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	app, err := h.apps.Submit(c.Request.Context(), loan.SubmitCommand{
		MemberUID:   req.MemberUID,
		Form:        req.Form,
		Attachments: req.Attachments,
	})
	if err != nil {
		if errors.Is(err, loan.ErrValidation) {
			middleware.RespondWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to submit application")
		return
	}

	c.JSON(http.StatusCreated, app)
}

func (h *LoanHandler) GetApplication(c *gin.Context) {
	app, err := h.apps.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, loan.ErrNotFound) {
			middleware.RespondWithError(c, http.StatusNotFound, "Application not found")
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to load application")
		return
	}

	c.JSON(http.StatusOK, app)
}

func (h *LoanHandler) ListApplications(c *gin.Context) {
	apps, err := h.apps.List(c.Request.Context())
	if err != nil {
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to list applications")
		return
	}

	c.JSON(http.StatusOK, apps)
}

func (h *LoanHandler) ApproveApplication(c *gin.Context) {
	ln, err := h.apps.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithStageError(c, err, "Failed to approve application")
		return
	}

	c.JSON(http.StatusOK, ln)
}

func (h *LoanHandler) RejectApplication(c *gin.Context) {
	status, err := h.apps.Reject(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithStageError(c, err, "Failed to reject application")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (h *LoanHandler) AdvanceApplication(c *gin.Context) {
	status, err := h.apps.AdvanceStage(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithStageError(c, err, "Failed to advance application")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}

func respondWithStageError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, loan.ErrNotFound):
		middleware.RespondWithError(c, http.StatusNotFound, "Application not found")
	case errors.Is(err, loan.ErrInvalidTransition):
		middleware.RespondWithError(c, http.StatusConflict, err.Error())
	default:
		middleware.RespondWithError(c, http.StatusInternalServerError, fallback)
	}
}
