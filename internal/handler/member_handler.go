package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/Kalion254/vyg-member-portal/internal/member"
	"github.com/Kalion254/vyg-member-portal/internal/middleware"
	"github.com/Kalion254/vyg-member-portal/internal/models"
	"github.com/gin-gonic/gin"
)

// MemberService defines the member operations used by MemberHandler.
type MemberService interface {
	Create(ctx context.Context, name, email string) (*models.Member, error)
	GetByNumber(ctx context.Context, memberNo string) (*models.Member, error)
}

type MemberHandler struct {
	members MemberService
}

type CreateMemberRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

func NewMemberHandler(members MemberService) *MemberHandler {
	return &MemberHandler{members: members}
}

func (h *MemberHandler) CreateMember(c *gin.Context) {
	var req CreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	m, err := h.members.Create(c.Request.Context(), req.Name, req.Email)
	if err != nil {
		if errors.Is(err, member.ErrIssuerUnavailable) {
			middleware.RespondWithError(c, http.StatusServiceUnavailable, "Member number issuer unavailable, try again")
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to create member")
		return
	}

	c.JSON(http.StatusCreated, m)
}

func (h *MemberHandler) GetMember(c *gin.Context) {
	memberNo := c.Param("memberNo")

	m, err := h.members.GetByNumber(c.Request.Context(), memberNo)
	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			middleware.RespondWithError(c, http.StatusNotFound, "Member not found")
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to load member")
		return
	}

	c.JSON(http.StatusOK, m)
}
