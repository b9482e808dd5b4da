package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Kalion254/vyg-member-portal/internal/document"
	"github.com/Kalion254/vyg-member-portal/internal/middleware"
	"github.com/Kalion254/vyg-member-portal/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// evidenceFileKeys are the multipart keys evidence files arrive under.
var evidenceFileKeys = []string{"idFile", "kraFile", "guarantorFile"}

// DocumentRenderer defines the pipeline operation used by
// DocumentHandler.
type DocumentRenderer interface {
	Render(ctx context.Context, product, applicationID string, fields map[string]string, attachments []models.Attachment) (pdf []byte, filename string, err error)
}

type DocumentHandler struct {
	pipeline   DocumentRenderer
	notifier   document.Notifier
	uploadsDir string
	baseURL    string
}

func NewDocumentHandler(pipeline DocumentRenderer, notifier document.Notifier, uploadsDir, baseURL string) *DocumentHandler {
	return &DocumentHandler{
		pipeline:   pipeline,
		notifier:   notifier,
		uploadsDir: uploadsDir,
		baseURL:    baseURL,
	}
}

// GeneratePDF renders an application document from multipart form data
// and best-effort emails it to the applicant.
func (h *DocumentHandler) GeneratePDF(c *gin.Context) {
	product := c.PostForm("product")
	if product == "" {
		product = "Application"
	}
	applicationID := c.PostForm("applicationId")
	if applicationID == "" {
		applicationID = "app-" + strconv.FormatInt(time.Now().UnixMilli(), 10)
	}
	email := c.PostForm("email")

	fields, err := parseFormFields(c)
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid form data")
		return
	}

	var attachments []models.Attachment
	for _, key := range evidenceFileKeys {
		fileHeader, err := c.FormFile(key)
		if err != nil {
			continue
		}
		stored, err := h.saveUpload(c, fileHeader)
		if err != nil {
			middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to store uploaded file")
			return
		}
		attachments = append(attachments, models.Attachment{
			Name: fileHeader.Filename,
			URL:  h.baseURL + "/uploads/" + stored,
		})
	}

	pdf, filename, err := h.pipeline.Render(c.Request.Context(), product, applicationID, fields, attachments)
	if err != nil {
		if errors.Is(err, document.ErrTemplateNotFound) {
			middleware.RespondWithError(c, http.StatusNotFound, err.Error())
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if h.notifier != nil && email != "" {
		go h.notifier.Notify(email, pdf, filename, product)
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"url":      h.baseURL + "/generated/" + filename,
		"filename": filename,
	})
}

// Upload stores a single multipart file and returns its public URL.
func (h *DocumentHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	var fileHeader *multipart.FileHeader
	for _, headers := range form.File {
		if len(headers) > 0 {
			fileHeader = headers[0]
			break
		}
	}
	if fileHeader == nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "No file provided")
		return
	}

	stored, err := h.saveUpload(c, fileHeader)
	if err != nil {
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to store uploaded file")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "url": h.baseURL + "/uploads/" + stored})
}

type GenerateStatementRequest struct {
	UID string `json:"uid"`
}

// GenerateStatement is deliberately unimplemented server-side; the
// client is expected to call /generate-pdf with transaction rows in the
// form data. The explicit 400 contract is preserved.
func (h *DocumentHandler) GenerateStatement(c *gin.Context) {
	var req GenerateStatementRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UID == "" {
		middleware.RespondWithError(c, http.StatusBadRequest, "uid required")
		return
	}

	middleware.RespondWithError(c, http.StatusBadRequest,
		"Server-side statement generation requires transaction data. Use /generate-pdf with statement template.")
}

// parseFormFields decodes the "form" (or legacy "formData") JSON blob
// into the substitution field map. Non-string values are stringified;
// nulls become empty strings.
func parseFormFields(c *gin.Context) (map[string]string, error) {
	raw := c.PostForm("form")
	if raw == "" {
		raw = c.PostForm("formData")
	}
	if raw == "" {
		return map[string]string{}, nil
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(decoded))
	for k, v := range decoded {
		switch value := v.(type) {
		case nil:
			fields[k] = ""
		case string:
			fields[k] = value
		default:
			fields[k] = fmt.Sprint(value)
		}
	}
	return fields, nil
}

// saveUpload writes the file under the uploads directory with a
// uuid-prefixed name so repeated uploads never collide.
func (h *DocumentHandler) saveUpload(c *gin.Context, fileHeader *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(h.uploadsDir, 0o755); err != nil {
		return "", err
	}
	stored := uuid.NewString() + filepath.Ext(fileHeader.Filename)
	if err := c.SaveUploadedFile(fileHeader, filepath.Join(h.uploadsDir, stored)); err != nil {
		return "", err
	}
	return stored, nil
}
