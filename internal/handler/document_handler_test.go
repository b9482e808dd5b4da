package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Kalion254/vyg-member-portal/internal/document"
	"github.com/Kalion254/vyg-member-portal/internal/models"
	"github.com/gin-gonic/gin"
)

// ---- mock implementations ----

type mockDocumentRenderer struct {
	renderFn func(product, applicationID string, fields map[string]string, attachments []models.Attachment) ([]byte, string, error)

	lastProduct     string
	lastFields      map[string]string
	lastAttachments []models.Attachment
}

func (m *mockDocumentRenderer) Render(ctx context.Context, product, applicationID string, fields map[string]string, attachments []models.Attachment) ([]byte, string, error) {
	m.lastProduct = product
	m.lastFields = fields
	m.lastAttachments = attachments
	if m.renderFn != nil {
		return m.renderFn(product, applicationID, fields, attachments)
	}
	return nil, "", fmt.Errorf("not configured")
}

// ---- helpers ----

func newDocumentTestRouter(t *testing.T, pipeline DocumentRenderer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewDocumentHandler(pipeline, nil, t.TempDir(), "http://localhost:3000")
	r.POST("/generate-pdf", h.GeneratePDF)
	r.POST("/upload", h.Upload)
	r.POST("/generate-statement", h.GenerateStatement)
	return r
}

func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field %s: %v", k, err)
		}
	}
	for key, filename := range files {
		fw, err := w.CreateFormFile(key, filename)
		if err != nil {
			t.Fatalf("failed to create file part %s: %v", key, err)
		}
		fw.Write([]byte("file-bytes"))
	}
	w.Close()
	return buf, w.FormDataContentType()
}

// ---- tests ----

func TestGeneratePDF(t *testing.T) {
	renderer := &mockDocumentRenderer{
		renderFn: func(product, applicationID string, fields map[string]string, attachments []models.Attachment) ([]byte, string, error) {
			return []byte("pdf"), "Emergency_Loan_123.pdf", nil
		},
	}
	router := newDocumentTestRouter(t, renderer)

	body, contentType := multipartBody(t,
		map[string]string{
			"product": "Emergency Loan Application",
			"form":    `{"fullname":"Jane Doe","loanAmount":15000,"loanPurpose":null}`,
		},
		map[string]string{"idFile": "id.png", "kraFile": "kra.pdf"},
	)
	req, _ := http.NewRequest(http.MethodPost, "/generate-pdf", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d; body: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["ok"] != true || resp["url"] != "http://localhost:3000/generated/Emergency_Loan_123.pdf" {
		t.Errorf("unexpected response: %v", resp)
	}

	if renderer.lastProduct != "Emergency Loan Application" {
		t.Errorf("product not forwarded: %q", renderer.lastProduct)
	}
	if renderer.lastFields["fullname"] != "Jane Doe" {
		t.Errorf("string field not forwarded: %v", renderer.lastFields)
	}
	if renderer.lastFields["loanAmount"] != "15000" {
		t.Errorf("numeric field not stringified: %v", renderer.lastFields)
	}
	if renderer.lastFields["loanPurpose"] != "" {
		t.Errorf("null field not blanked: %v", renderer.lastFields)
	}
	if len(renderer.lastAttachments) != 2 {
		t.Fatalf("expected 2 attachments, got %d", len(renderer.lastAttachments))
	}
	for _, a := range renderer.lastAttachments {
		if !strings.HasPrefix(a.URL, "http://localhost:3000/uploads/") {
			t.Errorf("attachment url not under uploads: %q", a.URL)
		}
	}
}

func TestGeneratePDFDefaultsProduct(t *testing.T) {
	renderer := &mockDocumentRenderer{
		renderFn: func(product, applicationID string, fields map[string]string, attachments []models.Attachment) ([]byte, string, error) {
			return []byte("pdf"), "Application_123.pdf", nil
		},
	}
	router := newDocumentTestRouter(t, renderer)

	body, contentType := multipartBody(t, map[string]string{}, nil)
	req, _ := http.NewRequest(http.MethodPost, "/generate-pdf", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d; body: %s", w.Code, w.Body.String())
	}
	if renderer.lastProduct != "Application" {
		t.Errorf("expected default product Application, got %q", renderer.lastProduct)
	}
}

func TestGeneratePDFErrors(t *testing.T) {
	tests := []struct {
		name           string
		fields         map[string]string
		renderFn       func(product, applicationID string, fields map[string]string, attachments []models.Attachment) ([]byte, string, error)
		expectedStatus int
	}{
		{
			name:   "bad request - malformed form json",
			fields: map[string]string{"form": `{not json`},
			renderFn: func(product, applicationID string, fields map[string]string, attachments []models.Attachment) ([]byte, string, error) {
				return []byte("pdf"), "x.pdf", nil
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "not found - missing template",
			fields: map[string]string{"product": "Weird Product"},
			renderFn: func(product, applicationID string, fields map[string]string, attachments []models.Attachment) ([]byte, string, error) {
				return nil, "", fmt.Errorf("%w: weird", document.ErrTemplateNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:   "internal error - renderer failure",
			fields: map[string]string{"product": "Emergency Loan"},
			renderFn: func(product, applicationID string, fields map[string]string, attachments []models.Attachment) ([]byte, string, error) {
				return nil, "", errors.New("chrome exited")
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newDocumentTestRouter(t, &mockDocumentRenderer{renderFn: tt.renderFn})
			body, contentType := multipartBody(t, tt.fields, nil)
			req, _ := http.NewRequest(http.MethodPost, "/generate-pdf", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected status %d, got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestUpload(t *testing.T) {
	router := newDocumentTestRouter(t, &mockDocumentRenderer{})

	body, contentType := multipartBody(t, nil, map[string]string{"file": "receipt.png"})
	req, _ := http.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d; body: %s", w.Code, w.Body.String())
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	url, _ := resp["url"].(string)
	if !strings.HasPrefix(url, "http://localhost:3000/uploads/") || !strings.HasSuffix(url, ".png") {
		t.Errorf("unexpected upload url %q", url)
	}
}

func TestUploadNoFile(t *testing.T) {
	router := newDocumentTestRouter(t, &mockDocumentRenderer{})

	body, contentType := multipartBody(t, map[string]string{"note": "no file here"}, nil)
	req, _ := http.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d; body: %s", w.Code, w.Body.String())
	}
}

func TestGenerateStatement(t *testing.T) {
	tests := []struct {
		name        string
		body        interface{}
		wantMessage string
	}{
		{
			name:        "missing uid",
			body:        map[string]string{},
			wantMessage: "uid required",
		},
		{
			name:        "uid present still unsupported",
			body:        map[string]string{"uid": "u1"},
			wantMessage: "Server-side statement generation requires transaction data",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newDocumentTestRouter(t, &mockDocumentRenderer{})
			b, _ := json.Marshal(tt.body)
			req, _ := http.NewRequest(http.MethodPost, "/generate-statement", bytes.NewReader(b))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("[%s] expected status 400, got %d", tt.name, w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.wantMessage) {
				t.Errorf("[%s] expected message %q, got %s", tt.name, tt.wantMessage, w.Body.String())
			}
		})
	}
}
