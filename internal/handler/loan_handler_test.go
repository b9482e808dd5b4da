package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Kalion254/vyg-member-portal/internal/loan"
	"github.com/Kalion254/vyg-member-portal/internal/models"
	"github.com/gin-gonic/gin"
)

// ---- mock implementations ----

type mockApplicationService struct {
	submitFn  func(loan.SubmitCommand) (*models.LoanApplication, error)
	getFn     func(string) (*models.LoanApplication, error)
	listFn    func() ([]*models.LoanApplication, error)
	approveFn func(string) (*models.Loan, error)
	rejectFn  func(string) (models.Status, error)
	advanceFn func(string) (models.Status, error)
}

func (m *mockApplicationService) Submit(ctx context.Context, cmd loan.SubmitCommand) (*models.LoanApplication, error) {
	if m.submitFn != nil {
		return m.submitFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockApplicationService) Get(ctx context.Context, id string) (*models.LoanApplication, error) {
	if m.getFn != nil {
		return m.getFn(id)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockApplicationService) List(ctx context.Context) ([]*models.LoanApplication, error) {
	if m.listFn != nil {
		return m.listFn()
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockApplicationService) Approve(ctx context.Context, id string) (*models.Loan, error) {
	if m.approveFn != nil {
		return m.approveFn(id)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockApplicationService) Reject(ctx context.Context, id string) (models.Status, error) {
	if m.rejectFn != nil {
		return m.rejectFn(id)
	}
	return "", fmt.Errorf("not configured")
}
func (m *mockApplicationService) AdvanceStage(ctx context.Context, id string) (models.Status, error) {
	if m.advanceFn != nil {
		return m.advanceFn(id)
	}
	return "", fmt.Errorf("not configured")
}

// ---- helpers ----

func newLoanTestRouter(apps ApplicationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewLoanHandler(apps)
	grp := r.Group("/applications")
	grp.POST("", h.SubmitApplication)
	grp.GET("", h.ListApplications)
	grp.GET("/:id", h.GetApplication)
	grp.POST("/:id/approve", h.ApproveApplication)
	grp.POST("/:id/reject", h.RejectApplication)
	grp.POST("/:id/advance", h.AdvanceApplication)
	return r
}

func loanDoRequest(router *gin.Engine, method, url string, body interface{}) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, url, nil)
	if body != nil {
		b, _ := json.Marshal(body)
		req, _ = http.NewRequest(method, url, strings.NewReader(string(b)))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ---- test data ----

var lTestApplication = &models.LoanApplication{
	ID:        "app-001",
	MemberUID: "u1",
	Form: models.ApplicationForm{
		Fullname:   "Jane Doe",
		Phone:      "254712345678",
		LoanType:   "Emergency Loan",
		LoanAmount: "15000",
	},
	Status:    models.StatusSubmitted,
	CreatedAt: time.Now(),
}

var lTestLoan = &models.Loan{
	Serial:        "LN-123456",
	ApplicationID: "app-001",
	MemberUID:     "u1",
	Product:       "Emergency Loan",
	Amount:        "15000",
	Status:        "Approved",
	CreatedAt:     time.Now(),
}

func lValidSubmitBody() map[string]interface{} {
	return map[string]interface{}{
		"memberUid": "u1",
		"form": map[string]string{
			"fullname":   "Jane Doe",
			"phone":      "254712345678",
			"loanType":   "Emergency Loan",
			"loanAmount": "15000",
		},
	}
}

// ---- tests ----

func TestSubmitApplication(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		submitFn       func(loan.SubmitCommand) (*models.LoanApplication, error)
		expectedStatus int
	}{
		{
			name: "success - creates new application",
			body: lValidSubmitBody(),
			submitFn: func(cmd loan.SubmitCommand) (*models.LoanApplication, error) {
				return lTestApplication, nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "bad request - missing required form fields",
			body:           map[string]interface{}{"memberUid": "u1", "form": map[string]string{"fullname": "Jane Doe"}},
			submitFn:       nil,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "bad request - service validation failure",
			body: lValidSubmitBody(),
			submitFn: func(cmd loan.SubmitCommand) (*models.LoanApplication, error) {
				return nil, fmt.Errorf("%w: fullname required", loan.ErrValidation)
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "internal error - store failure",
			body: lValidSubmitBody(),
			submitFn: func(cmd loan.SubmitCommand) (*models.LoanApplication, error) {
				return nil, fmt.Errorf("store unavailable")
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newLoanTestRouter(&mockApplicationService{submitFn: tt.submitFn})
			w := loanDoRequest(router, http.MethodPost, "/applications", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected status %d, got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestGetApplication(t *testing.T) {
	tests := []struct {
		name           string
		getFn          func(string) (*models.LoanApplication, error)
		expectedStatus int
	}{
		{
			name:           "success - fetch application",
			getFn:          func(id string) (*models.LoanApplication, error) { return lTestApplication, nil },
			expectedStatus: http.StatusOK,
		},
		{
			name:           "not found - application does not exist",
			getFn:          func(id string) (*models.LoanApplication, error) { return nil, loan.ErrNotFound },
			expectedStatus: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newLoanTestRouter(&mockApplicationService{getFn: tt.getFn})
			w := loanDoRequest(router, http.MethodGet, "/applications/app-001", nil)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected status %d, got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestApproveApplication(t *testing.T) {
	tests := []struct {
		name           string
		approveFn      func(string) (*models.Loan, error)
		expectedStatus int
	}{
		{
			name:           "success - returns loan",
			approveFn:      func(id string) (*models.Loan, error) { return lTestLoan, nil },
			expectedStatus: http.StatusOK,
		},
		{
			name:           "not found - application does not exist",
			approveFn:      func(id string) (*models.Loan, error) { return nil, loan.ErrNotFound },
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "conflict - terminal application",
			approveFn: func(id string) (*models.Loan, error) {
				return nil, fmt.Errorf("%w: cannot approve a Rejected application", loan.ErrInvalidTransition)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "internal error - store failure",
			approveFn:      func(id string) (*models.Loan, error) { return nil, fmt.Errorf("store unavailable") },
			expectedStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newLoanTestRouter(&mockApplicationService{approveFn: tt.approveFn})
			w := loanDoRequest(router, http.MethodPost, "/applications/app-001/approve", nil)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected status %d, got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus == http.StatusOK {
				var ln models.Loan
				if err := json.Unmarshal(w.Body.Bytes(), &ln); err != nil || ln.Serial != "LN-123456" {
					t.Errorf("[%s] expected loan in response, got %s", tt.name, w.Body.String())
				}
			}
		})
	}
}

func TestRejectApplication(t *testing.T) {
	tests := []struct {
		name           string
		rejectFn       func(string) (models.Status, error)
		expectedStatus int
	}{
		{
			name:           "success - rejects application",
			rejectFn:       func(id string) (models.Status, error) { return models.StatusRejected, nil },
			expectedStatus: http.StatusOK,
		},
		{
			name: "conflict - already approved",
			rejectFn: func(id string) (models.Status, error) {
				return "", fmt.Errorf("%w: cannot reject a Approved application", loan.ErrInvalidTransition)
			},
			expectedStatus: http.StatusConflict,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newLoanTestRouter(&mockApplicationService{rejectFn: tt.rejectFn})
			w := loanDoRequest(router, http.MethodPost, "/applications/app-001/reject", nil)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected status %d, got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus == http.StatusOK && !strings.Contains(w.Body.String(), "Rejected") {
				t.Errorf("[%s] expected Rejected status in response, got %s", tt.name, w.Body.String())
			}
		})
	}
}

func TestAdvanceApplication(t *testing.T) {
	router := newLoanTestRouter(&mockApplicationService{
		advanceFn: func(id string) (models.Status, error) { return models.StatusUnderReview, nil },
	})
	w := loanDoRequest(router, http.MethodPost, "/applications/app-001/advance", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d; body: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Under Review") {
		t.Errorf("expected Under Review status in response, got %s", w.Body.String())
	}
}

func TestListApplications(t *testing.T) {
	router := newLoanTestRouter(&mockApplicationService{
		listFn: func() ([]*models.LoanApplication, error) {
			return []*models.LoanApplication{lTestApplication}, nil
		},
	})
	w := loanDoRequest(router, http.MethodGet, "/applications", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d; body: %s", w.Code, w.Body.String())
	}

	var apps []models.LoanApplication
	if err := json.Unmarshal(w.Body.Bytes(), &apps); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(apps) != 1 || apps[0].ID != "app-001" {
		t.Errorf("unexpected listing: %+v", apps)
	}
}
