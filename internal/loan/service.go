// Package loan implements the application stage machine: submissions,
// admin approve/reject, and the linear stage progression. All record
// mutations go through these operations; nothing else writes application
// or loan paths.
package loan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"

	"github.com/Kalion254/vyg-member-portal/internal/models"
	"github.com/Kalion254/vyg-member-portal/internal/store"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("application not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

const (
	applicationsPath = "loanApplications"
	loansPath        = "loans"
	loanIndexPath    = "loanIndex"
)

// DocumentDispatcher renders the application document and emails it to
// the applicant, returning the public URL of the generated file.
type DocumentDispatcher interface {
	Dispatch(ctx context.Context, app *models.LoanApplication) (pdfURL string, err error)
}

// Service drives loan applications through the stage machine.
type Service struct {
	store           store.Store
	docs            DocumentDispatcher
	dispatchTimeout time.Duration

	// now is swappable in tests for deterministic loan serials.
	now func() time.Time
}

func NewService(s store.Store, docs DocumentDispatcher, dispatchTimeout time.Duration) *Service {
	if dispatchTimeout == 0 {
		dispatchTimeout = time.Minute
	}
	return &Service{store: s, docs: docs, dispatchTimeout: dispatchTimeout, now: time.Now}
}

// SubmitCommand carries a new application into the stage machine.
type SubmitCommand struct {
	MemberUID   string
	Form        models.ApplicationForm
	Attachments []models.Attachment
}

// Submit validates, persists the application in state Submitted, and
// queues the best-effort document/email task. The task never affects the
// submission result.
func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (*models.LoanApplication, error) {
	if cmd.Form.Fullname == "" || cmd.Form.Phone == "" || cmd.Form.LoanType == "" || cmd.Form.LoanAmount == "" {
		return nil, fmt.Errorf("%w: fullname, phone, loanType and loanAmount are required", ErrValidation)
	}

	app := &models.LoanApplication{
		MemberUID:   cmd.MemberUID,
		Form:        cmd.Form,
		Attachments: cmd.Attachments,
		Status:      models.StatusSubmitted,
		CreatedAt:   s.now().UTC(),
	}

	id, err := s.store.Push(ctx, applicationsPath, app)
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}
	app.ID = id

	if s.docs != nil {
		go s.dispatchDocument(app)
	}
	return app, nil
}

// dispatchDocument runs after the submission committed. Failures are
// logged and swallowed; on success the generated-document reference is
// written back onto the application.
func (s *Service) dispatchDocument(app *models.LoanApplication) {
	ctx, cancel := context.WithTimeout(context.Background(), s.dispatchTimeout)
	defer cancel()

	url, err := s.docs.Dispatch(ctx, app)
	if err != nil {
		log.Printf("Document dispatch failed for application %s: %v", app.ID, err)
		return
	}

	current, err := s.Get(ctx, app.ID)
	if err != nil {
		log.Printf("Failed to reload application %s after document dispatch: %v", app.ID, err)
		return
	}
	current.PDFURL = url
	if err := s.store.Set(ctx, applicationsPath+"/"+app.ID, current); err != nil {
		log.Printf("Failed to record pdf url on application %s: %v", app.ID, err)
	}
}

// Get reads one application.
func (s *Service) Get(ctx context.Context, id string) (*models.LoanApplication, error) {
	var app models.LoanApplication
	if err := s.store.Get(ctx, applicationsPath+"/"+id, &app); err != nil {
		if errors.Is(err, store.ErrPathNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	app.ID = id
	return &app, nil
}

// List returns all applications, newest first.
func (s *Service) List(ctx context.Context) ([]*models.LoanApplication, error) {
	raw, err := s.store.List(ctx, applicationsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}

	apps := make([]*models.LoanApplication, 0, len(raw))
	for id, data := range raw {
		var app models.LoanApplication
		if err := json.Unmarshal(data, &app); err != nil {
			log.Printf("Skipping unreadable application %s: %v", id, err)
			continue
		}
		app.ID = id
		apps = append(apps, &app)
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].CreatedAt.After(apps[j].CreatedAt) })
	return apps, nil
}

// Approve marks the application Approved and creates exactly one Loan.
// A repeat approve returns the existing loan without creating another.
// The loan and its back-reference are written before the status flip, so
// a failure part-way leaves a re-runnable state, never a duplicate loan.
func (s *Service) Approve(ctx context.Context, id string) (*models.Loan, error) {
	app, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// Idempotency: an existing back-reference wins regardless of status.
	var serial string
	if err := s.store.Get(ctx, loanIndexPath+"/"+id, &serial); err == nil {
		var existing models.Loan
		if err := s.store.Get(ctx, loansPath+"/"+serial, &existing); err != nil {
			return nil, fmt.Errorf("failed to load loan %s: %w", serial, err)
		}
		return &existing, nil
	} else if !errors.Is(err, store.ErrPathNotFound) {
		return nil, err
	}

	if app.Status.Terminal() {
		return nil, fmt.Errorf("%w: cannot approve a %s application", ErrInvalidTransition, app.Status)
	}

	ln := &models.Loan{
		Serial:        s.newLoanSerial(),
		ApplicationID: id,
		MemberUID:     app.MemberUID,
		Product:       app.Form.LoanType,
		Amount:        app.Form.LoanAmount,
		Status:        string(models.StatusApproved),
		CreatedAt:     s.now().UTC(),
	}
	if err := s.store.Set(ctx, loansPath+"/"+ln.Serial, ln); err != nil {
		return nil, fmt.Errorf("failed to create loan: %w", err)
	}
	if err := s.store.Set(ctx, loanIndexPath+"/"+id, ln.Serial); err != nil {
		return nil, fmt.Errorf("failed to index loan %s: %w", ln.Serial, err)
	}

	app.Status = models.StatusApproved
	if err := s.store.Set(ctx, applicationsPath+"/"+id, app); err != nil {
		return nil, fmt.Errorf("failed to update application status: %w", err)
	}
	return ln, nil
}

// Reject is only legal while the application is Submitted or Under
// Review. It never creates a loan and Rejected is terminal.
func (s *Service) Reject(ctx context.Context, id string) (models.Status, error) {
	app, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	if app.Status != models.StatusSubmitted && app.Status != models.StatusUnderReview {
		return "", fmt.Errorf("%w: cannot reject a %s application", ErrInvalidTransition, app.Status)
	}

	app.Status = models.StatusRejected
	if err := s.store.Set(ctx, applicationsPath+"/"+id, app); err != nil {
		return "", fmt.Errorf("failed to update application status: %w", err)
	}
	return app.Status, nil
}

// AdvanceStage moves the application one step along the linear
// progression. This is deliberately independent of Approve; the two
// entry points coexist and are not unified.
func (s *Service) AdvanceStage(ctx context.Context, id string) (models.Status, error) {
	app, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	app.Status = NextStage(app.Status)
	if err := s.store.Set(ctx, applicationsPath+"/"+id, app); err != nil {
		return "", fmt.Errorf("failed to update application status: %w", err)
	}
	return app.Status, nil
}

// NextStage is the literal progression table. Every status outside the
// chain, terminal or otherwise, collapses to Completed.
func NextStage(s models.Status) models.Status {
	switch s {
	case models.StatusSubmitted:
		return models.StatusUnderReview
	case models.StatusUnderReview:
		return models.StatusApprovedForDisbursement
	case models.StatusApprovedForDisbursement:
		return models.StatusDisbursed
	default:
		return models.StatusCompleted
	}
}

// newLoanSerial derives a human-readable serial from the current time,
// LN- plus the last six digits of the unix millisecond clock.
func (s *Service) newLoanSerial() string {
	ms := strconv.FormatInt(s.now().UnixMilli(), 10)
	return "LN-" + ms[len(ms)-6:]
}
