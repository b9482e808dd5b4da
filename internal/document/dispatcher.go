package document

import (
	"context"

	"github.com/Kalion254/vyg-member-portal/internal/models"
)

// Notifier delivers a generated document to the applicant. Delivery is
// best-effort; implementations never return an error to the caller.
type Notifier interface {
	Notify(recipient string, pdf []byte, filename, product string)
}

// Dispatcher is the submission-side glue: render the application's
// document, email it, and hand back the public URL for the record.
type Dispatcher struct {
	pipeline *Pipeline
	notifier Notifier
	baseURL  string
}

func NewDispatcher(pipeline *Pipeline, notifier Notifier, baseURL string) *Dispatcher {
	return &Dispatcher{pipeline: pipeline, notifier: notifier, baseURL: baseURL}
}

func (d *Dispatcher) Dispatch(ctx context.Context, app *models.LoanApplication) (string, error) {
	product := app.Form.LoanType + " Loan Application"

	pdf, filename, err := d.pipeline.Render(ctx, product, app.ID, app.Form.FieldMap(), app.Attachments)
	if err != nil {
		return "", err
	}

	if d.notifier != nil {
		d.notifier.Notify(app.Form.Email, pdf, filename, product)
	}
	return d.baseURL + "/generated/" + filename, nil
}
