// Package notify emails generated documents to applicants through
// SendGrid. Delivery is strictly best-effort: failures are logged and
// never surfaced to the operation that triggered them.
package notify

import (
	"encoding/base64"
	"log"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const senderName = "Visionary Youth Group"

// Mailer sends application documents as PDF attachments. A Mailer with
// no API key is a silent no-op, matching deployments without a delivery
// provider configured.
type Mailer struct {
	apiKey string
	from   string
}

func NewMailer(apiKey, from string) *Mailer {
	return &Mailer{apiKey: apiKey, from: from}
}

// Notify emails the document to recipient. Missing credential or
// recipient is a no-op; provider errors are logged and swallowed.
func (m *Mailer) Notify(recipient string, pdf []byte, filename, product string) {
	if m == nil || m.apiKey == "" || recipient == "" {
		return
	}

	from := mail.NewEmail(senderName, m.from)
	to := mail.NewEmail("", recipient)
	subject := product + " - " + senderName
	plain := "Attached is your " + product + " PDF."
	html := "<p>Attached is your <b>" + product + "</b> PDF.</p>"

	message := mail.NewSingleEmail(from, subject, to, plain, html)

	attachment := mail.NewAttachment()
	attachment.SetContent(base64.StdEncoding.EncodeToString(pdf))
	attachment.SetType("application/pdf")
	attachment.SetFilename(filename)
	attachment.SetDisposition("attachment")
	message.AddAttachment(attachment)

	client := sendgrid.NewSendClient(m.apiKey)
	resp, err := client.Send(message)
	if err != nil {
		log.Printf("SendGrid error for %s: %v", recipient, err)
		return
	}
	if resp.StatusCode >= 400 {
		log.Printf("SendGrid rejected mail to %s: status %d: %s", recipient, resp.StatusCode, resp.Body)
	}
}
