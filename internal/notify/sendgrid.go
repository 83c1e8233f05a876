package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/BTreeMap/CareSignal/internal/models"
)

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendGridMailer implements Mailer using the SendGrid v3 mail API.
type SendGridMailer struct {
	key  string
	from *sgmail.Email
	api  func(context.Context, rest.Request) (*rest.Response, error)
}

// NewSendGridMailer creates a mailer sending from fromAddress.
func NewSendGridMailer(key, fromName, fromAddress string) *SendGridMailer {
	return &SendGridMailer{
		key:  key,
		from: sgmail.NewEmail(fromName, fromAddress),
		api:  rest.DefaultClient.SendWithContext,
	}
}

func (m *SendGridMailer) prepare(to string, p models.EmergencyProfile) *sgmail.SGMailV3 {
	subject, body := AlertEmail(p)

	pers := sgmail.NewPersonalization()
	pers.Subject = subject
	pers.AddTos(sgmail.NewEmail(p.GuardianName, to))

	msg := sgmail.NewV3Mail()
	msg.SetFrom(m.from)
	msg.AddPersonalizations(pers)
	msg.AddContent(sgmail.NewContent("text/plain", body))
	return msg
}

// SendEmail sends the guardian alert email and returns SendGrid's message ID when present.
// The request is bound to ctx.
func (m *SendGridMailer) SendEmail(ctx context.Context, to string, p models.EmergencyProfile) (string, error) {
	if to == "" {
		return "", ErrNoRecipient
	}
	req := sendgrid.GetRequest(m.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(to, p))

	res, err := m.api(ctx, req)
	if err != nil {
		slog.Error("SendGridMailer.SendEmail failed", "to", to, "error", err)
		return "", fmt.Errorf("sending email: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		slog.Error("SendGridMailer.SendEmail rejected", "to", to, "status", res.StatusCode, "body", res.Body)
		return "", fmt.Errorf("sending email: status %d", res.StatusCode)
	}
	id := ""
	if ids := res.Headers["X-Message-Id"]; len(ids) > 0 {
		id = ids[0]
	}
	slog.Debug("SendGridMailer.SendEmail accepted", "to", to, "id", id)
	return id, nil
}
