// Package notify delivers emergency notifications over voice call, SMS and email.
//
// Each channel is a small interface so the alert orchestrator can dispatch them
// independently; real providers (Twilio, SendGrid) and an in-process simulator implement them.
package notify

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/BTreeMap/CareSignal/internal/models"
)

var (
	ErrNoRecipient      = errors.New("recipient cannot be empty")
	ErrInvalidRecipient = errors.New("invalid phone number")
	ErrSimulatedFailure = errors.New("simulated delivery failure")
)

// Caller places a voice call that reads message aloud.
type Caller interface {
	PlaceCall(ctx context.Context, to, message string) (string, error)
}

// Texter sends an SMS carrying message.
type Texter interface {
	SendSMS(ctx context.Context, to, message string) (string, error)
}

// Mailer emails the guardian about the subject of profile.
type Mailer interface {
	SendEmail(ctx context.Context, to string, profile models.EmergencyProfile) (string, error)
}

// Notifier bundles the three channels used by an alert fan-out.
type Notifier struct {
	Caller Caller
	Texter Texter
	Mailer Mailer
}

// Result is the outcome of one dispatch as reported to the user.
type Result struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ResultOf converts a provider return into a Result.
func ResultOf(id string, err error) Result {
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	return Result{Success: true, ID: id}
}

var nonDigitRegex = regexp.MustCompile(`\D`)

// CanonicalizePhone strips everything but digits and returns an E.164-style "+digits" number.
func CanonicalizePhone(phone string) (string, error) {
	if phone == "" {
		return "", ErrNoRecipient
	}
	digits := nonDigitRegex.ReplaceAllString(phone, "")
	if len(digits) < 6 {
		return "", fmt.Errorf("%w: %q has fewer than 6 digits", ErrInvalidRecipient, phone)
	}
	return "+" + digits, nil
}

// AlertText is the short context read out on the call and sent by SMS.
func AlertText(p models.EmergencyProfile) string {
	return fmt.Sprintf("CareSignal alert for %s: our wellness assistant detected messages suggesting %s may be in distress. "+
		"Please contact them as soon as possible.", p.GuardianName, p.SubjectName)
}

// AlertEmail returns the subject line and plain-text body of the guardian email.
func AlertEmail(p models.EmergencyProfile) (string, string) {
	subject := fmt.Sprintf("Urgent: %s may need support", p.SubjectName)
	body := fmt.Sprintf("Dear %s,\n\n"+
		"You are listed as the emergency contact for %s. Our wellness assistant detected messages "+
		"suggesting they may be in distress. We are also trying to reach you by phone.\n\n",
		p.GuardianName, p.SubjectName)
	if p.SubjectPhone != "" {
		body += fmt.Sprintf("You can reach %s at %s.\n\n", p.SubjectName, p.SubjectPhone)
	}
	body += "If you believe they are in immediate danger, contact local emergency services.\n\nCareSignal"
	return subject, body
}
