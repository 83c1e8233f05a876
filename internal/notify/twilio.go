package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"os"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// twilioAPI is the subset of the Twilio REST API used for calls and texts.
type twilioAPI interface {
	CreateCall(params *twilioApi.CreateCallParams) (*twilioApi.ApiV2010Call, error)
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioOpts holds configuration options for the Twilio client.
type TwilioOpts struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// TwilioOption defines a configuration option for the Twilio client.
type TwilioOption func(*TwilioOpts)

func WithAccountSID(sid string) TwilioOption {
	return func(o *TwilioOpts) { o.AccountSID = sid }
}

func WithAuthToken(token string) TwilioOption {
	return func(o *TwilioOpts) { o.AuthToken = token }
}

// WithFromNumber sets the caller ID used for calls and SMS.
func WithFromNumber(from string) TwilioOption {
	return func(o *TwilioOpts) { o.FromNumber = from }
}

// TwilioClient implements Caller and Texter with the Twilio REST API.
type TwilioClient struct {
	api  twilioAPI
	from string
}

// NewTwilioClient creates a client, falling back to TWILIO_* environment variables.
func NewTwilioClient(opts ...TwilioOption) (*TwilioClient, error) {
	var cfg TwilioOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromNumber == "" {
		cfg.FromNumber = os.Getenv("TWILIO_FROM_NUMBER")
	}
	slog.Debug("Twilio client config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"FromNumber_set", cfg.FromNumber != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, errors.New("account SID and auth token must be provided")
	}
	if cfg.FromNumber == "" {
		return nil, errors.New("from number must be provided")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioClient{api: client.Api, from: cfg.FromNumber}, nil
}

// PlaceCall starts a call that reads message with text-to-speech. The Twilio SDK takes no
// context, so ctx is only checked before the request is issued; an in-flight request is
// bounded by the SDK's HTTP client, not by ctx.
func (c *TwilioClient) PlaceCall(ctx context.Context, to, message string) (string, error) {
	canonical, err := CanonicalizePhone(to)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	params := &twilioApi.CreateCallParams{}
	params.SetTo(canonical)
	params.SetFrom(c.from)
	params.SetTwiml(callTwiml(message))

	resp, err := c.api.CreateCall(params)
	if err != nil {
		slog.Error("TwilioClient.PlaceCall failed", "to", canonical, "error", err)
		return "", fmt.Errorf("failed to call %s: %w", canonical, err)
	}
	sid := ""
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	slog.Debug("TwilioClient.PlaceCall queued", "to", canonical, "sid", sid)
	return sid, nil
}

// SendSMS sends message as a text message. ctx is honoured as in PlaceCall.
func (c *TwilioClient) SendSMS(ctx context.Context, to, message string) (string, error) {
	canonical, err := CanonicalizePhone(to)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(canonical)
	params.SetFrom(c.from)
	params.SetBody(message)

	resp, err := c.api.CreateMessage(params)
	if err != nil {
		slog.Error("TwilioClient.SendSMS failed", "to", canonical, "error", err)
		return "", fmt.Errorf("failed to send SMS to %s: %w", canonical, err)
	}
	sid := ""
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	slog.Debug("TwilioClient.SendSMS sent", "to", canonical, "sid", sid)
	return sid, nil
}

// callTwiml reads the message twice so a guardian picking up late still hears it.
func callTwiml(text string) string {
	say := `<Say voice="alice">` + html.EscapeString(text) + `</Say>`
	return `<Response>` + say + `<Pause length="1"/>` + say + `</Response>`
}
