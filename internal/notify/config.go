package notify

import (
	"log/slog"
	"time"
)

// Opts selects and configures the notification providers.
type Opts struct {
	Simulate       bool
	SimulatedDelay time.Duration
	Twilio         []TwilioOption
	SendGridKey    string
	FromName       string
	FromEmail      string
}

// Option defines a configuration option for NewNotifier.
type Option func(*Opts)

// WithSimulation replaces every provider with the in-process simulator.
func WithSimulation(delay time.Duration) Option {
	return func(o *Opts) {
		o.Simulate = true
		o.SimulatedDelay = delay
	}
}

// WithTwilio passes options through to NewTwilioClient.
func WithTwilio(opts ...TwilioOption) Option {
	return func(o *Opts) { o.Twilio = append(o.Twilio, opts...) }
}

// WithSendGrid configures the email sender.
func WithSendGrid(key, fromName, fromEmail string) Option {
	return func(o *Opts) {
		o.SendGridKey = key
		o.FromName = fromName
		o.FromEmail = fromEmail
	}
}

// NewNotifier builds the channel set. Providers that are not configured are replaced by the
// simulator so that every channel still reports a status.
func NewNotifier(opts ...Option) Notifier {
	cfg := Opts{SimulatedDelay: DefaultSimulatedDelay}
	for _, opt := range opts {
		opt(&cfg)
	}
	sim := NewSimulator(WithDelay(cfg.SimulatedDelay))
	if cfg.Simulate {
		slog.Info("NewNotifier: using simulated notifications")
		return sim.Notifier()
	}

	n := sim.Notifier()
	tw, err := NewTwilioClient(cfg.Twilio...)
	if err != nil {
		slog.Warn("NewNotifier: Twilio not configured, simulating calls and SMS", "error", err)
	} else {
		n.Caller, n.Texter = tw, tw
	}
	if cfg.SendGridKey == "" || cfg.FromEmail == "" {
		slog.Warn("NewNotifier: SendGrid not configured, simulating email")
	} else {
		n.Mailer = NewSendGridMailer(cfg.SendGridKey, cfg.FromName, cfg.FromEmail)
	}
	return n
}
