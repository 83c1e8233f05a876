package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/CareSignal/internal/models"
	"github.com/BTreeMap/CareSignal/internal/util"
)

// DefaultSimulatedDelay is how long a simulated dispatch takes.
const DefaultSimulatedDelay = 1500 * time.Millisecond

// SentNotification records one simulated dispatch.
type SentNotification struct {
	Channel models.Channel
	To      string
	Body    string
	ID      string
	Failed  bool
}

// Simulator implements Caller, Texter and Mailer without contacting any provider.
// Each dispatch waits for an artificial delay and then succeeds unless its channel
// was configured to fail.
type Simulator struct {
	delay time.Duration

	mu   sync.Mutex
	fail map[models.Channel]bool
	sent []SentNotification
}

// SimOption configures a Simulator.
type SimOption func(*Simulator)

// WithDelay sets the artificial dispatch delay.
func WithDelay(d time.Duration) SimOption {
	return func(s *Simulator) { s.delay = d }
}

// WithFailure makes every dispatch on ch fail.
func WithFailure(ch models.Channel) SimOption {
	return func(s *Simulator) { s.fail[ch] = true }
}

// NewSimulator creates a simulator.
func NewSimulator(opts ...SimOption) *Simulator {
	s := &Simulator{delay: DefaultSimulatedDelay, fail: make(map[models.Channel]bool)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notifier returns a Notifier using the simulator for all channels.
func (s *Simulator) Notifier() Notifier {
	return Notifier{Caller: s, Texter: s, Mailer: s}
}

// SetFailure toggles failure for one channel.
func (s *Simulator) SetFailure(ch models.Channel, fail bool) {
	s.mu.Lock()
	s.fail[ch] = fail
	s.mu.Unlock()
}

func (s *Simulator) PlaceCall(ctx context.Context, to, message string) (string, error) {
	return s.dispatch(ctx, models.ChannelCall, "CA", to, message)
}

func (s *Simulator) SendSMS(ctx context.Context, to, message string) (string, error) {
	return s.dispatch(ctx, models.ChannelSMS, "SM", to, message)
}

func (s *Simulator) SendEmail(ctx context.Context, to string, profile models.EmergencyProfile) (string, error) {
	subject, _ := AlertEmail(profile)
	return s.dispatch(ctx, models.ChannelEmail, "EM", to, subject)
}

// Sent returns a copy of every recorded dispatch.
func (s *Simulator) Sent() []SentNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SentNotification, len(s.sent))
	copy(out, s.sent)
	return out
}

// SentOn returns the dispatches recorded for ch.
func (s *Simulator) SentOn(ch models.Channel) []SentNotification {
	var out []SentNotification
	for _, n := range s.Sent() {
		if n.Channel == ch {
			out = append(out, n)
		}
	}
	return out
}

func (s *Simulator) dispatch(ctx context.Context, ch models.Channel, idPrefix, to, body string) (string, error) {
	if to == "" {
		return "", ErrNoRecipient
	}
	if s.delay > 0 {
		t := time.NewTimer(s.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	}

	s.mu.Lock()
	failed := s.fail[ch]
	n := SentNotification{Channel: ch, To: to, Body: body, Failed: failed}
	if !failed {
		n.ID = util.GenerateRandomID(idPrefix, 32)
	}
	s.sent = append(s.sent, n)
	s.mu.Unlock()

	if failed {
		slog.Debug("Simulator.dispatch: simulated failure", "channel", ch, "to", to)
		return "", ErrSimulatedFailure
	}
	slog.Debug("Simulator.dispatch: simulated delivery", "channel", ch, "to", to, "id", n.ID)
	return n.ID, nil
}
