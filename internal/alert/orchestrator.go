// Package alert fans a distress alert out to the guardian over call, SMS and email,
// enforcing a cooldown and tracking each channel's status.
package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BTreeMap/CareSignal/internal/metrics"
	"github.com/BTreeMap/CareSignal/internal/models"
	"github.com/BTreeMap/CareSignal/internal/notify"
)

// DefaultChannelTimeout bounds a single notification dispatch.
const DefaultChannelTimeout = 30 * time.Second

var (
	ErrNoEmergencyProfile = errors.New("no emergency profile configured")
	ErrCooldownActive     = errors.New("alert cooldown active")
	ErrAlertNotFound      = errors.New("alert not found")
	ErrNoDestination      = errors.New("no destination for channel")
)

// ReceiptRecorder persists the outcome of each channel.
type ReceiptRecorder interface {
	AddReceipt(ctx context.Context, r models.Receipt) error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCooldown replaces the default in-memory cooldown.
func WithCooldown(c Cooldown) Option {
	return func(o *Orchestrator) { o.cooldown = c }
}

// WithCooldownPeriod sets the minimum interval between fan-outs for one key.
func WithCooldownPeriod(d time.Duration) Option {
	return func(o *Orchestrator) { o.cooldownPeriod = d }
}

// WithChannelTimeout bounds each dispatch.
func WithChannelTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.channelTimeout = d }
}

// WithReceipts records every channel outcome.
func WithReceipts(r ReceiptRecorder) Option {
	return func(o *Orchestrator) { o.receipts = r }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

type entry struct {
	event   models.AlertEvent
	pending int
	done    chan struct{}
}

// Orchestrator fires alerts and keeps their in-memory status until dismissed.
type Orchestrator struct {
	notifier       notify.Notifier
	cooldown       Cooldown
	cooldownPeriod time.Duration
	channelTimeout time.Duration
	receipts       ReceiptRecorder
	now            func() time.Time

	mu     sync.Mutex
	events map[string]*entry
	wg     sync.WaitGroup
}

// NewOrchestrator creates an orchestrator dispatching through n.
func NewOrchestrator(n notify.Notifier, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		notifier:       n,
		cooldownPeriod: DefaultCooldownPeriod,
		channelTimeout: DefaultChannelTimeout,
		now:            time.Now,
		events:         make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.cooldown == nil {
		o.cooldown = NewLocalCooldown(time.Minute)
	}
	return o
}

// Fire starts a fan-out for key unless it is cooling down. The returned event has every
// channel pending; dispatches continue after ctx is cancelled.
func (o *Orchestrator) Fire(ctx context.Context, key string, profile *models.EmergencyProfile, message string) (models.AlertEvent, error) {
	if profile == nil {
		metrics.AlertsSuppressed.WithLabelValues("no_profile").Inc()
		slog.Warn("Orchestrator.Fire: no emergency profile, alert not sent", "key", key)
		return models.AlertEvent{}, ErrNoEmergencyProfile
	}

	claimed, err := o.cooldown.Claim(ctx, key, o.cooldownPeriod)
	if err != nil {
		// An unreachable cooldown store must not silence an alert.
		slog.Error("Orchestrator.Fire: cooldown claim failed, firing anyway", "key", key, "error", err)
		claimed = true
	}
	if !claimed {
		metrics.AlertsSuppressed.WithLabelValues("cooldown").Inc()
		left, err := o.cooldown.Remaining(ctx, key)
		if err != nil {
			slog.Warn("Orchestrator.Fire: cooldown lookup failed", "key", key, "error", err)
		}
		left = left.Round(time.Second)
		slog.Info("Orchestrator.Fire: cooldown active, skipping fan-out", "key", key, "remaining", left)
		return models.AlertEvent{}, fmt.Errorf("%w: %s remaining", ErrCooldownActive, left)
	}

	event := models.AlertEvent{
		ID:                uuid.NewString(),
		SessionID:         key,
		TriggeringMessage: message,
		FiredAt:           o.now(),
		CallStatus:        models.ChannelStatusPending,
		SMSStatus:         models.ChannelStatusPending,
		EmailStatus:       models.ChannelStatusPending,
	}

	o.mu.Lock()
	o.events[event.ID] = &entry{event: event, pending: len(models.AllChannels), done: make(chan struct{})}
	o.mu.Unlock()

	metrics.AlertsFired.Inc()
	slog.Info("Orchestrator.Fire: alert fired", "key", key, "alertID", event.ID, "guardian", profile.GuardianName)

	p := *profile
	base := context.WithoutCancel(ctx)
	text := notify.AlertText(p)
	o.dispatch(base, event.ID, models.ChannelCall, p.GuardianPhone, func(ctx context.Context) (string, error) {
		return o.notifier.Caller.PlaceCall(ctx, p.GuardianPhone, text)
	})
	o.dispatch(base, event.ID, models.ChannelSMS, p.GuardianPhone, func(ctx context.Context) (string, error) {
		return o.notifier.Texter.SendSMS(ctx, p.GuardianPhone, text)
	})
	o.dispatch(base, event.ID, models.ChannelEmail, p.GuardianEmail, func(ctx context.Context) (string, error) {
		return o.notifier.Mailer.SendEmail(ctx, p.GuardianEmail, p)
	})

	return event, nil
}

func (o *Orchestrator) dispatch(base context.Context, alertID string, ch models.Channel, to string, send func(context.Context) (string, error)) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()

		ctx, cancel := context.WithTimeout(base, o.channelTimeout)
		defer cancel()

		start := time.Now()
		var (
			id  string
			err error
		)
		if to == "" {
			err = ErrNoDestination
		} else {
			id, err = send(ctx)
		}
		metrics.NotificationDuration.WithLabelValues(string(ch)).Observe(time.Since(start).Seconds())

		status := models.ChannelStatusSuccess
		if err != nil {
			status = models.ChannelStatusError
			slog.Warn("Orchestrator.dispatch: channel failed", "alertID", alertID, "channel", ch, "error", err)
		} else {
			slog.Debug("Orchestrator.dispatch: channel delivered", "alertID", alertID, "channel", ch, "providerID", id)
		}
		metrics.Notifications.WithLabelValues(string(ch), string(status)).Inc()

		o.recordReceipt(ctx, alertID, ch, to, status, notify.ResultOf(id, err))
		o.settle(alertID, ch, status)
	}()
}

func (o *Orchestrator) recordReceipt(ctx context.Context, alertID string, ch models.Channel, to string, status models.ChannelStatus, res notify.Result) {
	if o.receipts == nil {
		return
	}
	r := models.Receipt{
		AlertID:    alertID,
		Channel:    ch,
		To:         to,
		Status:     status,
		ProviderID: res.ID,
		Error:      res.Error,
		Time:       o.now().Unix(),
	}
	if err := o.receipts.AddReceipt(ctx, r); err != nil {
		slog.Error("Orchestrator.recordReceipt failed", "alertID", alertID, "channel", ch, "error", err)
	}
}

func (o *Orchestrator) settle(alertID string, ch models.Channel, status models.ChannelStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.events[alertID]
	if !ok {
		// Dismissed while in flight.
		return
	}
	e.event.SetStatus(ch, status)
	e.pending--
	if e.pending == 0 {
		close(e.done)
	}
}

// Event returns a snapshot of an alert.
func (o *Orchestrator) Event(id string) (models.AlertEvent, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.events[id]
	if !ok {
		return models.AlertEvent{}, false
	}
	return e.event, true
}

// Await blocks until every channel of the alert has settled or ctx is done.
func (o *Orchestrator) Await(ctx context.Context, id string) (models.AlertEvent, error) {
	o.mu.Lock()
	e, ok := o.events[id]
	o.mu.Unlock()
	if !ok {
		return models.AlertEvent{}, fmt.Errorf("%w: %s", ErrAlertNotFound, id)
	}
	select {
	case <-e.done:
	case <-ctx.Done():
		return models.AlertEvent{}, ctx.Err()
	}
	ev, ok := o.Event(id)
	if !ok {
		return models.AlertEvent{}, fmt.Errorf("%w: %s", ErrAlertNotFound, id)
	}
	return ev, nil
}

// Dismiss discards an alert. In-flight dispatches still finish and record receipts.
func (o *Orchestrator) Dismiss(id string) (models.AlertEvent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.events[id]
	if !ok {
		return models.AlertEvent{}, fmt.Errorf("%w: %s", ErrAlertNotFound, id)
	}
	delete(o.events, id)
	if e.pending > 0 {
		// Release waiters; settle no longer finds the entry.
		e.pending = 0
		close(e.done)
	}
	e.event.Dismissed = true
	slog.Debug("Orchestrator.Dismiss: alert dismissed", "alertID", id)
	return e.event, nil
}

// PurgeOlderThan discards alerts fired before cutoff and returns how many were removed.
// Waiters on a purged alert are released as in Dismiss.
func (o *Orchestrator) PurgeOlderThan(cutoff time.Time) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for id, e := range o.events {
		if e.event.FiredAt.Before(cutoff) {
			delete(o.events, id)
			if e.pending > 0 {
				e.pending = 0
				close(e.done)
			}
			n++
		}
	}
	if n > 0 {
		slog.Debug("Orchestrator.PurgeOlderThan: purged alerts", "count", n, "cutoff", cutoff)
	}
	return n
}

// Wait blocks until every in-flight dispatch has returned.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}
