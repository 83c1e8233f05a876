// Package chat runs conversations: each user turn is classified, distress triggers an alert and a
// supportive reply, and everything else is answered by a chat completion.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/BTreeMap/CareSignal/internal/alert"
	"github.com/BTreeMap/CareSignal/internal/distress"
	"github.com/BTreeMap/CareSignal/internal/metrics"
	"github.com/BTreeMap/CareSignal/internal/models"
)

// DefaultHistoryLimit is how many recent messages are sent with a completion request.
const DefaultHistoryLimit = 10

// Completer produces the assistant reply for a conversation.
type Completer interface {
	Reply(ctx context.Context, systemPrompt string, history []models.ChatMessage) (string, error)
}

// Alerter fires an emergency alert for a session.
type Alerter interface {
	Fire(ctx context.Context, key string, profile *models.EmergencyProfile, message string) (models.AlertEvent, error)
}

// Store is the persistence a session needs.
type Store interface {
	GetProfile(ctx context.Context, sessionID string) (*models.EmergencyProfile, error)
	AppendMessage(ctx context.Context, sessionID string, m models.ChatMessage) error
	ListMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
	ClearMessages(ctx context.Context, sessionID string) error
}

// Reply is the outcome of one user turn.
type Reply struct {
	Message models.ChatMessage `json:"message"`
	Verdict distress.Verdict   `json:"verdict"`
	Source  distress.Source    `json:"source"`
	Alert   *models.AlertEvent `json:"alert,omitempty"`
}

// Session is one conversation. Turns are serialized by a mutex, so history and the
// classifier's score have a single writer.
type Session struct {
	id           string
	classifier   distress.Classifier
	completer    Completer
	alerter      Alerter
	store        Store
	rand         RandSource
	historyLimit int
	now          func() time.Time

	mu         sync.Mutex
	history    []models.ChatMessage
	lastActive atomic.Int64
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Send runs one user turn and returns the assistant reply. Only invalid input is an error.
func (s *Session) Send(ctx context.Context, text string) (Reply, error) {
	if err := models.ValidateChatText(text); err != nil {
		return Reply{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.append(ctx, models.RoleUser, text)

	result := s.classifier.Classify(ctx, text)
	metrics.Classifications.WithLabelValues(string(result.Verdict), string(result.Source)).Inc()

	reply := Reply{Verdict: result.Verdict, Source: result.Source}
	var content string
	if result.IsDistress() {
		slog.Info("Session.Send: distress detected", "sessionID", s.id, "source", result.Source)
		var (
			name    string
			alerted bool
		)
		reply.Alert, name, alerted = s.raiseAlert(ctx, text)
		content = pickReply(s.rand, name, alerted)
	} else {
		content = s.complete(ctx)
	}

	reply.Message = s.append(ctx, models.RoleAssistant, content)
	return reply, nil
}

// raiseAlert fires an alert and returns it with the subject's name. alerted reports whether the
// emergency contact was reached now or during the active cooldown. Failures are logged only.
func (s *Session) raiseAlert(ctx context.Context, text string) (*models.AlertEvent, string, bool) {
	profile, err := s.store.GetProfile(ctx, s.id)
	if err != nil {
		slog.Error("Session.raiseAlert: profile lookup failed", "sessionID", s.id, "error", err)
	}
	name := ""
	if profile != nil {
		name = profile.SubjectName
	}
	if s.alerter == nil {
		slog.Warn("Session.raiseAlert: no alerter configured", "sessionID", s.id)
		return nil, name, false
	}
	ev, err := s.alerter.Fire(ctx, s.id, profile, text)
	if errors.Is(err, alert.ErrCooldownActive) {
		slog.Info("Session.raiseAlert: contact already alerted", "sessionID", s.id, "detail", err)
		return nil, name, true
	}
	if err != nil {
		slog.Warn("Session.raiseAlert: alert not sent", "sessionID", s.id, "error", err)
		return nil, name, false
	}
	return &ev, name, true
}

func (s *Session) complete(ctx context.Context) string {
	if s.completer == nil {
		metrics.Completions.WithLabelValues("skipped").Inc()
		return FallbackReply
	}
	window := s.history
	if len(window) > s.historyLimit {
		window = window[len(window)-s.historyLimit:]
	}
	out, err := s.completer.Reply(ctx, SystemPrompt, window)
	if err != nil {
		metrics.Completions.WithLabelValues("error").Inc()
		slog.Warn("Session.complete: completion failed, using fallback", "sessionID", s.id, "error", err)
		return FallbackReply
	}
	out = strings.TrimSpace(out)
	if out == "" {
		metrics.Completions.WithLabelValues("error").Inc()
		slog.Warn("Session.complete: empty completion, using fallback", "sessionID", s.id)
		return FallbackReply
	}
	metrics.Completions.WithLabelValues("ok").Inc()
	return out
}

// append records a message in memory and in the store. Store failures are logged; the
// in-memory conversation continues.
func (s *Session) append(ctx context.Context, role models.Role, content string) models.ChatMessage {
	m := models.ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: s.now(),
	}
	s.history = append(s.history, m)
	if err := s.store.AppendMessage(ctx, s.id, m); err != nil {
		slog.Error("Session.append: failed to persist message", "sessionID", s.id, "role", role, "error", err)
	}
	return m
}

// Clear wipes the conversation. Clearing an empty conversation is a no-op.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if err := s.store.ClearMessages(ctx, s.id); err != nil {
		return err
	}
	s.history = nil
	slog.Debug("Session.Clear: history cleared", "sessionID", s.id)
	return nil
}

// History returns a copy of the conversation.
func (s *Session) History() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ChatMessage(nil), s.history...)
}

func (s *Session) touch() {
	s.lastActive.Store(s.now().UnixNano())
}

func (s *Session) idleSince() time.Time {
	return time.Unix(0, s.lastActive.Load())
}
