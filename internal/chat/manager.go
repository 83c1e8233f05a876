package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/CareSignal/internal/distress"
	"github.com/BTreeMap/CareSignal/internal/metrics"
)

// Option configures a Manager.
type Option func(*Manager)

func WithCompleter(c Completer) Option {
	return func(m *Manager) { m.completer = c }
}

func WithAlerter(a Alerter) Option {
	return func(m *Manager) { m.alerter = a }
}

// WithRandSource pins canned reply selection.
func WithRandSource(r RandSource) Option {
	return func(m *Manager) { m.rand = r }
}

// WithHistoryLimit sets how many recent messages accompany a completion request.
func WithHistoryLimit(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.historyLimit = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager owns sessions by ID. Each session gets its own classifier from the factory.
type Manager struct {
	store        Store
	factory      distress.Factory
	completer    Completer
	alerter      Alerter
	rand         RandSource
	historyLimit int
	now          func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager.
func NewManager(store Store, factory distress.Factory, opts ...Option) *Manager {
	m := &Manager{
		store:        store,
		factory:      factory,
		rand:         globalRand{},
		historyLimit: DefaultHistoryLimit,
		now:          time.Now,
		sessions:     make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the session for id, loading its history from the store on first use.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}

	history, err := m.store.ListMessages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading history for session %s: %w", id, err)
	}
	s := &Session{
		id:           id,
		classifier:   m.factory(),
		completer:    m.completer,
		alerter:      m.alerter,
		store:        m.store,
		rand:         m.rand,
		historyLimit: m.historyLimit,
		now:          m.now,
		history:      history,
	}
	s.touch()
	m.sessions[id] = s
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	slog.Debug("Manager.Get: session loaded", "sessionID", id, "messages", len(history))
	return s, nil
}

// EvictIdle drops sessions idle for longer than maxIdle and returns how many were dropped.
// Their history stays in the store; the classifier score does not survive eviction.
func (m *Manager) EvictIdle(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	if n > 0 {
		slog.Info("Manager.EvictIdle: evicted idle sessions", "count", n)
	}
	return n
}

// Len returns the number of sessions in memory.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
