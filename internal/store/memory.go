package store

import (
	"context"
	"sync"

	"github.com/BTreeMap/CareSignal/internal/models"
)

// InMemoryStore keeps everything in process memory. It is safe for concurrent use.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]models.EmergencyProfile
	messages map[string][]models.ChatMessage
	receipts []models.Receipt
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		profiles: make(map[string]models.EmergencyProfile),
		messages: make(map[string][]models.ChatMessage),
	}
}

func (s *InMemoryStore) SaveProfile(ctx context.Context, sessionID string, p models.EmergencyProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[sessionID] = p
	return nil
}

func (s *InMemoryStore) GetProfile(ctx context.Context, sessionID string) (*models.EmergencyProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[sessionID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *InMemoryStore) AppendMessage(ctx context.Context, sessionID string, m models.ChatMessage) error {
	if err := checkRole(m); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[sessionID] = append(s.messages[sessionID], m)
	return nil
}

func (s *InMemoryStore) ListMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ChatMessage(nil), s.messages[sessionID]...), nil
}

func (s *InMemoryStore) ClearMessages(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.messages, sessionID)
	return nil
}

func (s *InMemoryStore) AddReceipt(ctx context.Context, r models.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts = append(s.receipts, r)
	return nil
}

func (s *InMemoryStore) GetReceipts(ctx context.Context, alertID string) ([]models.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Receipt
	for _, r := range s.receipts {
		if r.AlertID == alertID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }
