package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/candyops/mint_layer/internal/app/domain/mint"
	"github.com/candyops/mint_layer/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and backs deployments that run without a database, at
// the cost of losing attempt history on restart.
type Store struct {
	mu       sync.RWMutex
	attempts map[string]mint.Attempt
	order    []string
}

var _ storage.AttemptStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		attempts: make(map[string]mint.Attempt),
	}
}

func (s *Store) CreateAttempt(_ context.Context, att mint.Attempt) (mint.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if att.ID == "" {
		return mint.Attempt{}, fmt.Errorf("attempt ID is required")
	}
	if _, exists := s.attempts[att.ID]; exists {
		return mint.Attempt{}, fmt.Errorf("attempt %s already exists", att.ID)
	}

	s.attempts[att.ID] = att
	s.order = append(s.order, att.ID)
	return att, nil
}

func (s *Store) UpdateAttempt(_ context.Context, att mint.Attempt) (mint.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.attempts[att.ID]
	if !ok {
		return mint.Attempt{}, fmt.Errorf("attempt %s: %w", att.ID, storage.ErrNotFound)
	}

	att.StartedAt = original.StartedAt
	s.attempts[att.ID] = att
	return att, nil
}

func (s *Store) GetAttempt(_ context.Context, id string) (mint.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	att, ok := s.attempts[id]
	if !ok {
		return mint.Attempt{}, fmt.Errorf("attempt %s: %w", id, storage.ErrNotFound)
	}
	return att, nil
}

func (s *Store) ListAttempts(_ context.Context, wallet string, limit int) ([]mint.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]mint.Attempt, 0)
	for i := len(s.order) - 1; i >= 0; i-- {
		att := s.attempts[s.order[i]]
		if wallet != "" && att.Wallet != wallet {
			continue
		}
		result = append(result, att)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (s *Store) CountSucceededByWallet(_ context.Context, wallet string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, att := range s.attempts {
		if att.Wallet == wallet && att.State == mint.StateSucceeded {
			count++
		}
	}
	return count, nil
}

func (s *Store) Close() error { return nil }
