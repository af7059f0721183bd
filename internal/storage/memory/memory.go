package memory

import (
	"context"
	"sync"

	"github.com/nkiryanov/doccollab/internal/apperrors"
)

// In-memory store. Used for session scoped keys and in tests
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

func New() *Store {
	return &Store{values: make(map[string]string)}
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return "", apperrors.ErrCredentialNotFound
	}
	return value, nil
}

func (s *Store) Set(_ context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.values)
	return nil
}
