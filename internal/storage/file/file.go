package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nkiryanov/doccollab/internal/apperrors"
)

const filePerm = 0o600

// Durable store kept as JSON object in a single file
// The file is rewritten atomically: temp file first, then rename
type Store struct {
	path string
	mu   sync.Mutex
}

func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("credentials file path must not be empty")
	}
	return &Store{path: path}, nil
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return "", err
	}

	value, ok := values[key]
	if !ok {
		return "", apperrors.ErrCredentialNotFound
	}
	return value, nil
}

func (s *Store) Set(_ context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return err
	}

	values[key] = value
	return s.write(values)
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error while removing credentials file. Err: %w", err)
	}
	return nil
}

// Read values from file, missing file means empty store
func (s *Store) read() (map[string]string, error) {
	values := make(map[string]string)

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return values, nil
	case err != nil:
		return nil, fmt.Errorf("error while reading credentials file. Err: %w", err)
	}

	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("error while parsing credentials file. Err: %w", err)
	}
	return values, nil
}

func (s *Store) write(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("error while creating credentials dir. Err: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, filePerm); err != nil {
		return fmt.Errorf("error while writing temp file. Err: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("error while replacing credentials file. Err: %w", err)
	}
	return nil
}
