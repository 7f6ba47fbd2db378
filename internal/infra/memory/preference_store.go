package memory

import (
	"context"
	"sync"
)

// PreferenceStore implements preferences.Store in process.
type PreferenceStore struct {
	mu     sync.RWMutex
	values map[string]map[string]string
}

func NewPreferenceStore() *PreferenceStore {
	return &PreferenceStore{values: make(map[string]map[string]string)}
}

func (s *PreferenceStore) Get(_ context.Context, clientID, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[clientID][key]
	return v, ok, nil
}

func (s *PreferenceStore) Set(_ context.Context, clientID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values[clientID] == nil {
		s.values[clientID] = make(map[string]string)
	}
	s.values[clientID][key] = value
	return nil
}
