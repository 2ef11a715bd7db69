package auth

import (
	"context"
	"sync"
)

// NewInMemorySlotStore returns a SlotStore backed by an in-memory map.
func NewInMemorySlotStore() *InMemorySlotStore {
	return &InMemorySlotStore{slots: make(map[string]string)}
}

// InMemorySlotStore implements SlotStore for tests and local development.
type InMemorySlotStore struct {
	mu    sync.RWMutex
	slots map[string]string
}

// SaveRefreshToken overwrites the user's slot.
func (s *InMemorySlotStore) SaveRefreshToken(_ context.Context, userID, token string) error {
	s.mu.Lock()
	s.slots[userID] = token
	s.mu.Unlock()
	return nil
}

// RefreshToken returns the token held in the user's slot.
func (s *InMemorySlotStore) RefreshToken(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	token, ok := s.slots[userID]
	s.mu.RUnlock()
	if !ok {
		return "", ErrSlotNotFound
	}
	return token, nil
}

// ClearRefreshToken empties the user's slot.
func (s *InMemorySlotStore) ClearRefreshToken(_ context.Context, userID string) error {
	s.mu.Lock()
	if _, ok := s.slots[userID]; ok {
		s.slots[userID] = ""
	}
	s.mu.Unlock()
	return nil
}

// Has reports whether the user's slot currently holds the token. Useful for tests.
func (s *InMemorySlotStore) Has(userID, token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return token != "" && s.slots[userID] == token
}
