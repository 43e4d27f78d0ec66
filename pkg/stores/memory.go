package stores

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory spill store for tests and short-lived runs.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string][]byte)}
}

// PutState stores one serialized state.
func (m *MemoryStore) PutState(_ context.Context, id string, _ uint64, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[id] = append([]byte(nil), payload...)
	return nil
}

// GetState retrieves one serialized state by identity.
func (m *MemoryStore) GetState(_ context.Context, id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.states[id]
	if !ok {
		return nil, fmt.Errorf("state %s: %w", id, ErrNotFound)
	}
	return append([]byte(nil), payload...), nil
}

// DeleteState removes one serialized state.
func (m *MemoryStore) DeleteState(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.states[id]; !ok {
		return fmt.Errorf("state %s: %w", id, ErrNotFound)
	}
	delete(m.states, id)
	return nil
}

// Len returns the number of stored states.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}
