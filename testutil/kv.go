package testutil

import (
	"context"
	"sync"
)

// MemKV is an in-memory key/value store implementing the Get/Set surface the
// ledger and command sync consume. It counts calls and supports error
// injection so tests can assert on store interactions and failure paths.
type MemKV struct {
	mu   sync.Mutex
	data map[string]string

	GetCalls int
	SetCalls int

	// When set, the corresponding operation fails with this error.
	GetErr error
	SetErr error
}

// NewMemKV returns an empty in-memory store.
func NewMemKV() *MemKV {
	return &MemKV{data: make(map[string]string)}
}

// Get returns the value for key and whether it was present.
func (m *MemKV) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++
	if m.GetErr != nil {
		return "", false, m.GetErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

// Set stores value under key.
func (m *MemKV) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetCalls++
	if m.SetErr != nil {
		return m.SetErr
	}
	m.data[key] = value
	return nil
}

// Seed stores value under key without counting as a Set call.
func (m *MemKV) Seed(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// Value returns the stored value for key, ignoring injected errors.
func (m *MemKV) Value(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

// Len returns the number of stored keys.
func (m *MemKV) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
