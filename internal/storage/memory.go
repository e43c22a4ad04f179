package storage

import (
	"context"
	"sync"
)

// Memory is an in-process Backend. Nothing survives a restart.
//
// items is profile → key → value. The inner map of a profile is created on
// its first write; reads of an unknown profile index a nil map, which in Go
// returns the zero value instead of panicking.
type Memory struct {
	mu    sync.RWMutex // RLock for reads, Lock for writes
	items map[string]map[string]string
}

var _ Backend = (*Memory)(nil)

// NewMemory returns an empty Memory backend.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]map[string]string)}
}

func (m *Memory) GetItem(_ context.Context, profile, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[profile][key]
	return v, ok, nil
}

func (m *Memory) SetItem(_ context.Context, profile, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items[profile] == nil {
		m.items[profile] = make(map[string]string)
	}
	m.items[profile][key] = value
	return nil
}

func (m *Memory) RemoveItems(_ context.Context, profile string, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		// delete on a nil map or a missing key is a no-op
		delete(m.items[profile], k)
	}
	return nil
}
