package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore keeps sessions in process. Sessions are stored as JSON so that
// callers never share a *Session between requests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore returns a MemoryStore whose sessions expire after ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok || m.now().After(e.expiresAt) {
		return nil, ErrNotFound
	}

	var s Session
	if err := json.Unmarshal(e.data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session failed: %w", err)
	}
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session failed: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[s.ID] = memoryEntry{data: data, expiresAt: m.now().Add(m.ttl)}
	m.sweepLocked()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryStore) sweepLocked() {
	now := m.now()
	for id, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, id)
		}
	}
}
