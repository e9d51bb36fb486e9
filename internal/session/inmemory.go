package session

import (
	"context"
	"sync"
	"time"
)

type inMemoryEntry struct {
	settings  Settings
	expiresAt time.Time
}

// InMemory is a process-local session store. Entries expire lazily on
// read.
type InMemory struct {
	mu      sync.RWMutex
	entries map[string]inMemoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewInMemory(ttl time.Duration) *InMemory {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &InMemory{
		entries: make(map[string]inMemoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *InMemory) Get(ctx context.Context, sessionID string) (Settings, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[sessionID]
	m.mu.RUnlock()
	if !ok {
		return Settings{}, false, nil
	}
	if m.now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, sessionID)
		m.mu.Unlock()
		return Settings{}, false, nil
	}
	return e.settings, true, nil
}

func (m *InMemory) Put(ctx context.Context, sessionID string, s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[sessionID] = inMemoryEntry{settings: s, expiresAt: m.now().Add(m.ttl)}
	return nil
}

func (m *InMemory) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, sessionID)
	return nil
}
