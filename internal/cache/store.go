// Package cache keeps the current snapshot of each live session so a
// reconnecting client, or another server process, can pick the game up again.
// Only the latest state is kept; nothing here records game history.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/crazyeights/engine"
)

// ErrNotFound is returned when no snapshot exists for a session.
var ErrNotFound = errors.New("snapshot not found")

// SnapshotStore saves and loads the latest state of a session.
type SnapshotStore interface {
	Save(ctx context.Context, id uuid.UUID, g *engine.GameState) error
	Load(ctx context.Context, id uuid.UUID) (*engine.GameState, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// encode and decode are shared by every store so they all enforce the same
// invariants on the way in and out.
func encode(g *engine.GameState) ([]byte, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("refusing to store invalid state: %w", err)
	}
	return json.Marshal(g)
}

func decode(b []byte) (*engine.GameState, error) {
	var g engine.GameState
	if err := json.Unmarshal(b, &g); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("stored snapshot is invalid: %w", err)
	}
	return &g, nil
}

// MemoryStore keeps encoded snapshots in process memory. Like RedisStore,
// each save restarts the snapshot's TTL; expired snapshots are not returned
// and are dropped by Sweep.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[uuid.UUID]memoryEntry
	ttl  time.Duration
	now  func() time.Time
}

type memoryEntry struct {
	b       []byte
	expires time.Time // zero means never
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// NewMemoryStore returns an empty MemoryStore. A ttl of zero keeps snapshots
// forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		data: make(map[uuid.UUID]memoryEntry),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (m *MemoryStore) Save(_ context.Context, id uuid.UUID, g *engine.GameState) error {
	b, err := encode(g)
	if err != nil {
		return err
	}
	e := memoryEntry{b: b}
	m.mu.Lock()
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.data[id] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Load(_ context.Context, id uuid.UUID) (*engine.GameState, error) {
	m.mu.RLock()
	e, ok := m.data[id]
	expired := ok && e.expired(m.now())
	m.mu.RUnlock()
	if !ok || expired {
		return nil, ErrNotFound
	}
	return decode(e.b)
}

func (m *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	delete(m.data, id)
	m.mu.Unlock()
	return nil
}

// Sweep drops expired snapshots and returns how many it removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for id, e := range m.data {
		if e.expired(now) {
			delete(m.data, id)
			n++
		}
	}
	return n
}

// Len returns the number of stored snapshots, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
