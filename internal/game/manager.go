package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/crazyeights/internal/cache"
)

// ErrSessionNotFound is returned when a session is neither live nor stored.
var ErrSessionNotFound = errors.New("session not found")

// Manager tracks the live sessions of one server process. A session with no
// connected client that has been idle longer than the idle timeout is
// evicted by Sweep; its snapshot stays in the store until the store expires it.
type Manager struct {
	opts     Options
	idle     time.Duration
	sessions map[uuid.UUID]*Session
	conns    map[uuid.UUID]int // connected clients per session
	mu       sync.RWMutex
	now      func() time.Time
}

// NewManager returns an empty Manager whose sessions use opts. An idle
// timeout of zero never evicts.
func NewManager(opts Options, idle time.Duration) *Manager {
	return &Manager{
		opts:     opts,
		idle:     idle,
		sessions: make(map[uuid.UUID]*Session),
		conns:    make(map[uuid.UUID]int),
		now:      time.Now,
	}
}

// Create deals a new session and registers it.
func (m *Manager) Create() *Session {
	s := NewSession(m.opts)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns a live session, or resumes it from the snapshot store.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return s, nil
	}
	if m.opts.Store == nil {
		return nil, ErrSessionNotFound
	}

	state, err := m.opts.Store.Load(ctx, id)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resume session %s: %w", id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another caller may have resumed it meanwhile.
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	s = ResumeSession(id, state, m.opts)
	m.sessions[id] = s
	return s, nil
}

// Connect returns the session like Get and counts a client as attached to it,
// which keeps Sweep from evicting it. Every Connect must be paired with a
// Disconnect.
func (m *Manager) Connect(ctx context.Context, id uuid.UUID) (*Session, error) {
	for {
		s, err := m.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		// A sweep may have evicted it between Get and here.
		if m.sessions[id] == s {
			m.conns[id]++
			m.mu.Unlock()
			return s, nil
		}
		m.mu.Unlock()
	}
}

// Disconnect releases a client counted by Connect. The session's idle clock
// restarts now.
func (m *Manager) Disconnect(id uuid.UUID) {
	m.mu.Lock()
	s := m.sessions[id]
	if m.conns[id] > 1 {
		m.conns[id]--
	} else {
		delete(m.conns, id)
	}
	m.mu.Unlock()
	if s != nil {
		s.Touch()
	}
}

// Sweep closes and forgets every session without clients that has been idle
// longer than the idle timeout. It also expires snapshots when the store
// supports it. It returns the number of sessions evicted.
func (m *Manager) Sweep() int {
	if sw, ok := m.opts.Store.(interface{ Sweep() int }); ok {
		sw.Sweep()
	}
	if m.idle <= 0 {
		return 0
	}

	now := m.now()
	var evicted []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if m.conns[id] > 0 || now.Sub(s.LastActive()) <= m.idle {
			continue
		}
		delete(m.sessions, id)
		evicted = append(evicted, s)
	}
	m.mu.Unlock()

	for _, s := range evicted {
		s.Close()
		s.log.Info("Idle session evicted.")
	}
	return len(evicted)
}

// Run calls Sweep every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Remove closes a session and drops its stored snapshot.
func (m *Manager) Remove(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	delete(m.conns, id)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
	if m.opts.Store != nil {
		if err := m.opts.Store.Delete(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every live session. Stored snapshots are kept so the games can
// be resumed by the next process.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.Close()
		delete(m.sessions, id)
		delete(m.conns, id)
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
