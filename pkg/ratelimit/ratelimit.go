// Package ratelimit implements the per-client fixed-window limiter guarding
// the payment and token endpoints. The in-memory implementation is a
// single-process approximation: under multi-instance deployment each instance
// enforces its own window, so production deployments should back the Limiter
// interface with a shared store.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter decides whether a client may make another request right now.
// retryAfter is only meaningful when ok is false.
type Limiter interface {
	Check(clientID string) (ok bool, retryAfter time.Duration)
	Reset(clientID string)
}

type window struct {
	count   int
	resetAt time.Time
}

// Memory is a mutex-guarded map of fixed windows keyed by client id.
type Memory struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	entries map[string]*window
	now     func() time.Time
}

func NewMemory(limit int, windowDur time.Duration) *Memory {
	return &Memory{
		limit:   limit,
		window:  windowDur,
		entries: make(map[string]*window),
		now:     time.Now,
	}
}

// Check counts one request against clientID's current window.
func (m *Memory) Check(clientID string) (bool, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.entries[clientID]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(m.window)}
		m.entries[clientID] = w
	}

	if w.count >= m.limit {
		return false, w.resetAt.Sub(now)
	}
	w.count++
	return true, 0
}

func (m *Memory) Reset(clientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, clientID)
}
