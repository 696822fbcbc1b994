package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager is a thread-safe in-memory session store.
// Sessions are lost on server restart.
type Manager struct {
	mu   sync.RWMutex
	data map[string]*Session
	ttl  time.Duration
}

// NewManager creates a session manager. ttl of 0 disables expiry.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		data: make(map[string]*Session),
		ttl:  ttl,
	}
}

// Create registers a fresh anonymous session and returns it.
func (m *Manager) Create() *Session {
	now := time.Now()
	sess := &Session{
		ID:        uuid.NewString(),
		State:     StateAnonymous,
		CreatedAt: now,
	}
	if m.ttl > 0 {
		sess.ExpiresAt = now.Add(m.ttl)
	}

	m.mu.Lock()
	m.data[sess.ID] = sess
	m.mu.Unlock()

	return sess
}

// Get returns the session for id, or nil if it does not exist or has
// expired. Expired sessions are removed on access.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	sess, ok := m.data[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	if !sess.ExpiresAt.IsZero() && time.Now().After(sess.ExpiresAt) {
		m.Delete(id)
		return nil
	}
	return sess
}

// Delete removes a session.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	delete(m.data, id)
	m.mu.Unlock()
}
