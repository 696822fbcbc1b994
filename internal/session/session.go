// Package session holds the per-connection authentication context. A
// session is created anonymous, walks through the login state machine,
// and is dropped (or reset) on logout. All state transitions on a
// session happen under its lock so two concurrent requests can never
// interleave a transition.
package session

import (
	"sync"
	"time"
)

// State is the position of a session in the login sequence.
type State int

const (
	// StateAnonymous is the initial state; no factor verified.
	StateAnonymous State = iota
	// StatePrimaryOK means the password check passed for an
	// already-enrolled principal; a TOTP code is still required.
	StatePrimaryOK
	// StateEnrolling means the password check passed for a principal
	// that has not completed TOTP enrollment yet.
	StateEnrolling
	// StateAuthenticated means both factors have been verified.
	StateAuthenticated
)

// String returns a human-readable state name for logs.
func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StatePrimaryOK:
		return "primary_ok"
	case StateEnrolling:
		return "enrolling_mfa"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session is the per-connection authentication context.
type Session struct {
	mu sync.Mutex

	ID            string
	State         State
	Username      string
	Authenticated bool
	ActiveCA      string

	CreatedAt time.Time
	ExpiresAt time.Time
}

// Lock serializes state transitions on the session.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the transition lock.
func (s *Session) Unlock() { s.mu.Unlock() }

// Reset returns the session to the anonymous state, clearing every
// field the login sequence set. The caller must hold the lock.
func (s *Session) Reset() {
	s.State = StateAnonymous
	s.Username = ""
	s.Authenticated = false
	s.ActiveCA = ""
}
