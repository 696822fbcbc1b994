// Package store persists principal records (TOTP secret + MFA flag) for
// the login state machine. Two backends exist: a flat JSON file matching
// the original portal's users.json layout, and a sqlite table. Both
// present whole-mapping load/save semantics; a reader never observes a
// partially written mapping.
package store

import (
	"errors"

	"github.com/andrew-kemp/EasySwanVPN/internal/models"
)

// ErrStoreIO wraps any filesystem or database failure of a backend.
var ErrStoreIO = errors.New("principal store I/O failure")

// Store is the durable mapping from username to principal record.
type Store interface {
	// Load returns the full mapping. A missing backing file yields an
	// empty mapping, not an error.
	Load() (map[string]*models.Principal, error)
	// Save replaces the full mapping. Either the pre-write or the
	// post-write mapping is visible to readers, never a mix.
	Save(principals map[string]*models.Principal) error
	// Get returns the principal for username, or nil if absent.
	Get(username string) (*models.Principal, error)
	// Put inserts or replaces a single principal record.
	Put(p *models.Principal) error
}
