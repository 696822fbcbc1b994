package store

import (
	"fmt"

	"github.com/andrew-kemp/EasySwanVPN/internal/db/repository"
	"github.com/andrew-kemp/EasySwanVPN/internal/models"
)

// SQLiteStore adapts the principal repository to the Store interface.
// Whole-mapping saves run in a single transaction, so readers see the
// old or new mapping in full.
type SQLiteStore struct {
	repo *repository.PrincipalRepository
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a sqlite-backed principal store.
func NewSQLiteStore(repo *repository.PrincipalRepository) *SQLiteStore {
	return &SQLiteStore{repo: repo}
}

// Load implements Store
func (s *SQLiteStore) Load() (map[string]*models.Principal, error) {
	list, err := s.repo.List()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreIO, err)
	}

	principals := make(map[string]*models.Principal, len(list))
	for _, p := range list {
		principals[p.Username] = p
	}
	return principals, nil
}

// Save implements Store
func (s *SQLiteStore) Save(principals map[string]*models.Principal) error {
	list := make([]*models.Principal, 0, len(principals))
	for username, p := range principals {
		p.Username = username
		list = append(list, p)
	}

	if err := s.repo.ReplaceAll(list); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreIO, err)
	}
	return nil
}

// Get implements Store
func (s *SQLiteStore) Get(username string) (*models.Principal, error) {
	p, err := s.repo.GetByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreIO, err)
	}
	return p, nil
}

// Put implements Store
func (s *SQLiteStore) Put(p *models.Principal) error {
	if err := s.repo.Upsert(p); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreIO, err)
	}
	return nil
}
