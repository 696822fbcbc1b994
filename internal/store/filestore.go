package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/andrew-kemp/EasySwanVPN/internal/models"
)

// FileStore keeps the principal mapping in a single JSON file keyed by
// username. Writes go to a temp file in the same directory and are
// renamed into place, so a crash mid-save leaves the previous mapping
// intact.
type FileStore struct {
	path string
	mu   sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a file-backed principal store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load implements Store
func (s *FileStore) Load() (map[string]*models.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save implements Store
func (s *FileStore) Save(principals map[string]*models.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(principals)
}

// Get implements Store
func (s *FileStore) Get(username string) (*models.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	principals, err := s.load()
	if err != nil {
		return nil, err
	}
	return principals[username], nil
}

// Put implements Store
func (s *FileStore) Put(p *models.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	principals, err := s.load()
	if err != nil {
		return err
	}

	if existing, ok := principals[p.Username]; ok {
		p.CreatedAt = existing.CreatedAt
	} else if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.UpdatedAt = time.Now()

	principals[p.Username] = p
	return s.save(principals)
}

// load reads the mapping; the caller must hold the mutex.
func (s *FileStore) load() (map[string]*models.Principal, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*models.Principal), nil
		}
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrStoreIO, s.path, err)
	}

	principals := make(map[string]*models.Principal)
	if err := json.Unmarshal(data, &principals); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrStoreIO, s.path, err)
	}

	// Username is the map key, not a stored field.
	for username, p := range principals {
		p.Username = username
	}

	return principals, nil
}

// save atomically replaces the mapping; the caller must hold the mutex.
func (s *FileStore) save(principals map[string]*models.Principal) error {
	data, err := json.MarshalIndent(principals, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to encode principals: %v", ErrStoreIO, err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".principals-*.json")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %v", ErrStoreIO, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: failed to write temp file: %v", ErrStoreIO, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: failed to close temp file: %v", ErrStoreIO, err)
	}

	if err := os.Chmod(tmpPath, 0600); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: failed to set permissions: %v", ErrStoreIO, err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: failed to replace %s: %v", ErrStoreIO, s.path, err)
	}

	return nil
}
