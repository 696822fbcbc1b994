// Package ca implements the certificate authority registry and the
// leaf-certificate issuance engine. Each CA is a directory under the
// registry base dir holding its private key, its certificate and a
// serial counter file; the directory appears atomically or not at all.
package ca

import (
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/andrew-kemp/EasySwanVPN/internal/session"
	"github.com/andrew-kemp/EasySwanVPN/pkg/certutil"
)

const (
	caKeyFile    = "ca.key"
	caCertFile   = "ca.crt"
	caSerialFile = "serial"

	dirPerm         = 0750
	filePermPrivate = 0600
	filePermPublic  = 0644
)

// CA names become directory names, so they are validated before any
// path is built from them.
var nameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateName returns ErrInvalidName if name is unsafe as a storage key.
func ValidateName(name string) error {
	if !nameRegex.MatchString(name) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Authority is a loaded certificate authority.
type Authority struct {
	Name        string
	Certificate *x509.Certificate
	Key         *rsa.PrivateKey
	CertPEM     []byte
}

// Registry enumerates and manages the on-disk certificate authorities.
type Registry struct {
	baseDir string

	mu sync.RWMutex // membership: list/create/import

	serialMu sync.Mutex // guards serials
	serials  map[string]*sync.Mutex
}

// NewRegistry creates a registry rooted at baseDir, creating it if needed.
func NewRegistry(baseDir string) (*Registry, error) {
	if err := os.MkdirAll(baseDir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create CA directory: %w", err)
	}
	return &Registry{
		baseDir: baseDir,
		serials: make(map[string]*sync.Mutex),
	}, nil
}

// List returns the names of all CAs in lexicographic order, so "first
// CA" selection is deterministic run-to-run.
func (r *Registry) List() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		// Staged directories from interrupted creation are skipped.
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	return names, nil
}

// Exists reports whether a CA with the given name exists.
func (r *Registry) Exists(name string) bool {
	if ValidateName(name) != nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, err := os.Stat(filepath.Join(r.baseDir, name, caCertFile))
	return err == nil
}

// Get loads a CA's key and certificate from disk.
func (r *Registry) Get(name string) (*Authority, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	dir := filepath.Join(r.baseDir, name)

	certPEM, err := os.ReadFile(filepath.Join(dir, caCertFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}
	cert, err := certutil.ParseCertificatePEM(certPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to load CA %s: %w", name, err)
	}

	keyPEM, err := os.ReadFile(filepath.Join(dir, caKeyFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read CA key: %w", err)
	}
	key, err := certutil.ParsePrivateKeyPEM(keyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to load CA %s: %w", name, err)
	}

	return &Authority{
		Name:        name,
		Certificate: cert,
		Key:         key,
		CertPEM:     certPEM,
	}, nil
}

// Select sets the session's active CA. Fails with ErrNotFound if no CA
// with the given name exists.
func (r *Registry) Select(sess *session.Session, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if !r.Exists(name) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	sess.Lock()
	sess.ActiveCA = name
	sess.Unlock()

	return nil
}

// ResolveActive returns the session's active CA, falling back to the
// first registry entry if the stored choice no longer exists. Returns
// ErrNoActiveCA when the registry is empty.
func (r *Registry) ResolveActive(sess *session.Session) (string, error) {
	sess.Lock()
	active := sess.ActiveCA
	sess.Unlock()

	if active != "" && r.Exists(active) {
		return active, nil
	}

	names, err := r.List()
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", ErrNoActiveCA
	}

	sess.Lock()
	sess.ActiveCA = names[0]
	sess.Unlock()

	return names[0], nil
}

// serialLock returns the per-CA serial mutex, creating it on first use.
func (r *Registry) serialLock(name string) *sync.Mutex {
	r.serialMu.Lock()
	defer r.serialMu.Unlock()

	lock, ok := r.serials[name]
	if !ok {
		lock = &sync.Mutex{}
		r.serials[name] = lock
	}
	return lock
}

func (r *Registry) caDir(name string) string {
	return filepath.Join(r.baseDir, name)
}
