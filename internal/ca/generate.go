package ca

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/andrew-kemp/EasySwanVPN/pkg/certutil"
)

const caKeyBits = 4096

// Generate creates a new CA: a fresh private key and a self-signed root
// certificate with the given subject common name. The CA directory is
// staged under a hidden name and renamed into place, so a half-created
// CA is never visible to List.
func (r *Registry) Generate(ctx context.Context, name, subject string, validityDays int) (*Authority, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if r.Exists(name) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}

	var key *rsa.PrivateKey
	var certDER []byte
	err := runBounded(ctx, func() error {
		var err error
		key, certDER, err = newRootCertificate(subject, validityDays)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	certPEM := certutil.EncodeCertificatePEM(certDER)
	keyPEM := certutil.EncodePrivateKeyPEM(key)

	if err := r.persist(name, keyPEM, certPEM); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	return &Authority{
		Name:        name,
		Certificate: cert,
		Key:         key,
		CertPEM:     certPEM,
	}, nil
}

// Import persists caller-supplied key and certificate material under
// name. The material is checked structurally (parseable PEM of the
// right kinds); no verification that key and certificate match.
func (r *Registry) Import(name string, certPEM, keyPEM []byte) (*Authority, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if r.Exists(name) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}

	cert, err := certutil.ParseCertificatePEM(certPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMaterial, err)
	}
	key, err := certutil.ParsePrivateKeyPEM(keyPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMaterial, err)
	}

	if err := r.persist(name, keyPEM, certPEM); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	return &Authority{
		Name:        name,
		Certificate: cert,
		Key:         key,
		CertPEM:     certPEM,
	}, nil
}

// newRootCertificate builds the self-signed root key and certificate.
func newRootCertificate(subject string, validityDays int) (*rsa.PrivateKey, []byte, error) {
	key, err := rsa.GenerateKey(rand.Reader, caKeyBits)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate CA key: %w", err)
	}

	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serialNumber, err := rand.Int(rand.Reader, serialNumberLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	// SubjectKeyIdentifier: SHA1 of the SubjectPublicKeyInfo DER (RFC 5280 §4.2.1.2).
	pubKeyDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal public key: %w", err)
	}
	subjectKeyID := sha1.Sum(pubKeyDER)

	now := time.Now().UTC()
	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName: subject,
		},
		NotBefore:             now.Add(-24 * time.Hour),
		NotAfter:              now.AddDate(0, 0, validityDays),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		SubjectKeyId:          subjectKeyID[:],
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create CA certificate: %w", err)
	}

	return key, certDER, nil
}

// persist writes key, certificate and the initial serial counter into a
// staged directory and renames it to the final name. The rename is the
// commit point; everything before it is invisible to the registry.
func (r *Registry) persist(name string, keyPEM, certPEM []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	staging, err := os.MkdirTemp(r.baseDir, "."+name+"-")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := os.WriteFile(filepath.Join(staging, caKeyFile), keyPEM, filePermPrivate); err != nil {
		return fmt.Errorf("failed to write CA key: %w", err)
	}
	if err := os.WriteFile(filepath.Join(staging, caCertFile), certPEM, filePermPublic); err != nil {
		return fmt.Errorf("failed to write CA certificate: %w", err)
	}
	if err := os.WriteFile(filepath.Join(staging, caSerialFile), []byte("0001"), filePermPublic); err != nil {
		return fmt.Errorf("failed to write serial: %w", err)
	}

	// Re-check under the write lock; a concurrent creator may have won.
	final := r.caDir(name)
	if _, err := os.Stat(final); err == nil {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}
	if err := os.Rename(staging, final); err != nil {
		return fmt.Errorf("failed to commit CA directory: %w", err)
	}

	return nil
}

// runBounded runs fn and gives up when ctx expires. A stalled
// cryptographic operation then surfaces as the context error instead of
// hanging the worker.
func runBounded(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
