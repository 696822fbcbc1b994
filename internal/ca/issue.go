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
	"strings"
	"time"

	"github.com/andrew-kemp/EasySwanVPN/internal/models"
	"github.com/andrew-kemp/EasySwanVPN/pkg/certutil"
)

const leafKeyBits = 2048

// IssueRequest describes one leaf certificate to produce.
type IssueRequest struct {
	CommonName   string
	Type         models.CertType
	ValidityDays int
}

// Issue produces a leaf certificate signed by the named CA: a fresh
// 2048-bit RSA key, a CSR carrying the common name, and the signed
// certificate with the CA's next serial. Everything is built in memory;
// only the serial counter touches disk. Any failure returns
// ErrSigningFailed with no partial artifacts.
func (r *Registry) Issue(ctx context.Context, caName string, req IssueRequest) (*models.IssuedCertificate, error) {
	if req.CommonName == "" {
		return nil, fmt.Errorf("%w: common name is required", ErrSigningFailed)
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown certificate type %q", ErrSigningFailed, req.Type)
	}
	if req.ValidityDays <= 0 {
		req.ValidityDays = 365
	}

	authority, err := r.Get(caName)
	if err != nil {
		return nil, err
	}

	var issued *models.IssuedCertificate
	err = runBounded(ctx, func() error {
		var err error
		issued, err = r.issue(authority, req)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrSigningFailed) {
			return nil, err
		}
		// Context expiry and anything else unexpected.
		return nil, fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}

	return issued, nil
}

func (r *Registry) issue(authority *Authority, req IssueRequest) (*models.IssuedCertificate, error) {
	key, err := rsa.GenerateKey(rand.Reader, leafKeyBits)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate key: %v", ErrSigningFailed, err)
	}

	csrTemplate := &x509.CertificateRequest{
		Subject: pkix.Name{CommonName: req.CommonName},
	}
	csrDER, err := x509.CreateCertificateRequest(rand.Reader, csrTemplate, key)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create signing request: %v", ErrSigningFailed, err)
	}
	csr, err := x509.ParseCertificateRequest(csrDER)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse signing request: %v", ErrSigningFailed, err)
	}
	if err := csr.CheckSignature(); err != nil {
		return nil, fmt.Errorf("%w: invalid signing request signature: %v", ErrSigningFailed, err)
	}

	// The serial is incremented and persisted before signing, so a
	// failure after this point burns a serial instead of reusing one.
	serial, err := r.nextSerial(authority.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}

	pubKeyDER, err := x509.MarshalPKIXPublicKey(csr.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal public key: %v", ErrSigningFailed, err)
	}
	subjectKeyID := sha1.Sum(pubKeyDER)

	now := time.Now().UTC()
	validity := now.AddDate(0, 0, req.ValidityDays)
	// A leaf must never outlive its CA; chain verification would break
	// the moment the CA certificate expires.
	if validity.After(authority.Certificate.NotAfter) {
		validity = authority.Certificate.NotAfter
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      csr.Subject,
		NotBefore:    now.Add(-time.Hour),
		NotAfter:     validity,

		KeyUsage: x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,

		BasicConstraintsValid: true,
		IsCA:                  false,

		SubjectKeyId:   subjectKeyID[:],
		AuthorityKeyId: authority.Certificate.SubjectKeyId,
	}

	switch req.Type {
	case models.CertTypeServer:
		template.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}
		template.DNSNames = []string{req.CommonName}
	case models.CertTypeClient:
		template.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, authority.Certificate, csr.PublicKey, authority.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}

	return &models.IssuedCertificate{
		CommonName:     req.CommonName,
		Type:           req.Type,
		PrivateKeyPEM:  certutil.EncodePrivateKeyPEM(key),
		RequestPEM:     certutil.EncodeRequestPEM(csrDER),
		CertificatePEM: certutil.EncodeCertificatePEM(certDER),
		CAPEM:          authority.CertPEM,
		Serial:         serial,
		IssuingCA:      authority.Name,
	}, nil
}

// nextSerial reads the CA's serial file, returns the current value and
// writes back the incremented one. The per-CA mutex makes concurrent
// issuance hand out distinct, monotonically increasing serials.
func (r *Registry) nextSerial(name string) (*big.Int, error) {
	lock := r.serialLock(name)
	lock.Lock()
	defer lock.Unlock()

	path := filepath.Join(r.caDir(name), caSerialFile)

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read serial file: %w", err)
	}

	serial := new(big.Int)
	if _, ok := serial.SetString(strings.TrimSpace(string(content)), 16); !ok {
		return nil, fmt.Errorf("invalid serial file at %s", path)
	}

	next := new(big.Int).Add(serial, big.NewInt(1))
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%04X", next)), filePermPublic); err != nil {
		return nil, fmt.Errorf("failed to write serial file: %w", err)
	}

	return serial, nil
}
