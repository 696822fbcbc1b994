package models

import "math/big"

// CertType selects the key-usage profile of an issued leaf certificate.
type CertType string

const (
	CertTypeServer CertType = "server"
	CertTypeClient CertType = "client"
)

// Valid reports whether t is a known certificate type.
func (t CertType) Valid() bool {
	return t == CertTypeServer || t == CertTypeClient
}

// IssuedCertificate is the transient result of one issuance call: the
// leaf key, the signing request, the signed certificate and the issuing
// CA certificate, all PEM encoded. Nothing here is persisted by the
// issuance engine.
type IssuedCertificate struct {
	CommonName     string
	Type           CertType
	PrivateKeyPEM  []byte
	RequestPEM     []byte
	CertificatePEM []byte
	CAPEM          []byte
	Serial         *big.Int
	IssuingCA      string
}
