package ca

import "errors"

var (
	// ErrAlreadyExists is returned when generating or importing a CA
	// under a name that is already taken.
	ErrAlreadyExists = errors.New("certificate authority already exists")

	// ErrNotFound is returned when a named CA does not exist.
	ErrNotFound = errors.New("certificate authority not found")

	// ErrNoActiveCA is returned when issuance is attempted with an
	// empty registry.
	ErrNoActiveCA = errors.New("no certificate authority available")

	// ErrInvalidName is returned for CA names that are not safe as
	// storage keys.
	ErrInvalidName = errors.New("invalid certificate authority name")

	// ErrInvalidMaterial is returned when imported key or certificate
	// bytes are not parseable PEM.
	ErrInvalidMaterial = errors.New("invalid key or certificate material")

	// ErrGenerationFailed wraps any failure while creating a new CA.
	ErrGenerationFailed = errors.New("certificate authority generation failed")

	// ErrSigningFailed wraps any failure while issuing a leaf
	// certificate. No partial artifacts are returned alongside it.
	ErrSigningFailed = errors.New("certificate signing failed")
)
