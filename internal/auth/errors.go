package auth

import "errors"

var (
	// ErrInvalidCredentials is returned when the username or password
	// is wrong. Callers get the same error for both cases.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrInvalidState is returned when an operation is attempted from
	// the wrong session state. The session is left unchanged.
	ErrInvalidState = errors.New("operation not valid in current state")

	// ErrInvalidOTP is returned when a one-time code does not match any
	// accepted time step.
	ErrInvalidOTP = errors.New("invalid one-time code")
)
