package auth

import (
	"fmt"

	"github.com/andrew-kemp/EasySwanVPN/internal/models"
	"github.com/andrew-kemp/EasySwanVPN/internal/session"
	"github.com/andrew-kemp/EasySwanVPN/internal/store"
)

// Machine drives a session through the login sequence:
//
//	anonymous -> primary_ok        (password OK, principal enrolled)
//	anonymous -> enrolling_mfa     (password OK, no enrollment yet)
//	enrolling_mfa -> authenticated (first valid TOTP code; flag persisted)
//	primary_ok -> authenticated    (valid TOTP code)
//
// Every transition runs under the session lock and either completes
// fully or leaves the session untouched. Operations called from any
// other state fail with ErrInvalidState.
type Machine struct {
	verifier CredentialVerifier
	store    store.Store
	issuer   string
}

// NewMachine creates an auth state machine.
func NewMachine(verifier CredentialVerifier, principals store.Store, issuer string) *Machine {
	if issuer == "" {
		issuer = defaultIssuer
	}
	return &Machine{
		verifier: verifier,
		store:    principals,
		issuer:   issuer,
	}
}

// VerifyPrimary checks the password factor. On success the session
// moves to StateEnrolling (no principal record yet, or enrollment not
// completed) or StatePrimaryOK (already enrolled). A principal record
// with a fresh TOTP secret is created on the first ever successful
// login for a username.
func (m *Machine) VerifyPrimary(sess *session.Session, username, password string) (session.State, error) {
	sess.Lock()
	defer sess.Unlock()

	if sess.State != session.StateAnonymous {
		return sess.State, ErrInvalidState
	}

	if !m.verifier.Verify(username, password) {
		return sess.State, ErrInvalidCredentials
	}

	p, err := m.store.Get(username)
	if err != nil {
		return sess.State, err
	}

	if p == nil {
		secret, err := GenerateTOTPSecret(username)
		if err != nil {
			return sess.State, fmt.Errorf("failed to provision principal: %w", err)
		}
		p = &models.Principal{
			Username:   username,
			TOTPSecret: secret,
			MFAEnabled: false,
		}
		if err := m.store.Put(p); err != nil {
			return sess.State, err
		}
	}

	sess.Username = username
	if p.MFAEnabled {
		sess.State = session.StatePrimaryOK
	} else {
		sess.State = session.StateEnrolling
	}

	return sess.State, nil
}

// CompleteEnrollment verifies the first TOTP code against the secret
// issued at enrollment. On success the MFA flag is persisted before the
// session becomes authenticated, so a crash in between never yields an
// authenticated session without a durable enrollment.
func (m *Machine) CompleteEnrollment(sess *session.Session, otpCode string) error {
	sess.Lock()
	defer sess.Unlock()

	if sess.State != session.StateEnrolling {
		return ErrInvalidState
	}

	p, err := m.store.Get(sess.Username)
	if err != nil {
		return err
	}
	if p == nil || p.MFAEnabled {
		return ErrInvalidState
	}

	if !ValidateTOTP(p.TOTPSecret, otpCode) {
		return ErrInvalidOTP
	}

	p.MFAEnabled = true
	if err := m.store.Put(p); err != nil {
		return err
	}

	sess.State = session.StateAuthenticated
	sess.Authenticated = true

	return nil
}

// VerifySecondFactor verifies the TOTP code of an already-enrolled
// principal. Failure keeps the session in StatePrimaryOK.
func (m *Machine) VerifySecondFactor(sess *session.Session, otpCode string) error {
	sess.Lock()
	defer sess.Unlock()

	if sess.State != session.StatePrimaryOK {
		return ErrInvalidState
	}

	p, err := m.store.Get(sess.Username)
	if err != nil {
		return err
	}
	if p == nil || !p.MFAEnabled {
		return ErrInvalidState
	}

	if !ValidateTOTP(p.TOTPSecret, otpCode) {
		return ErrInvalidOTP
	}

	sess.State = session.StateAuthenticated
	sess.Authenticated = true

	return nil
}

// Logout unconditionally resets the session to anonymous.
func (m *Machine) Logout(sess *session.Session) {
	sess.Lock()
	defer sess.Unlock()
	sess.Reset()
}

// EnrollmentInfo returns the TOTP secret and provisioning URI for the
// enrollment page. Only valid while the session is enrolling.
func (m *Machine) EnrollmentInfo(sess *session.Session) (secret, uri string, err error) {
	sess.Lock()
	defer sess.Unlock()

	if sess.State != session.StateEnrolling {
		return "", "", ErrInvalidState
	}

	p, err := m.store.Get(sess.Username)
	if err != nil {
		return "", "", err
	}
	if p == nil {
		return "", "", ErrInvalidState
	}

	return p.TOTPSecret, ProvisioningURI(p.TOTPSecret, sess.Username, m.issuer), nil
}
