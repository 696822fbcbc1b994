package models

import "time"

// Principal represents a system account allowed to log in to the portal.
// The TOTP secret is generated once, on the first successful password
// login, and never changes afterwards. MFAEnabled flips to true when the
// principal completes enrollment and never reverts.
type Principal struct {
	Username   string    `json:"-"`
	TOTPSecret string    `json:"totp_secret"`
	MFAEnabled bool      `json:"mfa_enabled"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}
