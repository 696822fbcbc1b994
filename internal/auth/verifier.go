package auth

// CredentialVerifier checks the primary factor (username + password)
// against the host's account database. Implementations must not reveal,
// through their own behavior, whether the username or the password was
// the part that failed.
type CredentialVerifier interface {
	Verify(username, password string) bool
}

// LocalVerifier verifies credentials against the single operator account
// from the portal configuration. bcrypt comparison runs even for unknown
// usernames so both failure paths cost the same.
type LocalVerifier struct {
	Username     string
	PasswordHash string
}

// Verify implements CredentialVerifier
func (v *LocalVerifier) Verify(username, password string) bool {
	ok := VerifyPassword(password, v.PasswordHash)
	return username == v.Username && ok
}
