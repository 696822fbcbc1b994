package auth

import (
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func codeAt(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)
	return code
}

func pinClock(t *testing.T, at time.Time) {
	t.Helper()
	nowFunc = func() time.Time { return at }
	t.Cleanup(func() { nowFunc = time.Now })
}

func TestGenerateTOTPSecret(t *testing.T) {
	s1, err := GenerateTOTPSecret("alice")
	require.NoError(t, err)
	require.NotEmpty(t, s1)

	s2, err := GenerateTOTPSecret("alice")
	require.NoError(t, err)
	require.NotEqual(t, s1, s2)
}

func TestValidateTOTP(t *testing.T) {
	secret, err := GenerateTOTPSecret("alice")
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 12, 0, 15, 0, time.UTC)
	pinClock(t, now)

	require.True(t, ValidateTOTP(secret, codeAt(t, secret, now)))
	require.False(t, ValidateTOTP(secret, "000000"))
	require.False(t, ValidateTOTP(secret, ""))
	require.False(t, ValidateTOTP("", codeAt(t, secret, now)))
}

func TestValidateTOTPSkew(t *testing.T) {
	secret, err := GenerateTOTPSecret("alice")
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 12, 0, 15, 0, time.UTC)
	pinClock(t, now)

	// One step either side is accepted, two steps is not.
	require.True(t, ValidateTOTP(secret, codeAt(t, secret, now.Add(-30*time.Second))))
	require.True(t, ValidateTOTP(secret, codeAt(t, secret, now.Add(30*time.Second))))
	require.False(t, ValidateTOTP(secret, codeAt(t, secret, now.Add(-90*time.Second))))
	require.False(t, ValidateTOTP(secret, codeAt(t, secret, now.Add(90*time.Second))))
}

func TestProvisioningURI(t *testing.T) {
	uri := ProvisioningURI("JBSWY3DPEHPK3PXP", "alice", "EasySwanVPN")
	require.Equal(t, "otpauth://totp/EasySwanVPN:alice?secret=JBSWY3DPEHPK3PXP&issuer=EasySwanVPN", uri)

	// Empty issuer falls back to the default.
	uri = ProvisioningURI("JBSWY3DPEHPK3PXP", "alice", "")
	require.Contains(t, uri, "issuer=EasySwanVPN")

	// Reserved characters are escaped.
	uri = ProvisioningURI("JBSWY3DPEHPK3PXP", "alice@example.com", "My Portal")
	require.Contains(t, uri, "My+Portal")
	require.Contains(t, uri, "alice%40example.com")
}
