package auth

import (
	"fmt"
	"net/url"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// nowFunc is swapped out in tests to pin the TOTP time step.
var nowFunc = time.Now

const (
	defaultIssuer = "EasySwanVPN"

	totpPeriod = 30
	totpSkew   = 1
)

// GenerateTOTPSecret generates a new TOTP secret for the given account
func GenerateTOTPSecret(username string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      defaultIssuer,
		AccountName: username,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate TOTP secret: %w", err)
	}

	return key.Secret(), nil
}

// ProvisioningURI builds the standard otpauth:// URI for enrolling the
// secret in an authenticator app. The portal only hands this string to
// the QR renderer; it never stores it.
func ProvisioningURI(secret, username, issuer string) string {
	if issuer == "" {
		issuer = defaultIssuer
	}

	return fmt.Sprintf("otpauth://totp/%s:%s?secret=%s&issuer=%s",
		url.QueryEscape(issuer),
		url.QueryEscape(username),
		secret,
		url.QueryEscape(issuer))
}

// ValidateTOTP validates a TOTP code against a secret.
// Allows for ±1 time window to account for clock skew.
func ValidateTOTP(secret, code string) bool {
	valid, err := totp.ValidateCustom(code, secret, nowFunc(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false
	}
	return valid
}
