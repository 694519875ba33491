package auth

import (
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// GenerateSecret creates a fresh authenticator-app enrollment for local
// (offline) setup flows. The backend normally issues the secret; this
// exists for air-gapped enrollment and tests.
func GenerateSecret(issuer, account string) (*otp.Key, error) {
	return totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
	})
}

// CheckCode validates a TOTP code against a secret at the current time
// step.
func CheckCode(code, secret string) bool {
	return totp.Validate(code, secret)
}
