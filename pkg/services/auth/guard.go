package auth

import "github.com/rcm-tools/rcm-atlas/pkg/session"

// Decision is where the guard routes the user next. The three redirect
// rules are mutually exclusive and evaluated in a fixed order: a pending
// MFA verification wins over pending setup, which wins over the plain
// missing-token check.
type Decision int

const (
	Authenticated Decision = iota
	NeedsLogin
	NeedsMfaVerify
	NeedsMfaSetup
)

func (d Decision) String() string {
	switch d {
	case Authenticated:
		return "authenticated"
	case NeedsLogin:
		return "login"
	case NeedsMfaVerify:
		return "mfa-verify"
	case NeedsMfaSetup:
		return "mfa-setup"
	default:
		return "unknown"
	}
}

// Evaluate inspects stored session state only; it performs no I/O and no
// token refresh. Presence of a marker or token is the whole signal.
func Evaluate(repo session.Repository) Decision {
	if _, ok := repo.PendingMfaVerify(); ok {
		return NeedsMfaVerify
	}
	if _, ok := repo.PendingMfaSetup(); ok {
		return NeedsMfaSetup
	}
	if repo.AccessToken() == "" {
		return NeedsLogin
	}
	return Authenticated
}
