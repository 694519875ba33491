// Package session owns the locally persisted authentication state: the
// token pair, the MFA pending markers and the post-verification redirect
// target. Everything goes through Repository so the storage mechanism is
// swappable without touching call sites.
package session

// Repository is the single gateway to persisted session state.
type Repository interface {
	AccessToken() string
	RefreshToken() string
	SetTokens(access, refresh string) error

	// RoleID is the authenticated user's role, kept so permission lookups
	// know what to fetch.
	RoleID() string
	SetRoleID(roleID string) error

	// PendingMfaVerify marks a user who authenticated with a password but
	// still owes an MFA code. PendingMfaSetup marks a user who must enroll
	// first. The two are mutually exclusive.
	PendingMfaVerify() (userID string, ok bool)
	SetPendingMfaVerify(userID string) error
	PendingMfaSetup() (userID string, ok bool)
	SetPendingMfaSetup(userID string) error
	ClearPendingMfa() error

	// RedirectTarget remembers where the user was headed before the MFA
	// detour.
	RedirectTarget() string
	SetRedirectTarget(target string) error

	// Clear wipes all session state.
	Clear() error
}
