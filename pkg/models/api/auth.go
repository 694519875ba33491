package api

type AuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResult is returned by /api/Auth/authenticate. When MFA is involved the
// token pair is empty and one of the pending flags is set instead.
type AuthResult struct {
	AccessToken      string `json:"accessToken"`
	RefreshToken     string `json:"refreshToken"`
	MfaRequired      bool   `json:"mfaRequired"`
	MfaSetupRequired bool   `json:"mfaSetupRequired"`
	UserID           string `json:"userId"`
	RoleID           string `json:"roleId"`
}

// MfaEnrollResult carries the authenticator-app secret issued during setup.
type MfaEnrollResult struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioningUri"`
}

type MfaVerifyRequest struct {
	UserID string `json:"userId"`
	Code   string `json:"code"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}
