// Package auth drives the login and MFA flows against the backend and owns
// the guard decision that routes users between login, MFA verification and
// authenticated use.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/rcm-tools/rcm-atlas/pkg/client"
	"github.com/rcm-tools/rcm-atlas/pkg/models/api"
	"github.com/rcm-tools/rcm-atlas/pkg/session"
	"github.com/rs/zerolog"
)

// ErrInvalidCode is returned when an MFA code fails the local TOTP check
// before any network call is made.
var ErrInvalidCode = errors.New("invalid MFA code")

// ErrMfaPending is returned by Authenticate when the backend demands a
// second factor; the session now carries the matching pending marker.
var ErrMfaPending = errors.New("mfa required")

type Service interface {
	Authenticate(ctx context.Context, username, password string) (*api.AuthResult, error)
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error

	EnrollEmail(ctx context.Context) error
	SendEmailOtp(ctx context.Context) error
	VerifyOtp(ctx context.Context, code string) error
	EnrollAuthenticator(ctx context.Context) (*api.MfaEnrollResult, error)
	VerifyAuthenticator(ctx context.Context, code, secret string) error
}

type service struct {
	api  *client.Client
	repo session.Repository
}

func NewService(api *client.Client, repo session.Repository) Service {
	return &service{api: api, repo: repo}
}

func (s *service) Authenticate(ctx context.Context, username, password string) (*api.AuthResult, error) {
	var result api.AuthResult
	err := s.api.PostJSON(ctx, "/api/Auth/authenticate", api.AuthRequest{
		Username: username,
		Password: password,
	}, &result)
	if err != nil {
		return nil, err
	}

	switch {
	case result.MfaSetupRequired:
		if err := s.repo.SetPendingMfaSetup(result.UserID); err != nil {
			return nil, fmt.Errorf("persist mfa setup marker: %w", err)
		}
		return &result, ErrMfaPending
	case result.MfaRequired:
		if err := s.repo.SetPendingMfaVerify(result.UserID); err != nil {
			return nil, fmt.Errorf("persist mfa verify marker: %w", err)
		}
		return &result, ErrMfaPending
	default:
		if err := s.storeTokens(result); err != nil {
			return nil, err
		}
		return &result, nil
	}
}

func (s *service) Refresh(ctx context.Context) error {
	refresh := s.repo.RefreshToken()
	if refresh == "" {
		return fmt.Errorf("no refresh token stored")
	}

	var result api.AuthResult
	err := s.api.PostJSON(ctx, "/api/Auth/refresh", api.RefreshRequest{RefreshToken: refresh}, &result)
	if err != nil {
		return err
	}
	return s.storeTokens(result)
}

func (s *service) Logout(ctx context.Context) error {
	zerolog.Ctx(ctx).Info().Msg("clearing local session")
	return s.repo.Clear()
}

func (s *service) EnrollEmail(ctx context.Context) error {
	return s.api.PostJSON(ctx, "/api/Auth/mfa/enroll-email", s.pendingUser(), nil)
}

func (s *service) SendEmailOtp(ctx context.Context) error {
	return s.api.PostJSON(ctx, "/api/Auth/mfa/send-email-otp", s.pendingUser(), nil)
}

func (s *service) VerifyOtp(ctx context.Context, code string) error {
	userID, ok := s.repo.PendingMfaVerify()
	if !ok {
		userID, _ = s.repo.PendingMfaSetup()
	}

	var result api.AuthResult
	err := s.api.PostJSON(ctx, "/api/Auth/mfa/verify", api.MfaVerifyRequest{
		UserID: userID,
		Code:   code,
	}, &result)
	if err != nil {
		return err
	}
	return s.storeTokens(result)
}

func (s *service) EnrollAuthenticator(ctx context.Context) (*api.MfaEnrollResult, error) {
	var result api.MfaEnrollResult
	err := s.api.PostJSON(ctx, "/api/Auth/mfa/enroll-authenticator", s.pendingUser(), &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// VerifyAuthenticator checks the code against the enrolled secret locally
// before submitting, so a mistyped code never burns a round trip.
func (s *service) VerifyAuthenticator(ctx context.Context, code, secret string) error {
	if !CheckCode(code, secret) {
		return ErrInvalidCode
	}
	return s.VerifyOtp(ctx, code)
}

func (s *service) pendingUser() api.MfaVerifyRequest {
	userID, ok := s.repo.PendingMfaVerify()
	if !ok {
		userID, _ = s.repo.PendingMfaSetup()
	}
	return api.MfaVerifyRequest{UserID: userID}
}

func (s *service) storeTokens(result api.AuthResult) error {
	if result.AccessToken == "" {
		return fmt.Errorf("backend returned no access token")
	}
	if err := s.repo.SetTokens(result.AccessToken, result.RefreshToken); err != nil {
		return fmt.Errorf("persist tokens: %w", err)
	}
	if result.RoleID != "" {
		if err := s.repo.SetRoleID(result.RoleID); err != nil {
			return fmt.Errorf("persist role: %w", err)
		}
	}
	if err := s.repo.ClearPendingMfa(); err != nil {
		return fmt.Errorf("clear mfa markers: %w", err)
	}
	return nil
}
