package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rcm-tools/rcm-atlas/pkg/client"
	"github.com/rcm-tools/rcm-atlas/pkg/models/domain"
	"github.com/rcm-tools/rcm-atlas/pkg/runtime/terminal/export"
	"github.com/rcm-tools/rcm-atlas/pkg/services/aranalysis"
	"github.com/rcm-tools/rcm-atlas/pkg/services/auth"
	"github.com/rcm-tools/rcm-atlas/pkg/services/permissions"
	"github.com/rcm-tools/rcm-atlas/pkg/session"
	sessionstore "github.com/rcm-tools/rcm-atlas/pkg/store/duckdb/session"
	"github.com/spf13/cobra"
)

// Deps is the wired dependency set for one command invocation.
type Deps struct {
	Client   *client.Client
	Session  session.Repository
	Auth     auth.Service
	Perms    permissions.Service
	Analysis aranalysis.API

	// History opens the local watch-history database on first use; commands
	// that never touch history never pay for the open.
	History func() (sessionstore.Store, error)
}

// Env is shared command plumbing: output, the report renderer and the lazy
// dependency resolver (profiles are only read when a command actually runs).
type Env struct {
	Output   io.Writer
	Reporter *export.Reporter
	Resolve  func(cmd *cobra.Command) (*Deps, error)
}

// requireAuth routes the user to the right flow when the session is not
// usable, mirroring the three mutually exclusive guard rules. The command
// the user was headed for is remembered so the auth flow can point back
// once it succeeds.
func requireAuth(cmd *cobra.Command, deps *Deps) error {
	switch auth.Evaluate(deps.Session) {
	case auth.NeedsMfaVerify:
		_ = deps.Session.SetRedirectTarget(cmd.CommandPath())
		return fmt.Errorf("MFA verification pending: run `rcmctl mfa verify`")
	case auth.NeedsMfaSetup:
		_ = deps.Session.SetRedirectTarget(cmd.CommandPath())
		return fmt.Errorf("MFA setup pending: run `rcmctl mfa setup`")
	case auth.NeedsLogin:
		_ = deps.Session.SetRedirectTarget(cmd.CommandPath())
		return fmt.Errorf("not logged in: run `rcmctl login`")
	}

	// The stored token carries its own exp claim; when it has lapsed, a
	// silent refresh beats sending a request that will bounce with a 401.
	if session.TokenExpired(deps.Session.AccessToken(), time.Now()) {
		if err := deps.Auth.Refresh(cmd.Context()); err != nil {
			return fmt.Errorf("access token expired and refresh failed (%v): run `rcmctl login`", err)
		}
	}
	return nil
}

// requirePermission checks one capability on one module. Denies when the
// permission list cannot be fetched: absence of proof is denial.
func requirePermission(
	ctx context.Context,
	deps *Deps,
	module string,
	check func(domain.ModulePermission) bool,
) error {
	var set *permissions.Set
	if roleID := deps.Session.RoleID(); roleID != "" {
		loaded, err := deps.Perms.Load(ctx, roleID)
		if err == nil {
			set = loaded
		}
	}
	if !check(set.For(module)) {
		return fmt.Errorf("permission denied for module %q", module)
	}
	return nil
}
