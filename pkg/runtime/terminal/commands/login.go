package commands

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rcm-tools/rcm-atlas/pkg/services/auth"
	"github.com/spf13/cobra"
)

type loginCmd struct {
	env      *Env
	username string
	password string
}

func NewLoginCmd(env *Env) *cobra.Command {
	lc := &loginCmd{env: env}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate against the RCM backend",
		RunE:  lc.run,
	}

	cmd.Flags().StringVarP(&lc.username, "username", "u", "", "Account username")
	cmd.Flags().StringVarP(&lc.password, "password", "p", "", "Account password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

func (lc *loginCmd) run(cmd *cobra.Command, _ []string) error {
	deps, err := lc.env.Resolve(cmd)
	if err != nil {
		return err
	}

	password := lc.password
	if password == "" {
		fmt.Fprint(lc.env.Output, "Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimSpace(line)
	}

	_, err = deps.Auth.Authenticate(cmd.Context(), lc.username, password)
	if errors.Is(err, auth.ErrMfaPending) {
		switch auth.Evaluate(deps.Session) {
		case auth.NeedsMfaSetup:
			fmt.Fprintln(lc.env.Output, "MFA enrollment required. Run `rcmctl mfa setup`.")
		default:
			fmt.Fprintln(lc.env.Output, "MFA code required. Run `rcmctl mfa verify --code <code>`.")
		}
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(lc.env.Output, "Logged in.")
	printResume(lc.env, deps)
	return nil
}

// printResume points the user back at the command that sent them into the
// auth flow, then forgets it.
func printResume(env *Env, deps *Deps) {
	target := deps.Session.RedirectTarget()
	if target == "" {
		return
	}
	fmt.Fprintf(env.Output, "Run `%s` to pick up where you left off.\n", target)
	_ = deps.Session.SetRedirectTarget("")
}

func NewLogoutCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the local session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := env.Resolve(cmd)
			if err != nil {
				return err
			}
			if err := deps.Auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(env.Output, "Logged out.")
			return nil
		},
	}
}

func NewMfaCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mfa",
		Short: "Multi-factor authentication flows",
	}

	var code string
	verify := &cobra.Command{
		Use:   "verify",
		Short: "Submit an MFA code to finish signing in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := env.Resolve(cmd)
			if err != nil {
				return err
			}
			if err := deps.Auth.VerifyOtp(cmd.Context(), code); err != nil {
				return err
			}
			fmt.Fprintln(env.Output, "MFA verified. Logged in.")
			printResume(env, deps)
			return nil
		},
	}
	verify.Flags().StringVar(&code, "code", "", "One-time code")
	_ = verify.MarkFlagRequired("code")

	var setupCode string
	setup := &cobra.Command{
		Use:   "setup",
		Short: "Enroll an authenticator app",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := env.Resolve(cmd)
			if err != nil {
				return err
			}
			enrollment, err := deps.Auth.EnrollAuthenticator(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(env.Output, "Secret: %s\n", enrollment.Secret)
			if enrollment.ProvisioningURI != "" {
				fmt.Fprintf(env.Output, "Provisioning URI: %s\n", enrollment.ProvisioningURI)
			}
			if setupCode == "" {
				fmt.Fprintln(env.Output, "Add the secret to your authenticator, then run `rcmctl mfa setup --code <code>`.")
				return nil
			}
			if err := deps.Auth.VerifyAuthenticator(cmd.Context(), setupCode, enrollment.Secret); err != nil {
				return err
			}
			fmt.Fprintln(env.Output, "Authenticator enrolled. Logged in.")
			printResume(env, deps)
			return nil
		},
	}
	setup.Flags().StringVar(&setupCode, "code", "", "Code from the authenticator app")

	var enroll bool
	email := &cobra.Command{
		Use:   "email",
		Short: "Send a one-time code to the enrolled email",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := env.Resolve(cmd)
			if err != nil {
				return err
			}
			if enroll {
				if err := deps.Auth.EnrollEmail(cmd.Context()); err != nil {
					return err
				}
			}
			if err := deps.Auth.SendEmailOtp(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(env.Output, "Code sent. Run `rcmctl mfa verify --code <code>`.")
			return nil
		},
	}
	email.Flags().BoolVar(&enroll, "enroll", false, "Enroll email MFA before sending the code")

	cmd.AddCommand(verify, setup, email)
	return cmd
}
