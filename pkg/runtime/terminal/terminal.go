// Package terminal wires the rcmctl command-line interface: profile
// resolution, session storage and the service clients behind each command.
package terminal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rcm-tools/rcm-atlas/pkg/client"
	"github.com/rcm-tools/rcm-atlas/pkg/runtime/terminal/commands"
	"github.com/rcm-tools/rcm-atlas/pkg/runtime/terminal/export"
	"github.com/rcm-tools/rcm-atlas/pkg/services/aranalysis"
	"github.com/rcm-tools/rcm-atlas/pkg/services/auth"
	"github.com/rcm-tools/rcm-atlas/pkg/services/config"
	"github.com/rcm-tools/rcm-atlas/pkg/services/permissions"
	"github.com/rcm-tools/rcm-atlas/pkg/session"
	"github.com/rcm-tools/rcm-atlas/pkg/store/duckdb"
	sessionstore "github.com/rcm-tools/rcm-atlas/pkg/store/duckdb/session"
	"github.com/spf13/cobra"
)

// CLI represents the command-line interface
type CLI struct {
	rootCmd  *cobra.Command
	reporter *export.Reporter

	profile     string
	rcmrcPath   string
	profileFile string
	sessionPath string
	historyPath string
}

// Options contain configuration for the CLI
type Options struct {
	Output io.Writer
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	cli := &CLI{
		reporter: export.NewReporter(opts.Output),
	}
	cli.rootCmd = cli.newRootCmd(opts.Output)
	return cli
}

func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

func (cli *CLI) newRootCmd(output io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rcmctl",
		Short: "RCM platform administration tool",
	}

	home, _ := os.UserHomeDir()
	cmd.PersistentFlags().StringVar(&cli.profile, "profile", "default", "Profile name from the rcmrc file")
	cmd.PersistentFlags().StringVar(&cli.rcmrcPath, "rcmrc", filepath.Join(home, ".rcmrc"),
		"Path to the rcmrc profile file")
	cmd.PersistentFlags().StringVar(&cli.profileFile, "profile-file", "",
		"Standalone profile file (yaml/json/toml); bypasses the rcmrc registry")
	cmd.PersistentFlags().StringVar(&cli.sessionPath, "session-file", "",
		"Path to the session file (default is the user config dir)")
	cmd.PersistentFlags().StringVar(&cli.historyPath, "history-db", "",
		"Path to the watch-history database (default is the user config dir)")

	env := &commands.Env{
		Output:   output,
		Reporter: cli.reporter,
		Resolve:  cli.resolve,
	}

	cmd.AddCommand(commands.NewLoginCmd(env))
	cmd.AddCommand(commands.NewLogoutCmd(env))
	cmd.AddCommand(commands.NewMfaCmd(env))
	cmd.AddCommand(commands.NewEntityCmds(env)...)
	cmd.AddCommand(commands.NewRolesCmd(env))
	cmd.AddCommand(commands.NewArCmd(env))
	cmd.AddCommand(commands.NewServeCmd(env))

	return cmd
}

// resolve builds the dependency set for one command invocation from the
// persistent flags.
func (cli *CLI) resolve(cmd *cobra.Command) (*commands.Deps, error) {
	profile, timeout, err := cli.resolveProfile(cmd)
	if err != nil {
		return nil, err
	}

	sessionPath := cli.sessionPath
	if sessionPath == "" {
		sessionPath, err = session.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	repo, err := session.NewFileStore(sessionPath)
	if err != nil {
		return nil, err
	}

	tokens := client.TokenSource(repo)
	if profile.Token != "" {
		tokens = staticToken(profile.Token)
	}

	apiClient, err := client.New(client.Options{
		BaseURL: profile.Host,
		Tokens:  tokens,
		Timeout: timeout,
		Callbacks: client.Callbacks{
			OnSessionExpired: func() {
				_ = repo.Clear()
				fmt.Fprintln(os.Stderr, "Session expired. Run `rcmctl login` again.")
			},
			OnForbidden: func(message string) {
				fmt.Fprintf(os.Stderr, "Access denied: %s\n", message)
			},
		},
	})
	if err != nil {
		return nil, err
	}

	return &commands.Deps{
		Client:   apiClient,
		Session:  repo,
		Auth:     auth.NewService(apiClient, repo),
		Perms:    permissions.NewService(apiClient),
		Analysis: aranalysis.NewAPI(apiClient),
		History:  cli.openHistory,
	}, nil
}

// resolveProfile picks the backend profile: a standalone profile file wins
// when given, otherwise the named section of the rcmrc registry.
func (cli *CLI) resolveProfile(cmd *cobra.Command) (*config.Profile, time.Duration, error) {
	timeout := 60 * time.Second

	if cli.profileFile != "" {
		fp, err := config.LoadFileProfile(cli.profileFile)
		if err != nil {
			return nil, 0, err
		}
		if fp.Timeout > 0 {
			timeout = time.Duration(fp.Timeout) * time.Second
		}
		return &config.Profile{Name: cli.profileFile, Host: fp.Host, Token: fp.Token}, timeout, nil
	}

	registry, err := config.NewRegistry(cli.rcmrcPath)
	if err != nil {
		return nil, 0, fmt.Errorf("load rcmrc %q: %w", cli.rcmrcPath, err)
	}
	profile, err := registry.GetProfile(cmd.Context(), cli.profile)
	if err != nil {
		return nil, 0, err
	}
	return profile, timeout, nil
}

func (cli *CLI) openHistory() (sessionstore.Store, error) {
	path := cli.historyPath
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve history path: %w", err)
		}
		dir := filepath.Join(configDir, "rcmctl")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
		path = filepath.Join(dir, "history.db")
	}

	db, err := duckdb.NewDB(duckdb.Settings{DbPath: path})
	if err != nil {
		return nil, fmt.Errorf("open history db %q: %w", path, err)
	}
	return sessionstore.NewStore(db)
}

type staticToken string

func (t staticToken) AccessToken() string { return string(t) }
