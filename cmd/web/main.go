package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/rcm-tools/rcm-atlas/pkg/client"
	"github.com/rcm-tools/rcm-atlas/pkg/server"
	"github.com/rcm-tools/rcm-atlas/pkg/services/aranalysis"
	"github.com/rcm-tools/rcm-atlas/pkg/services/config"
	"github.com/rcm-tools/rcm-atlas/pkg/session"
	"github.com/rcm-tools/rcm-atlas/pkg/store/duckdb"
	sessionstore "github.com/rcm-tools/rcm-atlas/pkg/store/duckdb/session"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	rcmrcPath   string
	profileName string
	dbPath      string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the local RCM dashboard server",
		RunE:  runServer,
	}

	home, _ := os.UserHomeDir()

	rootCmd.Flags().StringVarP(&rcmrcPath, "rcmrc", "c", filepath.Join(home, ".rcmrc"),
		"Path to the rcmrc profile file (default is $HOME/.rcmrc)")
	rootCmd.Flags().StringVar(&profileName, "profile", "default",
		"Profile name from the rcmrc file")
	rootCmd.Flags().StringVar(&dbPath, "db", "rcm-atlas.db",
		"Path to the local history database")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	registry, err := config.NewRegistry(rcmrcPath)
	if err != nil {
		return fmt.Errorf("failed to create config registry: %w", err)
	}

	profile, err := registry.GetProfile(ctx, profileName)
	if err != nil {
		return err
	}
	logger.Info().Msgf("Configuration found at `%s` successfully loaded.", rcmrcPath)
	logger.Info().Msgf("Using profile `%s` against `%s`", profile.Name, profile.Host)

	tokens, err := tokenSource(profile)
	if err != nil {
		return err
	}

	apiClient, err := client.New(client.Options{
		BaseURL: profile.Host,
		Tokens:  tokens,
		Timeout: 60 * time.Second,
		Callbacks: client.Callbacks{
			OnSessionExpired: func() {
				logger.Warn().Msg("backend session expired; log in again with rcmctl")
			},
			OnForbidden: func(message string) {
				logger.Warn().Str("detail", message).Msg("backend denied a request")
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	db, err := duckdb.NewDB(duckdb.Settings{
		DbPath: dbPath,
	})
	if err != nil {
		return fmt.Errorf("failed to create DuckDB instance: %w", err)
	}

	history, err := sessionstore.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create history store: %w", err)
	}

	host := os.Getenv("SERVER_HOST")
	port := os.Getenv("SERVER_PORT")

	if host == "" || port == "" {
		logger.Error().Msgf("Missing server configuration from .env file")
		os.Exit(1)
	}

	api := server.NewWebAPI(logger, server.Config{
		Addr:            net.JoinHostPort(host, port),
		ShutdownTimeout: 10 * time.Second,
		Dependencies: server.Dependencies{
			Analysis: aranalysis.NewAPI(apiClient),
			History:  history,
		},
	})

	return api.Start()
}

// tokenSource prefers a token pinned in the profile; otherwise it reads the
// session file maintained by rcmctl login.
func tokenSource(profile *config.Profile) (client.TokenSource, error) {
	if profile.Token != "" {
		return staticToken(profile.Token), nil
	}
	path, err := session.DefaultPath()
	if err != nil {
		return nil, err
	}
	return session.NewFileStore(path)
}

type staticToken string

func (t staticToken) AccessToken() string { return string(t) }
