package commands

import (
	"os"
	"time"

	"github.com/rcm-tools/rcm-atlas/pkg/server"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewServeCmd runs the local read-only dashboard server inside the CLI
// process, sharing the profile and history wiring of every other command.
func NewServeCmd(env *Env) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local dashboard API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := env.Resolve(cmd)
			if err != nil {
				return err
			}
			history, err := deps.History()
			if err != nil {
				return err
			}

			logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
			api := server.NewWebAPI(logger, server.Config{
				Addr:            addr,
				ShutdownTimeout: 10 * time.Second,
				Dependencies: server.Dependencies{
					Analysis: deps.Analysis,
					History:  history,
				},
			})
			return api.Start()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8645", "Listen address")
	return cmd
}
