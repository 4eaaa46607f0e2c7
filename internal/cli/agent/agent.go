// Package agent provides the agent's CLI commands.
package agent

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/driftlabs/driftscope"
	"github.com/driftlabs/driftscope/internal/config"
	"github.com/driftlabs/driftscope/internal/logging"
	"github.com/driftlabs/driftscope/internal/runtimeinfo"
)

// RegisterCommands registers agent subcommands on the root command.
func RegisterCommands(root *cobra.Command) {
	root.AddCommand(NewStartCmd())
}

// NewStartCmd creates the start command: profile this agent process and
// ship profiles until interrupted.
func NewStartCmd() *cobra.Command {
	var (
		configPath string
		serverAddr string
		appName    string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start continuous profiling and ship profiles to the ingestion endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if serverAddr != "" {
				cfg.Server.Address = serverAddr
			}
			if appName != "" {
				cfg.Application.Name = appName
			}

			logger := logging.NewWithComponent(logging.Config{
				Level:  cfg.Logging.Level,
				Pretty: cfg.Logging.Pretty,
			}, "agent")

			session, err := driftscope.Start(driftscope.Config{
				ServerAddress:   cfg.Server.Address,
				ApplicationName: cfg.Application.Name,
				SourceMapPath:   cfg.Application.SourceMapPath,
				AutoStart:       true,
				Tags:            runtimeinfo.Merge(cfg.Application.Tags),
				Logger:          &logger,
			})
			if err != nil {
				return err
			}

			logger.Info().Str("server", cfg.Server.Address).Msg("Profiling started")

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			sig := <-sigCh

			// No flush on exit: whatever is in flight past the final CPU
			// round is discarded.
			logger.Info().Str("signal", sig.String()).Msg("Profiler exiting, undelivered profiles are discarded")
			session.Stop()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to agent config file")
	cmd.Flags().StringVar(&serverAddr, "server", "", "Ingestion endpoint address (overrides config)")
	cmd.Flags().StringVar(&appName, "name", "", "Application name (overrides config)")

	return cmd
}
