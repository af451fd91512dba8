package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/mailbox-sentry/internal/config"
	"github.com/oshokin/mailbox-sentry/internal/logger"
	"github.com/oshokin/mailbox-sentry/internal/service/engine"
	"github.com/oshokin/mailbox-sentry/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// allowMultiple disables the single-instance check.
	allowMultiple bool

	// rootCmd represents the base command for running the event engine.
	rootCmd = &cobra.Command{
		Use:   "mailbox-engine",
		Short: "Process smart mailbox telemetry and arm the tamper alarm.",
		Long: `Subscribes to weight and alarm telemetry of every mailbox sensor on the broker.

Each weight reading is stored and compared with the rolling average of the last minute.
When a package is detected, subscribers are notified by email and the tamper alarm
is armed with a threshold just below the new weight. Alarm readings are stored and
forwarded to subscribers as they arrive.

Secrets can be supplied through MAILBOX_* environment variables or a .env file.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			defer logger.Sync()

			return engine.Run(ctx, &engine.Options{
				ConfigPath:    configPath,
				AllowMultiple: allowMultiple,
			})
		},
	}
)

// Execute runs the mailbox-engine CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().BoolVar(&allowMultiple, "allow-multiple", false, "do not refuse to start when another engine is running")
}
