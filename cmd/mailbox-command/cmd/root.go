package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/mailbox-sentry/internal/config"
	"github.com/oshokin/mailbox-sentry/internal/service/command"
	"github.com/oshokin/mailbox-sentry/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string

	// rootCmd groups the operator commands.
	rootCmd = &cobra.Command{
		Use:   "mailbox-command",
		Short: "Send commands to mailbox actuators and query the engine.",
		Long: `Publishes arm and disarm commands to a mailbox actuator through the broker,
using the same settings file as mailbox-engine.`,
		SilenceUsage: true,
	}

	armCmd = &cobra.Command{
		Use:   "arm <sensor-id> <threshold>",
		Short: "Arm the tamper alarm of a mailbox.",
		Long: `Publishes {"value": <threshold>} to <namespace>/<sensor-id>/arm_alarm.

The actuator triggers when the weight drops below the threshold.`,
		Args: cobra.ExactArgs(2), //nolint:mnd // sensor-id and threshold.
		RunE: func(_ *cobra.Command, args []string) error {
			threshold, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("parse threshold: %w", err)
			}

			return runCommand(&command.Options{
				Action:    command.ActionArm,
				SensorID:  args[0],
				Threshold: threshold,
			})
		},
	}

	disarmCmd = &cobra.Command{
		Use:   "disarm <sensor-id>",
		Short: "Disarm the tamper alarm of a mailbox.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runCommand(&command.Options{
				Action:   command.ActionDisarm,
				SensorID: args[0],
			})
		},
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Query the engine health endpoint.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			status, err := command.Status(ctx, configPath)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), status)

			return nil
		},
	}
)

// runCommand publishes a single command with graceful cancellation.
func runCommand(opts *command.Options) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	opts.ConfigPath = configPath

	return command.Run(ctx, opts)
}

// Execute runs the mailbox-command CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")

	rootCmd.AddCommand(armCmd, disarmCmd, statusCmd)
}
