package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"libdb.so/modeglow"
	"libdb.so/modeglow/internal/gpio"
	"libdb.so/modeglow/internal/logging"
	"libdb.so/modeglow/internal/sink"
)

var (
	config  = "/etc/modeglow/modeglow.toml"
	verbose = false
	dryRun  = false
)

func addGlobalFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&config, "config", "c", config, "configuration file")
	flags.BoolVarP(&verbose, "verbose", "v", verbose, "verbose output")
	flags.BoolVar(&dryRun, "dry-run", dryRun, "draw on the terminal, read presses from stdin and keep state in memory")
}

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "modeglow",
		Short: "Drive a single LED through steady, rainbow and blinking modes",
		Long: `modeglow drives a single addressable LED through a microcontroller.
A push button cycles the steady, rainbow and blinking modes; every start
flips the persisted on/off toggle.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runDaemon,
	}
	addGlobalFlags(root.PersistentFlags())

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the daemon (default)",
			Args:  cobra.NoArgs,
			RunE:  runDaemon,
		},
		&cobra.Command{
			Use:   "toggle",
			Short: "Flip the persisted toggle once, show its color and exit",
			Args:  cobra.NoArgs,
			RunE:  runToggle,
		},
		newStateCommand(),
		&cobra.Command{
			Use:   "config",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE:  runConfig,
		},
	)

	return root
}

// setup loads the configuration and installs the logger.
func setup(ctx context.Context) (*modeglow.Config, *slog.Logger, error) {
	cfg, found, err := modeglow.LoadConfig(ctx, config, nil)
	if err != nil {
		return nil, nil, err
	}

	if dryRun {
		cfg.Sink.Kind = sink.KindTerminal
		cfg.Button.Driver = gpio.DriverStdin
		cfg.State.Watch = false
	}

	if verbose {
		cfg.Log.Level = "debug"
	}

	logger := logging.New(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	if !found {
		logger.Info("config file not found, using defaults", "path", config)
	}

	return cfg, logger, nil
}

func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	cfg, logger, err := setup(ctx)
	if err != nil {
		return err
	}

	d, err := modeglow.NewDaemon(cfg, logger, daemonOptions()...)
	if err != nil {
		return errors.Wrap(err, "failed to create daemon")
	}

	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "daemon failed")
	}

	return nil
}

func runToggle(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	cfg, logger, err := setup(ctx)
	if err != nil {
		return err
	}

	d, err := modeglow.NewDaemon(cfg, logger, daemonOptions()...)
	if err != nil {
		return errors.Wrap(err, "failed to create daemon")
	}

	return d.Toggle(ctx)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup(cmd.Context())
	if err != nil {
		return err
	}

	b, err := cfg.Marshal()
	if err != nil {
		return errors.Wrap(err, "failed to encode config")
	}

	_, err = cmd.OutOrStdout().Write(b)
	return err
}
