package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"libdb.so/modeglow"
	"libdb.so/modeglow/internal/store"
)

func newStateCommand() *cobra.Command {
	state := &cobra.Command{
		Use:   "state",
		Short: "Print the persisted toggle index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd.Context())
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), stateFile(cfg, logger).Load())
			return err
		},
	}

	state.AddCommand(&cobra.Command{
		Use:   "set <index>",
		Short: "Persist a toggle index; a running daemon picks it up",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.ParseInt(args[0], 10, 32)
			if err != nil {
				return errors.Wrapf(err, "invalid index %q", args[0])
			}

			cfg, logger, err := setup(cmd.Context())
			if err != nil {
				return err
			}

			return stateFile(cfg, logger).Save(int32(v))
		},
	})

	return state
}

func stateFile(cfg *modeglow.Config, logger *slog.Logger) *store.File {
	return store.NewFile(cfg.State.Path, logger,
		store.WithNamespace(cfg.State.Namespace),
		store.WithKey(cfg.State.Key))
}
