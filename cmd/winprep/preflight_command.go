package main

import (
	"errors"

	"github.com/spf13/cobra"

	"winprep/internal/preflight"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check that this machine is ready for a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := preflight.Options{}
			if store, err := ctx.backend.openStore(); err == nil {
				opts.Store = store
			}
			results := preflight.RunAll(cmd.Context(), cfg, opts)

			printer := newStatusPrinter(cmd.OutOrStdout())
			for _, r := range results {
				if r.Passed {
					printer.line(r.Name, badgeOK, r.Detail)
				} else {
					printer.line(r.Name, badgeFail, r.Detail)
				}
			}
			if opts.Store == nil {
				printer.line("Profile list", badgeWarn, "settings store unavailable on this platform")
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return errors.New("preflight checks failed")
			}
			return nil
		},
	}
}
