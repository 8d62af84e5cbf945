package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRecoverCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Unload hives left mounted by an interrupted run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.openSession(cmd, sessionOptions{mutates: true, ledger: true})
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := s.hives.Recover(s.rc.Context(cmd.Context()))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Unloaded %d, already gone %d, still stuck %d\n", result.Recovered, result.Abandoned, result.Failed)
			if result.Failed > 0 {
				fmt.Fprintln(out, "Close programs holding the profile open (or sign the user out) and run recover again.")
			}
			return nil
		},
	}
}
