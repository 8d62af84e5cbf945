package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newMountsCommand(ctx *commandContext) *cobra.Command {
	var staleOnly bool
	var limit int

	cmd := &cobra.Command{
		Use:   "mounts",
		Short: "Show hives recorded in the mount ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.openSession(cmd, sessionOptions{ledger: true})
			if err != nil {
				return err
			}
			defer s.Close()

			entries, err := s.ledger.List(cmd.Context(), staleOnly, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				if staleOnly {
					fmt.Fprintln(out, "No stale mounts")
				} else {
					fmt.Fprintln(out, "Mount ledger is empty")
				}
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				released := ""
				if !e.ReleasedAt.IsZero() {
					released = e.ReleasedAt.Local().Format(time.DateTime)
				}
				rows = append(rows, []string{
					strconv.FormatInt(e.ID, 10),
					e.RunID,
					e.PrincipalID,
					e.MountName,
					string(e.Status),
					e.MountedAt.Local().Format(time.DateTime),
					released,
					e.Detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Run", "Principal", "Mount", "Status", "Mounted", "Released", "Detail"},
				rows,
				[]columnAlignment{alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&staleOnly, "stale", false, "Only show hives that were never released")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum rows to show (0 for all)")
	return cmd
}
