package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"winprep/internal/logging"
)

func newPrincipalsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "principals",
		Short: "List the profiles an edit would be propagated to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.openSession(cmd, sessionOptions{})
			if err != nil {
				return err
			}
			defer s.Close()

			list, listErr := s.principals.List(cmd.Context())
			if listErr != nil {
				s.logger.Warn("profile enumeration incomplete", logging.Error(listErr))
			}

			rows := make([][]string, 0, len(list))
			for i, p := range list {
				mounted, err := s.mounter.IsMounted(cmd.Context(), p.MountName)
				state := yesNo(mounted)
				if err != nil {
					state = "unknown"
				}
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					p.ID,
					s.root.Join(p.MountName).String(),
					p.HivePath,
					state,
					yesNo(p.Synthetic),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", "Principal", "Mount", "Hive file", "Loaded", "Template"},
				rows,
				[]columnAlignment{alignRight},
			))
			return nil
		},
	}
}
