package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"winprep/internal/runlog"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var level string
	var list bool

	cmd := &cobra.Command{
		Use:   "logs [RUN_ID]",
		Short: "Show the log of the latest (or a given) run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if list {
				files, err := runlog.List(cfg.Paths.LogDir)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(files))
				for _, f := range files {
					rows = append(rows, []string{f.RunID, f.Modified.Local().Format(time.DateTime), humanize.IBytes(uint64(f.Size)), f.Path})
				}
				fmt.Fprintln(out, renderTable([]string{"Run", "Modified", "Size", "Path"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
				return nil
			}

			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			file, err := runlog.Find(cfg.Paths.LogDir, runID)
			if err != nil {
				return err
			}
			content, err := runlog.Tail(file.Path, lines, runlog.Filter{MinLevel: level})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "== %s ==\n", file.Path)
			for _, line := range content {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 100, "Number of lines to show (0 for all)")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level to show: debug, info, warn, error")
	cmd.Flags().BoolVar(&list, "list", false, "List run logs instead of printing one")
	return cmd
}
