package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"winprep/internal/checklist"
)

func newChecklistCommand(ctx *commandContext) *cobra.Command {
	checklistCmd := &cobra.Command{
		Use:   "checklist",
		Short: "Checklist utilities",
	}
	checklistCmd.AddCommand(newChecklistValidateCommand())
	checklistCmd.AddCommand(newChecklistFmtCommand())
	return checklistCmd
}

func newChecklistValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "validate FILE",
		Short:       "Check every setting in a checklist without applying it",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := checklist.Load(args[0])
			if err != nil {
				return err
			}
			entries := checklist.Compile(list)
			out := cmd.OutOrStdout()

			rows := make([][]string, 0, len(entries))
			invalid := 0
			for _, e := range entries {
				status, detail := "ok", e.Edit.String()
				if !e.Valid() {
					invalid++
					status, detail = "invalid", e.Err.Error()
				}
				rows = append(rows, []string{strconv.Itoa(e.Index + 1), e.Label(), string(e.Scope), status, detail})
			}
			if len(rows) > 0 {
				fmt.Fprintln(out, renderTable([]string{"#", "Label", "Scope", "Status", "Detail"}, rows, []columnAlignment{alignRight}))
			}
			fmt.Fprintf(out, "%d settings, %d invalid\n", len(entries), invalid)
			if invalid > 0 {
				return fmt.Errorf("checklist %s has %d invalid settings", args[0], invalid)
			}
			return nil
		},
	}
}

func newChecklistFmtCommand() *cobra.Command {
	var format string
	var write bool

	cmd := &cobra.Command{
		Use:         "fmt FILE",
		Short:       "Re-encode a checklist as TOML or YAML",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]
			list, err := checklist.Load(source)
			if err != nil {
				return err
			}
			target, err := checklist.FormatForPath(source)
			if err != nil {
				return err
			}
			if f := strings.ToLower(strings.TrimSpace(format)); f != "" {
				target = checklist.Format(f)
				if f == "yml" {
					target = checklist.YAML
				}
			}
			data, err := checklist.Encode(list, target)
			if err != nil {
				return err
			}
			if !write {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if current, _ := checklist.FormatForPath(source); current != target {
				return fmt.Errorf("--write cannot change %s to %s; redirect stdout instead", current, target)
			}
			return os.WriteFile(source, data, 0o644)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: toml or yaml (default: same as FILE)")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "Rewrite FILE in place")
	return cmd
}
