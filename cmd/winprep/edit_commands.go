package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"winprep/internal/checklist"
	"winprep/internal/runner"
	"winprep/internal/settings"
)

type editFlags struct {
	valueType    string
	machine      bool
	root         string
	defaultValue bool
}

func (f *editFlags) bind(cmd *cobra.Command, withType bool) {
	if withType {
		cmd.Flags().StringVarP(&f.valueType, "type", "t", "string", "Value type: dword, string, expand_string, binary, multi_string")
	}
	cmd.Flags().BoolVar(&f.machine, "machine", false, "Write once under a machine root instead of every user profile")
	cmd.Flags().StringVar(&f.root, "root", "", "Machine root for --machine (default HKLM)")
	cmd.Flags().BoolVar(&f.defaultValue, "default-value", false, "Target the key's unnamed default value (omit NAME)")
}

func (f *editFlags) setting(label, path, name string, action settings.Action) checklist.Setting {
	s := checklist.Setting{
		Label:        label,
		Path:         path,
		Name:         name,
		DefaultValue: f.defaultValue,
		Action:       string(action),
	}
	if f.machine {
		s.Scope = string(checklist.Machine)
		s.Root = f.root
	} else if strings.TrimSpace(f.root) != "" {
		s.Root = f.root
	}
	return s
}

func newSetCommand(ctx *commandContext) *cobra.Command {
	var flags editFlags
	cmd := &cobra.Command{
		Use:   "set PATH [NAME] VALUE...",
		Short: "Write one value into every user profile (or the machine with --machine)",
		Example: `  winprep set 'Software\Policies\Example' Enabled 1 --type dword
  winprep set 'Control Panel\Desktop' --default-value "" --type string
  winprep set 'Software\Example' Paths C:\a C:\b --type multi_string`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, rest := args[0], args[1:]
			name := ""
			if !flags.defaultValue {
				name, rest = rest[0], rest[1:]
			}
			if len(rest) == 0 {
				return errors.New("VALUE is required")
			}
			var value any = rest[0]
			if len(rest) > 1 {
				if !strings.EqualFold(flags.valueType, "multi_string") {
					return fmt.Errorf("%d values given; only multi_string accepts more than one", len(rest))
				}
				items := make([]any, len(rest))
				for i, v := range rest {
					items[i] = v
				}
				value = items
			} else if strings.EqualFold(flags.valueType, "multi_string") {
				value = []any{rest[0]}
			}

			s := flags.setting("set "+path, path, name, settings.Update)
			s.Type = flags.valueType
			s.Value = value
			return runSingleEdit(cmd, ctx, s)
		},
	}
	flags.bind(cmd, true)
	return cmd
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	var flags editFlags
	cmd := &cobra.Command{
		Use:   "remove PATH [NAME]",
		Short: "Delete one value from every user profile (or the machine with --machine)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 2 {
				name = args[1]
			} else if !flags.defaultValue {
				return errors.New("NAME is required unless --default-value is set")
			}
			s := flags.setting("remove "+args[0], args[0], name, settings.Remove)
			return runSingleEdit(cmd, ctx, s)
		},
	}
	flags.bind(cmd, false)
	return cmd
}

// runSingleEdit validates one setting exactly as a checklist row and runs it
// as a one-step checklist.
func runSingleEdit(cmd *cobra.Command, ctx *commandContext, s checklist.Setting) error {
	entries := checklist.Compile([]checklist.Setting{s})
	if err := entries[0].Err; err != nil {
		return err
	}

	sess, err := ctx.openSession(cmd, sessionOptions{mutates: true, ledger: true})
	if err != nil {
		return err
	}
	defer sess.Close()

	applier := runner.Checklist{Propagator: sess.propagator, Machine: sess.accessor}
	result := runner.Run(cmd.Context(), sess.rc, applier.Step(entries[0]))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %s\n", entries[0].Edit, result.Status)
	if result.Err != nil {
		fmt.Fprintf(out, "  %v\n", result.Err)
	}
	if sess.logPath != "" {
		fmt.Fprintf(out, "Log: %s\n", sess.logPath)
	}
	return nil
}
