package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"winprep/internal/checklist"
	"winprep/internal/config"
	"winprep/internal/hive"
	"winprep/internal/logging"
	"winprep/internal/preflight"
	"winprep/internal/runner"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var checklistFlag string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Apply every setting in a checklist",
		Long: `Apply every setting in a checklist, one step at a time.

Per-user settings are written into every profile's hive and the default
profile template. Failures are logged and the run moves on to the next
setting; the command only fails when the checklist cannot be read or the
run cannot start.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := resolveChecklistPath(checklistFlag, cfg)
			if err != nil {
				return err
			}
			list, err := checklist.Load(path)
			if err != nil {
				return err
			}

			s, err := ctx.openSession(cmd, sessionOptions{mutates: true, ledger: true})
			if err != nil {
				return err
			}
			defer s.Close()

			runCtx := s.rc.Context(cmd.Context())
			logger := logging.WithContext(runCtx, s.logger)
			logger.Info("run started",
				logging.String("checklist", path),
				logging.Int("settings", len(list)),
				logging.String("log_file", s.logPath),
			)

			for _, result := range preflight.Failed(preflight.RunAll(runCtx, cfg, preflight.Options{Store: s.store})) {
				logger.Warn("preflight check failed", logging.String("check", result.Name), logging.String("detail", result.Detail))
			}

			recovered, err := s.hives.Recover(runCtx)
			if err != nil {
				logger.Error("stale mount recovery failed", logging.Error(err))
			} else if recovered != (hive.RecoveryResult{}) {
				logger.Warn("recovered hives left mounted by an earlier run",
					logging.Int("recovered", recovered.Recovered),
					logging.Int("abandoned", recovered.Abandoned),
					logging.Int("failed", recovered.Failed),
				)
			}

			applier := runner.Checklist{Propagator: s.propagator, Machine: s.accessor}
			summary := applier.Execute(runCtx, s.rc, checklist.Compile(list))

			out := cmd.OutOrStdout()
			printer := newStatusPrinter(out)
			for _, result := range summary.Results {
				printer.step(result)
			}
			fmt.Fprintf(out, "Run %s: %d ok, %d partial, %d failed, %d skipped\n",
				s.rc.RunID, summary.Succeeded(), summary.Partial(), summary.Failed(), summary.Skipped())
			if s.logPath != "" {
				fmt.Fprintf(out, "Log: %s\n", s.logPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&checklistFlag, "checklist", "", "Checklist file (.toml, .yaml); defaults to paths.checklist")
	return cmd
}

func resolveChecklistPath(flag string, cfg *config.Config) (string, error) {
	path := strings.TrimSpace(flag)
	if path == "" {
		path = strings.TrimSpace(cfg.Paths.Checklist)
	}
	if path == "" {
		return "", fmt.Errorf("no checklist given; pass --checklist or set paths.checklist (or WINPREP_CHECKLIST)")
	}
	return config.ExpandPath(path)
}
