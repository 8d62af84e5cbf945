package runner

import (
	"context"

	"winprep/internal/checklist"
	"winprep/internal/logging"
	"winprep/internal/propagate"
	"winprep/internal/regstore"
	"winprep/internal/settings"
)

// Propagator fans an edit out to every principal.
type Propagator interface {
	ApplyToAllPrincipals(ctx context.Context, edit settings.Edit) propagate.Report
}

// MachineApplier writes an edit under a fixed machine key.
type MachineApplier interface {
	Apply(ctx context.Context, base regstore.Key, edit settings.Edit) error
}

// Checklist turns compiled checklist entries into steps.
type Checklist struct {
	Propagator Propagator
	Machine    MachineApplier
}

// Summary totals the results of a checklist run.
type Summary struct {
	Results []Result
}

func (s Summary) count(status Status) int {
	n := 0
	for _, r := range s.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

func (s Summary) Succeeded() int { return s.count(StatusOK) }
func (s Summary) Partial() int   { return s.count(StatusPartial) }
func (s Summary) Failed() int    { return s.count(StatusFailed) }
func (s Summary) Skipped() int   { return s.count(StatusSkipped) }

// Step builds the step for one valid entry.
func (c Checklist) Step(entry checklist.Entry) Step {
	edit := entry.Edit
	name := entry.Label()
	if entry.Scope == checklist.Machine {
		base := entry.Base
		return Step{Name: name, Run: func(ctx context.Context) error {
			return c.Machine.Apply(ctx, base, edit)
		}}
	}
	return Step{Name: name, Run: func(ctx context.Context) error {
		return PropagationError(c.Propagator.ApplyToAllPrincipals(ctx, edit))
	}}
}

// Execute runs every entry in order. Invalid entries are logged and skipped.
func (c Checklist) Execute(ctx context.Context, rc *RunContext, entries []checklist.Entry) Summary {
	var summary Summary
	logger := logging.WithContext(rc.Context(ctx), rc.Logger)
	logger.Info("checklist started", logging.Int("entries", len(entries)))
	for _, entry := range entries {
		if ctx.Err() != nil {
			logger.Warn("checklist interrupted",
				logging.Int("completed", len(summary.Results)),
				logging.Int("remaining", len(entries)-len(summary.Results)),
			)
			break
		}
		if !entry.Valid() {
			summary.Results = append(summary.Results, Skip(ctx, rc, entry.Label(), entry.Err))
			continue
		}
		summary.Results = append(summary.Results, Run(ctx, rc, c.Step(entry)))
	}
	logger.Info("checklist finished",
		logging.Int("succeeded", summary.Succeeded()),
		logging.Int("partial", summary.Partial()),
		logging.Int("failed", summary.Failed()),
		logging.Int("skipped", summary.Skipped()),
	)
	return summary
}

// PropagationError maps a propagation report onto a step error: nil when every
// principal succeeded, a *PartialError when some did, and the joined error
// when none did.
func PropagationError(report propagate.Report) error {
	err := report.Err()
	if err == nil {
		return nil
	}
	applied := report.Applied()
	if applied == 0 {
		return err
	}
	return &PartialError{Applied: applied, Total: len(report.Outcomes), Err: err}
}
