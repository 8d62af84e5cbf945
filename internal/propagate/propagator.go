package propagate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"winprep/internal/hive"
	"winprep/internal/logging"
	"winprep/internal/ops"
	"winprep/internal/principals"
	"winprep/internal/settings"
)

// Lister supplies the principals an edit is propagated to.
type Lister interface {
	List(ctx context.Context) ([]principals.Principal, error)
}

// Outcome records what happened to one principal.
type Outcome struct {
	Principal principals.Principal
	// Owned is true when this call loaded the hive itself.
	Owned      bool
	Applied    bool
	Err        error
	ReleaseErr error
	Duration   time.Duration
}

// Report aggregates per-principal outcomes of one propagation.
type Report struct {
	Edit     settings.Edit
	Outcomes []Outcome
	// ListErr is set when enumeration failed; the default principal is still
	// attempted.
	ListErr error
}

// Applied counts principals that received the edit.
func (r Report) Applied() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Applied {
			n++
		}
	}
	return n
}

// Failed returns principals whose edit or unload failed.
func (r Report) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil || o.ReleaseErr != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// Err joins every per-principal error, for callers that want a single value.
func (r Report) Err() error {
	errs := []error{r.ListErr}
	for _, o := range r.Outcomes {
		errs = append(errs, o.Err, o.ReleaseErr)
	}
	return errors.Join(errs...)
}

// Propagator applies an edit to every principal's hive.
type Propagator struct {
	lister   Lister
	hives    *hive.Manager
	accessor *settings.Accessor
	logger   *slog.Logger
}

// New constructs a Propagator.
func New(lister Lister, hives *hive.Manager, accessor *settings.Accessor, logger *slog.Logger) *Propagator {
	return &Propagator{
		lister:   lister,
		hives:    hives,
		accessor: accessor,
		logger:   logging.NewComponentLogger(logger, "propagate"),
	}
}

// ApplyToAllPrincipals applies edit under every principal's mounted hive, one
// principal at a time. Failures are logged and recorded in the Report; they
// never abort the remaining principals and nothing is returned as an error.
func (p *Propagator) ApplyToAllPrincipals(ctx context.Context, edit settings.Edit) Report {
	report := Report{Edit: edit}
	logger := logging.WithContext(ctx, p.logger)

	list, err := p.lister.List(ctx)
	if err != nil {
		report.ListErr = err
		logger.Error("principal enumeration failed; continuing with what was found",
			logging.Error(err),
			logging.Int("principals", len(list)),
		)
	}

	for _, principal := range list {
		report.Outcomes = append(report.Outcomes, p.applyOne(ctx, principal, edit))
	}
	return report
}

func (p *Propagator) applyOne(ctx context.Context, principal principals.Principal, edit settings.Edit) (outcome Outcome) {
	ctx = ops.WithPrincipal(ctx, principal.ID)
	logger := logging.WithContext(ctx, p.logger)
	started := time.Now()
	outcome.Principal = principal

	defer func() {
		if r := recover(); r != nil {
			outcome.Applied = false
			outcome.Err = fmt.Errorf("panic while editing %s: %v", principal.ID, r)
			logger.Error("principal edit panicked", logging.Any("panic", r))
		}
		outcome.Duration = time.Since(started)
	}()

	lease, err := p.hives.Acquire(ctx, principal)
	if err != nil {
		outcome.Err = err
		logger.Error("hive mount failed; skipping principal",
			logging.String("hive_path", principal.HivePath),
			logging.Error(err),
		)
		return outcome
	}
	outcome.Owned = lease.Owned()
	defer func() {
		if releaseErr := lease.Release(ctx); releaseErr != nil {
			outcome.ReleaseErr = releaseErr
			logger.Error("hive unload failed; edit was kept",
				logging.String("mount", lease.Key().String()),
				logging.Error(releaseErr),
			)
		}
	}()

	if err := p.accessor.Apply(ctx, lease.Key(), edit); err != nil {
		outcome.Err = err
		logger.Error("registry edit failed", logging.Stringer("edit", edit), logging.ErrorKind(err), logging.Error(err))
		return outcome
	}
	outcome.Applied = true
	logger.Info("principal updated",
		logging.Stringer("edit", edit),
		logging.Bool("loaded_by_run", outcome.Owned),
	)
	return outcome
}
