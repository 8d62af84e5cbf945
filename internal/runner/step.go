package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"winprep/internal/logging"
	"winprep/internal/ops"
)

// Step is one unit of checklist work.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Status classifies how a step ended.
type Status string

const (
	StatusOK      Status = "ok"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Result describes a finished step.
type Result struct {
	Number   int
	Name     string
	Status   Status
	Err      error
	Duration time.Duration
}

// PartialError reports a step that succeeded for some targets only.
type PartialError struct {
	Applied int
	Total   int
	Err     error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("applied to %d of %d targets: %v", e.Applied, e.Total, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// Run executes one step: log start, execute, log result, log end. The step
// counter advances exactly once. Errors and panics are logged and reported in
// the Result, never returned; a run always continues with the next step.
func Run(ctx context.Context, rc *RunContext, step Step) (result Result) {
	number := rc.advance()
	stepCtx := ops.WithStep(rc.Context(ctx), number, step.Name)
	logger := logging.WithContext(stepCtx, rc.Logger)
	started := time.Now()
	result = Result{Number: number, Name: step.Name}

	logger.Info("step started")
	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("step panicked: %v", r)
			result.Status = StatusFailed
			logger.Error("step failed", logging.Error(result.Err))
		}
		result.Duration = time.Since(started)
		logger.Info("step finished",
			logging.String("status", string(result.Status)),
			logging.Duration("duration", result.Duration),
		)
	}()

	if step.Run == nil {
		result.Status = StatusSkipped
		logger.Warn("step has nothing to run")
		return result
	}

	err := step.Run(stepCtx)
	result.Err = err
	var partial *PartialError
	switch {
	case err == nil:
		result.Status = StatusOK
		logger.Info("step succeeded")
	case errors.As(err, &partial):
		result.Status = StatusPartial
		logger.Warn("step partially applied",
			logging.Int("applied", partial.Applied),
			logging.Int("total", partial.Total),
		)
	default:
		result.Status = StatusFailed
		logger.Error("step failed",
			logging.ErrorKind(err),
			logging.Error(err),
		)
	}
	return result
}

// Skip records a step that was not executed, advancing the counter so step
// numbers keep lining up with checklist rows.
func Skip(ctx context.Context, rc *RunContext, name string, reason error) Result {
	number := rc.advance()
	logger := logging.WithContext(ops.WithStep(rc.Context(ctx), number, name), rc.Logger)
	logger.Error("invalid setting skipped", logging.Error(reason))
	return Result{Number: number, Name: name, Status: StatusSkipped, Err: reason}
}
