package runner

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"winprep/internal/logging"
	"winprep/internal/ops"
)

// RunContext carries per-invocation state shared by every step.
type RunContext struct {
	RunID     string
	Logger    *slog.Logger
	OutputDir string

	step int
}

// NewRunContext builds a run context. An empty runID is replaced by a fresh
// UUID so log files and ledger rows from different invocations never collide.
func NewRunContext(runID string, logger *slog.Logger, outputDir string) *RunContext {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		runID = NewRunID()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &RunContext{
		RunID:     runID,
		Logger:    logging.NewComponentLogger(logger, "runner"),
		OutputDir: outputDir,
	}
}

// NewRunID returns a random run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Step returns the number of the most recently started step (0 before any).
func (rc *RunContext) Step() int { return rc.step }

// Context stamps the run id onto ctx.
func (rc *RunContext) Context(ctx context.Context) context.Context {
	return ops.WithRunID(ctx, rc.RunID)
}

func (rc *RunContext) advance() int {
	rc.step++
	return rc.step
}
