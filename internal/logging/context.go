package logging

import (
	"context"
	"log/slog"

	"winprep/internal/ops"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID identifies one invocation of the CLI.
	FieldRunID = "run_id"
	// FieldStep is the 1-based checklist step counter.
	FieldStep = "step"
	// FieldStepName is the human label of the current checklist step.
	FieldStepName = "step_name"
	// FieldPrincipal is the SID (or default marker) whose hive is being edited.
	FieldPrincipal = "principal"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := ops.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if step, ok := ops.StepFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldStep, step))
	}
	if name, ok := ops.StepNameFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStepName, name))
	}
	if principal, ok := ops.PrincipalFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldPrincipal, principal))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
