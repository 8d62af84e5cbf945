package ops

import "context"

type contextKey string

const (
	runIDKey     contextKey = "run_id"
	stepKey      contextKey = "step"
	stepNameKey  contextKey = "step_name"
	principalKey contextKey = "principal"
)

// WithRunID annotates context with the run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStep annotates context with the checklist step number and name.
func WithStep(ctx context.Context, number int, name string) context.Context {
	ctx = context.WithValue(ctx, stepKey, number)
	if name != "" {
		ctx = context.WithValue(ctx, stepNameKey, name)
	}
	return ctx
}

// StepFromContext extracts the step number if present.
func StepFromContext(ctx context.Context) (int, bool) {
	v := ctx.Value(stepKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	default:
		return 0, false
	}
}

// StepNameFromContext returns the step name if present.
func StepNameFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stepNameKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithPrincipal annotates context with the principal currently being edited.
func WithPrincipal(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, principalKey, id)
}

// PrincipalFromContext returns the principal identifier if present.
func PrincipalFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(principalKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
