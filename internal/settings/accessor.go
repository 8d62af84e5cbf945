package settings

import (
	"context"
	"errors"
	"log/slog"

	"winprep/internal/logging"
	"winprep/internal/ops"
	"winprep/internal/regstore"
)

// Accessor applies single-value edits to a registry store.
type Accessor struct {
	store  regstore.Store
	logger *slog.Logger
}

// New constructs an Accessor. A nil logger discards output.
func New(store regstore.Store, logger *slog.Logger) *Accessor {
	return &Accessor{
		store:  store,
		logger: logging.NewComponentLogger(logger, "settings"),
	}
}

// Store exposes the backing store.
func (a *Accessor) Store() regstore.Store {
	return a.store
}

// Apply performs edit beneath base. Add and Update create every missing key
// segment and then overwrite the value, so repeating an edit is harmless.
// Removing from a missing key logs a warning and succeeds; removing a
// missing name is a silent no-op.
func (a *Accessor) Apply(ctx context.Context, base regstore.Key, edit Edit) error {
	if err := edit.Validate(); err != nil {
		return ops.Wrap(ops.ErrValidation, "settings", "validate edit", edit.describe(), err)
	}
	key := base.Join(edit.Path)
	logger := logging.WithContext(ctx, a.logger).With(
		logging.String("key", key.String()),
		logging.String("name", edit.Name),
		logging.String("action", string(edit.Action)),
	)

	if edit.Action == Remove {
		return a.remove(logger, key, edit.Name)
	}

	if err := a.store.CreateKey(key); err != nil {
		return ops.Wrap(ops.ErrStore, "settings", "create key", key.String(), err)
	}
	if err := a.store.SetValue(key, edit.Name, edit.Value); err != nil {
		return ops.Wrap(ops.ErrStore, "settings", "set value", key.String(), err)
	}
	logger.Debug("registry value set",
		logging.String("value", edit.Value.String()),
		logging.String("type", string(edit.Value.Type)),
	)
	return nil
}

func (a *Accessor) remove(logger *slog.Logger, key regstore.Key, name string) error {
	exists, err := a.store.KeyExists(key)
	if err != nil {
		return ops.Wrap(ops.ErrStore, "settings", "probe key", key.String(), err)
	}
	if !exists {
		logger.Warn("registry key not found; nothing to remove")
		return nil
	}
	if err := a.store.DeleteValue(key, name); err != nil {
		if errors.Is(err, regstore.ErrNotExist) {
			logger.Debug("registry value already absent")
			return nil
		}
		return ops.Wrap(ops.ErrStore, "settings", "delete value", key.String(), err)
	}
	logger.Debug("registry value removed")
	return nil
}
