package hive

import (
	"context"

	"winprep/internal/logging"
	"winprep/internal/ops"
	"winprep/internal/principals"
	"winprep/internal/regstore"
)

// Lease is a scoped claim on a loaded hive. Callers defer Release right
// after a successful Acquire.
type Lease struct {
	manager   *Manager
	principal principals.Principal
	key       regstore.Key
	owned     bool
	released  bool
}

// Key is the mounted hive's root, e.g. HKU\S-1-5-21-...; edits are applied
// beneath it.
func (l *Lease) Key() regstore.Key { return l.key }

// Owned reports whether this lease loaded the hive and must unload it.
func (l *Lease) Owned() bool { return l.owned }

// Principal returns the leased principal.
func (l *Lease) Principal() principals.Principal { return l.principal }

// Release unloads the hive if this lease owns it. It is safe to call more
// than once and ignores cancellation of ctx so a loaded hive is never
// abandoned mid-cleanup.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil || l.released {
		return nil
	}
	l.released = true
	if !l.owned {
		return nil
	}

	m := l.manager
	ctx = context.WithoutCancel(ctx)
	err := m.unload(ctx, l.principal.MountName)
	if err != nil {
		err = ops.Wrap(ops.ErrUnmount, "hive", "unload", l.principal.ID, err)
	}
	if m.recorder != nil {
		if recErr := m.recorder.Released(ctx, l.principal.MountName, err); recErr != nil {
			logging.WithContext(ctx, m.logger).Warn("record release failed", logging.Error(recErr))
		}
	}
	if err == nil {
		logging.WithContext(ctx, m.logger).Debug("hive unloaded", logging.String("mount", l.principal.MountName))
	}
	return err
}
