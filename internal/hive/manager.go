package hive

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/cenkalti/backoff/v4"

	"winprep/internal/logging"
	"winprep/internal/mountledger"
	"winprep/internal/ops"
	"winprep/internal/principals"
	"winprep/internal/regstore"
)

const (
	defaultUnloadDelay    = time.Second
	defaultUnloadAttempts = 3
	defaultRetryInterval  = 500 * time.Millisecond
	maxRetryInterval      = 5 * time.Second
)

// Recorder persists mount bookkeeping. *mountledger.Ledger implements it.
type Recorder interface {
	Mounted(ctx context.Context, principalID, mountName, hivePath string) error
	Released(ctx context.Context, mountName string, releaseErr error) error
	Claimed(ctx context.Context, mountName string) (bool, error)
	Adopt(ctx context.Context, principalID, mountName, hivePath string) error
	OpenEntries(ctx context.Context) ([]mountledger.Entry, error)
	MarkRecovered(ctx context.Context, id int64, detail string) error
	MarkAbandoned(ctx context.Context, id int64, detail string) error
}

// Manager hands out leases on principal hives.
type Manager struct {
	mounter       Mounter
	root          regstore.Key
	recorder      Recorder
	logger        *slog.Logger
	unloadDelay   time.Duration
	attempts      int
	retryInterval time.Duration
	sleep         func(time.Duration)
	collect       func()
}

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logging.NewComponentLogger(logger, "hive") }
}

// WithRecorder enables stale-mount detection and recovery.
func WithRecorder(recorder Recorder) Option {
	return func(m *Manager) { m.recorder = recorder }
}

// WithUnloadDelay sets the pause taken before the first unload attempt.
func WithUnloadDelay(d time.Duration) Option {
	return func(m *Manager) {
		if d >= 0 {
			m.unloadDelay = d
		}
	}
}

func WithUnloadAttempts(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.attempts = n
		}
	}
}

// WithRetryInterval sets the initial wait between failed unload attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.retryInterval = d
		}
	}
}

// WithSleep replaces the pre-unload pause, for tests.
func WithSleep(sleep func(time.Duration)) Option {
	return func(m *Manager) {
		if sleep != nil {
			m.sleep = sleep
		}
	}
}

// WithCollector replaces the garbage collection run before unloading.
func WithCollector(collect func()) Option {
	return func(m *Manager) {
		if collect != nil {
			m.collect = collect
		}
	}
}

// NewManager returns a Manager mounting under root through mounter.
func NewManager(mounter Mounter, root regstore.Key, opts ...Option) *Manager {
	m := &Manager{
		mounter:       mounter,
		root:          root,
		logger:        logging.NewComponentLogger(nil, "hive"),
		unloadDelay:   defaultUnloadDelay,
		attempts:      defaultUnloadAttempts,
		retryInterval: defaultRetryInterval,
		sleep:         time.Sleep,
		collect:       runtime.GC,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Root returns the key hives are mounted under.
func (m *Manager) Root() regstore.Key {
	return m.root
}

// Acquire ensures p's hive is loaded and returns a lease on it. Hives the OS
// already holds (a signed-in user) are leased without ownership and are never
// unloaded. A hive with an open ledger row, left by a crashed earlier run or
// by a failed unload earlier in this run, is adopted and owned.
func (m *Manager) Acquire(ctx context.Context, p principals.Principal) (*Lease, error) {
	logger := logging.WithContext(ctx, m.logger).With(
		logging.String("mount", p.MountName),
		logging.String("hive_path", p.HivePath),
	)
	lease := &Lease{manager: m, principal: p, key: m.root.Join(p.MountName)}

	mounted, err := m.mounter.IsMounted(ctx, p.MountName)
	if err != nil {
		return nil, ops.Wrap(ops.ErrMount, "hive", "probe mount", lease.key.String(), err)
	}

	if mounted {
		claimed := false
		if m.recorder != nil {
			if claimed, err = m.recorder.Claimed(ctx, p.MountName); err != nil {
				logger.Warn("mount ledger unavailable; treating hive as externally loaded", logging.Error(err))
				claimed = false
			}
		}
		if !claimed {
			logger.Debug("hive already loaded; leaving mount in place")
			return lease, nil
		}
		logger.Warn("adopting hive left loaded by winprep")
		if err := m.recorder.Adopt(ctx, p.ID, p.MountName, p.HivePath); err != nil {
			logger.Warn("record adoption failed", logging.Error(err))
		}
		lease.owned = true
		return lease, nil
	}

	if err := m.mounter.Mount(ctx, p.MountName, p.HivePath); err != nil {
		return nil, ops.Wrap(ops.ErrMount, "hive", "load", p.ID, err)
	}
	lease.owned = true
	if m.recorder != nil {
		if err := m.recorder.Mounted(ctx, p.ID, p.MountName, p.HivePath); err != nil {
			logger.Warn("record mount failed", logging.Error(err))
		}
	}
	logger.Debug("hive loaded")
	return lease, nil
}

// unload collects garbage, waits for the OS to drop file handles, and then
// unloads with exponential backoff.
func (m *Manager) unload(ctx context.Context, mountName string) error {
	m.collect()
	if m.unloadDelay > 0 {
		m.sleep(m.unloadDelay)
	}

	policy := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(m.retryInterval),
		backoff.WithMaxInterval(maxRetryInterval),
		backoff.WithMaxElapsedTime(0),
	)
	attempt := 0
	operation := func() error {
		attempt++
		return m.mounter.Unmount(ctx, mountName)
	}
	notify := func(err error, wait time.Duration) {
		m.logger.Debug("hive unload failed; retrying",
			logging.String("mount", mountName),
			logging.Int("attempt", attempt),
			logging.Duration("wait", wait),
			logging.Error(err),
		)
		m.collect()
	}
	err := backoff.RetryNotify(operation, backoff.WithMaxRetries(policy, uint64(m.attempts-1)), notify)
	if err != nil {
		return fmt.Errorf("after %d attempts: %w", attempt, err)
	}
	return nil
}

// RecoveryResult summarizes a Recover pass.
type RecoveryResult struct {
	Recovered int
	Abandoned int
	Failed    int
}

// Recover unloads hives that earlier runs loaded but never released. Rows
// whose hive is no longer loaded are closed as abandoned.
func (m *Manager) Recover(ctx context.Context) (RecoveryResult, error) {
	var result RecoveryResult
	if m.recorder == nil {
		return result, nil
	}
	logger := logging.WithContext(ctx, m.logger)
	entries, err := m.recorder.OpenEntries(ctx)
	if err != nil {
		return result, ops.Wrap(ops.ErrStore, "hive", "list open mounts", "", err)
	}
	for _, entry := range entries {
		entryLogger := logger.With(
			logging.String("mount", entry.MountName),
			logging.String("principal", entry.PrincipalID),
			logging.String("previous_run", entry.RunID),
		)
		mounted, err := m.mounter.IsMounted(ctx, entry.MountName)
		if err != nil {
			result.Failed++
			entryLogger.Error("probe stale mount failed", logging.Error(err))
			continue
		}
		if !mounted {
			result.Abandoned++
			if err := m.recorder.MarkAbandoned(ctx, entry.ID, "hive no longer loaded"); err != nil {
				entryLogger.Warn("record abandoned mount failed", logging.Error(err))
			}
			continue
		}
		if err := m.unload(context.WithoutCancel(ctx), entry.MountName); err != nil {
			result.Failed++
			entryLogger.Error("unload stale mount failed", logging.Error(err))
			continue
		}
		result.Recovered++
		if err := m.recorder.MarkRecovered(ctx, entry.ID, "unloaded by run recovery"); err != nil {
			entryLogger.Warn("record recovered mount failed", logging.Error(err))
		}
		entryLogger.Info("stale hive unloaded")
	}
	return result, nil
}
