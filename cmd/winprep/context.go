package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"winprep/internal/config"
	"winprep/internal/hive"
	"winprep/internal/logging"
	"winprep/internal/mountledger"
	"winprep/internal/ops"
	"winprep/internal/principals"
	"winprep/internal/propagate"
	"winprep/internal/regstore"
	"winprep/internal/runlock"
	"winprep/internal/runner"
	"winprep/internal/settings"
)

// backend opens the settings store and builds the hive mounter. Tests swap in
// an in-memory pair.
type backend struct {
	openStore  func() (regstore.Store, error)
	newMounter func(cfg *config.Config, store regstore.Store, root regstore.Key) hive.Mounter
	unloadOpts []hive.Option
}

func systemBackend() backend {
	return backend{
		openStore: regstore.OpenSystem,
		newMounter: func(cfg *config.Config, store regstore.Store, root regstore.Key) hive.Mounter {
			return hive.NewRegMounter(store, root, cfg.Registry.RegBinary, ops.CommandExecutor{Encoding: consoleEncoding()})
		},
	}
}

// consoleEncoding is the OEM code page reg.exe writes its messages in.
func consoleEncoding() encoding.Encoding {
	if runtime.GOOS == "windows" {
		return charmap.CodePage437
	}
	return nil
}

type commandContext struct {
	backend     backend
	configFlag  *string
	logFileFlag *string
	verbose     *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(b backend, configFlag, logFileFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		backend:     b,
		configFlag:  configFlag,
		logFileFlag: logFileFlag,
		verbose:     verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logFileFlag != nil && strings.TrimSpace(*c.logFileFlag) != "" {
			expanded, err := config.ExpandPath(*c.logFileFlag)
			if err != nil {
				c.configErr = fmt.Errorf("resolve --log-file: %w", err)
				return
			}
			cfg.Logging.File = expanded
		}
		if c.verbose != nil && *c.verbose {
			cfg.Logging.Level = "debug"
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// sessionOptions selects which process-wide resources a command needs.
type sessionOptions struct {
	// mutates takes the run lock and writes a per-run log file.
	mutates bool
	ledger  bool
}

// session bundles everything one command invocation wires together.
type session struct {
	cfg     *config.Config
	rc      *runner.RunContext
	logger  *slog.Logger
	logPath string

	store      regstore.Store
	root       regstore.Key
	mounter    hive.Mounter
	ledger     *mountledger.Ledger
	lock       *runlock.Lock
	hives      *hive.Manager
	principals *principals.Enumerator
	accessor   *settings.Accessor
	propagator *propagate.Propagator

	closers []io.Closer
}

func (c *commandContext) openSession(cmd *cobra.Command, opts sessionOptions) (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			_ = s.Close()
		}
	}()

	runID := runner.NewRunID()
	console := cmd.ErrOrStderr()
	color := shouldColorize(console)
	if opts.mutates {
		logger, logPath, closer, err := logging.NewFromConfig(cfg, runID, console, color)
		if err != nil {
			return nil, fmt.Errorf("open run log: %w", err)
		}
		s.logger, s.logPath = logger, logPath
		s.closers = append(s.closers, closer)
	} else {
		logger, closer, err := logging.New(logging.Options{
			Level:   cfg.Logging.Level,
			Format:  cfg.Logging.Format,
			Console: console,
			Color:   color,
		})
		if err != nil {
			return nil, fmt.Errorf("open console log: %w", err)
		}
		s.logger = logger
		s.closers = append(s.closers, closer)
	}
	s.rc = runner.NewRunContext(runID, s.logger, cfg.Paths.LogDir)

	if opts.mutates {
		lock, err := runlock.Acquire(cfg.LockPath())
		if err != nil {
			return nil, err
		}
		s.lock = lock
	}

	store, err := c.backend.openStore()
	if err != nil {
		return nil, fmt.Errorf("open settings store: %w", err)
	}
	s.store = store
	root, err := regstore.ParseKey(cfg.Registry.MountRoot)
	if err != nil {
		return nil, ops.Wrap(ops.ErrConfiguration, "config", "mount root", cfg.Registry.MountRoot, err)
	}
	s.root = root
	s.mounter = c.backend.newMounter(cfg, store, root)

	hiveOpts := []hive.Option{
		hive.WithLogger(s.logger),
		hive.WithUnloadDelay(cfg.UnloadDelay()),
		hive.WithUnloadAttempts(cfg.Registry.UnloadAttempts),
	}
	if opts.ledger {
		ledger, err := mountledger.Open(cfg.LedgerPath(), runID)
		if err != nil {
			return nil, fmt.Errorf("open mount ledger: %w", err)
		}
		s.ledger = ledger
		hiveOpts = append(hiveOpts, hive.WithRecorder(ledger))
	}
	hiveOpts = append(hiveOpts, c.backend.unloadOpts...)
	s.hives = hive.NewManager(s.mounter, root, hiveOpts...)

	enum, err := principals.NewEnumerator(store, principals.OptionsFromConfig(cfg), s.logger)
	if err != nil {
		return nil, err
	}
	s.principals = enum
	s.accessor = settings.New(store, s.logger)
	s.propagator = propagate.New(enum, s.hives, s.accessor, s.logger)

	ok = true
	return s, nil
}

// Close releases the ledger, lock, and log file in reverse order of
// acquisition.
func (s *session) Close() error {
	var errs []error
	if s.ledger != nil {
		errs = append(errs, s.ledger.Close())
		s.ledger = nil
	}
	if s.lock != nil {
		errs = append(errs, s.lock.Release())
		s.lock = nil
	}
	errs = append(errs, logging.CloseAll(s.closers...))
	s.closers = nil
	return errors.Join(errs...)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
