package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"winprep/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	// Level applies to the console sink. The file sink always records debug.
	Level  string
	Format string
	// Console receives human-facing output; nil means stderr.
	Console io.Writer
	// FilePath, when set, receives every record in the plain line format.
	FilePath    string
	Color       bool
	Development bool
}

// New constructs a slog logger using the provided options. The returned
// closer releases the log file and is never nil.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level := parseLevel(opts.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	addSource := opts.Development || level <= slog.LevelDebug

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}

	var consoleHandler slog.Handler
	switch format {
	case "json":
		consoleHandler = newJSONHandler(console, levelVar, addSource)
	case "console", "text":
		consoleHandler = newLineHandler(console, levelVar, lineOptions{addSource: addSource, color: opts.Color})
	default:
		return nil, nopCloser{}, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	path := strings.TrimSpace(opts.FilePath)
	if path == "" {
		return slog.New(consoleHandler), nopCloser{}, nil
	}

	file, err := openLogFile(path)
	if err != nil {
		return nil, nopCloser{}, err
	}
	fileLevel := new(slog.LevelVar)
	fileLevel.Set(slog.LevelDebug)
	fileHandler := newLineHandler(file, fileLevel, lineOptions{})
	return slog.New(TeeHandler(consoleHandler, fileHandler)), file, nil
}

// NewFromConfig creates the run logger: console output per configuration
// plus the per-run log file for runID.
func NewFromConfig(cfg *config.Config, runID string, console io.Writer, color bool) (*slog.Logger, string, io.Closer, error) {
	if cfg == nil {
		logger, closer, err := New(Options{Level: "info", Format: "console", Console: console, Color: color})
		return logger, "", closer, err
	}
	logPath := cfg.RunLogPath(runID)
	logger, closer, err := New(Options{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		Console:  console,
		FilePath: logPath,
		Color:    color,
	})
	if err != nil {
		return nil, "", closer, err
	}
	return logger, logPath, closer, nil
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// CloseAll closes every closer and joins the errors.
func CloseAll(closers ...io.Closer) error {
	var errs []error
	for _, c := range closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
