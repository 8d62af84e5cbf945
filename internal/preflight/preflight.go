package preflight

import (
	"context"
	"strings"

	"winprep/internal/config"
	"winprep/internal/regstore"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options supplies collaborators that not every caller has.
type Options struct {
	// Store enables the ProfileList readability check.
	Store regstore.Store
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	results = append(results, CheckElevation())
	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, fromDependency(status))
	}
	if opts.Store != nil {
		results = append(results, CheckProfileList(ctx, opts.Store, cfg))
	}
	if strings.TrimSpace(cfg.Paths.Checklist) != "" {
		results = append(results, CheckChecklist(cfg.Paths.Checklist))
	}
	return results
}

// Failed filters results down to failures.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
