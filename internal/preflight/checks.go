package preflight

import (
	"context"
	"fmt"
	"os"

	"winprep/internal/checklist"
	"winprep/internal/config"
	"winprep/internal/deps"
	"winprep/internal/principals"
	"winprep/internal/regstore"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := checkAccess(path); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckElevation reports whether the process can load other users' hives.
func CheckElevation() Result {
	const name = "Elevation"
	elevated, err := isElevated()
	switch {
	case err != nil:
		return Result{Name: name, Detail: fmt.Sprintf("unable to determine (%v)", err)}
	case !elevated:
		return Result{Name: name, Detail: "not elevated; hive load/unload will be denied"}
	default:
		return Result{Name: name, Passed: true, Detail: "elevated"}
	}
}

// CheckSystemDeps evaluates the external tools required by cfg.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.Requirements(cfg))
}

func fromDependency(status deps.Status) Result {
	if status.Available {
		return Result{Name: status.Name, Passed: true, Detail: status.Resolved}
	}
	detail := status.Detail
	if status.Description != "" {
		detail = fmt.Sprintf("%s (%s)", detail, status.Description)
	}
	return Result{Name: status.Name, Passed: status.Optional, Detail: detail}
}

// CheckProfileList verifies the ProfileList key is readable and counts the
// principals an edit would reach.
func CheckProfileList(ctx context.Context, store regstore.Store, cfg *config.Config) Result {
	const name = "Profile list"
	enum, err := principals.NewEnumerator(store, principals.OptionsFromConfig(cfg), nil)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	list, err := enum.List(ctx)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d principals (including default profile)", len(list))}
}

// CheckChecklist loads and validates the configured checklist.
func CheckChecklist(path string) Result {
	const name = "Checklist"
	list, err := checklist.Load(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	invalid := 0
	for _, entry := range checklist.Compile(list) {
		if !entry.Valid() {
			invalid++
		}
	}
	if invalid > 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%d of %d settings invalid)", path, invalid, len(list))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d settings)", path, len(list))}
}
