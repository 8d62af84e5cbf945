// Package deps checks for the external tools winprep shells out to.
package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"winprep/internal/config"
)

// Requirement defines an external dependency winprep relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	// Resolved is the absolute path the command resolved to.
	Resolved string
	Detail   string
}

// Requirements lists the tools a run needs for cfg.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "reg.exe",
			Command:     cfg.Registry.RegBinary,
			Description: "Loads and unloads user hives",
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := Resolve(cmd, os.Getenv)
		if err != nil {
			status.Detail = err.Error()
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Resolved = resolved
		results = append(results, status)
	}
	return results
}

// Resolve finds cmd on PATH. Bare names that PATH misses are also looked up
// in %SystemRoot%\System32, where reg.exe lives even when PATH is scrubbed.
func Resolve(cmd string, getenv func(string) string) (string, error) {
	if resolved, err := exec.LookPath(cmd); err == nil {
		return resolved, nil
	}
	if strings.ContainsAny(cmd, `/\`) {
		return "", fmt.Errorf("binary %q not found", cmd)
	}
	if root := strings.TrimSpace(getenv("SystemRoot")); root != "" {
		candidate := filepath.Join(root, "System32", cmd)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("binary %q not found", cmd)
}
