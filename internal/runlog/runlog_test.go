package runlog_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"winprep/internal/runlog"
)

func writeLog(t *testing.T, dir, runID, content string, modified time.Time) string {
	t.Helper()
	path := filepath.Join(dir, "winprep-"+runID+".log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	if err := os.Chtimes(path, modified, modified); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	return path
}

func TestFindNewestAndByPrefix(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeLog(t, dir, "aaaa-1111", "x\n", now.Add(-2*time.Hour))
	newest := writeLog(t, dir, "bbbb-2222", "y\n", now)
	writeLog(t, dir, "bbbb-3333", "z\n", now.Add(-time.Hour))

	f, err := runlog.Find(dir, "")
	if err != nil || f.Path != newest || f.RunID != "bbbb-2222" {
		t.Fatalf("expected newest log, got %+v %v", f, err)
	}
	if f, err := runlog.Find(dir, "aaaa"); err != nil || f.RunID != "aaaa-1111" {
		t.Fatalf("prefix lookup failed: %+v %v", f, err)
	}
	if _, err := runlog.Find(dir, "bbbb"); err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Fatalf("expected ambiguity error, got %v", err)
	}
	if _, err := runlog.Find(t.TempDir(), ""); !errors.Is(err, runlog.ErrNoLogs) {
		t.Fatalf("expected ErrNoLogs, got %v", err)
	}
}

func TestTailFiltersAndLimits(t *testing.T) {
	dir := t.TempDir()
	path := writeLog(t, dir, "run", strings.Join([]string{
		"2026-01-02T03:04:05Z INFO: runner: step started step=1",
		"2026-01-02T03:04:05Z ERROR: propagate: hive mount failed; skipping principal principal=S-1",
		"2026-01-02T03:04:06Z WARN: settings: key missing; nothing to remove",
		"2026-01-02T03:04:07Z INFO: runner: step finished step=1",
		"",
	}, "\n"), time.Now())

	all, err := runlog.Tail(path, 0, runlog.Filter{})
	if err != nil || len(all) != 4 {
		t.Fatalf("expected four lines, got %d %v", len(all), err)
	}
	last, _ := runlog.Tail(path, 2, runlog.Filter{})
	if len(last) != 2 || !strings.Contains(last[1], "step finished") {
		t.Fatalf("unexpected tail %#v", last)
	}
	warnings, _ := runlog.Tail(path, 10, runlog.Filter{MinLevel: "warn"})
	if len(warnings) != 2 || !strings.Contains(warnings[0], "ERROR:") {
		t.Fatalf("unexpected filtered lines %#v", warnings)
	}
}
