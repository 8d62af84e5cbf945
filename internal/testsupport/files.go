package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteFile writes content to path, creating parent directories. Leading
// tab indentation common to every line is stripped so checklists can be
// written inline in tests.
func WriteFile(t testing.TB, path, content string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(dedent(content)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func dedent(content string) string {
	lines := strings.Split(content, "\n")
	prefix := ""
	first := true
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, "\t"))]
		if first || len(indent) < len(prefix) {
			prefix = indent
			first = false
		}
	}
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, prefix)
	}
	return strings.TrimLeft(strings.Join(lines, "\n"), "\n")
}
