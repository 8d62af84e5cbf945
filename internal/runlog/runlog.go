// Package runlog finds and reads the per-run log files winprep writes.
package runlog

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	filePrefix = "winprep-"
	fileSuffix = ".log"
)

// ErrNoLogs is returned when the log directory holds no run logs.
var ErrNoLogs = errors.New("no run logs found")

// File describes one run log.
type File struct {
	RunID    string
	Path     string
	Size     int64
	Modified time.Time
}

// List returns run logs in dir, newest first.
func List(dir string) ([]File, error) {
	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return nil, fmt.Errorf("list run logs: %w", err)
	}
	files := make([]File, 0, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		base := filepath.Base(path)
		files = append(files, File{
			RunID:    strings.TrimSuffix(strings.TrimPrefix(base, filePrefix), fileSuffix),
			Path:     path,
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Modified.After(files[j].Modified)
	})
	return files, nil
}

// Find returns the log for runID, or the newest log when runID is empty. A
// unique run id prefix is accepted.
func Find(dir, runID string) (File, error) {
	files, err := List(dir)
	if err != nil {
		return File{}, err
	}
	if len(files) == 0 {
		return File{}, fmt.Errorf("%w in %s", ErrNoLogs, dir)
	}
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return files[0], nil
	}
	var found []File
	for _, f := range files {
		if f.RunID == runID {
			return f, nil
		}
		if strings.HasPrefix(f.RunID, runID) {
			found = append(found, f)
		}
	}
	switch len(found) {
	case 0:
		return File{}, fmt.Errorf("no run log for %q in %s", runID, dir)
	case 1:
		return found[0], nil
	default:
		return File{}, fmt.Errorf("run id prefix %q is ambiguous (%d matches)", runID, len(found))
	}
}

// Filter selects lines by severity.
type Filter struct {
	// MinLevel is one of DEBUG, INFO, WARN, ERROR; empty keeps every line.
	MinLevel string
}

func levelRank(level string) int {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return 0
	case "INFO":
		return 1
	case "WARN", "WARNING":
		return 2
	case "ERROR":
		return 3
	default:
		return -1
	}
}

// lineLevel extracts LEVEL from "<ts> LEVEL: message".
func lineLevel(line string) int {
	fields := strings.SplitN(line, " ", 3)
	if len(fields) < 2 {
		return -1
	}
	return levelRank(strings.TrimSuffix(fields[1], ":"))
}

func (f Filter) keep(line string) bool {
	min := levelRank(f.MinLevel)
	if min < 0 {
		return true
	}
	return lineLevel(line) >= min
}

// Tail returns the last limit lines of path that pass filter. limit <= 0
// returns every matching line.
func Tail(path string, limit int, filter Filter) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if limit <= 0 {
		var lines []string
		for scanner.Scan() {
			if line := scanner.Text(); filter.keep(line) {
				lines = append(lines, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log file: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, limit)
	count, idx := 0, 0
	for scanner.Scan() {
		line := scanner.Text()
		if !filter.keep(line) {
			continue
		}
		ring[idx] = line
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}

	lines := make([]string, count)
	if count == limit {
		for i := range count {
			lines[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}
