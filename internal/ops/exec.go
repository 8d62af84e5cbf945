package ops

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) error
}

// CommandExecutor runs binaries with os/exec. Stdout and stderr are merged
// into one line stream.
type CommandExecutor struct {
	// Encoding decodes the child's console output. Nil means UTF-8.
	Encoding encoding.Encoding
}

func (e CommandExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	if onOutput == nil {
		onOutput = func(line string) { fmt.Fprintln(os.Stderr, line) }
	}

	pr, pw := io.Pipe()
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		return fmt.Errorf("start %s: %w", binary, err)
	}

	scanned := make(chan error, 1)
	go func() {
		scanned <- scanLines(e.decode(pr), onOutput)
		// Keep the pipe drained so the child never blocks on a full buffer.
		_, _ = io.Copy(io.Discard, pr)
	}()

	waitErr := cmd.Wait()
	_ = pw.Close()
	scanErr := <-scanned

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return fmt.Errorf("%s exited with code %d: %w", binary, exitErr.ExitCode(), waitErr)
		}
		return fmt.Errorf("wait %s: %w", binary, waitErr)
	}
	if scanErr != nil {
		return fmt.Errorf("read %s output: %w", binary, scanErr)
	}
	return nil
}

func (e CommandExecutor) decode(r io.Reader) io.Reader {
	if e.Encoding == nil {
		return r
	}
	return transform.NewReader(r, e.Encoding.NewDecoder())
}

func scanLines(r io.Reader, onLine func(string)) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		onLine(strings.TrimRight(scanner.Text(), "\r"))
	}
	return scanner.Err()
}

// RunCollect executes binary and returns its non-blank output lines joined
// with newlines. On failure the output is folded into the returned error.
func RunCollect(ctx context.Context, executor Executor, binary string, args ...string) (string, error) {
	if executor == nil {
		executor = CommandExecutor{}
	}
	var lines []string
	err := executor.Run(ctx, binary, args, func(line string) {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	})
	output := strings.Join(lines, "\n")
	if err != nil && output != "" {
		return output, fmt.Errorf("%w (output: %s)", err, output)
	}
	return output, err
}
