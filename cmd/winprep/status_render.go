package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"winprep/internal/runner"
)

// badge is the bracketed marker printed after a status label.
type badge struct {
	text  string
	color string
}

var (
	badgeOK      = badge{"OK", "\x1b[32m"}
	badgeWarn    = badge{"WARN", "\x1b[33m"}
	badgeFail    = badge{"FAIL", "\x1b[31m"}
	badgeSkipped = badge{"SKIP", "\x1b[34m"}
)

const ansiReset = "\x1b[0m"

// statusPrinter writes aligned "label: [BADGE] detail" lines.
type statusPrinter struct {
	out   io.Writer
	color bool
	width int
}

func newStatusPrinter(out io.Writer) *statusPrinter {
	return &statusPrinter{out: out, color: shouldColorize(out), width: 18}
}

func (p *statusPrinter) line(label string, b badge, detail string) {
	mark := "[" + b.text + "]"
	if p.color {
		mark = b.color + mark + ansiReset
	}
	text := fmt.Sprintf("  %-*s %s", p.width, label+":", mark)
	if detail = strings.TrimSpace(detail); detail != "" {
		text += " " + detail
	}
	fmt.Fprintln(p.out, text)
}

// step prints a runner result. Successful steps are left to the log.
func (p *statusPrinter) step(result runner.Result) {
	detail := ""
	if result.Err != nil {
		detail = result.Err.Error()
	}
	switch result.Status {
	case runner.StatusPartial:
		p.line(result.Name, badgeWarn, detail)
	case runner.StatusFailed:
		p.line(result.Name, badgeFail, detail)
	case runner.StatusSkipped:
		p.line(result.Name, badgeSkipped, detail)
	}
}

func shouldColorize(writer io.Writer) bool {
	if _, disabled := os.LookupEnv("NO_COLOR"); disabled {
		return false
	}
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
