package logging

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// JSON records use short lowercase keys so run logs can be piped straight
// into jq or a log shipper: ts, level, msg, source.
func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   addSource,
		ReplaceAttr: jsonAttr,
	})
}

func jsonAttr(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return attr
	}
	value := attr.Value
	switch {
	case attr.Key == slog.TimeKey && value.Kind() == slog.KindTime:
		return slog.String("ts", value.Time().UTC().Format(time.RFC3339Nano))
	case attr.Key == slog.LevelKey:
		if level, ok := value.Any().(slog.Level); ok {
			return slog.String(slog.LevelKey, strings.ToLower(levelLabel(level)))
		}
	case attr.Key == slog.SourceKey:
		if src, ok := value.Any().(*slog.Source); ok && src != nil {
			return slog.String(slog.SourceKey, fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
		}
	case value.Kind() == slog.KindAny:
		// Errors marshal to {} otherwise.
		if err, ok := value.Any().(error); ok {
			return slog.String(attr.Key, err.Error())
		}
	}
	return attr
}
