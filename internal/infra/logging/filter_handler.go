package logging

import (
	"context"
	"log/slog"
	"strings"
)

// LoggerKey is the attribute holding the logger name.
const LoggerKey = "logger"

// ParseFilter parses "name:level,name:level" into per-logger levels.
// Malformed entries are ignored.
func ParseFilter(filter string) map[string]Level {
	levels := make(map[string]Level)

	for _, entry := range strings.Split(filter, ",") {
		name, levelStr, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok {
			continue
		}

		levels[strings.TrimSpace(name)] = ParseLevel(levelStr, LevelDebug)
	}

	return levels
}

// FilterHandler drops records below the level configured for the logger name.
// Names are dotted paths and the most specific configured prefix wins, so a filter
// of "svc:warn,svc.imagesvc:debug" silences every service except the image service.
type FilterHandler struct {
	h      slog.Handler
	level  slog.Level
	levels map[string]slog.Level
	name   string
}

var _ slog.Handler = (*FilterHandler)(nil)

// NewFilterHandler wraps h. Records of loggers without an override must reach level.
func NewFilterHandler(h slog.Handler, level slog.Level, levels map[string]slog.Level) *FilterHandler {
	return &FilterHandler{h: h, level: level, levels: levels}
}

// Enabled implements slog.Handler.Enabled.
func (h *FilterHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.threshold() && h.h.Enabled(ctx, level)
}

// Handle implements slog.Handler.Handle.
func (h *FilterHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level < h.threshold() {
		return nil
	}

	//nolint:wrapcheck
	return h.h.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.WithAttrs.
func (h *FilterHandler) WithAttrs(attrs []slog.Attr) Handler {
	clone := *h
	clone.h = h.h.WithAttrs(attrs)

	for _, attr := range attrs {
		if attr.Key == LoggerKey {
			clone.name = attr.Value.String()
		}
	}

	return &clone
}

// WithGroup implements slog.Handler.WithGroup.
func (h *FilterHandler) WithGroup(name string) Handler {
	clone := *h
	clone.h = h.h.WithGroup(name)

	return &clone
}

func (h *FilterHandler) threshold() slog.Level {
	name := h.name

	for {
		if level, ok := h.levels[name]; ok {
			return level
		}

		if name == "" {
			return h.level
		}

		idx := strings.LastIndexByte(name, '.')
		if idx < 0 {
			name = ""
		} else {
			name = name[:idx]
		}
	}
}
