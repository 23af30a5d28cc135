// Package log configures structured logging on top of log/slog.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger is a slog.Logger tagged with the component it logs for.
type Logger struct {
	*slog.Logger
	base      *slog.Logger // without the component attribute
	component string
}

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

type Config struct {
	Level     slog.Level
	Format    string // text | json
	Component string
	Output    io.Writer
	// Handler overrides Level, Format and Output when set.
	Handler slog.Handler
}

func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Format:    FormatText,
		Component: ComponentApp,
		Output:    os.Stdout,
	}
}

// ParseLevel maps debug, info, warn and error (any case) to a slog level.
// Unknown values yield info and false.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		out := config.Output
		if out == nil {
			out = os.Stdout
		}
		opts := &slog.HandlerOptions{
			Level: config.Level,
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					if t, ok := a.Value.Any().(time.Time); ok {
						a.Value = slog.StringValue(t.Format(time.RFC3339))
					}
				}
				return a
			},
		}
		if strings.EqualFold(config.Format, FormatJSON) {
			handler = slog.NewJSONHandler(out, opts)
		} else {
			handler = slog.NewTextHandler(out, opts)
		}
	}

	component := config.Component
	if component == "" {
		component = ComponentApp
	}
	base := slog.New(handler)
	return &Logger{
		Logger:    base.With(FieldComponent, component),
		base:      base,
		component: component,
	}
}

// With returns a logger carrying the extra attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		base:      l.baseLogger().With(args...),
		component: l.component,
	}
}

// WithComponent returns a logger for a sub-component. The component key is
// replaced, not repeated.
func (l *Logger) WithComponent(component string) *Logger {
	base := l.baseLogger()
	return &Logger{
		Logger:    base.With(FieldComponent, component),
		base:      base,
		component: component,
	}
}

func (l *Logger) baseLogger() *slog.Logger {
	if l.base != nil {
		return l.base
	}
	return l.Logger
}

func (l *Logger) Component() string {
	return l.component
}

// SetDefault makes l the logger behind slog's top-level functions.
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}
