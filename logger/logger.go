package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/golang-cz/devslog"
	"github.com/pkg/errors"
)

type Level string
type Provider string
type contextKeyT string

var contextKey = contextKeyT("github.com/kalabox/email/logger")

const (
	INFO  Level = "info"
	ERROR Level = "error"
	WARN  Level = "warn"
	DEBUG Level = "debug"

	ProviderDevSlog Provider = "dev"      // colored console output
	ProviderStdJson Provider = "std_json" // production
	ProviderNoop    Provider = "noop"     // unit tests
)

type Config struct {
	Provider Provider `envconfig:"LOG_PROVIDER" default:"std_json"`
	Level    Level    `envconfig:"LOG_LEVEL" default:"info"`
}

// NewDefault builds a logger writing to stderr, keeping stdout free for
// command output.
func NewDefault(c Config) *slog.Logger {
	return New(c, os.Stderr)
}

func New(c Config, w io.Writer) *slog.Logger {
	level := convertLevel(c.Level)
	switch c.Provider {
	case ProviderDevSlog:
		return slog.New(devslog.NewHandler(w, &devslog.Options{
			HandlerOptions: &slog.HandlerOptions{
				AddSource: true,
				Level:     level,
			},
			NewLineAfterLog:    true,
			MaxErrorStackTrace: 40,
			MaxSlicePrintSize:  40,
			SortKeys:           true,
			TimeFormat:         "[15:04:05]",
			DebugColor:         devslog.Magenta,
			StringerFormatter:  true,
		}))
	case ProviderNoop:
		return NewNoop()
	case ProviderStdJson:
		fallthrough
	default:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
}

// InitDefault creates a logger and installs it as the slog default.
func InitDefault(c Config) *slog.Logger {
	l := NewDefault(c)
	slog.SetDefault(l)
	return l
}

func NewNoop() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// FromContext returns the logger stored in ctx or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(contextKey).(*slog.Logger); ok {
		return l
	}

	return slog.Default()
}

func HasContext(ctx context.Context) bool {
	_, ok := ctx.Value(contextKey).(*slog.Logger)
	return ok
}

// NewContext stores l in ctx.
func NewContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey, l)
}

// FromContextWithErr extracts the logger from ctx and attaches err.
func FromContextWithErr(ctx context.Context, err error) *slog.Logger {
	return AppendErr(FromContext(ctx), err)
}

// AppendErr attaches err, and its stack trace when it carries one.
func AppendErr(l *slog.Logger, err error) *slog.Logger {
	var stackTracer interface {
		StackTrace() errors.StackTrace
	}

	if errors.As(err, &stackTracer) {
		l = l.With("stack", stackTracer.StackTrace())
	}

	return l.With("error", err.Error())
}

func convertLevel(level Level) slog.Level {
	switch level {
	case INFO:
		return slog.LevelInfo
	case ERROR:
		return slog.LevelError
	case WARN:
		return slog.LevelWarn
	case DEBUG:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
