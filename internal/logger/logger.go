package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	domainErrors "github.com/thomas-vilte/reqtracker/internal/errors"
)

type contextKey struct{}

var loggerKey = contextKey{}

// Initialize installs the process-wide logger on stderr. stdout stays free for
// command output and the MCP stdio transport.
func Initialize(debug, verbose bool) {
	slog.SetDefault(New(os.Stderr, debug, verbose))
}

// Level maps the CLI flags to a minimum level. Warnings always pass.
func Level(debug, verbose bool) slog.Level {
	switch {
	case debug:
		return slog.LevelDebug
	case verbose:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

// New builds a logger writing one colored line per record to w. Debug mode
// also prints the caller.
func New(w io.Writer, debug, verbose bool) *slog.Logger {
	return slog.New(NewPrettyHandler(w, &slog.HandlerOptions{
		Level:     Level(debug, verbose),
		AddSource: debug,
	}))
}

// FromContext returns the logger carried by ctx, or the default one.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// With returns a context whose logger adds args to every record, for example
// the run id of a pipeline run.
func With(ctx context.Context, args ...any) context.Context {
	return WithLogger(ctx, FromContext(ctx).With(args...))
}

func Debug(ctx context.Context, msg string, args ...any) {
	log(ctx, slog.LevelDebug, msg, args...)
}

func Info(ctx context.Context, msg string, args ...any) {
	log(ctx, slog.LevelInfo, msg, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	log(ctx, slog.LevelWarn, msg, args...)
}

// Error logs err under the "error" key. Application errors also log their
// category so failures can be grouped without parsing messages.
func Error(ctx context.Context, msg string, err error, args ...any) {
	if err != nil {
		args = append(args, slog.Any("error", err))
		var appErr *domainErrors.AppError
		if errors.As(err, &appErr) {
			args = append(args, slog.String("error_type", string(appErr.Type)))
		}
	}
	log(ctx, slog.LevelError, msg, args...)
}

// log reports the caller of the exported helper as the record source.
func log(ctx context.Context, level slog.Level, msg string, args ...any) {
	l := FromContext(ctx)
	if !l.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = l.Handler().Handle(ctx, r)
}
