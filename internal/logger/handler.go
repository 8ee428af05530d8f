package logger

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/fatih/color"
)

var secretKeys = map[string]bool{
	"api_key":  true,
	"apikey":   true,
	"token":    true,
	"pat":      true,
	"password": true,
	"secret":   true,
}

// PrettyHandler writes one line per record: a colored level badge, the
// message, then key=value pairs. Group values are flattened into dotted keys
// and values of secret keys are masked.
type PrettyHandler struct {
	opts   slog.HandlerOptions
	mu     *sync.Mutex
	w      io.Writer
	prefix string
	// preformatted holds attributes added through WithAttrs.
	preformatted []string
}

func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	h := &PrettyHandler{w: w, mu: &sync.Mutex{}}
	if opts != nil {
		h.opts = *opts
	}
	if h.opts.Level == nil {
		h.opts.Level = slog.LevelWarn
	}
	return h
}

func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder
	sb.WriteString(levelBadge(r.Level))
	sb.WriteByte(' ')
	sb.WriteString(r.Message)

	fields := append([]string(nil), h.preformatted...)
	r.Attrs(func(a slog.Attr) bool {
		fields = appendAttr(fields, h.prefix, a)
		return true
	})
	for _, f := range fields {
		sb.WriteByte(' ')
		sb.WriteString(f)
	}

	if h.opts.AddSource && r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		if frame.File != "" {
			sb.WriteByte(' ')
			sb.WriteString(color.HiBlackString("(%s:%d)", filepath.Base(frame.File), frame.Line))
		}
	}
	sb.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, sb.String())
	return err
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.preformatted = append([]string(nil), h.preformatted...)
	for _, a := range attrs {
		clone.preformatted = appendAttr(clone.preformatted, h.prefix, a)
	}
	return &clone
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func levelBadge(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return color.RedString("[ERROR]")
	case level >= slog.LevelWarn:
		return color.YellowString("[WARN] ")
	case level >= slog.LevelInfo:
		return color.CyanString("[INFO] ")
	default:
		return color.HiBlackString("[DEBUG]")
	}
}

// appendAttr resolves LogValuers such as ai.BackendHandle so their own
// redaction applies, then flattens groups.
func appendAttr(fields []string, prefix string, a slog.Attr) []string {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return fields
	}

	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range group {
			fields = appendAttr(fields, prefix, ga)
		}
		return fields
	}

	return append(fields, formatField(prefix+a.Key, a.Value.String()))
}

func formatField(key, val string) string {
	leaf := key[strings.LastIndexByte(key, '.')+1:]
	if secretKeys[strings.ToLower(leaf)] {
		val = maskSecret(val)
	}
	if strings.ContainsAny(val, " \t\n") {
		val = `"` + strings.ReplaceAll(val, "\n", `\n`) + `"`
	}

	switch leaf {
	case "error", "err":
		return color.RedString("%s=%s", key, val)
	case "duration_ms", "estimated_cost_usd":
		return color.MagentaString("%s=%s", key, val)
	case "count", "input_tokens", "output_tokens", "status":
		return color.GreenString("%s=%s", key, val)
	case "run_id", "work_item_id", "page_id", "profile", "provider", "model":
		return color.CyanString("%s=%s", key, val)
	default:
		return color.HiBlackString("%s=%s", key, val)
	}
}

// maskSecret keeps the last four characters so keys can be told apart.
func maskSecret(v string) string {
	if v == "" {
		return ""
	}
	runes := []rune(v)
	if len(runes) <= 4 {
		return "****"
	}
	return "****" + string(runes[len(runes)-4:])
}
