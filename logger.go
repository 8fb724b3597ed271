package bridge

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Logger is the logging contract used by the bridge.
type Logger interface {
	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Fatal(msg string, args ...any)
	WithContext(ctx context.Context) Logger
}

// FieldsLogger extends Logger with structured-field support.
type FieldsLogger interface {
	WithFields(map[string]any) Logger
}

// Level orders log severities for FmtLogger filtering.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = [...]string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (l Level) String() string {
	if l < LevelTrace || l > LevelFatal {
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
	return levelNames[l]
}

// FmtLogger is the fallback used when no logger is configured. Each entry is
// one line: timestamp, level, message, then key=value fields sorted by key.
// Every entry carries component=bridge.
type FmtLogger struct {
	mu     *sync.Mutex
	out    io.Writer
	min    Level
	now    func() time.Time
	fields map[string]any
}

// NewFmtLogger writes to stderr when out is nil. All levels are written until
// MinLevel raises the threshold.
func NewFmtLogger(out io.Writer) *FmtLogger {
	if out == nil {
		out = os.Stderr
	}
	return &FmtLogger{
		mu:     &sync.Mutex{},
		out:    out,
		min:    LevelTrace,
		now:    time.Now,
		fields: map[string]any{"component": "bridge"},
	}
}

// MinLevel returns a copy that drops entries below min.
func (l *FmtLogger) MinLevel(min Level) *FmtLogger {
	cp := *l.orDefault()
	cp.min = min
	return &cp
}

func (l *FmtLogger) Trace(msg string, args ...any) { l.log(LevelTrace, msg, args) }
func (l *FmtLogger) Debug(msg string, args ...any) { l.log(LevelDebug, msg, args) }
func (l *FmtLogger) Info(msg string, args ...any)  { l.log(LevelInfo, msg, args) }
func (l *FmtLogger) Warn(msg string, args ...any)  { l.log(LevelWarn, msg, args) }
func (l *FmtLogger) Error(msg string, args ...any) { l.log(LevelError, msg, args) }
func (l *FmtLogger) Fatal(msg string, args ...any) { l.log(LevelFatal, msg, args) }

// WithContext is a no-op: the fallback has nothing to extract from ctx.
func (l *FmtLogger) WithContext(context.Context) Logger {
	return l.orDefault()
}

func (l *FmtLogger) WithFields(fields map[string]any) Logger {
	cp := *l.orDefault()
	cp.fields = mergeFields(cp.fields, fields)
	return &cp
}

func (l *FmtLogger) orDefault() *FmtLogger {
	if l == nil {
		return NewFmtLogger(nil)
	}
	return l
}

func (l *FmtLogger) log(level Level, msg string, args []any) {
	l = l.orDefault()
	if level < l.min {
		return
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}

	line := fmt.Sprintf("%s %-5s %s",
		l.now().UTC().Format(time.RFC3339Nano), level, strings.TrimSpace(msg))
	if len(l.fields) > 0 {
		line += " " + formatFields(l.fields)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.out, line)
}

func normalizeLogger(logger Logger) Logger {
	if logger == nil {
		return NewFmtLogger(nil)
	}
	return logger
}

func withLoggerFields(logger Logger, fields map[string]any) Logger {
	if fl, ok := logger.(FieldsLogger); ok {
		return fl.WithFields(fields)
	}
	return logger
}

func mergeFields(a, b map[string]any) map[string]any {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// formatFields quotes values that contain whitespace so a line stays
// splittable on spaces.
func formatFields(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(' ')
		}
		v := fmt.Sprint(fields[k])
		if strings.ContainsAny(v, " \t\n\"") {
			v = fmt.Sprintf("%q", v)
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(v)
	}
	return sb.String()
}
