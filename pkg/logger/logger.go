// Package logger provides structured JSON logging for the attendance hub.
// Log lines are single JSON objects with the fields flattened at the top
// level, which keeps them greppable and trivially ingestible.
package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Level is the severity of a log line.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

// String returns the level name.
func (l Level) String() string {
	if l < LevelDebug || l > LevelFatal {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel reads a level name, case-insensitively. Unknown names fall
// back to info so a typo in LOG_LEVEL never silences the log.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "FATAL":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// Field is one key-value pair attached to a log line.
type Field struct {
	Key   string
	Value any
}

// F creates a field of any type.
func F(key string, value any) Field { return Field{Key: key, Value: value} }

// Typed field constructors.
func String(key, value string) Field          { return Field{Key: key, Value: value} }
func Int(key string, value int) Field         { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field       { return Field{Key: key, Value: value} }

// Err creates an "error" field from an error value.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Duration creates a human-readable duration field.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Time creates an RFC 3339 time field.
func Time(key string, value time.Time) Field {
	return Field{Key: key, Value: value.Format(time.RFC3339)}
}

// Logger writes structured JSON log lines. Safe for concurrent use; With
// derives child loggers that share the output writer.
type Logger struct {
	mu         sync.Mutex
	output     io.Writer
	level      Level
	fields     []Field
	addCaller  bool
	callerSkip int
}

// Options configures a Logger.
type Options struct {
	Output     io.Writer
	Level      Level
	AddCaller  bool
	CallerSkip int
}

// DefaultOptions returns the standard production setup: info level to
// stdout with caller annotation.
func DefaultOptions() Options {
	return Options{Output: os.Stdout, Level: LevelInfo, AddCaller: true}
}

// New creates a Logger.
func New(opts Options) *Logger {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Logger{
		output:     opts.Output,
		level:      opts.Level,
		addCaller:  opts.AddCaller,
		callerSkip: opts.CallerSkip,
	}
}

// Default creates a Logger with DefaultOptions.
func Default() *Logger {
	return New(DefaultOptions())
}

// With derives a logger that attaches the given fields to every line.
func (l *Logger) With(fields ...Field) *Logger {
	child := l.clone()
	child.fields = append(child.fields, fields...)
	return child
}

// WithLevel derives a logger with a different minimum level.
func (l *Logger) WithLevel(level Level) *Logger {
	child := l.clone()
	child.level = level
	return child
}

// WithRequestID derives a logger tagged with the request ID.
func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.With(String("request_id", requestID))
}

func (l *Logger) clone() *Logger {
	fields := make([]Field, len(l.fields), len(l.fields)+4)
	copy(fields, l.fields)
	return &Logger{
		output:     l.output,
		level:      l.level,
		fields:     fields,
		addCaller:  l.addCaller,
		callerSkip: l.callerSkip,
	}
}

func (l *Logger) write(level Level, msg string, fields []Field) {
	if level < l.level {
		return
	}

	line := make(map[string]any, len(l.fields)+len(fields)+4)
	for _, f := range l.fields {
		line[f.Key] = f.Value
	}
	for _, f := range fields {
		line[f.Key] = f.Value
	}
	// Reserved keys win over field collisions.
	line["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	line["level"] = level.String()
	line["msg"] = msg

	if l.addCaller {
		if _, file, lineNo, ok := runtime.Caller(2 + l.callerSkip); ok {
			if idx := strings.LastIndexByte(file, '/'); idx >= 0 {
				file = file[idx+1:]
			}
			line["caller"] = fmt.Sprintf("%s:%d", file, lineNo)
		}
	}

	data, err := json.Marshal(line)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"ts":%q,"level":%q,"msg":%q,"logger_error":%q}`,
			line["ts"], level.String(), msg, err.Error()))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write(data)
	l.output.Write([]byte("\n"))
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, fields ...Field) { l.write(LevelDebug, msg, fields) }

// Info logs at info level.
func (l *Logger) Info(msg string, fields ...Field) { l.write(LevelInfo, msg, fields) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, fields ...Field) { l.write(LevelWarn, msg, fields) }

// Error logs at error level.
func (l *Logger) Error(msg string, fields ...Field) { l.write(LevelError, msg, fields) }

// Fatal logs at fatal level and exits the process.
func (l *Logger) Fatal(msg string, fields ...Field) {
	l.write(LevelFatal, msg, fields)
	os.Exit(1)
}

// Infof logs a formatted message at info level.
func (l *Logger) Infof(format string, args ...any) {
	l.write(LevelInfo, fmt.Sprintf(format, args...), nil)
}

// Errorf logs a formatted message at error level.
func (l *Logger) Errorf(format string, args ...any) {
	l.write(LevelError, fmt.Sprintf(format, args...), nil)
}

type ctxKey struct{}

// WithContext stores the logger in a context.
func WithContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in the context, or Default.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return Default()
}

// Domain field helpers, so call sites agree on key names.
func ActorID(id string) Field       { return String("actor_id", id) }
func CenterID(id string) Field      { return String("center_id", id) }
func AssignmentID(id string) Field  { return String("assignment_id", id) }
func StudentID(id string) Field     { return String("student_id", id) }
func EventID(id string) Field       { return String("event_id", id) }
func Component(name string) Field   { return String("component", name) }
func Operation(name string) Field   { return String("operation", name) }
func Latency(d time.Duration) Field { return Duration("latency", d) }
