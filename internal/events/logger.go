package events

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/mediavault-app/mediavault/internal/config"
)

// LogLevel represents logging severity.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// redactedFields are field names whose values are masked before output.
// This logger sits under the crypto and capability code, so a stray
// debug line must never persist a passphrase, key, or live signature.
var redactedFields = map[string]bool{
	"passphrase": true,
	"password":   true,
	"key":        true,
	"vault_key":  true,
	"signature":  true,
	"token":      true,
	"session_id": true,
}

const redactedValue = "[redacted]"

// Logger provides structured logging.
type Logger struct {
	mu     sync.Mutex
	level  LogLevel
	format string
	output io.Writer
	fields map[string]interface{}
	color  bool
}

// NewLogger creates a logger from config.
func NewLogger(cfg *config.LogConfig) (*Logger, error) {
	level := parseLevel(cfg.Level)

	var output io.Writer = os.Stdout
	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		output = file
	}

	return &Logger{
		level:  level,
		format: cfg.Format,
		output: output,
		fields: make(map[string]interface{}),
		color:  cfg.Color && cfg.File == "",
	}, nil
}

// NewTestLogger creates a logger for testing.
func NewTestLogger(level LogLevel, format string, output io.Writer) *Logger {
	return &Logger{
		level:  level,
		format: format,
		output: output,
		fields: make(map[string]interface{}),
	}
}

// NewNopLogger creates a logger that discards everything.
func NewNopLogger() *Logger {
	return NewTestLogger(ErrorLevel+1, "text", io.Discard)
}

// WithField returns a logger with an additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithFields returns a logger with additional fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	newFields := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		if redactedFields[k] {
			v = redactedValue
		}
		newFields[k] = v
	}

	return &Logger{
		level:  l.level,
		format: l.format,
		output: l.output,
		fields: newFields,
		color:  l.color,
	}
}

// WithError adds an error field.
func (l *Logger) WithError(err error) *Logger {
	return l.WithField("error", err.Error())
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string) {
	l.log(DebugLevel, msg)
}

// Info logs at info level.
func (l *Logger) Info(msg string) {
	l.log(InfoLevel, msg)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string) {
	l.log(WarnLevel, msg)
}

// Error logs at error level.
func (l *Logger) Error(msg string) {
	l.log(ErrorLevel, msg)
}

// log writes a log entry.
func (l *Logger) log(level LogLevel, msg string) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ts := time.Now().UTC().Format(time.RFC3339Nano)

	if l.format == "json" {
		l.writeJSON(ts, level, msg)
	} else {
		l.writeText(ts, level, msg)
	}
}

// writeJSON outputs JSON format.
func (l *Logger) writeJSON(ts string, level LogLevel, msg string) {
	var sb strings.Builder
	sb.WriteString("{")
	sb.WriteString(fmt.Sprintf(`"time":"%s","level":"%s","msg":"%s"`,
		ts, levelString(level), escapeJSON(msg)))

	for _, k := range l.sortedFieldKeys() {
		sb.WriteString(fmt.Sprintf(`,"%s":`, escapeJSON(k)))
		switch val := l.fields[k].(type) {
		case string:
			sb.WriteString(fmt.Sprintf(`"%s"`, escapeJSON(val)))
		case int, int64, float64, bool:
			sb.WriteString(fmt.Sprintf("%v", val))
		default:
			sb.WriteString(fmt.Sprintf(`"%s"`, escapeJSON(fmt.Sprintf("%v", val))))
		}
	}

	sb.WriteString("}\n")
	_, _ = l.output.Write([]byte(sb.String()))
}

// writeText outputs human-readable format.
func (l *Logger) writeText(ts string, level LogLevel, msg string) {
	levelStr := strings.ToUpper(levelString(level))
	if l.color {
		levelStr = levelColor(level).Sprintf("[%s]", levelStr)
	} else {
		levelStr = fmt.Sprintf("[%s]", levelStr)
	}

	fmt.Fprintf(l.output, "%s %s %s", ts, levelStr, msg)

	for _, k := range l.sortedFieldKeys() {
		fmt.Fprintf(l.output, " %s=%v", k, l.fields[k])
	}

	fmt.Fprintln(l.output)
}

func (l *Logger) sortedFieldKeys() []string {
	keys := make([]string, 0, len(l.fields))
	for k := range l.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Helper functions

func parseLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func levelString(l LogLevel) string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return "unknown"
	}
}

func levelColor(l LogLevel) *color.Color {
	switch l {
	case DebugLevel:
		return color.New(color.FgCyan)
	case WarnLevel:
		return color.New(color.FgYellow)
	case ErrorLevel:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgGreen)
	}
}

func escapeJSON(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\r", `\r`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	return s
}
