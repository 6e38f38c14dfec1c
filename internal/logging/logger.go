package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Level is a log severity level.
type Level = logrus.Level

// Log levels, lowest to highest severity.
const (
	LevelDebug = logrus.DebugLevel
	LevelInfo  = logrus.InfoLevel
	LevelWarn  = logrus.WarnLevel
	LevelError = logrus.ErrorLevel
)

// Logger wraps logrus with a small field-option call style.
type Logger struct {
	l *logrus.Logger
}

// Field attaches one or more structured fields to a log call.
type Field func(logrus.Fields)

// WithField attaches a single key/value pair.
func WithField(key string, value interface{}) Field {
	return func(f logrus.Fields) {
		f[key] = value
	}
}

// WithFields attaches a map of fields.
func WithFields(fields map[string]interface{}) Field {
	return func(f logrus.Fields) {
		for k, v := range fields {
			f[k] = v
		}
	}
}

// New creates a logger writing human-readable lines to stderr.
func New(level Level) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &Logger{l: l}
}

// NewJSON creates a logger emitting one JSON object per line, for
// deployments where logs are shipped to a collector.
func NewJSON(level Level) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(level)
	l.SetFormatter(&logrus.JSONFormatter{})
	return &Logger{l: l}
}

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SetOutput redirects log output, used by tests.
func (lg *Logger) SetOutput(w io.Writer) {
	lg.l.SetOutput(w)
}

func (lg *Logger) entry(fields []Field) *logrus.Entry {
	if len(fields) == 0 {
		return logrus.NewEntry(lg.l)
	}
	collected := logrus.Fields{}
	for _, f := range fields {
		f(collected)
	}
	return lg.l.WithFields(collected)
}

func (lg *Logger) Debug(msg string, fields ...Field) {
	lg.entry(fields).Debug(msg)
}

func (lg *Logger) Info(msg string, fields ...Field) {
	lg.entry(fields).Info(msg)
}

func (lg *Logger) Warn(msg string, fields ...Field) {
	lg.entry(fields).Warn(msg)
}

func (lg *Logger) Error(msg string, fields ...Field) {
	lg.entry(fields).Error(msg)
}
