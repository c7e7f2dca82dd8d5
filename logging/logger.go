package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// ParseLevel maps a config string to a Level. Unknown values mean info.
func ParseLevel(level string) Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Fields is structured context attached to one log line.
type Fields map[string]any

// Logger is the logging capability handed to every component.
type Logger interface {
	Log(level Level, msg string, fields Fields)
	Debug(msg string, fields ...Fields)
	Info(msg string, fields ...Fields)
	Warn(msg string, fields ...Fields)
	Error(msg string, fields ...Fields)
	Enabled(level Level) bool
}

// Options selects and configures a Logger implementation.
type Options struct {
	Level  string
	Format string // "text" or "json"
	Output io.Writer
	Debug  bool // forces LevelDebug, like APP_DEBUG=true
}

// New returns a logrus-backed Logger.
func New(opts Options) Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level := ParseLevel(opts.Level)
	if opts.Debug {
		level = LevelDebug
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(toLogrus(level))
	if strings.EqualFold(opts.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			DisableColors:   true,
		})
	}

	return &logrusLogger{entry: logrus.NewEntry(l), level: level}
}

// Nop returns a Logger that drops everything.
func Nop() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return &logrusLogger{entry: logrus.NewEntry(l), level: LevelError + 1}
}

type logrusLogger struct {
	entry *logrus.Entry
	level Level
}

func toLogrus(level Level) logrus.Level {
	switch level {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

func (l *logrusLogger) Enabled(level Level) bool { return level >= l.level }

func (l *logrusLogger) Log(level Level, msg string, fields Fields) {
	if !l.Enabled(level) {
		return
	}
	entry := l.entry
	if len(fields) > 0 {
		entry = entry.WithFields(logrus.Fields(fields))
	}
	entry.Log(toLogrus(level), msg)
}

func merge(fields []Fields) Fields {
	switch len(fields) {
	case 0:
		return nil
	case 1:
		return fields[0]
	}
	out := make(Fields)
	for _, f := range fields {
		for k, v := range f {
			out[k] = v
		}
	}
	return out
}

func (l *logrusLogger) Debug(msg string, fields ...Fields) { l.Log(LevelDebug, msg, merge(fields)) }
func (l *logrusLogger) Info(msg string, fields ...Fields)  { l.Log(LevelInfo, msg, merge(fields)) }
func (l *logrusLogger) Warn(msg string, fields ...Fields)  { l.Log(LevelWarn, msg, merge(fields)) }
func (l *logrusLogger) Error(msg string, fields ...Fields) { l.Log(LevelError, msg, merge(fields)) }
