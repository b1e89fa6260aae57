package core

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Logger is the structured logger used across the application. Args are
// alternating keys and values.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NewNoopLogger returns a logger that discards everything.
func NewNoopLogger() Logger { return noopLogger{} }

type logrusLogger struct {
	l *logrus.Logger
}

// NewLogrusLogger returns a JSON logger writing to out at the named level.
func NewLogrusLogger(out io.Writer, level string) (Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetOutput(out)
	l.SetLevel(lvl)
	return logrusLogger{l: l}, nil
}

func (g logrusLogger) Debug(msg string, args ...any) { g.l.WithFields(fields(args)).Debug(msg) }
func (g logrusLogger) Info(msg string, args ...any)  { g.l.WithFields(fields(args)).Info(msg) }
func (g logrusLogger) Warn(msg string, args ...any)  { g.l.WithFields(fields(args)).Warn(msg) }
func (g logrusLogger) Error(msg string, args ...any) { g.l.WithFields(fields(args)).Error(msg) }

// fields pairs up args; a trailing key without a value is kept under
// "!BADKEY".
func fields(args []any) logrus.Fields {
	f := make(logrus.Fields, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		if i+1 == len(args) {
			f["!BADKEY"] = args[i]
			break
		}
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		v := args[i+1]
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		f[key] = v
	}
	return f
}
