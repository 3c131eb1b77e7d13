package logger

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/sirupsen/logrus"
)

type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string, err error)
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
}

type SimpleLogger struct {
	fields map[string]interface{}
}

func NewSimple() Logger {
	return &SimpleLogger{
		fields: make(map[string]interface{}),
	}
}

func (l *SimpleLogger) Debug(msg string) {
	l.logf("DEBUG", msg)
}

func (l *SimpleLogger) Info(msg string) {
	l.logf("INFO", msg)
}

func (l *SimpleLogger) Warn(msg string) {
	l.logf("WARN", msg)
}

func (l *SimpleLogger) logf(level, msg string) {
	if len(l.fields) > 0 {
		log.Printf("%s: %s %v", level, msg, l.fields)
	} else {
		log.Printf("%s: %s", level, msg)
	}
}

func (l *SimpleLogger) Error(msg string, err error) {
	if len(l.fields) > 0 {
		fmt.Fprintf(os.Stderr, "ERROR: %s: %v %v\n", msg, err, l.fields)
	} else {
		fmt.Fprintf(os.Stderr, "ERROR: %s: %v\n", msg, err)
	}
}

func (l *SimpleLogger) WithField(key string, value interface{}) Logger {
	newFields := make(map[string]interface{})
	for k, v := range l.fields {
		newFields[k] = v
	}
	newFields[key] = value

	return &SimpleLogger{fields: newFields}
}

func (l *SimpleLogger) WithFields(fields map[string]interface{}) Logger {
	newFields := make(map[string]interface{})
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}

	return &SimpleLogger{fields: newFields}
}

type LogrusLogger struct {
	logger *logrus.Logger
	entry  *logrus.Entry
}

// NewLogrus builds the production logger. Level is one of debug, info,
// warn, error (unknown strings fall back to info); format selects text
// or json output.
func NewLogrus(level, format string) Logger {
	logger := logrus.New()

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return &LogrusLogger{
		logger: logger,
		entry:  logrus.NewEntry(logger),
	}
}

// NewNop returns a logger that discards everything. Handy in tests.
func NewNop() Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &LogrusLogger{
		logger: logger,
		entry:  logrus.NewEntry(logger),
	}
}

func (l *LogrusLogger) Debug(msg string) {
	l.entry.Debug(msg)
}

func (l *LogrusLogger) Info(msg string) {
	l.entry.Info(msg)
}

func (l *LogrusLogger) Warn(msg string) {
	l.entry.Warn(msg)
}

func (l *LogrusLogger) Error(msg string, err error) {
	l.entry.WithError(err).Error(msg)
}

func (l *LogrusLogger) WithField(key string, value interface{}) Logger {
	return &LogrusLogger{
		logger: l.logger,
		entry:  l.entry.WithField(key, value),
	}
}

func (l *LogrusLogger) WithFields(fields map[string]interface{}) Logger {
	return &LogrusLogger{
		logger: l.logger,
		entry:  l.entry.WithFields(fields),
	}
}
