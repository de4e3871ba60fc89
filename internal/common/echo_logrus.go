package common

import (
	"context"
	"encoding/json"
	"io"

	"github.com/labstack/gommon/log"
	"github.com/sirupsen/logrus"
)

// EchoLogrusLogger lets echo log through logrus. Entries carry the
// operation and external ids of the request the logger was created for.
type EchoLogrusLogger struct {
	entry *logrus.Entry
}

// NewEchoLogrusLogger returns a logger writing to logger, annotated with the
// correlation ids found in ctx.
func NewEchoLogrusLogger(logger *logrus.Logger, ctx context.Context) *EchoLogrusLogger {
	fields := logrus.Fields{}
	if oid := OperationID(ctx); oid != "" {
		fields["operation_id"] = oid
	}
	if eid := ExternalID(ctx); eid != "" {
		fields["external_id"] = eid
	}
	return &EchoLogrusLogger{
		entry: logger.WithContext(ctx).WithFields(fields),
	}
}

// Entry exposes the annotated logrus entry for handlers that want
// structured fields.
func (l *EchoLogrusLogger) Entry() *logrus.Entry {
	return l.entry
}

func toEchoLevel(level logrus.Level) log.Lvl {
	switch level {
	case logrus.DebugLevel, logrus.TraceLevel:
		return log.DEBUG
	case logrus.InfoLevel:
		return log.INFO
	case logrus.WarnLevel:
		return log.WARN
	case logrus.ErrorLevel:
		return log.ERROR
	}

	return log.OFF
}

func (l *EchoLogrusLogger) logj(level logrus.Level, j log.JSON) {
	b, err := json.Marshal(j)
	if err != nil {
		l.entry.WithError(err).Error("cannot marshal log fields")
		return
	}
	l.entry.Log(level, string(b))
}

func (l *EchoLogrusLogger) Output() io.Writer {
	return l.entry.Logger.Out
}

// The output, level and header belong to the shared logrus logger, echo
// must not change them.
func (l *EchoLogrusLogger) SetOutput(w io.Writer) {}
func (l *EchoLogrusLogger) SetLevel(v log.Lvl)    {}
func (l *EchoLogrusLogger) SetHeader(h string)    {}
func (l *EchoLogrusLogger) SetPrefix(p string)    {}

func (l *EchoLogrusLogger) Level() log.Lvl {
	return toEchoLevel(l.entry.Logger.GetLevel())
}

func (l *EchoLogrusLogger) Prefix() string {
	return ""
}

func (l *EchoLogrusLogger) Print(i ...interface{})                    { l.entry.Print(i...) }
func (l *EchoLogrusLogger) Printf(format string, args ...interface{}) { l.entry.Printf(format, args...) }
func (l *EchoLogrusLogger) Printj(j log.JSON)                         { l.logj(logrus.InfoLevel, j) }

func (l *EchoLogrusLogger) Debug(i ...interface{})                    { l.entry.Debug(i...) }
func (l *EchoLogrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *EchoLogrusLogger) Debugj(j log.JSON)                         { l.logj(logrus.DebugLevel, j) }

func (l *EchoLogrusLogger) Info(i ...interface{})                    { l.entry.Info(i...) }
func (l *EchoLogrusLogger) Infof(format string, args ...interface{}) { l.entry.Infof(format, args...) }
func (l *EchoLogrusLogger) Infoj(j log.JSON)                         { l.logj(logrus.InfoLevel, j) }

func (l *EchoLogrusLogger) Warn(i ...interface{})                    { l.entry.Warn(i...) }
func (l *EchoLogrusLogger) Warnf(format string, args ...interface{}) { l.entry.Warnf(format, args...) }
func (l *EchoLogrusLogger) Warnj(j log.JSON)                         { l.logj(logrus.WarnLevel, j) }

func (l *EchoLogrusLogger) Error(i ...interface{})                    { l.entry.Error(i...) }
func (l *EchoLogrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
func (l *EchoLogrusLogger) Errorj(j log.JSON)                         { l.logj(logrus.ErrorLevel, j) }

func (l *EchoLogrusLogger) Fatal(i ...interface{})                    { l.entry.Fatal(i...) }
func (l *EchoLogrusLogger) Fatalf(format string, args ...interface{}) { l.entry.Fatalf(format, args...) }
func (l *EchoLogrusLogger) Fatalj(j log.JSON)                         { l.logj(logrus.FatalLevel, j) }

func (l *EchoLogrusLogger) Panic(i ...interface{})                    { l.entry.Panic(i...) }
func (l *EchoLogrusLogger) Panicf(format string, args ...interface{}) { l.entry.Panicf(format, args...) }
func (l *EchoLogrusLogger) Panicj(j log.JSON)                         { l.logj(logrus.PanicLevel, j) }
