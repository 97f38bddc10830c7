// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

// Package logrus adapts sirupsen/logrus to the logger contract. File sinks
// rotate through lumberjack.
package logrus

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/maraxen/pylabpraxis-sub002/pkg/logger"
	"github.com/maraxen/pylabpraxis-sub002/pkg/logger/conf"
)

type logrusWrapper struct {
	entry *logrus.Entry
}

// NewLogrusWrapper builds a logger.Logger on a dedicated *logrus.Logger so
// independent instances never share formatters or sinks.
func NewLogrusWrapper(c *conf.LogConfig) (logger.Logger, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	l := logrus.New()
	l.SetLevel(toLogrusLevel(c.Level))
	l.SetFormatter(toLogrusFormatter(c.Formatter))
	l.SetOutput(buildOutput(c))
	return &logrusWrapper{entry: logrus.NewEntry(l)}, nil
}

func (w *logrusWrapper) Logf(level conf.Level, format string, args ...interface{}) {
	w.entry.Logf(toLogrusLevel(level), format, args...)
}

func (w *logrusWrapper) Log(level conf.Level, args ...interface{}) {
	w.entry.Log(toLogrusLevel(level), args...)
}

func (w *logrusWrapper) WithFields(fields map[string]interface{}) logger.Logger {
	return &logrusWrapper{entry: w.entry.WithFields(logrus.Fields(fields))}
}

func toLogrusLevel(level conf.Level) logrus.Level {
	switch level {
	case conf.TraceLevel:
		return logrus.TraceLevel
	case conf.DebugLevel:
		return logrus.DebugLevel
	case conf.InfoLevel:
		return logrus.InfoLevel
	case conf.WarnLevel:
		return logrus.WarnLevel
	case conf.ErrorLevel:
		return logrus.ErrorLevel
	case conf.FatalLevel:
		return logrus.FatalLevel
	}
	return logrus.InfoLevel
}

func toLogrusFormatter(f conf.Formatter) logrus.Formatter {
	switch f {
	case conf.JSONFormater, conf.StructuredFormater:
		return &logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"}
	default:
		return &logrus.TextFormatter{FullTimestamp: true}
	}
}

func buildOutput(c *conf.LogConfig) io.Writer {
	switch c.Output {
	case conf.OutputFile:
		return fileWriter(c)
	case conf.OutputBoth:
		return io.MultiWriter(os.Stdout, fileWriter(c))
	default:
		return os.Stdout
	}
}

func fileWriter(c *conf.LogConfig) io.Writer {
	return &lumberjack.Logger{
		Filename:   c.File.Path,
		MaxSize:    c.File.MaxSizeMB,
		MaxBackups: c.File.MaxBackups,
		MaxAge:     c.File.MaxAgeDays,
		Compress:   c.File.Compress,
	}
}
