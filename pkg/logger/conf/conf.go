// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package conf

import (
	"fmt"
	"strings"
)

// Level is the logging severity.
type Level uint32

const (
	TraceLevel Level = iota
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

func (l Level) String() string {
	switch l {
	case TraceLevel:
		return "trace"
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	case FatalLevel:
		return "fatal"
	}
	return "unknown"
}

// ParseLevel converts a config string into a Level. Unknown strings
// default to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return TraceLevel
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	default:
		return InfoLevel
	}
}

// Output selects the log sink.
type Output string

const (
	OutputStdout Output = "stdout"
	OutputFile   Output = "file"
	OutputBoth   Output = "both"
)

// FileConfig controls the rotated file sink.
type FileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

// LogConfig is the full logging configuration.
type LogConfig struct {
	Core      string     `yaml:"core"`
	Level     Level      `yaml:"level"`
	Formatter Formatter  `yaml:"formatter"`
	Output    Output     `yaml:"output"`
	File      FileConfig `yaml:"file"`
}

// DefaultConfig logs info and above to stdout in console form.
func DefaultConfig() *LogConfig {
	return &LogConfig{
		Core:      "logrus",
		Level:     InfoLevel,
		Formatter: ConsoleFormater,
		Output:    OutputStdout,
		File: FileConfig{
			Path:       "praxis.log",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
	}
}

// Validate checks the sink and formatter selections.
func (c *LogConfig) Validate() error {
	if !isValidFormatter(c.Formatter) {
		return fmt.Errorf("invalid log formatter %q", c.Formatter)
	}
	switch c.Output {
	case OutputStdout, OutputFile, OutputBoth, "":
	default:
		return fmt.Errorf("invalid log output %q", c.Output)
	}
	if (c.Output == OutputFile || c.Output == OutputBoth) && c.File.Path == "" {
		return fmt.Errorf("file output requires a path")
	}
	return nil
}
