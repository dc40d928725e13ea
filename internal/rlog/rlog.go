// Package rlog centralizes logrus setup for the mount binary, plus a
// WithOp helper that attaches a structured op field to a log entry.
//
// Grounded on rclone's own use of logrus (github.com/sirupsen/logrus
// appears directly in rclone's go.mod) for the library choice, and on
// dittofs's internal/logger package for the terminal-detection-driven
// text/JSON format switch, adapted here from slog handlers to a logrus
// formatter.
package rlog

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds a logrus logger writing structured (text, for a terminal;
// JSON when not) output to stderr at the given level name ("debug",
// "info", "warn", "error"; unrecognized defaults to "info").
func New(levelName string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(parseLevel(levelName))

	if isTerminal(os.Stderr) {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}

func parseLevel(name string) logrus.Level {
	level, err := logrus.ParseLevel(strings.ToLower(name))
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// isTerminal is a narrow, dependency-free stand-in for golang.org/x/term's
// IsTerminal: good enough to pick a human-friendly vs. machine-friendly
// formatter without adding another module for one call site.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// WithOp returns an Entry pre-populated with the operation name field.
func WithOp(log *logrus.Logger, op string) *logrus.Entry {
	return log.WithField("op", op)
}
