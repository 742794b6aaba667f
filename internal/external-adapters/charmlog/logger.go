// Package charmlog adapts charmbracelet/log to the domain Logger contract.
package charmlog

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/ochairo/piko/internal/domain/interfaces"
)

// Logger writes leveled, structured logs through charmbracelet/log
type Logger struct {
	l *log.Logger
}

// New creates a logger writing to w. level is one of debug, info, warn or error;
// unknown levels fall back to info.
func New(w io.Writer, prefix, level string) *Logger {
	l := log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		ReportTimestamp: true,
	})

	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = log.InfoLevel
	}
	l.SetLevel(lvl)

	return &Logger{l: l}
}

// With returns a logger that adds fields to every entry
func (c *Logger) With(fields ...interfaces.Field) *Logger {
	return &Logger{l: c.l.With(keyvals(fields)...)}
}

// Debug logs debug-level messages
func (c *Logger) Debug(msg string, fields ...interfaces.Field) {
	c.l.Debug(msg, keyvals(fields)...)
}

// Info logs informational messages
func (c *Logger) Info(msg string, fields ...interfaces.Field) {
	c.l.Info(msg, keyvals(fields)...)
}

// Warn logs warning messages
func (c *Logger) Warn(msg string, fields ...interfaces.Field) {
	c.l.Warn(msg, keyvals(fields)...)
}

// Error logs error messages
func (c *Logger) Error(msg string, fields ...interfaces.Field) {
	c.l.Error(msg, keyvals(fields)...)
}

func keyvals(fields []interfaces.Field) []interface{} {
	kv := make([]interface{}, 0, len(fields)*2)
	for _, f := range fields {
		kv = append(kv, f.Key, f.Value)
	}
	return kv
}
