// Package logger builds the process-wide hclog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/streamin/internal/config"
)

var (
	root   hclog.Logger = hclog.New(&hclog.LoggerOptions{Name: "streamin", Level: hclog.Info})
	rootMu sync.RWMutex
)

// New creates the root logger described by cfg, writing to stderr.
func New(cfg config.LoggingConfig) hclog.Logger {
	return NewWithOutput(cfg, os.Stderr)
}

// NewWithOutput is New with an explicit destination.
func NewWithOutput(cfg config.LoggingConfig, out io.Writer) hclog.Logger {
	opts := &hclog.LoggerOptions{
		Name:       "streamin",
		Level:      ParseLevel(cfg.Level),
		Output:     out,
		JSONFormat: strings.EqualFold(cfg.Format, "json"),
	}
	if !opts.JSONFormat {
		opts.Color = hclog.AutoColor
	}
	return hclog.New(opts)
}

// ParseLevel maps a configured level name to an hclog level. Unknown names
// fall back to info.
func ParseLevel(level string) hclog.Level {
	l := hclog.LevelFromString(level)
	if l == hclog.NoLevel {
		return hclog.Info
	}
	return l
}

// SetDefault replaces the logger used by the package level helpers.
func SetDefault(l hclog.Logger) {
	rootMu.Lock()
	defer rootMu.Unlock()
	root = l
}

// Default returns the process-wide logger.
func Default() hclog.Logger {
	rootMu.RLock()
	defer rootMu.RUnlock()
	return root
}

// Info logs informational messages with key/value pairs
func Info(msg string, args ...interface{}) {
	Default().Info(msg, args...)
}

// Warn logs warning messages
func Warn(msg string, args ...interface{}) {
	Default().Warn(msg, args...)
}

// Error logs error messages
func Error(msg string, args ...interface{}) {
	Default().Error(msg, args...)
}

// Debug logs debug messages
func Debug(msg string, args ...interface{}) {
	Default().Debug(msg, args...)
}
