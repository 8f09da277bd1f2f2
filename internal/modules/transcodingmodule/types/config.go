// Package types provides types and interfaces for the transcoding module.
package types

import (
	"os"
	"path/filepath"
	"time"
)

// ToolPaths maps the external programs the pipeline runs to executables.
type ToolPaths struct {
	FFmpeg      string
	FFprobe     string
	MP4Fragment string
	MP4Dash     string
}

// Config holds configuration for the transcoding module
type Config struct {
	// UnprocessedDir holds source media waiting for conversion
	UnprocessedDir string

	// ProcessedDir receives one DASH package directory per source
	ProcessedDir string

	// TempDir holds intermediate encoder and fragmenter output
	TempDir string

	// Tools locates the external binaries
	Tools ToolPaths

	// FlushEvery is the number of telemetry updates between snapshot flushes
	FlushEvery int

	// WatchLibrary enables fsnotify invalidation of cached probes
	WatchLibrary bool

	// ProbeWorkers bounds concurrent ffprobe runs when listing a directory
	ProbeWorkers int

	// CleanupAfter is the age at which idle intermediates are removed
	CleanupAfter time.Duration

	// CleanupInterval is the temp dir sweep period; zero disables it
	CleanupInterval time.Duration
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		UnprocessedDir: "unprocessed",
		ProcessedDir:   "processed",
		TempDir:        filepath.Join(os.TempDir(), "streamin"),
		Tools: ToolPaths{
			FFmpeg:      "ffmpeg",
			FFprobe:     "ffprobe",
			MP4Fragment: "mp4fragment",
			MP4Dash:     "mp4dash",
		},
		FlushEvery:      25,
		WatchLibrary:    true,
		ProbeWorkers:    4,
		CleanupAfter:    24 * time.Hour,
		CleanupInterval: time.Hour,
	}
}
