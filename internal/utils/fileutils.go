// Package utils provides file system helpers, id generation and a bounded
// worker pool shared by the media inventory and session code.
package utils

import (
	"path/filepath"
	"strings"
)

// SkippedExtensions contains file extensions that should never be probed.
// These are metadata, partial downloads and intermediate files that sit next
// to media but are not media themselves.
var SkippedExtensions = map[string]bool{
	// Media server metadata and cache files
	".nfo":   true, // Media info files (Kodi, Plex, etc.)
	".xml":   true, // Metadata files
	".plist": true, // Property list files (macOS media metadata)
	".meta":  true, // Generic metadata files
	".info":  true, // Info files
	".txt":   true,
	".jpg":   true, // Posters and fan art
	".png":   true,

	// Partial and temporary files
	".temp":       true,
	".tmp":        true,
	".part":       true, // Partial download files
	".crdownload": true, // Chrome partial downloads
	".download":   true, // Generic partial downloads
}

// IsSkippedFile returns true if a file should be skipped when listing media,
// either because of its extension or because it is hidden.
func IsSkippedFile(filePath string) bool {
	base := filepath.Base(filePath)
	if strings.HasPrefix(base, ".") {
		return true
	}
	ext := strings.ToLower(filepath.Ext(base))
	return SkippedExtensions[ext]
}

// IsWithin reports whether path is root or lies beneath it. Both paths must
// already be absolute and cleaned.
func IsWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
