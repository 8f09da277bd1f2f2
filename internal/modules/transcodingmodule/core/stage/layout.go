package stage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TrackKind is the track tag embedded in split file names.
type TrackKind string

const (
	TrackVideo    TrackKind = "vid"
	TrackAudio    TrackKind = "aud"
	TrackSubtitle TrackKind = "sub"
)

const (
	splitMarker    = "-split-"
	fragmentSuffix = "-f.mp4"

	// ManifestName is the DASH manifest written into every package directory.
	ManifestName = "manifest.mpd"
)

// Layout names every intermediate and final path of a conversion.
//
// Split outputs live in TempDir:      <stem>-split-<vid|aud|sub>-<index>.<mp4|vtt>
// Fragmented outputs live in TempDir: <stem of input>-f.mp4
// Packages live in ProcessedDir:      <media name>/
type Layout struct {
	TempDir      string
	ProcessedDir string
}

// NewLayout returns a layout using the system temp directory.
func NewLayout(processedDir string) Layout {
	return Layout{TempDir: os.TempDir(), ProcessedDir: processedDir}
}

func (l Layout) tempDir() string {
	if l.TempDir == "" {
		return os.TempDir()
	}
	return l.TempDir
}

// Split returns the encoder output path for one track of source.
func (l Layout) Split(source string, kind TrackKind, index int) string {
	ext := ".mp4"
	if kind == TrackSubtitle {
		ext = ".vtt"
	}
	name := fmt.Sprintf("%s%s%s-%d%s", Stem(source), splitMarker, kind, index, ext)
	return filepath.Join(l.tempDir(), name)
}

// Fragment returns the fragmenter output path for input.
func (l Layout) Fragment(input string) string {
	return filepath.Join(l.tempDir(), Stem(input)+fragmentSuffix)
}

// PackageDir returns the packager output directory for a set of inputs
// whose first entry is input.
func (l Layout) PackageDir(input string) string {
	return filepath.Join(l.ProcessedDir, MediaName(input))
}

// Stem returns the file name of path without its final extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsIntermediate reports whether path is a split or fragment output.
func IsIntermediate(path string) bool {
	return strings.Contains(Stem(path), splitMarker)
}

// MediaName recovers the source stem from a split or fragment path. Paths
// that were not produced by Layout return their plain stem.
func MediaName(path string) string {
	stem := Stem(path)
	if i := strings.LastIndex(stem, splitMarker); i > 0 {
		return stem[:i]
	}
	return stem
}
