package stage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	errs "github.com/mantonx/streamin/internal/modules/transcodingmodule/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackaging_BuildTagsTracks(t *testing.T) {
	layout := Layout{TempDir: "/tmp/work", ProcessedDir: "/srv/processed"}
	source := "/srv/unprocessed/movie.mkv"

	files := []string{
		layout.Fragment(layout.Split(source, TrackVideo, 0)),
		layout.Fragment(layout.Split(source, TrackAudio, 1)),
		layout.Fragment(layout.Split(source, TrackAudio, 2)),
		layout.Split(source, TrackSubtitle, 3),
	}

	inv, err := NewPackaging(layout, files).Build()
	require.NoError(t, err)

	assert.Equal(t, ToolMP4Dash, inv.Binary)
	assert.Equal(t, "/srv/processed/movie", inv.Output)
	assert.Equal(t, []string{
		"-o", "/srv/processed/movie",
		"--mpd-name=manifest.mpd",
		"--use-segment-timeline",
		"/tmp/work/movie-split-vid-0-f.mp4",
		"[+language=1]/tmp/work/movie-split-aud-1-f.mp4",
		"[+language=2]/tmp/work/movie-split-aud-2-f.mp4",
		"[+format=webvtt]/tmp/work/movie-split-sub-3.vtt",
	}, inv.Args)
}

func TestPackaging_SetOutDir(t *testing.T) {
	dir := t.TempDir()
	p := NewPackaging(Layout{}, []string{"/tmp/a-split-vid-0-f.mp4"})

	err := p.SetOutDir(dir)
	assert.True(t, errors.Is(err, errs.ErrDirectoryExists))

	err = p.SetOutDir(filepath.Join(dir, "manifest.mpd"))
	assert.True(t, errors.Is(err, errs.ErrNotDirectory))

	target := filepath.Join(dir, "out")
	require.NoError(t, p.SetOutDir(target))
	assert.Equal(t, target, p.OutDir())

	// created after configuration: rejected at build time
	require.NoError(t, os.Mkdir(target, 0755))
	_, err = p.Build()
	assert.True(t, errors.Is(err, errs.ErrDirectoryExists))
}

func TestPackaging_RequiresInputs(t *testing.T) {
	p := NewPackaging(Layout{}, nil)
	err := p.Validate()
	assert.True(t, errors.Is(err, errs.ErrNoInputs))
	assert.Equal(t, "", p.OutDir())
	assert.False(t, p.ToleratesFailure())
}
