package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSkippedFile(t *testing.T) {
	tests := map[string]bool{
		"/media/movie.mkv":       false,
		"/media/song.FLAC":       false,
		"/media/.DS_Store":       true,
		"/media/movie.nfo":       true,
		"/media/movie.mkv.part":  true,
		"/media/poster.JPG":      true,
		"/media/no-extension":    false,
		"/media/.hidden.mp4":     true,
		"/media/download.tmp":    true,
		"relative/dir/clip.webm": false,
	}

	for path, want := range tests {
		assert.Equal(t, want, IsSkippedFile(path), path)
	}
}

func TestIsWithin(t *testing.T) {
	assert.True(t, IsWithin("/srv/unprocessed", "/srv/unprocessed/movie.mkv"))
	assert.True(t, IsWithin("/srv/unprocessed", "/srv/unprocessed/a/b.mkv"))
	assert.True(t, IsWithin("/srv/unprocessed", "/srv/unprocessed"))
	assert.True(t, IsWithin("/srv/unprocessed", "/srv/unprocessed/..movie.mkv"))
	assert.False(t, IsWithin("/srv/unprocessed", "/srv/processed/movie.mkv"))
	assert.False(t, IsWithin("/srv/unprocessed", "/srv/unprocessed-other/movie.mkv"))
	assert.False(t, IsWithin("/srv/unprocessed", "/srv"))
}

func TestUUIDHelpers(t *testing.T) {
	id := GenerateUUID()
	assert.True(t, IsValidUUID(id))
	assert.False(t, IsValidUUID("not-a-uuid"))

	canonical, err := CanonicalUUID("{" + id + "}")
	assert.NoError(t, err)
	assert.Equal(t, id, canonical)

	_, err = CanonicalUUID("nope")
	assert.Error(t, err)
}
