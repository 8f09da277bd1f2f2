package library

import (
	"os"
	"path/filepath"
	"testing"

	errs "github.com/mantonx/streamin/internal/modules/transcodingmodule/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePackageFile(t *testing.T) {
	root := t.TempDir()
	pkg := filepath.Join(root, "movie")
	require.NoError(t, os.MkdirAll(filepath.Join(pkg, "video"), 0755))
	writeFile(t, filepath.Join(pkg, "manifest.mpd"))
	writeFile(t, filepath.Join(pkg, "video", "seg-1.m4s"))
	writeFile(t, filepath.Join(root, "secret.txt"))

	path, err := ResolvePackageFile(root, "movie", "/manifest.mpd")
	require.NoError(t, err)
	assert.Equal(t, "manifest.mpd", filepath.Base(path))

	_, err = ResolvePackageFile(root, "movie", "video/seg-1.m4s")
	assert.NoError(t, err)

	rejected := []struct{ name, file string }{
		{"movie", "/../secret.txt"},
		{"movie", "/"},
		{"movie", "/video"},
		{"movie", "/absent.m4s"},
		{"..", "/secret.txt"},
		{"movie/video", "/seg-1.m4s"},
		{"", "/manifest.mpd"},
	}
	for _, tt := range rejected {
		_, err := ResolvePackageFile(root, tt.name, tt.file)
		assert.ErrorIs(t, err, errs.ErrMediaNotFound, "%s %s", tt.name, tt.file)
	}
}

func TestResolvePackageFile_RejectsSymlinkOutOfPackage(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "leak.mpd"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "movie"), 0755))
	require.NoError(t, os.Symlink(filepath.Join(outside, "leak.mpd"), filepath.Join(root, "movie", "manifest.mpd")))

	_, err := ResolvePackageFile(root, "movie", "/manifest.mpd")
	assert.ErrorIs(t, err, errs.ErrMediaNotFound)
}
