package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticActive []string

func (a staticActive) ActiveMedia() []string { return a }

func touch(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("12345"), 0644))
	mtime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func TestSweep(t *testing.T) {
	dir := t.TempDir()
	oldSplit := touch(t, dir, "movie-split-vid-0.mp4", 48*time.Hour)
	oldFrag := touch(t, dir, "movie-split-vid-0-f.mp4", 48*time.Hour)
	fresh := touch(t, dir, "show-split-aud-1.mp4", time.Minute)
	busy := touch(t, dir, "running-split-sub-2.vtt", 48*time.Hour)
	other := touch(t, dir, "unrelated.mp4", 48*time.Hour)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir-split-vid-0"), 0755))

	svc := NewService(Config{TempDir: dir, Retention: 24 * time.Hour}, staticActive{"running"}, hclog.NewNullLogger())
	stats, err := svc.Sweep()
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Scanned)
	assert.Equal(t, 2, stats.Removed)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, int64(10), stats.FreedSize)

	assert.NoFileExists(t, oldSplit)
	assert.NoFileExists(t, oldFrag)
	assert.FileExists(t, fresh)
	assert.FileExists(t, busy)
	assert.FileExists(t, other)
}

func TestSweep_ZeroRetentionRemovesIdle(t *testing.T) {
	dir := t.TempDir()
	path := touch(t, dir, "movie-split-aud-1.mp4", time.Second)

	svc := NewService(Config{TempDir: dir}, nil, nil)
	stats, err := svc.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Removed)
	assert.NoFileExists(t, path)
}

func TestSweep_MissingDir(t *testing.T) {
	svc := NewService(Config{TempDir: filepath.Join(t.TempDir(), "absent")}, nil, nil)
	_, err := svc.Sweep()
	assert.Error(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	path := touch(t, dir, "movie-split-vid-0.mp4", time.Hour)

	svc := NewService(Config{TempDir: dir, Retention: time.Minute, Interval: time.Hour}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
