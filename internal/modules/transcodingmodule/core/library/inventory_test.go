package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/ffmpeg"
	errs "github.com/mantonx/streamin/internal/modules/transcodingmodule/errors"
	"github.com/mantonx/streamin/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProber accepts files whose name is registered in probes.
type fakeProber struct {
	mu     sync.Mutex
	probes map[string]*ffmpeg.MediaProbe
	calls  map[string]int
}

func newFakeProber() *fakeProber {
	return &fakeProber{probes: map[string]*ffmpeg.MediaProbe{}, calls: map[string]int{}}
}

func (f *fakeProber) Probe(ctx context.Context, path string) (*ffmpeg.MediaProbe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[path]++
	probe, ok := f.probes[filepath.Base(path)]
	if !ok {
		return nil, errs.ProbeError("probe", errors.New("invalid data found"))
	}
	copied := *probe
	copied.Path = path
	return &copied, nil
}

func (f *fakeProber) callCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func newTestInventory(t *testing.T, prober Prober) *Inventory {
	t.Helper()
	pool := utils.NewWorkerPool(2)
	pool.Start()
	t.Cleanup(pool.Stop)

	inv := NewInventory(prober, pool, nil)
	inv.titles = func(string) string { return "" }
	return inv
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("data"), 0644))
}

func TestInventory_List(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b-movie.mkv"))
	writeFile(t, filepath.Join(dir, "a-song.flac"))
	writeFile(t, filepath.Join(dir, "notes.nfo"))
	writeFile(t, filepath.Join(dir, "broken.avi"))
	writeFile(t, filepath.Join(dir, "package", "manifest.mpd"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "empty"), 0755))

	prober := newFakeProber()
	prober.probes["b-movie.mkv"] = &ffmpeg.MediaProbe{
		Duration: 90 * time.Second,
		Streams: []ffmpeg.Stream{
			{Index: 0, CodecType: ffmpeg.CodecTypeVideo, CodecName: "hevc", Tags: ffmpeg.Tags{Title: "B Movie"}},
			{Index: 1, CodecType: ffmpeg.CodecTypeAudio, CodecName: "ac3"},
		},
	}
	prober.probes["a-song.flac"] = &ffmpeg.MediaProbe{
		Duration: 3 * time.Second,
		Streams:  []ffmpeg.Stream{{Index: 0, CodecType: ffmpeg.CodecTypeAudio, CodecName: "flac"}},
	}
	prober.probes["manifest.mpd"] = &ffmpeg.MediaProbe{
		Duration: time.Second,
		Streams:  []ffmpeg.Stream{{Index: 0, CodecType: ffmpeg.CodecTypeVideo, CodecName: "h264"}},
	}

	inv := newTestInventory(t, prober)
	items, err := inv.List(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "a-song.flac", items[0].FileTitle)
	assert.Equal(t, "flac", items[0].AudioCodec)
	assert.Empty(t, items[0].VideoCodec)

	movie := items[1]
	assert.Equal(t, "b-movie.mkv", movie.FileTitle)
	assert.Equal(t, "hevc", movie.VideoCodec)
	assert.Equal(t, "ac3", movie.AudioCodec)
	assert.Equal(t, "B Movie", movie.MetaTitle)
	assert.Equal(t, 90.0, movie.Duration)
	assert.Equal(t, EncodeID(filepath.Join(dir, "b-movie.mkv")), movie.ID)

	assert.Equal(t, "manifest.mpd", items[2].FileTitle)
	assert.Equal(t, filepath.Join(dir, "package", "manifest.mpd"), items[2].Path)

	assert.Zero(t, prober.callCount(filepath.Join(dir, "notes.nfo")))
}

func TestInventory_ListMissingDir(t *testing.T) {
	inv := newTestInventory(t, newFakeProber())
	_, err := inv.List(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeStorage, errs.GetType(err))
}

func TestInventory_ProbeIsCachedUntilFileChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	writeFile(t, path)

	prober := newFakeProber()
	prober.probes["clip.mp4"] = &ffmpeg.MediaProbe{Streams: []ffmpeg.Stream{{CodecType: ffmpeg.CodecTypeVideo}}}
	inv := newTestInventory(t, prober)

	_, err := inv.Probe(context.Background(), path)
	require.NoError(t, err)
	_, err = inv.Probe(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, prober.callCount(path))

	require.NoError(t, os.WriteFile(path, []byte("longer data"), 0644))
	_, err = inv.Probe(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, prober.callCount(path))

	inv.Cache().Evict(dir)
	assert.Equal(t, 0, inv.Cache().Len())
}

func TestInventory_DescribeFallsBackToContainerTitle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track.m4a")
	writeFile(t, path)

	prober := newFakeProber()
	prober.probes["track.m4a"] = &ffmpeg.MediaProbe{Streams: []ffmpeg.Stream{{CodecType: ffmpeg.CodecTypeAudio, CodecName: "aac"}}}
	inv := newTestInventory(t, prober)
	inv.titles = func(p string) string { return "From Tags" }

	info, err := inv.Describe(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "From Tags", info.MetaTitle)
}

func TestReadContainerTitle_NonTaggedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain.mkv")
	writeFile(t, path)

	assert.Equal(t, "", ReadContainerTitle(path))
	assert.Equal(t, "", ReadContainerTitle(filepath.Join(dir, "missing.mp3")))
}

func TestIDRoundTripAndResolve(t *testing.T) {
	root := t.TempDir()
	inside := filepath.Join(root, "my movie?.mkv")
	writeFile(t, inside)
	outside := filepath.Join(t.TempDir(), "other.mkv")
	writeFile(t, outside)

	rootReal, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)

	decoded, err := DecodeID(EncodeID(inside))
	require.NoError(t, err)
	assert.Equal(t, inside, decoded)

	resolved, err := Resolve(EncodeID(inside), root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(rootReal, "my movie?.mkv"), resolved)

	cases := map[string]string{
		"outside root":   EncodeID(outside),
		"missing file":   EncodeID(filepath.Join(root, "gone.mkv")),
		"root itself":    EncodeID(root),
		"escape via dot": EncodeID(filepath.Join(root, "..", filepath.Base(root), "..", "x.mkv")),
		"not base64":     "%%%",
		"empty":          "",
	}
	for name, id := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Resolve(id, root)
			assert.True(t, errors.Is(err, errs.ErrMediaNotFound), "got %v", err)
		})
	}
}

func TestResolve_RejectsSymlinkOutOfRoot(t *testing.T) {
	root := t.TempDir()
	outside := filepath.Join(t.TempDir(), "secret.mkv")
	writeFile(t, outside)

	link := filepath.Join(root, "link.mkv")
	if err := os.Symlink(outside, link); err != nil {
		t.Skip("symlinks not supported")
	}

	_, err := Resolve(EncodeID(link), root)
	assert.True(t, errors.Is(err, errs.ErrMediaNotFound))
}

func TestDecodeID_AcceptsStandardAlphabet(t *testing.T) {
	path := "/srv/unprocessed/a.mkv"
	decoded, err := DecodeID("L3Nydi91bnByb2Nlc3NlZC9hLm1rdg==")
	require.NoError(t, err)
	assert.Equal(t, path, decoded)
}
