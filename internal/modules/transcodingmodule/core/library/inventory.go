// Package library lists and resolves the media files the service converts.
//
// Every file that ffprobe accepts is a media item. Items are addressed by an
// opaque id, the URL-safe base64 encoding of the absolute path, and probe
// results are cached per path until the file changes.
package library

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/ffmpeg"
	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/stage"
	errs "github.com/mantonx/streamin/internal/modules/transcodingmodule/errors"
	"github.com/mantonx/streamin/internal/utils"
)

// Prober extracts stream information from a media file.
type Prober interface {
	Probe(ctx context.Context, path string) (*ffmpeg.MediaProbe, error)
}

// MediaInfo is the listing entry for one media item.
type MediaInfo struct {
	ID         string  `json:"id"`
	VideoCodec string  `json:"video_codec,omitempty"`
	AudioCodec string  `json:"audio_codec,omitempty"`
	MetaTitle  string  `json:"meta_title,omitempty"`
	FileTitle  string  `json:"file_title"`
	Duration   float64 `json:"duration"` // seconds

	Path string `json:"-"`
}

// EncodeID returns the id for an absolute path.
func EncodeID(path string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(path))
}

// DecodeID reverses EncodeID. Padded and standard-alphabet ids are
// accepted as well.
func DecodeID(id string) (string, error) {
	for _, enc := range []*base64.Encoding{base64.RawURLEncoding, base64.URLEncoding, base64.StdEncoding, base64.RawStdEncoding} {
		if raw, err := enc.DecodeString(id); err == nil && len(raw) > 0 {
			return string(raw), nil
		}
	}
	return "", errs.ValidationError("decode_id", errs.ErrInvalidInput).WithDetail("id", id)
}

// Inventory lists media directories.
type Inventory struct {
	logger hclog.Logger
	prober Prober
	pool   *utils.WorkerPool
	cache  *ProbeCache
	titles TitleReader
}

// NewInventory creates an inventory. The pool must be started by the caller.
func NewInventory(prober Prober, pool *utils.WorkerPool, logger hclog.Logger) *Inventory {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Inventory{
		logger: logger.Named("library"),
		prober: prober,
		pool:   pool,
		cache:  NewProbeCache(),
		titles: ReadContainerTitle,
	}
}

// Cache exposes the probe cache so a watcher can evict from it.
func (inv *Inventory) Cache() *ProbeCache {
	return inv.cache
}

// Probe returns the cached probe for path, running ffprobe on a miss.
func (inv *Inventory) Probe(ctx context.Context, path string) (*ffmpeg.MediaProbe, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, errs.ProbeError("probe", errs.ErrMediaNotFound).WithDetail("path", path)
	}

	if probe, ok := inv.cache.Get(path, fi); ok {
		return probe, nil
	}

	probe, err := inv.prober.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	inv.cache.Put(path, fi, probe)
	return probe, nil
}

// Describe builds the listing entry for one file.
func (inv *Inventory) Describe(ctx context.Context, path string) (MediaInfo, error) {
	probe, err := inv.Probe(ctx, path)
	if err != nil {
		return MediaInfo{}, err
	}

	info := MediaInfo{
		ID:        EncodeID(path),
		FileTitle: filepath.Base(path),
		Duration:  probe.Duration.Seconds(),
		Path:      path,
	}
	if v := probe.FirstOf(ffmpeg.CodecTypeVideo); v != nil {
		info.VideoCodec = v.CodecName
		info.MetaTitle = v.Tags.Title
	}
	if a := probe.FirstOf(ffmpeg.CodecTypeAudio); a != nil {
		info.AudioCodec = a.CodecName
	}
	if info.MetaTitle == "" && inv.titles != nil {
		info.MetaTitle = inv.titles(path)
	}
	return info, nil
}

// List probes every entry of dir concurrently and returns the ones that are
// media, sorted by file name. Subdirectories count when they hold a DASH
// manifest. Files that fail to probe are skipped.
func (inv *Inventory) List(ctx context.Context, dir string) ([]MediaInfo, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errs.StorageError("list_media", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, errs.StorageError("list_media", fmt.Errorf("read %s: %w", abs, err))
	}

	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		items = make([]MediaInfo, 0, len(entries))
	)

	for _, entry := range entries {
		path := filepath.Join(abs, entry.Name())
		if utils.IsSkippedFile(path) {
			continue
		}
		if entry.IsDir() {
			path = filepath.Join(path, stage.ManifestName)
			if _, err := os.Stat(path); err != nil {
				continue
			}
		}

		wg.Add(1)
		err := inv.pool.Submit(ctx, func() {
			defer wg.Done()
			info, err := inv.Describe(ctx, path)
			if err != nil {
				inv.logger.Debug("skipping unprobeable file", "path", path, "error", err)
				return
			}
			mu.Lock()
			items = append(items, info)
			mu.Unlock()
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, errs.Wrap(err, errs.ErrorTypeInternal, "list_media")
		}
	}
	wg.Wait()

	sort.Slice(items, func(i, j int) bool { return items[i].FileTitle < items[j].FileTitle })
	inv.logger.Debug("listed media", "dir", abs, "entries", len(entries), "media", len(items))
	return items, nil
}

// Resolve turns an id into the absolute, symlink-free path of an existing
// file under root. Any failure reports ErrMediaNotFound.
func Resolve(id, root string) (string, error) {
	notFound := errs.ValidationError("resolve_media", errs.ErrMediaNotFound).WithDetail("id", id)

	raw, err := DecodeID(id)
	if err != nil {
		return "", notFound
	}
	path, err := filepath.Abs(raw)
	if err != nil {
		return "", notFound
	}
	path, err = filepath.EvalSymlinks(path)
	if err != nil {
		return "", notFound
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", notFound
	}
	rootAbs, err = filepath.EvalSymlinks(rootAbs)
	if err != nil {
		return "", notFound
	}

	if path == rootAbs || !utils.IsWithin(rootAbs, path) {
		return "", notFound
	}
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return "", notFound
	}
	return path, nil
}
