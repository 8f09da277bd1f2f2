package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/ffmpeg"
	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/stage"
	errs "github.com/mantonx/streamin/internal/modules/transcodingmodule/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func probeFixture(t *testing.T, videoCodec string, streams ...ffmpeg.Stream) (stage.Layout, *ffmpeg.MediaProbe) {
	t.Helper()
	dir := t.TempDir()
	source := filepath.Join(dir, "movie.mkv")
	require.NoError(t, os.WriteFile(source, []byte("media"), 0644))

	if videoCodec != "" {
		streams = append([]ffmpeg.Stream{{Index: 0, CodecType: ffmpeg.CodecTypeVideo, CodecName: videoCodec}}, streams...)
	}
	layout := stage.Layout{TempDir: filepath.Join(dir, "tmp"), ProcessedDir: filepath.Join(dir, "processed")}
	return layout, &ffmpeg.MediaProbe{Path: source, Duration: time.Minute, Streams: streams}
}

func kinds(stages []stage.Stage) []stage.Kind {
	var out []stage.Kind
	for _, s := range stages {
		out = append(out, s.Kind())
	}
	return out
}

func TestPlanDASH_ThreeTrackSource(t *testing.T) {
	layout, probe := probeFixture(t, "hevc",
		ffmpeg.Stream{Index: 1, CodecType: ffmpeg.CodecTypeAudio, CodecName: "ac3"},
		ffmpeg.Stream{Index: 2, CodecType: ffmpeg.CodecTypeAudio, CodecName: "aac"},
	)

	stages, err := PlanDASH(layout, probe)
	require.NoError(t, err)
	assert.Equal(t, []stage.Kind{
		stage.KindEncoding, stage.KindEncoding, stage.KindEncoding,
		stage.KindFragmenting, stage.KindFragmenting, stage.KindFragmenting,
		stage.KindPackaging,
	}, kinds(stages))

	video, err := stages[0].Build()
	require.NoError(t, err)
	assert.Equal(t, layout.Split(probe.Path, stage.TrackVideo, 0), video.Output)
	assert.Subset(t, video.Args, []string{"libx264", "-crf", "19", "format=yuv420p", "-an", "-sn"})

	audio, err := stages[2].Build()
	require.NoError(t, err)
	assert.Equal(t, layout.Split(probe.Path, stage.TrackAudio, 2), audio.Output)
	assert.Subset(t, audio.Args, []string{"aac", "256000", "-vn", "-sn", "0:2"})

	frag := stages[4].(*stage.Fragmenting)
	assert.Equal(t, layout.Split(probe.Path, stage.TrackAudio, 1), frag.Input)

	pkg := stages[6].(*stage.Packaging)
	assert.Equal(t, []string{
		layout.Fragment(layout.Split(probe.Path, stage.TrackVideo, 0)),
		layout.Fragment(layout.Split(probe.Path, stage.TrackAudio, 1)),
		layout.Fragment(layout.Split(probe.Path, stage.TrackAudio, 2)),
	}, pkg.Files)
	assert.Equal(t, filepath.Join(layout.ProcessedDir, "movie"), pkg.OutDir())
}

func TestPlanDASH_SubtitlesAndCopiedVideo(t *testing.T) {
	layout, probe := probeFixture(t, "h264",
		ffmpeg.Stream{Index: 1, CodecType: ffmpeg.CodecTypeAudio},
		ffmpeg.Stream{Index: 2, CodecType: ffmpeg.CodecTypeSubtitle},
	)

	stages, err := PlanDASH(layout, probe)
	require.NoError(t, err)
	require.Len(t, stages, 6)

	video, err := stages[0].Build()
	require.NoError(t, err)
	assert.NotContains(t, video.Args, "libx264")
	assert.Contains(t, video.Args, "copy")

	sub, err := stages[2].Build()
	require.NoError(t, err)
	assert.Equal(t, layout.Split(probe.Path, stage.TrackSubtitle, 2), sub.Output)
	assert.Contains(t, sub.Args, "webvtt")

	pkg := stages[5].(*stage.Packaging)
	assert.Equal(t, layout.Split(probe.Path, stage.TrackSubtitle, 2), pkg.Files[2])
}

func TestPlanDASH_AudioOnly(t *testing.T) {
	layout, probe := probeFixture(t, "",
		ffmpeg.Stream{Index: 0, CodecType: ffmpeg.CodecTypeAudio, CodecName: "mp3"},
	)

	stages, err := PlanDASH(layout, probe)
	require.NoError(t, err)
	assert.Equal(t, []stage.Kind{stage.KindEncoding, stage.KindFragmenting, stage.KindPackaging}, kinds(stages))
}

func TestPlanDASH_NothingToPackage(t *testing.T) {
	layout, probe := probeFixture(t, "",
		ffmpeg.Stream{Index: 0, CodecType: ffmpeg.CodecTypeSubtitle},
	)

	_, err := PlanDASH(layout, probe)
	assert.True(t, errors.Is(err, errs.ErrNoStreamsEnabled))

	_, err = NewDASHJob(layout, probe)
	assert.Error(t, err)
}

func TestNewDASHJob(t *testing.T) {
	layout, probe := probeFixture(t, "hevc",
		ffmpeg.Stream{Index: 1, CodecType: ffmpeg.CodecTypeAudio},
	)

	job, err := NewDASHJob(layout, probe, WithLauncher(newFakeLauncher(nil)))
	require.NoError(t, err)

	info := job.Info()
	assert.Equal(t, 5, info.MaxStages)
	assert.Equal(t, StatePending, info.State)
	assert.Equal(t, time.Minute, job.Media().Duration)
	assert.Equal(t, []stage.Kind{
		stage.KindEncoding, stage.KindEncoding,
		stage.KindFragmenting, stage.KindFragmenting,
		stage.KindPackaging,
	}, job.Kinds())
}
