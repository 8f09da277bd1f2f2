package pipeline

import (
	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/ffmpeg"
	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/stage"
	errs "github.com/mantonx/streamin/internal/modules/transcodingmodule/errors"
)

// DASH encoding parameters.
const (
	dashCRF          = 19
	dashAudioBitrate = 256000
	dashAudioLayout  = 2
)

// PlanDASH lays out the stages that turn a probed source into a DASH
// package: split every stream into its own file, fragment the MP4 outputs,
// then package everything into one manifest. Stage order is video, audio
// tracks, subtitle tracks, video fragment, audio fragments, package.
func PlanDASH(layout stage.Layout, probe *ffmpeg.MediaProbe) ([]stage.Stage, error) {
	source := probe.Path
	audios := probe.StreamsOf(ffmpeg.CodecTypeAudio)
	subtitles := probe.StreamsOf(ffmpeg.CodecTypeSubtitle)
	video := probe.FirstOf(ffmpeg.CodecTypeVideo)

	if video == nil && len(audios) == 0 {
		return nil, errs.ValidationError("plan_dash", errs.ErrNoStreamsEnabled).WithDetail("path", source)
	}

	var (
		stages    []stage.Stage
		fragments []stage.Stage
		packaged  []string
	)

	if video != nil {
		enc := stage.NewEncoding(layout, source)
		enc.Audio.Enabled = false
		enc.Subtitle.Enabled = false
		if probe.DashTranscodeRequired() {
			enc.Video.Encoder = stage.X264
			enc.Video.CRF = stage.CRF(dashCRF)
			enc.Video.Colour8Bit = true
		}
		stages = append(stages, enc)

		frag := stage.NewFragmenting(layout, enc.OutputPath())
		fragments = append(fragments, frag)
		if video.Index == 0 {
			packaged = append(packaged, frag.OutputPath())
		}
	}

	for _, s := range audios {
		enc := stage.NewEncoding(layout, source)
		enc.Video.Enabled = false
		enc.Subtitle.Enabled = false
		enc.Audio.Encoder = stage.AAC
		enc.Audio.Channels = dashAudioLayout
		enc.Audio.Bitrate = dashAudioBitrate
		enc.Tracks = []int{s.Index}
		stages = append(stages, enc)

		frag := stage.NewFragmenting(layout, enc.OutputPath())
		fragments = append(fragments, frag)
		packaged = append(packaged, frag.OutputPath())
	}

	for _, s := range subtitles {
		enc := stage.NewEncoding(layout, source)
		enc.Video.Enabled = false
		enc.Audio.Enabled = false
		enc.Subtitle.Encoder = stage.WebVTT
		enc.Tracks = []int{s.Index}
		stages = append(stages, enc)

		packaged = append(packaged, enc.OutputPath())
	}

	pkg := stage.NewPackaging(layout, packaged)
	if err := pkg.SetOutDir(layout.PackageDir(source)); err != nil {
		return nil, err
	}

	stages = append(stages, fragments...)
	stages = append(stages, pkg)
	return stages, nil
}

// NewDASHJob plans a DASH conversion and returns it as a pending job.
func NewDASHJob(layout stage.Layout, probe *ffmpeg.MediaProbe, opts ...Option) (*Job, error) {
	stages, err := PlanDASH(layout, probe)
	if err != nil {
		return nil, err
	}

	job := NewJob(stages[0], Media{Path: probe.Path, Duration: probe.Duration}, opts...)
	for _, s := range stages[1:] {
		if err := job.Append(s); err != nil {
			return nil, err
		}
	}
	return job, nil
}
