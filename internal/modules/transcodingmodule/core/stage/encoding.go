package stage

import (
	"os"
	"strconv"

	errs "github.com/mantonx/streamin/internal/modules/transcodingmodule/errors"
)

// EncoderKind is the track type an encoder produces.
type EncoderKind int

const (
	EncoderNone EncoderKind = iota
	EncoderVideo
	EncoderAudio
	EncoderSubtitle
)

// Encoder names an ffmpeg codec together with the track type it encodes.
// The zero value means pass-through ("copy").
type Encoder struct {
	Kind EncoderKind
	Name string
}

// Encoders used by the DASH planner.
var (
	X264   = Encoder{Kind: EncoderVideo, Name: "libx264"}
	AAC    = Encoder{Kind: EncoderAudio, Name: "aac"}
	WebVTT = Encoder{Kind: EncoderSubtitle, Name: "webvtt"}
)

// codec returns the -c:<x> value for the encoder.
func (e Encoder) codec() string {
	if e.Kind == EncoderNone {
		return "copy"
	}
	return e.Name
}

// TrackGroup configures one stream type of an encoding. A group that is
// enabled without an encoder carries its streams through unmodified.
type TrackGroup struct {
	Enabled bool
	Encoder Encoder
	// Bitrate in bits per second. Zero leaves it to the encoder.
	Bitrate int
	// CRF is only meaningful for video.
	CRF *int
	// Channels is only emitted for audio. Zero keeps the source layout.
	Channels int
	// Colour8Bit forces yuv420p output; only emitted for video.
	Colour8Bit bool
}

func (g TrackGroup) hasRate() bool {
	return g.Bitrate > 0 || g.CRF != nil
}

// Encoding runs ffmpeg over Source, writing the selected tracks to a single
// output file with a machine-readable progress stream on stdout.
type Encoding struct {
	Layout Layout
	Source string
	// Output defaults to a Layout split path when empty.
	Output string
	// Tracks are absolute input stream indices, each mapped explicitly.
	Tracks []int

	Video    TrackGroup
	Audio    TrackGroup
	Subtitle TrackGroup

	CanFail bool
}

// NewEncoding returns an encoding of source with every group enabled in
// pass-through mode.
func NewEncoding(layout Layout, source string) *Encoding {
	return &Encoding{
		Layout:   layout,
		Source:   source,
		Video:    TrackGroup{Enabled: true},
		Audio:    TrackGroup{Enabled: true},
		Subtitle: TrackGroup{Enabled: true},
	}
}

// CRF returns a pointer suitable for TrackGroup.CRF.
func CRF(v int) *int {
	return &v
}

func (e *Encoding) sealed() {}

// Kind implements Stage.
func (e *Encoding) Kind() Kind { return KindEncoding }

// ToleratesFailure implements Stage.
func (e *Encoding) ToleratesFailure() bool { return e.CanFail }

// Validate implements Stage.
func (e *Encoding) Validate() error {
	const op = "validate_encoding"

	if e.Audio.CRF != nil || e.Subtitle.CRF != nil {
		return errs.ConfigError(op, errs.ErrCRFOnNonVideo)
	}

	switch e.Video.Encoder.Kind {
	case EncoderAudio, EncoderSubtitle:
		return errs.ConfigError(op, errs.ErrVideoEncoderKind)
	}
	switch e.Audio.Encoder.Kind {
	case EncoderVideo, EncoderSubtitle:
		return errs.ConfigError(op, errs.ErrAudioEncoderKind)
	}
	switch e.Subtitle.Encoder.Kind {
	case EncoderVideo, EncoderAudio:
		return errs.ConfigError(op, errs.ErrSubtitleEncoderKind)
	}

	if !e.Video.Enabled && !e.Audio.Enabled && !e.Subtitle.Enabled {
		return errs.ConfigError(op, errs.ErrNoStreamsEnabled)
	}

	for _, g := range []TrackGroup{e.Video, e.Audio, e.Subtitle} {
		if g.hasRate() && g.Encoder.Kind == EncoderNone {
			return errs.ConfigError(op, errs.ErrRateWithoutEncoder)
		}
	}

	if _, err := os.Stat(e.Source); err != nil {
		return errs.ConfigError(op, errs.ErrFileNotFound).WithDetail("path", e.Source)
	}

	return nil
}

// OutputPath returns the explicit output or the layout default. The default
// is tagged by the first enabled group in video, audio, subtitle order and
// indexed by the first mapped track.
func (e *Encoding) OutputPath() string {
	if e.Output != "" {
		return e.Output
	}

	index := 0
	if len(e.Tracks) > 0 {
		index = e.Tracks[0]
	}

	switch {
	case e.Video.Enabled:
		return e.Layout.Split(e.Source, TrackVideo, index)
	case e.Audio.Enabled:
		return e.Layout.Split(e.Source, TrackAudio, index)
	default:
		return e.Layout.Split(e.Source, TrackSubtitle, index)
	}
}

// Build implements Stage.
//
// Argument order: input, overwrite, progress to stdout, then video, audio and
// subtitle sections, then one -map per track, then the output path.
func (e *Encoding) Build() (*Invocation, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	args := []string{"-i", e.Source, "-y", "-progress", "-"}

	if e.Video.Enabled {
		args = append(args, "-c:v", e.Video.Encoder.codec())
		if e.Video.Bitrate > 0 {
			args = append(args, "-b:v", strconv.Itoa(e.Video.Bitrate))
		}
		if e.Video.Colour8Bit {
			args = append(args, "-vf", "format=yuv420p")
		}
		if e.Video.CRF != nil {
			args = append(args, "-crf", strconv.Itoa(*e.Video.CRF))
		}
	} else {
		args = append(args, "-vn")
	}

	if e.Audio.Enabled {
		args = append(args, "-c:a", e.Audio.Encoder.codec())
		if e.Audio.Bitrate > 0 {
			args = append(args, "-b:a", strconv.Itoa(e.Audio.Bitrate))
		}
		if e.Audio.Channels > 0 {
			args = append(args, "-ac", strconv.Itoa(e.Audio.Channels))
		}
	} else {
		args = append(args, "-an")
	}

	if e.Subtitle.Enabled {
		args = append(args, "-c:s", e.Subtitle.Encoder.codec())
	} else {
		args = append(args, "-sn")
	}

	for _, t := range e.Tracks {
		args = append(args, "-map", "0:"+strconv.Itoa(t))
	}

	out := e.OutputPath()
	args = append(args, out)

	return &Invocation{
		Kind:   KindEncoding,
		Binary: ToolFFmpeg,
		Args:   args,
		Output: out,
	}, nil
}
