// Package ffmpeg provides utilities for FFmpeg-based media inspection.
// This file handles media probing using FFprobe.
package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/hashicorp/go-hclog"
	errs "github.com/mantonx/streamin/internal/modules/transcodingmodule/errors"
)

// Codec types reported by ffprobe.
const (
	CodecTypeVideo    = "video"
	CodecTypeAudio    = "audio"
	CodecTypeSubtitle = "subtitle"
)

// dashVideoCodec is the only video codec packaged without re-encoding.
const dashVideoCodec = "h264"

// CommandRunner interface for command execution (enables mocking in tests)
type CommandRunner interface {
	Run(ctx context.Context, cmd string, args ...string) ([]byte, error)
}

// DefaultCommandRunner implements CommandRunner using os/exec
type DefaultCommandRunner struct{}

// Run executes a command and returns its stdout
func (r *DefaultCommandRunner) Run(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, cmd, args...).Output()
}

// Tags holds the stream tags the service uses.
type Tags struct {
	Title    string `json:"title,omitempty"`
	Language string `json:"language,omitempty"`
}

// Stream is one elementary stream of a media file.
type Stream struct {
	Index     int    `json:"index"`
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Tags      Tags   `json:"tags"`
}

// MediaProbe is the parsed ffprobe output for one file.
type MediaProbe struct {
	Path     string
	Duration time.Duration
	Streams  []Stream
}

// StreamsOf returns the streams of one codec type in index order.
func (p *MediaProbe) StreamsOf(codecType string) []Stream {
	var streams []Stream
	for _, s := range p.Streams {
		if s.CodecType == codecType {
			streams = append(streams, s)
		}
	}
	return streams
}

// FirstOf returns the first stream of a codec type, or nil.
func (p *MediaProbe) FirstOf(codecType string) *Stream {
	for i := range p.Streams {
		if p.Streams[i].CodecType == codecType {
			return &p.Streams[i]
		}
	}
	return nil
}

// DashTranscodeRequired reports whether the video must be re-encoded before
// packaging: true without a video stream or when it is not H.264.
func (p *MediaProbe) DashTranscodeRequired() bool {
	video := p.FirstOf(CodecTypeVideo)
	return video == nil || video.CodecName != dashVideoCodec
}

// probeOutput mirrors the ffprobe JSON document.
type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []Stream `json:"streams"`
}

// MediaProber uses FFprobe to extract media information
type MediaProber struct {
	logger      hclog.Logger
	execer      CommandRunner
	ffprobePath string
}

// NewMediaProber creates a new media prober. FFPROBE_PATH overrides path.
func NewMediaProber(path string, logger hclog.Logger) *MediaProber {
	return NewMediaProberWithExecutor(path, logger, &DefaultCommandRunner{})
}

// NewMediaProberWithExecutor creates a prober with a custom command executor (for testing)
func NewMediaProberWithExecutor(path string, logger hclog.Logger, execer CommandRunner) *MediaProber {
	if customPath := os.Getenv("FFPROBE_PATH"); customPath != "" {
		path = customPath
	}
	if path == "" {
		path = "ffprobe"
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &MediaProber{
		logger:      logger.Named("prober"),
		execer:      execer,
		ffprobePath: path,
	}
}

// Probe runs ffprobe on a file.
func (mp *MediaProber) Probe(ctx context.Context, inputPath string) (*MediaProbe, error) {
	output, err := mp.execer.Run(ctx, mp.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-show_entries", "format=duration",
		inputPath,
	)
	if err != nil {
		mp.logger.Debug("ffprobe failed", "path", inputPath, "error", err)
		return nil, errs.ProbeError("probe", fmt.Errorf("ffprobe failed: %w", err)).WithDetail("path", inputPath)
	}

	probe, err := ParseProbe(output)
	if err != nil {
		return nil, errs.ProbeError("probe", err).WithDetail("path", inputPath)
	}
	probe.Path = inputPath
	return probe, nil
}

// GetDuration extracts the duration of a media file
func (mp *MediaProber) GetDuration(ctx context.Context, inputPath string) (time.Duration, error) {
	probe, err := mp.Probe(ctx, inputPath)
	if err != nil {
		return 0, err
	}
	return probe.Duration, nil
}

// ParseProbe decodes an ffprobe JSON document. A file with no streams is
// not media.
func ParseProbe(data []byte) (*MediaProbe, error) {
	var result probeOutput
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(result.Streams) == 0 {
		return nil, fmt.Errorf("no streams found in media file")
	}

	probe := &MediaProbe{Streams: result.Streams}
	if result.Format.Duration != "" {
		seconds, err := strconv.ParseFloat(result.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse duration: %w", err)
		}
		probe.Duration = time.Duration(seconds * float64(time.Second))
	}

	return probe, nil
}
