// Package pipeline runs conversion jobs: an ordered list of stages executed
// one at a time as supervised external processes, with their progress
// telemetry folded into a shared, lock-protected snapshot.
package pipeline

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"
	"time"
)

// DefaultFlushEvery is the number of telemetry updates between snapshot
// flushes.
const DefaultFlushEvery = 25

const bitrateUnit = "kbits/s"

const (
	scanBufferSize = 64 * 1024

	// MaxLineLength bounds one output line; longer runs are split into
	// chunks of this size.
	MaxLineLength = 1024 * 1024
)

// Telemetry is one accumulated view of an encoder's progress fields.
type Telemetry struct {
	Frame     uint64
	FPS       float64
	Bitrate   float64 // kbit/s
	TotalSize uint64  // bytes
	Elapsed   time.Duration
}

// TelemetrySink receives flushed telemetry together with the diagnostic
// lines collected since the previous flush.
type TelemetrySink interface {
	ApplyTelemetry(t Telemetry, lines []string)
}

// TelemetryParser turns the line stream of ffmpeg's -progress output into
// Telemetry. Recognized key=value lines update a local accumulator; every
// flushEvery of them, and immediately after any line that is not key=value,
// the accumulator
// and pending diagnostic lines are pushed to the sink. Values that fail to
// parse leave the previous value in place.
type TelemetryParser struct {
	sink       TelemetrySink
	flushEvery int

	current Telemetry
	pending []string
	updates int
}

// NewTelemetryParser creates a parser that flushes into sink.
func NewTelemetryParser(sink TelemetrySink, flushEvery int) *TelemetryParser {
	if flushEvery <= 0 {
		flushEvery = DefaultFlushEvery
	}
	return &TelemetryParser{
		sink:       sink,
		flushEvery: flushEvery,
	}
}

// Current returns the local accumulator.
func (p *TelemetryParser) Current() Telemetry {
	return p.current
}

// Feed processes a single line.
func (p *TelemetryParser) Feed(line string) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return
	}

	parts := strings.Split(line, "=")
	if len(parts) != 2 {
		p.pending = append(p.pending, line)
		p.Flush()
		return
	}

	key, value := parts[0], strings.TrimSpace(parts[1])
	switch key {
	default:
		// progress=, speed=, dup_frames= and friends
		return
	case "frame":
		if frame, err := strconv.ParseUint(value, 10, 64); err == nil {
			p.current.Frame = frame
		}
	case "fps":
		if fps, err := strconv.ParseFloat(value, 64); err == nil {
			p.current.FPS = fps
		}
	case "bitrate":
		value = strings.TrimSpace(strings.TrimSuffix(value, bitrateUnit))
		if bitrate, err := strconv.ParseFloat(value, 64); err == nil {
			p.current.Bitrate = bitrate
		}
	case "total_size":
		if size, err := strconv.ParseUint(value, 10, 64); err == nil {
			p.current.TotalSize = size
		}
	case "out_time_us":
		if us, err := strconv.ParseUint(value, 10, 64); err == nil {
			p.current.Elapsed = time.Duration(us) * time.Microsecond
		}
	}

	p.updates++
	if p.updates >= p.flushEvery {
		p.Flush()
	}
}

// Flush pushes the accumulator and pending lines to the sink.
func (p *TelemetryParser) Flush() {
	p.sink.ApplyTelemetry(p.current, p.pending)
	p.pending = nil
	p.updates = 0
}

// Consume feeds every line of r and flushes once r is exhausted.
func (p *TelemetryParser) Consume(r io.Reader) error {
	err := scanLines(r, p.Feed)
	p.Flush()
	return err
}

// scanLines calls fn for each non-empty line of r. Lines end at \n or \r,
// since ffmpeg rewrites its stats line with carriage returns. r is always
// read to EOF, even after a read error, so the writer never blocks.
func scanLines(r io.Reader, fn func(string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, scanBufferSize), MaxLineLength+1)
	scanner.Split(splitLines)

	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			fn(line)
		}
	}
	err := scanner.Err()
	if err != nil {
		_, _ = io.Copy(io.Discard, r)
	}
	return err
}

// splitLines is a bufio.SplitFunc breaking on \n, \r or \r\n, and emitting
// MaxLineLength chunks of lines with no terminator in sight.
func splitLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 && i <= MaxLineLength {
		advance = i + 1
		if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
			advance++
		}
		return advance, data[:i], nil
	}
	if len(data) >= MaxLineLength {
		return MaxLineLength, data[:MaxLineLength], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
