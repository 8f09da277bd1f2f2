package pipeline

import (
	"encoding/json"
	"math"
	"sync"
	"time"

	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/stage"
)

// State is the lifecycle state of a job.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// IsTerminal reports whether no further transitions can happen.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Info is the serializable status of a job.
type Info struct {
	State           State      `json:"state"`
	PercentComplete float64    `json:"percent_complete"`
	Stage           int        `json:"stage"`
	MaxStages       int        `json:"max_stages"`
	StageKind       string     `json:"stage_kind,omitempty"`
	Detail          *Detail    `json:"detail,omitempty"`
	Logs            Logs       `json:"logs"`
	Error           string     `json:"error,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

// Detail is present once an encoder has reported a bitrate.
type Detail struct {
	Frame     uint64        `json:"frame"`
	FPS       float64       `json:"fps"`
	Bitrate   float64       `json:"bitrate"`
	TotalSize uint64        `json:"total_size"`
	Time      time.Duration `json:"time"`
	Length    time.Duration `json:"length"`
}

// MarshalJSON renders Time and Length in seconds.
func (d Detail) MarshalJSON() ([]byte, error) {
	type plain Detail
	return json.Marshal(struct {
		plain
		Time   float64 `json:"time"`
		Length float64 `json:"length"`
	}{plain(d), d.Time.Seconds(), d.Length.Seconds()})
}

// Logs holds every line the stage processes wrote. Stdout only carries
// lines that were not telemetry.
type Logs struct {
	Stdout []string `json:"stdout"`
	Stderr []string `json:"stderr"`
}

// Percent computes overall completion from the stage counters and the
// current stage's media time. It is 0 before the first stage and stays
// below 100 even when the last stage reports the full duration; only a
// completed job reports 100.
func Percent(stageNum, maxStages int, elapsed, duration time.Duration) float64 {
	if stageNum <= 0 || maxStages <= 0 {
		return 0
	}

	fraction := 0.0
	if duration > 0 {
		fraction = elapsed.Seconds() / duration.Seconds()
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	percent := (float64(stageNum-1) + fraction) / float64(maxStages) * 100
	if percent >= 100 {
		percent = math.Nextafter(100, 0)
	}
	return percent
}

// Snapshot is the live progress of one job. Writers are the job's
// background task and its output readers; readers are status queries.
type Snapshot struct {
	mu sync.RWMutex

	state     State
	telemetry Telemetry
	stdout    []string
	stderr    []string
	stage     int
	maxStages int
	kind      stage.Kind
	pid       int
	err       error

	startedAt  time.Time
	finishedAt time.Time
}

func newSnapshot() *Snapshot {
	return &Snapshot{state: StatePending, maxStages: 1}
}

// ApplyTelemetry implements TelemetrySink.
func (s *Snapshot) ApplyTelemetry(t Telemetry, lines []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.telemetry = t
	s.stdout = append(s.stdout, lines...)
}

func (s *Snapshot) appendStderr(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stderr = append(s.stderr, line)
}

func (s *Snapshot) setMaxStages(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.maxStages = n
}

func (s *Snapshot) markRunning(maxStages int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateRunning
	s.maxStages = maxStages
	s.startedAt = time.Now()
}

// beginStage advances the stage counter and clears the previous stage's
// telemetry in one step so no reader sees a mix of the two.
func (s *Snapshot) beginStage(n int, kind stage.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stage = n
	s.kind = kind
	s.telemetry = Telemetry{}
}

func (s *Snapshot) setPID(pid int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pid = pid
}

// complete forces the elapsed time to the media duration so the job
// reads exactly 100%.
func (s *Snapshot) complete(duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.telemetry.Elapsed = duration
	s.stage = s.maxStages
	s.state = StateCompleted
	s.finishedAt = time.Now()
}

// stop freezes the snapshot in a failed or cancelled state.
func (s *Snapshot) stop(state State, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state
	s.err = err
	s.pid = 0
	s.finishedAt = time.Now()
}

func (s *Snapshot) currentState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

func (s *Snapshot) currentPID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.pid
}

// info renders the snapshot against a media duration.
func (s *Snapshot) info(duration time.Duration) Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := Info{
		State:     s.state,
		Stage:     s.stage,
		MaxStages: s.maxStages,
		Logs: Logs{
			Stdout: append([]string{}, s.stdout...),
			Stderr: append([]string{}, s.stderr...),
		},
	}

	if s.state == StateCompleted {
		info.PercentComplete = 100
	} else {
		info.PercentComplete = Percent(s.stage, s.maxStages, s.telemetry.Elapsed, duration)
	}
	if s.stage > 0 {
		info.StageKind = s.kind.String()
	}
	if s.telemetry.Bitrate > 0 {
		info.Detail = &Detail{
			Frame:     s.telemetry.Frame,
			FPS:       s.telemetry.FPS,
			Bitrate:   s.telemetry.Bitrate,
			TotalSize: s.telemetry.TotalSize,
			Time:      s.telemetry.Elapsed,
			Length:    duration,
		}
	}
	if s.err != nil {
		info.Error = s.err.Error()
	}
	if !s.startedAt.IsZero() {
		started := s.startedAt
		info.StartedAt = &started
	}
	if !s.finishedAt.IsZero() {
		finished := s.finishedAt
		info.FinishedAt = &finished
	}

	return info
}
