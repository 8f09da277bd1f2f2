package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/stage"
	errs "github.com/mantonx/streamin/internal/modules/transcodingmodule/errors"
)

// Media is the source a job converts. Duration is the denominator of the
// in-stage progress fraction.
type Media struct {
	Path     string
	Duration time.Duration
}

// mediaRecord guards Media separately from the progress snapshot so a
// re-probe never contends with telemetry writers.
type mediaRecord struct {
	mu    sync.RWMutex
	media Media
}

func (m *mediaRecord) get() Media {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.media
}

func (m *mediaRecord) set(media Media) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.media = media
}

// Option configures a Job.
type Option func(*Job)

// WithLogger sets the job logger.
func WithLogger(logger hclog.Logger) Option {
	return func(j *Job) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// WithLauncher replaces the process launcher.
func WithLauncher(launcher Launcher) Option {
	return func(j *Job) {
		if launcher != nil {
			j.launcher = launcher
		}
	}
}

// WithFlushEvery sets how many telemetry updates are batched per flush.
func WithFlushEvery(n int) Option {
	return func(j *Job) {
		if n > 0 {
			j.flushEvery = n
		}
	}
}

// Job is an ordered list of stages run sequentially in the background.
//
// Stages are appended before Start; Start validates what it can, hands the
// list to a background goroutine and returns immediately. The goroutine
// builds, spawns and supervises each stage in turn and stops at the first
// failure that the stage does not tolerate. Info may be called at any time
// from any goroutine.
type Job struct {
	logger     hclog.Logger
	launcher   Launcher
	flushEvery int

	media    *mediaRecord
	progress *Snapshot

	mu      sync.Mutex
	stages  []stage.Stage
	kinds   []stage.Kind
	started bool
	cancel  context.CancelFunc

	done chan struct{}
	err  error
}

// NewJob creates a pending job holding one stage.
func NewJob(first stage.Stage, media Media, opts ...Option) *Job {
	j := &Job{
		logger:     hclog.NewNullLogger(),
		flushEvery: DefaultFlushEvery,
		media:      &mediaRecord{media: media},
		progress:   newSnapshot(),
		stages:     []stage.Stage{first},
		kinds:      []stage.Kind{first.Kind()},
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(j)
	}
	if j.launcher == nil {
		j.launcher = NewExecLauncher(defaultTools, j.logger)
	}
	return j
}

// Append adds a stage to the end of the list.
func (j *Job) Append(s stage.Stage) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.started {
		return errs.UsageError("append_stage", errs.ErrAlreadyStarted)
	}
	j.stages = append(j.stages, s)
	j.kinds = append(j.kinds, s.Kind())
	j.progress.setMaxStages(len(j.stages))
	return nil
}

// Kinds lists the kind of every stage in run order.
func (j *Job) Kinds() []stage.Kind {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]stage.Kind(nil), j.kinds...)
}

// Start launches the background task and returns without waiting for any
// stage to finish. Stages whose inputs already exist are validated first;
// on a validation error nothing is spawned and the job stays pending.
//
// ctx bounds the whole run, so it must outlive the caller's request.
func (j *Job) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.started || len(j.stages) == 0 {
		return errs.UsageError("start_job", errs.ErrAlreadyStarted)
	}

	for i, s := range j.stages {
		if !s.Kind().ValidatesAhead() {
			continue
		}
		if err := s.Validate(); err != nil {
			j.logger.Warn("stage rejected before start", "stage", i+1, "kind", s.Kind(), "error", err)
			return err
		}
	}

	stages := j.stages
	j.stages = nil
	j.started = true

	runCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.progress.markRunning(len(stages))

	go j.run(runCtx, stages)
	return nil
}

// Cancel stops the running stage and skips the rest.
func (j *Job) Cancel() {
	j.mu.Lock()
	cancel := j.cancel
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Done is closed when the background task has finished.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Err returns the terminal error once Done is closed.
func (j *Job) Err() error {
	select {
	case <-j.done:
		return j.err
	default:
		return nil
	}
}

// Wait blocks until the job finishes or ctx is done.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Info returns a consistent snapshot of the job's progress.
func (j *Job) Info() Info {
	return j.progress.info(j.media.get().Duration)
}

// State returns the lifecycle state.
func (j *Job) State() State {
	return j.progress.currentState()
}

// PID returns the process id of the running stage, or 0.
func (j *Job) PID() int {
	return j.progress.currentPID()
}

// Media returns the media record.
func (j *Job) Media() Media {
	return j.media.get()
}

// UpdateMedia replaces the media record, e.g. after a re-probe.
func (j *Job) UpdateMedia(media Media) {
	j.media.set(media)
}

func (j *Job) run(ctx context.Context, stages []stage.Stage) {
	defer close(j.done)
	defer func() {
		if r := recover(); r != nil {
			err := errs.FromPanic("run_job", r, debug.Stack())
			j.logger.Error("job panicked", "error", err)
			j.finish(StateFailed, err)
		}
	}()

	for i, s := range stages {
		n := i + 1
		if ctx.Err() != nil {
			j.finish(StateCancelled, errs.ProcessError("run_job", errs.ErrCancelled))
			return
		}

		inv, err := s.Build()
		if err != nil {
			j.logger.Error("stage failed to build", "stage", n, "kind", s.Kind(), "error", err)
			j.finish(StateFailed, err)
			return
		}

		j.progress.beginStage(n, s.Kind())
		j.logger.Info("stage started", "stage", n, "of", len(stages), "kind", s.Kind(), "command", inv.String())

		started := time.Now()
		err = j.runStage(ctx, inv)

		if ctx.Err() != nil {
			j.logger.Info("job cancelled", "stage", n)
			j.finish(StateCancelled, errs.ProcessError("run_job", errs.ErrCancelled))
			return
		}
		if err != nil {
			if s.ToleratesFailure() {
				j.logger.Warn("stage failed, continuing", "stage", n, "kind", s.Kind(), "error", err)
				continue
			}
			failure := errs.ProcessError("run_stage", fmt.Errorf("%w: %s: %v", errs.ErrProcessFailed, inv.Binary, err)).
				WithDetail("stage", n).
				WithDetail("binary", inv.Binary).
				WithDetail("exit_code", exitCode(err))
			j.logger.Error("stage failed", "stage", n, "kind", s.Kind(), "error", err)
			j.finish(StateFailed, failure)
			return
		}

		j.logger.Info("stage finished", "stage", n, "kind", s.Kind(), "duration", time.Since(started))
	}

	j.progress.complete(j.media.get().Duration)
	j.logger.Info("job completed", "stages", len(stages))
}

// runStage spawns one invocation, reaps it while both output streams are
// drained, and returns once the streams are done. Stdout goes through the
// telemetry parser; stderr lines are recorded as they arrive.
func (j *Job) runStage(ctx context.Context, inv *stage.Invocation) error {
	proc, err := j.launcher.Launch(ctx, inv)
	if err != nil {
		return err
	}
	j.progress.setPID(proc.Pid())
	defer j.progress.setPID(0)

	parser := NewTelemetryParser(j.progress, j.flushEvery)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := parser.Consume(proc.Stdout()); err != nil {
			j.logger.Warn("stdout read failed", "binary", inv.Binary, "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		err := scanLines(proc.Stderr(), func(line string) {
			j.progress.appendStderr(line)
			j.logger.Trace("stderr", "binary", inv.Binary, "line", line)
		})
		if err != nil {
			j.logger.Warn("stderr read failed", "binary", inv.Binary, "error", err)
		}
	}()
	waitErr := proc.Wait()
	wg.Wait()

	return waitErr
}

func (j *Job) finish(state State, err error) {
	j.err = err
	j.progress.stop(state, err)
}
