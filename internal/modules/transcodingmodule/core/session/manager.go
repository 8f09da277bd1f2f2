package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/streamin/internal/database"
	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/ffmpeg"
	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/library"
	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/pipeline"
	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/stage"
	errs "github.com/mantonx/streamin/internal/modules/transcodingmodule/errors"
	"github.com/mantonx/streamin/internal/utils"
)

// MediaProber probes a resolved media file.
type MediaProber interface {
	Probe(ctx context.Context, path string) (*ffmpeg.MediaProbe, error)
}

// Config contains configuration for the session manager
type Config struct {
	// UnprocessedDir is the only directory sessions may read sources from
	UnprocessedDir string

	// Layout names every intermediate and packaged output
	Layout stage.Layout

	// FlushEvery is passed to each job's telemetry parser
	FlushEvery int

	// Launcher overrides the process launcher; nil uses the job default
	Launcher pipeline.Launcher
}

// Manager starts conversion jobs and keeps them addressable by session id.
type Manager struct {
	store  *Store
	prober MediaProber
	config Config
	logger hclog.Logger

	sessions map[string]*Session
	mu       sync.RWMutex
	// closed is set by Shutdown; no watcher is added to wg after it.
	closed bool

	// jobs run under ctx, not the request that created them
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a session manager. store may be nil, in which case no
// history is recorded.
func NewManager(store *Store, prober MediaProber, config Config, logger hclog.Logger) *Manager {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		store:    store,
		prober:   prober,
		config:   config,
		logger:   logger.Named("session-manager"),
		sessions: make(map[string]*Session),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Recover marks history rows left running by a previous process as
// interrupted.
func (m *Manager) Recover(ctx context.Context) (int64, error) {
	if m.store == nil {
		return 0, nil
	}
	return m.store.MarkInterrupted(ctx)
}

// CreateDASH resolves the media id against the unprocessed directory, plans
// a DASH conversion and starts it. It returns once the job is running.
func (m *Manager) CreateDASH(ctx context.Context, mediaID string) (*Session, error) {
	if m.isClosed() {
		return nil, errShutDown()
	}

	path, err := library.Resolve(mediaID, m.config.UnprocessedDir)
	if err != nil {
		return nil, err
	}

	probe, err := m.prober.Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	id := utils.GenerateUUID()
	jobLogger := m.logger.Named("job").With("session_id", id)

	job, err := pipeline.NewDASHJob(m.config.Layout, probe,
		pipeline.WithLogger(jobLogger),
		pipeline.WithLauncher(m.config.Launcher),
		pipeline.WithFlushEvery(m.config.FlushEvery),
	)
	if err != nil {
		return nil, err
	}

	if err := job.Start(m.ctx); err != nil {
		return nil, err
	}

	sess := &Session{
		ID:        id,
		MediaPath: path,
		OutputDir: m.config.Layout.PackageDir(path),
		CreatedAt: time.Now(),
		job:       job,
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		job.Cancel()
		<-job.Done()
		return nil, errShutDown()
	}
	m.sessions[id] = sess
	m.wg.Add(1)
	m.mu.Unlock()

	m.record(ctx, sess, job.Kinds())
	go m.watch(sess)

	m.logger.Info("started session", "session_id", id, "media", path, "stages", len(job.Kinds()))
	return sess, nil
}

func (m *Manager) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.closed
}

func errShutDown() error {
	return errs.SessionError("create_session", fmt.Errorf("session manager is shut down"))
}

func (m *Manager) record(ctx context.Context, sess *Session, kinds []stage.Kind) {
	if m.store == nil {
		return
	}

	plan := make([]string, len(kinds))
	for i, k := range kinds {
		plan[i] = k.String()
	}

	row := &database.ConversionJob{
		ID:        sess.ID,
		MediaPath: sess.MediaPath,
		OutputDir: sess.OutputDir,
		Status:    database.JobStatusRunning,
		Stages:    len(kinds),
		StartTime: sess.CreatedAt,
	}
	if err := row.SetPlan(plan); err != nil {
		m.logger.Warn("failed to encode job plan", "session_id", sess.ID, "error", err)
	}
	if err := m.store.Create(context.WithoutCancel(ctx), row); err != nil {
		m.logger.Warn("failed to record session", "session_id", sess.ID, "error", err)
	}
}

// watch persists the terminal state once the job finishes.
func (m *Manager) watch(sess *Session) {
	defer m.wg.Done()

	<-sess.job.Done()
	info := sess.job.Info()
	status := jobStatus(info.State)
	if status == database.JobStatusCancelled && m.ctx.Err() != nil {
		status = database.JobStatusInterrupted
	}

	switch status {
	case database.JobStatusCompleted:
		m.logger.Info("session completed", "session_id", sess.ID, "output", sess.OutputDir)
	case database.JobStatusFailed:
		m.logger.Error("session failed", "session_id", sess.ID, "error", sess.job.Err())
	default:
		m.logger.Info("session stopped", "session_id", sess.ID, "status", status)
	}

	if m.store == nil {
		return
	}
	end := time.Now()
	if info.FinishedAt != nil {
		end = *info.FinishedAt
	}
	if err := m.store.Finish(context.Background(), sess.ID, status, sess.job.Err(), end); err != nil {
		m.logger.Warn("failed to record session result", "session_id", sess.ID, "error", err)
	}
}

// Get returns a session by id. Malformed and unknown ids are both
// ErrSessionNotFound.
func (m *Manager) Get(id string) (*Session, error) {
	canonical, err := utils.CanonicalUUID(id)
	if err != nil {
		return nil, errs.SessionError("get_session", errs.ErrSessionNotFound)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[canonical]
	if !ok {
		return nil, errs.SessionError("get_session", errs.ErrSessionNotFound).WithSession(canonical)
	}
	return sess, nil
}

// List returns the progress of every session, keyed by id.
func (m *Manager) List() map[string]pipeline.Info {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.mu.RUnlock()

	infos := make(map[string]pipeline.Info, len(sessions))
	for _, sess := range sessions {
		infos[sess.ID] = sess.Info()
	}
	return infos
}

// ActiveMedia returns the source names of sessions that have not finished.
func (m *Manager) ActiveMedia() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.sessions))
	for _, sess := range m.sessions {
		if !sess.job.State().IsTerminal() {
			names = append(names, stage.Stem(sess.MediaPath))
		}
	}
	return names
}

// Cancel stops a session's running stage and skips the rest. Cancelling a
// finished session has no effect.
func (m *Manager) Cancel(id string) (*Session, error) {
	sess, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	sess.job.Cancel()
	m.logger.Info("cancel requested", "session_id", sess.ID)
	return sess, nil
}

// History returns persisted job records, most recent first.
func (m *Manager) History(ctx context.Context, limit int) ([]database.ConversionJob, error) {
	if m.store == nil {
		return []database.ConversionJob{}, nil
	}
	return m.store.List(ctx, limit)
}

// Shutdown cancels every running job and waits for their results to be
// recorded, or for ctx to expire.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("shutting down session manager")
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("session manager shutdown: %w", ctx.Err())
	}
}
