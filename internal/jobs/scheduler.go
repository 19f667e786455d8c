package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tubefetch/internal/config"
	"tubefetch/internal/events"
	"tubefetch/internal/logging"
	"tubefetch/internal/queue"
	"tubefetch/internal/services"
	"tubefetch/internal/ytdlp"
)

// State is a job's lifecycle position.
type State string

const (
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Info describes a job for status views.
type Info struct {
	ID       string    `json:"id"`
	Kind     Kind      `json:"kind"`
	ClientID string    `json:"client_id,omitempty"`
	Target   string    `json:"target,omitempty"`
	State    State     `json:"state"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished,omitzero"`
}

type job struct {
	info   Info
	req    Request
	cancel context.CancelFunc
	done   chan struct{}
}

// Scheduler starts jobs and tracks them until they finish.
type Scheduler struct {
	cfg      *config.Config
	store    *queue.Store
	hub      *events.Hub
	exec     ytdlp.Executor
	engine   *ytdlp.Engine
	resolver *ytdlp.Resolver
	logger   *slog.Logger

	root     context.Context
	stopRoot context.CancelFunc
	wg       sync.WaitGroup

	mu       sync.Mutex
	jobs     map[string]*job
	finished []Info
}

// Option configures a Scheduler.
type Option func(*schedulerOptions)

type schedulerOptions struct {
	engineOpts []ytdlp.EngineOption
}

// WithEngineOptions passes extra options to the escalation engine.
func WithEngineOptions(opts ...ytdlp.EngineOption) Option {
	return func(o *schedulerOptions) {
		o.engineOpts = append(o.engineOpts, opts...)
	}
}

const finishedHistory = 32

// NewScheduler wires a scheduler around the shared store, hub and executor.
func NewScheduler(cfg *config.Config, store *queue.Store, hub *events.Hub, exec ytdlp.Executor, logger *slog.Logger, opts ...Option) *Scheduler {
	var o schedulerOptions
	for _, opt := range opts {
		opt(&o)
	}
	logger = logging.NewComponentLogger(logger, "jobs")

	var sweep []string
	if cfg.Fetch.BrowserSweep {
		sweep = cfg.Fetch.Browsers
	}
	engineOpts := []ytdlp.EngineOption{
		ytdlp.WithEngineLogger(logging.NewComponentLogger(logger, "escalation")),
		ytdlp.WithCooldown(cfg.Fetch.RateLimitCooldown),
		ytdlp.WithBrowserSweep(sweep),
	}
	engineOpts = append(engineOpts, o.engineOpts...)

	root, stop := context.WithCancel(context.Background())
	return &Scheduler{
		cfg:      cfg,
		store:    store,
		hub:      hub,
		exec:     exec,
		engine:   ytdlp.NewEngine(exec, engineOpts...),
		resolver: ytdlp.NewResolver(exec, cfg.Fetch.YtDlpBinary, cfg.Fetch.PlaylistTimeout, logger),
		logger:   logger,
		root:     root,
		stopRoot: stop,
		jobs:     make(map[string]*job),
	}
}

// Submit validates req, starts it in the background, and returns its job id.
func (s *Scheduler) Submit(req Request) (string, error) {
	req, err := req.withDefaults(s.cfg)
	if err != nil {
		return "", err
	}
	if err := req.validate(); err != nil {
		return "", err
	}
	if s.root.Err() != nil {
		return "", errors.New("scheduler is shutting down")
	}

	id := uuid.NewString()
	var indices []int
	if req.Kind.IsPlaylist() {
		if err := s.store.Claim(id); err != nil {
			if errors.Is(err, queue.ErrClaimed) {
				return "", fmt.Errorf("%w: %v", ErrPlaylistBusy, err)
			}
			return "", err
		}
		indices, err = s.planIndices(req)
		if err != nil {
			_ = s.store.Release(context.Background(), id)
			return "", err
		}
	}

	ctx, cancel := context.WithCancel(s.root)
	ctx = services.WithJobID(ctx, id)
	ctx = services.WithJobKind(ctx, string(req.Kind))
	if req.ClientID != "" {
		ctx = services.WithClientID(ctx, req.ClientID)
	}

	j := &job{
		info: Info{
			ID:       id,
			Kind:     req.Kind,
			ClientID: req.ClientID,
			Target:   target(req),
			State:    StateRunning,
			Started:  time.Now().UTC(),
		},
		req:    req,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.mu.Lock()
	s.jobs[id] = j
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx, j, indices)
	return id, nil
}

// planIndices resolves the store positions a playlist job will visit.
func (s *Scheduler) planIndices(req Request) ([]int, error) {
	total, err := s.store.Len(context.Background())
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, invalid("playlist is empty; fetch one first")
	}
	switch req.Kind {
	case KindPlaylistOne:
		if req.Index > total {
			return nil, invalid("index %d out of range 1..%d", req.Index, total)
		}
		return []int{req.Index}, nil
	case KindPlaylistRange:
		start, end := clampRange(req.Start, req.End, total)
		if start > end {
			return nil, invalid("range %d-%d outside playlist of %d", req.Start, req.End, total)
		}
		return span(start, end), nil
	default:
		return span(1, total), nil
	}
}

// clampRange bounds a 1-based inclusive window to 1..total.
func clampRange(start, end, total int) (int, int) {
	return max(1, start), min(end, total)
}

func span(start, end int) []int {
	out := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		out = append(out, i)
	}
	return out
}

func (s *Scheduler) run(ctx context.Context, j *job, indices []int) {
	defer s.wg.Done()
	defer close(j.done)
	defer j.cancel()

	logger := logging.WithContext(ctx, s.logger)
	out := newEmitter(s.hub, j.req.ClientID)
	out.job(j.info, StateRunning)
	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_started"),
		logging.String("target", j.info.Target),
	)

	var res result
	switch j.req.Kind {
	case KindVideo, KindAudio:
		res = s.runSingle(ctx, j.req, out)
	case KindConvert:
		res = s.runConvert(ctx, j.req, out)
	default:
		res = s.runPlaylist(ctx, j.info.ID, j.req, indices, out)
		if err := s.store.Release(context.Background(), j.info.ID); err != nil {
			logging.WarnWithContext(logger, "release playlist claim", "playlist_release_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "later playlist jobs may be refused"),
				logging.String(logging.FieldErrorHint, "restart the daemon"),
			)
		} else if res.skipped > 0 {
			// Release folded skipped entries back into done.
			s.pushSnapshot(context.Background(), out)
		}
	}

	state := res.state()
	out.done(events.Done{Success: res.success, Path: res.path, Cancelled: res.cancelled})
	out.job(j.info, state)

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "job_finished"),
		logging.String("state", string(state)),
		logging.Duration("duration", time.Since(j.info.Started)),
	}
	if j.req.Kind.IsPlaylist() {
		attrs = append(attrs, logging.Int("succeeded", res.succeeded), logging.Int("failed", res.failed), logging.Int("skipped", res.skipped))
	}
	logger.Info("job finished", logging.Args(attrs...)...)
	s.finish(j, state)
}

func (s *Scheduler) finish(j *job, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j.info.State = state
	j.info.Finished = time.Now().UTC()
	delete(s.jobs, j.info.ID)
	s.finished = append(s.finished, j.info)
	if len(s.finished) > finishedHistory {
		s.finished = s.finished[len(s.finished)-finishedHistory:]
	}
}

// Stop cancels jobID, or every running job when jobID is empty. It returns the
// ids it cancelled.
func (s *Scheduler) Stop(jobID string) ([]string, error) {
	s.mu.Lock()
	var targets []*job
	if jobID == "" {
		for _, j := range s.jobs {
			targets = append(targets, j)
		}
	} else if j, ok := s.jobs[jobID]; ok {
		targets = append(targets, j)
	}
	s.mu.Unlock()

	if jobID != "" && len(targets) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	ids := make([]string, 0, len(targets))
	for _, j := range targets {
		j.cancel()
		ids = append(ids, j.info.ID)
		s.logger.Info("stop requested",
			logging.String(logging.FieldEventType, "job_stop_requested"),
			logging.String(logging.FieldJobID, j.info.ID),
			logging.String(logging.FieldJobKind, string(j.info.Kind)),
		)
	}
	sort.Strings(ids)
	return ids, nil
}

// Active lists running jobs ordered by start time.
func (s *Scheduler) Active() []Info {
	s.mu.Lock()
	out := make([]Info, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.info)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, k int) bool { return out[i].Started.Before(out[k].Started) })
	return out
}

// Recent lists recently finished jobs, oldest first.
func (s *Scheduler) Recent() []Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Info(nil), s.finished...)
}

// Wait blocks until jobID finishes or ctx ends.
func (s *Scheduler) Wait(ctx context.Context, jobID string) error {
	s.mu.Lock()
	j, ok := s.jobs[jobID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FetchPlaylist resolves url and replaces the store contents with its entries.
// The new snapshot is pushed to clientID when set.
func (s *Scheduler) FetchPlaylist(ctx context.Context, url, cookieBrowser, cookieFile, clientID string) ([]queue.Entry, error) {
	if owner := s.store.Owner(); owner != "" {
		return nil, fmt.Errorf("%w (held by %s)", ErrPlaylistBusy, owner)
	}
	entries, err := s.resolver.Resolve(ctx, url, ytdlp.CookieArgs(cookieBrowser, cookieFile))
	if err != nil {
		return nil, err
	}
	if err := s.store.Replace(ctx, url, entries); err != nil {
		if errors.Is(err, queue.ErrClaimed) {
			return nil, fmt.Errorf("%w: %v", ErrPlaylistBusy, err)
		}
		return nil, err
	}
	snapshot, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	newEmitter(s.hub, clientID).playlist(snapshot)
	return snapshot, nil
}

// ResetPlaylist returns every entry to queued.
func (s *Scheduler) ResetPlaylist(ctx context.Context, clientID string) (int64, error) {
	n, err := s.store.Reset(ctx)
	if err != nil {
		if errors.Is(err, queue.ErrClaimed) {
			return 0, fmt.Errorf("%w: %v", ErrPlaylistBusy, err)
		}
		return 0, err
	}
	if snapshot, err := s.store.Snapshot(ctx); err == nil {
		newEmitter(s.hub, clientID).playlist(snapshot)
	}
	return n, nil
}

// Shutdown cancels every job and waits for them to finish or ctx to end.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.stopRoot()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for jobs: %w", ctx.Err())
	}
}

func target(req Request) string {
	switch req.Kind {
	case KindVideo, KindAudio:
		return req.URL
	case KindPlaylistOne:
		return fmt.Sprintf("#%d", req.Index)
	case KindPlaylistRange:
		return fmt.Sprintf("#%d-#%d", req.Start, req.End)
	case KindPlaylistAll:
		return "all"
	case KindConvert:
		return req.SourcePath
	default:
		return ""
	}
}
