package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/hashicorp/go-multierror"

	"tubefetch/internal/api"
	"tubefetch/internal/config"
	"tubefetch/internal/deps"
	"tubefetch/internal/events"
	"tubefetch/internal/jobs"
	"tubefetch/internal/logging"
	"tubefetch/internal/procexec"
	"tubefetch/internal/queue"
)

const shutdownTimeout = 10 * time.Second

// Daemon owns the playlist store, event hub and scheduler for one process and
// enforces single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *queue.Store
	hub       *events.Hub
	runner    *procexec.Runner
	scheduler *jobs.Scheduler
	playlist  *api.PlaylistService
	deps      []deps.Status

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	life    sync.Mutex
	mu      sync.Mutex
	cancel  context.CancelFunc
	started time.Time
	api     *apiServer
	reaper  sync.WaitGroup
}

// New constructs a daemon around an open store and a process runner.
func New(cfg *config.Config, store *queue.Store, runner *procexec.Runner, logger *slog.Logger, opts ...jobs.Option) (*Daemon, error) {
	if cfg == nil || store == nil || runner == nil {
		return nil, errors.New("daemon requires config, store, and process runner")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	hub := events.NewHub(
		events.WithBacklog(cfg.Events.Backlog),
		events.WithLogger(logging.NewComponentLogger(logger, "events")),
	)
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		store:     store,
		hub:       hub,
		runner:    runner,
		scheduler: jobs.NewScheduler(cfg, store, hub, runner, logger, opts...),
		playlist:  api.NewPlaylistService(store),
		deps:      deps.CheckBinaries(deps.Requirements(cfg)),
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, starts the HTTP API and the idle-channel
// reaper.
func (d *Daemon) Start(ctx context.Context) error {
	d.life.Lock()
	defer d.life.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another tubefetch daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	srv := newAPIServer(d.cfg, d, d.logger)
	if err := srv.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.startReaper(runCtx)

	d.mu.Lock()
	d.cancel = cancel
	d.api = srv
	d.started = time.Now().UTC()
	d.mu.Unlock()
	d.running.Store(true)
	d.logger.Info("tubefetch daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("api", srv.address()),
	)
	return nil
}

func (d *Daemon) startReaper(ctx context.Context) {
	idle := d.cfg.Events.IdleTimeout
	if idle <= 0 {
		return
	}
	interval := max(idle/2, time.Second)
	d.reaper.Add(1)
	go func() {
		defer d.reaper.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := d.hub.ReapIdle(idle); n > 0 {
					d.logger.Debug("reaped idle event channels", logging.Int("count", n))
				}
			}
		}
	}()
}

// Stop cancels running jobs, stops the HTTP API and releases the lock. The
// daemon may be started again afterwards.
func (d *Daemon) Stop() {
	d.life.Lock()
	defer d.life.Unlock()
	if !d.running.Load() {
		return
	}

	d.mu.Lock()
	cancel, srv := d.cancel, d.api
	d.cancel, d.api = nil, nil
	d.mu.Unlock()

	cancel()
	d.reaper.Wait()
	srv.stop()
	if stopped, _ := d.scheduler.Stop(""); len(stopped) > 0 {
		d.logger.Info("cancelled running jobs", logging.Strings("jobs", stopped))
	}
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_unlock_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "next daemon start may report another instance"),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no daemon is running"),
		)
	}
	d.running.Store(false)
	d.logger.Info("tubefetch daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close stops the daemon, waits for jobs to unwind, and releases the hub and
// store. Every failure is reported.
func (d *Daemon) Close() error {
	d.Stop()

	var result *multierror.Error
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := d.scheduler.Shutdown(ctx); err != nil {
		if n := d.runner.Registry().TerminateAll(); n > 0 {
			d.logger.Warn("terminated lingering processes", logging.Int("count", n))
		}
		result = multierror.Append(result, fmt.Errorf("shutdown scheduler: %w", err))
	}
	d.hub.Close()
	if err := d.store.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close playlist store: %w", err))
	}
	return result.ErrorOrNil()
}

// Hub exposes the event hub so transports can subscribe clients.
func (d *Daemon) Hub() *events.Hub {
	return d.hub
}

// Submit validates and starts a job.
func (d *Daemon) Submit(req jobs.Request) (string, error) {
	return d.scheduler.Submit(req)
}

// StopJobs cancels jobID, or every running job when jobID is empty.
func (d *Daemon) StopJobs(jobID string) ([]string, error) {
	return d.scheduler.Stop(strings.TrimSpace(jobID))
}

// WaitJob blocks until jobID finishes or ctx ends.
func (d *Daemon) WaitJob(ctx context.Context, jobID string) error {
	return d.scheduler.Wait(ctx, jobID)
}

// Playlist returns the current playlist view.
func (d *Daemon) Playlist(ctx context.Context) (api.PlaylistResponse, error) {
	return d.playlist.Describe(ctx)
}

// FetchPlaylist resolves req.URL into the store and returns the new view.
func (d *Daemon) FetchPlaylist(ctx context.Context, req api.FetchRequest) (api.PlaylistResponse, error) {
	if _, err := d.scheduler.FetchPlaylist(ctx, req.URL, req.CookieBrowser, req.CookieFile, req.ClientID); err != nil {
		return api.PlaylistResponse{}, err
	}
	return d.playlist.Describe(ctx)
}

// ResetPlaylist returns every entry to queued.
func (d *Daemon) ResetPlaylist(ctx context.Context, clientID string) (int64, error) {
	return d.scheduler.ResetPlaylist(ctx, clientID)
}

// Subscribe opens an event channel and returns its id.
func (d *Daemon) Subscribe() string {
	return d.hub.Subscribe().ID()
}

// Events drains up to limit pending events for clientID, waiting up to wait
// for the first one.
func (d *Daemon) Events(ctx context.Context, clientID string, wait time.Duration, limit int) ([]events.Event, error) {
	ch, ok := d.hub.Lookup(clientID)
	if !ok {
		return nil, fmt.Errorf("%w: unknown client %q", events.ErrClosed, clientID)
	}
	return ch.Drain(ctx, wait, limit)
}

// Unsubscribe closes clientID's event channel.
func (d *Daemon) Unsubscribe(clientID string) bool {
	return d.hub.Unsubscribe(clientID)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	d.mu.Lock()
	started := d.started
	address := d.api.address()
	d.mu.Unlock()

	playlist, err := d.playlist.Describe(ctx)
	if err != nil {
		d.logger.Debug("playlist status unavailable", logging.Error(err))
	}
	status := api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LockFilePath: d.lockPath,
		SocketPath:   d.cfg.SocketPath(),
		APIAddress:   address,
		Clients:      len(d.hub.Clients()),
		ActiveJobs:   api.FromJobs(d.scheduler.Active()),
		RecentJobs:   api.FromJobs(d.scheduler.Recent()),
		Executions:   api.FromExecutions(d.runner.Registry().Active()),
		Playlist:     playlist,
		Dependencies: api.FromDependencies(d.deps),
	}
	if status.Running && !started.IsZero() {
		status.Started = started.Format(time.RFC3339)
	}
	return status
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	if strings.TrimSpace(d.cfg.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(d.cfg.Paths.LogDir, "tubefetch.log")
}
