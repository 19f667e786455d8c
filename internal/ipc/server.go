package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"tubefetch/internal/daemon"
	"tubefetch/internal/events"
	"tubefetch/internal/logging"
	"tubefetch/internal/logs"
)

// ServiceName is the JSON-RPC receiver name.
const ServiceName = "Tubefetch"

const (
	defaultEventWait = 25 * time.Second
	maxEventWait     = time.Minute
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// ServerOption configures a Server.
type ServerOption func(*service)

// WithShutdown registers the callback invoked by the Shutdown RPC.
func WithShutdown(fn func()) ServerOption {
	return func(s *service) {
		s.shutdown = fn
	}
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger, opts ...ServerOption) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	svc := &service{daemon: d, logger: logger, ctx: serverCtx}
	for _, opt := range opts {
		opt(svc)
	}
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName(ServiceName, svc); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"),
				)
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				stop := context.AfterFunc(s.ctx, func() { _ = c.Close() })
				defer stop()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server, drops open connections and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"),
		)
	}
}

type service struct {
	daemon   *daemon.Daemon
	logger   *slog.Logger
	ctx      context.Context
	shutdown func()
}

func (s *service) Submit(req SubmitRequest, resp *SubmitResponse) error {
	id, err := s.daemon.Submit(req.Job)
	if err != nil {
		return err
	}
	resp.JobID = id
	s.logger.Debug("job submitted via IPC",
		logging.String(logging.FieldJobID, id),
		logging.String(logging.FieldJobKind, string(req.Job.Kind)),
	)
	return nil
}

func (s *service) Stop(req StopRequest, resp *StopResponse) error {
	stopped, err := s.daemon.StopJobs(req.JobID)
	if err != nil {
		return err
	}
	resp.Stopped = stopped
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	*resp = s.daemon.Status(s.ctx)
	return nil
}

func (s *service) Playlist(_ PlaylistRequest, resp *PlaylistResponse) error {
	view, err := s.daemon.Playlist(s.ctx)
	if err != nil {
		return err
	}
	*resp = view
	return nil
}

func (s *service) FetchPlaylist(req FetchRequest, resp *PlaylistResponse) error {
	view, err := s.daemon.FetchPlaylist(s.ctx, req)
	if err != nil {
		return err
	}
	*resp = view
	return nil
}

func (s *service) ResetPlaylist(req ResetRequest, resp *ResetResponse) error {
	n, err := s.daemon.ResetPlaylist(s.ctx, req.ClientID)
	if err != nil {
		return err
	}
	resp.Reset = n
	return nil
}

func (s *service) Subscribe(_ SubscribeRequest, resp *SubscribeResponse) error {
	resp.ClientID = s.daemon.Subscribe()
	return nil
}

// Events long-polls a channel. A missing channel is reported through Closed
// rather than an error so clients can tell it apart from transport failures.
func (s *service) Events(req EventsRequest, resp *EventsResponse) error {
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	switch {
	case wait < 0:
		wait = 0
	case wait == 0:
		wait = defaultEventWait
	case wait > maxEventWait:
		wait = maxEventWait
	}
	batch, err := s.daemon.Events(s.ctx, req.ClientID, wait, req.Limit)
	switch {
	case errors.Is(err, events.ErrClosed):
		resp.Closed = true
		resp.Events = batch
		return nil
	case errors.Is(err, context.Canceled):
		resp.Closed = true
		return nil
	case err != nil:
		return err
	}
	resp.Events = batch
	return nil
}

func (s *service) Unsubscribe(req UnsubscribeRequest, resp *UnsubscribeResponse) error {
	resp.Removed = s.daemon.Unsubscribe(req.ClientID)
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) Shutdown(_ ShutdownRequest, resp *ShutdownResponse) error {
	if s.shutdown == nil {
		return errors.New("shutdown not supported by this server")
	}
	s.logger.Info("daemon shutdown requested via IPC",
		logging.String(logging.FieldEventType, "daemon_shutdown_requested"))
	resp.Accepted = true
	go s.shutdown()
	return nil
}
