package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"tubefetch/internal/api"
	"tubefetch/internal/config"
	"tubefetch/internal/events"
	"tubefetch/internal/jobs"
	"tubefetch/internal/logging"
	"tubefetch/internal/queue"
	"tubefetch/internal/services"
	"tubefetch/internal/ytdlp"
)

const maxRequestBody = 1 << 20

type apiServer struct {
	bind      string
	token     string
	heartbeat time.Duration
	fetchWait time.Duration
	logger    *slog.Logger
	daemon    *Daemon

	ctx      context.Context
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}
	srv := &apiServer{
		bind:      bind,
		token:     cfg.Paths.APIToken,
		heartbeat: cfg.Events.HeartbeatInterval,
		fetchWait: cfg.Fetch.PlaylistTimeout + 15*time.Second,
		logger:    logger,
		daemon:    d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", authMiddleware(s.token, s.handleStatus))
	mux.HandleFunc("/api/events", authMiddleware(s.token, s.handleEvents))
	mux.HandleFunc("/api/jobs", authMiddleware(s.token, s.handleJobs))
	mux.HandleFunc("/api/stop", authMiddleware(s.token, s.handleStop))
	mux.HandleFunc("/api/playlist", authMiddleware(s.token, s.handlePlaylist))
	mux.HandleFunc("/api/playlist/fetch", authMiddleware(s.token, s.handlePlaylistFetch))
	mux.HandleFunc("/api/playlist/reset", authMiddleware(s.token, s.handlePlaylistReset))
	return mux
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	s.ctx = ctx

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

func (s *apiServer) address() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

// handleEvents subscribes the caller and streams its channel as SSE. The
// stream ends when the client disconnects or the daemon stops.
func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	if s.ctx != nil {
		stop := context.AfterFunc(s.ctx, cancel)
		defer stop()
	}
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	hub := s.daemon.Hub()
	ch := hub.Subscribe()
	logger := s.log().With(logging.String(logging.FieldClientID, ch.ID()))
	logger.Debug("sse client connected", logging.String("remote", r.RemoteAddr))
	if err := events.ServeSSE(ctx, w, hub, ch, s.heartbeat); err != nil && !errors.Is(err, context.Canceled) {
		logger.Debug("sse stream ended", logging.Error(err))
	}
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, map[string][]api.Job{
			"active": api.FromJobs(s.daemon.scheduler.Active()),
			"recent": api.FromJobs(s.daemon.scheduler.Recent()),
		})
	case http.MethodPost:
		var req jobs.Request
		if !s.decode(w, r, &req) {
			return
		}
		id, err := s.daemon.Submit(req)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		s.writeJSON(w, http.StatusAccepted, api.SubmitResponse{JobID: id})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.StopRequest
	if !s.decode(w, r, &req) {
		return
	}
	stopped, err := s.daemon.StopJobs(req.JobID)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.StopResponse{Stopped: stopped})
}

func (s *apiServer) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	view, err := s.daemon.Playlist(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handlePlaylistFetch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.FetchRequest
	if !s.decode(w, r, &req) {
		return
	}
	_ = http.NewResponseController(w).SetWriteDeadline(time.Now().Add(s.fetchWait))
	view, err := s.daemon.FetchPlaylist(r.Context(), req)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handlePlaylistReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.ResetRequest
	if !s.decode(w, r, &req) {
		return
	}
	n, err := s.daemon.ResetPlaylist(r.Context(), req.ClientID)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ResetResponse{Reset: n})
}

// decode reads an optional JSON body into v. An empty body leaves v zeroed.
func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, jobs.ErrInvalidRequest), errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, jobs.ErrJobNotFound), errors.Is(err, queue.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, jobs.ErrPlaylistBusy), errors.Is(err, queue.ErrClaimed):
		return http.StatusConflict
	case errors.Is(err, ytdlp.ErrEmptyPlaylist):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrExternalTool):
		return http.StatusBadGateway
	case errors.Is(err, services.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeFailure(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.WarnWithContext(s.log(), "api request failed", "api_request_failed",
			logging.Error(err),
			logging.Int("status", status),
			logging.String(logging.FieldImpact, "client request was not completed"),
		)
	}
	s.writeError(w, status, err.Error())
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
