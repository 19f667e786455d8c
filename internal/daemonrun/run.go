package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"tubefetch/internal/config"
	"tubefetch/internal/daemon"
	"tubefetch/internal/deps"
	"tubefetch/internal/ipc"
	"tubefetch/internal/logging"
	"tubefetch/internal/procexec"
	"tubefetch/internal/queue"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// SocketPath overrides the IPC socket location derived from the config.
	SocketPath string
}

// Run starts the tubefetch daemon and blocks until it receives SIGINT or
// SIGTERM, the context ends, or a client requests shutdown over IPC.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", filepath.Join(cfg.Paths.LogDir, "tubefetch.log")},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	logDependencySnapshot(logger, cfg)

	store, err := queue.Open()
	if err != nil {
		logger.Error("open playlist store", logging.Error(err))
		return err
	}

	runner := procexec.NewRunner(
		procexec.WithLogger(logging.NewComponentLogger(logger, "procexec")),
		procexec.WithKillGrace(cfg.Fetch.KillGrace),
		procexec.WithCaptureLimit(cfg.Fetch.CaptureLimitKiB*1024),
	)
	d, err := daemon.New(cfg, store, runner, logger)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer func() {
		if err := d.Close(); err != nil {
			logging.WarnWithContext(logger, "daemon shutdown incomplete", "daemon_close_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "child processes may have outlived the daemon"),
				logging.String(logging.FieldErrorHint, "check for stray yt-dlp processes"),
			)
		}
	}()

	socketPath := opts.SocketPath
	if socketPath == "" {
		socketPath = cfg.SocketPath()
	}
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger, ipc.WithShutdown(cancel))
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "stop the other instance or remove a stale lock file"),
			logging.String(logging.FieldImpact, "no jobs can be accepted"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("tubefetch daemon shutting down",
		logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	attrs := []logging.Attr{logging.String(logging.FieldEventType, "dependency_snapshot")}
	for _, status := range statuses {
		key := strings.ToLower(status.Name)
		attrs = append(attrs,
			logging.Bool(key+"_available", status.Available),
			logging.String(key+"_binary", status.Command),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
	if missing := deps.Missing(statuses); len(missing) > 0 {
		logging.WarnWithContext(logger, "required tools missing", "dependency_missing",
			logging.Strings("missing", missing),
			logging.String(logging.FieldImpact, "downloads will fail until the tools are installed"),
			logging.String(logging.FieldErrorHint, "install yt-dlp or set fetch.ytdlp_binary"),
		)
	}
}
