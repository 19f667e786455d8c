package daemonctl_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"tubefetch/internal/daemon"
	"tubefetch/internal/daemonctl"
	"tubefetch/internal/ipc"
	"tubefetch/internal/logging"
	"tubefetch/internal/procexec"
	"tubefetch/internal/queue"
	"tubefetch/internal/testsupport"
)

func TestBuildDependencySummary(t *testing.T) {
	tests := []struct {
		name     string
		deps     []ipc.DependencyStatus
		severity string
		detail   string
	}{
		{name: "empty", severity: "info", detail: "No dependency checks configured"},
		{
			name:     "all available",
			deps:     []ipc.DependencyStatus{{Name: "yt-dlp", Available: true}, {Name: "FFmpeg", Available: true, Optional: true}},
			severity: "ok",
			detail:   "2/2 available",
		},
		{
			name:     "optional missing",
			deps:     []ipc.DependencyStatus{{Name: "yt-dlp", Available: true}, {Name: "FFmpeg", Optional: true}},
			severity: "warn",
			detail:   "1/2 available (missing: 0 required, 1 optional)",
		},
		{
			name:     "required missing",
			deps:     []ipc.DependencyStatus{{Name: "yt-dlp"}, {Name: "FFmpeg", Optional: true}},
			severity: "error",
			detail:   "0/2 available (missing: 1 required, 1 optional)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := daemonctl.BuildDependencySummary(tt.deps)
			if got.Severity != tt.severity || got.Detail != tt.detail {
				t.Fatalf("got %+v, want severity %q detail %q", got, tt.severity, tt.detail)
			}
		})
	}
}

func TestForceKillProcessRefusesUnsafeTargets(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "tubefetch.pid")

	if _, err := daemonctl.ForceKillProcess(pidPath, "", 0); err == nil || !strings.Contains(err.Error(), "unable to determine daemon pid") {
		t.Fatalf("expected missing pid error, got %v", err)
	}
	if err := os.WriteFile(pidPath, []byte("garbage\n"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	if _, err := daemonctl.ForceKillProcess(pidPath, "", os.Getpid()); err == nil || !strings.Contains(err.Error(), "refusing to kill current process") {
		t.Fatalf("expected refusal for own pid, got %v", err)
	}
}

func TestOfflineHelpers(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithTool("yt-dlp", "exit 0\n"))
	cfg.Fetch.FFmpegBinary = "tubefetch-missing-ffmpeg"
	socket := filepath.Join(t.TempDir(), "missing.sock")

	if _, err := daemonctl.StopAndTerminate(socket, cfg, time.Second); !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
	if err := daemonctl.WaitForShutdown(socket, time.Second); err != nil {
		t.Fatalf("WaitForShutdown on missing socket: %v", err)
	}
	alive, pid, err := daemonctl.ProcessInfo(socket)
	if err != nil || alive || pid != 0 {
		t.Fatalf("ProcessInfo: alive=%v pid=%d err=%v", alive, pid, err)
	}

	status, err := daemonctl.BuildStatusSnapshot(socket, cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if status.Running {
		t.Fatal("expected offline snapshot")
	}
	if len(status.Dependencies) != 2 {
		t.Fatalf("expected local dependency checks, got %+v", status.Dependencies)
	}
	summary := daemonctl.BuildDependencySummary(status.Dependencies)
	if summary.Severity != "warn" || summary.MissingOptional != 1 {
		t.Fatalf("expected optional ffmpeg to be missing, got %+v", summary)
	}
}

func TestOfflineSnapshotWithStubbedBinaries(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	status, err := daemonctl.BuildStatusSnapshot(filepath.Join(t.TempDir(), "missing.sock"), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	summary := daemonctl.BuildDependencySummary(status.Dependencies)
	if summary.Severity != "ok" || summary.Available != 2 {
		t.Fatalf("expected both tools available, got %+v", summary)
	}
}

func TestEnsureStartedAndStopAgainstLiveDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithTool("yt-dlp", "exit 0\n"))
	cfg.Paths.APIBind = ""
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	store, err := queue.Open()
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	d, err := daemon.New(cfg, store, procexec.NewRunner(), logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var (
		srv  *ipc.Server
		once sync.Once
	)
	stopped := make(chan struct{})
	srv, err = ipc.NewServer(ctx, cfg.SocketPath(), d, logging.NewNop(), ipc.WithShutdown(func() {
		once.Do(func() {
			d.Stop()
			srv.Close()
			close(stopped)
		})
	}))
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() { once.Do(srv.Close) })
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon start: %v", err)
	}

	start, err := daemonctl.EnsureStarted(cfg.SocketPath(), "/nonexistent/tubefetch", daemonctl.LaunchOptions{}, time.Second)
	if err != nil {
		t.Fatalf("EnsureStarted: %v", err)
	}
	if start.State != daemonctl.StartStateAlreadyRunning || start.Launched || start.PID != os.Getpid() {
		t.Fatalf("unexpected start result: %+v", start)
	}

	result, err := daemonctl.StopAndTerminate(cfg.SocketPath(), cfg, 5*time.Second)
	if err != nil {
		t.Fatalf("StopAndTerminate: %v", err)
	}
	if !result.StopAcknowledged || result.ForcedKill {
		t.Fatalf("unexpected stop result: %+v", result)
	}
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown callback not invoked")
	}
}
