package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tubefetch/internal/config"
	"tubefetch/internal/daemon"
	"tubefetch/internal/ipc"
	"tubefetch/internal/logging"
	"tubefetch/internal/procexec"
	"tubefetch/internal/queue"
	"tubefetch/internal/testsupport"
)

const stubYtDlp = `case "$*" in
  *--flat-playlist*)
    echo "p1|||Pilot|||https://example.test/p1"
    echo "p2|||Finale|||https://example.test/p2"
    ;;
  *)
    echo "[download] Destination: clip.mp4"
    echo "[download]  42.0% of 1.00MiB"
    echo "[download] 100.0% of 1.00MiB"
    ;;
esac
exit 0
`

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	socketPath string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithTool("yt-dlp", stubYtDlp))
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	cfg.Paths.APIBind = ""
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	store, err := queue.Open()
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	logger := logging.NewNop()
	d, err := daemon.New(cfg, store, procexec.NewRunner(procexec.WithKillGrace(cfg.Fetch.KillGrace)), logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logger)
	if err != nil {
		cancel()
		_ = d.Close()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon start: %v", err)
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		_ = d.Close()
	})

	return &cliTestEnv{
		cfg:        cfg,
		daemon:     d,
		socketPath: cfg.SocketPath(),
		configPath: configPath,
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
download_dir = %q
log_dir = %q
api_bind = "127.0.0.1:0"

[fetch]
ytdlp_binary = %q
rate_limit_cooldown = "0s"
kill_grace = "1s"
browser_sweep = false
`, cfg.Paths.DownloadDir, cfg.Paths.LogDir, cfg.Fetch.YtDlpBinary)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
