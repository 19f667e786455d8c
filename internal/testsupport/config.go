package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"tubefetch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The rate limit cooldown is zeroed and the browser sweep disabled so engine
// runs stay fast and predictable.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Fetch.RateLimitCooldown = 0
	cfgVal.Fetch.RateLimitCooldownValue = "0s"
	cfgVal.Fetch.KillGrace = time.Second
	cfgVal.Fetch.KillGraceValue = "1s"
	cfgVal.Fetch.BrowserSweep = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithBrowserSweep enables the cookie sweep over browsers.
func WithBrowserSweep(browsers ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Fetch.BrowserSweep = true
		b.cfg.Fetch.Browsers = append([]string(nil), browsers...)
	}
}

// WithAPIToken sets the bearer token required by the HTTP API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithTool writes an executable shell script named name into the config's bin
// directory, prepends that directory to PATH, and points the matching binary
// setting at it.
func WithTool(name, body string) ConfigOption {
	return func(b *configBuilder) {
		path := writeExecutable(b.t, filepath.Join(b.baseDir, "bin"), name, body)
		prependPath(b.t, filepath.Dir(path))
		switch name {
		case "yt-dlp":
			b.cfg.Fetch.YtDlpBinary = path
		case "ffmpeg":
			b.cfg.Fetch.FFmpegBinary = path
		}
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, yt-dlp and ffmpeg are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"yt-dlp", "ffmpeg"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			writeExecutable(b.t, binDir, name, "exit 0\n")
		}
		prependPath(b.t, binDir)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DownloadDir)
}

func writeExecutable(t testing.TB, dir, name, body string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}

func prependPath(t testing.TB, dir string) {
	t.Helper()
	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}
