package main

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func TestCLIVideoFollowsJobToCompletion(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"video", "https://example.test/v"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("video: %v\n%s", err, out)
	}
	requireContains(t, out, "[download] 100.0% of 1.00MiB")
	requireContains(t, out, "Finished: "+env.cfg.Paths.DownloadDir)
}

func TestCLIRejectsInvalidRequestBeforeFollowing(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"video", "https://example.test/v", "--quality", "8k"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "invalid job request") {
		t.Fatalf("expected validation error, got %v", err)
	}
	if clients := env.daemon.Hub().Clients(); len(clients) != 0 {
		t.Fatalf("expected rejected submit to release its channel, got %v", clients)
	}
}

func TestCLIDetachThenWatch(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"audio", "https://example.test/a", "--detach"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("audio --detach: %v", err)
	}
	match := regexp.MustCompile(`tubefetch watch (\S+)`).FindStringSubmatch(out)
	if match == nil {
		t.Fatalf("expected watch hint in %q", out)
	}

	out, _, err = runCLI(t, []string{"watch", match[1]}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("watch: %v\n%s", err, out)
	}
	requireContains(t, out, "Finished:")
}

func TestCLIPlaylistWorkflow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"playlist", "fetch", "https://example.test/list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("playlist fetch: %v", err)
	}
	requireContains(t, out, "Fetched 2 entries")
	requireContains(t, out, "Pilot")

	out, _, err = runCLI(t, []string{"playlist", "all"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("playlist all: %v\n%s", err, out)
	}
	requireContains(t, out, "Playlist: 2/2 done")

	out, _, err = runCLI(t, []string{"playlist", "show"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("playlist show: %v", err)
	}
	requireContains(t, out, "Finale")
	requireContains(t, out, "Done: 2")
	requireContains(t, out, "2/2 done")

	out, _, err = runCLI(t, []string{"playlist", "show", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("playlist show --json: %v", err)
	}
	requireContains(t, out, `"title": "Pilot"`)

	out, _, err = runCLI(t, []string{"playlist", "reset"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("playlist reset: %v", err)
	}
	requireContains(t, out, "Reset 2 entries")

	if _, _, err := runCLI(t, []string{"playlist", "one", "0"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected index validation error")
	}
}

func TestCLIStatusAndStop(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Daemon ==")
	requireContains(t, out, "Running (pid")
	requireContains(t, out, "== Dependencies ==")
	requireContains(t, out, "Playlist is empty")

	out, _, err = runCLI(t, []string{"stop"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "No running jobs")

	if _, _, err := runCLI(t, []string{"stop", "missing"}, env.socketPath, env.configPath); err == nil || !strings.Contains(err.Error(), "job not found") {
		t.Fatalf("expected job not found, got %v", err)
	}
}

func TestCLILogsPrintsTrailingLines(t *testing.T) {
	env := setupCLITestEnv(t)
	logPath := env.daemon.LogPath()
	if err := os.WriteFile(logPath, []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "-n", "2"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.TrimSpace(out) != "two\nthree" {
		t.Fatalf("unexpected log output %q", out)
	}
}

func TestCLIOfflineStatusAndDialError(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "absent.sock")
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, socket, env.configPath)
	if err != nil {
		t.Fatalf("offline status: %v", err)
	}
	requireContains(t, out, "Not running")
	requireContains(t, out, "yt-dlp")

	_, _, err = runCLI(t, []string{"playlist", "show"}, socket, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "tubefetch daemon start") {
		t.Fatalf("expected dial hint, got %v", err)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	target := filepath.Join(t.TempDir(), "tubefetch", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, target)
	requireContains(t, out, "fetch.browsers")

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", ""); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, "", ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	t.Setenv("HOME", t.TempDir())
	out, _, err = runCLI(t, []string{"config", "validate"}, "", target)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Downloads")
	requireContains(t, out, "browser sweep: chrome")
	requireContains(t, out, "yt-dlp")
	requireContains(t, out, "Configuration valid")
}

func TestRenderTableTrimsLongTitlesAndDrawsFooter(t *testing.T) {
	long := strings.Repeat("very long title ", 10)
	out := renderTable(playlistColumns, [][]string{{"1", long, "Done"}, {"2", "Short"}}, []string{"", "2 entries", "1/2 done"})
	if strings.Contains(out, long) {
		t.Fatalf("expected title trimmed to %d cells:\n%s", titleWidth, out)
	}
	requireContains(t, out, "…")
	requireContains(t, out, "Short")
	requireContains(t, out, "1/2 done")
	if got := ellipsize("abc", 10); got != "abc" {
		t.Fatalf("ellipsize short = %q", got)
	}
	if got := ellipsize("abcdefghij", 5); got != "abcd…" {
		t.Fatalf("ellipsize long = %q", got)
	}
}

func TestParseDownloadPercent(t *testing.T) {
	tests := []struct {
		line string
		want float64
		ok   bool
	}{
		{"[download]  42.5% of 10.00MiB at 1.00MiB/s ETA 00:05", 42.5, true},
		{"[download] 100% of 3.2MiB", 100, true},
		{"[download] Destination: clip.mp4", 0, false},
		{"ERROR: HTTP Error 403", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseDownloadPercent(tt.line)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseDownloadPercent(%q) = %v, %v; want %v, %v", tt.line, got, ok, tt.want, tt.ok)
		}
	}
}

func TestStateLabel(t *testing.T) {
	if got := stateLabel("playlist_range"); got != "Playlist Range" {
		t.Fatalf("stateLabel = %q", got)
	}
	if got := stateLabel(""); got != "-" {
		t.Fatalf("stateLabel empty = %q", got)
	}
}
