package daemon_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"tubefetch/internal/api"
	"tubefetch/internal/config"
	"tubefetch/internal/daemon"
	"tubefetch/internal/events"
	"tubefetch/internal/jobs"
	"tubefetch/internal/logging"
	"tubefetch/internal/procexec"
	"tubefetch/internal/queue"
	"tubefetch/internal/testsupport"
)

const stubYtDlp = `case "$*" in
  *--flat-playlist*)
    echo "a1|||First clip|||https://example.test/a1"
    echo "a2|||Second clip|||NA"
    ;;
  *)
    echo "[download] Destination: clip.mp4"
    echo "[download] 100.0% of 1.00MiB"
    ;;
esac
exit 0
`

func newDaemon(t *testing.T, opts ...testsupport.ConfigOption) (*daemon.Daemon, *config.Config) {
	t.Helper()
	opts = append([]testsupport.ConfigOption{testsupport.WithTool("yt-dlp", stubYtDlp)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	store, err := queue.Open()
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	runner := procexec.NewRunner(procexec.WithKillGrace(cfg.Fetch.KillGrace))
	d, err := daemon.New(cfg, store, runner, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return d, cfg
}

func startDaemon(t *testing.T, opts ...testsupport.ConfigOption) (*daemon.Daemon, string) {
	t.Helper()
	d, _ := newDaemon(t, opts...)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	addr := d.Status(context.Background()).APIAddress
	if addr == "" {
		t.Fatal("expected api address")
	}
	return d, "http://" + addr
}

func TestDaemonStartStop(t *testing.T) {
	d, cfg := newDaemon(t)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status(ctx)
	if !status.Running || status.Started == "" {
		t.Fatalf("expected daemon to report running, got %+v", status)
	}
	if status.LockFilePath != cfg.LockPath() {
		t.Fatalf("unexpected lock path %q", status.LockFilePath)
	}
	if len(status.Dependencies) != 2 || !status.Dependencies[0].Available {
		t.Fatalf("expected stubbed yt-dlp to be available, got %+v", status.Dependencies)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	store, err := queue.Open()
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	other, err := daemon.New(cfg, store, procexec.NewRunner(), logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	defer other.Close()
	if err := other.Start(ctx); err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock contention error, got %v", err)
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
	if err := d.Start(ctx); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
}

func TestAPIStatusRequiresToken(t *testing.T) {
	_, base := startDaemon(t, testsupport.WithAPIToken("s3cret"))

	resp, err := http.Get(base + "/api/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, base+"/api/status", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", resp.StatusCode)
	}
	var status api.DaemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running || status.PID == 0 {
		t.Fatalf("unexpected status: %+v", status)
	}

	resp, err = http.Get(base + "/api/status?access_token=s3cret")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected query token to be accepted, got %d", resp.StatusCode)
	}
}

type sseEvent struct {
	kind string
	data string
}

// readSSE parses a text/event-stream body, skipping comments.
func readSSE(r *bufio.Reader, out chan<- sseEvent) {
	defer close(out)
	var cur sseEvent
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if cur.kind != "" {
				out <- cur
			}
			cur = sseEvent{}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event: "):
			cur.kind = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func TestAPISubmitStreamsEventsToSubscriber(t *testing.T) {
	_, base := startDaemon(t)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open event stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	stream := make(chan sseEvent, 64)
	go readSSE(bufio.NewReader(resp.Body), stream)

	hello := <-stream
	if hello.kind != string(events.KindHello) {
		t.Fatalf("expected hello first, got %+v", hello)
	}
	var h events.Hello
	if err := json.Unmarshal([]byte(hello.data), &h); err != nil || h.ClientID == "" {
		t.Fatalf("bad hello payload %q: %v", hello.data, err)
	}

	submit := postJSON(t, base+"/api/jobs", map[string]any{
		"kind":      "video",
		"url":       "https://example.test/watch",
		"client_id": h.ClientID,
	})
	defer submit.Body.Close()
	if submit.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", submit.StatusCode)
	}
	var accepted api.SubmitResponse
	if err := json.NewDecoder(submit.Body).Decode(&accepted); err != nil || accepted.JobID == "" {
		t.Fatalf("bad submit response: %v", err)
	}

	var logs []string
	for ev := range stream {
		switch ev.kind {
		case string(events.KindLog):
			var line string
			_ = json.Unmarshal([]byte(ev.data), &line)
			logs = append(logs, line)
		case string(events.KindDone):
			var done events.Done
			if err := json.Unmarshal([]byte(ev.data), &done); err != nil {
				t.Fatalf("decode done: %v", err)
			}
			if !done.Success {
				t.Fatalf("expected success, logs:\n%s", strings.Join(logs, "\n"))
			}
			joined := strings.Join(logs, "\n")
			if !strings.Contains(joined, "100.0%") || !strings.Contains(joined, "SUCCESS") {
				t.Fatalf("expected streamed progress and success, got:\n%s", joined)
			}
			return
		}
	}
	t.Fatal("stream ended before done event")
}

func TestAPIRejectsBadRequests(t *testing.T) {
	_, base := startDaemon(t)

	tests := []struct {
		name string
		path string
		body any
		want int
	}{
		{name: "unknown kind", path: "/api/jobs", body: map[string]any{"kind": "bogus"}, want: http.StatusBadRequest},
		{name: "unknown field", path: "/api/jobs", body: map[string]any{"kind": "video", "mystery": 1}, want: http.StatusBadRequest},
		{name: "empty playlist", path: "/api/jobs", body: map[string]any{"kind": "playlist_all"}, want: http.StatusBadRequest},
		{name: "unknown job", path: "/api/stop", body: map[string]any{"jobId": "nope"}, want: http.StatusNotFound},
		{name: "fetch without url", path: "/api/playlist/fetch", body: map[string]any{}, want: http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, base+tc.path, tc.body)
			defer resp.Body.Close()
			if resp.StatusCode != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, resp.StatusCode)
			}
			var body api.ErrorResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
				t.Fatalf("expected error body: %v", err)
			}
		})
	}

	resp, err := http.Get(base + "/api/stop")
	if err != nil {
		t.Fatalf("get stop: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

func TestAPIPlaylistFetchAndReset(t *testing.T) {
	_, base := startDaemon(t)

	resp := postJSON(t, base+"/api/playlist/fetch", api.FetchRequest{URL: "https://example.test/list"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var fetched api.PlaylistResponse
	if err := json.NewDecoder(resp.Body).Decode(&fetched); err != nil {
		t.Fatalf("decode playlist: %v", err)
	}
	if fetched.Total != 2 || len(fetched.Entries) != 2 {
		t.Fatalf("unexpected playlist: %+v", fetched)
	}
	if fetched.Entries[1].URL != "https://www.youtube.com/watch?v=a2" {
		t.Fatalf("expected watch url fallback, got %q", fetched.Entries[1].URL)
	}
	if fetched.Counts["queued"] != 2 || fetched.Source != "https://example.test/list" {
		t.Fatalf("unexpected counts/source: %+v", fetched)
	}

	get, err := http.Get(base + "/api/playlist")
	if err != nil {
		t.Fatalf("get playlist: %v", err)
	}
	defer get.Body.Close()
	var view api.PlaylistResponse
	if err := json.NewDecoder(get.Body).Decode(&view); err != nil {
		t.Fatalf("decode playlist: %v", err)
	}
	if view.Total != 2 || view.Entries[0].Title != "First clip" {
		t.Fatalf("unexpected playlist view: %+v", view)
	}

	reset := postJSON(t, base+"/api/playlist/reset", api.ResetRequest{})
	defer reset.Body.Close()
	if reset.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from reset, got %d", reset.StatusCode)
	}
}

func TestEventsLongPollDeliversJobOutput(t *testing.T) {
	d, _ := newDaemon(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	clientID := d.Subscribe()
	jobID, err := d.Submit(jobs.Request{Kind: jobs.KindAudio, URL: "https://example.test/song", ClientID: clientID})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := d.WaitJob(ctx, jobID); err != nil {
		t.Fatalf("WaitJob: %v", err)
	}

	var kinds []events.Kind
	for {
		batch, err := d.Events(ctx, clientID, 100*time.Millisecond, 0)
		if err != nil {
			t.Fatalf("Events: %v", err)
		}
		if len(batch) == 0 {
			break
		}
		for _, ev := range batch {
			kinds = append(kinds, ev.Kind)
		}
	}
	if len(kinds) == 0 || kinds[0] != events.KindHello {
		t.Fatalf("expected hello first, got %v", kinds)
	}
	sawDone := false
	for _, k := range kinds {
		if k == events.KindDone {
			sawDone = true
		}
	}
	if !sawDone {
		t.Fatalf("expected done event, got %v", kinds)
	}

	if !d.Unsubscribe(clientID) {
		t.Fatal("expected unsubscribe to remove the channel")
	}
	if _, err := d.Events(ctx, clientID, 0, 0); !errors.Is(err, events.ErrClosed) {
		t.Fatalf("expected ErrClosed for unknown client, got %v", err)
	}
}
