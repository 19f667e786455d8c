package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"tubefetch/internal/deps"
	"tubefetch/internal/jobs"
	"tubefetch/internal/procexec"
	"tubefetch/internal/queue"
)

type mockPlaylistReader struct {
	entries    []queue.Entry
	summary    queue.Summary
	summaryErr error
}

func (m *mockPlaylistReader) Snapshot(context.Context) ([]queue.Entry, error) {
	return m.entries, nil
}

func (m *mockPlaylistReader) Summary(context.Context) (queue.Summary, error) {
	return m.summary, m.summaryErr
}

func TestPlaylistServiceDescribe(t *testing.T) {
	reader := &mockPlaylistReader{
		entries: []queue.Entry{
			{Index: 1, ID: "a", Title: "First", URL: "https://example.test/a", Status: queue.StatusDone},
			{Index: 2, ID: "b", Title: "Second", URL: "https://example.test/b", Status: queue.StatusQueued},
		},
		summary: queue.Summary{
			Source: "https://example.test/list",
			Total:  2,
			Counts: map[queue.Status]int{queue.StatusDone: 1, queue.StatusQueued: 1},
		},
	}
	got, err := NewPlaylistService(reader).Describe(context.Background())
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if got.Total != 2 || len(got.Entries) != 2 {
		t.Fatalf("unexpected playlist: %+v", got)
	}
	if got.Entries[0].Status != "done" || got.Entries[1].Index != 2 {
		t.Fatalf("unexpected entries: %+v", got.Entries)
	}
	if got.Counts["failed"] != 0 {
		t.Fatalf("expected zero failed count, got %d", got.Counts["failed"])
	}
	if _, ok := got.Counts["downloading"]; !ok {
		t.Fatal("expected every status key to be present")
	}
}

func TestPlaylistServicePropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	svc := NewPlaylistService(&mockPlaylistReader{summaryErr: boom})
	if _, err := svc.Describe(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected summary error, got %v", err)
	}
	if _, err := svc.Counts(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected summary error from Counts, got %v", err)
	}
}

func TestNilPlaylistServiceReturnsEmpty(t *testing.T) {
	var svc *PlaylistService
	got, err := svc.Describe(context.Background())
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if got.Entries == nil || len(got.Entries) != 0 {
		t.Fatalf("expected empty non-nil entries, got %#v", got.Entries)
	}
}

func TestFromJobFormatsTimestamps(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job := FromJob(jobs.Info{
		ID:      "j1",
		Kind:    jobs.KindPlaylistRange,
		Target:  "#2-#4",
		State:   jobs.StateRunning,
		Started: started,
	})
	if job.Kind != "playlist_range" || job.State != "running" {
		t.Fatalf("unexpected job: %+v", job)
	}
	if job.Started != "2026-03-01T12:00:00.000Z" {
		t.Fatalf("unexpected started: %q", job.Started)
	}
	if job.Finished != "" {
		t.Fatalf("expected empty finished, got %q", job.Finished)
	}
}

func TestFromExecutionsQuotesCommand(t *testing.T) {
	got := FromExecutions([]procexec.Execution{{
		JobID: "j1",
		PID:   42,
		Argv:  []string{"yt-dlp", "-o", "%(title)s.%(ext)s", "https://example.test/v"},
	}})
	if len(got) != 1 {
		t.Fatalf("expected one execution, got %d", len(got))
	}
	want := "yt-dlp -o '%(title)s.%(ext)s' https://example.test/v"
	if got[0].Command != want {
		t.Fatalf("unexpected command:\n got %s\nwant %s", got[0].Command, want)
	}
}

func TestFromDependencies(t *testing.T) {
	got := FromDependencies([]deps.Status{{Name: "yt-dlp", Command: "yt-dlp", Available: false, Detail: "missing"}})
	if len(got) != 1 || got[0].Available || got[0].Detail != "missing" {
		t.Fatalf("unexpected dependencies: %+v", got)
	}
}
