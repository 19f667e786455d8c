package queue_test

import (
	"context"
	"errors"
	"testing"

	"tubefetch/internal/queue"
)

func openStore(t *testing.T) *queue.Store {
	t.Helper()
	store, err := queue.Open()
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seed(t *testing.T, store *queue.Store, n int) {
	t.Helper()
	entries := make([]queue.Entry, 0, n)
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		entries = append(entries, queue.Entry{ID: id, Title: "Video " + id, URL: "https://www.youtube.com/watch?v=" + id})
	}
	if err := store.Replace(context.Background(), "https://www.youtube.com/playlist?list=PL1", entries); err != nil {
		t.Fatalf("Replace: %v", err)
	}
}

func TestReplaceNumbersEntriesAndQueuesThem(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	seed(t, store, 3)

	snapshot, err := store.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snapshot) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(snapshot))
	}
	for i, entry := range snapshot {
		if entry.Index != i+1 {
			t.Fatalf("entry %d has index %d", i, entry.Index)
		}
		if entry.Status != queue.StatusQueued {
			t.Fatalf("entry %d status = %s", entry.Index, entry.Status)
		}
	}

	n, err := store.Len(ctx)
	if err != nil || n != 3 {
		t.Fatalf("Len = %d, %v", n, err)
	}

	seed(t, store, 1)
	snapshot, _ = store.Snapshot(ctx)
	if len(snapshot) != 1 {
		t.Fatalf("expected wholesale replacement, got %d entries", len(snapshot))
	}
}

func TestReplaceRejectsEntryWithoutURL(t *testing.T) {
	store := openStore(t)
	err := store.Replace(context.Background(), "src", []queue.Entry{{ID: "x"}})
	if err == nil {
		t.Fatal("expected error for entry without url")
	}
}

func TestReplaceDefaultsTitleToID(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if err := store.Replace(ctx, "src", []queue.Entry{{ID: "abc", URL: "u"}}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	entry, err := store.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if entry.Title != "abc" {
		t.Fatalf("expected title fallback, got %q", entry.Title)
	}
}

func TestGetOutOfRange(t *testing.T) {
	store := openStore(t)
	seed(t, store, 2)
	if _, err := store.Get(context.Background(), 3); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransitionRequiresClaim(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	seed(t, store, 1)

	if _, err := store.Transition(ctx, "job-1", 1, queue.StatusDownloading); !errors.Is(err, queue.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner without claim, got %v", err)
	}
	if err := store.Claim("job-1"); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if _, err := store.Transition(ctx, "job-2", 1, queue.StatusDownloading); !errors.Is(err, queue.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner for foreign job, got %v", err)
	}
	if err := store.Claim("job-2"); !errors.Is(err, queue.ErrClaimed) {
		t.Fatalf("expected ErrClaimed for second claim, got %v", err)
	}
	entry, err := store.Transition(ctx, "job-1", 1, queue.StatusDownloading)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if entry.Status != queue.StatusDownloading {
		t.Fatalf("status = %s", entry.Status)
	}
}

func TestTransitionEnforcesLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	seed(t, store, 1)
	if err := store.Claim("job"); err != nil {
		t.Fatalf("Claim: %v", err)
	}

	steps := []struct {
		to      queue.Status
		wantErr bool
	}{
		{to: queue.StatusDone, wantErr: true},
		{to: queue.StatusSkipped, wantErr: true},
		{to: queue.StatusDownloading},
		{to: queue.StatusDone},
		{to: queue.StatusSkipped},
		{to: queue.StatusFailed, wantErr: true},
		{to: queue.StatusDownloading},
		{to: queue.StatusQueued, wantErr: true},
		{to: queue.StatusFailed},
		{to: queue.StatusQueued, wantErr: true},
	}
	for i, step := range steps {
		_, err := store.Transition(ctx, "job", 1, step.to)
		if step.wantErr {
			if !errors.Is(err, queue.ErrInvalidTransition) {
				t.Fatalf("step %d (%s): expected ErrInvalidTransition, got %v", i, step.to, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("step %d (%s): %v", i, step.to, err)
		}
	}
}

func TestReleaseFoldsSkippedIntoDone(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	seed(t, store, 2)
	if err := store.Claim("job"); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	for _, to := range []queue.Status{queue.StatusDownloading, queue.StatusDone, queue.StatusSkipped} {
		if _, err := store.Transition(ctx, "job", 1, to); err != nil {
			t.Fatalf("Transition %s: %v", to, err)
		}
	}
	if err := store.Release(ctx, "other"); !errors.Is(err, queue.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := store.Release(ctx, "job"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	entry, _ := store.Get(ctx, 1)
	if entry.Status != queue.StatusDone {
		t.Fatalf("expected skipped entry to fold back to done, got %s", entry.Status)
	}
	if store.Owner() != "" {
		t.Fatalf("expected claim released, owner=%q", store.Owner())
	}
}

func TestReplaceAndResetRefusedWhileClaimed(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	seed(t, store, 2)
	if err := store.Claim("job"); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := store.Replace(ctx, "src", nil); !errors.Is(err, queue.ErrClaimed) {
		t.Fatalf("expected ErrClaimed from Replace, got %v", err)
	}
	if _, err := store.Reset(ctx); !errors.Is(err, queue.ErrClaimed) {
		t.Fatalf("expected ErrClaimed from Reset, got %v", err)
	}
}

func TestResetReturnsEveryEntryToQueued(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	seed(t, store, 3)
	if err := store.Claim("job"); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	for _, to := range []queue.Status{queue.StatusDownloading, queue.StatusFailed} {
		if _, err := store.Transition(ctx, "job", 2, to); err != nil {
			t.Fatalf("Transition: %v", err)
		}
	}
	if err := store.Release(ctx, "job"); err != nil {
		t.Fatalf("Release: %v", err)
	}

	changed, err := store.Reset(ctx)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if changed != 1 {
		t.Fatalf("expected 1 changed row, got %d", changed)
	}
	summary, err := store.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.Counts[queue.StatusQueued] != 3 || summary.Total != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Source != "https://www.youtube.com/playlist?list=PL1" {
		t.Fatalf("unexpected source %q", summary.Source)
	}
}

func TestStoresAreIsolated(t *testing.T) {
	first := openStore(t)
	second := openStore(t)
	seed(t, first, 2)
	n, err := second.Len(context.Background())
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected isolated store, found %d entries", n)
	}
}

func TestParseStatus(t *testing.T) {
	for _, status := range queue.AllStatuses() {
		parsed, err := queue.ParseStatus(string(status))
		if err != nil || parsed != status {
			t.Fatalf("ParseStatus(%s) = %s, %v", status, parsed, err)
		}
	}
	if _, err := queue.ParseStatus("paused"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestCanTransitionOnlyMovesForward(t *testing.T) {
	tests := []struct {
		from, to queue.Status
		want     bool
	}{
		{queue.StatusQueued, queue.StatusDownloading, true},
		{queue.StatusDownloading, queue.StatusDone, true},
		{queue.StatusDownloading, queue.StatusFailed, true},
		{queue.StatusDone, queue.StatusSkipped, true},
		{queue.StatusFailed, queue.StatusDownloading, true},
		{queue.StatusDownloading, queue.StatusQueued, false},
		{queue.StatusFailed, queue.StatusQueued, false},
		{queue.StatusQueued, queue.StatusDone, false},
		{queue.StatusSkipped, queue.StatusFailed, false},
	}
	for _, tt := range tests {
		if got := queue.CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
