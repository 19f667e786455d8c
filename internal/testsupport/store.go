package testsupport

import (
	"context"
	"fmt"
	"testing"

	"tubefetch/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB) *queue.Store {
	t.Helper()

	store, err := queue.Open()
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedPlaylist replaces the store contents with n entries whose urls are
// https://example.test/v<i>.
func SeedPlaylist(t testing.TB, store *queue.Store, n int) []queue.Entry {
	t.Helper()

	entries := make([]queue.Entry, 0, n)
	for i := 1; i <= n; i++ {
		entries = append(entries, queue.Entry{
			ID:    fmt.Sprintf("v%d", i),
			Title: fmt.Sprintf("Video %d", i),
			URL:   fmt.Sprintf("https://example.test/v%d", i),
		})
	}
	if err := store.Replace(context.Background(), "https://example.test/list", entries); err != nil {
		t.Fatalf("store.Replace: %v", err)
	}
	snapshot, err := store.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("store.Snapshot: %v", err)
	}
	return snapshot
}

// SetStatus drives the entry at index to status through a temporary claim.
func SetStatus(t testing.TB, store *queue.Store, index int, status queue.Status) {
	t.Helper()

	ctx := context.Background()
	const owner = "testsupport"
	if err := store.Claim(owner); err != nil {
		t.Fatalf("store.Claim: %v", err)
	}
	defer func() {
		if err := store.Release(ctx, owner); err != nil {
			t.Fatalf("store.Release: %v", err)
		}
	}()
	path := map[queue.Status][]queue.Status{
		queue.StatusDownloading: {queue.StatusDownloading},
		queue.StatusDone:        {queue.StatusDownloading, queue.StatusDone},
		queue.StatusFailed:      {queue.StatusDownloading, queue.StatusFailed},
	}[status]
	current, err := store.Get(ctx, index)
	if err != nil {
		t.Fatalf("store.Get: %v", err)
	}
	for _, step := range path {
		if !queue.CanTransition(current.Status, step) {
			t.Fatalf("entry %d cannot move %s -> %s", index, current.Status, step)
		}
		if current, err = store.Transition(ctx, owner, index, step); err != nil {
			t.Fatalf("transition %d to %s: %v", index, step, err)
		}
	}
}
