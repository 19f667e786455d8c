package events_test

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"tubefetch/internal/events"
	"tubefetch/internal/queue"
)

func mustNext(t *testing.T, ch *events.Channel) events.Event {
	t.Helper()
	ev, ok, err := ch.Next(context.Background(), time.Second)
	if err != nil || !ok {
		t.Fatalf("expected event, got ok=%v err=%v", ok, err)
	}
	return ev
}

func TestSubscribeAllocatesIDAndSendsHello(t *testing.T) {
	hub := events.NewHub()
	a := hub.Subscribe()
	b := hub.Subscribe()
	if a.ID() == "" || a.ID() == b.ID() {
		t.Fatalf("expected distinct allocated ids, got %q and %q", a.ID(), b.ID())
	}

	hello := mustNext(t, a)
	if hello.Kind != events.KindHello {
		t.Fatalf("expected hello first, got %s", hello.Kind)
	}
	var payload events.Hello
	if err := hello.Decode(&payload); err != nil || payload.ClientID != a.ID() {
		t.Fatalf("hello payload = %+v err=%v", payload, err)
	}
}

func TestPushPreservesOrderPerChannel(t *testing.T) {
	hub := events.NewHub()
	ch := hub.Subscribe()
	mustNext(t, ch)

	hub.Push(ch.ID(), events.Log("first"))
	hub.Push(ch.ID(), events.Playlist([]queue.Entry{{Index: 1, ID: "a", Status: queue.StatusQueued}}))
	hub.Push(ch.ID(), events.Completed(events.Done{Success: true, Path: "/out"}))

	first := mustNext(t, ch)
	second := mustNext(t, ch)
	third := mustNext(t, ch)
	if first.Text() != "first" || second.Kind != events.KindPlaylist || third.Kind != events.KindDone {
		t.Fatalf("unexpected order: %s %s %s", first.Kind, second.Kind, third.Kind)
	}
	if !(first.Seq < second.Seq && second.Seq < third.Seq) {
		t.Fatalf("expected increasing sequence numbers: %d %d %d", first.Seq, second.Seq, third.Seq)
	}
	var done events.Done
	if err := third.Decode(&done); err != nil || !done.Success || done.Path != "/out" {
		t.Fatalf("done payload = %+v err=%v", done, err)
	}
}

func TestPushToUnknownChannelIsNoop(t *testing.T) {
	hub := events.NewHub()
	if hub.Push("not-a-client", events.Log("x")) {
		t.Fatal("expected push to unknown id to be dropped")
	}
	ch := hub.Subscribe()
	hub.Unsubscribe(ch.ID())
	if hub.Push(ch.ID(), events.Log("late")) {
		t.Fatal("expected push after unsubscribe to be dropped")
	}
	if _, _, err := ch.Next(context.Background(), 10*time.Millisecond); !errors.Is(err, events.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestNextTimesOutWithoutEvents(t *testing.T) {
	hub := events.NewHub()
	ch := hub.Subscribe()
	mustNext(t, ch)
	start := time.Now()
	_, ok, err := ch.Next(context.Background(), 30*time.Millisecond)
	if ok || err != nil {
		t.Fatalf("expected timeout, got ok=%v err=%v", ok, err)
	}
	if time.Since(start) < 25*time.Millisecond {
		t.Fatal("Next returned before the wait elapsed")
	}
}

func TestNextWakesOnPush(t *testing.T) {
	hub := events.NewHub()
	ch := hub.Subscribe()
	mustNext(t, ch)
	go func() {
		time.Sleep(20 * time.Millisecond)
		hub.Push(ch.ID(), events.Log("wake"))
	}()
	ev := mustNext(t, ch)
	if ev.Text() != "wake" {
		t.Fatalf("unexpected event %q", ev.Text())
	}
}

func TestBacklogDropsOldest(t *testing.T) {
	hub := events.NewHub(events.WithBacklog(3))
	ch := hub.Subscribe()
	for _, line := range []string{"a", "b", "c", "d"} {
		hub.Push(ch.ID(), events.Log(line))
	}
	if ch.Pending() != 3 {
		t.Fatalf("expected backlog bounded to 3, got %d", ch.Pending())
	}
	if ch.Dropped() != 2 {
		t.Fatalf("expected hello and first line dropped, got %d", ch.Dropped())
	}
	if got := mustNext(t, ch).Text(); got != "b" {
		t.Fatalf("expected oldest retained line b, got %q", got)
	}
}

func TestDrainBatches(t *testing.T) {
	hub := events.NewHub()
	ch := hub.Subscribe()
	for i := 0; i < 5; i++ {
		hub.Push(ch.ID(), events.Log("line"))
	}
	batch, err := ch.Drain(context.Background(), time.Second, 4)
	if err != nil || len(batch) != 4 {
		t.Fatalf("expected batch of 4, got %d err=%v", len(batch), err)
	}
	rest, err := ch.Drain(context.Background(), time.Second, 10)
	if err != nil || len(rest) != 2 {
		t.Fatalf("expected remaining 2, got %d err=%v", len(rest), err)
	}
	empty, err := ch.Drain(context.Background(), 10*time.Millisecond, 10)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty batch, got %d err=%v", len(empty), err)
	}
}

func TestConcurrentProducersKeepPerProducerOrder(t *testing.T) {
	hub := events.NewHub()
	ch := hub.Subscribe()
	mustNext(t, ch)

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				hub.Push(ch.ID(), events.Log(string(rune('a'+p))))
			}
		}(p)
	}
	wg.Wait()
	if ch.Pending() != 200 {
		t.Fatalf("expected 200 queued events, got %d", ch.Pending())
	}
	var last uint64
	for i := 0; i < 200; i++ {
		ev := mustNext(t, ch)
		if ev.Seq <= last {
			t.Fatalf("sequence went backwards: %d after %d", ev.Seq, last)
		}
		last = ev.Seq
	}
}

func TestReapIdle(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	hub := events.NewHub(events.WithClock(clock))
	stale := hub.Subscribe()
	fresh := hub.Subscribe()

	mu.Lock()
	now = now.Add(5 * time.Minute)
	mu.Unlock()
	mustNext(t, fresh)

	if reaped := hub.ReapIdle(time.Minute); reaped != 1 {
		t.Fatalf("expected one reaped channel, got %d", reaped)
	}
	if _, ok := hub.Lookup(stale.ID()); ok {
		t.Fatal("expected stale channel removed")
	}
	if _, ok := hub.Lookup(fresh.ID()); !ok {
		t.Fatal("expected polled channel kept")
	}
}

func TestServeSSEStreamsEventsAndHeartbeats(t *testing.T) {
	hub := events.NewHub()
	ready := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ch := hub.Subscribe()
		ready <- ch.ID()
		_ = events.ServeSSE(r.Context(), w, hub, ch, 50*time.Millisecond)
	}))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	id := <-ready
	hub.Push(id, events.Log("hello world"))

	reader := bufio.NewReader(resp.Body)
	var (
		sawHello, sawLog, sawPing bool
		deadline                  = time.Now().Add(5 * time.Second)
	)
	for !(sawHello && sawLog && sawPing) && time.Now().Before(deadline) {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		switch {
		case strings.HasPrefix(line, "event: hello"):
			sawHello = true
		case strings.HasPrefix(line, `data: "hello world"`):
			sawLog = true
		case strings.HasPrefix(line, ": ping"):
			sawPing = true
		}
	}
	if !sawHello || !sawLog || !sawPing {
		t.Fatalf("hello=%v log=%v ping=%v", sawHello, sawLog, sawPing)
	}
	_ = resp.Body.Close()

	for i := 0; i < 100 && len(hub.Clients()) > 0; i++ {
		time.Sleep(10 * time.Millisecond)
	}
	if n := len(hub.Clients()); n != 0 {
		t.Fatalf("expected channel torn down after disconnect, %d remain", n)
	}
}
