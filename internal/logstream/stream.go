package logstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tubefetch/internal/events"
	"tubefetch/internal/ipc"
)

// ErrChannelClosed is returned when the daemon dropped the channel before the
// awaited job finished.
var ErrChannelClosed = errors.New("event channel closed by daemon")

const defaultWait = 20 * time.Second

// EventSource captures the IPC long-poll contract.
type EventSource interface {
	Events(clientID string, wait time.Duration, limit int) (*ipc.EventsResponse, error)
}

// TailClient captures the IPC log tail contract.
type TailClient interface {
	LogTail(req ipc.LogTailRequest) (*ipc.LogTailResponse, error)
}

// FollowOptions controls Follow.
type FollowOptions struct {
	Wait time.Duration
	// UntilDone stops after the first done event.
	UntilDone bool
}

// Follow long-polls clientID and hands every event to onEvent in order. It
// returns the done payload when UntilDone is set and a done event arrived.
func Follow(ctx context.Context, src EventSource, clientID string, opts FollowOptions, onEvent func(events.Event)) (events.Done, error) {
	wait := opts.Wait
	if wait <= 0 {
		wait = defaultWait
	}
	for {
		if err := ctx.Err(); err != nil {
			return events.Done{}, err
		}
		resp, err := src.Events(clientID, wait, 0)
		if err != nil {
			return events.Done{}, fmt.Errorf("poll events: %w", err)
		}
		for _, ev := range resp.Events {
			if onEvent != nil {
				onEvent(ev)
			}
			if opts.UntilDone && ev.Kind == events.KindDone {
				var done events.Done
				if err := ev.Decode(&done); err != nil {
					return events.Done{}, fmt.Errorf("decode done event: %w", err)
				}
				return done, nil
			}
		}
		if resp.Closed {
			if opts.UntilDone {
				return events.Done{}, ErrChannelClosed
			}
			return events.Done{}, nil
		}
	}
}

// TailOptions controls TailLog.
type TailOptions struct {
	Lines  int
	Follow bool
}

// TailLog prints the last Lines lines of the daemon log, then keeps polling
// when Follow is set. It reports whether any line was emitted.
func TailLog(ctx context.Context, client TailClient, opts TailOptions, onLine func(string)) (bool, error) {
	offset := int64(-1)
	limit := max(opts.Lines, 0)
	if limit == 0 {
		offset = 0
	}
	printed := false
	for {
		resp, err := client.LogTail(ipc.LogTailRequest{
			Offset:     offset,
			Limit:      limit,
			Follow:     opts.Follow,
			WaitMillis: 1000,
		})
		if err != nil {
			return printed, fmt.Errorf("tail logs: %w", err)
		}
		if resp == nil {
			return printed, errors.New("log tail response missing")
		}
		for _, line := range resp.Lines {
			if onLine != nil {
				onLine(line)
			}
			printed = true
		}
		offset, limit = resp.Offset, 0
		if !opts.Follow || ctx.Err() != nil {
			return printed, nil
		}
	}
}
