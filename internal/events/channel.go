package events

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by Next and Drain once the channel has been torn down.
var ErrClosed = errors.New("event channel closed")

// Channel is one subscriber's ordered event queue.
type Channel struct {
	id    string
	limit int
	now   func() time.Time

	mu       sync.Mutex
	queue    []Event
	seq      uint64
	dropped  uint64
	lastPoll time.Time
	closed   bool

	signal    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newChannel(id string, limit int, now func() time.Time) *Channel {
	return &Channel{
		id:       id,
		limit:    limit,
		now:      now,
		lastPoll: now(),
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// ID returns the hub-allocated channel id.
func (c *Channel) ID() string {
	return c.id
}

// push appends ev, dropping the oldest queued event when the backlog is full.
func (c *Channel) push(ev Event) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.seq++
	ev.Seq = c.seq
	if ev.At.IsZero() {
		ev.At = c.now().UTC()
	}
	if c.limit > 0 && len(c.queue) >= c.limit {
		c.queue[0] = Event{}
		c.queue = c.queue[1:]
		c.dropped++
	}
	c.queue = append(c.queue, ev)
	c.mu.Unlock()

	select {
	case c.signal <- struct{}{}:
	default:
	}
	return true
}

// Next returns the oldest queued event, waiting up to wait for one to arrive.
// ok is false when the wait elapsed with nothing queued.
func (c *Channel) Next(ctx context.Context, wait time.Duration) (Event, bool, error) {
	c.touch()
	var timeout <-chan time.Time
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		timeout = timer.C
	}
	for {
		if ev, ok, err := c.pop(); ok || err != nil {
			return ev, ok, err
		}
		if timeout == nil {
			return Event{}, false, nil
		}
		select {
		case <-c.signal:
		case <-c.done:
		case <-ctx.Done():
			return Event{}, false, ctx.Err()
		case <-timeout:
			return Event{}, false, nil
		}
	}
}

// Drain waits up to wait for the first event, then returns it together with
// whatever else is queued, up to limit events.
func (c *Channel) Drain(ctx context.Context, wait time.Duration, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 256
	}
	first, ok, err := c.Next(ctx, wait)
	if err != nil || !ok {
		return nil, err
	}
	batch := []Event{first}
	for len(batch) < limit {
		ev, ok, _ := c.pop()
		if !ok {
			break
		}
		batch = append(batch, ev)
	}
	return batch, nil
}

func (c *Channel) pop() (Event, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) > 0 {
		ev := c.queue[0]
		c.queue[0] = Event{}
		c.queue = c.queue[1:]
		return ev, true, nil
	}
	if c.closed {
		return Event{}, false, ErrClosed
	}
	return Event{}, false, nil
}

func (c *Channel) touch() {
	c.mu.Lock()
	c.lastPoll = c.now()
	c.mu.Unlock()
}

func (c *Channel) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPoll
}

// Dropped reports how many events were discarded because the backlog was full.
func (c *Channel) Dropped() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Pending reports the number of queued events.
func (c *Channel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// close discards the backlog and wakes any waiting consumer.
func (c *Channel) close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.queue = nil
		c.mu.Unlock()
		close(c.done)
	})
}

// Done is closed when the channel has been torn down.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}
