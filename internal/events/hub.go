package events

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tubefetch/internal/logging"
)

// DefaultBacklog bounds each channel's queue.
const DefaultBacklog = 4096

// Hub owns every subscriber channel.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]*Channel
	backlog  int
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Hub.
type Option func(*Hub)

// WithBacklog sets the per-channel queue bound.
func WithBacklog(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.backlog = n
		}
	}
}

// WithLogger sets the hub logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithClock replaces the hub clock.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHub constructs an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		channels: make(map[string]*Channel),
		backlog:  DefaultBacklog,
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe allocates a new channel. Its first event is a hello carrying the id.
func (h *Hub) Subscribe() *Channel {
	ch := newChannel(uuid.NewString(), h.backlog, h.now)
	h.mu.Lock()
	h.channels[ch.id] = ch
	h.mu.Unlock()
	ch.push(newEvent(KindHello, Hello{ClientID: ch.id}))
	h.logger.Debug("client subscribed",
		logging.String(logging.FieldEventType, "client_subscribed"),
		logging.String(logging.FieldClientID, ch.id),
	)
	return ch
}

// Lookup returns the channel for id.
func (h *Hub) Lookup(id string) (*Channel, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ch, ok := h.channels[id]
	return ch, ok
}

// Push enqueues ev for id. Unknown ids are ignored; the result reports whether
// the event was queued.
func (h *Hub) Push(id string, ev Event) bool {
	if id == "" {
		return false
	}
	ch, ok := h.Lookup(id)
	if !ok {
		return false
	}
	return ch.push(ev)
}

// Unsubscribe tears down id and discards its backlog.
func (h *Hub) Unsubscribe(id string) bool {
	h.mu.Lock()
	ch, ok := h.channels[id]
	if ok {
		delete(h.channels, id)
	}
	h.mu.Unlock()
	if !ok {
		return false
	}
	ch.close()
	if dropped := ch.Dropped(); dropped > 0 {
		logging.WarnWithContext(h.logger, "client fell behind", "client_backlog_overflow",
			logging.String(logging.FieldClientID, id),
			logging.Int64("dropped", int64(dropped)),
			logging.String(logging.FieldImpact, "client missed progress lines"),
			logging.String(logging.FieldErrorHint, "raise events.backlog or poll more often"),
		)
	}
	h.logger.Debug("client unsubscribed",
		logging.String(logging.FieldEventType, "client_unsubscribed"),
		logging.String(logging.FieldClientID, id),
	)
	return true
}

// ReapIdle removes channels no consumer has polled within maxIdle and returns
// how many were removed.
func (h *Hub) ReapIdle(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	cutoff := h.now().Add(-maxIdle)
	h.mu.RLock()
	stale := make([]string, 0)
	for id, ch := range h.channels {
		if ch.idleSince().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	h.mu.RUnlock()
	for _, id := range stale {
		h.Unsubscribe(id)
	}
	if len(stale) > 0 {
		h.logger.Info("reaped idle clients",
			logging.String(logging.FieldEventType, "clients_reaped"),
			logging.Int("count", len(stale)),
		)
	}
	return len(stale)
}

// Clients lists subscribed channel ids in sorted order.
func (h *Hub) Clients() []string {
	h.mu.RLock()
	ids := make([]string, 0, len(h.channels))
	for id := range h.channels {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Close tears down every channel.
func (h *Hub) Close() {
	for _, id := range h.Clients() {
		h.Unsubscribe(id)
	}
}
