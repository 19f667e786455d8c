package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultHeartbeat is the keep-alive interval for idle SSE streams.
const DefaultHeartbeat = 30 * time.Second

// ServeSSE streams ch to w until ctx ends or a write fails. The channel is
// removed from hub on return.
func ServeSSE(ctx context.Context, w http.ResponseWriter, hub *Hub, ch *Channel, heartbeat time.Duration) error {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	defer hub.Unsubscribe(ch.ID())

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		return fmt.Errorf("flush sse headers: %w", err)
	}
	for {
		ev, ok, err := ch.Next(ctx, heartbeat)
		switch {
		case errors.Is(err, ErrClosed):
			return nil
		case err != nil:
			return err
		case ok:
			err = WriteSSE(w, ev)
		default:
			_, err = io.WriteString(w, ": ping\n\n")
		}
		if err != nil {
			return fmt.Errorf("write sse: %w", err)
		}
		if err := rc.Flush(); err != nil {
			return fmt.Errorf("flush sse: %w", err)
		}
	}
}

// WriteSSE renders one event in text/event-stream framing.
func WriteSSE(w io.Writer, ev Event) error {
	_, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.Seq, ev.Kind, ev.Data)
	return err
}
