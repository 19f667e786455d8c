package jobs

import (
	"fmt"
	"strings"
	"time"

	"tubefetch/internal/events"
	"tubefetch/internal/queue"
	"tubefetch/internal/ytdlp"
)

const (
	headerRule = 56
	entryRule  = 48
)

// emitter pushes one job's events to the requesting client.
type emitter struct {
	hub      *events.Hub
	clientID string
	now      func() time.Time
}

func newEmitter(hub *events.Hub, clientID string) *emitter {
	return &emitter{hub: hub, clientID: clientID, now: time.Now}
}

func (e *emitter) line(line string) {
	if e.hub == nil || e.clientID == "" {
		return
	}
	e.hub.Push(e.clientID, events.Log(line))
}

func (e *emitter) logf(format string, args ...any) {
	e.line(ytdlp.Stamp(e.now(), fmt.Sprintf(format, args...)))
}

func (e *emitter) rule(char string, width int) {
	e.line(strings.Repeat(char, width))
}

func (e *emitter) playlist(entries []queue.Entry) {
	if e.hub == nil || e.clientID == "" {
		return
	}
	e.hub.Push(e.clientID, events.Playlist(entries))
}

func (e *emitter) done(done events.Done) {
	if e.hub == nil || e.clientID == "" {
		return
	}
	e.hub.Push(e.clientID, events.Completed(done))
}

func (e *emitter) job(info Info, state State) {
	if e.hub == nil || e.clientID == "" {
		return
	}
	e.hub.Push(e.clientID, events.Job(events.JobState{
		JobID: info.ID,
		Kind:  string(info.Kind),
		State: string(state),
	}))
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
