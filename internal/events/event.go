package events

import (
	"encoding/json"
	"time"

	"tubefetch/internal/queue"
)

// Kind names an event stream type.
type Kind string

const (
	KindLog      Kind = "log"
	KindPlaylist Kind = "playlist"
	KindDone     Kind = "done"
	KindHello    Kind = "hello"
	KindJob      Kind = "job"
)

// Event is one message on a channel. Seq increases by one per channel.
type Event struct {
	Kind Kind            `json:"kind"`
	Seq  uint64          `json:"seq"`
	At   time.Time       `json:"at"`
	Data json.RawMessage `json:"data"`
}

// Done is the terminal payload of a job.
type Done struct {
	Success   bool   `json:"success"`
	Path      string `json:"path"`
	Cancelled bool   `json:"cancelled,omitempty"`
}

// JobState reports a job lifecycle change.
type JobState struct {
	JobID string `json:"job_id"`
	Kind  string `json:"kind"`
	State string `json:"state"`
}

// Hello is the first event on every channel.
type Hello struct {
	ClientID string `json:"client_id"`
}

// Log builds a free-text progress event.
func Log(line string) Event {
	return newEvent(KindLog, line)
}

// Playlist builds a full ordered playlist snapshot event.
func Playlist(entries []queue.Entry) Event {
	if entries == nil {
		entries = []queue.Entry{}
	}
	return newEvent(KindPlaylist, entries)
}

// Completed builds the terminal event for a job.
func Completed(done Done) Event {
	return newEvent(KindDone, done)
}

// Job builds a lifecycle event.
func Job(state JobState) Event {
	return newEvent(KindJob, state)
}

func newEvent(kind Kind, payload any) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		data, _ = json.Marshal(err.Error())
	}
	return Event{Kind: kind, Data: data}
}

// Text decodes a log event's line.
func (e Event) Text() string {
	var line string
	if err := json.Unmarshal(e.Data, &line); err != nil {
		return string(e.Data)
	}
	return line
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}
