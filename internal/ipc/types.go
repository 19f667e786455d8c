package ipc

import (
	"tubefetch/internal/api"
	"tubefetch/internal/events"
	"tubefetch/internal/jobs"
)

// SubmitRequest carries a job request to the scheduler.
type SubmitRequest struct {
	Job jobs.Request `json:"job"`
}

// SubmitResponse reports the allocated job id.
type SubmitResponse = api.SubmitResponse

// StopRequest targets one job, or every running job when JobID is empty.
type StopRequest = api.StopRequest

// StopResponse lists the jobs that were signalled.
type StopResponse = api.StopResponse

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse mirrors the HTTP status payload.
type StatusResponse = api.DaemonStatus

// DependencyStatus describes availability of an external dependency.
type DependencyStatus = api.DependencyStatus

// PlaylistRequest fetches the current playlist.
type PlaylistRequest struct{}

// PlaylistResponse contains the playlist snapshot and counts.
type PlaylistResponse = api.PlaylistResponse

// FetchRequest resolves a playlist URL into the store.
type FetchRequest = api.FetchRequest

// ResetRequest returns every entry to queued.
type ResetRequest = api.ResetRequest

// ResetResponse reports how many entries changed.
type ResetResponse = api.ResetResponse

// SubscribeRequest opens an event channel.
type SubscribeRequest struct{}

// SubscribeResponse carries the allocated channel id.
type SubscribeResponse struct {
	ClientID string `json:"client_id"`
}

// EventsRequest long-polls a channel for up to WaitMillis.
type EventsRequest struct {
	ClientID   string `json:"client_id"`
	WaitMillis int    `json:"wait_millis"`
	Limit      int    `json:"limit"`
}

// EventsResponse contains the drained events. Closed is set once the channel
// no longer exists.
type EventsResponse struct {
	Events []events.Event `json:"events"`
	Closed bool           `json:"closed"`
}

// UnsubscribeRequest closes a channel.
type UnsubscribeRequest struct {
	ClientID string `json:"client_id"`
}

// UnsubscribeResponse reports whether the channel existed.
type UnsubscribeResponse struct {
	Removed bool `json:"removed"`
}

// LogTailRequest reads lines from the daemon log file.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns lines and the offset to resume from.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// ShutdownRequest asks the daemon process to exit.
type ShutdownRequest struct{}

// ShutdownResponse acknowledges a shutdown request.
type ShutdownResponse struct {
	Accepted bool `json:"accepted"`
}
