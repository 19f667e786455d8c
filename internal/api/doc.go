// Package api defines wire-format types and converters shared by the HTTP API
// and the IPC layer. It translates playlist entries, job records, running
// executions and dependency checks into transport-friendly DTOs that the CLI
// and browser clients render without importing internal packages.
//
// # Key Types
//
// PlaylistEntry/PlaylistResponse: the ordered playlist with per-status counts.
//
// Job: a scheduled job with its lifecycle state and timestamps.
//
// DaemonStatus: running state, active and recent jobs, live child processes,
// subscribed event channels and dependency availability.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Internal enums (queue.Status, jobs.State) are
// exposed as lowercase strings. Timestamps use RFC3339 with milliseconds.
package api
