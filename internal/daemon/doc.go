// Package daemon coordinates the long-running tubefetch process.
//
// It wires configuration, the in-memory playlist store, the event hub, the
// process runner and the job scheduler into a single lifecycle with
// flock-based locking to prevent multiple instances. The daemon exposes the
// operations used by the IPC layer and serves a small HTTP API, including a
// Server-Sent Events stream per subscribed client, guarded by an optional
// bearer token.
//
// Keep orchestration logic here: download decisions live in the ytdlp and jobs
// packages while the daemon focuses on startup, shutdown, and transport.
package daemon
