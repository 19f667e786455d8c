// Package main hosts the tubefetch CLI entrypoint and command graph.
//
// The Cobra command tree translates terminal invocations into IPC calls
// against the daemon: submitting downloads and conversions, driving the
// playlist queue, following a job's event channel, tailing the daemon log,
// and controlling the daemon process itself. Decisions about strategies and
// queue state live in the daemon; commands here only shape requests and
// render what comes back.
package main
