// Package services defines shared utilities consumed by the job runners and
// the external tool wrappers.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, job kinds, client IDs, and request
//     correlation identifiers for logging and execution tracking.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures with errors.Is.
//
// Use these helpers when wiring new job logic so cancellation, logging, and
// failure reporting stay uniform across the daemon.
package services
