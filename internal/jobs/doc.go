// Package jobs schedules download work and reports its progress.
//
// Submit validates a Request synchronously, starts one goroutine for the job,
// and returns the job id before any download begins. Every job owns a context
// derived from the scheduler's root; Stop cancels one job or all of them, and
// the cancellation reaches the running yt-dlp or ffmpeg child through the
// process runner.
//
// Playlist jobs claim the shared queue.Store for their whole run so only one
// of them mutates entry statuses at a time. After each status change the full
// ordered playlist is pushed to the requesting client, and every job ends
// with exactly one done event.
package jobs
