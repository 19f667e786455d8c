// Package procexec launches external tools and streams their output line by
// line.
//
// A Runner starts one argv with no shell in between, merges stdout and stderr
// into a single pipe so lines arrive in the order the child wrote them, and
// splits on both newlines and carriage returns so progress meters that redraw
// in place still surface as discrete lines. Every non-empty line is captured
// into a bounded buffer and handed to the caller's callback.
//
// Cancellation is job scoped: the context passed to Execute owns the child.
// When it is cancelled the child's whole process group receives SIGTERM, then
// SIGKILL after a grace period, and the runner always reaps the child before
// returning. Running children are tracked in a Registry keyed by the job id
// carried in the context so stop requests and status views can find them.
package procexec
