package jobs

import (
	"context"
	"fmt"

	"tubefetch/internal/logging"
	"tubefetch/internal/queue"
)

// runPlaylist downloads the entries at indices on behalf of jobID, which holds
// the store claim for the whole run.
func (s *Scheduler) runPlaylist(ctx context.Context, jobID string, req Request, indices []int, out *emitter) result {
	logger := logging.WithContext(ctx, s.logger)
	res := result{path: req.DestDir}
	if !s.prepareDest(req, out) {
		res.failed = len(indices)
		return res
	}

	total := len(indices)
	switch req.Kind {
	case KindPlaylistOne:
	case KindPlaylistRange:
		out.logf("📋 Range #%d–#%d (%d videos)", indices[0], indices[total-1], total)
	default:
		out.logf("📋 Batch — %d videos", total)
	}
	if req.Kind != KindPlaylistOne {
		out.line("Save to: " + req.DestDir)
		out.rule("=", headerRule)
	}

	// Background context for store writes so a stop still records where the
	// run left off.
	storeCtx := context.WithoutCancel(ctx)
	transition := func(index int, to queue.Status) (queue.Entry, bool) {
		entry, err := s.store.Transition(storeCtx, jobID, index, to)
		if err != nil {
			logging.WarnWithContext(logger, "playlist entry transition refused", "entry_transition_failed",
				logging.Int("index", index),
				logging.String("to", string(to)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "entry status left unchanged"),
			)
			return entry, false
		}
		s.pushSnapshot(storeCtx, out)
		return entry, true
	}

	attempted := 0
	for pos, index := range indices {
		if ctx.Err() != nil {
			res.cancelled = true
			out.logf("⛔ Stopped.")
			break
		}
		entry, err := s.store.Get(storeCtx, index)
		if err != nil {
			res.failed++
			out.logf("❌ #%d: %v", index, err)
			continue
		}
		if req.SkipDone && entry.Status == queue.StatusDone && req.Kind != KindPlaylistOne {
			if _, ok := transition(index, queue.StatusSkipped); ok {
				res.skipped++
			}
			continue
		}
		if _, ok := transition(index, queue.StatusDownloading); !ok {
			res.failed++
			continue
		}
		attempted++

		switch req.Kind {
		case KindPlaylistOne:
			out.logf("#%d: %s", index, entry.Title)
			out.rule("=", headerRule)
		case KindPlaylistRange:
			out.line("")
			out.logf("[%d/%d] #%d %s", pos+1, total, index, truncate(entry.Title, 55))
			out.rule("─", entryRule)
		default:
			out.line("")
			out.logf("[%d/%d] %s", pos+1, total, truncate(entry.Title, 60))
			out.rule("─", entryRule)
		}

		outcome := s.engine.Run(ctx, s.invocation(req, entry.URL), out.line)
		switch {
		case outcome.Cancelled:
			transition(index, queue.StatusFailed)
			res.cancelled = true
		case outcome.Success:
			transition(index, queue.StatusDone)
			res.succeeded++
		default:
			transition(index, queue.StatusFailed)
			res.failed++
		}
		if res.cancelled {
			break
		}
	}

	res.success = res.failed == 0 && !res.cancelled
	switch {
	case res.cancelled:
		out.line("")
		out.logf("⛔ Stopped by user — ✅ %d  ❌ %d  (%d not attempted)", res.succeeded, res.failed, total-attempted-res.skipped)
	case req.Kind == KindPlaylistOne:
	case req.Kind == KindPlaylistRange:
		out.line("")
		out.logf("Range done — ✅ %d  ❌ %d%s", res.succeeded, res.failed, skippedSuffix(res.skipped))
	default:
		out.line("")
		out.rule("=", headerRule)
		out.logf("Done — ✅ %d  ❌ %d%s", res.succeeded, res.failed, skippedSuffix(res.skipped))
		out.line("Saved to: " + req.DestDir)
	}
	return res
}

func (s *Scheduler) pushSnapshot(ctx context.Context, out *emitter) {
	snapshot, err := s.store.Snapshot(ctx)
	if err != nil {
		s.logger.Debug("playlist snapshot failed", logging.Error(err))
		return
	}
	out.playlist(snapshot)
}

func skippedSuffix(n int) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("  ⏭ %d", n)
}
