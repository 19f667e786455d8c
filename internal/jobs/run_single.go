package jobs

import (
	"context"
	"os"

	"tubefetch/internal/ytdlp"
)

// result is what a job body reports back to the scheduler.
type result struct {
	success   bool
	cancelled bool
	path      string

	succeeded int
	failed    int
	skipped   int
}

func (r result) state() State {
	switch {
	case r.cancelled:
		return StateCancelled
	case r.success:
		return StateSucceeded
	default:
		return StateFailed
	}
}

// invocation builds the engine input for one url.
func (s *Scheduler) invocation(req Request, url string) ytdlp.Invocation {
	var base []string
	if req.Media == MediaAudio {
		base = ytdlp.AudioArgs(s.cfg.Fetch.YtDlpBinary, url, req.AudioFormat)
	} else {
		base = ytdlp.VideoArgs(s.cfg.Fetch.YtDlpBinary, url, req.Quality)
	}
	return ytdlp.Invocation{
		Base:    base,
		Cookies: ytdlp.CookieArgs(req.CookieBrowser, req.CookieFile),
		Extra:   ytdlp.ExtraArgs(req.RateLimit, req.Retries),
		DestDir: req.DestDir,
	}
}

func (s *Scheduler) prepareDest(req Request, out *emitter) bool {
	if err := os.MkdirAll(req.DestDir, 0o755); err != nil {
		out.logf("❌ Cannot create %s: %v", req.DestDir, err)
		return false
	}
	return true
}

func (s *Scheduler) runSingle(ctx context.Context, req Request, out *emitter) result {
	res := result{path: req.DestDir}
	if !s.prepareDest(req, out) {
		return res
	}
	if req.Media == MediaAudio {
		out.logf("🎵 Starting audio download…")
	} else {
		out.logf("🎬 Starting video download…")
	}
	out.line("Save to: " + req.DestDir)
	out.rule("=", headerRule)

	outcome := s.engine.Run(ctx, s.invocation(req, req.URL), out.line)
	res.success = outcome.Success
	res.cancelled = outcome.Cancelled
	return res
}
