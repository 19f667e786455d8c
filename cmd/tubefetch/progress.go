package main

import (
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/schollz/progressbar/v3"

	"tubefetch/internal/events"
	"tubefetch/internal/queue"
)

var downloadPercentPattern = regexp.MustCompile(`^\[download\]\s+(\d+(?:\.\d+)?)%`)

// parseDownloadPercent extracts the percentage from a yt-dlp progress line.
func parseDownloadPercent(line string) (float64, bool) {
	match := downloadPercentPattern.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}
	pct, err := strconv.ParseFloat(match[1], 64)
	if err != nil || pct < 0 || pct > 100 {
		return 0, false
	}
	return pct, true
}

// progressRenderer prints a job's event stream. On a terminal, download
// percentages drive a progress bar and every other line is printed above it.
type progressRenderer struct {
	out         io.Writer
	interactive bool
	bar         *progressbar.ProgressBar
	lastSummary string
}

func newProgressRenderer(out io.Writer, interactive bool) *progressRenderer {
	return &progressRenderer{out: out, interactive: interactive}
}

func (r *progressRenderer) handle(ev events.Event) {
	switch ev.Kind {
	case events.KindLog:
		r.logLine(ev.Text())
	case events.KindPlaylist:
		var entries []queue.Entry
		if err := ev.Decode(&entries); err != nil {
			return
		}
		r.playlist(entries)
	case events.KindJob:
		var state events.JobState
		if err := ev.Decode(&state); err != nil {
			return
		}
		r.println(fmt.Sprintf("Job %s %s: %s", shortID(state.JobID), stateLabel(state.Kind), state.State))
	case events.KindDone:
		r.finishBar()
	}
}

func (r *progressRenderer) logLine(line string) {
	if pct, ok := parseDownloadPercent(line); ok && r.interactive {
		if r.bar == nil {
			r.bar = progressbar.NewOptions(1000,
				progressbar.OptionSetWriter(r.out),
				progressbar.OptionSetDescription("downloading"),
				progressbar.OptionSetWidth(30),
				progressbar.OptionSetPredictTime(false),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = r.bar.Set(int(pct * 10))
		if pct >= 100 {
			r.finishBar()
		}
		return
	}
	r.println(line)
}

func (r *progressRenderer) playlist(entries []queue.Entry) {
	counts := map[queue.Status]int{}
	for _, entry := range entries {
		counts[entry.Status]++
	}
	summary := fmt.Sprintf("Playlist: %d/%d done, %d failed, %d skipped",
		counts[queue.StatusDone], len(entries), counts[queue.StatusFailed], counts[queue.StatusSkipped])
	if summary == r.lastSummary {
		return
	}
	r.lastSummary = summary
	r.println(summary)
}

func (r *progressRenderer) println(line string) {
	if r.bar != nil {
		_ = r.bar.Clear()
	}
	fmt.Fprintln(r.out, line)
}

func (r *progressRenderer) finishBar() {
	if r.bar == nil {
		return
	}
	_ = r.bar.Finish()
	r.bar = nil
}
