package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tubefetch/internal/logging"
	"tubefetch/internal/queue"
	"tubefetch/internal/services"
)

// DefaultPlaylistTimeout bounds one flat-playlist listing.
const DefaultPlaylistTimeout = 90 * time.Second

const (
	printTemplate  = "%(id)s|||%(title)s|||%(url)s"
	fieldSeparator = "|||"
	watchURLPrefix = "https://www.youtube.com/watch?v="
)

// ErrEmptyPlaylist is returned when a listing yields no entries.
var ErrEmptyPlaylist = errors.New("playlist has no entries")

// Resolver lists the entries of a playlist URL without downloading them.
type Resolver struct {
	exec    Executor
	binary  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewResolver constructs a Resolver. Zero timeout selects DefaultPlaylistTimeout.
func NewResolver(exec Executor, binary string, timeout time.Duration, logger *slog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = DefaultPlaylistTimeout
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Resolver{exec: exec, binary: binaryOrDefault(binary), timeout: timeout, logger: logger}
}

// Args returns the listing command for url.
func (r *Resolver) Args(url string, cookies []string) []string {
	args := []string{r.binary, "--flat-playlist", "--print", printTemplate, "--no-warnings"}
	args = append(args, cookies...)
	return append(args, url)
}

// Resolve lists url and returns its entries in playlist order, all queued.
func (r *Resolver) Resolve(ctx context.Context, url string, cookies []string) ([]queue.Entry, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, services.Wrap(services.ErrValidation, "", "resolve playlist", "url required", nil)
	}
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	logger := logging.WithContext(ctx, r.logger)
	started := time.Now()
	var list listing
	result := r.exec.Execute(runCtx, r.Args(url, cookies), list.add)
	switch {
	case result.Cancelled && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		return nil, services.Wrap(services.ErrTimeout, "", "resolve playlist",
			fmt.Sprintf("listing took longer than %s", r.timeout), runCtx.Err())
	case result.Cancelled:
		return nil, services.Wrap(services.ErrCancelled, "", "resolve playlist", "listing cancelled", ctx.Err())
	case result.Err != nil:
		return nil, services.Wrap(services.ErrExternalTool, "", "resolve playlist", "launch yt-dlp", result.Err)
	}

	entries := list.entries
	if len(entries) == 0 {
		if !result.Success {
			return nil, services.Wrap(services.ErrExternalTool, "", "resolve playlist",
				fmt.Sprintf("yt-dlp exited with status %d", result.ExitCode), errors.New(lastLine(result.Output)))
		}
		return nil, ErrEmptyPlaylist
	}
	logger.Info("playlist resolved",
		logging.String(logging.FieldEventType, "playlist_resolved"),
		logging.Int("entries", len(entries)),
		logging.Duration("duration", time.Since(started)),
	)
	return entries, nil
}

// ParseListing parses flat-playlist output. Lines without the field separator
// are ignored; a missing url falls back to the watch page for the id.
func ParseListing(output string) []queue.Entry {
	var list listing
	for _, line := range strings.Split(output, "\n") {
		list.add(line)
	}
	return list.entries
}

// listing accumulates entries one output line at a time, so a listing is
// never limited by the runner's capture buffer.
type listing struct {
	entries []queue.Entry
}

func (l *listing) add(line string) {
	if !strings.Contains(line, fieldSeparator) {
		return
	}
	parts := strings.Split(line, fieldSeparator)
	id := strings.TrimSpace(parts[0])
	title := strings.TrimSpace(parts[1])
	url := ""
	if len(parts) > 2 {
		url = strings.TrimSpace(parts[2])
	}
	if url == "" || url == "NA" {
		if id == "" {
			return
		}
		url = watchURLPrefix + id
	}
	l.entries = append(l.entries, queue.Entry{
		Index:  len(l.entries) + 1,
		ID:     id,
		Title:  title,
		URL:    url,
		Status: queue.StatusQueued,
	})
}

func lastLine(output string) string {
	output = strings.TrimSpace(output)
	if idx := strings.LastIndex(output, "\n"); idx >= 0 {
		return output[idx+1:]
	}
	if output == "" {
		return "no output"
	}
	return output
}
