package logs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const pollInterval = 250 * time.Millisecond

// TailOptions selects what Tail returns. A negative Offset means "the last
// Limit lines"; otherwise reading resumes at Offset. With Follow set, Tail
// waits up to Wait for new lines when none are available.
type TailOptions struct {
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
}

// TailResult holds the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads lines from path. A missing file yields no lines and offset zero.
// Only newline-terminated lines are returned so a line being written is picked
// up whole by the next call.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return TailResult{}, nil
	case err != nil:
		return TailResult{Offset: opts.Offset}, fmt.Errorf("stat log file: %w", err)
	case info.IsDir():
		return TailResult{Offset: opts.Offset}, fmt.Errorf("log path %q is a directory", path)
	}

	var result TailResult
	if opts.Offset < 0 {
		result, err = lastLines(path, opts.Limit)
	} else {
		offset := opts.Offset
		if offset > info.Size() {
			offset = info.Size()
		}
		result, err = linesFrom(path, offset)
	}
	if err != nil || !opts.Follow || opts.Wait <= 0 || len(result.Lines) > 0 {
		return result, err
	}
	return waitForLines(ctx, path, result.Offset, opts.Wait)
}

// lastLines returns up to limit trailing complete lines. limit <= 0 only
// positions the offset at the end of the last complete line.
func lastLines(path string, limit int) (TailResult, error) {
	all, err := linesFrom(path, 0)
	if err != nil {
		return TailResult{}, err
	}
	if limit <= 0 {
		all.Lines = nil
		return all, nil
	}
	if len(all.Lines) > limit {
		all.Lines = all.Lines[len(all.Lines)-limit:]
	}
	return all, nil
}

func linesFrom(path string, offset int64) (TailResult, error) {
	result := TailResult{Offset: offset}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return TailResult{}, nil
		}
		return result, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return result, fmt.Errorf("seek log file: %w", err)
	}
	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 && line[len(line)-1] == '\n' {
			result.Offset += int64(len(line))
			result.Lines = append(result.Lines, string(bytes.TrimRight(line, "\r\n")))
		}
		if errors.Is(err, io.EOF) {
			return result, nil
		}
		if err != nil {
			return result, fmt.Errorf("read log file: %w", err)
		}
	}
}

func waitForLines(ctx context.Context, path string, offset int64, wait time.Duration) (TailResult, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return TailResult{Offset: offset}, ctx.Err()
		case <-timer.C:
			return TailResult{Offset: offset}, nil
		case <-ticker.C:
		}
		result, err := linesFrom(path, offset)
		if err != nil || len(result.Lines) > 0 {
			return result, err
		}
	}
}
