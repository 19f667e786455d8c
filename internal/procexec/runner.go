package procexec

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/alessio/shellescape"

	"tubefetch/internal/logging"
	"tubefetch/internal/services"
)

const (
	defaultKillGrace    = 5 * time.Second
	defaultCaptureLimit = 1 << 20
	maxLineBytes        = 1 << 20
)

// Result describes one finished execution.
type Result struct {
	Success   bool
	Output    string
	ExitCode  int
	Cancelled bool
	// Err is set when the child could not be started or reaped.
	Err error
}

// LineFunc receives each non-empty output line.
type LineFunc func(line string)

// Runner executes external commands.
type Runner struct {
	logger       *slog.Logger
	registry     *Registry
	killGrace    time.Duration
	captureLimit int
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used for launch and termination diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRegistry records running children in reg.
func WithRegistry(reg *Registry) Option {
	return func(r *Runner) {
		if reg != nil {
			r.registry = reg
		}
	}
}

// WithKillGrace sets how long a child may run after SIGTERM before SIGKILL.
func WithKillGrace(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.killGrace = d
		}
	}
}

// WithCaptureLimit bounds the captured output in bytes; older text is dropped first.
func WithCaptureLimit(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.captureLimit = n
		}
	}
}

// NewRunner constructs a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		logger:       logging.NewNop(),
		registry:     NewRegistry(),
		killGrace:    defaultKillGrace,
		captureLimit: defaultCaptureLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the registry tracking this runner's children.
func (r *Runner) Registry() *Registry {
	return r.registry
}

// Execute runs argv to completion or cancellation. It never returns before the
// child has been reaped.
func (r *Runner) Execute(ctx context.Context, argv []string, onLine LineFunc) Result {
	if onLine == nil {
		onLine = func(string) {}
	}
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return r.launchFailure(errors.New("empty command"), onLine)
	}
	if ctx.Err() != nil {
		return Result{Cancelled: true, ExitCode: -1}
	}

	logger := logging.WithContext(ctx, r.logger)
	cmd := exec.Command(argv[0], argv[1:]...)
	setProcessGroup(cmd)

	reader, writer, err := os.Pipe()
	if err != nil {
		return r.launchFailure(fmt.Errorf("create output pipe: %w", err), onLine)
	}
	cmd.Stdout = writer
	cmd.Stderr = writer

	logger.Debug("launching command",
		logging.String(logging.FieldEventType, "command_launch"),
		logging.String("command", shellescape.QuoteCommand(argv)),
	)
	if err := cmd.Start(); err != nil {
		_ = reader.Close()
		_ = writer.Close()
		return r.launchFailure(err, onLine)
	}
	// The child holds its own copy; closing ours lets the reader see EOF.
	_ = writer.Close()

	jobID, _ := services.JobIDFromContext(ctx)
	handle := r.registry.add(jobID, cmd.Process.Pid, argv)
	defer r.registry.remove(handle)

	exited := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			r.terminate(logger, cmd, exited, "context cancelled")
		case <-handle.stop:
			r.terminate(logger, cmd, exited, "stop requested")
		case <-exited:
		}
	}()

	capture := newTailBuffer(r.captureLimit)
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	scanner.Split(splitByNewlineOrCR)
	for scanner.Scan() {
		if ctx.Err() != nil || handle.stopped() {
			break
		}
		line := strings.TrimRight(scanner.Text(), " \t")
		if strings.TrimSpace(line) == "" {
			continue
		}
		capture.WriteLine(line)
		onLine(line)
	}
	scanErr := scanner.Err()

	waitErr := cmd.Wait()
	close(exited)
	_ = reader.Close()

	result := Result{
		Output:   capture.String(),
		ExitCode: -1,
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}
	if ctx.Err() != nil || handle.stopped() {
		result.Cancelled = true
		return result
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		result.Success = true
	case errors.As(waitErr, &exitErr):
	default:
		result.Err = waitErr
	}
	if scanErr != nil && !errors.Is(scanErr, os.ErrClosed) {
		logger.Debug("output scan ended early", logging.Error(scanErr))
	}
	return result
}

func (r *Runner) launchFailure(err error, onLine LineFunc) Result {
	msg := err.Error()
	onLine(msg)
	return Result{Output: msg, ExitCode: -1, Err: err}
}

// terminate asks the child's process group to exit, escalating to SIGKILL if it
// outlives the grace period.
func (r *Runner) terminate(logger *slog.Logger, cmd *exec.Cmd, exited <-chan struct{}, reason string) {
	if cmd.Process == nil {
		return
	}
	logger.Info("terminating command",
		logging.String(logging.FieldEventType, "command_terminate"),
		logging.Int("pid", cmd.Process.Pid),
		logging.String("reason", reason),
	)
	if err := interruptGroup(cmd); err != nil {
		logger.Debug("sigterm failed", logging.Error(err))
	}
	timer := time.NewTimer(r.killGrace)
	defer timer.Stop()
	select {
	case <-exited:
		return
	case <-timer.C:
	}
	logging.WarnWithContext(logger, "command ignored sigterm; killing", "command_kill",
		logging.Int("pid", cmd.Process.Pid),
		logging.Duration("grace", r.killGrace),
		logging.String(logging.FieldImpact, "partial output files may remain"),
		logging.String(logging.FieldErrorHint, "remove leftover .part files from the destination"),
	)
	if err := killGroup(cmd); err != nil {
		logger.Debug("sigkill failed", logging.Error(err))
	}
}

// splitByNewlineOrCR is a bufio.SplitFunc treating both \n and \r as line
// terminators so in-place progress updates arrive as separate lines.
func splitByNewlineOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			if i == 0 {
				return 1, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}
