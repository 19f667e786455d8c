package ytdlp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tubefetch/internal/logging"
	"tubefetch/internal/procexec"
)

// DefaultCooldown is the wait after a rate limited attempt.
const DefaultCooldown = 20 * time.Second

const separatorWidth = 50

// Executor runs one argv and streams its output lines.
type Executor interface {
	Execute(ctx context.Context, argv []string, onLine procexec.LineFunc) procexec.Result
}

// Sleeper waits for d or until ctx is done, returning ctx.Err() in the latter case.
type Sleeper func(ctx context.Context, d time.Duration) error

// EmitFunc receives human readable progress lines.
type EmitFunc func(line string)

// Outcome summarises one Engine.Run.
type Outcome struct {
	Success   bool
	Cancelled bool
	// Attempts counts strategies that actually spawned a process.
	Attempts int
	// Strategy is the label of the last attempted strategy.
	Strategy string
	Class    Class
}

// Engine executes the strategy list for one URL at a time.
type Engine struct {
	exec     Executor
	logger   *slog.Logger
	cooldown time.Duration
	sweep    []string
	sleep    Sleeper
	now      func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the logger for attempt diagnostics.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithCooldown overrides the rate limit cooldown.
func WithCooldown(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d >= 0 {
			e.cooldown = d
		}
	}
}

// WithBrowserSweep sets the browsers probed when a job carries no cookie source.
// An empty list disables the sweep.
func WithBrowserSweep(browsers []string) EngineOption {
	return func(e *Engine) {
		e.sweep = append([]string(nil), browsers...)
	}
}

// WithSleeper replaces the cooldown timer.
func WithSleeper(s Sleeper) EngineOption {
	return func(e *Engine) {
		if s != nil {
			e.sleep = s
		}
	}
}

// WithClock replaces the clock used for line timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine constructs an Engine around exec.
func NewEngine(exec Executor, opts ...EngineOption) *Engine {
	e := &Engine{
		exec:     exec,
		logger:   logging.NewNop(),
		cooldown: DefaultCooldown,
		sleep:    sleepContext,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Strategies returns the strategy list Run would attempt for inv.
func (e *Engine) Strategies(inv Invocation) []Strategy {
	return BuildStrategies(inv, e.sweep)
}

// Run attempts each strategy in order until one succeeds, the context is
// cancelled, or an attempt fails in a way no later strategy can fix.
func (e *Engine) Run(ctx context.Context, inv Invocation, emit EmitFunc) Outcome {
	if emit == nil {
		emit = func(string) {}
	}
	logger := logging.WithContext(ctx, e.logger)
	strategies := e.Strategies(inv)

	var (
		outcome    Outcome
		restricted bool
	)
	for _, strategy := range strategies {
		if ctx.Err() != nil {
			return e.stopped(emit, outcome)
		}
		if restricted && strategy.PlainClient {
			emit(e.stamp("⏭ Skipping %s (SABR)", strategy.Label))
			logger.Debug("strategy skipped",
				logging.String(logging.FieldEventType, "strategy_skipped"),
				logging.String(logging.FieldStrategy, strategy.Label),
				logging.String("reason", "restricted protocol"),
			)
			continue
		}

		outcome.Attempts++
		outcome.Strategy = strategy.Label
		emit("")
		emit(e.stamp("▶ Strategy %d: %s", outcome.Attempts, strategy.Label))
		emit(strings.Repeat("─", separatorWidth))
		if strategy.Browser != "" {
			logger.Info("probing browser cookies",
				logging.String(logging.FieldEventType, "browser_probe"),
				logging.String(logging.FieldStrategy, strategy.Label),
				logging.String("browser", strategy.Browser),
			)
		}

		result := e.exec.Execute(ctx, strategy.Args, procexec.LineFunc(emit))
		if result.Cancelled || ctx.Err() != nil {
			return e.stopped(emit, outcome)
		}
		outcome.Class = Classify(result.Success, result.Output)
		if outcome.Class == ClassSuccess {
			outcome.Success = true
			emit("")
			emit(e.stamp("✅ SUCCESS — %s", strategy.Label))
			logger.Info("strategy succeeded",
				logging.String(logging.FieldEventType, "strategy_succeeded"),
				logging.String(logging.FieldStrategy, strategy.Label),
				logging.Int("attempt", outcome.Attempts),
			)
			return outcome
		}

		if result.Err != nil {
			logging.WarnWithContext(logger, "strategy failed to launch", "strategy_launch_failed",
				logging.String(logging.FieldStrategy, strategy.Label),
				logging.Error(result.Err),
				logging.String(logging.FieldErrorHint, "check fetch.ytdlp_binary and PATH"),
				logging.String(logging.FieldImpact, "moving to next strategy"),
			)
			continue
		}

		if restrictedProtocol(result.Output) && !restricted {
			restricted = true
			emit(e.stamp("⚠ SABR detected"))
		}
		logger.Info("strategy failed",
			logging.String(logging.FieldEventType, "strategy_failed"),
			logging.String(logging.FieldStrategy, strategy.Label),
			logging.String("class", string(outcome.Class)),
			logging.Int("exit_code", result.ExitCode),
		)

		switch outcome.Class {
		case ClassRateLimited:
			emit(e.stamp("⏳ Rate limited — waiting %s…", e.cooldown))
			if err := e.sleep(ctx, e.cooldown); err != nil {
				return e.stopped(emit, outcome)
			}
		case ClassForbidden, ClassRestrictedProtocol:
		default:
			emit(e.stamp("❌ Failed — stopping retry"))
			return outcome
		}
	}

	emit("")
	emit(e.stamp("❌ ALL %d STRATEGIES EXHAUSTED", outcome.Attempts))
	emit("💡 Try: update yt-dlp · set cookie browser · export cookies.txt · change network/VPN")
	logging.WarnWithContext(logger, "all strategies exhausted", "strategies_exhausted",
		logging.Int("attempts", outcome.Attempts),
		logging.String(logging.FieldErrorHint, "update yt-dlp, configure a cookie source, or change network egress"),
		logging.String(logging.FieldImpact, "url not downloaded"),
	)
	return outcome
}

func (e *Engine) stopped(emit EmitFunc, outcome Outcome) Outcome {
	emit(e.stamp("⛔ Stopped."))
	outcome.Cancelled = true
	outcome.Success = false
	return outcome
}

func (e *Engine) stamp(format string, args ...any) string {
	return Stamp(e.now(), fmt.Sprintf(format, args...))
}

// Stamp prefixes msg with a wall-clock time in the progress log format.
func Stamp(at time.Time, msg string) string {
	return "[" + at.Format("15:04:05") + "] " + msg
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
