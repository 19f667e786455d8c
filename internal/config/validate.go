package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Qualities lists the accepted video quality presets.
var Qualities = []string{"best", "1080p", "720p", "480p", "worst"}

// AudioFormats lists the accepted audio extraction formats.
var AudioFormats = []string{"mp3", "m4a", "aac", "flac", "wav", "opus"}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		return errors.New("paths.download_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind must be host:port: %w", err)
	}
	return nil
}

func (c *Config) validateFetch() error {
	if !contains(Qualities, c.Fetch.DefaultQuality) {
		return fmt.Errorf("fetch.default_quality must be one of %s", strings.Join(Qualities, ", "))
	}
	if !contains(AudioFormats, c.Fetch.DefaultAudioFormat) {
		return fmt.Errorf("fetch.default_audio_format must be one of %s", strings.Join(AudioFormats, ", "))
	}
	if c.Fetch.DefaultRetries < 0 {
		return errors.New("fetch.default_retries must be non-negative")
	}
	if c.Fetch.CaptureLimitKiB < 0 {
		return errors.New("fetch.capture_limit_kib must be non-negative")
	}
	if c.Fetch.RateLimitCooldown < 0 {
		return errors.New("fetch.rate_limit_cooldown must be non-negative")
	}
	if c.Fetch.PlaylistTimeout <= 0 {
		return errors.New("fetch.playlist_timeout must be positive")
	}
	if c.Fetch.KillGrace <= 0 {
		return errors.New("fetch.kill_grace must be positive")
	}
	if c.Fetch.BrowserSweep && len(c.Fetch.Browsers) == 0 {
		return errors.New("fetch.browsers must list at least one browser when fetch.browser_sweep is true")
	}
	return nil
}

func (c *Config) validateEvents() error {
	if c.Events.Backlog < 0 {
		return errors.New("events.backlog must be non-negative")
	}
	if c.Events.HeartbeatInterval <= 0 {
		return errors.New("events.heartbeat_interval must be positive")
	}
	if c.Events.IdleTimeout <= 0 {
		return errors.New("events.idle_timeout must be positive")
	}
	// The reaper would drop live SSE streams between two heartbeats.
	if c.Events.IdleTimeout <= c.Events.HeartbeatInterval {
		return fmt.Errorf("events.idle_timeout (%s) must exceed events.heartbeat_interval (%s)",
			c.Events.IdleTimeout, c.Events.HeartbeatInterval)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func contains(values []string, candidate string) bool {
	for _, v := range values {
		if v == candidate {
			return true
		}
	}
	return false
}
