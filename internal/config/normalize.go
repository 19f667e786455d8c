package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	str2duration "github.com/xhit/go-str2duration/v2"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeFetch(); err != nil {
		return err
	}
	if err := c.normalizeEvents(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		c.Paths.DownloadDir = defaultDownloadDir
	}
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("TUBEFETCH_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeFetch() error {
	c.Fetch.YtDlpBinary = strings.TrimSpace(c.Fetch.YtDlpBinary)
	if c.Fetch.YtDlpBinary == "" {
		c.Fetch.YtDlpBinary = defaultYtDlpBinary
	}
	c.Fetch.FFmpegBinary = strings.TrimSpace(c.Fetch.FFmpegBinary)
	if c.Fetch.FFmpegBinary == "" {
		c.Fetch.FFmpegBinary = defaultFFmpegBinary
	}
	c.Fetch.DefaultQuality = strings.ToLower(strings.TrimSpace(c.Fetch.DefaultQuality))
	if c.Fetch.DefaultQuality == "" {
		c.Fetch.DefaultQuality = defaultQuality
	}
	c.Fetch.DefaultAudioFormat = strings.ToLower(strings.TrimSpace(c.Fetch.DefaultAudioFormat))
	if c.Fetch.DefaultAudioFormat == "" {
		c.Fetch.DefaultAudioFormat = defaultAudioFormat
	}
	if c.Fetch.CaptureLimitKiB == 0 {
		c.Fetch.CaptureLimitKiB = defaultCaptureLimitKiB
	}

	browsers := make([]string, 0, len(c.Fetch.Browsers))
	seen := make(map[string]struct{}, len(c.Fetch.Browsers))
	for _, browser := range c.Fetch.Browsers {
		name := strings.ToLower(strings.TrimSpace(browser))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		browsers = append(browsers, name)
	}
	c.Fetch.Browsers = browsers

	var err error
	if c.Fetch.RateLimitCooldown, err = parseDuration(c.Fetch.RateLimitCooldownValue, defaultRateLimitCooldown); err != nil {
		return fmt.Errorf("fetch.rate_limit_cooldown: %w", err)
	}
	if c.Fetch.PlaylistTimeout, err = parseDuration(c.Fetch.PlaylistTimeoutValue, defaultPlaylistTimeout); err != nil {
		return fmt.Errorf("fetch.playlist_timeout: %w", err)
	}
	if c.Fetch.KillGrace, err = parseDuration(c.Fetch.KillGraceValue, defaultKillGrace); err != nil {
		return fmt.Errorf("fetch.kill_grace: %w", err)
	}
	return nil
}

func (c *Config) normalizeEvents() error {
	if c.Events.Backlog == 0 {
		c.Events.Backlog = defaultEventBacklog
	}
	var err error
	if c.Events.HeartbeatInterval, err = parseDuration(c.Events.HeartbeatIntervalValue, defaultHeartbeatInterval); err != nil {
		return fmt.Errorf("events.heartbeat_interval: %w", err)
	}
	if c.Events.IdleTimeout, err = parseDuration(c.Events.IdleTimeoutValue, defaultEventIdleTimeout); err != nil {
		return fmt.Errorf("events.idle_timeout: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// parseDuration accepts Go duration strings plus day/week units ("1d", "2w").
func parseDuration(value, fallback string) (time.Duration, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		trimmed = fallback
	}
	parsed, err := str2duration.ParseDuration(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", trimmed, err)
	}
	return parsed, nil
}
