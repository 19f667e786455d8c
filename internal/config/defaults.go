package config

import "time"

const (
	defaultConfigPath         = "~/.config/tubefetch/config.toml"
	defaultDownloadDir        = "~/Downloads/YT-Downloader"
	defaultLogDir             = "~/.local/share/tubefetch/logs"
	defaultAPIBind            = "127.0.0.1:5050"
	defaultYtDlpBinary        = "yt-dlp"
	defaultFFmpegBinary       = "ffmpeg"
	defaultQuality            = "1080p"
	defaultAudioFormat        = "mp3"
	defaultRetries            = 5
	defaultCaptureLimitKiB    = 1024
	defaultRateLimitCooldown  = "20s"
	defaultPlaylistTimeout    = "90s"
	defaultKillGrace          = "5s"
	defaultHeartbeatInterval  = "30s"
	defaultEventIdleTimeout   = "10m"
	defaultEventBacklog       = 4096
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultBrowserSweepEnable = true
)

// DefaultBrowsers lists the browsers probed for cookies, in probe order.
var DefaultBrowsers = []string{"chrome", "firefox", "edge", "brave", "opera", "chromium", "safari"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DownloadDir: defaultDownloadDir,
			LogDir:      defaultLogDir,
			APIBind:     defaultAPIBind,
		},
		Fetch: Fetch{
			YtDlpBinary:            defaultYtDlpBinary,
			FFmpegBinary:           defaultFFmpegBinary,
			DefaultQuality:         defaultQuality,
			DefaultAudioFormat:     defaultAudioFormat,
			DefaultRetries:         defaultRetries,
			CaptureLimitKiB:        defaultCaptureLimitKiB,
			BrowserSweep:           defaultBrowserSweepEnable,
			Browsers:               append([]string(nil), DefaultBrowsers...),
			RateLimitCooldownValue: defaultRateLimitCooldown,
			PlaylistTimeoutValue:   defaultPlaylistTimeout,
			KillGraceValue:         defaultKillGrace,
			RateLimitCooldown:      20 * time.Second,
			PlaylistTimeout:        90 * time.Second,
			KillGrace:              5 * time.Second,
		},
		Events: Events{
			Backlog:                defaultEventBacklog,
			HeartbeatIntervalValue: defaultHeartbeatInterval,
			IdleTimeoutValue:       defaultEventIdleTimeout,
			HeartbeatInterval:      30 * time.Second,
			IdleTimeout:            10 * time.Minute,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
