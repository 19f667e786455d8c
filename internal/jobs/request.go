package jobs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"tubefetch/internal/config"
)

// Kind identifies a job shape.
type Kind string

const (
	KindVideo         Kind = "video"
	KindAudio         Kind = "audio"
	KindPlaylistOne   Kind = "playlist_one"
	KindPlaylistRange Kind = "playlist_range"
	KindPlaylistAll   Kind = "playlist_all"
	KindConvert       Kind = "convert"
)

// IsPlaylist reports whether the kind operates on the playlist store.
func (k Kind) IsPlaylist() bool {
	switch k {
	case KindPlaylistOne, KindPlaylistRange, KindPlaylistAll:
		return true
	default:
		return false
	}
}

// Media selects video or audio output for playlist jobs.
type Media string

const (
	MediaVideo Media = "video"
	MediaAudio Media = "audio"
)

const defaultBitrate = "192k"

var (
	// ErrInvalidRequest marks requests rejected by validation.
	ErrInvalidRequest = errors.New("invalid job request")
	// ErrPlaylistBusy is returned when another playlist job holds the store.
	ErrPlaylistBusy = errors.New("playlist job already running")
	// ErrJobNotFound is returned by Stop for unknown job ids.
	ErrJobNotFound = errors.New("job not found")
)

// Request describes one unit of work. Index, Start and End are 1-based.
// Retries <= 0 selects the configured default.
type Request struct {
	Kind          Kind   `json:"kind"`
	Media         Media  `json:"media,omitempty"`
	URL           string `json:"url,omitempty"`
	Index         int    `json:"index,omitempty"`
	Start         int    `json:"start,omitempty"`
	End           int    `json:"end,omitempty"`
	SkipDone      bool   `json:"skip_done,omitempty"`
	Quality       string `json:"quality,omitempty"`
	AudioFormat   string `json:"audio_format,omitempty"`
	CookieBrowser string `json:"cookie_browser,omitempty"`
	CookieFile    string `json:"cookie_file,omitempty"`
	RateLimit     string `json:"rate_limit,omitempty"`
	Retries       int    `json:"retries,omitempty"`
	DestDir       string `json:"dest_dir,omitempty"`
	ClientID      string `json:"client_id,omitempty"`
	SourcePath    string `json:"source_path,omitempty"`
	Bitrate       string `json:"bitrate,omitempty"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// withDefaults fills unset fields from cfg and trims free-text values.
func (r Request) withDefaults(cfg *config.Config) (Request, error) {
	r.Kind = Kind(strings.ToLower(strings.TrimSpace(string(r.Kind))))
	r.Media = Media(strings.ToLower(strings.TrimSpace(string(r.Media))))
	r.URL = strings.TrimSpace(r.URL)
	r.Quality = strings.ToLower(strings.TrimSpace(r.Quality))
	r.AudioFormat = strings.ToLower(strings.TrimSpace(r.AudioFormat))
	r.CookieBrowser = strings.TrimSpace(r.CookieBrowser)
	r.CookieFile = strings.TrimSpace(r.CookieFile)
	r.RateLimit = strings.TrimSpace(r.RateLimit)
	r.Bitrate = strings.TrimSpace(r.Bitrate)
	r.ClientID = strings.TrimSpace(r.ClientID)

	switch r.Kind {
	case KindAudio:
		r.Media = MediaAudio
	case KindVideo:
		r.Media = MediaVideo
	}
	if r.Media == "" {
		r.Media = MediaVideo
	}
	if r.Quality == "" {
		r.Quality = cfg.Fetch.DefaultQuality
	}
	if r.AudioFormat == "" {
		r.AudioFormat = cfg.Fetch.DefaultAudioFormat
	}
	if r.Retries <= 0 {
		r.Retries = cfg.Fetch.DefaultRetries
	}
	if r.Bitrate == "" {
		r.Bitrate = defaultBitrate
	}

	dest := strings.TrimSpace(r.DestDir)
	if dest == "" {
		dest = cfg.Paths.DownloadDir
	}
	expanded, err := config.ExpandPath(dest)
	if err != nil {
		return r, invalid("dest_dir: %v", err)
	}
	r.DestDir = expanded

	if r.SourcePath != "" {
		source, err := config.ExpandPath(strings.TrimSpace(r.SourcePath))
		if err != nil {
			return r, invalid("source_path: %v", err)
		}
		r.SourcePath = source
	}
	return r, nil
}

// validate checks the fields the request's kind relies on.
func (r Request) validate() error {
	switch r.Kind {
	case KindVideo, KindAudio:
		if r.URL == "" {
			return invalid("url required")
		}
	case KindPlaylistOne:
		if r.Index < 1 {
			return invalid("index must be >= 1")
		}
	case KindPlaylistRange:
		if r.Start < 1 || r.End < 1 {
			return invalid("start and end must be >= 1")
		}
		if r.End < r.Start {
			return invalid("end %d before start %d", r.End, r.Start)
		}
	case KindPlaylistAll:
	case KindConvert:
		if r.SourcePath == "" {
			return invalid("source_path required")
		}
		info, err := os.Stat(r.SourcePath)
		if err != nil {
			return invalid("source_path: %v", err)
		}
		if info.IsDir() {
			return invalid("source_path %s is a directory", r.SourcePath)
		}
	default:
		return invalid("unknown kind %q", r.Kind)
	}

	switch r.Media {
	case MediaVideo, MediaAudio:
	default:
		return invalid("media must be video or audio")
	}
	if r.Media == MediaVideo && !slices.Contains(config.Qualities, r.Quality) {
		return invalid("quality must be one of %s", strings.Join(config.Qualities, ", "))
	}
	if (r.Media == MediaAudio || r.Kind == KindConvert) && !slices.Contains(config.AudioFormats, r.AudioFormat) {
		return invalid("audio_format must be one of %s", strings.Join(config.AudioFormats, ", "))
	}
	return nil
}

// convertTarget returns the output path for a conversion of src to format.
func convertTarget(src, format string) string {
	stem := strings.TrimSuffix(src, filepath.Ext(src))
	return stem + "_converted." + format
}
