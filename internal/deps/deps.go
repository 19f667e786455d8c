package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"tubefetch/internal/config"
)

// Requirement defines an external tool tubefetch shells out to.
type Requirement struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Path        string `json:"path,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// Requirements lists the tools the configured daemon invokes.
func Requirements(cfg *config.Config) []Requirement {
	ytdlp, ffmpeg := "yt-dlp", "ffmpeg"
	if cfg != nil {
		ytdlp = cfg.Fetch.YtDlpBinary
		ffmpeg = cfg.Fetch.FFmpegBinary
	}
	return []Requirement{
		{Name: "yt-dlp", Command: ytdlp, Description: "Downloads videos, audio and playlist listings"},
		{Name: "FFmpeg", Command: ffmpeg, Description: "Merges streams and converts audio", Optional: true},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Path = resolved
		results = append(results, status)
	}
	return results
}

// Missing returns the names of required tools that are unavailable.
func Missing(statuses []Status) []string {
	var out []string
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s.Name)
		}
	}
	return out
}
