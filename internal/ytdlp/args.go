package ytdlp

import (
	"os"
	"strconv"
	"strings"
)

// DefaultFormat is used for qualities outside the format map.
const DefaultFormat = "bv*+ba/best"

var formatMap = map[string]string{
	"best":  "bestvideo[ext=mp4]+bestaudio[ext=m4a]/bestvideo+bestaudio/best",
	"1080p": "bestvideo[ext=mp4][height<=1080]+bestaudio[ext=m4a]/bestvideo[height<=1080]+bestaudio/best[height<=1080]",
	"720p":  "bestvideo[ext=mp4][height<=720]+bestaudio[ext=m4a]/bestvideo[height<=720]+bestaudio/best[height<=720]",
	"480p":  "bestvideo[ext=mp4][height<=480]+bestaudio[ext=m4a]/bestvideo[height<=480]+bestaudio/best[height<=480]",
	"worst": "worstvideo[ext=mp4]+worstaudio[ext=m4a]/worst",
}

// FormatFor returns the format selector for a quality name. H.264 mp4 video
// with m4a audio is preferred so the merge needs no re-encode.
func FormatFor(quality string) string {
	if format, ok := formatMap[strings.ToLower(strings.TrimSpace(quality))]; ok {
		return format
	}
	return DefaultFormat
}

// VideoArgs builds the base command for a single video download.
func VideoArgs(binary, url, quality string) []string {
	return []string{
		binaryOrDefault(binary), "--no-playlist",
		"-f", FormatFor(quality),
		"--merge-output-format", "mp4",
		"--postprocessor-args", "ffmpeg:-c:v copy -c:a aac",
		"--newline", url,
	}
}

// AudioArgs builds the base command for an audio-only download.
func AudioArgs(binary, url, audioFormat string) []string {
	return []string{
		binaryOrDefault(binary), "--no-playlist",
		"-f", "bestaudio[ext=m4a]/bestaudio",
		"--extract-audio", "--audio-format", strings.ToLower(audioFormat), "--audio-quality", "0",
		"--newline", url,
	}
}

// CookieArgs selects the cookie source. An existing cookie file wins; a browser
// name of "" or "none" means no cookies.
func CookieArgs(browser, cookieFile string) []string {
	if path := strings.TrimSpace(cookieFile); path != "" {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return []string{"--cookies", path}
		}
	}
	browser = strings.ToLower(strings.TrimSpace(browser))
	if browser == "" || browser == "none" {
		return nil
	}
	return []string{"--cookies-from-browser", browser}
}

// ExtraArgs builds retry and rate-limit flags. rateLimit accepts yt-dlp's own
// syntax ("2M") or the human form ("2 MB/s"); "" and "no limit" disable it.
func ExtraArgs(rateLimit string, retries int) []string {
	if retries < 0 {
		retries = 0
	}
	n := strconv.Itoa(retries)
	args := []string{"--retries", n, "--fragment-retries", n, "--retry-sleep", "5"}
	if speed := normalizeRate(rateLimit); speed != "" {
		args = append(args, "--limit-rate", speed)
	}
	return args
}

func normalizeRate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "no limit") {
		return ""
	}
	replacer := strings.NewReplacer("MB/s", "M", "KB/s", "K", "mb/s", "M", "kb/s", "K")
	return strings.ReplaceAll(replacer.Replace(value), " ", "")
}

func binaryOrDefault(binary string) string {
	if strings.TrimSpace(binary) == "" {
		return "yt-dlp"
	}
	return binary
}
