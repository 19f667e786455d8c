package ytdlp_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"tubefetch/internal/ytdlp"
)

func TestFormatFor(t *testing.T) {
	if got := ytdlp.FormatFor("720P"); got != "bestvideo[ext=mp4][height<=720]+bestaudio[ext=m4a]/bestvideo[height<=720]+bestaudio/best[height<=720]" {
		t.Fatalf("unexpected 720p selector %q", got)
	}
	if got := ytdlp.FormatFor("worst"); got != "worstvideo[ext=mp4]+worstaudio[ext=m4a]/worst" {
		t.Fatalf("unexpected worst selector %q", got)
	}
	if got := ytdlp.FormatFor("4k"); got != ytdlp.DefaultFormat {
		t.Fatalf("expected default selector for unknown quality, got %q", got)
	}
}

func TestVideoAndAudioArgs(t *testing.T) {
	video := ytdlp.VideoArgs("", "https://example.test/v", "best")
	wantVideo := []string{
		"yt-dlp", "--no-playlist",
		"-f", "bestvideo[ext=mp4]+bestaudio[ext=m4a]/bestvideo+bestaudio/best",
		"--merge-output-format", "mp4",
		"--postprocessor-args", "ffmpeg:-c:v copy -c:a aac",
		"--newline", "https://example.test/v",
	}
	if !reflect.DeepEqual(video, wantVideo) {
		t.Fatalf("VideoArgs = %v", video)
	}

	audio := ytdlp.AudioArgs("/opt/yt-dlp", "https://example.test/a", "FLAC")
	if audio[0] != "/opt/yt-dlp" || audio[len(audio)-1] != "https://example.test/a" {
		t.Fatalf("unexpected audio argv %v", audio)
	}
	if audio[6] != "flac" {
		t.Fatalf("expected lowercased audio format, got %v", audio)
	}
}

func TestCookieArgs(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cookies.txt")
	if err := os.WriteFile(file, []byte("# Netscape HTTP Cookie File\n"), 0o600); err != nil {
		t.Fatalf("write cookies: %v", err)
	}

	tests := []struct {
		name    string
		browser string
		file    string
		want    []string
	}{
		{"file wins", "Chrome", file, []string{"--cookies", file}},
		{"missing file falls back to browser", "Firefox", file + ".missing", []string{"--cookies-from-browser", "firefox"}},
		{"none", "None", "", nil},
		{"empty", "", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ytdlp.CookieArgs(tt.browser, tt.file); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("CookieArgs = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtraArgs(t *testing.T) {
	got := ytdlp.ExtraArgs("2 MB/s", 3)
	want := []string{"--retries", "3", "--fragment-retries", "3", "--retry-sleep", "5", "--limit-rate", "2M"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtraArgs = %v", got)
	}
	if got := ytdlp.ExtraArgs("No limit", 5); len(got) != 6 {
		t.Fatalf("expected no rate limit flag, got %v", got)
	}
	if got := ytdlp.ExtraArgs("500K", 1); got[len(got)-1] != "500K" {
		t.Fatalf("expected native rate passed through, got %v", got)
	}
}
