package jobs

import (
	"context"
	"strings"

	"github.com/alessio/shellescape"
)

var audioCodecs = map[string]string{
	"mp3":  "libmp3lame",
	"aac":  "aac",
	"m4a":  "aac",
	"flac": "flac",
	"wav":  "pcm_s16le",
	"opus": "libopus",
}

// ConvertArgs builds the ffmpeg command that transcodes src to format at
// bitrate, returning the command and the destination path.
func ConvertArgs(binary, src, format, bitrate string) ([]string, string) {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	codec, ok := audioCodecs[format]
	if !ok {
		codec = audioCodecs["mp3"]
	}
	dst := convertTarget(src, format)
	return []string{binary, "-i", src, "-vn", "-acodec", codec, "-ab", bitrate, dst, "-y"}, dst
}

func (s *Scheduler) runConvert(ctx context.Context, req Request, out *emitter) result {
	args, dst := ConvertArgs(s.cfg.Fetch.FFmpegBinary, req.SourcePath, req.AudioFormat, req.Bitrate)
	res := result{path: dst}

	out.logf("🔄 Converting…")
	out.line(shellescape.QuoteCommand(args))
	out.rule("─", headerRule)

	run := s.exec.Execute(ctx, args, out.line)
	out.line("")
	switch {
	case run.Cancelled:
		res.cancelled = true
		out.logf("⛔ Stopped.")
	case run.Success:
		res.success = true
		out.logf("✅ Saved: %s", dst)
	default:
		out.logf("❌ Conversion failed.")
	}
	return res
}
