// Package ffmpeg builds and executes the external transcode
// invocation for one conversion job.
package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"

	"mk4/internal/domain"
)

// BuildArgs constructs the complete ffmpeg argument slice for a job.
// The command is deterministic: the same job always yields the same
// invocation. The leading binary name is supplied by the executor.
func BuildArgs(job domain.ConversionJob) []string {
	args := make([]string, 0, 32)

	// --- Preamble ---
	// Progress goes to stdout as key=value lines; diagnostics stay on
	// stderr for failure classification.
	args = append(args,
		"-y", "-hide_banner", "-nostdin",
		"-loglevel", "error",
		"-nostats",
		"-progress", "pipe:1",
	)

	// --- Input ---
	args = append(args, "-i", job.Input.Path)

	// --- Stream maps ---
	args = append(args,
		"-map", "0:v:0",
		"-map", fmt.Sprintf("0:a:%d", job.AudioIndex),
	)

	// --- Subtitle burn-in filter ---
	if job.BurnsSubtitles() {
		args = append(args, "-vf", subtitleFilter(job))
	}

	// --- Video codec ---
	args = append(args, "-c:v", job.Settings.Encoder, "-pix_fmt", "yuv420p")
	args = append(args, qualityArgs(job.Settings.Encoder, job.Settings.CRF)...)

	// --- Audio codec ---
	args = append(args, "-c:a", "aac")

	// --- Output ---
	args = append(args, job.OutputPath)

	return args
}

// subtitleFilter renders the burn-in filter for the selected subtitle
// track with the configured font name and size.
func subtitleFilter(job domain.ConversionJob) string {
	return fmt.Sprintf("subtitles=%s:si=%d:force_style='FontName=%s,FontSize=%d'",
		quoteFilterValue(job.Input.Path),
		job.SubtitleIndex,
		job.Settings.FontName,
		job.Settings.FontSize,
	)
}

// qualityArgs selects the quality flag family for the encoder: nvenc
// takes -cq, amf takes constant-QP rate control, everything else -crf.
func qualityArgs(encoder string, crf int) []string {
	quality := strconv.Itoa(crf)
	switch {
	case strings.HasSuffix(encoder, "nvenc"):
		return []string{"-cq", quality}
	case strings.HasSuffix(encoder, "amf"):
		return []string{"-rc", "cqp", "-qp_p", quality, "-qp_i", quality}
	default:
		return []string{"-crf", quality}
	}
}

// quoteFilterValue wraps a path for ffmpeg's filter argument parser,
// where unquoted colons and commas are structural.
func quoteFilterValue(path string) string {
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}
