// Package probe enumerates the streams of a media container with a
// single ffprobe JSON call.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"mk4/internal/domain"
)

// Result is the fully parsed output of one ffprobe call. Track indices
// are relative per kind, matching ffmpeg's 0:a:N / 0:s:N selectors.
type Result struct {
	Duration  float64
	Subtitles []domain.SubtitleTrack
	Audio     []domain.AudioTrack
}

// Prober runs ffprobe in inspection mode. The command runner is
// injectable so parsing and degradation paths test without a binary.
type Prober struct {
	ffprobePath string
	run         func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// New builds a prober that invokes ffprobe from PATH.
func New() *Prober {
	return &Prober{
		ffprobePath: "ffprobe",
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

// NewForTests builds a prober with an injected command runner.
func NewForTests(run func(ctx context.Context, name string, args ...string) ([]byte, error)) *Prober {
	return &Prober{ffprobePath: "ffprobe", run: run}
}

// Probe inspects path and returns its track descriptors.
func (p *Prober) Probe(ctx context.Context, path string) (Result, error) {
	out, err := p.run(ctx, p.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)
	if err != nil {
		return Result{}, &domain.ProbeError{Path: path, Err: err}
	}

	result, err := ParseJSON(out)
	if err != nil {
		return Result{}, &domain.ProbeError{Path: path, Err: err}
	}
	return result, nil
}

// ParseJSON converts raw ffprobe JSON output into a Result. Exported
// for testing without a real ffprobe binary.
func ParseJSON(data []byte) (Result, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return Result{}, fmt.Errorf("parse ffprobe JSON: %w", err)
	}
	return buildResult(&raw), nil
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeStream struct {
	Index         int               `json:"index"`
	CodecName     string            `json:"codec_name"`
	CodecType     string            `json:"codec_type"`
	Channels      int               `json:"channels"`
	ChannelLayout string            `json:"channel_layout"`
	Disposition   map[string]int    `json:"disposition"`
	Tags          map[string]string `json:"tags"`
}

// --- Conversion from wire types to domain types ---

func buildResult(raw *ffprobeOutput) Result {
	result := Result{
		Duration: parseFloat(raw.Format.Duration),
	}

	for i := range raw.Streams {
		s := &raw.Streams[i]
		switch s.CodecType {
		case "audio":
			result.Audio = append(result.Audio, domain.AudioTrack{
				Index:         len(result.Audio),
				Codec:         s.CodecName,
				Language:      s.Tags["language"],
				Title:         s.Tags["title"],
				Channels:      s.Channels,
				ChannelLayout: s.ChannelLayout,
				Default:       s.Disposition["default"] == 1,
			})
		case "subtitle":
			result.Subtitles = append(result.Subtitles, domain.SubtitleTrack{
				Index:    len(result.Subtitles),
				Codec:    s.CodecName,
				Language: s.Tags["language"],
				Title:    s.Tags["title"],
				Default:  s.Disposition["default"] == 1,
				Forced:   s.Disposition["forced"] == 1,
			})
		}
	}
	return result
}

// ffprobe reports numbers as strings.
func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}
