package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"mk4/internal/domain"
)

// stderrTailLines bounds the diagnostic text attached to failures.
const stderrTailLines = 20

// CommandLog captures one external command invocation result.
type CommandLog struct {
	Command  string   `json:"command"`
	Args     []string `json:"args"`
	ExitCode int      `json:"exitCode"`
	Stderr   string   `json:"stderr"`
}

// commandResult is an internal process execution response.
type commandResult struct {
	ExitCode int
	Stderr   string
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, onProgress func(float64), name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec, streaming stdout through
// the progress scanner and capturing stderr.
type execRunner struct{}

func (r *execRunner) Run(ctx context.Context, onProgress func(float64), name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return commandResult{ExitCode: -1}, err
	}
	if err := cmd.Start(); err != nil {
		return commandResult{ExitCode: -1}, err
	}

	scanProgress(stdout, onProgress)

	err = cmd.Wait()
	result := commandResult{Stderr: stderr.String()}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}
	return result, nil
}

// Transcoder runs the transcode operation of the external tool.
type Transcoder struct {
	ffmpegPath string
	runner     commandRunner
}

// NewTranscoder builds a transcoder that invokes ffmpeg from PATH.
func NewTranscoder() *Transcoder {
	return &Transcoder{ffmpegPath: "ffmpeg", runner: &execRunner{}}
}

// Transcode executes the job's invocation, reporting progress through
// onProgress. On cancellation the context error is returned; a
// non-zero exit becomes a *domain.TranscodeError carrying the stderr
// tail.
func (t *Transcoder) Transcode(ctx context.Context, job domain.ConversionJob, onProgress func(seconds float64)) (CommandLog, error) {
	args := BuildArgs(job)

	result, err := t.runner.Run(ctx, onProgress, t.ffmpegPath, args...)
	log := CommandLog{
		Command:  t.ffmpegPath,
		Args:     args,
		ExitCode: result.ExitCode,
		Stderr:   result.Stderr,
	}
	if err == nil {
		return log, nil
	}

	if ctx.Err() != nil {
		return log, ctx.Err()
	}
	return log, &domain.TranscodeError{
		Path:     job.Input.Path,
		ExitCode: result.ExitCode,
		Stderr:   StderrTail(result.Stderr),
	}
}

// StderrTail returns the last lines of captured stderr, which is where
// ffmpeg reports the actual failure.
func StderrTail(stderr string) string {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return ""
	}
	lines := strings.Split(stderr, "\n")
	if len(lines) > stderrTailLines {
		lines = lines[len(lines)-stderrTailLines:]
	}
	return strings.Join(lines, "\n")
}
