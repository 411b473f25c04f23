package domain

import "fmt"

// ConfigParseError reports a malformed settings file. The loader still
// returns usable defaults; callers surface the error and continue.
type ConfigParseError struct {
	Path string
	Err  error
}

func (e *ConfigParseError) Error() string {
	return fmt.Sprintf("parse config %s: %v", e.Path, e.Err)
}

func (e *ConfigParseError) Unwrap() error { return e.Err }

// UnsupportedFileError reports an input path that is not an MKV file.
// It skips that entry only; the batch continues.
type UnsupportedFileError struct {
	Path string
}

func (e *UnsupportedFileError) Error() string {
	return fmt.Sprintf("unsupported file (not .mkv): %s", e.Path)
}

// ProbeError reports a failed track enumeration. The file is still
// converted without burn-in and with default audio.
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// InvalidTrackError reports a user-requested track index that does not
// exist in the probed list. Selection falls back to the default policy.
type InvalidTrackError struct {
	Path  string
	Kind  string // "subtitle" or "audio"
	Index int
	Count int
}

func (e *InvalidTrackError) Error() string {
	return fmt.Sprintf("%s: %s track %d does not exist (file has %d)",
		e.Path, e.Kind, e.Index, e.Count)
}

// ToolNotFoundError reports a missing external binary. No job can
// succeed without it, so the whole batch aborts before starting.
type ToolNotFoundError struct {
	Tool string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("%s not found on PATH", e.Tool)
}

// TranscodeError reports a non-zero ffmpeg exit for one job. The source
// file is preserved regardless of the auto-delete setting.
type TranscodeError struct {
	Path     string
	ExitCode int
	Stderr   string
}

func (e *TranscodeError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("transcode %s: ffmpeg exited with code %d", e.Path, e.ExitCode)
	}
	return fmt.Sprintf("transcode %s: ffmpeg exited with code %d: %s", e.Path, e.ExitCode, e.Stderr)
}

// NoticeKind classifies per-file resolution notices.
type NoticeKind string

const (
	NoticeUnsupportedFile NoticeKind = "unsupported_file"
	NoticeProbeFailed     NoticeKind = "probe_failed"
	NoticeInvalidTrack    NoticeKind = "invalid_track"
)

// Notice is a non-fatal per-file problem raised during input
// resolution. Notices never abort the batch.
type Notice struct {
	Path    string     `json:"path"`
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`

	Err error `json:"-"`
}
