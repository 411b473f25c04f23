package domain

// JobStatus tracks the lifecycle of a single conversion job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// NoSubtitle marks a job that burns in no subtitle track.
const NoSubtitle = -1

// ConversionJob binds a media file to the selected tracks, the active
// settings snapshot, and the computed output path. OutputPath is always
// distinct from Input.Path (the container extension changes).
type ConversionJob struct {
	ID            string    `json:"id"`
	Input         MediaFile `json:"input"`
	SubtitleIndex int       `json:"subtitleIndex"`
	AudioIndex    int       `json:"audioIndex"`
	Settings      Settings  `json:"settings"`
	OutputPath    string    `json:"outputPath"`
}

// BurnsSubtitles reports whether the job includes a burn-in filter.
func (j ConversionJob) BurnsSubtitles() bool {
	return j.SubtitleIndex != NoSubtitle
}

// JobResult is the terminal outcome of one conversion job.
type JobResult struct {
	JobID      string    `json:"jobId"`
	InputPath  string    `json:"inputPath"`
	OutputPath string    `json:"outputPath"`
	Status     JobStatus `json:"status"`
	Cancelled  bool      `json:"cancelled"`
	// Message carries the failure description (stderr tail for
	// transcode failures). Empty on success.
	Message string `json:"message,omitempty"`
	// Warning carries non-fatal problems on an otherwise succeeded
	// job, such as a failed source deletion.
	Warning        string  `json:"warning,omitempty"`
	SourceDeleted  bool    `json:"sourceDeleted"`
	ExitCode       int     `json:"exitCode"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
	InputBytes     int64   `json:"inputBytes"`
	OutputBytes    int64   `json:"outputBytes"`

	Err error `json:"-"`
}

// Failed reports whether the job ended in failure (including cancel).
func (r JobResult) Failed() bool {
	return r.Status == JobStatusFailed
}
