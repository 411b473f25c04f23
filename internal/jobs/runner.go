// Package jobs builds conversion jobs and drives them to a terminal
// status, one ffmpeg process per job.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"mk4/internal/domain"
	"mk4/internal/ffmpeg"
	"mk4/internal/resolve"
)

// Transcoder runs one external transcode invocation.
type Transcoder interface {
	Transcode(ctx context.Context, job domain.ConversionJob, onProgress func(seconds float64)) (ffmpeg.CommandLog, error)
}

// OutputPath computes the MP4 output location: same base name with the
// container extension swapped, in the input's directory unless an
// output directory override is configured.
func OutputPath(inputPath, outputDir string) string {
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath)) + ".mp4"
	if outputDir != "" {
		return filepath.Join(outputDir, base)
	}
	return filepath.Join(filepath.Dir(inputPath), base)
}

// NewJob binds one media file to its selected tracks, the settings
// snapshot, and the computed output path. Invalid explicit track
// requests surface as notices while selection falls back to the
// default policy.
func NewJob(file domain.MediaFile, settings domain.Settings, opts resolve.Options) (domain.ConversionJob, []domain.Notice) {
	if len(opts.PreferredLanguages) == 0 {
		opts.PreferredLanguages = settings.PreferredLanguages
	}

	var notices []domain.Notice
	subtitleIdx, subInvalid := resolve.SelectSubtitle(file, opts)
	if subInvalid != nil {
		notices = append(notices, domain.Notice{
			Path:    file.Path,
			Kind:    domain.NoticeInvalidTrack,
			Message: subInvalid.Error(),
			Err:     subInvalid,
		})
	}
	audioIdx, audInvalid := resolve.SelectAudio(file, opts)
	if audInvalid != nil {
		notices = append(notices, domain.Notice{
			Path:    file.Path,
			Kind:    domain.NoticeInvalidTrack,
			Message: audInvalid.Error(),
			Err:     audInvalid,
		})
	}

	return domain.ConversionJob{
		ID:            uuid.NewString(),
		Input:         file,
		SubtitleIndex: subtitleIdx,
		AudioIndex:    audioIdx,
		Settings:      settings,
		OutputPath:    OutputPath(file.Path, settings.OutputDir),
	}, notices
}

// Runner executes conversion jobs sequentially or with a bounded
// worker pool. Settings are read-only for the duration of a batch; the
// only filesystem mutations are the output write, the optional source
// delete, and partial-output cleanup.
type Runner struct {
	transcoder Transcoder
	bus        *EventBus

	// OnProgress receives per-job progress callbacks (percent in
	// [0, 100]). Optional.
	OnProgress func(job domain.ConversionJob, percent float64)

	// Injectable for tests.
	removeFile func(string) error
	stat       func(string) (os.FileInfo, error)
	mkdirAll   func(string, os.FileMode) error
}

// NewRunner builds a runner around a transcoder. The event bus is
// optional.
func NewRunner(transcoder Transcoder, bus *EventBus) *Runner {
	return &Runner{
		transcoder: transcoder,
		bus:        bus,
		removeFile: os.Remove,
		stat:       os.Stat,
		mkdirAll:   os.MkdirAll,
	}
}

// Run drives one job to a terminal status. Per-job errors land in the
// result; they never propagate as Go errors so a batch can continue.
func (r *Runner) Run(ctx context.Context, job domain.ConversionJob) domain.JobResult {
	result := domain.JobResult{
		JobID:      job.ID,
		InputPath:  job.Input.Path,
		OutputPath: job.OutputPath,
		Status:     domain.JobStatusPending,
		InputBytes: job.Input.Size,
	}

	if job.OutputPath == job.Input.Path {
		return r.fail(&result, fmt.Errorf("output path equals input path: %s", job.OutputPath))
	}
	if err := r.mkdirAll(filepath.Dir(job.OutputPath), 0o755); err != nil {
		return r.fail(&result, fmt.Errorf("create output directory: %w", err))
	}

	// One writer per output path, across processes too.
	lock := flock.New(job.OutputPath + ".lock")
	locked, err := lock.TryLock()
	if err == nil && !locked {
		err = fmt.Errorf("output path is busy: %s", job.OutputPath)
	}
	if err != nil {
		return r.fail(&result, err)
	}
	defer func() {
		_ = lock.Unlock()
		_ = r.removeFile(lock.Path())
	}()

	r.transition(&result, domain.JobStatusRunning, "")

	start := time.Now()
	_, err = r.transcoder.Transcode(ctx, job, func(seconds float64) {
		r.publishProgress(job, seconds)
	})
	result.ElapsedSeconds = time.Since(start).Seconds()

	if err != nil {
		// Never leave a partial output behind.
		_ = r.removeFile(job.OutputPath)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			result.Cancelled = true
			return r.fail(&result, err)
		}
		var transcodeErr *domain.TranscodeError
		if errors.As(err, &transcodeErr) {
			result.ExitCode = transcodeErr.ExitCode
		}
		return r.fail(&result, err)
	}

	if info, err := r.stat(job.OutputPath); err == nil {
		result.OutputBytes = info.Size()
	}

	// The deletion targets exactly the resolved source path, and only
	// after success.
	if job.Settings.AutoDeleteMKV {
		if err := r.removeFile(job.Input.Path); err != nil {
			result.Warning = fmt.Sprintf("conversion succeeded but source not deleted: %v", err)
		} else {
			result.SourceDeleted = true
		}
	}

	r.transition(&result, domain.JobStatusSucceeded, "")
	r.publishResult(&result)
	return result
}

// fail finalizes a job as failed, preserving the source file.
func (r *Runner) fail(result *domain.JobResult, err error) domain.JobResult {
	result.Err = err
	message := err.Error()
	if result.Cancelled {
		message = "cancelled: " + message
	}
	r.transition(result, domain.JobStatusFailed, message)
	r.publishResult(result)
	return *result
}

// transition applies a validated status change.
func (r *Runner) transition(result *domain.JobResult, to domain.JobStatus, message string) {
	if !validTransition(result.Status, to) {
		return
	}
	result.Status = to
	result.Message = message
	if r.bus != nil {
		r.bus.Publish(Event{
			JobID:   result.JobID,
			Type:    EventTypeStatus,
			Status:  to,
			Message: message,
		})
	}
}

// validTransition enforces the job state machine edges.
func validTransition(from, to domain.JobStatus) bool {
	switch from {
	case domain.JobStatusPending:
		return to == domain.JobStatusRunning || to == domain.JobStatusFailed
	case domain.JobStatusRunning:
		return to == domain.JobStatusSucceeded || to == domain.JobStatusFailed
	default:
		return false
	}
}

func (r *Runner) publishProgress(job domain.ConversionJob, seconds float64) {
	if job.Input.Duration <= 0 {
		return
	}
	percent := seconds / job.Input.Duration * 100
	if percent > 100 {
		percent = 100
	}
	if r.OnProgress != nil {
		r.OnProgress(job, percent)
	}
	if r.bus != nil {
		r.bus.Publish(Event{
			JobID:   job.ID,
			Type:    EventTypeProgress,
			Status:  domain.JobStatusRunning,
			Percent: percent,
		})
	}
}

func (r *Runner) publishResult(result *domain.JobResult) {
	if r.bus == nil {
		return
	}
	snapshot := *result
	r.bus.Publish(Event{
		JobID:   result.JobID,
		Type:    EventTypeResult,
		Status:  result.Status,
		Message: result.Message,
		Result:  &snapshot,
	})
}

// BatchRequest describes one submission of resolved media files.
type BatchRequest struct {
	Files    []domain.MediaFile
	Settings domain.Settings
	Options  resolve.Options
	// Workers caps concurrent jobs; values below 1 mean sequential.
	Workers int
}

// BatchSummary aggregates a completed batch.
type BatchSummary struct {
	Total       int
	Succeeded   int
	Failed      int
	Results     []domain.JobResult
	Notices     []domain.Notice
	InputBytes  int64
	OutputBytes int64
	Elapsed     time.Duration
}

// RunBatch converts every file, isolating per-file failures. Results
// keep input order regardless of worker count.
func (r *Runner) RunBatch(ctx context.Context, req BatchRequest) BatchSummary {
	start := time.Now()
	summary := BatchSummary{Total: len(req.Files)}

	jobs := make([]domain.ConversionJob, 0, len(req.Files))
	for _, file := range req.Files {
		job, notices := NewJob(file, req.Settings, req.Options)
		jobs = append(jobs, job)
		summary.Notices = append(summary.Notices, notices...)
		for _, notice := range notices {
			if r.bus != nil {
				n := notice
				r.bus.Publish(Event{JobID: job.ID, Type: EventTypeNotice, Message: notice.Message, Notice: &n})
			}
		}
	}

	summary.Results = make([]domain.JobResult, len(jobs))

	workers := req.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	if workers <= 1 {
		for i, job := range jobs {
			if ctx.Err() != nil {
				summary.Results = summary.Results[:i]
				break
			}
			summary.Results[i] = r.Run(ctx, job)
		}
	} else {
		var wg sync.WaitGroup
		indexes := make(chan int)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range indexes {
					summary.Results[i] = r.Run(ctx, jobs[i])
				}
			}()
		}
		for i := range jobs {
			if ctx.Err() != nil {
				break
			}
			indexes <- i
		}
		close(indexes)
		wg.Wait()

		// Drop slots that were never dispatched after a cancel.
		kept := summary.Results[:0]
		for _, result := range summary.Results {
			if result.JobID != "" {
				kept = append(kept, result)
			}
		}
		summary.Results = kept
	}

	for _, result := range summary.Results {
		switch result.Status {
		case domain.JobStatusSucceeded:
			summary.Succeeded++
			summary.InputBytes += result.InputBytes
			summary.OutputBytes += result.OutputBytes
		case domain.JobStatusFailed:
			summary.Failed++
		}
	}
	summary.Elapsed = time.Since(start)
	return summary
}
