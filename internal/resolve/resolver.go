// Package resolve expands user-supplied paths into probed MKV media
// files and applies the track selection policy.
package resolve

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"mk4/internal/domain"
	"mk4/internal/probe"
)

// AutoTrack requests the default selection policy instead of an
// explicit track index.
const AutoTrack = -1

// Options control input expansion and track selection for one batch.
type Options struct {
	// Recursive descends into subdirectories of directory inputs.
	Recursive bool
	// SubtitleIndex and AudioIndex are explicit user selections,
	// validated against the probed lists. AutoTrack applies the
	// language-preference policy.
	SubtitleIndex int
	AudioIndex    int
	// NoSubtitles disables burn-in entirely.
	NoSubtitles bool
	// PreferredLanguages overrides the configured preference list.
	PreferredLanguages []string
}

// DefaultOptions returns options selecting everything automatically.
func DefaultOptions() Options {
	return Options{SubtitleIndex: AutoTrack, AudioIndex: AutoTrack}
}

// Prober enumerates tracks for one container path.
type Prober interface {
	Probe(ctx context.Context, path string) (probe.Result, error)
}

// Resolver expands input specs into media files.
type Resolver struct {
	prober Prober
}

// New builds a resolver backed by a real ffprobe invocation.
func New() *Resolver {
	return &Resolver{prober: probe.New()}
}

// NewWithProber builds a resolver with an injected prober.
func NewWithProber(p Prober) *Resolver {
	return &Resolver{prober: p}
}

// MakeSpecs classifies raw path arguments as file or directory inputs.
// Paths that cannot be stat'ed are kept as file specs so resolution can
// report them per entry instead of failing the batch.
func MakeSpecs(paths []string) []domain.InputSpec {
	specs := make([]domain.InputSpec, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		specs = append(specs, domain.InputSpec{
			Path: path,
			Dir:  err == nil && info.IsDir(),
		})
	}
	return specs
}

// Resolve expands specs into a deduplicated, ordered list of probed
// media files. Per-entry problems become notices; they never abort the
// batch. Files whose probe fails are kept with empty track lists.
func (r *Resolver) Resolve(ctx context.Context, specs []domain.InputSpec, opts Options) ([]domain.MediaFile, []domain.Notice) {
	var (
		files   []domain.MediaFile
		notices []domain.Notice
		seen    = map[string]bool{}
	)

	include := func(path string) {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if seen[abs] {
			return
		}
		seen[abs] = true

		media := domain.MediaFile{Path: abs}
		if info, err := os.Stat(abs); err == nil {
			media.Size = info.Size()
		}

		result, err := r.prober.Probe(ctx, abs)
		if err != nil {
			notices = append(notices, domain.Notice{
				Path:    abs,
				Kind:    domain.NoticeProbeFailed,
				Message: err.Error(),
				Err:     err,
			})
		} else {
			media.Duration = result.Duration
			media.Subtitles = result.Subtitles
			media.Audio = result.Audio
		}
		files = append(files, media)
	}

	for _, spec := range specs {
		if spec.Dir {
			notices = append(notices, r.resolveDir(spec.Path, opts.Recursive, include)...)
			continue
		}

		if !IsMKV(spec.Path) {
			err := &domain.UnsupportedFileError{Path: spec.Path}
			notices = append(notices, domain.Notice{
				Path:    spec.Path,
				Kind:    domain.NoticeUnsupportedFile,
				Message: err.Error(),
				Err:     err,
			})
			continue
		}
		if info, err := os.Stat(spec.Path); err != nil || info.IsDir() {
			notices = append(notices, domain.Notice{
				Path:    spec.Path,
				Kind:    domain.NoticeUnsupportedFile,
				Message: fmt.Sprintf("cannot read input file: %s", spec.Path),
			})
			continue
		}
		include(spec.Path)
	}

	return files, notices
}

// resolveDir lists a directory's MKV files, descending when recursive.
// Non-MKV regular files produce unsupported notices.
func (r *Resolver) resolveDir(dir string, recursive bool, include func(string)) []domain.Notice {
	var notices []domain.Notice

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !IsMKV(path) {
			err := &domain.UnsupportedFileError{Path: path}
			notices = append(notices, domain.Notice{
				Path:    path,
				Kind:    domain.NoticeUnsupportedFile,
				Message: err.Error(),
				Err:     err,
			})
			return nil
		}
		include(path)
		return nil
	})
	if walkErr != nil {
		notices = append(notices, domain.Notice{
			Path:    dir,
			Kind:    domain.NoticeUnsupportedFile,
			Message: fmt.Sprintf("cannot list directory: %v", walkErr),
			Err:     walkErr,
		})
	}
	return notices
}

// IsMKV reports whether path has the .mkv extension, case-insensitive.
func IsMKV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".mkv")
}
