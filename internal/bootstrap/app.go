// Package bootstrap assembles the application and exposes the methods
// bound to the desktop UI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"mk4/internal/config"
	"mk4/internal/diagnostics"
	"mk4/internal/domain"
	"mk4/internal/ffmpeg"
	"mk4/internal/jobs"
	"mk4/internal/probe"
	"mk4/internal/resolve"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

var mkvDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Matroska video",
		Pattern:     "*.mkv",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// App wires configuration, resolution, conversion, and UI runtime
// callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Batches     *jobs.Manager
	Diagnostics domain.DiagnosticReport

	resolver *resolve.Resolver
	prober   *probe.Prober
	runner   *jobs.Runner
	events   *jobs.EventBus
	checker  *diagnostics.Checker
	assets   fs.FS

	mu         sync.Mutex
	runtimeCtx context.Context
}

// New builds the application with persisted settings and startup
// diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures
// embedded frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	store := config.NewINIStore(config.DefaultPath())
	settings, err := store.Load()
	if err != nil {
		// A corrupt file falls back to defaults; anything else is fatal.
		var parseErr *domain.ConfigParseError
		if !errors.As(err, &parseErr) {
			return nil, fmt.Errorf("load settings: %w", err)
		}
	}

	checker := diagnostics.NewChecker()
	report := checker.Run(settings)

	events := jobs.NewEventBus(1000)
	app := &App{
		Settings:    settings,
		Store:       store,
		Batches:     jobs.NewManager(),
		Diagnostics: report,
		resolver:    resolve.New(),
		prober:      probe.New(),
		runner:      jobs.NewRunner(ffmpeg.NewTranscoder(), events),
		events:      events,
		checker:     checker,
		assets:      assets,
	}
	events.OnPublish = app.emitEvent
	return app, nil
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "MK4",
		Width:       960,
		Height:      680,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown: func(ctx context.Context) {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.runtimeCtx = nil
		},
		Bind: []interface{}{a},
	})
}

// Startup stores the Wails runtime context for push events.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	return a.Diagnostics
}

// RefreshDiagnostics reloads settings and reruns dependency checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.loadSettings()
	if err != nil {
		return domain.DiagnosticReport{}, err
	}

	a.mu.Lock()
	a.Settings = settings
	a.Diagnostics = a.checker.Run(settings)
	report := a.Diagnostics
	a.mu.Unlock()
	return report, nil
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.loadSettings()
	if err != nil {
		return domain.Settings{}, err
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()
	return settings, nil
}

// SaveSettings normalizes and persists settings, then refreshes
// diagnostics.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := config.Normalize(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = normalized
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(normalized)
	}
	a.mu.Unlock()
	return normalized, nil
}

// ListTracks probes one file and returns its subtitle and audio tracks
// so the UI can offer a track picker.
func (a *App) ListTracks(path string) (domain.MediaFile, error) {
	path = strings.TrimSpace(path)
	if !resolve.IsMKV(path) {
		return domain.MediaFile{}, &domain.UnsupportedFileError{Path: path}
	}
	info, err := os.Stat(path)
	if err != nil {
		return domain.MediaFile{}, fmt.Errorf("stat input: %w", err)
	}

	result, err := a.prober.Probe(context.Background(), path)
	if err != nil {
		return domain.MediaFile{}, err
	}

	return domain.MediaFile{
		Path:      path,
		Size:      info.Size(),
		Duration:  result.Duration,
		Subtitles: result.Subtitles,
		Audio:     result.Audio,
	}, nil
}

// ResolveReply pairs resolved files with the notices produced while
// scanning.
type ResolveReply struct {
	Files   []domain.MediaFile `json:"files"`
	Notices []domain.Notice    `json:"notices"`
}

// ResolveInputs expands the given file and directory paths into
// convertible files.
func (a *App) ResolveInputs(paths []string, recursive bool) ResolveReply {
	opts := resolve.DefaultOptions()
	opts.Recursive = recursive

	files, notices := a.resolver.Resolve(context.Background(), resolve.MakeSpecs(paths), opts)
	return ResolveReply{Files: files, Notices: notices}
}

// BatchSubmission is the UI's conversion request. Track indexes use
// resolve.AutoTrack for default selection.
type BatchSubmission struct {
	Paths         []string `json:"paths"`
	Recursive     bool     `json:"recursive"`
	SubtitleIndex int      `json:"subtitleIndex"`
	AudioIndex    int      `json:"audioIndex"`
	NoSubtitles   bool     `json:"noSubtitles"`
	Workers       int      `json:"workers"`
}

// BatchInfo describes an accepted batch.
type BatchInfo struct {
	ID      string          `json:"id"`
	Total   int             `json:"total"`
	Notices []domain.Notice `json:"notices"`
}

// SubmitBatch resolves inputs and starts converting them
// asynchronously. Progress and results arrive as job events.
func (a *App) SubmitBatch(req BatchSubmission) (BatchInfo, error) {
	if err := a.checker.CheckTools(); err != nil {
		return BatchInfo{}, err
	}

	settings, err := a.loadSettings()
	if err != nil {
		return BatchInfo{}, err
	}

	opts := resolve.DefaultOptions()
	opts.Recursive = req.Recursive
	opts.SubtitleIndex = req.SubtitleIndex
	opts.AudioIndex = req.AudioIndex
	opts.NoSubtitles = req.NoSubtitles
	opts.PreferredLanguages = settings.PreferredLanguages

	files, notices := a.resolver.Resolve(context.Background(), resolve.MakeSpecs(req.Paths), opts)
	if len(files) == 0 {
		return BatchInfo{Notices: notices}, fmt.Errorf("no convertible files in input")
	}

	batchID := uuid.NewString()
	ctx, err := a.Batches.Begin(context.Background(), batchID, len(files))
	if err != nil {
		return BatchInfo{}, err
	}

	for _, notice := range notices {
		n := notice
		a.events.Publish(jobs.Event{Type: jobs.EventTypeNotice, Message: n.Message, Notice: &n})
	}

	go func() {
		summary := a.runner.RunBatch(ctx, jobs.BatchRequest{
			Files:    files,
			Settings: settings,
			Options:  opts,
			Workers:  req.Workers,
		})
		a.Batches.Finish(batchID)
		a.events.Publish(jobs.Event{
			Type: jobs.EventTypeStatus,
			Message: fmt.Sprintf("Batch finished: %d succeeded, %d failed of %d",
				summary.Succeeded, summary.Failed, summary.Total),
		})
	}()

	return BatchInfo{ID: batchID, Total: len(files), Notices: notices}, nil
}

// CancelBatch stops the running batch, if any.
func (a *App) CancelBatch() error {
	return a.Batches.Cancel()
}

// CurrentBatch returns the state of the active batch.
func (a *App) CurrentBatch() jobs.BatchState {
	return a.Batches.Current()
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// PickInputFiles opens a native multi-select dialog for MKV sources.
func (a *App) PickInputFiles() ([]string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return nil, err
	}

	paths, err := wailsruntime.OpenMultipleFilesDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select MKV files",
		Filters: mkvDialogFilter,
	})
	if err != nil {
		return nil, err
	}

	out := paths[:0]
	for _, p := range paths {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out, nil
}

// PickInputDirectory opens a native directory picker for batch sources.
func (a *App) PickInputDirectory() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: "Select folder with MKV files",
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(path), nil
}

// PickOutputDirectory opens a native directory picker for converted
// files.
func (a *App) PickOutputDirectory() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: "Select output directory",
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(path), nil
}

// OpenOutputFolder opens the given path (or the configured output
// directory) in the platform file manager.
func (a *App) OpenOutputFolder(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		a.mu.Lock()
		target = a.Settings.OutputDir
		a.mu.Unlock()
	}
	if target == "" {
		return fmt.Errorf("output path is empty")
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	openPath := target
	if !info.IsDir() {
		openPath = filepath.Dir(target)
	}
	return openInFileManager(openPath)
}

// loadSettings reads persisted settings, treating a corrupt file as
// defaults.
func (a *App) loadSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		var parseErr *domain.ConfigParseError
		if !errors.As(err, &parseErr) {
			return domain.Settings{}, fmt.Errorf("load settings: %w", err)
		}
	}
	return settings, nil
}

// emitEvent pushes one published event to the UI.
func (a *App) emitEvent(event jobs.Event) {
	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, "job:event", event)
	}
}

// runtimeContext returns the current Wails runtime context for dialog
// APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// openInFileManager launches the platform file explorer for the path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}
