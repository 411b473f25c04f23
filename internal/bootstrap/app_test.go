package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mk4/internal/diagnostics"
	"mk4/internal/domain"
	"mk4/internal/ffmpeg"
	"mk4/internal/jobs"
	"mk4/internal/probe"
	"mk4/internal/resolve"
)

// fakeStore returns deterministic settings for App tests.
type fakeStore struct {
	settings domain.Settings
	saved    []domain.Settings
}

// Load returns preconfigured settings.
func (s *fakeStore) Load() (domain.Settings, error) {
	return s.settings, nil
}

// Save records the settings it was given.
func (s *fakeStore) Save(settings domain.Settings) error {
	s.saved = append(s.saved, settings)
	s.settings = settings
	return nil
}

// fakeProber returns canned track metadata per path.
type fakeProber struct {
	result probe.Result
}

func (p *fakeProber) Probe(context.Context, string) (probe.Result, error) {
	return p.result, nil
}

// fakeTranscoder allows injecting custom conversion behavior per test.
type fakeTranscoder struct {
	run func(ctx context.Context, job domain.ConversionJob, onProgress func(float64)) error
}

func (f *fakeTranscoder) Transcode(ctx context.Context, job domain.ConversionJob, onProgress func(seconds float64)) (ffmpeg.CommandLog, error) {
	var err error
	if f.run != nil {
		err = f.run(ctx, job, onProgress)
	}
	return ffmpeg.CommandLog{Command: "ffmpeg"}, err
}

// newTestApp wires an App with fakes and a real temp MKV file.
func newTestApp(t *testing.T, transcoder *fakeTranscoder) (*App, string) {
	t.Helper()
	dir := t.TempDir()
	source := filepath.Join(dir, "movie.mkv")
	if err := os.WriteFile(source, []byte("mkv-data"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	events := jobs.NewEventBus(100)
	app := &App{
		Store:   &fakeStore{settings: domain.Settings{Encoder: "libx264", CRF: 23}},
		Batches: jobs.NewManager(),
		resolver: resolve.NewWithProber(&fakeProber{result: probe.Result{
			Duration: 100,
			Audio:    []domain.AudioTrack{{Index: 0, Codec: "aac", Language: "eng"}},
		}}),
		runner: jobs.NewRunner(transcoder, events),
		events: events,
		checker: diagnostics.NewCheckerForTests(
			func(name string) (string, error) { return "/usr/local/bin/" + name, nil },
			os.MkdirAll,
			os.CreateTemp,
			os.Remove,
		),
	}
	return app, source
}

// TestSubmitBatchEnforcesSingleActiveBatch checks the single-batch guard.
func TestSubmitBatchEnforcesSingleActiveBatch(t *testing.T) {
	transcoder := &fakeTranscoder{run: func(ctx context.Context, _ domain.ConversionJob, _ func(float64)) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	app, source := newTestApp(t, transcoder)

	req := BatchSubmission{Paths: []string{source}, SubtitleIndex: resolve.AutoTrack, AudioIndex: resolve.AutoTrack}
	info, err := app.SubmitBatch(req)
	if err != nil {
		t.Fatalf("submit first batch: %v", err)
	}
	if info.Total != 1 || info.ID == "" {
		t.Fatalf("info = %+v", info)
	}

	if _, err := app.SubmitBatch(req); !errors.Is(err, jobs.ErrBatchAlreadyRunning) {
		t.Fatalf("second submit error = %v, want %v", err, jobs.ErrBatchAlreadyRunning)
	}

	if err := app.CancelBatch(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	waitForIdle(t, app)
}

// TestSubmitBatchPublishesProgressAndResultEvents checks event flow.
func TestSubmitBatchPublishesProgressAndResultEvents(t *testing.T) {
	transcoder := &fakeTranscoder{run: func(_ context.Context, job domain.ConversionJob, onProgress func(float64)) error {
		onProgress(50)
		return os.WriteFile(job.OutputPath, []byte("mp4"), 0o644)
	}}
	app, source := newTestApp(t, transcoder)

	info, err := app.SubmitBatch(BatchSubmission{
		Paths:         []string{source},
		SubtitleIndex: resolve.AutoTrack,
		AudioIndex:    resolve.AutoTrack,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if info.Total != 1 {
		t.Fatalf("Total = %d", info.Total)
	}

	waitForIdle(t, app)
	events := app.JobEvents(0)
	if len(events) == 0 {
		t.Fatal("expected events")
	}

	assertEventTypeExists(t, events, jobs.EventTypeStatus)
	assertEventTypeExists(t, events, jobs.EventTypeProgress)
	assertEventTypeExists(t, events, jobs.EventTypeResult)

	for _, event := range events {
		if event.Type == jobs.EventTypeResult && event.Result != nil {
			if event.Result.Status != domain.JobStatusSucceeded {
				t.Fatalf("result status = %s: %s", event.Result.Status, event.Result.Message)
			}
		}
	}
}

// TestSubmitBatchRejectsWhenToolsMissing checks the preflight.
func TestSubmitBatchRejectsWhenToolsMissing(t *testing.T) {
	app, source := newTestApp(t, &fakeTranscoder{})
	app.checker = diagnostics.NewCheckerForTests(
		func(string) (string, error) { return "", errors.New("not found") },
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
	)

	_, err := app.SubmitBatch(BatchSubmission{Paths: []string{source}})
	var toolErr *domain.ToolNotFoundError
	if !errors.As(err, &toolErr) {
		t.Fatalf("err = %v, want ToolNotFoundError", err)
	}
}

// TestSubmitBatchRejectsEmptyInput checks that unresolvable paths fail
// fast instead of starting an empty batch.
func TestSubmitBatchRejectsEmptyInput(t *testing.T) {
	app, _ := newTestApp(t, &fakeTranscoder{})

	info, err := app.SubmitBatch(BatchSubmission{Paths: []string{"/does/not/exist.mkv"}})
	if err == nil {
		t.Fatal("expected error for empty batch")
	}
	if len(info.Notices) == 0 {
		t.Fatal("expected notices explaining the rejection")
	}
	if app.Batches.IsRunning() {
		t.Fatal("no batch should be active")
	}
}

// TestSaveSettingsNormalizes checks persistence goes through
// normalization.
func TestSaveSettingsNormalizes(t *testing.T) {
	store := &fakeStore{}
	app := &App{Store: store, Batches: jobs.NewManager(), events: jobs.NewEventBus(10)}

	saved, err := app.SaveSettings(domain.Settings{Encoder: "not-a-real-encoder", CRF: 999})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.Encoder != "libx264" || saved.CRF != 23 {
		t.Fatalf("saved = %+v", saved)
	}
	if len(store.saved) != 1 {
		t.Fatalf("store.saved = %d", len(store.saved))
	}
	if app.Settings.Encoder != "libx264" {
		t.Fatalf("app settings not updated: %+v", app.Settings)
	}
}

// TestListTracksRejectsNonMKV checks the container guard.
func TestListTracksRejectsNonMKV(t *testing.T) {
	app, _ := newTestApp(t, &fakeTranscoder{})

	_, err := app.ListTracks("/tmp/clip.avi")
	var unsupported *domain.UnsupportedFileError
	if !errors.As(err, &unsupported) {
		t.Fatalf("err = %v, want UnsupportedFileError", err)
	}
}

// TestResolveInputs checks the resolve surface used by the UI.
func TestResolveInputs(t *testing.T) {
	app, source := newTestApp(t, &fakeTranscoder{})

	reply := app.ResolveInputs([]string{source}, false)
	if len(reply.Files) != 1 {
		t.Fatalf("files = %d", len(reply.Files))
	}
	if reply.Files[0].Duration != 100 {
		t.Fatalf("duration = %v", reply.Files[0].Duration)
	}
}

// waitForIdle polls until no batch is active or times out.
func waitForIdle(t *testing.T, app *App) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !app.Batches.IsRunning() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("batch still running")
}

// assertEventTypeExists verifies at least one event of given type exists.
func assertEventTypeExists(t *testing.T, events []jobs.Event, want jobs.EventType) {
	t.Helper()
	for _, event := range events {
		if event.Type == want {
			return
		}
	}
	t.Fatalf("event type %s not found", want)
}
