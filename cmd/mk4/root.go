package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mk4/internal/bootstrap"
	"mk4/internal/config"
	"mk4/internal/diagnostics"
	"mk4/internal/domain"
	"mk4/internal/ffmpeg"
	"mk4/internal/jobs"
	"mk4/internal/resolve"
)

type rootFlags struct {
	gui           bool
	removeSource  bool
	recursive     bool
	noSubtitles   bool
	noProgress    bool
	verbose       bool
	subtitleTrack int
	audioTrack    int
	workers       int
	languages     []string
	outputDir     string
	configPath    string
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "mk4 [paths...]",
		Short: "Convert MKV videos to MP4 with optional subtitle burn-in",
		Long: `mk4 converts Matroska videos to MP4 using ffmpeg, burning the
selected subtitle track into the video and re-encoding audio to AAC.
Directory arguments are scanned for .mkv files.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), flags, args)
		},
	}

	cmd.Flags().BoolVar(&flags.gui, "gui", false, "launch the desktop interface")
	cmd.Flags().BoolVarP(&flags.removeSource, "remove-source", "r", false, "delete each source file after successful conversion")
	cmd.Flags().BoolVar(&flags.recursive, "recursive", false, "descend into subdirectories of directory arguments")
	cmd.Flags().BoolVar(&flags.noSubtitles, "no-subtitles", false, "never burn subtitles")
	cmd.Flags().BoolVar(&flags.noProgress, "no-progress", false, "disable progress bars")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	cmd.Flags().IntVarP(&flags.subtitleTrack, "subtitle-track", "s", resolve.AutoTrack, "subtitle track index to burn (default: by language preference)")
	cmd.Flags().IntVarP(&flags.audioTrack, "audio-track", "a", resolve.AutoTrack, "audio track index to keep (default: by language preference)")
	cmd.Flags().IntVarP(&flags.workers, "jobs", "j", 1, "number of files to convert in parallel")
	cmd.Flags().StringSliceVarP(&flags.languages, "language", "l", nil, "preferred track languages, most preferred first")
	cmd.Flags().StringVarP(&flags.outputDir, "output-dir", "o", "", "write MP4 files to this directory instead of next to sources")
	cmd.Flags().StringVar(&flags.configPath, "config", "", "settings file (default: ~/.mk4/config.ini)")

	return cmd
}

func run(ctx context.Context, flags *rootFlags, args []string) error {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if flags.verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if flags.gui {
		app, err := bootstrap.New()
		if err != nil {
			return fmt.Errorf("start desktop app: %w", err)
		}
		return app.Run()
	}

	if len(args) == 0 {
		return fmt.Errorf("no input paths given (or use --gui)")
	}

	settings, err := loadSettings(log, flags.configPath)
	if err != nil {
		return err
	}
	if flags.removeSource {
		settings.AutoDeleteMKV = true
	}
	if flags.outputDir != "" {
		settings.OutputDir = flags.outputDir
	}

	if err := diagnostics.NewChecker().CheckTools(); err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := resolve.DefaultOptions()
	opts.Recursive = flags.recursive
	opts.SubtitleIndex = flags.subtitleTrack
	opts.AudioIndex = flags.audioTrack
	opts.NoSubtitles = flags.noSubtitles
	opts.PreferredLanguages = flags.languages
	if len(opts.PreferredLanguages) == 0 {
		opts.PreferredLanguages = settings.PreferredLanguages
	}

	log.Debugf("resolving %d input path(s)", len(args))
	files, notices := resolve.New().Resolve(ctx, resolve.MakeSpecs(args), opts)
	for _, notice := range notices {
		log.WithField("path", notice.Path).Warn(notice.Message)
	}
	if len(files) == 0 {
		return fmt.Errorf("no convertible files in input")
	}
	log.Infof("converting %d file(s)", len(files))

	bus := jobs.NewEventBus(4 * len(files))
	view := newProgressView(flags)
	bus.OnPublish = view.handle

	runner := jobs.NewRunner(ffmpeg.NewTranscoder(), bus)
	summary := runner.RunBatch(ctx, jobs.BatchRequest{
		Files:    files,
		Settings: settings,
		Options:  opts,
		Workers:  flags.workers,
	})
	view.close()

	for _, notice := range summary.Notices {
		log.WithField("path", notice.Path).Warn(notice.Message)
	}
	renderSummary(summary)

	if ctx.Err() != nil {
		return fmt.Errorf("interrupted")
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d conversions failed", summary.Failed, summary.Total)
	}
	return nil
}

// loadSettings reads the settings file, downgrading a corrupt file to a
// warning plus defaults.
func loadSettings(log *logrus.Logger, path string) (domain.Settings, error) {
	if path == "" {
		path = config.DefaultPath()
	}
	settings, err := config.NewINIStore(path).Load()
	if err != nil {
		var parseErr *domain.ConfigParseError
		if !errors.As(err, &parseErr) {
			return domain.Settings{}, fmt.Errorf("load settings: %w", err)
		}
		log.WithField("path", path).Warnf("settings file is unreadable, using defaults: %v", err)
	}
	return settings, nil
}

// progressView renders one progress bar per running job on a terminal.
type progressView struct {
	enabled bool
	bars    map[string]*progressbar.ProgressBar
}

func newProgressView(flags *rootFlags) *progressView {
	enabled := !flags.noProgress &&
		flags.workers <= 1 &&
		isatty.IsTerminal(os.Stderr.Fd())
	return &progressView{
		enabled: enabled,
		bars:    make(map[string]*progressbar.ProgressBar),
	}
}

// handle consumes bus events. RunBatch publishes sequentially when the
// view is enabled, so no locking is needed here.
func (v *progressView) handle(event jobs.Event) {
	if !v.enabled {
		return
	}
	switch event.Type {
	case jobs.EventTypeProgress:
		bar, ok := v.bars[event.JobID]
		if !ok {
			bar = progressbar.NewOptions(100,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetDescription("converting"),
				progressbar.OptionClearOnFinish(),
				progressbar.OptionSetPredictTime(false),
			)
			v.bars[event.JobID] = bar
		}
		_ = bar.Set(int(event.Percent))
	case jobs.EventTypeResult:
		if bar, ok := v.bars[event.JobID]; ok {
			_ = bar.Finish()
			delete(v.bars, event.JobID)
		}
	}
}

func (v *progressView) close() {
	for _, bar := range v.bars {
		_ = bar.Finish()
	}
}

// renderSummary prints the per-file outcome table and totals.
func renderSummary(summary jobs.BatchSummary) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"File", "Status", "Output", "Size", "Time"})

	for _, result := range summary.Results {
		status := string(result.Status)
		if result.Cancelled {
			status = "cancelled"
		}
		note := result.OutputPath
		if result.Failed() && !result.Cancelled {
			note = result.Message
		}
		size := ""
		if result.OutputBytes > 0 {
			size = formatBytes(result.OutputBytes)
		}
		tw.AppendRow(table.Row{
			filepath.Base(result.InputPath),
			status,
			note,
			size,
			(time.Duration(result.ElapsedSeconds * float64(time.Second))).Round(time.Second).String(),
		})
	}

	tw.AppendFooter(table.Row{
		fmt.Sprintf("%d file(s)", summary.Total),
		fmt.Sprintf("%d ok, %d failed", summary.Succeeded, summary.Failed),
		"",
		formatBytes(summary.OutputBytes),
		summary.Elapsed.Round(time.Second).String(),
	})
	tw.Render()
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMG"[exp])
}
