package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/hashicorp/go-hclog"

	"github.com/llehouerou/reel/internal/app"
	"github.com/llehouerou/reel/internal/config"
	"github.com/llehouerou/reel/internal/container"
	"github.com/llehouerou/reel/internal/errmsg"
	"github.com/llehouerou/reel/internal/icons"
	"github.com/llehouerou/reel/internal/mpris"
	"github.com/llehouerou/reel/internal/notify"
	"github.com/llehouerou/reel/internal/playback"
	"github.com/llehouerou/reel/internal/render"
	"github.com/llehouerou/reel/internal/state"
	"github.com/llehouerou/reel/internal/stderr"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, errmsg.Format(errmsg.OpInitialize, err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	icons.Init(cfg.Icons)

	logger, closeLog, err := newLogger(cfg.GetLogConfig())
	if err != nil {
		return err
	}
	defer closeLog()

	src, err := newSource(cfg.GetSourceConfig())
	if err != nil {
		return err
	}

	var store state.Interface
	if cfg.IsStateEnabled() {
		mgr, err := openState(cfg.State.Path, logger.Named("state"))
		if err != nil {
			logger.Warn("resume positions disabled", "error", err)
		} else {
			store = mgr
			defer mgr.Close()
		}
	}

	// Native audio backends write to fd 2 and would corrupt the TUI
	capture, err := stderr.Start()
	if err != nil {
		logger.Warn("stderr capture unavailable", "error", err)
	}
	var stderrLines <-chan string
	if capture != nil {
		defer capture.Stop()
		stderrLines = capture.Lines()
	}

	tracker := render.NewTracker()
	renderers := []render.Renderer{tracker}
	sinks := []render.FrameSink{tracker}

	if cfg.Audio.Enabled {
		audio := render.NewAudioRenderer(beep.SampleRate(cfg.GetSourceConfig().SampleRate))
		if err := startSpeaker(audio); err != nil {
			logger.Warn(errmsg.Format(errmsg.OpAudioOutput, err))
		} else {
			defer speaker.Close()
			renderers = append(renderers, audio)
			sinks = append(sinks, audio)
		}
	}

	svc := playback.New(playback.Options{
		Capacities:     cfg.GetBuffersConfig().Capacities(),
		Parallel:       cfg.GetDecodingConfig().Parallel,
		DecodeInterval: cfg.GetDecodingConfig().Interval,
		RenderInterval: cfg.GetRenderingConfig().Interval,
		Renderers:      renderers,
		Sinks:          sinks,
		Logger:         logger.Named("playback"),
	})
	defer svc.Close()

	if err := svc.Open(context.Background(), src); err != nil {
		return fmt.Errorf("%s: %w", errmsg.OpMediaOpen, err)
	}

	if cfg.IsMPRISEnabled() {
		adapter, err := mpris.New(svc, logger.Named("mpris"))
		if err != nil {
			logger.Warn("mpris unavailable", "error", err)
		} else {
			defer adapter.Close()
		}
	}

	notifier := notify.Disabled()
	if cfg.Desktop.Notifications {
		if notifier, err = notify.New(); err != nil {
			return err
		}
	}

	model := app.New(app.Deps{
		Service:  svc,
		State:    store,
		Tracker:  tracker,
		Notifier: notifier,
		Stderr:   stderrLines,
		Logger:   logger.Named("app"),
	})

	_, err = tea.NewProgram(model).Run()
	return err
}

func newLogger(cfg config.LogConfig) (hclog.Logger, func(), error) {
	// The TUI owns the terminal, so logs only go to a file
	var out io.Writer = io.Discard
	closeFn := func() {}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		out = f
		closeFn = func() { f.Close() }
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "reel",
		Level:  hclog.LevelFromString(cfg.Level),
		Output: out,
	})
	return logger, closeFn, nil
}

func newSource(cfg config.SourceConfig) (*container.Synthetic, error) {
	return container.NewSynthetic(container.SyntheticConfig{
		URL:              cfg.URL,
		Duration:         cfg.Duration,
		VideoFrameRate:   cfg.FPS,
		StillPicture:     cfg.StillPicture,
		AudioFrame:       cfg.AudioFrame,
		AudioSampleRate:  cfg.SampleRate,
		SubtitleInterval: cfg.SubtitleInterval,
		SubtitleLength:   cfg.SubtitleInterval / 2,
		NotPausable:      !*cfg.Pausable,
		NotSeekable:      !*cfg.Seekable,
	})
}

func openState(path string, logger hclog.Logger) (*state.Manager, error) {
	if path != "" {
		return state.OpenPath(path, logger)
	}
	return state.Open(logger)
}

func startSpeaker(audio *render.AudioRenderer) error {
	format := audio.Format()
	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		return err
	}
	speaker.Play(audio.Streamer())
	return nil
}
