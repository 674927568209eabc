// Command decodebench plays a synthetic source headlessly and reports
// decoder and renderer throughput.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/llehouerou/reel/internal/config"
	"github.com/llehouerou/reel/internal/container"
	"github.com/llehouerou/reel/internal/media"
	"github.com/llehouerou/reel/internal/playback"
	"github.com/llehouerou/reel/internal/render"
)

type benchOptions struct {
	Media     time.Duration
	Run       time.Duration
	FPS       int
	Still     bool
	Parallel  bool
	SeekEvery time.Duration
	Verbose   bool
}

type benchReport struct {
	Stats         playback.Stats
	Position      time.Duration
	Bitrate       int64
	Seeks         int
	RejectedSeeks int
	Ended         bool
	DecodingEnded bool
	Errors        int
}

func newRootCmd() *cobra.Command {
	opts := benchOptions{}
	cmd := &cobra.Command{
		Use:          "decodebench",
		Short:        "Play a synthetic source headlessly and report throughput",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := hclog.NewNullLogger()
			if opts.Verbose {
				logger = hclog.New(&hclog.LoggerOptions{
					Name:   "decodebench",
					Level:  hclog.Debug,
					Output: cmd.ErrOrStderr(),
				})
			}
			report, err := bench(cmd.Context(), opts, logger)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), opts, report)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.DurationVarP(&opts.Media, "media", "m", time.Minute, "synthetic media duration")
	flags.DurationVarP(&opts.Run, "run", "r", 5*time.Second, "wall time to play")
	flags.IntVar(&opts.FPS, "fps", 25, "video frame rate")
	flags.BoolVar(&opts.Still, "still", false, "single cover picture instead of video")
	flags.BoolVarP(&opts.Parallel, "parallel", "p", false, "decode media types in parallel")
	flags.DurationVar(&opts.SeekEvery, "seek-every", 0, "seek forward 10s at this interval (0 disables)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "log engine events to stderr")
	return cmd
}

func bench(ctx context.Context, opts benchOptions, logger hclog.Logger) (benchReport, error) {
	cfg := (&config.Config{}).GetSourceConfig()
	src, err := container.NewSynthetic(container.SyntheticConfig{
		URL:              "synthetic://decodebench",
		Duration:         opts.Media,
		VideoFrameRate:   opts.FPS,
		StillPicture:     opts.Still,
		AudioFrame:       cfg.AudioFrame,
		AudioSampleRate:  cfg.SampleRate,
		SubtitleInterval: cfg.SubtitleInterval,
		SubtitleLength:   cfg.SubtitleInterval / 2,
	})
	if err != nil {
		return benchReport{}, err
	}

	tracker := render.NewTracker()
	svc := playback.New(playback.Options{
		Parallel:  opts.Parallel,
		Renderers: []render.Renderer{tracker},
		Sinks:     []render.FrameSink{tracker},
		Logger:    logger,
	})
	defer svc.Close()

	sub := svc.Subscribe()
	if err := svc.Open(ctx, src); err != nil {
		return benchReport{}, err
	}
	svc.Play()

	var report benchReport
	deadline := time.NewTimer(opts.Run)
	defer deadline.Stop()

	var seekTick <-chan time.Time
	if opts.SeekEvery > 0 {
		ticker := time.NewTicker(opts.SeekEvery)
		defer ticker.Stop()
		seekTick = ticker.C
	}

loop:
	for {
		select {
		case <-ctx.Done():
			return benchReport{}, ctx.Err()
		case <-deadline.C:
			break loop
		case <-seekTick:
			ok, err := svc.SeekBy(ctx, 10*time.Second)
			if err != nil {
				return benchReport{}, err
			}
			if ok {
				report.Seeks++
			} else {
				report.RejectedSeeks++
			}
		case <-sub.MediaEnded:
			report.Ended = true
			break loop
		case e := <-sub.Error:
			report.Errors++
			logger.Warn(e.Message())
		}
	}

	report.Stats = svc.Stats()
	report.Position = svc.Position()
	report.Bitrate = svc.DecodingBitrate()
	report.DecodingEnded = svc.HasDecodingEnded()
	return report, nil
}

func printReport(w io.Writer, opts benchOptions, r benchReport) {
	fmt.Fprintf(w, "strategy:        %s\n", r.Stats.Strategy)
	fmt.Fprintf(w, "played:          %s of %s\n", r.Position.Truncate(time.Millisecond), opts.Media)
	fmt.Fprintf(w, "decode cycles:   %s (%s failed)\n", humanize.Comma(r.Stats.DecodeCycles), humanize.Comma(r.Stats.DecodeFailures))
	fmt.Fprintf(w, "decoded frames:  %s\n", humanize.Comma(r.Stats.DecodedFrames))
	fmt.Fprintf(w, "rendered blocks: %s\n", humanize.Comma(r.Stats.Rendered))
	for _, t := range []media.MediaType{media.Video, media.Audio, media.Subtitle} {
		if capacity, ok := r.Stats.Capacity[t]; ok {
			fmt.Fprintf(w, "  %-8s       %d/%d buffered\n", t, r.Stats.Buffered[t], capacity)
		}
	}
	fmt.Fprintf(w, "bitrate:         %s\n", humanize.SIWithDigits(float64(r.Bitrate), 1, "bps"))
	fmt.Fprintf(w, "seeks:           %d (%d rejected)\n", r.Seeks, r.RejectedSeeks)
	fmt.Fprintf(w, "decoding ended:  %t\n", r.DecodingEnded)
	fmt.Fprintf(w, "media ended:     %t\n", r.Ended)
	if r.Errors > 0 {
		fmt.Fprintf(w, "errors:          %d\n", r.Errors)
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
