package container

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/llehouerou/reel/internal/media"
)

const (
	defaultReadAhead  = 8
	defaultSampleRate = 44100
	videoBitrate      = 2_000_000
	audioBitrate      = 128_000
	toneFrequency     = 440.0
)

// SyntheticConfig describes a generated source. Zero frame rates or
// intervals disable the corresponding media type.
type SyntheticConfig struct {
	URL              string
	Duration         time.Duration
	VideoFrameRate   int
	StillPicture     bool // video is a single cover image
	AudioFrame       time.Duration
	AudioSampleRate  int
	SubtitleInterval time.Duration
	SubtitleLength   time.Duration
	ReadAhead        int
	NotPausable      bool
	NotSeekable      bool
}

// Synthetic generates deterministic frames for every configured media
// type. Audio frames carry stereo sine PCM as [][2]float64.
type Synthetic struct {
	mu      sync.Mutex
	cfg     SyntheticConfig
	types   []media.MediaType
	next    map[media.MediaType]int64
	closed  bool
	phase   float64
	counter int64
}

// Verify Synthetic implements Container at compile time.
var _ Container = (*Synthetic)(nil)

// NewSynthetic creates a synthetic source.
func NewSynthetic(cfg SyntheticConfig) (*Synthetic, error) {
	if cfg.Duration <= 0 {
		return nil, fmt.Errorf("synthetic source: invalid duration %s", cfg.Duration)
	}
	if cfg.URL == "" {
		cfg.URL = "synthetic://default"
	}
	if cfg.ReadAhead <= 0 {
		cfg.ReadAhead = defaultReadAhead
	}
	if cfg.AudioSampleRate <= 0 {
		cfg.AudioSampleRate = defaultSampleRate
	}
	if cfg.SubtitleInterval > 0 && cfg.SubtitleLength <= 0 {
		cfg.SubtitleLength = cfg.SubtitleInterval / 2
	}

	var types []media.MediaType
	if cfg.VideoFrameRate > 0 || cfg.StillPicture {
		types = append(types, media.Video)
	}
	if cfg.AudioFrame > 0 {
		types = append(types, media.Audio)
	}
	if cfg.SubtitleInterval > 0 {
		types = append(types, media.Subtitle)
	}
	if len(types) == 0 {
		return nil, fmt.Errorf("synthetic source: no media type enabled")
	}

	return &Synthetic{
		cfg:   cfg,
		types: types,
		next:  make(map[media.MediaType]int64, len(types)),
	}, nil
}

func (s *Synthetic) URL() string { return s.cfg.URL }

func (s *Synthetic) MediaTypes() []media.MediaType {
	return append([]media.MediaType(nil), s.types...)
}

func (s *Synthetic) SeekableMediaType() media.MediaType { return SeekableOf(s.types) }

func (s *Synthetic) CanPause() bool { return !s.cfg.NotPausable }

func (s *Synthetic) CanSeek() bool { return !s.cfg.NotSeekable }

func (s *Synthetic) StartTime() time.Duration { return 0 }

func (s *Synthetic) Duration() time.Duration { return s.cfg.Duration }

// frameDuration returns the spacing of frames of the given type.
func (s *Synthetic) frameDuration(t media.MediaType) time.Duration {
	switch t {
	case media.Video:
		if s.cfg.StillPicture {
			return s.cfg.Duration
		}
		return time.Second / time.Duration(s.cfg.VideoFrameRate)
	case media.Audio:
		return s.cfg.AudioFrame
	case media.Subtitle:
		return s.cfg.SubtitleInterval
	default:
		return 0
	}
}

func (s *Synthetic) frameCount(t media.MediaType) int64 {
	if !lo.Contains(s.types, t) {
		return 0
	}
	d := s.frameDuration(t)
	if d <= 0 {
		return 0
	}
	return int64((s.cfg.Duration + d - 1) / d)
}

func (s *Synthetic) remainingLocked(t media.MediaType) int64 {
	return max(s.frameCount(t)-s.next[t], 0)
}

// ReceiveNextFrame produces the next frame of type t.
func (s *Synthetic) ReceiveNextFrame(t media.MediaType) (mo.Option[media.Frame], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return mo.None[media.Frame](), fmt.Errorf("receive %s frame: source closed", t)
	}
	if s.remainingLocked(t) == 0 {
		return mo.None[media.Frame](), nil
	}

	i := s.next[t]
	s.next[t]++
	s.counter++

	step := s.frameDuration(t)
	start := time.Duration(i) * step
	f := media.Frame{
		Type:      t,
		StartTime: start,
		Duration:  min(step, s.cfg.Duration-start),
	}

	switch t {
	case media.Video:
		f.Still = s.cfg.StillPicture
		f.Size = int(videoBitrate / 8 * step.Seconds())
		f.Data = s.counter
	case media.Audio:
		f.Size = int(audioBitrate / 8 * step.Seconds())
		f.Data = s.tone(f.Duration)
	case media.Subtitle:
		f.Duration = s.cfg.SubtitleLength
		f.Size = 64
		f.Data = fmt.Sprintf("cue %d", i+1)
	}

	return mo.Some(f), nil
}

// tone renders a stereo sine wave lasting d.
func (s *Synthetic) tone(d time.Duration) [][2]float64 {
	n := int(math.Round(d.Seconds() * float64(s.cfg.AudioSampleRate)))
	samples := make([][2]float64, n)
	step := 2 * math.Pi * toneFrequency / float64(s.cfg.AudioSampleRate)
	for i := range samples {
		v := 0.2 * math.Sin(s.phase)
		samples[i] = [2]float64{v, v}
		s.phase += step
	}
	s.phase = math.Mod(s.phase, 2*math.Pi)
	return samples
}

// BufferLength returns the packets already read but not decoded.
func (s *Synthetic) BufferLength(t media.MediaType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(min(s.remainingLocked(t), int64(s.cfg.ReadAhead)))
}

// HasPacketsInCodec is always false: the generator decodes immediately.
func (s *Synthetic) HasPacketsInCodec(media.MediaType) bool { return false }

// IsAtEndOfStream reports that every remaining packet has been read.
func (s *Synthetic) IsAtEndOfStream() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.types {
		if s.remainingLocked(t) > int64(s.cfg.ReadAhead) {
			return false
		}
	}
	return true
}

// Seek moves every stream to the frame containing target.
func (s *Synthetic) Seek(ctx context.Context, target time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.cfg.NotSeekable {
		return ErrNotSeekable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target = min(max(target, 0), s.cfg.Duration)
	for _, t := range s.types {
		step := s.frameDuration(t)
		s.next[t] = min(int64(target/step), s.frameCount(t))
	}
	return nil
}

// Close releases the source. Further receives fail.
func (s *Synthetic) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
