package render

import (
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/llehouerou/reel/internal/media"
)

// Verify AudioRenderer implements Renderer and FrameSink at compile time.
var (
	_ Renderer  = (*AudioRenderer)(nil)
	_ FrameSink = (*AudioRenderer)(nil)
)

const (
	maxPendingFrames = 256
	maxQueuedAudio   = 2 * time.Second
)

type pendingFrame struct {
	start   time.Duration
	samples [][2]float64
}

// AudioRenderer turns rendered audio blocks into a beep stream. Decoded
// PCM arrives through the sink side and is queued when its block is
// rendered; the stream plays silence whenever the queue runs dry.
type AudioRenderer struct {
	format beep.Format
	ctrl   *beep.Ctrl

	mu       sync.Mutex
	pending  []pendingFrame
	queue    [][2]float64
	maxQueue int
	dropped  int
}

// NewAudioRenderer creates a stereo renderer at the given sample rate.
// It starts paused.
func NewAudioRenderer(sampleRate beep.SampleRate) *AudioRenderer {
	a := &AudioRenderer{
		format: beep.Format{
			SampleRate:  sampleRate,
			NumChannels: 2,
			Precision:   2,
		},
		maxQueue: sampleRate.N(maxQueuedAudio),
	}
	a.ctrl = &beep.Ctrl{Streamer: beep.StreamerFunc(a.stream), Paused: true}
	return a
}

// Format returns the output format of the stream.
func (a *AudioRenderer) Format() beep.Format { return a.format }

// Streamer returns the stream to hand to the speaker.
func (a *AudioRenderer) Streamer() beep.Streamer { return a.ctrl }

// Queued returns the number of samples waiting to be played.
func (a *AudioRenderer) Queued() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.queue)
}

// Dropped returns the number of decoded frames discarded before render.
func (a *AudioRenderer) Dropped() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dropped
}

func (a *AudioRenderer) OnFrameDecoded(t media.MediaType, f media.Frame) {
	if t != media.Audio {
		return
	}
	samples, ok := f.Data.([][2]float64)
	if !ok {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.pending) >= maxPendingFrames {
		a.pending = a.pending[1:]
		a.dropped++
	}
	a.pending = append(a.pending, pendingFrame{start: f.StartTime, samples: samples})
}

func (a *AudioRenderer) OnSubtitleDecoded(media.Frame) {}

func (a *AudioRenderer) Render(block media.Block, _ time.Duration) {
	if block.Type != media.Audio {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for i, p := range a.pending {
		if p.start != block.StartTime {
			continue
		}
		a.queue = append(a.queue, p.samples...)
		a.pending = append(a.pending[:i], a.pending[i+1:]...)
		break
	}
	if over := len(a.queue) - a.maxQueue; over > 0 {
		a.queue = a.queue[over:]
	}
}

func (a *AudioRenderer) OnPlay() { a.setPaused(false) }

func (a *AudioRenderer) OnPause() { a.setPaused(true) }

func (a *AudioRenderer) OnStop() {
	a.setPaused(true)
	a.flush()
}

func (a *AudioRenderer) OnSeek(time.Duration) { a.flush() }

func (a *AudioRenderer) setPaused(paused bool) {
	speaker.Lock()
	a.ctrl.Paused = paused
	speaker.Unlock()
}

func (a *AudioRenderer) flush() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = nil
	a.queue = nil
}

func (a *AudioRenderer) stream(samples [][2]float64) (int, bool) {
	a.mu.Lock()
	n := copy(samples, a.queue)
	a.queue = a.queue[n:]
	a.mu.Unlock()

	clear(samples[n:])
	return len(samples), true
}
