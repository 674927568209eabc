package render

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"

	"github.com/llehouerou/reel/internal/blocks"
	"github.com/llehouerou/reel/internal/clock"
	"github.com/llehouerou/reel/internal/media"
)

// State exposes the engine state the render path depends on.
type State interface {
	State() media.PlaybackState
	HasDecodingEnded() bool
}

// Deps groups the collaborators of a Worker.
type Deps struct {
	Buffers      map[media.MediaType]*blocks.Buffer
	Clock        clock.Clock
	State        State
	Renderers    []Renderer
	SeekableType media.MediaType
}

// Worker renders the block under the clock for every media type.
type Worker struct {
	buffers   map[media.MediaType]*blocks.Buffer
	clock     clock.Clock
	state     State
	renderers []Renderer
	seekable  media.MediaType
	logger    hclog.Logger
	onEnded   func()
	endAction func() bool

	mu       sync.Mutex
	last     map[media.MediaType]int64
	reported bool
	settled  bool

	rendered atomic.Int64
}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets the worker logger.
func WithLogger(logger hclog.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

// WithMediaEnded registers the hook called once when playback reaches
// the end of fully decoded media.
func WithMediaEnded(fn func()) Option {
	return func(w *Worker) { w.onEnded = fn }
}

// WithEndAction registers an action run after media end on every cycle
// until it returns true, for actions that can be rejected transiently.
func WithEndAction(fn func() bool) Option {
	return func(w *Worker) { w.endAction = fn }
}

// NewWorker creates a render worker.
func NewWorker(deps Deps, opts ...Option) *Worker {
	w := &Worker{
		buffers:   deps.Buffers,
		clock:     deps.Clock,
		state:     deps.State,
		renderers: deps.Renderers,
		seekable:  deps.SeekableType,
		logger:    hclog.NewNullLogger(),
		last:      make(map[media.MediaType]int64),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Rendered returns the total number of blocks handed to renderers.
func (w *Worker) Rendered() int64 { return w.rendered.Load() }

// Reset forgets the rendered blocks and re-arms the media-ended hook.
// Call it after the clock jumped.
func (w *Worker) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	clear(w.last)
	w.reported = false
	w.settled = false
}

// ExecuteCycle renders new blocks while playing.
func (w *Worker) ExecuteCycle(ctx context.Context) error {
	if ctx.Err() != nil || w.state.State() != media.StatePlay {
		return nil
	}

	for _, t := range media.Types {
		buf := w.buffers[t]
		if buf == nil {
			continue
		}
		position := w.clock.Position(t)
		block, ok := buf.BlockAt(position)
		if !ok || !w.advance(t, block) {
			continue
		}
		for _, r := range w.renderers {
			r.Render(block, position)
		}
		w.rendered.Add(1)
	}

	w.checkMediaEnded()
	return nil
}

func (w *Worker) advance(t media.MediaType, block media.Block) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if prev, ok := w.last[t]; ok && prev == block.Index {
		return false
	}
	w.last[t] = block.Index
	return true
}

func (w *Worker) checkMediaEnded() {
	if !w.state.HasDecodingEnded() {
		return
	}
	buf := w.buffers[w.seekable]
	if buf == nil {
		return
	}
	end := buf.RangeEndTime()
	position := w.clock.Position(w.seekable)
	if position < end {
		return
	}

	w.mu.Lock()
	first := !w.reported
	w.reported = true
	settled := w.settled
	w.mu.Unlock()

	if first {
		w.logger.Debug("media ended", "position", position, "end", end)
		if w.onEnded != nil {
			w.onEnded()
		}
	}
	if settled || w.endAction == nil {
		return
	}
	if !w.endAction() {
		w.logger.Debug("end action rejected, retrying next cycle")
		return
	}
	w.mu.Lock()
	w.settled = true
	w.mu.Unlock()
}
