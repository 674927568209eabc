// Package engine owns the state of one open media session: the container,
// the block buffers, the clock and the renderers.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/llehouerou/reel/internal/blocks"
	"github.com/llehouerou/reel/internal/clock"
	"github.com/llehouerou/reel/internal/commands"
	"github.com/llehouerou/reel/internal/container"
	"github.com/llehouerou/reel/internal/decoding"
	"github.com/llehouerou/reel/internal/media"
	"github.com/llehouerou/reel/internal/render"
)

// Verify Engine implements the collaborator interfaces at compile time.
var (
	_ commands.Engine = (*Engine)(nil)
	_ decoding.State  = (*Engine)(nil)
	_ render.State    = (*Engine)(nil)
)

// ErrDisposed is returned by operations on a disposed engine.
var ErrDisposed = errors.New("engine disposed")

// DefaultCapacities are the block buffer capacities used when none is
// configured for a media type.
var DefaultCapacities = map[media.MediaType]int{
	media.Video:    12,
	media.Audio:    48,
	media.Subtitle: 16,
}

// Engine is one open media session.
type Engine struct {
	container container.Container
	seekable  media.MediaType
	buffers   map[media.MediaType]*blocks.Buffer
	clock     *clock.RealTime
	renderers []render.Renderer
	sink      render.FrameSink
	logger    hclog.Logger

	onStateChange   func(previous, current media.PlaybackState)
	onSeek          func(position time.Duration)
	onDecodingEnded func(ended bool)

	// mediaMu serializes container access between seeks and decoding.
	mediaMu sync.Mutex

	state         atomic.Int32
	open          atomic.Bool
	disposing     atomic.Bool
	disposed      atomic.Bool
	decodingEnded atomic.Bool
	bitrate       atomic.Int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger hclog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithCapacity sets the block buffer capacity of one media type.
func WithCapacity(t media.MediaType, capacity int) Option {
	return func(e *Engine) {
		if buf, ok := e.buffers[t]; ok && capacity > 0 {
			e.buffers[t] = blocks.New(buf.MediaType(), capacity)
		}
	}
}

// WithRenderers sets the renderers notified of transitions and blocks.
func WithRenderers(renderers ...render.Renderer) Option {
	return func(e *Engine) { e.renderers = renderers }
}

// WithSink sets the consumer of raw decoded frames.
func WithSink(sink render.FrameSink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithClock replaces the playback clock.
func WithClock(c *clock.RealTime) Option {
	return func(e *Engine) { e.clock = c }
}

// WithStateHook registers a hook called on every playback state change.
func WithStateHook(fn func(previous, current media.PlaybackState)) Option {
	return func(e *Engine) { e.onStateChange = fn }
}

// WithSeekHook registers a hook called after every completed seek.
func WithSeekHook(fn func(position time.Duration)) Option {
	return func(e *Engine) { e.onSeek = fn }
}

// WithDecodingEndedHook registers a hook called when the decoding-ended
// flag flips.
func WithDecodingEndedHook(fn func(ended bool)) Option {
	return func(e *Engine) { e.onDecodingEnded = fn }
}

// Open creates an engine over c with one block buffer per media type.
func Open(c container.Container, opts ...Option) *Engine {
	e := &Engine{
		container: c,
		seekable:  c.SeekableMediaType(),
		buffers:   make(map[media.MediaType]*blocks.Buffer),
		clock:     clock.New(),
		logger:    hclog.NewNullLogger(),
	}
	for _, t := range c.MediaTypes() {
		e.buffers[t] = blocks.New(t, DefaultCapacities[t])
	}
	for _, opt := range opts {
		opt(e)
	}

	e.clock.ChangePosition(c.StartTime())
	e.state.Store(int32(media.StateStop))
	e.open.Store(true)
	e.logger.Debug("engine opened", "url", c.URL(), "types", c.MediaTypes(), "seekable", e.seekable)
	return e
}

// Container returns the media container.
func (e *Engine) Container() container.Container { return e.container }

// Buffers returns the block buffers keyed by media type.
func (e *Engine) Buffers() map[media.MediaType]*blocks.Buffer { return e.buffers }

// Clock returns the playback clock.
func (e *Engine) Clock() clock.Clock { return e.clock }

// Renderers returns the registered renderers.
func (e *Engine) Renderers() []render.Renderer { return e.renderers }

// Sink returns the raw frame consumer, or nil.
func (e *Engine) Sink() render.FrameSink { return e.sink }

// SeekableMediaType returns the media type that drives seeking.
func (e *Engine) SeekableMediaType() media.MediaType { return e.seekable }

func (e *Engine) IsOpen() bool { return e.open.Load() }

// IsDisposing returns true once disposal has started, including after it
// completed.
func (e *Engine) IsDisposing() bool { return e.disposing.Load() }

func (e *Engine) IsDisposed() bool { return e.disposed.Load() }

func (e *Engine) CanPause() bool { return e.container.CanPause() }

func (e *Engine) CanSeek() bool { return e.container.CanSeek() }

// State returns the playback state.
func (e *Engine) State() media.PlaybackState {
	return media.PlaybackState(e.state.Load())
}

// SetState changes the playback state and notifies the state hook.
func (e *Engine) SetState(state media.PlaybackState) {
	previous := media.PlaybackState(e.state.Swap(int32(state)))
	if previous == state {
		return
	}
	e.logger.Debug("state changed", "from", previous, "to", state)
	if e.onStateChange != nil {
		e.onStateChange(previous, state)
	}
}

// Position returns the clock position of the seekable media type.
func (e *Engine) Position() time.Duration {
	return e.clock.Position(e.seekable)
}

// Duration returns the media duration.
func (e *Engine) Duration() time.Duration { return e.container.Duration() }

func (e *Engine) HasDecodingEnded() bool { return e.decodingEnded.Load() }

// UpdateDecodingEnded stores the decoding-ended flag. The hook only fires
// when the value changes.
func (e *Engine) UpdateDecodingEnded(ended bool) {
	if e.decodingEnded.Swap(ended) == ended {
		return
	}
	e.logger.Debug("decoding ended changed", "ended", ended)
	if e.onDecodingEnded != nil {
		e.onDecodingEnded(ended)
	}
}

// DecodingBitrate returns the buffered bitrate in bits per second.
func (e *Engine) DecodingBitrate() int64 { return e.bitrate.Load() }

func (e *Engine) UpdateDecodingBitrate(bitrate int64) { e.bitrate.Store(bitrate) }

// SnapPositionToBlockPosition aligns position on the start of the
// seekable block that contains it, or truncates it to the millisecond
// when no block is buffered.
func (e *Engine) SnapPositionToBlockPosition(position time.Duration) time.Duration {
	if buf := e.buffers[e.seekable]; buf != nil {
		if snapped, ok := buf.GetSnapPosition(position); ok {
			return snapped
		}
	}
	return media.NormalizePosition(position)
}

// WithMediaLock runs fn while no seek can touch the container. It is a
// no-op once disposal started.
func (e *Engine) WithMediaLock(fn func() error) error {
	e.mediaMu.Lock()
	defer e.mediaMu.Unlock()
	if e.IsDisposing() {
		return nil
	}
	return fn()
}

// SeekMedia moves the container and the clock to the target of op and
// discards every buffered block.
func (e *Engine) SeekMedia(ctx context.Context, op media.SeekOperation) error {
	if e.IsDisposing() {
		return ErrDisposed
	}
	if !e.CanSeek() {
		return container.ErrNotSeekable
	}

	target := e.resolveTarget(op)

	e.mediaMu.Lock()
	if err := e.container.Seek(ctx, target); err != nil {
		e.mediaMu.Unlock()
		return fmt.Errorf("seek to %s: %w", target, err)
	}
	for _, buf := range e.buffers {
		buf.Clear()
	}
	e.clock.ChangePosition(target)
	e.bitrate.Store(0)
	e.mediaMu.Unlock()

	e.UpdateDecodingEnded(false)
	for _, r := range e.renderers {
		r.OnSeek(target)
	}
	e.logger.Debug("seeked", "operation", op, "position", target)
	if e.onSeek != nil {
		e.onSeek(target)
	}
	return nil
}

func (e *Engine) resolveTarget(op media.SeekOperation) time.Duration {
	start := e.container.StartTime()
	if op.IsStop() {
		return start
	}
	target := max(op.Target, start)
	if d := e.container.Duration(); d > 0 {
		target = min(target, start+d)
	}
	return target
}

// Resume lets the clock run while the engine is paused so a pending
// priority command can make progress. It returns true when the clock was
// started.
func (e *Engine) Resume() bool {
	if e.State() != media.StatePause || e.clock.IsRunning() {
		return false
	}
	e.clock.Play()
	return true
}

// RestorePause halts the clock again after Resume.
func (e *Engine) RestorePause() {
	e.clock.Pause()
	e.clock.ChangePosition(e.SnapPositionToBlockPosition(e.Position()))
}

// Dispose closes the container. It is safe to call more than once.
func (e *Engine) Dispose() error {
	if !e.disposing.CompareAndSwap(false, true) {
		return nil
	}
	e.clock.Pause()

	e.mediaMu.Lock()
	err := e.container.Close()
	for _, buf := range e.buffers {
		buf.Clear()
	}
	e.mediaMu.Unlock()

	e.open.Store(false)
	e.disposed.Store(true)
	e.logger.Debug("engine disposed")
	if err != nil {
		return fmt.Errorf("close container: %w", err)
	}
	return nil
}
