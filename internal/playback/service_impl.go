// internal/playback/service_impl.go
package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/llehouerou/reel/internal/commands"
	"github.com/llehouerou/reel/internal/container"
	"github.com/llehouerou/reel/internal/decoding"
	"github.com/llehouerou/reel/internal/engine"
	"github.com/llehouerou/reel/internal/errmsg"
	"github.com/llehouerou/reel/internal/media"
	"github.com/llehouerou/reel/internal/render"
	"github.com/llehouerou/reel/internal/worker"
)

// ErrClosed is returned by Open once the service has been closed.
var ErrClosed = errors.New("playback service closed")

const (
	defaultDecodeInterval = 10 * time.Millisecond
	defaultRenderInterval = 5 * time.Millisecond
)

// Options configures the service.
type Options struct {
	Capacities     map[media.MediaType]int
	Parallel       bool
	DecodeInterval time.Duration
	RenderInterval time.Duration
	Renderers      []render.Renderer
	Sinks          []render.FrameSink
	Logger         hclog.Logger
}

// Verify serviceImpl implements Service at compile time.
var _ Service = (*serviceImpl)(nil)

type serviceImpl struct {
	mu sync.RWMutex

	opts    Options
	logger  hclog.Logger
	session *session

	subs   []*Subscription
	subsMu sync.RWMutex

	closed bool
}

// session wires the components of one open media.
type session struct {
	url      string
	engine   *engine.Engine
	commands *commands.Manager
	decoder  *decoding.Worker
	renderer *render.Worker
	decode   *worker.Worker
	render   *worker.Worker
}

// New creates a new playback service.
func New(opts Options) Service {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if opts.DecodeInterval <= 0 {
		opts.DecodeInterval = defaultDecodeInterval
	}
	if opts.RenderInterval <= 0 {
		opts.RenderInterval = defaultRenderInterval
	}
	return &serviceImpl{
		opts:   opts,
		logger: logger,
	}
}

// Open starts the workers for c, replacing any open media. Playback
// starts in the Stop state.
func (s *serviceImpl) Open(ctx context.Context, c container.Container) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.session != nil {
		if err := s.closeSession(s.session); err != nil {
			s.emitError(errmsg.OpMediaClose, s.session.url, err)
		}
		s.session = nil
	}

	sess := s.newSession(c)
	if err := sess.decode.Start(); err != nil {
		return err
	}
	if err := sess.render.Start(); err != nil {
		sess.decode.Stop()
		return err
	}
	s.session = sess
	s.logger.Info("media opened", "url", c.URL(), "duration", c.Duration(), "strategy", sess.decoder.Strategy())
	return nil
}

func (s *serviceImpl) newSession(c container.Container) *session {
	sess := &session{url: c.URL()}

	engineOpts := []engine.Option{
		engine.WithLogger(s.logger.Named("engine")),
		engine.WithRenderers(s.opts.Renderers...),
		engine.WithSink(render.Fanout(s.opts.Sinks)),
		engine.WithStateHook(func(previous, current media.PlaybackState) {
			s.broadcast(func(sub *Subscription) {
				sub.sendState(StateChange{Previous: previous, Current: current})
			})
		}),
		engine.WithSeekHook(func(position time.Duration) {
			sess.renderer.Reset()
			s.broadcast(func(sub *Subscription) { sub.sendPosition(position) })
		}),
		engine.WithDecodingEndedHook(func(ended bool) {
			s.broadcast(func(sub *Subscription) {
				sub.sendDecodingEnded(DecodingEndedChange{Ended: ended})
			})
		}),
	}
	for t, capacity := range s.opts.Capacities {
		engineOpts = append(engineOpts, engine.WithCapacity(t, capacity))
	}
	sess.engine = engine.Open(c, engineOpts...)

	sess.decoder = decoding.New(decoding.Deps{
		Container: c,
		Buffers:   sess.engine.Buffers(),
		Clock:     sess.engine.Clock(),
		Sink:      sess.engine.Sink(),
		State:     sess.engine,
	},
		decoding.WithParallel(s.opts.Parallel),
		decoding.WithLogger(s.logger.Named("decoder")),
	)

	sess.renderer = render.NewWorker(render.Deps{
		Buffers:      sess.engine.Buffers(),
		Clock:        sess.engine.Clock(),
		State:        sess.engine,
		Renderers:    s.opts.Renderers,
		SeekableType: sess.engine.SeekableMediaType(),
	},
		render.WithLogger(s.logger.Named("renderer")),
		render.WithMediaEnded(func() { s.onMediaEnded(sess) }),
		render.WithEndAction(func() bool { return s.pauseAtEnd(sess) }),
	)

	sess.decode = worker.New("decode", s.opts.DecodeInterval, sess.decodeCycle,
		worker.WithLogger(s.logger.Named("worker")),
		worker.WithErrorHandler(func(err error) { s.emitError(errmsg.OpDecode, sess.url, err) }),
	)
	sess.render = worker.New("render", s.opts.RenderInterval, sess.renderer.ExecuteCycle,
		worker.WithLogger(s.logger.Named("worker")),
		worker.WithErrorHandler(func(err error) { s.emitError(errmsg.OpRender, sess.url, err) }),
	)

	sess.commands = commands.New(sess.engine,
		commands.WithLogger(s.logger.Named("commands")),
		commands.WithReadyHook(sess.decode.Wake),
		commands.WithErrorHandler(func(err error) { s.emitError(errmsg.OpPlaybackSeek, sess.url, err) }),
	)
	return sess
}

// decodeCycle executes the pending priority command, then decodes.
func (sess *session) decodeCycle(ctx context.Context) error {
	sess.commands.ExecutePendingCommand(ctx)
	return sess.engine.WithMediaLock(func() error {
		return sess.decoder.ExecuteCycle(ctx)
	})
}

func (s *serviceImpl) onMediaEnded(sess *session) {
	position := sess.engine.Position()
	s.logger.Info("media ended", "url", sess.url, "position", position)
	s.broadcast(func(sub *Subscription) {
		sub.sendMediaEnded(MediaEnded{URL: sess.url, Position: position})
	})
}

// pauseAtEnd pauses at the end of media. It reports false while the pause
// is rejected by a command in flight so the render worker retries it.
func (s *serviceImpl) pauseAtEnd(sess *session) bool {
	if !sess.engine.CanPause() {
		return true
	}
	return sess.commands.Pause()
}

// closeSession stops the workers, disposes the engine and releases any
// priority command waiter.
func (s *serviceImpl) closeSession(sess *session) error {
	sess.decode.Stop()
	sess.render.Stop()
	err := sess.engine.Dispose()
	sess.commands.ClearPriorityCommands()
	s.logger.Debug("media closed", "url", sess.url)
	return err
}

func (s *serviceImpl) current() *session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// IsOpen returns true while media is open.
func (s *serviceImpl) IsOpen() bool {
	sess := s.current()
	return sess != nil && sess.engine.IsOpen()
}

// Play starts playback.
func (s *serviceImpl) Play() bool {
	sess := s.current()
	if sess == nil {
		return false
	}
	return sess.commands.Play()
}

// Pause pauses playback.
func (s *serviceImpl) Pause() bool {
	sess := s.current()
	if sess == nil {
		return false
	}
	return sess.commands.Pause()
}

// Stop stops playback and rewinds to the start.
func (s *serviceImpl) Stop(ctx context.Context) bool {
	sess := s.current()
	if sess == nil {
		return false
	}
	return sess.commands.Stop(ctx)
}

// Toggle pauses while playing and plays otherwise.
func (s *serviceImpl) Toggle() bool {
	if s.State() == media.StatePlay {
		return s.Pause()
	}
	return s.Play()
}

// Seek queues a seek. The channel receives false when it is rejected.
func (s *serviceImpl) Seek(op media.SeekOperation) <-chan bool {
	sess := s.current()
	if sess == nil {
		rejected := make(chan bool, 1)
		rejected <- false
		return rejected
	}
	return sess.commands.Seek(op)
}

// SeekTo seeks to position and waits for the seek to complete.
func (s *serviceImpl) SeekTo(ctx context.Context, position time.Duration) (bool, error) {
	select {
	case ok := <-s.Seek(media.NewSeek(position)):
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// SeekBy seeks relative to the current position.
func (s *serviceImpl) SeekBy(ctx context.Context, delta time.Duration) (bool, error) {
	return s.SeekTo(ctx, s.Position()+delta)
}

// State returns the current playback state.
func (s *serviceImpl) State() media.PlaybackState {
	sess := s.current()
	if sess == nil {
		return media.StateNone
	}
	return sess.engine.State()
}

// Position returns the current playback position.
func (s *serviceImpl) Position() time.Duration {
	sess := s.current()
	if sess == nil {
		return 0
	}
	return sess.engine.Position()
}

// Duration returns the media duration.
func (s *serviceImpl) Duration() time.Duration {
	sess := s.current()
	if sess == nil {
		return 0
	}
	return sess.engine.Duration()
}

// HasDecodingEnded returns true once the whole media has been decoded.
func (s *serviceImpl) HasDecodingEnded() bool {
	sess := s.current()
	return sess != nil && sess.engine.HasDecodingEnded()
}

// DecodingBitrate returns the buffered bitrate in bits per second.
func (s *serviceImpl) DecodingBitrate() int64 {
	sess := s.current()
	if sess == nil {
		return 0
	}
	return sess.engine.DecodingBitrate()
}

// CanPause returns true if the open media can be paused.
func (s *serviceImpl) CanPause() bool {
	sess := s.current()
	return sess != nil && sess.engine.CanPause()
}

// CanSeek returns true if the open media can be seeked.
func (s *serviceImpl) CanSeek() bool {
	sess := s.current()
	return sess != nil && sess.engine.CanSeek()
}

// Stats returns a snapshot of the workers and buffers.
func (s *serviceImpl) Stats() Stats {
	sess := s.current()
	if sess == nil {
		return Stats{}
	}
	stats := Stats{
		URL:            sess.url,
		Strategy:       sess.decoder.Strategy(),
		Buffered:       make(map[media.MediaType]int),
		Capacity:       make(map[media.MediaType]int),
		DecodedFrames:  sess.decoder.DecodedFrameCount(),
		DecodeCycles:   sess.decode.Cycles(),
		DecodeFailures: sess.decode.Failures(),
		Rendered:       sess.renderer.Rendered(),
	}
	for t, buf := range sess.engine.Buffers() {
		stats.Buffered[t] = buf.Count()
		stats.Capacity[t] = buf.Capacity()
	}
	return stats
}

// Subscribe creates a new event subscription.
func (s *serviceImpl) Subscribe() *Subscription {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	sub := newSubscription()
	s.subs = append(s.subs, sub)
	return sub
}

func (s *serviceImpl) broadcast(send func(*Subscription)) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		send(sub)
	}
}

func (s *serviceImpl) emitError(op errmsg.Op, url string, err error) {
	s.broadcast(func(sub *Subscription) {
		sub.sendError(ErrorEvent{Operation: op, URL: url, Err: err})
	})
}

// Close shuts down the service.
func (s *serviceImpl) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	sess := s.session
	s.session = nil
	s.mu.Unlock()

	var err error
	if sess != nil {
		err = s.closeSession(sess)
	}

	s.subsMu.Lock()
	for _, sub := range s.subs {
		sub.close()
	}
	s.subs = nil
	s.subsMu.Unlock()

	return err
}
