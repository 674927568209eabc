// Package commands serializes playback commands against a media engine.
//
// Direct commands (Play, Pause, Stop) run on the caller goroutine.
// Priority commands (Seek, asynchronous Stop) occupy a single slot and are
// executed by the decoding worker through ExecutePendingCommand; their
// callers receive a channel resolved once the command has been cleared.
package commands

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/llehouerou/reel/internal/clock"
	"github.com/llehouerou/reel/internal/media"
	"github.com/llehouerou/reel/internal/render"
)

// Engine is the media engine commands act on.
type Engine interface {
	IsOpen() bool
	IsDisposing() bool
	CanPause() bool
	CanSeek() bool
	Clock() clock.Clock
	SeekableMediaType() media.MediaType
	Renderers() []render.Renderer
	SetState(state media.PlaybackState)
	SnapPositionToBlockPosition(position time.Duration) time.Duration
	SeekMedia(ctx context.Context, op media.SeekOperation) error
	Resume() bool
	RestorePause()
}

// Manager accepts commands under a single lock.
type Manager struct {
	engine  Engine
	logger  hclog.Logger
	onReady func()
	onError func(error)

	mu      sync.Mutex
	pending pendingState
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(logger hclog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithReadyHook registers a hook called when a priority command becomes
// executable, typically to wake the decoding worker.
func WithReadyHook(fn func()) Option {
	return func(m *Manager) { m.onReady = fn }
}

// WithErrorHandler registers a hook called when a priority command fails.
func WithErrorHandler(fn func(error)) Option {
	return func(m *Manager) { m.onError = fn }
}

// New creates a command manager for engine.
func New(engine Engine, opts ...Option) *Manager {
	m := &Manager{
		engine:  engine,
		logger:  hclog.NewNullLogger(),
		pending: newPendingState(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Play starts playback.
func (m *Manager) Play() bool {
	if !m.beginDirect(nil) {
		return false
	}
	defer m.endDirect()

	for _, r := range m.engine.Renderers() {
		r.OnPlay()
	}
	m.engine.Clock().Play()
	m.engine.SetState(media.StatePlay)
	m.logger.Debug("play")
	return true
}

// Pause halts the clock on a block boundary. Sources that cannot pause
// reject it.
func (m *Manager) Pause() bool {
	if !m.beginDirect(m.engine.CanPause) {
		return false
	}
	defer m.endDirect()

	c := m.engine.Clock()
	c.Pause()
	for _, r := range m.engine.Renderers() {
		r.OnPause()
	}
	position := m.engine.SnapPositionToBlockPosition(c.Position(m.engine.SeekableMediaType()))
	c.ChangePosition(position)
	m.engine.SetState(media.StatePause)
	m.logger.Debug("pause", "position", position)
	return true
}

// Stop resets playback to the start of the media. Sources that cannot
// seek reject it.
func (m *Manager) Stop(ctx context.Context) bool {
	if !m.beginDirect(m.engine.CanSeek) {
		return false
	}
	defer m.endDirect()

	if err := m.stop(ctx); err != nil {
		m.logger.Error("stop failed", "error", err)
		return false
	}
	m.logger.Debug("stop")
	return true
}

func (m *Manager) stop(ctx context.Context) error {
	m.engine.Clock().Reset()
	if err := m.engine.SeekMedia(ctx, media.NewStopSeek()); err != nil {
		return err
	}
	for _, r := range m.engine.Renderers() {
		r.OnStop()
	}
	m.engine.SetState(media.StateStop)
	return nil
}

func (m *Manager) beginDirect(accept func() bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.engine.IsDisposing() || !m.engine.IsOpen() {
		return false
	}
	if accept != nil && !accept() {
		return false
	}
	return m.pending.beginDirect()
}

func (m *Manager) endDirect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending.endDirect()
}

// Seek queues a seek priority command.
func (m *Manager) Seek(op media.SeekOperation) <-chan bool {
	return m.QueuePriorityCommand(SeekCommand(op))
}

// StopAsync queues a stop priority command.
func (m *Manager) StopAsync() <-chan bool {
	return m.QueuePriorityCommand(StopCommand())
}

// QueuePriorityCommand records cmd as the pending priority command and
// returns immediately. The channel receives true once the command has
// been cleared, or false right away when the command is rejected.
func (m *Manager) QueuePriorityCommand(cmd PriorityCommand) <-chan bool {
	result := make(chan bool, 1)

	m.mu.Lock()
	if reason := m.rejectLocked(); reason != "" {
		m.mu.Unlock()
		m.logger.Debug("priority command rejected", "kind", cmd.Kind, "reason", reason)
		result <- false
		return result
	}
	if cmd.ID == uuid.Nil {
		cmd.ID = uuid.New()
	}
	done := m.pending.queue(cmd)
	m.mu.Unlock()

	m.logger.Debug("priority command queued", "id", cmd.ID, "kind", cmd.Kind, "operation", cmd.Operation)
	go m.await(cmd, done, result)
	return result
}

// rejectLocked returns why a priority command cannot be queued. A
// non-seekable source never takes the priority slot.
func (m *Manager) rejectLocked() string {
	switch {
	case m.engine.IsDisposing():
		return "disposing"
	case !m.engine.IsOpen():
		return "not open"
	case !m.engine.CanSeek():
		return "not seekable"
	case m.pending.directInFlight():
		return "direct command in flight"
	case m.pending.hasPriority():
		return "priority command pending"
	default:
		return ""
	}
}

func (m *Manager) await(cmd PriorityCommand, done <-chan struct{}, result chan<- bool) {
	resumed := m.engine.Resume()

	m.mu.Lock()
	ready := m.pending.markReady(cmd, resumed)
	m.mu.Unlock()

	switch {
	case ready && m.onReady != nil:
		m.onReady()
	case !ready && resumed:
		m.engine.RestorePause()
	}

	<-done
	m.logger.Trace("priority command resolved", "id", cmd.ID)
	result <- true
}

// HasPendingCommand returns true while a priority command is pending.
func (m *Manager) HasPendingCommand() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending.hasPriority()
}

// ClearPriorityCommands drops the pending priority command and releases
// its waiter.
func (m *Manager) ClearPriorityCommands() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending.clear()
}

// ExecutePendingCommand runs the pending priority command once it is
// ready, then clears it. It returns true when a command was executed.
func (m *Manager) ExecutePendingCommand(ctx context.Context) bool {
	m.mu.Lock()
	cmd, resumed, ok := m.pending.take()
	m.mu.Unlock()
	if !ok {
		return false
	}
	defer m.ClearPriorityCommands()

	var err error
	switch cmd.Kind {
	case KindStop:
		err = m.stop(ctx)
	default:
		err = m.engine.SeekMedia(ctx, cmd.Operation)
		if resumed {
			m.engine.RestorePause()
		}
	}

	if err != nil {
		m.logger.Error("priority command failed", "id", cmd.ID, "kind", cmd.Kind, "error", err)
		if m.onError != nil {
			m.onError(fmt.Errorf("%s command: %w", cmd.Kind, err))
		}
		return true
	}
	m.logger.Debug("priority command executed", "id", cmd.ID, "kind", cmd.Kind, "operation", cmd.Operation)
	return true
}
