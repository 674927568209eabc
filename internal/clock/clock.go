// Package clock provides the playback clock shared by the decoding,
// rendering and command paths.
package clock

import (
	"sync"
	"time"

	"github.com/llehouerou/reel/internal/media"
)

// Clock is the playback position source. Positions are read per media
// type; only seeks and stops jump it explicitly.
type Clock interface {
	Position(t media.MediaType) time.Duration
	ChangePosition(position time.Duration)
	Play()
	Pause()
	Reset()
	IsRunning() bool
	IsUnified() bool
	Speed() float64
	SetSpeed(speed float64)
}

// Verify RealTime implements Clock at compile time.
var _ Clock = (*RealTime)(nil)

// RealTime advances with wall time while running.
type RealTime struct {
	mu        sync.RWMutex
	now       func() time.Time
	base      time.Duration
	startedAt time.Time
	running   bool
	speed     float64
	offsets   map[media.MediaType]time.Duration
}

// Option configures a RealTime clock.
type Option func(*RealTime)

// WithNow replaces the wall time source.
func WithNow(now func() time.Time) Option {
	return func(c *RealTime) { c.now = now }
}

// New creates a stopped clock at position zero.
func New(opts ...Option) *RealTime {
	c := &RealTime{
		now:     time.Now,
		speed:   1,
		offsets: make(map[media.MediaType]time.Duration),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Position returns the current position for the media type.
func (c *RealTime) Position(t media.MediaType) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.positionLocked() + c.offsets[t]
}

func (c *RealTime) positionLocked() time.Duration {
	if !c.running {
		return c.base
	}
	elapsed := c.now().Sub(c.startedAt)
	return c.base + time.Duration(float64(elapsed)*c.speed)
}

// ChangePosition jumps the clock, keeping its running state.
func (c *RealTime) ChangePosition(position time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = position
	c.startedAt = c.now()
}

// Play starts advancing the clock. No-op if already running.
func (c *RealTime) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.startedAt = c.now()
	c.running = true
}

// Pause freezes the clock at its current position.
func (c *RealTime) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.base = c.positionLocked()
	c.running = false
}

// Reset stops the clock and rewinds it to zero.
func (c *RealTime) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = 0
	c.running = false
}

// IsRunning returns true while the clock advances.
func (c *RealTime) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// SetOffset shifts the timeline of one media type relative to the
// others. Any non-zero offset makes the clock non-unified.
func (c *RealTime) SetOffset(t media.MediaType, offset time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if offset == 0 {
		delete(c.offsets, t)
		return
	}
	c.offsets[t] = offset
}

// IsUnified returns true when every media type shares one timeline.
func (c *RealTime) IsUnified() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.offsets) == 0
}

// Speed returns the playback speed ratio.
func (c *RealTime) Speed() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.speed
}

// SetSpeed changes the playback speed ratio. Non-positive values are
// ignored.
func (c *RealTime) SetSpeed(speed float64) {
	if speed <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = c.positionLocked()
	c.startedAt = c.now()
	c.speed = speed
}
