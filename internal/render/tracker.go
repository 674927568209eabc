package render

import (
	"sync"
	"time"

	"github.com/llehouerou/reel/internal/media"
)

// Verify Tracker implements Renderer and FrameSink at compile time.
var (
	_ Renderer  = (*Tracker)(nil)
	_ FrameSink = (*Tracker)(nil)
)

// Transitions counts the playback notifications a renderer received.
type Transitions struct {
	Play  int
	Pause int
	Stop  int
	Seek  int
}

// Tracker is a renderer that records what it was asked to render.
type Tracker struct {
	mu          sync.Mutex
	last        map[media.MediaType]media.Block
	renders     map[media.MediaType]int
	decoded     map[media.MediaType]int
	subtitle    string
	transitions Transitions
	lastSeek    time.Duration
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		last:    make(map[media.MediaType]media.Block),
		renders: make(map[media.MediaType]int),
		decoded: make(map[media.MediaType]int),
	}
}

func (t *Tracker) OnPlay() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.transitions.Play++
}

func (t *Tracker) OnPause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.transitions.Pause++
}

func (t *Tracker) OnStop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.transitions.Stop++
	t.subtitle = ""
}

func (t *Tracker) OnSeek(position time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.transitions.Seek++
	t.lastSeek = position
}

func (t *Tracker) Render(block media.Block, _ time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last[block.Type] = block
	t.renders[block.Type]++
}

func (t *Tracker) OnFrameDecoded(mt media.MediaType, _ media.Frame) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.decoded[mt]++
}

func (t *Tracker) OnSubtitleDecoded(f media.Frame) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.decoded[media.Subtitle]++
	if text, ok := f.Data.(string); ok {
		t.subtitle = text
	}
}

// LastBlock returns the last block rendered for type mt.
func (t *Tracker) LastBlock(mt media.MediaType) (media.Block, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.last[mt]
	return b, ok
}

// Renders returns how many blocks of type mt were rendered.
func (t *Tracker) Renders(mt media.MediaType) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.renders[mt]
}

// Decoded returns how many frames of type mt reached the sink.
func (t *Tracker) Decoded(mt media.MediaType) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.decoded[mt]
}

// Subtitle returns the text of the last decoded subtitle cue.
func (t *Tracker) Subtitle() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.subtitle
}

// Transitions returns a snapshot of the notification counters.
func (t *Tracker) Transitions() Transitions {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transitions
}

// LastSeek returns the position of the last seek notification.
func (t *Tracker) LastSeek() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastSeek
}
