// internal/container/mock.go
package container

import (
	"context"
	"sync"
	"time"

	"github.com/samber/mo"

	"github.com/llehouerou/reel/internal/media"
)

// Mock is a scriptable test double for Container.
type Mock struct {
	mu             sync.Mutex
	types          []media.MediaType
	frames         map[media.MediaType][]media.Frame
	errs           map[media.MediaType]error
	bufferLength   map[media.MediaType]int
	packetsInCodec map[media.MediaType]bool
	atEnd          bool
	notPausable    bool
	notSeekable    bool
	duration       time.Duration
	receiveCalls   map[media.MediaType]int
	seekCalls      []time.Duration
	closed         bool
}

// NewMock creates a mock exposing the given media types.
func NewMock(types ...media.MediaType) *Mock {
	return &Mock{
		types:          types,
		frames:         make(map[media.MediaType][]media.Frame),
		errs:           make(map[media.MediaType]error),
		bufferLength:   make(map[media.MediaType]int),
		packetsInCodec: make(map[media.MediaType]bool),
		receiveCalls:   make(map[media.MediaType]int),
		duration:       time.Minute,
	}
}

func (m *Mock) URL() string { return "mock://" }

func (m *Mock) MediaTypes() []media.MediaType {
	return append([]media.MediaType(nil), m.types...)
}

func (m *Mock) SeekableMediaType() media.MediaType { return SeekableOf(m.types) }

func (m *Mock) ReceiveNextFrame(t media.MediaType) (mo.Option[media.Frame], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receiveCalls[t]++
	if err := m.errs[t]; err != nil {
		return mo.None[media.Frame](), err
	}
	queue := m.frames[t]
	if len(queue) == 0 {
		return mo.None[media.Frame](), nil
	}
	f := queue[0]
	m.frames[t] = queue[1:]
	return mo.Some(f), nil
}

func (m *Mock) BufferLength(t media.MediaType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bufferLength[t]
}

func (m *Mock) HasPacketsInCodec(t media.MediaType) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.packetsInCodec[t]
}

func (m *Mock) IsAtEndOfStream() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.atEnd
}

func (m *Mock) CanPause() bool { return !m.notPausable }

func (m *Mock) CanSeek() bool { return !m.notSeekable }

func (m *Mock) StartTime() time.Duration { return 0 }

func (m *Mock) Duration() time.Duration { return m.duration }

func (m *Mock) Seek(ctx context.Context, target time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.notSeekable {
		return ErrNotSeekable
	}
	m.seekCalls = append(m.seekCalls, target)
	return nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Test helpers

// QueueFrames appends frames to be returned by ReceiveNextFrame.
func (m *Mock) QueueFrames(frames ...media.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range frames {
		m.frames[f.Type] = append(m.frames[f.Type], f)
	}
}

// QueueSequence queues n frames of type t starting at zero, each lasting step.
func (m *Mock) QueueSequence(t media.MediaType, n int, step time.Duration) {
	frames := make([]media.Frame, n)
	for i := range frames {
		frames[i] = media.Frame{
			Type:      t,
			StartTime: time.Duration(i) * step,
			Duration:  step,
			Size:      100,
		}
	}
	m.QueueFrames(frames...)
}

func (m *Mock) Pending(t media.MediaType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames[t])
}

func (m *Mock) SetReceiveError(t media.MediaType, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[t] = err
}

func (m *Mock) SetBufferLength(t media.MediaType, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bufferLength[t] = n
}

func (m *Mock) SetPacketsInCodec(t media.MediaType, v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.packetsInCodec[t] = v
}

func (m *Mock) SetAtEndOfStream(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.atEnd = v
}

func (m *Mock) SetPausable(v bool) { m.notPausable = !v }

func (m *Mock) SetSeekable(v bool) { m.notSeekable = !v }

func (m *Mock) SetDuration(d time.Duration) { m.duration = d }

func (m *Mock) ReceiveCalls(t media.MediaType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.receiveCalls[t]
}

func (m *Mock) SeekCalls() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.seekCalls...)
}

func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Verify Mock implements Container at compile time.
var _ Container = (*Mock)(nil)
