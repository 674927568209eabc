package render

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/reel/internal/blocks"
	"github.com/llehouerou/reel/internal/clock"
	"github.com/llehouerou/reel/internal/media"
)

type fakeState struct {
	mu    sync.Mutex
	state media.PlaybackState
	ended bool
}

func (s *fakeState) State() media.PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *fakeState) HasDecodingEnded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

func fill(buf *blocks.Buffer, n int, step time.Duration) {
	for i := range n {
		buf.Add(media.Frame{
			Type:      buf.MediaType(),
			StartTime: time.Duration(i) * step,
			Duration:  step,
			Size:      10,
		})
	}
}

type renderFixture struct {
	buffers map[media.MediaType]*blocks.Buffer
	clock   *clock.RealTime
	state   *fakeState
	tracker *Tracker
	ended   int
	worker  *Worker
}

func newRenderFixture() *renderFixture {
	f := &renderFixture{
		buffers: map[media.MediaType]*blocks.Buffer{
			media.Video: blocks.New(media.Video, 8),
			media.Audio: blocks.New(media.Audio, 8),
		},
		clock:   clock.New(),
		state:   &fakeState{state: media.StatePlay},
		tracker: NewTracker(),
	}
	f.worker = NewWorker(Deps{
		Buffers:      f.buffers,
		Clock:        f.clock,
		State:        f.state,
		Renderers:    []Renderer{f.tracker},
		SeekableType: media.Video,
	}, WithMediaEnded(func() { f.ended++ }))
	return f
}

func TestWorker_RendersBlockUnderClock(t *testing.T) {
	f := newRenderFixture()
	fill(f.buffers[media.Video], 4, time.Second)
	fill(f.buffers[media.Audio], 4, time.Second)
	f.clock.ChangePosition(1500 * time.Millisecond)

	require.NoError(t, f.worker.ExecuteCycle(context.Background()))

	block, ok := f.tracker.LastBlock(media.Video)
	require.True(t, ok)
	assert.Equal(t, time.Second, block.StartTime)
	assert.Equal(t, 1, f.tracker.Renders(media.Audio))
	assert.Equal(t, int64(2), f.worker.Rendered())
}

func TestWorker_RendersEachBlockOnce(t *testing.T) {
	f := newRenderFixture()
	fill(f.buffers[media.Video], 4, time.Second)

	require.NoError(t, f.worker.ExecuteCycle(context.Background()))
	require.NoError(t, f.worker.ExecuteCycle(context.Background()))
	assert.Equal(t, 1, f.tracker.Renders(media.Video))

	f.clock.ChangePosition(2 * time.Second)
	require.NoError(t, f.worker.ExecuteCycle(context.Background()))
	assert.Equal(t, 2, f.tracker.Renders(media.Video))
}

func TestWorker_IdleUnlessPlaying(t *testing.T) {
	for _, state := range []media.PlaybackState{media.StateNone, media.StatePause, media.StateStop} {
		f := newRenderFixture()
		f.state.state = state
		fill(f.buffers[media.Video], 2, time.Second)

		require.NoError(t, f.worker.ExecuteCycle(context.Background()))

		assert.Equal(t, 0, f.tracker.Renders(media.Video), state.String())
	}
}

func TestWorker_MediaEndedReportedOnce(t *testing.T) {
	f := newRenderFixture()
	fill(f.buffers[media.Video], 3, time.Second)
	f.state.ended = true

	f.clock.ChangePosition(2 * time.Second)
	require.NoError(t, f.worker.ExecuteCycle(context.Background()))
	assert.Equal(t, 0, f.ended, "last block still playing")

	f.clock.ChangePosition(3 * time.Second)
	require.NoError(t, f.worker.ExecuteCycle(context.Background()))
	require.NoError(t, f.worker.ExecuteCycle(context.Background()))
	assert.Equal(t, 1, f.ended)

	f.worker.Reset()
	require.NoError(t, f.worker.ExecuteCycle(context.Background()))
	assert.Equal(t, 2, f.ended, "reset re-arms the hook")
}

func TestWorker_EndActionRetriedUntilAccepted(t *testing.T) {
	f := newRenderFixture()
	accept := false
	attempts := 0
	f.worker.endAction = func() bool {
		attempts++
		return accept
	}
	fill(f.buffers[media.Video], 3, time.Second)
	f.state.ended = true
	f.clock.ChangePosition(3 * time.Second)

	require.NoError(t, f.worker.ExecuteCycle(context.Background()))
	require.NoError(t, f.worker.ExecuteCycle(context.Background()))
	assert.Equal(t, 2, attempts, "rejected action retried on the next cycle")
	assert.Equal(t, 1, f.ended, "media end reported once")

	accept = true
	require.NoError(t, f.worker.ExecuteCycle(context.Background()))
	require.NoError(t, f.worker.ExecuteCycle(context.Background()))
	assert.Equal(t, 3, attempts, "accepted action not run again")
	assert.Equal(t, 1, f.ended)

	f.worker.Reset()
	require.NoError(t, f.worker.ExecuteCycle(context.Background()))
	assert.Equal(t, 4, attempts, "reset re-arms the action")
}

func TestWorker_MediaEndedWaitsForDecoding(t *testing.T) {
	f := newRenderFixture()
	fill(f.buffers[media.Video], 3, time.Second)
	f.clock.ChangePosition(time.Minute)

	require.NoError(t, f.worker.ExecuteCycle(context.Background()))

	assert.Equal(t, 0, f.ended)
}

func TestWorker_ResetRendersAgain(t *testing.T) {
	f := newRenderFixture()
	fill(f.buffers[media.Video], 2, time.Second)
	require.NoError(t, f.worker.ExecuteCycle(context.Background()))

	f.worker.Reset()
	require.NoError(t, f.worker.ExecuteCycle(context.Background()))

	assert.Equal(t, 2, f.tracker.Renders(media.Video))
}

func TestFanout(t *testing.T) {
	a, b := NewTracker(), NewTracker()
	sink := Fanout{a, b}

	sink.OnFrameDecoded(media.Video, media.Frame{Type: media.Video})
	sink.OnSubtitleDecoded(media.Frame{Type: media.Subtitle, Data: "hello"})

	for _, tr := range []*Tracker{a, b} {
		assert.Equal(t, 1, tr.Decoded(media.Video))
		assert.Equal(t, 1, tr.Decoded(media.Subtitle))
		assert.Equal(t, "hello", tr.Subtitle())
	}
}

func TestTracker_Transitions(t *testing.T) {
	tr := NewTracker()

	tr.OnPlay()
	tr.OnPause()
	tr.OnPlay()
	tr.OnSeek(42 * time.Second)
	tr.OnStop()

	assert.Equal(t, Transitions{Play: 2, Pause: 1, Stop: 1, Seek: 1}, tr.Transitions())
	assert.Equal(t, 42*time.Second, tr.LastSeek())
}
