package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/reel/internal/commands"
	"github.com/llehouerou/reel/internal/container"
	"github.com/llehouerou/reel/internal/media"
	"github.com/llehouerou/reel/internal/render"
)

func openMock(t *testing.T, opts ...Option) (*Engine, *container.Mock) {
	t.Helper()
	c := container.NewMock(media.Video, media.Audio)
	return Open(c, opts...), c
}

func addBlocks(e *Engine, t media.MediaType, starts ...time.Duration) {
	for i, start := range starts {
		d := 40 * time.Millisecond
		if i+1 < len(starts) {
			d = starts[i+1] - start
		}
		e.Buffers()[t].Add(media.Frame{Type: t, StartTime: start, Duration: d, Size: 10})
	}
}

func TestOpen(t *testing.T) {
	e, _ := openMock(t, WithCapacity(media.Audio, 7))

	assert.True(t, e.IsOpen())
	assert.False(t, e.IsDisposing())
	assert.Equal(t, media.StateStop, e.State())
	assert.Equal(t, media.Video, e.SeekableMediaType())
	require.Len(t, e.Buffers(), 2)
	assert.Equal(t, DefaultCapacities[media.Video], e.Buffers()[media.Video].Capacity())
	assert.Equal(t, 7, e.Buffers()[media.Audio].Capacity())
	assert.Equal(t, time.Minute, e.Duration())
}

func TestSnapPositionToBlockPosition(t *testing.T) {
	e, _ := openMock(t)

	// Without blocks positions are truncated to the millisecond
	assert.Equal(t, 1234*time.Millisecond, e.SnapPositionToBlockPosition(1234567*time.Microsecond))

	addBlocks(e, media.Video, 1*time.Second, 1040*time.Millisecond, 1080*time.Millisecond, 1120*time.Millisecond)

	assert.Equal(t, 1040*time.Millisecond, e.SnapPositionToBlockPosition(1050*time.Millisecond))
	assert.Equal(t, time.Second, e.SnapPositionToBlockPosition(0), "clamped to the first block")
	assert.Equal(t, 1120*time.Millisecond, e.SnapPositionToBlockPosition(time.Minute), "clamped to the last block")
}

func TestSnapPositionToBlockPosition_Idempotent(t *testing.T) {
	empty, _ := openMock(t)
	filled, _ := openMock(t)
	addBlocks(filled, media.Video, 0, 33*time.Millisecond, 67*time.Millisecond, 100*time.Millisecond, 133*time.Millisecond)

	for _, e := range []*Engine{empty, filled} {
		for x := -50 * time.Millisecond; x < 300*time.Millisecond; x += 777 * time.Microsecond {
			once := e.SnapPositionToBlockPosition(x)
			assert.Equal(t, once, e.SnapPositionToBlockPosition(once), "x=%s", x)
		}
	}
}

func TestSeekMedia(t *testing.T) {
	tracker := render.NewTracker()
	var seeked []time.Duration
	var endedChanges []bool
	e, c := openMock(t,
		WithRenderers(tracker),
		WithSeekHook(func(p time.Duration) { seeked = append(seeked, p) }),
		WithDecodingEndedHook(func(ended bool) { endedChanges = append(endedChanges, ended) }),
	)
	addBlocks(e, media.Video, 0, time.Second)
	addBlocks(e, media.Audio, 0, time.Second)
	e.UpdateDecodingEnded(true)
	e.UpdateDecodingBitrate(1000)

	require.NoError(t, e.SeekMedia(context.Background(), media.NewSeek(20*time.Second)))

	assert.Equal(t, []time.Duration{20 * time.Second}, c.SeekCalls())
	assert.Equal(t, 20*time.Second, e.Position())
	assert.Equal(t, 0, e.Buffers()[media.Video].Count())
	assert.Equal(t, 0, e.Buffers()[media.Audio].Count())
	assert.False(t, e.HasDecodingEnded())
	assert.Equal(t, int64(0), e.DecodingBitrate())
	assert.Equal(t, []bool{true, false}, endedChanges)
	assert.Equal(t, []time.Duration{20 * time.Second}, seeked)
	assert.Equal(t, 20*time.Second, tracker.LastSeek())
}

func TestSeekMedia_Targets(t *testing.T) {
	tests := []struct {
		name string
		op   media.SeekOperation
		want time.Duration
	}{
		{"within range", media.NewSeek(10 * time.Second), 10 * time.Second},
		{"before start", media.NewSeek(-time.Second), 0},
		{"past end", media.NewSeek(time.Hour), time.Minute},
		{"stop", media.NewStopSeek(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, c := openMock(t)
			e.Clock().ChangePosition(30 * time.Second)

			require.NoError(t, e.SeekMedia(context.Background(), tt.op))

			assert.Equal(t, []time.Duration{tt.want}, c.SeekCalls())
			assert.Equal(t, tt.want, e.Position())
		})
	}
}

func TestSeekMedia_Errors(t *testing.T) {
	e, c := openMock(t)
	c.SetSeekable(false)
	assert.ErrorIs(t, e.SeekMedia(context.Background(), media.NewSeek(time.Second)), container.ErrNotSeekable)

	e, _ = openMock(t)
	require.NoError(t, e.Dispose())
	assert.ErrorIs(t, e.SeekMedia(context.Background(), media.NewSeek(time.Second)), ErrDisposed)

	e, _ = openMock(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.SeekMedia(ctx, media.NewSeek(time.Second))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSetState_HookOnChangeOnly(t *testing.T) {
	var changes [][2]media.PlaybackState
	e, _ := openMock(t, WithStateHook(func(prev, cur media.PlaybackState) {
		changes = append(changes, [2]media.PlaybackState{prev, cur})
	}))

	e.SetState(media.StatePlay)
	e.SetState(media.StatePlay)
	e.SetState(media.StatePause)

	assert.Equal(t, [][2]media.PlaybackState{
		{media.StateStop, media.StatePlay},
		{media.StatePlay, media.StatePause},
	}, changes)
}

func TestResumeAndRestorePause(t *testing.T) {
	e, _ := openMock(t)
	addBlocks(e, media.Video, 0, time.Second, 2*time.Second)

	assert.False(t, e.Resume(), "not paused")

	e.SetState(media.StatePause)
	e.Clock().ChangePosition(1500 * time.Millisecond)
	require.True(t, e.Resume())
	assert.True(t, e.Clock().IsRunning())
	assert.False(t, e.Resume(), "already running")

	e.RestorePause()
	assert.False(t, e.Clock().IsRunning())
	assert.Equal(t, time.Second, e.Position())
	assert.Equal(t, media.StatePause, e.State())
}

func TestDispose(t *testing.T) {
	e, c := openMock(t)
	addBlocks(e, media.Video, 0)
	e.Clock().Play()

	require.NoError(t, e.Dispose())
	require.NoError(t, e.Dispose())

	assert.True(t, c.Closed())
	assert.False(t, e.IsOpen())
	assert.True(t, e.IsDisposing())
	assert.True(t, e.IsDisposed())
	assert.False(t, e.Clock().IsRunning())
	assert.Equal(t, 0, e.Buffers()[media.Video].Count())

	called := false
	require.NoError(t, e.WithMediaLock(func() error {
		called = true
		return nil
	}))
	assert.False(t, called)
}

func TestWithMediaLock(t *testing.T) {
	e, _ := openMock(t)
	want := errors.New("decode failed")

	assert.ErrorIs(t, e.WithMediaLock(func() error { return want }), want)
}

func TestEngineWithCommandManager(t *testing.T) {
	a, b := render.NewTracker(), render.NewTracker()
	e, c := openMock(t, WithRenderers(a, b))
	m := commands.New(e)

	require.True(t, m.Play())
	assert.Equal(t, media.StatePlay, e.State())
	assert.Equal(t, 1, a.Transitions().Play)
	assert.Equal(t, 1, b.Transitions().Play)

	c.SetPausable(false)
	assert.False(t, m.Pause())
	assert.Equal(t, media.StatePlay, e.State())

	require.True(t, m.Stop(context.Background()))
	assert.Equal(t, media.StateStop, e.State())
	assert.Equal(t, []time.Duration{0}, c.SeekCalls())

	require.NoError(t, e.Dispose())
	m.ClearPriorityCommands()
	assert.False(t, m.Play())
}
