package render

import (
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/reel/internal/media"
)

func audioFrame(start time.Duration, value float64, n int) media.Frame {
	samples := make([][2]float64, n)
	for i := range samples {
		samples[i] = [2]float64{value, value}
	}
	return media.Frame{Type: media.Audio, StartTime: start, Duration: 10 * time.Millisecond, Data: samples}
}

func audioBlock(start time.Duration) media.Block {
	return media.Block{Type: media.Audio, StartTime: start, Duration: 10 * time.Millisecond}
}

func TestAudioRenderer_StreamsRenderedFrames(t *testing.T) {
	a := NewAudioRenderer(beep.SampleRate(1000))
	a.OnFrameDecoded(media.Audio, audioFrame(0, 0.5, 4))
	a.OnFrameDecoded(media.Audio, audioFrame(10*time.Millisecond, 0.25, 4))
	a.OnPlay()

	a.Render(audioBlock(0), 0)
	require.Equal(t, 4, a.Queued())

	out := make([][2]float64, 6)
	n, ok := a.Streamer().Stream(out)

	assert.True(t, ok)
	assert.Equal(t, 6, n)
	assert.Equal(t, [2]float64{0.5, 0.5}, out[0])
	assert.Equal(t, [2]float64{0.5, 0.5}, out[3])
	assert.Equal(t, [2]float64{0, 0}, out[4], "padded with silence")
	assert.Equal(t, 0, a.Queued())
}

func TestAudioRenderer_PausedStreamsSilence(t *testing.T) {
	a := NewAudioRenderer(beep.SampleRate(1000))
	a.OnFrameDecoded(media.Audio, audioFrame(0, 1, 4))
	a.Render(audioBlock(0), 0)

	out := make([][2]float64, 4)
	n, ok := a.Streamer().Stream(out)

	assert.True(t, ok)
	assert.Equal(t, 4, n)
	assert.Equal(t, [2]float64{0, 0}, out[0])
	assert.Equal(t, 4, a.Queued(), "queue kept while paused")
}

func TestAudioRenderer_SeekFlushes(t *testing.T) {
	a := NewAudioRenderer(beep.SampleRate(1000))
	a.OnFrameDecoded(media.Audio, audioFrame(0, 1, 4))
	a.OnFrameDecoded(media.Audio, audioFrame(10*time.Millisecond, 1, 4))
	a.Render(audioBlock(0), 0)

	a.OnSeek(time.Second)
	a.Render(audioBlock(10*time.Millisecond), 10*time.Millisecond)

	assert.Equal(t, 0, a.Queued())
}

func TestAudioRenderer_IgnoresOtherTypes(t *testing.T) {
	a := NewAudioRenderer(beep.SampleRate(1000))
	a.OnFrameDecoded(media.Video, media.Frame{Type: media.Video, Data: [][2]float64{{1, 1}}})
	a.Render(media.Block{Type: media.Video}, 0)

	assert.Equal(t, 0, a.Queued())
}

func TestAudioRenderer_BoundsPending(t *testing.T) {
	a := NewAudioRenderer(beep.SampleRate(1000))
	for i := range maxPendingFrames + 3 {
		a.OnFrameDecoded(media.Audio, audioFrame(time.Duration(i)*time.Millisecond, 0, 1))
	}

	assert.Equal(t, 3, a.Dropped())
}
