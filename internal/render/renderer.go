// Package render delivers buffered blocks to renderers in step with the
// playback clock.
package render

import (
	"time"

	"github.com/llehouerou/reel/internal/media"
)

// Renderer consumes blocks for display or output and follows playback
// transitions.
type Renderer interface {
	OnPlay()
	OnPause()
	OnStop()
	OnSeek(position time.Duration)
	Render(block media.Block, position time.Duration)
}

// FrameSink receives raw decoded frames. The payload is opaque to the
// engine; only its type and timestamps are interpreted.
type FrameSink interface {
	OnFrameDecoded(t media.MediaType, f media.Frame)
	OnSubtitleDecoded(f media.Frame)
}

// Fanout distributes decoded frames to several sinks.
type Fanout []FrameSink

// OnFrameDecoded forwards f to every sink.
func (s Fanout) OnFrameDecoded(t media.MediaType, f media.Frame) {
	for _, sink := range s {
		sink.OnFrameDecoded(t, f)
	}
}

// OnSubtitleDecoded forwards f to every sink.
func (s Fanout) OnSubtitleDecoded(f media.Frame) {
	for _, sink := range s {
		sink.OnSubtitleDecoded(f)
	}
}
