// Package container defines the contract the engine expects from a
// demuxer/decoder pair, plus a synthetic implementation and a test double.
package container

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/samber/mo"

	"github.com/llehouerou/reel/internal/media"
)

// ErrNotSeekable is returned by Seek on sources that cannot seek.
var ErrNotSeekable = errors.New("source is not seekable")

// Container is an opened media source producing decoded frames on demand.
type Container interface {
	URL() string
	MediaTypes() []media.MediaType
	SeekableMediaType() media.MediaType

	// ReceiveNextFrame decodes one frame of the given type. It returns
	// None when no frame is available yet or the stream is exhausted.
	ReceiveNextFrame(t media.MediaType) (mo.Option[media.Frame], error)

	// BufferLength returns the number of packets waiting to be decoded.
	BufferLength(t media.MediaType) int
	// HasPacketsInCodec reports packets sent to the decoder that have not
	// produced a frame yet.
	HasPacketsInCodec(t media.MediaType) bool
	// IsAtEndOfStream reports that no more packets can be read.
	IsAtEndOfStream() bool

	CanPause() bool
	CanSeek() bool
	StartTime() time.Duration
	Duration() time.Duration

	Seek(ctx context.Context, target time.Duration) error
	Close() error
}

// SeekableOf returns the media type whose buffer governs end of stream and
// position snapping: video if present, else audio.
func SeekableOf(types []media.MediaType) media.MediaType {
	switch {
	case slices.Contains(types, media.Video):
		return media.Video
	case slices.Contains(types, media.Audio):
		return media.Audio
	default:
		return media.None
	}
}
