package playback

import (
	"context"
	"time"

	"github.com/llehouerou/reel/internal/container"
	"github.com/llehouerou/reel/internal/decoding"
	"github.com/llehouerou/reel/internal/media"
)

// Service defines the playback service contract.
type Service interface {
	// Media lifecycle
	Open(ctx context.Context, c container.Container) error
	IsOpen() bool

	// Playback control. Rejected commands return false.
	Play() bool
	Pause() bool
	Stop(ctx context.Context) bool
	Toggle() bool
	Seek(op media.SeekOperation) <-chan bool
	SeekTo(ctx context.Context, position time.Duration) (bool, error)
	SeekBy(ctx context.Context, delta time.Duration) (bool, error)

	// State queries
	State() media.PlaybackState
	Position() time.Duration
	Duration() time.Duration
	HasDecodingEnded() bool
	DecodingBitrate() int64
	CanPause() bool
	CanSeek() bool
	Stats() Stats

	// Event subscription
	Subscribe() *Subscription

	// Lifecycle
	Close() error
}

// Stats is a snapshot of the engine workers.
type Stats struct {
	URL            string
	Strategy       decoding.Strategy
	Buffered       map[media.MediaType]int
	Capacity       map[media.MediaType]int
	DecodedFrames  int64
	DecodeCycles   int64
	DecodeFailures int64
	Rendered       int64
}
