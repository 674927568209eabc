package playback

import (
	"time"

	"github.com/llehouerou/reel/internal/errmsg"
	"github.com/llehouerou/reel/internal/media"
)

// StateChange is emitted when playback state changes.
type StateChange struct {
	Previous media.PlaybackState
	Current  media.PlaybackState
}

// PositionChange is emitted when a seek occurs.
type PositionChange struct {
	Position time.Duration
}

// DecodingEndedChange is emitted when the decoder reaches or leaves the
// end of the stream.
//
// Emitted by:
//   - the decoding worker, when a cycle adds no block and the container
//     cannot produce more frames
//   - any seek, which resets the flag to false
type DecodingEndedChange struct {
	Ended bool
}

// MediaEnded is emitted once when the clock passes the last decoded block.
// The service pauses playback right after.
type MediaEnded struct {
	URL      string
	Position time.Duration
}

// ErrorEvent is emitted when an error occurs during playback.
type ErrorEvent struct {
	Operation errmsg.Op
	URL       string // media url if applicable
	Err       error
}

// Message returns the user-facing description of the error.
func (e ErrorEvent) Message() string {
	return errmsg.FormatWith(e.Operation, e.URL, e.Err)
}
