package app

import (
	"time"

	"github.com/llehouerou/reel/internal/media"
)

// TickMsg refreshes the view and records the resume position.
type TickMsg time.Time

// ServiceStateChangedMsg is sent when the playback state changes.
type ServiceStateChangedMsg struct {
	Previous media.PlaybackState
	Current  media.PlaybackState
}

// ServicePositionChangedMsg is sent after a seek.
type ServicePositionChangedMsg struct {
	Position time.Duration
}

// ServiceDecodingEndedMsg is sent when the decoder reaches or leaves the end.
type ServiceDecodingEndedMsg struct {
	Ended bool
}

// ServiceMediaEndedMsg is sent once playback passes the last block.
type ServiceMediaEndedMsg struct {
	URL      string
	Position time.Duration
}

// ServiceErrorMsg carries a user-facing error from the engine workers.
type ServiceErrorMsg struct {
	Message string
}

// ServiceClosedMsg is sent when the playback service shuts down.
type ServiceClosedMsg struct{}

// SeekResultMsg reports the outcome of a seek issued from the keyboard.
type SeekResultMsg struct {
	Target time.Duration
	OK     bool
	Err    error
}

// StopResultMsg reports the outcome of a stop.
type StopResultMsg struct {
	OK bool
}

// PositionRestoredMsg is sent after the saved position was applied.
type PositionRestoredMsg struct {
	Position time.Duration
	OK       bool
}

// StderrMsg carries a line captured from native audio libraries.
type StderrMsg struct {
	Line string
}

// NotifiedMsg reports a sent desktop notification.
type NotifiedMsg struct {
	ID    uint32
	Error bool // notification about a playback error
	Err   error
}
