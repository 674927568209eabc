package media

// PlaybackState is the authoritative state of an open engine.
//
// Transitions are owned by the command manager:
//
//	None  ──play──▶ Play ──pause──▶ Pause
//	Play  ──stop──▶ Stop ──play───▶ Play
//	Pause ──play──▶ Play
//	Pause ──stop──▶ Stop
type PlaybackState int

const (
	StateNone PlaybackState = iota
	StatePlay
	StatePause
	StateStop
)

// String returns the state name.
func (s PlaybackState) String() string {
	switch s {
	case StateNone:
		return "None"
	case StatePlay:
		return "Play"
	case StatePause:
		return "Pause"
	case StateStop:
		return "Stop"
	default:
		return "Unknown"
	}
}

// IsPlaying returns true if the clock is expected to advance.
func (s PlaybackState) IsPlaying() bool {
	return s == StatePlay
}
