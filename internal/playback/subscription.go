package playback

import "time"

const eventBufferSize = 16

// Subscription provides event channels for a subscriber.
type Subscription struct {
	StateChanged         <-chan StateChange
	PositionChanged      <-chan PositionChange
	DecodingEndedChanged <-chan DecodingEndedChange
	MediaEnded           <-chan MediaEnded
	Error                <-chan ErrorEvent
	Done                 <-chan struct{}

	// Internal write channels
	stateCh    chan StateChange
	positionCh chan PositionChange
	endedCh    chan DecodingEndedChange
	mediaCh    chan MediaEnded
	errorCh    chan ErrorEvent
	doneCh     chan struct{}
}

// newSubscription creates a new subscription with buffered channels.
func newSubscription() *Subscription {
	s := &Subscription{
		stateCh:    make(chan StateChange, eventBufferSize),
		positionCh: make(chan PositionChange, eventBufferSize),
		endedCh:    make(chan DecodingEndedChange, eventBufferSize),
		mediaCh:    make(chan MediaEnded, eventBufferSize),
		errorCh:    make(chan ErrorEvent, eventBufferSize),
		doneCh:     make(chan struct{}),
	}
	s.StateChanged = s.stateCh
	s.PositionChanged = s.positionCh
	s.DecodingEndedChanged = s.endedCh
	s.MediaEnded = s.mediaCh
	s.Error = s.errorCh
	s.Done = s.doneCh
	return s
}

// close signals subscribers to stop by closing doneCh.
func (s *Subscription) close() {
	close(s.doneCh)
}

// sendState sends a state change event (non-blocking).
func (s *Subscription) sendState(e StateChange) {
	select {
	case s.stateCh <- e:
	default:
		// Drop if buffer full
	}
}

// sendPosition sends a position change event (non-blocking).
func (s *Subscription) sendPosition(pos time.Duration) {
	select {
	case s.positionCh <- PositionChange{Position: pos}:
	default:
	}
}

// sendDecodingEnded sends a decoding-ended change event (non-blocking).
func (s *Subscription) sendDecodingEnded(e DecodingEndedChange) {
	select {
	case s.endedCh <- e:
	default:
	}
}

// sendMediaEnded sends a media ended event (non-blocking).
func (s *Subscription) sendMediaEnded(e MediaEnded) {
	select {
	case s.mediaCh <- e:
	default:
	}
}

// sendError sends an error event (non-blocking).
func (s *Subscription) sendError(e ErrorEvent) {
	select {
	case s.errorCh <- e:
	default:
	}
}
