package notify

import "sync"

// Recorder is a Notifier that keeps notifications in memory.
type Recorder struct {
	mu     sync.Mutex
	sent   []Notification
	closed []uint32
}

// Verify Recorder implements Notifier at compile time.
var _ Notifier = (*Recorder)(nil)

// Notify records n. A replaced notification keeps its ID.
func (r *Recorder) Notify(n Notification) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	if n.ReplacesID != 0 {
		return n.ReplacesID, nil
	}
	return uint32(len(r.sent)), nil
}

// Close records the closed ID.
func (r *Recorder) Close(id uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, id)
	return nil
}

// Sent returns the recorded notifications.
func (r *Recorder) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.sent...)
}
