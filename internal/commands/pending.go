package commands

// event is a manual-reset signal. Waiters capture the channel returned by
// wait before the event is set.
type event struct {
	ch  chan struct{}
	set bool
}

func newSetEvent() event {
	ch := make(chan struct{})
	close(ch)
	return event{ch: ch, set: true}
}

func (e *event) reset() {
	if e.set {
		e.ch = make(chan struct{})
		e.set = false
	}
}

func (e *event) signal() {
	if !e.set {
		close(e.ch)
		e.set = true
	}
}

func (e *event) wait() <-chan struct{} { return e.ch }

// pendingState holds the command flags. Every method must be called with
// the manager lock held.
type pendingState struct {
	direct   bool
	priority PriorityCommand
	ready    bool
	resumed  bool
	done     event
}

func newPendingState() pendingState {
	return pendingState{done: newSetEvent()}
}

func (p *pendingState) hasPriority() bool { return !p.priority.IsNone() }

func (p *pendingState) directInFlight() bool { return p.direct }

func (p *pendingState) isBusy() bool { return p.direct || p.hasPriority() }

func (p *pendingState) beginDirect() bool {
	if p.isBusy() {
		return false
	}
	p.direct = true
	return true
}

func (p *pendingState) endDirect() { p.direct = false }

// queue records cmd and returns the completion channel its waiter
// blocks on.
func (p *pendingState) queue(cmd PriorityCommand) <-chan struct{} {
	p.priority = cmd
	p.ready = false
	p.resumed = false
	p.done.reset()
	return p.done.wait()
}

// markReady flags cmd executable. It reports false when cmd is no longer
// the pending command.
func (p *pendingState) markReady(cmd PriorityCommand, resumed bool) bool {
	if p.priority.ID != cmd.ID {
		return false
	}
	p.ready = true
	p.resumed = resumed
	return true
}

// take returns the ready command without clearing it.
func (p *pendingState) take() (PriorityCommand, bool, bool) {
	if !p.hasPriority() || !p.ready {
		return PriorityCommand{}, false, false
	}
	return p.priority, p.resumed, true
}

func (p *pendingState) clear() {
	p.priority = PriorityCommand{}
	p.ready = false
	p.resumed = false
	p.done.signal()
}
