package media

import (
	"fmt"
	"math"
	"time"
)

// MinTarget is the sentinel seek target meaning "the start of the media".
const MinTarget = time.Duration(math.MinInt64)

// SeekMode selects what a seek does once the target is reached.
type SeekMode int

const (
	SeekNormal SeekMode = iota
	SeekStop
)

// String returns the seek mode name.
func (m SeekMode) String() string {
	switch m {
	case SeekNormal:
		return "Normal"
	case SeekStop:
		return "Stop"
	default:
		return "Unknown"
	}
}

// SeekOperation describes a requested jump of the playback position.
type SeekOperation struct {
	Target time.Duration
	Mode   SeekMode
}

// NewSeek returns a normal seek to target.
func NewSeek(target time.Duration) SeekOperation {
	return SeekOperation{Target: target, Mode: SeekNormal}
}

// NewStopSeek returns the seek performed when stopping.
func NewStopSeek() SeekOperation {
	return SeekOperation{Target: MinTarget, Mode: SeekStop}
}

// IsStop returns true if the operation rewinds to the start.
func (o SeekOperation) IsStop() bool {
	return o.Mode == SeekStop || o.Target == MinTarget
}

func (o SeekOperation) String() string {
	if o.Target == MinTarget {
		return fmt.Sprintf("seek(start, %s)", o.Mode)
	}
	return fmt.Sprintf("seek(%s, %s)", o.Target, o.Mode)
}
