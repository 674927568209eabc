package commands

import (
	"github.com/google/uuid"

	"github.com/llehouerou/reel/internal/media"
)

// Kind identifies a priority command.
type Kind int

const (
	KindNone Kind = iota
	KindSeek
	KindStop
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindSeek:
		return "Seek"
	case KindStop:
		return "Stop"
	default:
		return "Unknown"
	}
}

// PriorityCommand is a preemptive single-slot command.
type PriorityCommand struct {
	ID        uuid.UUID
	Kind      Kind
	Operation media.SeekOperation
}

// SeekCommand creates a seek priority command.
func SeekCommand(op media.SeekOperation) PriorityCommand {
	return PriorityCommand{ID: uuid.New(), Kind: KindSeek, Operation: op}
}

// StopCommand creates a stop priority command.
func StopCommand() PriorityCommand {
	return PriorityCommand{ID: uuid.New(), Kind: KindStop, Operation: media.NewStopSeek()}
}

// IsNone returns true for the empty command.
func (c PriorityCommand) IsNone() bool { return c.Kind == KindNone }
