// internal/state/interface.go
package state

import "time"

// Interface defines the state manager contract for dependency injection and testing.
type Interface interface {
	SavePosition(url string, position, duration time.Duration)
	GetPosition(url string) (*Position, error)
	ClearPosition(url string) error
	Close() error
}

// Verify Manager implements Interface at compile time.
var _ Interface = (*Manager)(nil)
