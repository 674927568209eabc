// internal/state/mock.go
package state

import (
	"sync"
	"time"
)

// Mock is a test double for Manager.
type Mock struct {
	mu        sync.Mutex
	positions map[string]Position
	saves     int
	closed    bool
}

// NewMock creates a new mock state manager for testing.
func NewMock() *Mock {
	return &Mock{positions: make(map[string]Position)}
}

func (m *Mock) SavePosition(url string, position, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.positions[url] = Position{URL: url, Position: position, Duration: duration, UpdatedAt: time.Now()}
}

func (m *Mock) GetPosition(url string) (*Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[url]
	if !ok {
		return nil, nil //nolint:nilnil // mirrors Manager
	}
	return &p, nil
}

func (m *Mock) ClearPosition(url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.positions, url)
	return nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Test helpers

func (m *Mock) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *Mock) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Verify Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
