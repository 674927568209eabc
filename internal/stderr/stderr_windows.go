//go:build windows

// Package stderr is a pass-through on Windows, where audio backends do
// not write to the console.
package stderr

import "os"

// Capture is a no-op capture.
type Capture struct {
	lines chan string
}

// Start returns a capture that never receives lines.
func Start() (*Capture, error) {
	return &Capture{lines: make(chan string)}, nil
}

// Lines returns a channel closed by Stop.
func (c *Capture) Lines() <-chan string { return c.lines }

// WriteOriginal writes to stderr.
func (c *Capture) WriteOriginal(msg string) {
	_, _ = os.Stderr.WriteString(msg)
}

// Stop closes the line channel.
func (c *Capture) Stop() { close(c.lines) }
