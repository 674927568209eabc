//go:build !windows

// Package stderr redirects file descriptor 2 while the TUI owns the
// terminal. Native audio backends (ALSA through oto) write diagnostics
// straight to fd 2, which would otherwise corrupt the screen.
package stderr

import (
	"bufio"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// Capture holds a redirected stderr.
type Capture struct {
	orig  int
	read  *os.File
	write *os.File
	lines chan string
	done  chan struct{}
}

// Start redirects fd 2 into a pipe. The program can continue without a
// capture when it returns an error.
func Start() (*Capture, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}

	orig, err := unix.Dup(int(os.Stderr.Fd()))
	if err != nil {
		r.Close()
		w.Close()
		return nil, err
	}

	if err := unix.Dup2(int(w.Fd()), int(os.Stderr.Fd())); err != nil {
		unix.Close(orig)
		r.Close()
		w.Close()
		return nil, err
	}

	c := &Capture{
		orig:  orig,
		read:  r,
		write: w,
		lines: make(chan string, 100),
		done:  make(chan struct{}),
	}
	go c.scan()
	return c, nil
}

func (c *Capture) scan() {
	defer close(c.done)
	defer close(c.lines)
	scanner := bufio.NewScanner(c.read)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		select {
		case c.lines <- line:
		default:
			// Drop when nobody reads
		}
	}
}

// Lines returns the captured lines. It is closed after Stop.
func (c *Capture) Lines() <-chan string {
	return c.lines
}

// WriteOriginal writes to the terminal's stderr, bypassing the capture.
func (c *Capture) WriteOriginal(msg string) {
	_, _ = unix.Write(c.orig, []byte(msg))
}

// Stop restores fd 2 and waits for the reader to drain.
func (c *Capture) Stop() {
	_ = unix.Dup2(c.orig, int(os.Stderr.Fd()))
	_ = unix.Close(c.orig)
	c.write.Close()
	<-c.done
	c.read.Close()
}
