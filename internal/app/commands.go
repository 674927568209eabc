package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/llehouerou/reel/internal/errmsg"
	"github.com/llehouerou/reel/internal/notify"
)

const (
	tickInterval = 250 * time.Millisecond
	seekTimeout  = 5 * time.Second
)

// waitForChannel creates a command that waits for a value from a channel and converts it to a message.
// onResult receives the value and a boolean indicating if the channel is still open (false means channel closed).
func waitForChannel[T any](ch <-chan T, onResult func(T, bool) tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		result, ok := <-ch
		return onResult(result, ok)
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// WatchServiceEvents returns a command that waits for playback service events.
// It listens on all subscription channels and converts events to tea.Msg.
func (m Model) WatchServiceEvents() tea.Cmd {
	if m.sub == nil {
		return nil
	}
	sub := m.sub
	return func() tea.Msg {
		select {
		case e := <-sub.StateChanged:
			return ServiceStateChangedMsg{Previous: e.Previous, Current: e.Current}
		case e := <-sub.PositionChanged:
			return ServicePositionChangedMsg{Position: e.Position}
		case e := <-sub.DecodingEndedChanged:
			return ServiceDecodingEndedMsg{Ended: e.Ended}
		case e := <-sub.MediaEnded:
			return ServiceMediaEndedMsg{URL: e.URL, Position: e.Position}
		case e := <-sub.Error:
			return ServiceErrorMsg{Message: e.Message()}
		case <-sub.Done:
			return ServiceClosedMsg{}
		}
	}
}

// WatchStderr returns a command that waits for captured stderr output.
func (m Model) WatchStderr() tea.Cmd {
	return waitForChannel(m.stderr, func(line string, ok bool) tea.Msg {
		if !ok {
			return nil // Channel closed
		}
		return StderrMsg{Line: line}
	})
}

func (m Model) seekCmd(target time.Duration) tea.Cmd {
	svc := m.Service
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), seekTimeout)
		defer cancel()
		ok, err := svc.SeekTo(ctx, target)
		return SeekResultMsg{Target: target, OK: ok, Err: err}
	}
}

func (m Model) stopCmd() tea.Cmd {
	svc := m.Service
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), seekTimeout)
		defer cancel()
		return StopResultMsg{OK: svc.Stop(ctx)}
	}
}

// restoreCmd seeks to the saved resume position of the open media.
func (m Model) restoreCmd() tea.Cmd {
	if m.State == nil || m.url == "" {
		return nil
	}
	svc, store, url := m.Service, m.State, m.url
	return func() tea.Msg {
		p, err := store.GetPosition(url)
		if err != nil {
			return ServiceErrorMsg{Message: errmsg.FormatWith(errmsg.OpPositionLoad, url, err)}
		}
		if p == nil || !p.Resumable() {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), seekTimeout)
		defer cancel()
		ok, _ := svc.SeekTo(ctx, p.Position)
		return PositionRestoredMsg{Position: p.Position, OK: ok}
	}
}

func (m Model) notifyCmd(n notify.Notification, isError bool) tea.Cmd {
	notifier := m.notifier
	return func() tea.Msg {
		id, err := notifier.Notify(n)
		return NotifiedMsg{ID: id, Error: isError, Err: err}
	}
}
