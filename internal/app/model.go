// Package app is the terminal host over the playback service.
package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hashicorp/go-hclog"

	"github.com/llehouerou/reel/internal/errmsg"
	"github.com/llehouerou/reel/internal/keymap"
	"github.com/llehouerou/reel/internal/media"
	"github.com/llehouerou/reel/internal/notify"
	"github.com/llehouerou/reel/internal/playback"
	"github.com/llehouerou/reel/internal/render"
	"github.com/llehouerou/reel/internal/state"
)

const seekStep = 5 * time.Second

// Deps holds the collaborators of the model.
type Deps struct {
	Service playback.Service
	State   state.Interface // nil disables resume positions
	Tracker  *render.Tracker
	Notifier notify.Notifier // nil disables desktop notifications
	Stderr   <-chan string
	Logger   hclog.Logger
}

// Model is the bubbletea model of the player.
type Model struct {
	Service playback.Service
	State   state.Interface
	Tracker *render.Tracker

	sub      *playback.Subscription
	notifier notify.Notifier
	stderr   <-chan string
	keys     *keymap.Resolver
	logger   hclog.Logger

	// Desktop notification replaced by each new error
	errorNotification uint32

	url           string
	width         int
	decodingEnded bool
	finished      bool
	showHelp      bool
	status        string
	lastStderr    string
	closed        bool
}

// New creates the model for the media currently open in deps.Service.
func New(deps Deps) Model {
	logger := deps.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	tracker := deps.Tracker
	if tracker == nil {
		tracker = render.NewTracker()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.Disabled()
	}
	return Model{
		Service: deps.Service,
		State:   deps.State,
		Tracker: tracker,
		sub:      deps.Service.Subscribe(),
		notifier: notifier,
		stderr:   deps.Stderr,
		keys:     keymap.NewResolver(keymap.All),
		logger:   logger,
		url:      deps.Service.Stats().URL,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.WatchServiceEvents(),
		m.WatchStderr(),
		m.restoreCmd(),
		tickCmd(),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TickMsg:
		m.savePosition()
		return m, tickCmd()

	case ServiceStateChangedMsg:
		if msg.Current == media.StatePlay {
			m.finished = false
		}
		m.logger.Debug("state changed", "from", msg.Previous, "to", msg.Current)
		return m, m.WatchServiceEvents()

	case ServicePositionChangedMsg:
		m.finished = false
		return m, m.WatchServiceEvents()

	case ServiceDecodingEndedMsg:
		m.decodingEnded = msg.Ended
		return m, m.WatchServiceEvents()

	case ServiceMediaEndedMsg:
		m.finished = true
		m.clearPosition()
		return m, tea.Batch(m.WatchServiceEvents(), m.notifyCmd(notify.Notification{
			Title:   "Finished",
			Body:    msg.URL,
			Timeout: -1,
			Urgency: notify.UrgencyNormal,
		}, false))

	case ServiceErrorMsg:
		m.status = msg.Message
		return m, tea.Batch(m.WatchServiceEvents(), m.notifyCmd(notify.Notification{
			Title:      "Playback error",
			Body:       msg.Message,
			Timeout:    -1,
			ReplacesID: m.errorNotification,
			Urgency:    notify.UrgencyCritical,
		}, true))

	case NotifiedMsg:
		if msg.Err != nil {
			m.logger.Debug("desktop notification failed", "error", msg.Err)
		} else if msg.Error {
			m.errorNotification = msg.ID
		}
		return m, nil

	case ServiceClosedMsg:
		m.closed = true
		return m, nil

	case SeekResultMsg:
		switch {
		case msg.Err != nil:
			m.status = errmsg.Format(errmsg.OpPlaybackSeek, msg.Err)
		case !msg.OK:
			m.status = "Seek rejected"
		default:
			m.status = ""
		}
		return m, nil

	case StopResultMsg:
		if !msg.OK {
			m.status = "Stop rejected"
			return m, nil
		}
		m.status = ""
		m.clearPosition()
		return m, nil

	case PositionRestoredMsg:
		if msg.OK {
			m.status = "Resumed at " + formatDuration(msg.Position)
		}
		return m, nil

	case StderrMsg:
		m.lastStderr = msg.Line
		return m, m.WatchStderr()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.keys.Resolve(msg.String()) {
	case keymap.ActionQuit:
		m.savePosition()
		return m, tea.Quit
	case keymap.ActionHelp:
		m.showHelp = !m.showHelp
	case keymap.ActionPlayPause:
		if !m.Service.Toggle() {
			m.status = "Cannot " + m.toggleVerb()
		}
	case keymap.ActionStop:
		return m, m.stopCmd()
	case keymap.ActionSeekBack:
		return m, m.seekCmd(max(m.Service.Position()-seekStep, 0))
	case keymap.ActionSeekForward:
		return m, m.seekCmd(m.Service.Position() + seekStep)
	case keymap.ActionSeekStart:
		return m, m.seekCmd(0)
	case keymap.ActionForgetPosition:
		m.clearPosition()
		m.status = "Resume position cleared"
	}
	return m, nil
}

func (m Model) toggleVerb() string {
	if m.Service.State() == media.StatePlay {
		return "pause"
	}
	return "play"
}

// savePosition records the current position while media is playing or
// paused mid-way.
func (m Model) savePosition() {
	if m.State == nil || m.url == "" || m.finished {
		return
	}
	switch m.Service.State() {
	case media.StatePlay, media.StatePause:
		m.State.SavePosition(m.url, m.Service.Position(), m.Service.Duration())
	}
}

func (m *Model) clearPosition() {
	if m.State == nil || m.url == "" {
		return
	}
	if err := m.State.ClearPosition(m.url); err != nil {
		m.status = errmsg.FormatWith(errmsg.OpPositionClear, m.url, err)
	}
}
