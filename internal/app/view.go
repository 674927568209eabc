package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/llehouerou/reel/internal/icons"
	"github.com/llehouerou/reel/internal/keymap"
	"github.com/llehouerou/reel/internal/media"
)

var (
	playerBarStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

const defaultWidth = 72

func (m Model) View() string {
	if m.closed {
		return ""
	}

	width := m.width
	if width <= 0 {
		width = defaultWidth
	}
	// Subtract border and padding
	innerWidth := max(width-4, 20)

	lines := []string{
		titleStyle.Render(ansi.Truncate(m.url, innerWidth, "…")),
		m.progressLine(innerWidth),
		m.buffersLine(),
		m.decodingLine(),
	}
	if subtitle := m.Tracker.Subtitle(); subtitle != "" {
		lines = append(lines, ansi.Truncate("“"+subtitle+"”", innerWidth, "…"))
	}
	if m.status != "" {
		lines = append(lines, statusStyle.Render(m.status))
	}
	if m.lastStderr != "" {
		lines = append(lines, dimStyle.Render("audio: "+m.lastStderr))
	}
	if m.showHelp {
		lines = append(lines, "", m.helpView())
	} else {
		lines = append(lines, dimStyle.Render("? help"))
	}

	return playerBarStyle.Width(width - 2).Render(strings.Join(lines, "\n"))
}

func (m Model) progressLine(width int) string {
	pos, dur := m.Service.Position(), m.Service.Duration()

	left := " " + icons.State(m.Service.State()) + "  "
	right := fmt.Sprintf(" %s / %s", formatDuration(pos), formatDuration(dur))
	barWidth := width - lipgloss.Width(left) - lipgloss.Width(right)
	if barWidth < 1 {
		return left + right
	}

	percent := 0.0
	if dur > 0 {
		percent = min(float64(pos)/float64(dur), 1)
	}
	bar := progress.New(
		progress.WithSolidFill("39"),
		progress.WithoutPercentage(),
		progress.WithWidth(barWidth),
	)
	return left + bar.ViewAs(percent) + right
}

func (m Model) buffersLine() string {
	stats := m.Service.Stats()
	var parts []string
	for _, t := range []media.MediaType{media.Video, media.Audio, media.Subtitle} {
		capacity, ok := stats.Capacity[t]
		if !ok {
			continue
		}
		part := fmt.Sprintf("%s %d/%d", icons.FormatMediaType(t), stats.Buffered[t], capacity)
		if block, ok := m.Tracker.LastBlock(t); ok {
			part += dimStyle.Render(fmt.Sprintf(" #%d", block.Index))
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, "  ")
}

func (m Model) decodingLine() string {
	stats := m.Service.Stats()
	bitrate := humanize.SIWithDigits(float64(m.Service.DecodingBitrate()), 1, "bps")
	line := fmt.Sprintf("%s  %s frames  %s rendered  %s",
		stats.Strategy,
		humanize.Comma(stats.DecodedFrames),
		humanize.Comma(stats.Rendered),
		bitrate,
	)
	if m.decodingEnded {
		line += "  " + icons.Ended()
	}
	if stats.DecodeFailures > 0 {
		line += statusStyle.Render(fmt.Sprintf("  %d failed cycles", stats.DecodeFailures))
	}
	return dimStyle.Render(line)
}

func (m Model) helpView() string {
	var lines []string
	for _, context := range []string{"playback", "global"} {
		for _, b := range keymap.ByContext(context) {
			keys := strings.Join(m.keys.KeysFor(b.Action), "/")
			keys = strings.ReplaceAll(keys, " ", "space")
			lines = append(lines, fmt.Sprintf("%-14s %s", keys, b.Description))
		}
	}
	return dimStyle.Render(strings.Join(lines, "\n"))
}

// formatDuration formats d as m:ss, or h:mm:ss past an hour.
func formatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := int(d.Hours())
	mins := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, mins, secs)
	}
	return fmt.Sprintf("%d:%02d", mins, secs)
}
