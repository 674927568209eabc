package icons

import "github.com/llehouerou/reel/internal/media"

// Style represents the icon style to use.
type Style string

const (
	StyleNerd    Style = "nerd"
	StyleUnicode Style = "unicode"
	StyleNone    Style = "none"
)

// Icons holds the icon characters for the current style.
type Icons struct {
	Play     string
	Pause    string
	Stop     string
	Video    string
	Audio    string
	Subtitle string
	Ended    string
}

var (
	nerdIcons = Icons{
		Play:     "\uf04b",      // nf-fa-play
		Pause:    "\uf04c",      // nf-fa-pause
		Stop:     "\uf04d",      // nf-fa-stop
		Video:    "\U000f0567 ", // nf-md-video
		Audio:    "\uf001 ",     // nf-fa-music
		Subtitle: "\U000f0a16 ", // nf-md-subtitles
		Ended:    "\U000f023c",  // nf-md-flag_checkered
	}

	unicodeIcons = Icons{
		Play:     "▶",
		Pause:    "⏸",
		Stop:     "⏹",
		Video:    "🎞 ",
		Audio:    "🎵 ",
		Subtitle: "💬 ",
		Ended:    "🏁",
	}

	noneIcons = Icons{
		Play:     ">",
		Pause:    "||",
		Stop:     "[]",
		Video:    "",
		Audio:    "",
		Subtitle: "",
		Ended:    "(end)",
	}

	// current holds the active icon set
	current = unicodeIcons
)

// Init initializes the icons based on the style.
// Call this once at startup with the config value.
func Init(style string) {
	switch Style(style) {
	case StyleNerd:
		current = nerdIcons
	case StyleNone:
		current = noneIcons
	default:
		current = unicodeIcons
	}
}

// State returns the icon of a playback state. StateNone has no icon.
func State(s media.PlaybackState) string {
	switch s {
	case media.StatePlay:
		return current.Play
	case media.StatePause:
		return current.Pause
	case media.StateStop:
		return current.Stop
	default:
		return " "
	}
}

// FormatMediaType prefixes the name of t with its icon.
func FormatMediaType(t media.MediaType) string {
	switch t {
	case media.Video:
		return current.Video + t.String()
	case media.Audio:
		return current.Audio + t.String()
	case media.Subtitle:
		return current.Subtitle + t.String()
	default:
		return t.String()
	}
}

// Ended returns the end-of-stream marker.
func Ended() string {
	return current.Ended
}
