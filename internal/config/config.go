package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/llehouerou/reel/internal/media"
)

type Config struct {
	Icons     string          `koanf:"icons"` // "nerd", "unicode", "none" (default: "unicode")
	Log       LogConfig       `koanf:"log"`
	Buffers   BuffersConfig   `koanf:"buffers"`
	Decoding  DecodingConfig  `koanf:"decoding"`
	Rendering RenderingConfig `koanf:"rendering"`
	State     StateConfig     `koanf:"state"`

	// Generated source opened by the player
	Source SourceConfig `koanf:"source"`

	// Speaker output (disabled by default)
	Audio AudioConfig `koanf:"audio"`

	// Session bus integrations (Linux)
	Desktop DesktopConfig `koanf:"desktop"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `koanf:"level"` // "trace", "debug", "info", "warn", "error" (default: "info")
	File  string `koanf:"file"`  // log file path; empty disables logging in the TUI
}

// BuffersConfig holds the block buffer capacities per media type.
type BuffersConfig struct {
	Video    int `koanf:"video"`    // default: 12
	Audio    int `koanf:"audio"`    // default: 48
	Subtitle int `koanf:"subtitle"` // default: 16
}

// DecodingConfig holds decoding worker configuration.
type DecodingConfig struct {
	Parallel bool          `koanf:"parallel"` // decode media types concurrently
	Interval time.Duration `koanf:"interval"` // cycle interval (default: 10ms)
}

// RenderingConfig holds render worker configuration.
type RenderingConfig struct {
	Interval time.Duration `koanf:"interval"` // cycle interval (default: 5ms)
}

// StateConfig holds resume position persistence configuration.
type StateConfig struct {
	Enabled *bool  `koanf:"enabled"` // default: true
	Path    string `koanf:"path"`    // database path; empty uses the XDG data dir
}

// SourceConfig describes the generated source.
type SourceConfig struct {
	URL              string        `koanf:"url"`               // default: "synthetic://demo"
	Duration         time.Duration `koanf:"duration"`          // default: 3m
	FPS              int           `koanf:"fps"`               // 0 with still_picture for audio with cover art (default: 25)
	StillPicture     bool          `koanf:"still_picture"`     // single cover image instead of video
	AudioFrame       time.Duration `koanf:"audio_frame"`       // default: 20ms
	SampleRate       int           `koanf:"sample_rate"`       // default: 44100
	SubtitleInterval time.Duration `koanf:"subtitle_interval"` // 0 disables subtitles (default: 4s)
	Pausable         *bool         `koanf:"pausable"`          // default: true
	Seekable         *bool         `koanf:"seekable"`          // default: true
}

// AudioConfig holds speaker output configuration.
type AudioConfig struct {
	Enabled bool `koanf:"enabled"`
}

// DesktopConfig holds D-Bus integration configuration.
type DesktopConfig struct {
	MPRIS         *bool `koanf:"mpris"`         // media keys and desktop controls (default: true)
	Notifications bool  `koanf:"notifications"` // notify on media end and errors
}

func Load() (*Config, error) {
	return loadFrom(getConfigPaths())
}

func loadFrom(paths []string) (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	// Expand ~ in paths
	cfg.Log.File = expandPath(cfg.Log.File)
	cfg.State.Path = expandPath(cfg.State.Path)

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/reel/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "reel", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// GetLogConfig returns the logging configuration with defaults applied.
func (c *Config) GetLogConfig() LogConfig {
	cfg := c.Log
	switch cfg.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		cfg.Level = "info"
	}
	return cfg
}

// GetBuffersConfig returns the buffer capacities with defaults applied.
func (c *Config) GetBuffersConfig() BuffersConfig {
	cfg := c.Buffers
	if cfg.Video <= 0 {
		cfg.Video = 12
	}
	if cfg.Audio <= 0 {
		cfg.Audio = 48
	}
	if cfg.Subtitle <= 0 {
		cfg.Subtitle = 16
	}
	return cfg
}

// Capacities returns the buffer capacities keyed by media type.
func (b BuffersConfig) Capacities() map[media.MediaType]int {
	return map[media.MediaType]int{
		media.Video:    b.Video,
		media.Audio:    b.Audio,
		media.Subtitle: b.Subtitle,
	}
}

// GetDecodingConfig returns the decoding configuration with defaults applied.
func (c *Config) GetDecodingConfig() DecodingConfig {
	cfg := c.Decoding
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Millisecond
	}
	return cfg
}

// GetRenderingConfig returns the rendering configuration with defaults applied.
func (c *Config) GetRenderingConfig() RenderingConfig {
	cfg := c.Rendering
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Millisecond
	}
	return cfg
}

// IsStateEnabled returns true unless resume positions are disabled.
func (c *Config) IsStateEnabled() bool {
	return c.State.Enabled == nil || *c.State.Enabled
}

// IsMPRISEnabled returns true unless MPRIS is disabled.
func (c *Config) IsMPRISEnabled() bool {
	return c.Desktop.MPRIS == nil || *c.Desktop.MPRIS
}

// GetSourceConfig returns the source configuration with defaults applied.
func (c *Config) GetSourceConfig() SourceConfig {
	cfg := c.Source
	if cfg.URL == "" {
		cfg.URL = "synthetic://demo"
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 3 * time.Minute
	}
	if cfg.FPS <= 0 && !cfg.StillPicture {
		cfg.FPS = 25
	}
	if cfg.AudioFrame <= 0 {
		cfg.AudioFrame = 20 * time.Millisecond
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44100
	}
	if cfg.SubtitleInterval < 0 {
		cfg.SubtitleInterval = 0
	} else if cfg.SubtitleInterval == 0 {
		cfg.SubtitleInterval = 4 * time.Second
	}
	if cfg.Pausable == nil {
		cfg.Pausable = boolPtr(true)
	}
	if cfg.Seekable == nil {
		cfg.Seekable = boolPtr(true)
	}
	return cfg
}

func boolPtr(v bool) *bool { return &v }
