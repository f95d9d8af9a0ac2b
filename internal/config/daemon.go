package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/entrykit/internal/model"
	"github.com/jmylchreest/entrykit/internal/queue"
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "150ms", "5s", "1m", or integer milliseconds.
// A value of "0" or 0 means the entry stays until dismissed.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '150ms', '5s', '1m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Milliseconds returns the duration in milliseconds.
func (d Duration) Milliseconds() int {
	return int(time.Duration(d).Milliseconds())
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// DaemonConfig is the configuration for entrykitd.
// Loaded from ~/.config/entrykit/entrykitd.toml
type DaemonConfig struct {
	Scheduler SchedulerConfig `toml:"scheduler"`
	Surface   SurfaceConfig   `toml:"surface"`
	Animation AnimationConfig `toml:"animation"`
	Durations DurationConfig  `toml:"durations"`
	Display   DisplayConfig   `toml:"display"`
	Audio     AudioConfig     `toml:"audio"`
	Journal   JournalConfig   `toml:"journal"`
	Internal  InternalConfig  `toml:"internal"`
}

// SchedulerConfig contains queueing settings.
type SchedulerConfig struct {
	Heuristic string `toml:"heuristic"` // "priority" or "fifo"
}

// SurfaceKind selects the presentation surface used by the daemon.
type SurfaceKind string

const (
	SurfacePopup    SurfaceKind = "popup"
	SurfaceNotify   SurfaceKind = "notify"
	SurfaceHeadless SurfaceKind = "headless"
)

// ValidSurfaceKinds returns all valid surface kinds.
func ValidSurfaceKinds() []SurfaceKind {
	return []SurfaceKind{SurfacePopup, SurfaceNotify, SurfaceHeadless}
}

// SurfaceConfig contains surface selection settings.
type SurfaceConfig struct {
	Kind    string `toml:"kind"`     // "popup", "notify" or "headless"
	AppName string `toml:"app_name"` // App name sent by the notify surface
}

// AnimationConfig contains enter and exit animation lengths.
type AnimationConfig struct {
	Enter Duration `toml:"enter"`
	Exit  Duration `toml:"exit"`
}

// DurationConfig contains the default display duration per priority band.
// It applies when a request asks for the configured default.
type DurationConfig struct {
	Low    Duration `toml:"low"`
	Normal Duration `toml:"normal"`
	High   Duration `toml:"high"`
	Max    Duration `toml:"max"`
}

// DisplayConfig contains popup placement settings.
type DisplayConfig struct {
	Position    string  `toml:"position"`     // "top-right", "top-left", etc.
	OffsetX     int     `toml:"offset_x"`     // Pixels from screen edge
	OffsetY     int     `toml:"offset_y"`     // Pixels from screen edge
	Width       int     `toml:"width"`        // Popup width in pixels
	Opacity     float64 `toml:"opacity"`      // 0.0-1.0
	ColorScheme string  `toml:"color_scheme"` // "system", "light", or "dark"
	Theme       string  `toml:"theme"`        // Theme name or path to a .css file
}

// AudioConfig contains audio settings.
type AudioConfig struct {
	Enabled bool        `toml:"enabled"`
	Volume  int         `toml:"volume"` // 0-100
	Sounds  SoundConfig `toml:"sounds"`
}

// SoundConfig contains per-band sound file paths.
type SoundConfig struct {
	Low    string `toml:"low"`
	Normal string `toml:"normal"`
	High   string `toml:"high"`
	Max    string `toml:"max"`
}

// JournalConfig contains lifecycle journal settings.
type JournalConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"` // Empty uses the data directory; a .db path selects SQLite
	// MaxRecords trims the journal to the newest records at startup (0=unbounded).
	MaxRecords int `toml:"max_records"`
}

// InternalConfig controls entries the daemon raises about itself.
type InternalConfig struct {
	Enabled   bool     `toml:"enabled"`
	RateLimit Duration `toml:"rate_limit"` // Minimum gap between identical messages
}

// ColorScheme represents the color scheme preference.
type ColorScheme string

const (
	ColorSchemeSystem ColorScheme = "system"
	ColorSchemeLight  ColorScheme = "light"
	ColorSchemeDark   ColorScheme = "dark"
)

// ValidColorSchemes returns all valid color scheme values.
func ValidColorSchemes() []ColorScheme {
	return []ColorScheme{ColorSchemeSystem, ColorSchemeLight, ColorSchemeDark}
}

// Position represents a popup position on screen.
type Position string

const (
	PositionTopLeft      Position = "top-left"
	PositionTopRight     Position = "top-right"
	PositionTopCenter    Position = "top-center"
	PositionBottomLeft   Position = "bottom-left"
	PositionBottomRight  Position = "bottom-right"
	PositionBottomCenter Position = "bottom-center"
)

// ValidPositions returns all valid position values.
func ValidPositions() []Position {
	return []Position{
		PositionTopLeft,
		PositionTopRight,
		PositionTopCenter,
		PositionBottomLeft,
		PositionBottomRight,
		PositionBottomCenter,
	}
}

// DefaultDaemonConfig returns a new DaemonConfig with default values.
func DefaultDaemonConfig() *DaemonConfig {
	return &DaemonConfig{
		Scheduler: SchedulerConfig{
			Heuristic: string(queue.HeuristicPriority),
		},
		Surface: SurfaceConfig{
			Kind:    string(SurfacePopup),
			AppName: "entrykit",
		},
		Animation: AnimationConfig{
			Enter: Duration(150 * time.Millisecond),
			Exit:  Duration(200 * time.Millisecond),
		},
		Durations: DurationConfig{
			Low:    Duration(4 * time.Second),
			Normal: Duration(6 * time.Second),
			High:   Duration(10 * time.Second),
			Max:    Duration(0), // Until dismissed
		},
		Display: DisplayConfig{
			Position:    string(PositionTopCenter),
			OffsetX:     10,
			OffsetY:     10,
			Width:       400,
			Opacity:     1.0,
			ColorScheme: string(ColorSchemeSystem),
			Theme:       "default",
		},
		Audio: AudioConfig{
			Enabled: false,
			Volume:  80,
		},
		Journal: JournalConfig{
			Enabled:    true,
			MaxRecords: 10000,
		},
		Internal: InternalConfig{
			Enabled:   true,
			RateLimit: Duration(30 * time.Second),
		},
	}
}

// DaemonConfigPath returns the path to the daemon config file.
func DaemonConfigPath() string {
	return filepath.Join(configHome(), "entrykit", "entrykitd.toml")
}

// LoadDaemonConfig loads the daemon configuration from the default path.
// If the file doesn't exist, returns the default configuration.
func LoadDaemonConfig() (*DaemonConfig, error) {
	return LoadDaemonConfigFrom(DaemonConfigPath())
}

// LoadDaemonConfigFrom loads the daemon configuration from path.
func LoadDaemonConfigFrom(path string) (*DaemonConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultDaemonConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	config := DefaultDaemonConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SaveDaemonConfig saves the daemon configuration to path.
func SaveDaemonConfig(config *DaemonConfig, path string) error {
	if path == "" {
		path = DaemonConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *DaemonConfig) Validate() error {
	if _, err := queue.ParseHeuristic(c.Scheduler.Heuristic); err != nil {
		return err
	}

	if !slices.Contains(ValidSurfaceKinds(), SurfaceKind(c.Surface.Kind)) {
		return fmt.Errorf("invalid surface kind %q, must be one of: %v", c.Surface.Kind, ValidSurfaceKinds())
	}

	if !slices.Contains(ValidPositions(), Position(c.Display.Position)) {
		return fmt.Errorf("invalid position %q, must be one of: %v", c.Display.Position, ValidPositions())
	}
	if !slices.Contains(ValidColorSchemes(), ColorScheme(c.Display.ColorScheme)) {
		return fmt.Errorf("invalid color scheme %q, must be one of: %v", c.Display.ColorScheme, ValidColorSchemes())
	}

	if c.Display.Width < 100 || c.Display.Width > 2000 {
		return fmt.Errorf("width must be between 100 and 2000, got %d", c.Display.Width)
	}
	if c.Display.Opacity < 0 || c.Display.Opacity > 1 {
		return fmt.Errorf("opacity must be between 0.0 and 1.0, got %g", c.Display.Opacity)
	}

	if c.Animation.Enter < 0 || c.Animation.Exit < 0 {
		return fmt.Errorf("animation durations cannot be negative")
	}
	for band, d := range c.durationsByBand() {
		if d < 0 {
			return fmt.Errorf("duration for band %q cannot be negative", band)
		}
	}

	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Audio.Volume)
	}
	if c.Journal.MaxRecords < 0 {
		return fmt.Errorf("journal max_records must not be negative, got %d", c.Journal.MaxRecords)
	}

	return nil
}

// QueueHeuristic returns the configured heuristic. Validate must have passed.
func (c *DaemonConfig) QueueHeuristic() queue.Heuristic {
	h, err := queue.ParseHeuristic(c.Scheduler.Heuristic)
	if err != nil {
		return queue.HeuristicPriority
	}
	return h
}

func (c *DaemonConfig) durationsByBand() map[model.Band]Duration {
	return map[model.Band]Duration{
		model.BandLow:    c.Durations.Low,
		model.BandNormal: c.Durations.Normal,
		model.BandHigh:   c.Durations.High,
		model.BandMax:    c.Durations.Max,
	}
}

// DurationForPriority returns the default display duration for a priority.
func (c *DaemonConfig) DurationForPriority(p model.Priority) time.Duration {
	return c.durationsByBand()[p.Band()].Duration()
}

// SoundForBand returns the sound file path for the given band.
// Expands ~ to home directory.
func (c *DaemonConfig) SoundForBand(band model.Band) string {
	var path string
	switch band {
	case model.BandLow:
		path = c.Audio.Sounds.Low
	case model.BandHigh:
		path = c.Audio.Sounds.High
	case model.BandMax:
		path = c.Audio.Sounds.Max
	default:
		path = c.Audio.Sounds.Normal
	}
	return ExpandPath(path)
}

// JournalPath returns the configured journal path or the default.
func (c *DaemonConfig) JournalPath() string {
	if c.Journal.Path != "" {
		return ExpandPath(c.Journal.Path)
	}
	return JournalPath()
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
