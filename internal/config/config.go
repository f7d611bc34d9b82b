// Package config loads the layered TOML configuration and validates it
// before any hardware is touched.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ErrConfiguration is returned for invalid configuration values.
var ErrConfiguration = errors.New("invalid configuration")

const appName = "musicbox"

// Highest BCM GPIO number on the 40-pin header.
const maxPin = 27

// Default values applied by the getters.
const (
	DefaultListen         = ":8080"
	DefaultWriteTimeout   = 5 * time.Second
	DefaultOutboundBuffer = 64
	DefaultCommandTimeout = 3 * time.Second
	DefaultMPDNetwork     = "tcp"
	DefaultMPDAddress     = "localhost:6600"
	DefaultVolumeStep     = 5
	DefaultBrightness     = 1.0
	DefaultLogLevel       = "info"
	DefaultNFCCacheSize   = 128
)

// Button names accepted in [controls.pins].
const (
	ButtonPlay       = "play"
	ButtonPause      = "pause"
	ButtonToggle     = "toggle"
	ButtonStop       = "stop"
	ButtonNext       = "next"
	ButtonPrevious   = "previous"
	ButtonVolumeUp   = "volume_up"
	ButtonVolumeDown = "volume_down"
	ButtonRepeat     = "repeat"
	ButtonShuffle    = "shuffle"
)

// Buttons returns the known button names, sorted.
func Buttons() []string {
	b := []string{
		ButtonPlay, ButtonPause, ButtonToggle, ButtonStop, ButtonNext,
		ButtonPrevious, ButtonVolumeUp, ButtonVolumeDown, ButtonRepeat, ButtonShuffle,
	}
	sort.Strings(b)
	return b
}

// Backend names accepted in [audio] backends.
var knownBackends = []string{"mpd", "speaker", "noop"}

// Indicator sink names accepted in [indicator] sinks.
var knownSinks = []string{"log", "notify"}

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Audio     AudioConfig     `koanf:"audio"`
	Database  DatabaseConfig  `koanf:"database"`
	Controls  ControlsConfig  `koanf:"controls"`
	Indicator IndicatorConfig `koanf:"indicator"`
	NFC       NFCConfig       `koanf:"nfc"`
	Log       LogConfig       `koanf:"log"`
	MPRIS     MPRISConfig     `koanf:"mpris"`
}

// ServerConfig holds the client gateway settings.
type ServerConfig struct {
	Listen         string        `koanf:"listen"`          // e.g., ":8080"
	WriteTimeout   time.Duration `koanf:"write_timeout"`   // per-message write deadline
	OutboundBuffer int           `koanf:"outbound_buffer"` // queued events per client
}

// AudioConfig holds backend selection settings.
type AudioConfig struct {
	Mock           bool          `koanf:"mock"`
	Backends       []string      `koanf:"backends"` // priority order, default ["mpd", "speaker"]
	CommandTimeout time.Duration `koanf:"command_timeout"`
	MusicDir       string        `koanf:"music_dir"`
	MPD            MPDConfig     `koanf:"mpd"`
}

// MPDConfig holds the MPD connection settings.
type MPDConfig struct {
	Network  string `koanf:"network"`
	Address  string `koanf:"address"`
	Password string `koanf:"password"`
}

// DatabaseConfig holds the SQLite location.
type DatabaseConfig struct {
	Path string `koanf:"path"` // empty means XDG data dir
}

// ControlsConfig holds the physical input settings.
type ControlsConfig struct {
	Enabled    bool           `koanf:"enabled"`
	Input      string         `koanf:"input"` // FIFO written by the GPIO daemon, "-" for stdin
	Pins       map[string]int `koanf:"pins"`  // button name → BCM pin
	RotaryA    *int           `koanf:"rotary_a"`
	RotaryB    *int           `koanf:"rotary_b"`
	VolumeStep int            `koanf:"volume_step"`
}

// IndicatorConfig holds the indicator light settings.
type IndicatorConfig struct {
	Sinks      []string `koanf:"sinks"`      // "log", "notify"
	Brightness *float64 `koanf:"brightness"` // 0.0-1.0 (default: 1.0)
}

// NFCConfig holds the tag resolver settings.
type NFCConfig struct {
	CacheSize int `koanf:"cache_size"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`  // trace, debug, info, warn, error
	Format string `koanf:"format"` // "console", "json" or empty for auto
}

// MPRISConfig holds the desktop media key settings.
type MPRISConfig struct {
	Enabled bool `koanf:"enabled"`
}

// Load reads the config files in priority order (last wins), then the
// explicit path if set, then applies overrides keyed by dotted path
// (e.g. "audio.mock").
func Load(explicit string, overrides map[string]any) (*Config, error) {
	k := koanf.New(".")

	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		}
	}

	if explicit != "" {
		if err := k.Load(file.Provider(expandPath(explicit)), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", explicit, err)
		}
	}

	for key, value := range overrides {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("override %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	cfg.Audio.MusicDir = expandPath(cfg.Audio.MusicDir)
	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Controls.Input = expandPath(cfg.Controls.Input)

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. $XDG_CONFIG_HOME/musicbox/config.toml
	paths = append(paths, filepath.Join(xdg.ConfigHome, appName, "config.toml"))

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

// Validate checks every value that would otherwise fail late. All
// problems are reported together, each wrapping ErrConfiguration.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrConfiguration}, args...)...))
	}

	if c.Server.WriteTimeout < 0 {
		add("server.write_timeout must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Server.OutboundBuffer < 0 {
		add("server.outbound_buffer must be positive, got %d", c.Server.OutboundBuffer)
	}
	if c.Audio.CommandTimeout < 0 {
		add("audio.command_timeout must be positive, got %s", c.Audio.CommandTimeout)
	}
	for _, b := range c.Audio.Backends {
		if !slices.Contains(knownBackends, b) {
			add("unknown audio backend %q", b)
		}
	}
	for _, s := range c.Indicator.Sinks {
		if !slices.Contains(knownSinks, s) {
			add("unknown indicator sink %q", s)
		}
	}
	if b := c.Indicator.Brightness; b != nil && (*b < 0 || *b > 1) {
		add("indicator.brightness must be within 0..1, got %g", *b)
	}
	if c.Controls.VolumeStep < 0 {
		add("controls.volume_step must be positive, got %d", c.Controls.VolumeStep)
	}
	if c.NFC.CacheSize < 0 {
		add("nfc.cache_size must be positive, got %d", c.NFC.CacheSize)
	}
	if _, ok := logLevels[strings.ToLower(c.Log.Level)]; !ok {
		add("unknown log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		add("unknown log format %q", c.Log.Format)
	}

	errs = append(errs, c.validatePins()...)
	return errors.Join(errs...)
}

var logLevels = map[string]struct{}{
	"": {}, "trace": {}, "debug": {}, "info": {}, "warn": {}, "error": {},
}

func (c *Config) validatePins() []error {
	var errs []error
	used := make(map[int]string)
	claim := func(name string, pin int) {
		if pin < 0 || pin > maxPin {
			errs = append(errs, fmt.Errorf("%w: pin %d for %s outside 0..%d", ErrConfiguration, pin, name, maxPin))
			return
		}
		if other, ok := used[pin]; ok {
			errs = append(errs, fmt.Errorf("%w: pin %d assigned to both %s and %s", ErrConfiguration, pin, other, name))
			return
		}
		used[pin] = name
	}

	names := make([]string, 0, len(c.Controls.Pins))
	for name := range c.Controls.Pins {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !slices.Contains(Buttons(), name) {
			errs = append(errs, fmt.Errorf("%w: unknown button %q", ErrConfiguration, name))
			continue
		}
		claim(name, c.Controls.Pins[name])
	}

	a, b := c.Controls.RotaryA, c.Controls.RotaryB
	if (a == nil) != (b == nil) {
		errs = append(errs, fmt.Errorf("%w: rotary_a and rotary_b must be set together", ErrConfiguration))
	}
	if a != nil {
		claim("rotary_a", *a)
	}
	if b != nil {
		claim("rotary_b", *b)
	}
	return errs
}

// GetServer returns the server configuration with defaults applied.
func (c *Config) GetServer() ServerConfig {
	cfg := c.Server
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.OutboundBuffer <= 0 {
		cfg.OutboundBuffer = DefaultOutboundBuffer
	}
	return cfg
}

// GetAudio returns the audio configuration with defaults applied.
func (c *Config) GetAudio() AudioConfig {
	cfg := c.Audio
	if len(cfg.Backends) == 0 {
		cfg.Backends = []string{"mpd", "speaker"}
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = DefaultCommandTimeout
	}
	if cfg.MPD.Network == "" {
		cfg.MPD.Network = DefaultMPDNetwork
	}
	if cfg.MPD.Address == "" {
		cfg.MPD.Address = DefaultMPDAddress
	}
	return cfg
}

// GetControls returns the controls configuration with defaults applied.
func (c *Config) GetControls() ControlsConfig {
	cfg := c.Controls
	if cfg.VolumeStep <= 0 {
		cfg.VolumeStep = DefaultVolumeStep
	}
	if cfg.Input == "" {
		cfg.Input = "-"
	}
	return cfg
}

// GetIndicator returns the indicator configuration with defaults applied.
func (c *Config) GetIndicator() IndicatorConfig {
	cfg := c.Indicator
	if len(cfg.Sinks) == 0 {
		cfg.Sinks = []string{"log"}
	}
	if cfg.Brightness == nil {
		b := DefaultBrightness
		cfg.Brightness = &b
	}
	return cfg
}

// GetNFC returns the NFC configuration with defaults applied.
func (c *Config) GetNFC() NFCConfig {
	cfg := c.NFC
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultNFCCacheSize
	}
	return cfg
}

// GetLog returns the logging configuration with defaults applied.
func (c *Config) GetLog() LogConfig {
	cfg := c.Log
	if cfg.Level == "" {
		cfg.Level = DefaultLogLevel
	}
	cfg.Level = strings.ToLower(cfg.Level)
	return cfg
}
