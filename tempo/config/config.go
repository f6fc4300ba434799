// Package config loads and saves the TOML run configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/kirsle/configdir"

	"github.com/valerio/go-tempo/tempo/audio"
	"github.com/valerio/go-tempo/tempo/hw"
	"github.com/valerio/go-tempo/tempo/timing"
)

const (
	appName     = "tempo"
	cfgFilename = "config.toml"
)

var (
	// ErrUnsupportedSampleRate is returned for audio output rates the mixer
	// cannot produce.
	ErrUnsupportedSampleRate = audio.ErrUnsupportedSampleRate
	// ErrInvalid is wrapped by every other validation failure.
	ErrInvalid = errors.New("invalid config")
)

type Config struct {
	Hardware HardwareConfig `toml:"hardware"`
	Audio    AudioConfig    `toml:"audio"`
	Video    VideoConfig    `toml:"video"`
	Run      RunConfig      `toml:"run"`
}

type HardwareConfig struct {
	Revision    string `toml:"revision"`
	DoubleSpeed bool   `toml:"double_speed"`
}

type AudioConfig struct {
	SampleRate  int   `toml:"sample_rate"`
	MixInterval int   `toml:"mix_interval"`
	Muted       []int `toml:"muted"`
}

type VideoConfig struct {
	// SnapshotInterval saves every Nth frame as a PNG; 0 disables it.
	SnapshotInterval int    `toml:"snapshot_interval"`
	SnapshotDir      string `toml:"snapshot_dir"`
}

type RunConfig struct {
	// Frames stops the session after this many frames; 0 runs until quit.
	Frames   int    `toml:"frames"`
	Limiter  string `toml:"limiter"`
	LogLevel string `toml:"log_level"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Hardware: HardwareConfig{Revision: hw.DMG.String()},
		Audio: AudioConfig{
			SampleRate:  48000,
			MixInterval: audio.DefaultMixInterval,
		},
		Video: VideoConfig{SnapshotDir: "snapshots"},
		Run: RunConfig{
			Limiter:  timing.KindAdaptive,
			LogLevel: "info",
		},
	}
}

// DefaultPath returns the config file location in the user's config
// directory.
func DefaultPath() string {
	return filepath.Join(configdir.LocalConfig(appName), cfgFilename)
}

// Load reads path on top of the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("loading config %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		slog.Warn("Unknown config key", "key", key.String(), "file", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("loading config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
// An empty path selects DefaultPath.
func LoadOrDefault(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("No config file, using defaults", "path", path)
		return Default(), nil
	}
	return cfg, err
}

// Save writes cfg to path, creating its directory if needed.
func Save(path string, cfg Config) error {
	buf, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := configdir.MakePath(filepath.Dir(path)); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("saving config %s: %w", path, err)
	}
	return nil
}

// Validate checks every field against what the emulator can run.
func (c Config) Validate() error {
	rev, err := hw.ParseRevision(c.Hardware.Revision)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Hardware.DoubleSpeed && !rev.SupportsDoubleSpeed() {
		return fmt.Errorf("%w: double speed needs the cgb revision", ErrInvalid)
	}

	if c.Audio.SampleRate != 44100 && c.Audio.SampleRate != 48000 {
		return fmt.Errorf("%w: %d Hz", ErrUnsupportedSampleRate, c.Audio.SampleRate)
	}
	if c.Audio.MixInterval <= 0 {
		return fmt.Errorf("%w: mix_interval must be positive, got %d", ErrInvalid, c.Audio.MixInterval)
	}
	for _, ch := range c.Audio.Muted {
		if ch < 1 || ch > 4 {
			return fmt.Errorf("%w: muted channel %d out of range 1-4", ErrInvalid, ch)
		}
	}

	if c.Video.SnapshotInterval < 0 {
		return fmt.Errorf("%w: negative snapshot_interval", ErrInvalid)
	}
	if c.Run.Frames < 0 {
		return fmt.Errorf("%w: negative frames", ErrInvalid)
	}
	switch c.Run.Limiter {
	case timing.KindAdaptive, timing.KindTicker, timing.KindNone:
	default:
		return fmt.Errorf("%w: unknown limiter %q", ErrInvalid, c.Run.Limiter)
	}
	if _, err := ParseLevel(c.Run.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Revision returns the configured hardware revision. It assumes the config
// has been validated.
func (c Config) Revision() hw.Revision {
	rev, _ := hw.ParseRevision(c.Hardware.Revision)
	return rev
}

// Level returns the configured log level, defaulting to info.
func (c Config) Level() slog.Level {
	level, err := ParseLevel(c.Run.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// ParseLevel accepts debug, info, warn and error.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}
