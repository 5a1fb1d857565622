// Package config loads the g3dview configuration file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Renderer RendererConfig `toml:"renderer"`
	Model    ModelConfig    `toml:"model"`
	Outline  OutlineConfig  `toml:"outline"`
	Controls ControlsConfig `toml:"controls"`
	Logging  LoggingConfig  `toml:"logging"`
}

type RendererConfig struct {
	Width     int    `toml:"width"`
	Height    int    `toml:"height"`
	Antialias bool   `toml:"antialias"`
	Backend   string `toml:"backend"` // "vulkan" or "noop"
	Power     string `toml:"power"`   // "high-performance" or "low-power"
	Clear     string `toml:"clear_color"`
	Frames    int    `toml:"frames"`
}

type ModelConfig struct {
	URL     string        `toml:"url"`
	Timeout time.Duration `toml:"timeout"`
}

type OutlineConfig struct {
	Enabled   bool          `toml:"enabled"`
	Strength  float64       `toml:"strength"`
	Glow      float64       `toml:"glow"`
	Thickness float64       `toml:"thickness"`
	Visible   string        `toml:"visible_color"`
	Hidden    string        `toml:"hidden_color"`
	Pulse     time.Duration `toml:"pulse_period"`
}

type ControlsConfig struct {
	Damping bool `toml:"damping"`

	// OrbitSpeed is the horizontal pointer movement, in pixels, simulated
	// per frame.
	OrbitSpeed float64 `toml:"orbit_speed"`
}

type LoggingConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// Load reads path over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration used without a config file.
func Default() *Config {
	return &Config{
		Renderer: RendererConfig{
			Width:     800,
			Height:    600,
			Antialias: true,
			Backend:   "vulkan",
			Power:     "high-performance",
			Clear:     "#000000",
			Frames:    60,
		},
		Model: ModelConfig{
			Timeout: 30 * time.Second,
		},
		Outline: OutlineConfig{
			Enabled:   true,
			Strength:  3,
			Glow:      0,
			Thickness: 1,
			Visible:   "#ffffff",
			Hidden:    "#190a05",
		},
		Controls: ControlsConfig{
			Damping:    true,
			OrbitSpeed: 4,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks values the renderer cannot recover from.
func (c *Config) Validate() error {
	if c.Renderer.Width <= 0 || c.Renderer.Height <= 0 {
		return fmt.Errorf("renderer size %dx%d must be positive", c.Renderer.Width, c.Renderer.Height)
	}
	switch c.Renderer.Backend {
	case "vulkan", "noop":
	default:
		return fmt.Errorf("unknown backend %q", c.Renderer.Backend)
	}
	switch c.Renderer.Power {
	case "high-performance", "low-power":
	default:
		return fmt.Errorf("unknown power preference %q", c.Renderer.Power)
	}
	for _, s := range []string{c.Renderer.Clear, c.Outline.Visible, c.Outline.Hidden} {
		if _, err := ParseColor(s); err != nil {
			return err
		}
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel parses Logging.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return 0, fmt.Errorf("logging level: %w", err)
	}
	return level, nil
}

// ParseColor parses "#rrggbb" or "rrggbb" into 0xrrggbb.
func ParseColor(s string) (uint32, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return 0, fmt.Errorf("color %q: want #rrggbb", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("color %q: %w", s, err)
	}
	return uint32(v), nil
}
