// Package config holds the layout and server settings of the access map
// backend. Values are layered: built-in defaults, then an optional YAML file
// named by LAYOUT_CONFIG, then individual environment variables.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/dw-outreach/outreach/backend/internal/util"
	"github.com/dw-outreach/outreach/backend/pkg/accessmap"

	"gopkg.in/yaml.v3"
)

// LayoutConfig is the default web drawn when a request names no dimensions.
type LayoutConfig struct {
	RingCount  int     `yaml:"ring_count"`
	SpokeCount int     `yaml:"spoke_count"`
	Width      float64 `yaml:"width"`
	Height     float64 `yaml:"height"`
	Padding    float64 `yaml:"padding"`
	// MaxRings and MaxSpokes cap what a request may ask for.
	MaxRings  int `yaml:"max_rings"`
	MaxSpokes int `yaml:"max_spokes"`
}

// RateLimitConfig throttles mutating API calls per client IP.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Config is the full settings tree.
type Config struct {
	Layout    LayoutConfig    `yaml:"layout"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	BodyLimit string          `yaml:"body_limit"`
	Port      string          `yaml:"port"`
}

// DefaultConfig returns a Config with the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Layout: LayoutConfig{
			RingCount:  accessmap.DefaultRingCount,
			SpokeCount: accessmap.DefaultSpokeCount,
			Width:      accessmap.DefaultWidth,
			Height:     accessmap.DefaultHeight,
			Padding:    accessmap.DefaultPadding,
			MaxRings:   20,
			MaxSpokes:  72,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			Burst:             30,
		},
		BodyLimit: "10M",
		Port:      "5001",
	}
}

// LoadFrom reads a YAML file over the defaults. A missing file yields the
// defaults.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading layout config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing layout config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Load applies LAYOUT_CONFIG and then the environment overrides.
func Load() (Config, error) {
	cfg, err := LoadFrom(util.GetEnv("LAYOUT_CONFIG"))
	if err != nil {
		return cfg, err
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	c.Layout.RingCount = int(util.GetEnvNumeric("LAYOUT_RINGS", c.Layout.RingCount))
	c.Layout.SpokeCount = int(util.GetEnvNumeric("LAYOUT_SPOKES", c.Layout.SpokeCount))
	c.RateLimit.Burst = int(util.GetEnvNumeric("RATE_LIMIT_BURST", c.RateLimit.Burst))
	if v := util.GetEnv("RATE_LIMIT_RPS"); v != "" {
		c.RateLimit.RequestsPerSecond = util.GetEnvNumeric("RATE_LIMIT_RPS", 0)
	}
	c.BodyLimit = util.GetEnvString("BODY_LIMIT", c.BodyLimit)
	c.Port = util.GetEnvString("PORT", c.Port)
}

// Validate rejects settings no web can be drawn with.
func (c Config) Validate() error {
	l := c.Layout
	switch {
	case l.RingCount < 1 || l.SpokeCount < 1:
		return fmt.Errorf("layout needs at least one ring and one spoke, got %d rings %d spokes", l.RingCount, l.SpokeCount)
	case l.Width <= 0 || l.Height <= 0:
		return fmt.Errorf("layout canvas must have an area, got %vx%v", l.Width, l.Height)
	case l.Padding < 0 || math.IsNaN(l.Padding) || math.IsInf(l.Padding, 0):
		return fmt.Errorf("layout padding must be a finite non-negative number, got %v", l.Padding)
	case l.MaxRings < l.RingCount || l.MaxSpokes < l.SpokeCount:
		return fmt.Errorf("layout defaults exceed the request caps")
	case c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0:
		return fmt.Errorf("rate limit must not be negative")
	}
	return l.ValidateSize(l.Width, l.Height)
}

// ValidateSize rejects a requested canvas size that cannot hold a web. Zero
// stands for the layout default, as in Canvas. The resolved web must keep a
// positive radius inside the padding, or every slot would collapse onto the
// center.
func (l LayoutConfig) ValidateSize(width, height float64) error {
	for _, v := range []float64{width, height} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("canvas size must be a finite non-negative number, got %v", v)
		}
	}
	if width <= 0 {
		width = l.Width
	}
	if height <= 0 {
		height = l.Height
	}
	if min(width, height) <= 2*l.Padding {
		return fmt.Errorf("canvas %vx%v leaves no room for the web inside %v px of padding", width, height, l.Padding)
	}
	return nil
}

// Canvas builds the canvas for the given counts, falling back to the layout
// defaults for zero values.
func (l LayoutConfig) Canvas(rings, spokes int, width, height float64) accessmap.CanvasConfig {
	if rings <= 0 {
		rings = l.RingCount
	}
	if spokes <= 0 {
		spokes = l.SpokeCount
	}
	if width <= 0 {
		width = l.Width
	}
	if height <= 0 {
		height = l.Height
	}
	rings = min(rings, l.MaxRings)
	spokes = min(spokes, l.MaxSpokes)
	return accessmap.NewCanvas(width, height, rings, spokes, l.Padding)
}
