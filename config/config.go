// Package config loads the runtime settings of the experience.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Window     WindowConfig     `yaml:"window"`
	Render     RenderConfig     `yaml:"render"`
	Transition TransitionConfig `yaml:"transition"`
	Debug      DebugConfig      `yaml:"debug"`

	Derived DerivedConfig `yaml:"-"`
}

type WindowConfig struct {
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	Title         string  `yaml:"title"`
	VSync         bool    `yaml:"vsync"`
	MaxPixelRatio float32 `yaml:"max_pixel_ratio"` // device pixel ratio is clamped to this
}

type RenderConfig struct {
	CPUSimulation      bool    `yaml:"cpu_simulation"`
	Seed               int64   `yaml:"seed"`
	SphereSubdivisions int     `yaml:"sphere_subdivisions"`
	LabelFontSize      float64 `yaml:"label_font_size"`
}

// TransitionConfig durations are in seconds.
type TransitionConfig struct {
	Duration  float64 `yaml:"duration"`
	Ease      string  `yaml:"ease"`
	LabelFade float64 `yaml:"label_fade"`
	LabelEase string  `yaml:"label_ease"`
}

type DebugConfig struct {
	Enabled     bool   `yaml:"enabled"`
	MetricsAddr string `yaml:"metrics_addr"`  // empty disables the /metrics listener
	PerfCSV     string `yaml:"perf_csv"`      // empty disables the timing log
	PerfEvery   int    `yaml:"perf_interval"` // frames per CSV row
}

type DerivedConfig struct {
	TransitionDuration time.Duration
	LabelFade          time.Duration
}

// Load reads the embedded defaults and merges the file at path over them.
// An empty path uses the defaults alone.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()
	return cfg, nil
}

// Default returns the embedded defaults. It panics if they do not parse.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

func (c *Config) validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}
	if c.Transition.Duration < 0 || c.Transition.LabelFade < 0 {
		return fmt.Errorf("transition durations must not be negative")
	}
	return nil
}

func (c *Config) computeDerived() {
	if c.Window.MaxPixelRatio <= 0 {
		c.Window.MaxPixelRatio = 1
	}
	if c.Debug.PerfEvery <= 0 {
		c.Debug.PerfEvery = 120
	}
	c.Derived.TransitionDuration = seconds(c.Transition.Duration)
	c.Derived.LabelFade = seconds(c.Transition.LabelFade)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// WriteYAML writes the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// WriteSnapshot writes the configuration as config.yaml in dir, next to the
// timing log it describes.
func (c *Config) WriteSnapshot(dir string) (string, error) {
	path := filepath.Join(dir, "config.yaml")
	return path, c.WriteYAML(path)
}
