package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultRideTicks   = 600
	defaultTileTimeout = 15 * time.Second
)

// --- Structs ---

type PlaybackConfig struct {
	BaseInterval time.Duration `yaml:"base_interval"`
	RideTicks    int           `yaml:"ride_ticks" validate:"gte=0"`
	RideSpeedups int           `yaml:"ride_speedups" validate:"gte=0,lte=16"`
}

type TilesConfig struct {
	Style       string        `yaml:"style" validate:"required"`
	Is2x        bool          `yaml:"2x"`
	Concurrency int           `yaml:"concurrency" validate:"gt=0,lte=64"`
	Timeout     time.Duration `yaml:"timeout"`
	CacheDir    string        `yaml:"cache_dir"`
	Offline     bool          `yaml:"offline"`
	Brightness  float64       `yaml:"brightness" validate:"gte=-1,lte=1"`
	Contrast    float64       `yaml:"contrast" validate:"gt=0,lte=4"`
}

// AppConfig is everything the viewer reads from its YAML file. Sections left
// out of the file keep their defaults.
type AppConfig struct {
	Projection  ProjectionConfig  `yaml:"projection"`
	Correlation CorrelationConfig `yaml:"correlation"`
	Playback    PlaybackConfig    `yaml:"playback"`
	Tiles       TilesConfig       `yaml:"tiles"`
	Units       Units             `yaml:"units"`
	Camera      CameraPose        `yaml:"camera"`
}

func DefaultConfig() AppConfig {
	return AppConfig{
		Projection:  DefaultProjection(),
		Correlation: DefaultCorrelation(),
		Playback: PlaybackConfig{
			BaseInterval: defaultBaseInterval,
			RideTicks:    defaultRideTicks,
		},
		Tiles: TilesConfig{
			Style:       "default",
			Concurrency: tileFetchConcurrency,
			Timeout:     defaultTileTimeout,
			CacheDir:    tileCacheDir,
			Contrast:    1,
		},
		Units:  ImperialUnits(),
		Camera: DefaultCameraPose(),
	}
}

// --- Loading ---

// LoadConfig reads path over the defaults and validates the result. An empty
// path yields the defaults.
func LoadConfig(path string) (AppConfig, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (AppConfig, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return DefaultConfig(), fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), err
	}
	return cfg, nil
}

func (c AppConfig) Validate() error {
	if err := c.Projection.Validate(); err != nil {
		return err
	}
	if err := c.Correlation.Validate(); err != nil {
		return err
	}
	if c.Playback.BaseInterval <= 0 {
		return fmt.Errorf("invalid playback config: base_interval must be positive, got %s", c.Playback.BaseInterval)
	}
	if c.Tiles.Timeout <= 0 {
		return fmt.Errorf("invalid tiles config: timeout must be positive, got %s", c.Tiles.Timeout)
	}
	for name, section := range map[string]any{
		"playback": c.Playback,
		"tiles":    c.Tiles,
		"units":    c.Units,
		"camera":   c.Camera,
	} {
		if err := validate.Struct(section); err != nil {
			return fmt.Errorf("invalid %s config: %w", name, err)
		}
	}
	return nil
}
