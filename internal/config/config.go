package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/collapse/internal/core/collapse"
	"github.com/zeusync/collapse/internal/core/observability/log"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds server and simulation configuration.
type Config struct {
	// Network settings
	ListenAddr   string `yaml:"listen_addr"`
	StreamBuffer int    `yaml:"stream_buffer"`

	// Simulation settings
	FrameInterval   time.Duration `yaml:"frame_interval"`
	Seed            uint64        `yaml:"seed"`
	DebrisCount     int           `yaml:"debris_count"`
	InitialMaterial string        `yaml:"initial_material"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// Default returns the default configuration: 60 frames per second and a
// time-based seed.
func Default() Config {
	return Config{
		ListenAddr:    "127.0.0.1:8080",
		StreamBuffer:  64,
		FrameInterval: time.Second / 60,
		DebrisCount:   collapse.DefaultDebrisCount,
		LogLevel:      "info",
	}
}

// Load reads a YAML file on top of the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode reads YAML from r on top of the defaults.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges and names.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("%w: listen_addr is required", ErrInvalidConfig)
	}
	if c.FrameInterval <= 0 {
		return fmt.Errorf("%w: frame_interval must be positive", ErrInvalidConfig)
	}
	if c.DebrisCount < 0 {
		return fmt.Errorf("%w: debris_count must not be negative", ErrInvalidConfig)
	}
	if c.StreamBuffer <= 0 {
		return fmt.Errorf("%w: stream_buffer must be positive", ErrInvalidConfig)
	}
	if c.InitialMaterial != "" {
		if _, err := collapse.ParseMaterial(c.InitialMaterial); err != nil {
			return fmt.Errorf("%w: initial_material: %w", ErrInvalidConfig, err)
		}
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Level returns the parsed log level.
func (c Config) Level() log.Level {
	level, _ := log.ParseLevel(c.LogLevel)
	return level
}

// ResolvedSeed returns the configured seed, or a time-based one when unset.
func (c Config) ResolvedSeed() uint64 {
	if c.Seed != 0 {
		return c.Seed
	}
	return uint64(time.Now().UnixNano())
}
