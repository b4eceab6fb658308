package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete effect box configuration
type Config struct {
	Audio      AudioConfig      `yaml:"audio"`
	Detector   DetectorConfig   `yaml:"detector"`
	Compressor CompressorConfig `yaml:"compressor"`
	Playback   PlaybackConfig   `yaml:"playback"`
	HTTP       HTTPConfig       `yaml:"http"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// AudioConfig contains stream format and buffer sizing
type AudioConfig struct {
	SampleRate     int `yaml:"sample_rate"`
	Channels       int `yaml:"channels"`
	BitDepth       int `yaml:"bit_depth"`
	BufferCapacity int `yaml:"buffer_capacity"` // samples
	ChunkLength    int `yaml:"chunk_length"`    // samples
}

// DetectorConfig contains the signal detector tunables
type DetectorConfig struct {
	Threshold      int `yaml:"threshold"`
	MinActiveCount int `yaml:"min_active_count"`
}

// CompressorConfig contains the time compression ratio
type CompressorConfig struct {
	Ratio float64 `yaml:"ratio"`
}

// PlaybackConfig contains playback driver behaviour
type PlaybackConfig struct {
	Retries int `yaml:"retries"`
}

// HTTPConfig contains HTTP monitoring server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the built-in configuration used when no file is given
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:     44100,
			Channels:       1,
			BitDepth:       16,
			BufferCapacity: 500000,
			ChunkLength:    15000,
		},
		Detector: DetectorConfig{
			Threshold:      4000,
			MinActiveCount: 1000,
		},
		Compressor: CompressorConfig{
			Ratio: 1.4,
		},
		Playback: PlaybackConfig{
			Retries: 1,
		},
		HTTP: HTTPConfig{
			Port:    9464,
			Address: "127.0.0.1",
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads the configuration file on top of the defaults. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	config := Default()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs validation of every section
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Detector.Validate(c.Audio.ChunkLength); err != nil {
		return fmt.Errorf("detector config: %w", err)
	}

	if err := c.Compressor.Validate(); err != nil {
		return fmt.Errorf("compressor config: %w", err)
	}

	if err := c.Playback.Validate(); err != nil {
		return fmt.Errorf("playback config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate != 44100 {
		return fmt.Errorf("sample_rate must be 44100 Hz, got %d", a.SampleRate)
	}

	if a.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", a.Channels)
	}

	if a.BitDepth != 16 {
		return fmt.Errorf("bit_depth must be 16, got %d", a.BitDepth)
	}

	if a.ChunkLength <= 0 {
		return fmt.Errorf("chunk_length must be positive, got %d", a.ChunkLength)
	}

	if a.BufferCapacity < 2*a.ChunkLength {
		return fmt.Errorf("buffer_capacity (%d) must hold at least two chunks of %d samples",
			a.BufferCapacity, a.ChunkLength)
	}

	return nil
}

// Validate validates detector configuration against the chunk length it
// will be evaluated over
func (d *DetectorConfig) Validate(chunkLength int) error {
	if d.Threshold < 0 || d.Threshold > 32767 {
		return fmt.Errorf("threshold must be between 0 and 32767, got %d", d.Threshold)
	}

	if d.MinActiveCount < 0 {
		return fmt.Errorf("min_active_count cannot be negative, got %d", d.MinActiveCount)
	}

	if chunkLength > 0 && d.MinActiveCount >= chunkLength {
		return fmt.Errorf("min_active_count (%d) must be less than chunk_length (%d)",
			d.MinActiveCount, chunkLength)
	}

	return nil
}

// Validate validates compressor configuration. Ratios at or below 1 would
// let the write position overtake the read position of the in-place pass.
func (c *CompressorConfig) Validate() error {
	if c.Ratio <= 1 {
		return fmt.Errorf("ratio must be greater than 1, got %f", c.Ratio)
	}

	return nil
}

// Validate validates playback configuration
func (p *PlaybackConfig) Validate() error {
	if p.Retries < 0 || p.Retries > 3 {
		return fmt.Errorf("retries must be between 0 and 3, got %d", p.Retries)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// ListenAddress returns the listen address of the HTTP server
func (h *HTTPConfig) ListenAddress() string {
	return fmt.Sprintf("%s:%d", h.Address, h.Port)
}

// ChunkDuration returns the wall-clock length of one chunk
func (a *AudioConfig) ChunkDuration() time.Duration {
	return time.Duration(float64(a.ChunkLength) / float64(a.SampleRate) * float64(time.Second))
}

// BufferDuration returns the wall-clock length of a full buffer
func (a *AudioConfig) BufferDuration() time.Duration {
	return time.Duration(float64(a.BufferCapacity) / float64(a.SampleRate) * float64(time.Second))
}
