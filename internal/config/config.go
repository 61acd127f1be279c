// Package config loads the CLI and server configuration.
//
// The file is YAML. It is decoded into a generic map first and then into
// Config with mapstructure, so that missing keys keep their defaults and
// durations may be written as "30s".
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable consulted when no path is given.
const EnvPath = "TURING_CONFIG"

// Store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	LogLevel string        `mapstructure:"log_level"`
	Store    StoreConfig   `mapstructure:"store"`
	HTTP     HTTPConfig    `mapstructure:"http"`
	Run      RunConfig     `mapstructure:"run"`
	Tape     TapeConfig    `mapstructure:"tape"`
	Tracing  TracingConfig `mapstructure:"tracing"`
}

// StoreConfig selects and configures the MachineStore used by serve and mcp.
type StoreConfig struct {
	Kind     string        `mapstructure:"kind"`
	Dir      string        `mapstructure:"dir"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
	Path     string        `mapstructure:"path"`
}

type HTTPConfig struct {
	Port int `mapstructure:"port"`
}

type RunConfig struct {
	MaxSteps int     `mapstructure:"max_steps"`
	Speed    float64 `mapstructure:"speed"`
}

type TapeConfig struct {
	Window int `mapstructure:"window"`
}

// TracingConfig enables span export for session operations.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		LogLevel: "info",
		Store: StoreConfig{
			Kind:   StoreMemory,
			Dir:    ".turing/machines",
			Addr:   "localhost:6379",
			Prefix: "turing:machine:",
			Path:   ".turing/machines.db",
		},
		HTTP: HTTPConfig{Port: 8080},
		Run:  RunConfig{MaxSteps: 100000, Speed: 100},
		Tape: TapeConfig{Window: 21},
		Tracing: TracingConfig{
			ServiceName: "turing",
			SampleRatio: 1,
		},
	}
}

// Load reads path, or the file named by TURING_CONFIG when path is empty.
// With neither set, the defaults are returned.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	cfg := Default()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &cfg,
	})
	if err != nil {
		return Config{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and the store kind.
func (c Config) Validate() error {
	switch c.Store.Kind {
	case StoreMemory, StoreFile, StoreRedis, StoreSQLite:
	default:
		return fmt.Errorf("%w: unknown store kind %q", ErrInvalidConfig, c.Store.Kind)
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("%w: http.port %d", ErrInvalidConfig, c.HTTP.Port)
	}
	if c.Run.Speed < 0 || c.Run.Speed > 200 {
		return fmt.Errorf("%w: run.speed must be within [0, 200]", ErrInvalidConfig)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("%w: tracing.sample_ratio must be within [0, 1]", ErrInvalidConfig)
	}
	if c.Tape.Window < 1 {
		return fmt.Errorf("%w: tape.window must be positive", ErrInvalidConfig)
	}
	return nil
}
