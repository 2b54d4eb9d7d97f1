package main

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/atmosphere"
	"github.com/gogpu/atmosphere/precompute"
)

// Config is the TOML job description read by -config.
type Config struct {
	// Preset selects the starting parameters: "default" or "spectral".
	Preset string `toml:"preset"`

	Backend            string `toml:"backend"`
	Workers            int    `toml:"workers"`
	Orders             int    `toml:"orders"`
	HalfFloat          bool   `toml:"half_float"`
	CombinedScattering bool   `toml:"combined_scattering"`

	Output   string `toml:"output"`
	Previews bool   `toml:"previews"`

	Resolution atmosphere.Resolution `toml:"resolution"`
	Parameters atmosphere.Parameters `toml:"parameters"`
}

// DefaultConfig returns the job run when no config file is given.
func DefaultConfig() Config {
	return Config{
		Preset:     "default",
		Orders:     precompute.DefaultScatteringOrders,
		Output:     "atmosphere",
		Resolution: atmosphere.DefaultResolution(),
		Parameters: atmosphere.DefaultParameters(),
	}
}

// ParseConfig decodes data over the defaults. Keys missing from data keep
// their default value; a preset resets the parameters before decoding.
func ParseConfig(data []byte) (Config, error) {
	var probe struct {
		Preset string `toml:"preset"`
	}
	if err := toml.Unmarshal(data, &probe); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg := DefaultConfig()
	switch probe.Preset {
	case "", "default":
	case "spectral":
		cfg.Preset = probe.Preset
		cfg.Parameters = atmosphere.NewParametersFromSpectrum()
	default:
		return Config{}, fmt.Errorf("config: unknown preset %q", probe.Preset)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Parameters.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads a config file. An empty path returns DefaultConfig.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return ParseConfig(data)
}

// Options translates the job into Atmosphere options.
func (c *Config) Options() []atmosphere.Option {
	return []atmosphere.Option{
		atmosphere.WithResolution(c.Resolution),
		atmosphere.WithScatteringOrders(c.Orders),
		atmosphere.WithHalfFloat(c.HalfFloat),
		atmosphere.WithCombinedScattering(c.CombinedScattering),
		atmosphere.WithBackend(c.Backend),
		atmosphere.WithWorkers(c.Workers),
	}
}
