// Package config loads the CLI's yaml configuration file, in the same
// DefaultConfig-plus-tolerant-load shape the teacher's own config layer
// uses.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// ErrInvalidArgument is returned by Validate for a config value outside
// its accepted range.
var ErrInvalidArgument = errors.New("config: invalid argument")

// Config holds everything the CLI needs to open a store and an index
// against it.
type Config struct {
	StorePath         string `yaml:"store_path"`
	Port              int    `yaml:"port"`
	SplitMode         string `yaml:"split_mode"`
	MaxNodeReferences int    `yaml:"max_node_references"`
}

// DefaultConfig is used as-is when no config file is present, and as the
// base a present file's values are merged onto.
var DefaultConfig = Config{
	StorePath:         "rtreed.db",
	Port:              3456,
	SplitMode:         "quadratic",
	MaxNodeReferences: 100,
}

// Load reads filename as yaml into a copy of DefaultConfig. A missing
// file is not an error; DefaultConfig is returned unchanged.
func Load(filename string) (*Config, error) {
	c := DefaultConfig
	b, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return &c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", filename, err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", filename, err)
	}
	return &c, nil
}

// Validate rejects a config with out-of-range values before it's used to
// open a store or index.
func (c *Config) Validate() error {
	switch c.SplitMode {
	case "quadratic", "greene":
	default:
		return fmt.Errorf("%w: unknown split_mode %q", ErrInvalidArgument, c.SplitMode)
	}
	if c.MaxNodeReferences < 1 {
		return fmt.Errorf("%w: max_node_references must be >= 1", ErrInvalidArgument)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port out of range: %d", ErrInvalidArgument, c.Port)
	}
	return nil
}
