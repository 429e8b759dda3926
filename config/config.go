// Package config loads the compiler and VM configuration and sets up
// logging.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/tacvm/core"
	"github.com/sarchlab/tacvm/opt"
)

// Config is the full configuration file.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	VM       VMConfig       `yaml:"vm"`
	Compiler CompilerConfig `yaml:"compiler"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// VMConfig bounds and instruments executions.
type VMConfig struct {
	MaxSteps     int     `yaml:"max_steps"`
	MaxCallDepth int     `yaml:"max_call_depth"`
	FreqGHz      float64 `yaml:"freq_ghz"`
	Trace        bool    `yaml:"trace"`
}

// CompilerConfig controls the pipeline.
type CompilerConfig struct {
	Optimize  bool `yaml:"optimize"`
	MaxPasses int  `yaml:"max_passes"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		VM: VMConfig{
			MaxCallDepth: core.DefaultMaxCallDepth,
			FreqGHz:      1,
		},
		Compiler: CompilerConfig{
			Optimize:  true,
			MaxPasses: opt.DefaultMaxPasses,
		},
	}
}

// Load reads a configuration file. Keys missing from the file keep their
// default values.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode reads a configuration from r on top of the defaults.
func Decode(r io.Reader) (Config, error) {
	c := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}

	return c, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	if c.VM.MaxSteps < 0 {
		return fmt.Errorf("vm.max_steps must not be negative")
	}

	if c.VM.MaxCallDepth < 0 {
		return fmt.Errorf("vm.max_call_depth must not be negative")
	}

	if c.VM.FreqGHz <= 0 {
		return fmt.Errorf("vm.freq_ghz must be positive")
	}

	if c.Compiler.MaxPasses <= 0 {
		return fmt.Errorf("compiler.max_passes must be positive")
	}

	return nil
}
