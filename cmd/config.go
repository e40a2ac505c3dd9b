package cmd

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/gocotb/gocotb/gpi"
)

// Config describes the testbench the run command builds: the design root,
// the simulator precision, which demo suites to register, and the model
// parameters the suites need.
type Config struct {
	Toplevel  string   `yaml:"toplevel"`
	Precision string   `yaml:"precision"`
	Horizon   uint64   `yaml:"horizon"`
	Suites    []string `yaml:"suites"`

	AxilWords      int `yaml:"axil_words"`
	AxilIterations int `yaml:"axil_iterations"`
}

// DefaultConfig is the testbench used when no config file is given.
func DefaultConfig() Config {
	return Config{
		Toplevel:       "top",
		Precision:      "ns",
		Suites:         []string{"dff", "axil"},
		AxilWords:      1024,
		AxilIterations: 100,
	}
}

// LoadConfig reads a yaml testbench description, filling blanks from the
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "unable to read testbench config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "unable to parse testbench config")
	}
	if cfg.Toplevel == "" {
		cfg.Toplevel = "top"
	}
	if cfg.Precision == "" {
		cfg.Precision = "ns"
	}
	if cfg.AxilWords <= 0 {
		cfg.AxilWords = 1024
	}
	if cfg.AxilIterations <= 0 {
		cfg.AxilIterations = 100
	}
	return cfg, nil
}

// PrecisionUnit resolves the configured precision name.
func (c Config) PrecisionUnit() (gpi.Unit, error) {
	return gpi.ParseUnit(c.Precision)
}
