package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kacperjurak/gofourpl"
	"github.com/kacperjurak/gofourpl/internal/synth"
)

// ArrayFlags collects repeated float flags, e.g. -x 1 -x 2.5.
type ArrayFlags []float64

func (a *ArrayFlags) String() string {
	parts := make([]string, len(*a))
	for i, v := range *a {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

// Set appends a value; a comma separated list appends each element.
func (a *ArrayFlags) Set(value string) error {
	for _, field := range strings.Split(value, ",") {
		val, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return err
		}
		*a = append(*a, val)
	}
	return nil
}

// Config holds all configuration settings for a 4PL fit
type Config struct {
	File          string       `yaml:"file" json:"file"`
	CutLow        uint         `yaml:"cut_low" json:"cut_low"`
	CutHigh       uint         `yaml:"cut_high" json:"cut_high"`
	Method        string       `yaml:"method" json:"method"`
	Tolerance     float64      `yaml:"tolerance" json:"tolerance"`
	MaxIterations int          `yaml:"max_iterations" json:"max_iterations"`
	Threads       uint         `yaml:"threads" json:"threads"`
	InitValues    ArrayFlags   `yaml:"init_values" json:"init_values"`
	PredictX      ArrayFlags   `yaml:"predict_x" json:"predict_x"`
	PredictY      ArrayFlags   `yaml:"predict_y" json:"predict_y"`
	Strict        bool         `yaml:"strict" json:"strict"`
	Demo          bool         `yaml:"demo" json:"demo"`
	Synth         synth.Config `yaml:"synth" json:"synth"`
	JSON          bool         `yaml:"json" json:"json"`
	Quiet         bool         `yaml:"quiet" json:"quiet"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Method:        string(gofourpl.MethodPowell),
		Tolerance:     gofourpl.DefaultTolerance,
		MaxIterations: 0,
		Synth:         synth.DefaultConfig(),
	}
}

// Load reads a YAML or JSON file (chosen by extension) over DefaultConfig.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %q", ext)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values the fitter would otherwise reject later.
func (c *Config) Validate() error {
	if _, err := gofourpl.ParseMethod(c.Method); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("config: negative tolerance %v", c.Tolerance)
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("config: negative max_iterations %d", c.MaxIterations)
	}
	if n := len(c.InitValues); n != 0 && n != len(gofourpl.Params{}) {
		return fmt.Errorf("config: init_values needs %d values (min, max, hill, ic50), got %d", len(gofourpl.Params{}), n)
	}
	return nil
}

// FitOptions translates the configuration into options for gofourpl.Fit.
func (c *Config) FitOptions() ([]gofourpl.Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	method, _ := gofourpl.ParseMethod(c.Method)

	opts := []gofourpl.Option{
		gofourpl.WithMethod(method),
		gofourpl.WithTolerance(c.Tolerance),
		gofourpl.WithMaxIterations(c.MaxIterations),
	}
	if c.Threads > 0 {
		opts = append(opts, gofourpl.WithWorkers(int(c.Threads)))
	}
	if len(c.InitValues) > 0 {
		var p gofourpl.Params
		copy(p[:], c.InitValues)
		opts = append(opts, gofourpl.WithInitialParams(p))
	}
	return opts, nil
}
