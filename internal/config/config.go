// Package config provides configuration loading and management for the
// bioimage lab server. It handles loading configuration from YAML files,
// environment overrides and default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "IMAGE_LAB"

// Config represents the application configuration loaded from YAML
type Config struct {
	Log struct {
		// Level is one of debug, info, warn, error
		Level string `yaml:"level"`

		// Format is "text" or "json"
		Format string `yaml:"format"`
	} `yaml:"log"`

	Processing struct {
		// Workers bounds the goroutines used by band-parallel filters
		Workers int `yaml:"workers"`

		// MaxCacheImages bounds the decoded image cache; 0 means unbounded
		MaxCacheImages int `yaml:"maxCacheImages"`
	} `yaml:"processing"`

	Output struct {
		// Dir is prepended to relative output_path arguments
		Dir string `yaml:"dir"`
	} `yaml:"output"`

	OCR struct {
		// Language is the default Tesseract language code
		Language string `yaml:"language"`

		// TessdataPrefix overrides the Tesseract data directory
		TessdataPrefix string `yaml:"tessdataPrefix"`
	} `yaml:"ocr"`

	Defaults struct {
		GaussianSigma float64 `yaml:"gaussianSigma"`
		HistogramBins int     `yaml:"histogramBins"`
		AreaThreshold int     `yaml:"areaThreshold"`
		Colormap      string  `yaml:"colormap"`
	} `yaml:"defaults"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Log.Level = "info"
	cfg.Log.Format = "text"

	cfg.Processing.Workers = runtime.NumCPU()
	cfg.Processing.MaxCacheImages = 32

	cfg.Output.Dir = ""

	cfg.OCR.Language = "eng"

	cfg.Defaults.GaussianSigma = 1.0
	cfg.Defaults.HistogramBins = 256
	cfg.Defaults.AreaThreshold = 64
	cfg.Defaults.Colormap = "gray"

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		return cfg, nil
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envOverrides lists the IMAGE_LAB_* variables. Empty or zero values leave
// the file settings untouched.
type envOverrides struct {
	LogLevel    string `split_words:"true"`
	LogFormat   string `split_words:"true"`
	OutputDir   string `split_words:"true"`
	Tessdata    string
	OcrLanguage string `split_words:"true"`
	Workers     int
}

// ApplyEnv overrides fields from IMAGE_LAB_* environment variables.
func (c *Config) ApplyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("invalid environment: %w", err)
	}
	if env.LogLevel != "" {
		c.Log.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		c.Log.Format = env.LogFormat
	}
	if env.OutputDir != "" {
		c.Output.Dir = env.OutputDir
	}
	if env.Tessdata != "" {
		c.OCR.TessdataPrefix = env.Tessdata
	}
	if env.OcrLanguage != "" {
		c.OCR.Language = env.OcrLanguage
	}
	if env.Workers != 0 {
		c.Processing.Workers = env.Workers
	}
	return c.Validate()
}

// Validate checks ranges and fills zero values that would break processing.
func (c *Config) Validate() error {
	if c.Processing.Workers <= 0 {
		c.Processing.Workers = runtime.NumCPU()
	}
	if c.Processing.MaxCacheImages < 0 {
		return fmt.Errorf("maxCacheImages must be >= 0, got %d", c.Processing.MaxCacheImages)
	}
	if c.Defaults.GaussianSigma <= 0 {
		return fmt.Errorf("gaussianSigma must be > 0, got %g", c.Defaults.GaussianSigma)
	}
	if c.Defaults.HistogramBins < 2 {
		return fmt.Errorf("histogramBins must be >= 2, got %d", c.Defaults.HistogramBins)
	}
	if c.Defaults.Colormap == "" {
		c.Defaults.Colormap = "gray"
	}
	if c.OCR.Language == "" {
		c.OCR.Language = "eng"
	}
	return nil
}

// ResolveOutput joins a relative output path onto the configured output dir.
func (c *Config) ResolveOutput(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Output.Dir == "" {
		return p
	}
	return filepath.Join(c.Output.Dir, p)
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
