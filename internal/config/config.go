package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Detector backends
const (
	BackendHTTP     = "http"
	BackendOllama   = "ollama"
	BackendLlamaCpp = "llamacpp"
	BackendLocal    = "local"
)

// Config holds the application configuration
type Config struct {
	Detector     DetectorConfig     `json:"detector"`
	Transform    TransformConfig    `json:"transform"`
	Significance SignificanceConfig `json:"significance"`
	Output       OutputConfig       `json:"output"`
}

// DetectorConfig selects and tunes the crop detection backend
type DetectorConfig struct {
	Backend        string  `json:"backend"`
	URL            string  `json:"url"`
	Model          string  `json:"model"`
	Token          string  `json:"token,omitempty"`
	MaxDimension   int     `json:"max_dimension"`
	Quality        int     `json:"quality"`
	MinConfidence  float64 `json:"min_confidence"`
	MaxAssetBytes  int64   `json:"max_asset_bytes"`
	TimeoutSeconds int     `json:"timeout_seconds"`
}

// TransformConfig holds encoder settings
type TransformConfig struct {
	LossyQuality   int    `json:"lossy_quality"`
	LosslessFormat string `json:"lossless_format"`
}

// SignificanceConfig holds the thresholds deciding whether a crop is applied
type SignificanceConfig struct {
	EdgeThreshold float64 `json:"edge_threshold"`
	SpanThreshold float64 `json:"span_threshold"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	OutputDir string `json:"output_dir"`
	Prefix    string `json:"prefix"`
	Suffix    string `json:"suffix"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Detector: DetectorConfig{
			Backend:        BackendLocal,
			MaxDimension:   800,
			Quality:        80,
			MaxAssetBytes:  25 << 20,
			TimeoutSeconds: 300,
		},
		Transform: TransformConfig{
			LossyQuality:   92,
			LosslessFormat: "png",
		},
		Significance: SignificanceConfig{
			EdgeThreshold: 3,
			SpanThreshold: 94,
		},
		Output: OutputConfig{
			OutputDir: "./output",
			Prefix:    "",
			Suffix:    "_cropped",
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Fields missing from
// the file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Detector.Backend {
	case BackendLocal:
	case BackendHTTP, BackendOllama, BackendLlamaCpp:
		if c.Detector.URL == "" {
			return fmt.Errorf("detector.url is required for backend %q", c.Detector.Backend)
		}
	default:
		return fmt.Errorf("detector.backend must be one of http, ollama, llamacpp, local")
	}

	if c.Detector.MaxDimension < 1 {
		return fmt.Errorf("detector.max_dimension must be positive")
	}

	if c.Detector.Quality < 1 || c.Detector.Quality > 100 {
		return fmt.Errorf("detector.quality must be between 1 and 100")
	}

	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		return fmt.Errorf("detector.min_confidence must be between 0 and 1")
	}

	if c.Detector.MaxAssetBytes < 0 {
		return fmt.Errorf("detector.max_asset_bytes cannot be negative")
	}

	if c.Detector.TimeoutSeconds < 0 {
		return fmt.Errorf("detector.timeout_seconds cannot be negative")
	}

	if c.Transform.LossyQuality < 1 || c.Transform.LossyQuality > 100 {
		return fmt.Errorf("transform.lossy_quality must be between 1 and 100")
	}

	if c.Transform.LosslessFormat != "png" && c.Transform.LosslessFormat != "webp" {
		return fmt.Errorf("transform.lossless_format must be png or webp")
	}

	if c.Significance.EdgeThreshold < 0 || c.Significance.EdgeThreshold > 100 {
		return fmt.Errorf("significance.edge_threshold must be between 0 and 100")
	}

	if c.Significance.SpanThreshold < 0 || c.Significance.SpanThreshold > 100 {
		return fmt.Errorf("significance.span_threshold must be between 0 and 100")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "docintake", "config.json")
}
