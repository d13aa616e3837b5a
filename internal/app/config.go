package app

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/ffstudios/pantrybot/core/config"
	coredatabase "github.com/ffstudios/pantrybot/core/database"
	"github.com/ffstudios/pantrybot/internal/catalog"
)

// OpenAIConfig holds settings for the natural-language classifier.
type OpenAIConfig struct {
	APIKey string `yaml:"api_key" envconfig:"OPENAI_API_KEY"`
	Model  string `yaml:"model" envconfig:"OPENAI_MODEL"`
	// MinConfidence rejects fresh parses below this score; 0 disables.
	MinConfidence float64 `yaml:"min_confidence" envconfig:"OPENAI_MIN_CONFIDENCE"`
}

// MatchingConfig tunes catalog name resolution.
type MatchingConfig struct {
	Threshold float64 `yaml:"threshold" envconfig:"MATCHING_THRESHOLD"`
}

// Config aggregates core bot settings with the pantry-specific sections.
type Config struct {
	Core     coreconfig.Config   `yaml:",inline"`
	Database coredatabase.Config `yaml:"database"`
	OpenAI   OpenAIConfig        `yaml:"openai"`
	Matching MatchingConfig      `yaml:"matching"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Core
}

// LoadConfig reads configuration from a YAML file and environment variables.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}
	if cfg.OpenAI.APIKey == "" {
		return nil, fmt.Errorf("openai.api_key is required")
	}
	if cfg.Matching.Threshold <= 0 {
		cfg.Matching.Threshold = catalog.DefaultThreshold
	}
	if cfg.Matching.Threshold > 1 {
		return nil, fmt.Errorf("matching.threshold must be in (0, 1]")
	}
	return &cfg, nil
}
