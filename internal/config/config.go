// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers a YAML file and environment variables over the defaults.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"os"
	"path/filepath"
)

// Default model artifact names inside ModelDir.
const (
	DefaultDiabetesModel = "diabetes.json"
	DefaultHeartModel    = "heart.json"
	defaultModelDirName  = "model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFile, when set, also writes logs to a rotating file.
	LogFile       string `koanf:"log_file"`
	LogMaxSizeMB  int    `koanf:"log_max_size_mb" validate:"gte=0"`
	LogMaxBackups int    `koanf:"log_max_backups" validate:"gte=0"`
	LogMaxAgeDays int    `koanf:"log_max_age_days" validate:"gte=0"`

	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr" validate:"required"`

	// ModelDir holds the model artifacts. Empty means "model" next to the executable.
	ModelDir string `koanf:"model_dir"`

	// DiabetesModel and HeartModel are artifact file names (or absolute paths).
	DiabetesModel string `koanf:"diabetes_model" validate:"required"`
	HeartModel    string `koanf:"heart_model" validate:"required"`

	// HeartFeatureCheck enables the feature-count check on /predict/heart.
	HeartFeatureCheck bool `koanf:"heart_feature_check"`

	// Ollama settings for the standalone text-generation client.
	OllamaURL        string `koanf:"ollama_url" validate:"required,url"`
	OllamaModel      string `koanf:"ollama_model" validate:"required"`
	OllamaTimeoutSec int    `koanf:"ollama_timeout_sec" validate:"gt=0"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogMaxSizeMB:     100,
		LogMaxBackups:    3,
		LogMaxAgeDays:    28,
		Addr:             ":8000",
		DiabetesModel:    DefaultDiabetesModel,
		HeartModel:       DefaultHeartModel,
		OllamaURL:        "http://localhost:11434",
		OllamaModel:      "llama3",
		OllamaTimeoutSec: 300,
	}
}

// ModelPath resolves an artifact name against ModelDir. Absolute names are
// returned unchanged.
func (c *Config) ModelPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.modelDir(), name)
}

func (c *Config) modelDir() string {
	if c.ModelDir != "" {
		return c.ModelDir
	}
	exe, err := os.Executable()
	if err != nil {
		return defaultModelDirName
	}
	return filepath.Join(filepath.Dir(exe), defaultModelDirName)
}
