//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package config loads the YAML configuration shared by the vischart commands.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"trpc.group/trpc-go/trpc-vischart-go/internal/telemetry"
)

// Result store backends.
const (
	StoreInMemory = "inmemory"
	StoreLocal    = "local"
	StoreSQLite   = "sqlite"
	StoreMySQL    = "mysql"
)

// Generation modes.
const (
	ModeDirect = "direct"
	ModeSteps  = "steps"
)

// ModelConfig configures the chat model.
type ModelConfig struct {
	// Name is the model identifier passed to the provider.
	Name string `yaml:"name"`
	// BaseURL is the optional OpenAI-compatible endpoint base URL.
	BaseURL string `yaml:"base_url"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env"`
	// Temperature is the sampling temperature; nil uses the provider default.
	Temperature *float64 `yaml:"temperature"`
	// MaxTokens caps the answer length; nil uses the provider default.
	MaxTokens *int `yaml:"max_tokens"`
	// JSONMode requests JSON object answers.
	JSONMode bool `yaml:"json_mode"`
}

// APIKey reads the API key from the configured environment variable.
func (m ModelConfig) APIKey() string {
	if m.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(m.APIKeyEnv)
}

// GenerationConfig configures chart generation.
type GenerationConfig struct {
	Mode        string `yaml:"mode"`
	Parallelism int    `yaml:"parallelism"`
	Retries     int    `yaml:"retries"`
	// PromptPath overrides the built-in prompt template of the mode.
	PromptPath string `yaml:"prompt_path"`
	// DataDir holds the CSV files named by the dialogues.
	DataDir string `yaml:"data_dir"`
	// CachePath persists model answers between runs when set.
	CachePath        string `yaml:"cache_path"`
	FilterIneligible bool   `yaml:"filter_ineligible"`
}

// EvaluationConfig configures batch evaluation.
type EvaluationConfig struct {
	Parallelism int      `yaml:"parallelism"`
	Metrics     []string `yaml:"metrics"`
	// SchemaPath replaces the built-in chart schema.
	SchemaPath string `yaml:"schema_path"`
}

// StoreConfig configures where run results are kept.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	// Dir is the directory of the local backend.
	Dir string `yaml:"dir"`
	// DSN is the file path for sqlite or the data source name for mysql.
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// Config is the root configuration.
type Config struct {
	LogLevel   string           `yaml:"log_level"`
	Model      ModelConfig      `yaml:"model"`
	Generation GenerationConfig `yaml:"generation"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Store      StoreConfig      `yaml:"store"`
	Telemetry  telemetry.Config `yaml:"telemetry"`
}

// DefaultConfig returns a ready-to-run default configuration.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Model: ModelConfig{
			Name:        "deepseek-chat",
			APIKeyEnv:   "OPENAI_API_KEY",
			Temperature: floatPtr(0.0),
			MaxTokens:   intPtr(2048),
			JSONMode:    true,
		},
		Generation: GenerationConfig{
			Mode:             ModeDirect,
			Parallelism:      30,
			Retries:          10,
			DataDir:          filepath.Join(".", "data"),
			FilterIneligible: true,
		},
		Evaluation: EvaluationConfig{
			Parallelism: runtime.GOMAXPROCS(0),
		},
		Store: StoreConfig{
			Backend: StoreInMemory,
			Dir:     filepath.Join(".", "output", "runs"),
		},
		Telemetry: telemetry.Config{
			ServiceName: "vischart",
		},
	}
}

// Load reads path over the defaults. Keys absent from the file keep their default.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate returns an error if the config is incomplete.
func (c Config) Validate() error {
	if c.Model.Name == "" {
		return errors.New("model name is empty")
	}
	switch c.Generation.Mode {
	case ModeDirect, ModeSteps:
	default:
		return fmt.Errorf("unknown generation mode: %q", c.Generation.Mode)
	}
	if c.Generation.Parallelism <= 0 {
		return fmt.Errorf("generation parallelism must be greater than 0: %d", c.Generation.Parallelism)
	}
	if c.Generation.Retries <= 0 {
		return fmt.Errorf("generation retries must be greater than 0: %d", c.Generation.Retries)
	}
	if c.Evaluation.Parallelism <= 0 {
		return fmt.Errorf("evaluation parallelism must be greater than 0: %d", c.Evaluation.Parallelism)
	}
	switch c.Store.Backend {
	case StoreInMemory:
	case StoreLocal:
		if c.Store.Dir == "" {
			return errors.New("store dir is empty")
		}
	case StoreSQLite, StoreMySQL:
		if c.Store.DSN == "" {
			return fmt.Errorf("store dsn is empty for backend %s", c.Store.Backend)
		}
	default:
		return fmt.Errorf("unknown store backend: %q", c.Store.Backend)
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return errors.New("telemetry endpoint is empty")
	}
	return nil
}

func intPtr(v int) *int {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}
