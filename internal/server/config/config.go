// FILE: lixenwraith/chessassist/internal/server/config/config.go
// Package config reads the optional YAML file describing the analysis
// collaborator and server limits. Command-line flags override it.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderLLM    = "llm"
	ProviderEngine = "engine"

	DefaultAPIKeyEnv = "OPENAI_API_KEY"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Analysis AnalysisConfig `yaml:"analysis"`
}

type ServerConfig struct {
	MaxSessions int `yaml:"max_sessions"`
}

type AnalysisConfig struct {
	Provider string        `yaml:"provider"` // "llm" or "engine"
	Workers  int           `yaml:"workers"`
	Timeout  time.Duration `yaml:"timeout"`
	Count    int           `yaml:"count"`
	LLM      LLMConfig     `yaml:"llm"`
	Engine   EngineConfig  `yaml:"engine"`
}

type LLMConfig struct {
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"` // name of the variable holding the key, never the key itself
}

type EngineConfig struct {
	Path       string        `yaml:"path"`
	SearchTime time.Duration `yaml:"search_time"`
	SkillLevel *int          `yaml:"skill_level"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		Server: ServerConfig{MaxSessions: 1000},
		Analysis: AnalysisConfig{
			Provider: ProviderLLM,
			Workers:  2,
			Timeout:  30 * time.Second,
			Count:    3,
			LLM: LLMConfig{
				BaseURL:   "https://api.openai.com/v1",
				Model:     "gpt-4o-mini",
				APIKeyEnv: DefaultAPIKeyEnv,
			},
			Engine: EngineConfig{
				Path:       "stockfish",
				SearchTime: time.Second,
			},
		},
	}
}

// Load reads path over the defaults. An empty path yields Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("'%s': %v", path, err)
	}
	if err := Parse(data, &cfg); err != nil {
		return cfg, fmt.Errorf("'%s': %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg, rejecting unknown keys, then validates it.
// Keys absent from data keep the values already in cfg.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Analysis.Provider {
	case ProviderLLM, ProviderEngine:
	default:
		return fmt.Errorf("analysis.provider must be %q or %q, got %q", ProviderLLM, ProviderEngine, c.Analysis.Provider)
	}
	if c.Analysis.Workers < 1 {
		return fmt.Errorf("analysis.workers must be at least 1")
	}
	if c.Analysis.Timeout <= 0 {
		return fmt.Errorf("analysis.timeout must be positive")
	}
	if c.Analysis.Count < 1 {
		return fmt.Errorf("analysis.count must be at least 1")
	}
	if c.Analysis.Engine.SearchTime <= 0 {
		return fmt.Errorf("analysis.engine.search_time must be positive")
	}
	if c.Analysis.Engine.SearchTime >= c.Analysis.Timeout {
		return fmt.Errorf("analysis.engine.search_time must be shorter than analysis.timeout")
	}
	if lvl := c.Analysis.Engine.SkillLevel; lvl != nil && (*lvl < 0 || *lvl > 20) {
		return fmt.Errorf("analysis.engine.skill_level must be between 0 and 20")
	}
	if c.Server.MaxSessions < 1 {
		return fmt.Errorf("server.max_sessions must be at least 1")
	}
	return nil
}

// APIKey resolves the LLM key from the environment
func (l LLMConfig) APIKey() string {
	if l.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(l.APIKeyEnv)
}

// Skill returns the engine skill level, -1 when unset
func (e EngineConfig) Skill() int {
	if e.SkillLevel == nil {
		return -1
	}
	return *e.SkillLevel
}
