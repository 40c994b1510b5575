// Package config loads and edits the palaver configuration file. Files
// ending in .yaml or .yml are YAML; anything else is JSON.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/user/palaver/pkg/llm"
	"github.com/user/palaver/pkg/llm/anthropic"
	"github.com/user/palaver/pkg/llm/openai"
)

// ProviderConfig holds the request defaults for one provider. API keys are
// never stored here; adapters read them from the environment.
type ProviderConfig struct {
	BaseURL     string   `json:"base_url,omitempty"`
	Model       string   `json:"model"`
	MaxTokens   int      `json:"max_tokens"`
	Temperature *float64 `json:"temperature,omitempty"`
	System      string   `json:"system,omitempty"`
}

// Options converts the section into raw client options. Zero values are
// left out so the adapter defaults apply.
func (p ProviderConfig) Options() llm.Options {
	opts := llm.Options{}
	if p.Model != "" {
		opts[llm.KeyModel] = p.Model
	}
	if p.MaxTokens > 0 {
		opts[llm.KeyMaxTokens] = p.MaxTokens
	}
	if p.Temperature != nil {
		opts[llm.KeyTemperature] = *p.Temperature
	}
	if p.System != "" {
		opts[llm.KeySystem] = p.System
	}
	return opts
}

type Config struct {
	LogLevel      string         `json:"log_level"`
	Provider      string         `json:"provider"`
	MaxConcurrent int            `json:"max_concurrent"`
	Anthropic     ProviderConfig `json:"anthropic"`
	OpenAI        ProviderConfig `json:"openai"`
}

// Section returns the settings for the named provider.
func (c *Config) Section(name string) (ProviderConfig, error) {
	switch name {
	case anthropic.Name:
		return c.Anthropic, nil
	case openai.Name:
		return c.OpenAI, nil
	default:
		return ProviderConfig{}, fmt.Errorf("no config section for provider %q", name)
	}
}

// DefaultPath returns ~/.palaver/config.json.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".palaver", "config.json")
}

func defaults() *Config {
	cfg := &Config{
		LogLevel:      "info",
		Provider:      anthropic.Name,
		MaxConcurrent: 2,
	}
	cfg.Anthropic.Model = anthropic.DefaultModel
	cfg.Anthropic.MaxTokens = anthropic.DefaultMaxTokens
	cfg.OpenAI.Model = openai.DefaultModel
	cfg.OpenAI.MaxTokens = openai.DefaultMaxTokens
	return cfg
}

// Load reads the config at path, writing defaults first if the file does
// not exist, and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	applyEnv(cfg)
	return cfg, nil
}

// LoadFile is Load without environment overrides, for callers that write
// the config back.
func LoadFile(path string) (*Config, error) {
	cfg := defaults()

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		m, err := readMap(path)
		if err != nil {
			return nil, err
		}
		if err := fromMap(m, cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	} else if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// applyEnv overrides cfg from the environment (highest precedence).
func applyEnv(cfg *Config) {
	if provider := os.Getenv("PALAVER_PROVIDER"); provider != "" {
		cfg.Provider = provider
	}
	if level := os.Getenv("PALAVER_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if baseURL := os.Getenv("ANTHROPIC_BASE_URL"); baseURL != "" {
		cfg.Anthropic.BaseURL = baseURL
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		cfg.OpenAI.BaseURL = baseURL
	}
}

// Save writes cfg to path atomically, creating the parent directory.
func Save(path string, cfg *Config) error {
	m, err := ToMap(cfg)
	if err != nil {
		return err
	}
	return writeMap(path, m)
}

// ToMap converts cfg to its generic map form. Numbers are float64, as
// with any decoded JSON.
func ToMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return m, nil
}

// ListValues returns every config value keyed by its dot-separated path.
func ListValues(cfg *Config) (map[string]any, error) {
	m, err := ToMap(cfg)
	if err != nil {
		return nil, err
	}
	return Flatten(m), nil
}

// GetValue loads the config at path and returns the value at key. A missing
// file is created with defaults first.
func GetValue(path, key string) (any, error) {
	if _, err := Load(path); err != nil {
		return nil, err
	}
	m, err := readMap(path)
	if err != nil {
		return nil, err
	}
	v, ok := Flatten(m)[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return v, nil
}

// SetValue sets key in the existing config file at path. value is parsed as
// JSON when possible (numbers, booleans) and stored as a string otherwise.
// Keys unknown to Config are kept in the file.
func SetValue(path, key, value string) error {
	m, err := readMap(path)
	if err != nil {
		return err
	}

	var parsed any
	if err := json.Unmarshal([]byte(value), &parsed); err != nil {
		parsed = value
	}

	flat := Flatten(m)
	flat[key] = parsed
	m = Unflatten(flat)

	// Reject edits that no longer decode into Config.
	if err := fromMap(m, defaults()); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return writeMap(path, m)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// readMap decodes the file at path into a generic map with JSON number
// semantics regardless of the file format.
func readMap(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if isYAML(path) {
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		if data, err = json.Marshal(raw); err != nil {
			return nil, fmt.Errorf("normalize config %s: %w", path, err)
		}
	}
	m := map[string]any{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return m, nil
}

func writeMap(path string, m map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(m)
	} else {
		data, err = json.MarshalIndent(m, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

func fromMap(m map[string]any, cfg *Config) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, cfg)
}
