package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Dataset       Dataset       `yaml:"dataset"`
	Cache         Cache         `yaml:"cache"`
	Summarization Summarization `yaml:"summarization"`
	Output        Output        `yaml:"output"`
	Server        Server        `yaml:"server"`
	Logging       Logging       `yaml:"logging"`
}

// Dataset describes where professor records are read from. Exactly one of
// BaseURL and Dir is expected; Dir wins when both are set.
type Dataset struct {
	BaseURL       string        `yaml:"base_url"`
	Dir           string        `yaml:"dir"`
	RecordsPath   string        `yaml:"records_path"`
	Manifest      string        `yaml:"manifest"`
	DiscoveryPath string        `yaml:"discovery_path"`
	BatchSize     int           `yaml:"batch_size"`
	BatchPause    time.Duration `yaml:"batch_pause"`
	Timeout       time.Duration `yaml:"timeout"`
}

type Cache struct {
	MaxAge time.Duration `yaml:"max_age"`
}

type Summarization struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	OllamaURL   string        `yaml:"ollama_url"`
	OpenAIModel string        `yaml:"openai_model"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for facultypulse.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "facultypulse")
}

// DataDir returns the XDG data directory for facultypulse.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "facultypulse")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/facultypulse/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'facultypulse init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Defaults returns the built-in configuration without reading any file.
func Defaults() *Config {
	cfg, err := parse(nil)
	if err != nil {
		panic(err)
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Dataset: Dataset{
			RecordsPath:   "profesores_enriquecido/",
			Manifest:      "fileList.json",
			DiscoveryPath: "/api/professors-list",
			BatchSize:     5,
			BatchPause:    100 * time.Millisecond,
			Timeout:       15 * time.Second,
		},
		Cache: Cache{MaxAge: 7 * 24 * time.Hour},
		Summarization: Summarization{
			Provider:    "openai",
			Model:       "qwen2.5:7b",
			OllamaURL:   "http://localhost:11434",
			OpenAIModel: "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			MaxTokens:   600,
			Temperature: 0.4,
			Timeout:     15 * time.Second,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Dataset.BatchSize < 1 {
		return fmt.Errorf("dataset.batch_size must be at least 1, got %d", c.Dataset.BatchSize)
	}
	if c.Dataset.BatchPause < 0 {
		return fmt.Errorf("dataset.batch_pause must not be negative")
	}
	if c.Cache.MaxAge <= 0 {
		return fmt.Errorf("cache.max_age must be positive")
	}
	switch c.Summarization.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unknown summarization provider %q", c.Summarization.Provider)
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DatabasePath returns the SQLite file inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.GetDataDir(), "facultypulse.db")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
