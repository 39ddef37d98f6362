package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "COMPASS"

// Provider names accepted by llm.provider.
const (
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
	ProviderNone   = "none"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Log      LogConfig      `mapstructure:"log"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type HTTPConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type LLMConfig struct {
	Provider        string        `mapstructure:"provider"`
	OllamaHost      string        `mapstructure:"ollama_host"`
	OllamaModel     string        `mapstructure:"ollama_model"`
	GeminiAPIKey    string        `mapstructure:"gemini_api_key"`
	GeminiModel     string        `mapstructure:"gemini_model"`
	Timeout         time.Duration `mapstructure:"timeout"`
	AvailabilityTTL time.Duration `mapstructure:"availability_ttl"`
}

// MetricsConfig controls which metrics exist in the registry (Available) and
// which ones a new user starts with (Enabled).
type MetricsConfig struct {
	Enabled   []string `mapstructure:"enabled"`
	Available []string `mapstructure:"available"`
}

var defaults = map[string]any{
	"database.path":        "./data/metrics.db",
	"http.port":            "5000",
	"http.read_timeout":    15 * time.Second,
	"http.write_timeout":   60 * time.Second, // LLM calls can take time
	"log.level":            "info",
	"llm.provider":         ProviderOllama,
	"llm.ollama_host":      "http://localhost:11434",
	"llm.ollama_model":     "mistral:latest",
	"llm.gemini_api_key":   "",
	"llm.gemini_model":     "gemini-1.5-flash-latest",
	"llm.timeout":          30 * time.Second,
	"llm.availability_ttl": 5 * time.Minute,
	"metrics.enabled":      []string{"mood", "scale", "exercise", "alone_time", "notes"},
	"metrics.available":    []string{"notes", "scale", "alone_time", "exercise", "mood", "groceries"},
}

// Load reads .env (if present), an optional YAML file named by
// COMPASS_CONFIG_FILE, and COMPASS_* environment variables, in increasing
// order of precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	return load(viper.New(), os.Getenv(envPrefix+"_CONFIG_FILE"))
}

func load(v *viper.Viper, configFile string) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.Metrics.Enabled = cleanNames(cfg.Metrics.Enabled)
	cfg.Metrics.Available = cleanNames(cfg.Metrics.Available)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("config: database.path is required")
	}
	if c.HTTP.Port == "" {
		return fmt.Errorf("config: http.port is required")
	}
	switch c.LLM.Provider {
	case ProviderOllama, ProviderNone:
	case ProviderGemini:
		if c.LLM.GeminiAPIKey == "" {
			return fmt.Errorf("config: llm.gemini_api_key is required for the gemini provider")
		}
	default:
		return fmt.Errorf("config: unknown llm.provider %q", c.LLM.Provider)
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("config: llm.timeout must be positive")
	}
	if c.LLM.AvailabilityTTL <= 0 {
		return fmt.Errorf("config: llm.availability_ttl must be positive")
	}
	if len(c.Metrics.Available) == 0 {
		return fmt.Errorf("config: metrics.available must name at least one metric")
	}
	return nil
}

// cleanNames trims entries and drops empties; env values arrive as a single
// comma separated string.
func cleanNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		for _, part := range strings.Split(n, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
