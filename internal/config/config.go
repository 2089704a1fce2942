package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
	Port string `mapstructure:"port" yaml:"port"`
}

type GrokConfig struct {
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	Model   string `mapstructure:"model" yaml:"model"`
}

type GeminiConfig struct {
	Project  string `mapstructure:"project" yaml:"project"`
	Location string `mapstructure:"location" yaml:"location"`
	Model    string `mapstructure:"model" yaml:"model"`
}

type LLMConfig struct {
	// Backend selects the completion backend active at boot.
	// Empty means: first configured live backend, canned otherwise.
	Backend string       `mapstructure:"backend" yaml:"backend"`
	Grok    GrokConfig   `mapstructure:"grok" yaml:"grok"`
	Gemini  GeminiConfig `mapstructure:"gemini" yaml:"gemini"`
}

type RelayConfig struct {
	HistoryWindow     int           `mapstructure:"history_window" yaml:"history_window"`
	TokenBudget       int           `mapstructure:"token_budget" yaml:"token_budget"`
	EscalationTimeout time.Duration `mapstructure:"escalation_timeout" yaml:"escalation_timeout"`
}

type Config struct {
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	LLM    LLMConfig    `mapstructure:"llm" yaml:"llm"`
	Relay  RelayConfig  `mapstructure:"relay" yaml:"relay"`
}

// Load reads relay.yaml (if present) and RELAY_* env vars and builds the
// config. The bare PORT variable wins over everything, so cloud platforms
// that inject it keep working.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("relay")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("server.name", "ThreeWayChat Relay")
	v.SetDefault("server.port", "5000")
	v.SetDefault("llm.backend", "")
	// Credentials default to empty so viper knows the keys: AutomaticEnv only
	// resolves keys it has seen, and these usually arrive via RELAY_* env vars
	// rather than relay.yaml.
	v.SetDefault("llm.grok.api_key", "")
	v.SetDefault("llm.grok.base_url", "https://api.x.ai/v1")
	v.SetDefault("llm.grok.model", "grok-4-latest")
	v.SetDefault("llm.gemini.project", "")
	v.SetDefault("llm.gemini.location", "us-central1")
	v.SetDefault("llm.gemini.model", "gemini-2.5-flash")
	v.SetDefault("relay.history_window", 10)
	v.SetDefault("relay.token_budget", 3072)
	v.SetDefault("relay.escalation_timeout", 30*time.Second)

	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if p := os.Getenv("PORT"); p != "" {
		cfg.Server.Port = p
	}

	if cfg.Relay.HistoryWindow <= 0 {
		cfg.Relay.HistoryWindow = 10
	}
	if cfg.Relay.EscalationTimeout <= 0 {
		cfg.Relay.EscalationTimeout = 30 * time.Second
	}

	return &cfg, nil
}
