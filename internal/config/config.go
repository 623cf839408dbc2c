// Package config resolves the tutor configuration once at process start:
// defaults, an optional YAML file, a .env file and environment overrides.
package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	tutor "github.com/haowjy/meridian-tutor"
)

// Config is the complete process configuration. Credentials are resolved
// from the environment only and are never read from or written to YAML.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Providers ProvidersConfig `yaml:"providers"`

	// CapabilitiesFile extends the embedded model catalog (optional)
	CapabilitiesFile string `yaml:"capabilities_file,omitempty"`

	// OpenAIAPIKey is read from OPENAI_API_KEY
	OpenAIAPIKey string `yaml:"-"`

	// AnthropicAPIKey is read from ANTHROPIC_API_KEY
	AnthropicAPIKey string `yaml:"-"`
}

// ServerConfig configures the web UI shell.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	DefaultModel    string        `yaml:"default_model"`
}

// LogConfig configures zerolog output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// ProvidersConfig holds one section per provider variant.
type ProvidersConfig struct {
	OpenAI    ProviderConfig `yaml:"openai"`
	Anthropic ProviderConfig `yaml:"anthropic"`
	Ollama    ProviderConfig `yaml:"ollama"`
	Lorem     ProviderConfig `yaml:"lorem"`
}

// ProviderConfig configures a single provider variant.
type ProviderConfig struct {
	// Enabled turns a variant off explicitly. Nil means enabled when usable.
	Enabled *bool `yaml:"enabled,omitempty"`

	// Model is the backend model id
	Model string `yaml:"model"`

	// BaseURL overrides the hosted API endpoint (OpenAI, Anthropic)
	BaseURL string `yaml:"base_url,omitempty"`

	// Host is the daemon address (Ollama)
	Host string `yaml:"host,omitempty"`

	// Params are the sampling parameters sent with every request
	Params tutor.RequestParams `yaml:"params"`
}

// IsEnabled reports whether the variant should be registered.
func (p ProviderConfig) IsEnabled(def bool) bool {
	if p.Enabled == nil {
		return def
	}
	return *p.Enabled
}

// Default returns the built-in configuration.
func Default() Config {
	disabled := false

	return Config{
		Server: ServerConfig{
			Addr:            "127.0.0.1:7860",
			ShutdownTimeout: 5 * time.Second,
			DefaultModel:    tutor.ProviderOpenAI.String(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Providers: ProvidersConfig{
			OpenAI:    ProviderConfig{Model: "gpt-4o-mini", Params: defaultParams()},
			Anthropic: ProviderConfig{Model: "claude-3-haiku-20240307", Params: defaultParams()},
			Ollama:    ProviderConfig{Model: "llama3.2", Host: "http://localhost:11434", Params: defaultParams()},
			Lorem:     ProviderConfig{Enabled: &disabled, Model: "lorem-fast", Params: defaultParams()},
		},
	}
}

// defaultParams returns fresh pointers per section; the YAML decoder writes
// through existing pointers.
func defaultParams() tutor.RequestParams {
	temperature := tutor.DefaultTemperature
	maxTokens := tutor.DefaultMaxTokens
	return tutor.RequestParams{Temperature: &temperature, MaxTokens: &maxTokens}
}

// Validate checks the resolved configuration.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be 'console' or 'json', got '%s'", c.Log.Format)
	}

	if id := tutor.ParseProviderID(c.Server.DefaultModel); !id.IsValid() {
		return fmt.Errorf("server.default_model: unknown model '%s'", c.Server.DefaultModel)
	}

	sections := map[string]ProviderConfig{
		"openai":    c.Providers.OpenAI,
		"anthropic": c.Providers.Anthropic,
		"ollama":    c.Providers.Ollama,
		"lorem":     c.Providers.Lorem,
	}
	for name, section := range sections {
		if err := tutor.ValidateRequestParams(&section.Params); err != nil {
			return fmt.Errorf("providers.%s.params: %w", name, err)
		}
	}

	return nil
}
