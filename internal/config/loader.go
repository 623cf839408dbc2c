package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvConfigPath      = "TUTOR_CONFIG"
	EnvAddr            = "TUTOR_ADDR"
	EnvLogLevel        = "TUTOR_LOG_LEVEL"
	EnvEnableLorem     = "TUTOR_ENABLE_LOREM"
	EnvOllamaHost      = "OLLAMA_HOST"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
)

// Load resolves the configuration. path may be empty, in which case
// TUTOR_CONFIG is consulted; with neither set only defaults and the environment
// apply. An explicitly named file that does not exist is an error.
func Load(path string) (Config, error) {
	LoadEnv()

	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("config file %s not found", path)
			}
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyEnv overlays environment variables on cfg.
func applyEnv(cfg *Config) error {
	cfg.OpenAIAPIKey = strings.TrimSpace(os.Getenv(EnvOpenAIAPIKey))
	cfg.AnthropicAPIKey = strings.TrimSpace(os.Getenv(EnvAnthropicAPIKey))

	if v := os.Getenv(EnvAddr); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv(EnvOllamaHost); v != "" {
		cfg.Providers.Ollama.Host = normalizeHost(v)
	}
	if v := os.Getenv(EnvEnableLorem); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvEnableLorem, err)
		}
		cfg.Providers.Lorem.Enabled = &enabled
	}

	return nil
}

// normalizeHost accepts the OLLAMA_HOST forms "host:port" and "http://host:port".
func normalizeHost(v string) string {
	if strings.Contains(v, "://") {
		return v
	}
	return "http://" + v
}

// LoadEnv searches for a .env file starting from the current directory
// and walking up the directory tree. It loads the first .env file found.
// Values from the file replace variables already set in the process.
// If no .env file is found, it silently continues (using system env vars).
func LoadEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}

	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Overload(envPath)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

// KeyPrefix returns the first n characters of a secret for log lines.
func KeyPrefix(key string, n int) string {
	if len(key) <= n {
		return strings.Repeat("*", len(key))
	}
	return key[:n]
}
