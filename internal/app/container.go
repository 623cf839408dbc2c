// Package app wires providers, the explainer and the UI shell from a Config.
package app

import (
	"github.com/rs/zerolog"

	tutor "github.com/haowjy/meridian-tutor"
	"github.com/haowjy/meridian-tutor/internal/config"
	"github.com/haowjy/meridian-tutor/internal/server"
	"github.com/haowjy/meridian-tutor/providers/anthropic"
	"github.com/haowjy/meridian-tutor/providers/lorem"
	"github.com/haowjy/meridian-tutor/providers/ollama"
	"github.com/haowjy/meridian-tutor/providers/openai"
)

// Container holds the constructed dependency graph.
type Container struct {
	Config    config.Config
	Logger    zerolog.Logger
	Registry  *tutor.Registry
	Explainer *tutor.Explainer
	Server    *server.Server
}

// BuildContainer constructs the dependency graph. Providers whose credentials
// are missing are registered as disabled, so the process still starts and the
// UI reports why the model is unavailable.
func BuildContainer(cfg config.Config, logger zerolog.Logger) (*Container, error) {
	registry, err := BuildRegistry(cfg, logger)
	if err != nil {
		return nil, err
	}

	catalog := tutor.DefaultCapabilities()
	if cfg.CapabilitiesFile != "" {
		catalog = tutor.NewCapabilityCatalog()
		if err := catalog.Load(tutor.EmbeddedCapabilities()); err != nil {
			return nil, err
		}
		if err := catalog.LoadFile(cfg.CapabilitiesFile); err != nil {
			return nil, err
		}
	}

	explainer := tutor.NewExplainer(registry,
		tutor.WithCapabilities(catalog),
		tutor.WithLogger(logger.With().Str("component", "explainer").Logger()),
	)

	srv := server.New(explainer, server.Options{
		Addr:            cfg.Server.Addr,
		DefaultModel:    tutor.ParseProviderID(cfg.Server.DefaultModel),
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Logger:          logger.With().Str("component", "server").Logger(),
	})

	return &Container{
		Config:    cfg,
		Logger:    logger,
		Registry:  registry,
		Explainer: explainer,
		Server:    srv,
	}, nil
}

// BuildRegistry registers one adapter per enabled provider variant.
func BuildRegistry(cfg config.Config, logger zerolog.Logger) (*tutor.Registry, error) {
	registry := tutor.NewRegistry()
	providers := cfg.Providers

	if !providers.OpenAI.IsEnabled(true) {
		registry.Disable(tutor.ProviderOpenAI, "disabled in config", tutor.ErrUnsupportedModel)
	} else if cfg.OpenAIAPIKey == "" {
		logger.Warn().Msg("OpenAI API key not set; GPT is unavailable")
		registry.Disable(tutor.ProviderOpenAI, config.EnvOpenAIAPIKey+" is not set", tutor.ErrMissingCredentials)
	} else {
		logger.Info().Str("key_prefix", config.KeyPrefix(cfg.OpenAIAPIKey, 8)).Msg("OpenAI API key loaded")
		opts := []openai.Option{
			openai.WithMaxRetries(0),
			openai.WithLogger(logger.With().Str("provider", "openai").Logger()),
		}
		if providers.OpenAI.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(providers.OpenAI.BaseURL))
		}
		p, err := openai.NewProvider(cfg.OpenAIAPIKey, opts...)
		if err != nil {
			return nil, err
		}
		registry.Register(p, providers.OpenAI.Model, &providers.OpenAI.Params)
	}

	if !providers.Anthropic.IsEnabled(true) {
		registry.Disable(tutor.ProviderAnthropic, "disabled in config", tutor.ErrUnsupportedModel)
	} else if cfg.AnthropicAPIKey == "" {
		logger.Warn().Msg("Anthropic API key not set; Claude is unavailable")
		registry.Disable(tutor.ProviderAnthropic, config.EnvAnthropicAPIKey+" is not set", tutor.ErrMissingCredentials)
	} else {
		logger.Info().Str("key_prefix", config.KeyPrefix(cfg.AnthropicAPIKey, 7)).Msg("Anthropic API key loaded")
		opts := []anthropic.Option{
			anthropic.WithMaxRetries(0),
			anthropic.WithLogger(logger.With().Str("provider", "anthropic").Logger()),
		}
		if providers.Anthropic.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(providers.Anthropic.BaseURL))
		}
		p, err := anthropic.NewProvider(cfg.AnthropicAPIKey, opts...)
		if err != nil {
			return nil, err
		}
		registry.Register(p, providers.Anthropic.Model, &providers.Anthropic.Params)
	}

	if !providers.Ollama.IsEnabled(true) {
		registry.Disable(tutor.ProviderOllama, "disabled in config", tutor.ErrUnsupportedModel)
	} else {
		p, err := ollama.NewProvider(providers.Ollama.Host, nil,
			ollama.WithLogger(logger.With().Str("provider", "ollama").Logger()))
		if err != nil {
			return nil, err
		}
		logger.Info().Str("host", p.Host()).Msg("Ollama provider configured")
		registry.Register(p, providers.Ollama.Model, &providers.Ollama.Params)
	}

	if providers.Lorem.IsEnabled(false) {
		p := lorem.NewProvider(lorem.WithLogger(logger.With().Str("provider", "lorem").Logger()))
		registry.Register(p, providers.Lorem.Model, &providers.Lorem.Params)
	}

	return registry, nil
}
