package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tutor "github.com/haowjy/meridian-tutor"
	"github.com/haowjy/meridian-tutor/internal/config"
)

func modelsByID(models []tutor.ModelInfo) map[tutor.ProviderID]tutor.ModelInfo {
	out := make(map[tutor.ProviderID]tutor.ModelInfo, len(models))
	for _, m := range models {
		out[m.ID] = m
	}
	return out
}

func TestBuildRegistry_NoCredentials(t *testing.T) {
	cfg := config.Default()

	registry, err := BuildRegistry(cfg, zerolog.Nop())
	require.NoError(t, err)

	_, err = registry.Lookup(tutor.ProviderOpenAI)
	assert.ErrorIs(t, err, tutor.ErrMissingCredentials)
	assert.Contains(t, err.Error(), config.EnvOpenAIAPIKey)

	_, err = registry.Lookup(tutor.ProviderAnthropic)
	assert.ErrorIs(t, err, tutor.ErrMissingCredentials)

	entry, err := registry.Lookup(tutor.ProviderOllama)
	require.NoError(t, err)
	assert.Equal(t, "llama3.2", entry.Model)

	_, err = registry.Lookup(tutor.ProviderLorem)
	assert.True(t, tutor.IsConfigurationError(err))

	models := modelsByID(registry.Models())
	assert.Len(t, models, 3)
	assert.False(t, models[tutor.ProviderOpenAI].Available)
	assert.True(t, models[tutor.ProviderOllama].Available)
}

func TestBuildRegistry_AllVariants(t *testing.T) {
	cfg := config.Default()
	cfg.OpenAIAPIKey = "sk-test"
	cfg.AnthropicAPIKey = "sk-ant-test"
	enabled := true
	cfg.Providers.Lorem.Enabled = &enabled

	registry, err := BuildRegistry(cfg, zerolog.Nop())
	require.NoError(t, err)

	for _, id := range tutor.KnownProviders() {
		entry, err := registry.Lookup(id)
		require.NoError(t, err, "variant %s", id)
		assert.Equal(t, id, entry.Provider.Name())
	}
}

func TestBuildRegistry_DisabledInConfig(t *testing.T) {
	cfg := config.Default()
	cfg.OpenAIAPIKey = "sk-test"
	disabled := false
	cfg.Providers.OpenAI.Enabled = &disabled
	cfg.Providers.Ollama.Enabled = &disabled

	registry, err := BuildRegistry(cfg, zerolog.Nop())
	require.NoError(t, err)

	_, err = registry.Lookup(tutor.ProviderOpenAI)
	assert.True(t, tutor.IsConfigurationError(err))
	_, err = registry.Lookup(tutor.ProviderOllama)
	assert.True(t, tutor.IsConfigurationError(err))
}

func TestBuildRegistry_BadOllamaHost(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.Ollama.Host = "http://"

	_, err := BuildRegistry(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestBuildContainer_LoremExplains(t *testing.T) {
	cfg := config.Default()
	enabled := true
	cfg.Providers.Lorem.Enabled = &enabled
	cfg.Providers.Lorem.Model = "lorem-instant"
	cfg.Server.DefaultModel = "lorem"

	c, err := BuildContainer(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, c.Server)

	x, err := c.Explainer.Explain(context.Background(), tutor.ExplanationRequest{
		Language: tutor.LanguagePython,
		Code:     "print('hi')",
		Model:    tutor.ProviderLorem,
	})
	require.NoError(t, err)

	text, err := x.Collect()
	require.NoError(t, err)
	assert.NotEmpty(t, text)
}

func TestBuildContainer_MissingCapabilitiesFile(t *testing.T) {
	cfg := config.Default()
	cfg.CapabilitiesFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := BuildContainer(cfg, zerolog.Nop())
	assert.Error(t, err)
}
