package tutor

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed capabilities/models.yaml
var capabilitiesYAML []byte

// Capabilities are backend model metadata used to warn about requests that
// will probably be truncated or rejected. They never block a request.
//
// The embedded catalog can be extended with LoadFile when a deployment
// serves models it does not list.

// CapabilityFile is the on-disk catalog format.
type CapabilityFile struct {
	Version     string                 `yaml:"version"`
	LastUpdated string                 `yaml:"last_updated"`
	Providers   []ProviderCapabilities `yaml:"providers"`
}

// ProviderCapabilities describes one provider variant.
type ProviderCapabilities struct {
	Provider    ProviderID                 `yaml:"provider"`
	Models      map[string]ModelCapability `yaml:"models"`
	Constraints ProviderConstraints        `yaml:"constraints"`
}

// ModelCapability holds the limits of one backend model. Zero means unknown.
type ModelCapability struct {
	ContextWindow   int `yaml:"context_window"`
	MaxOutputTokens int `yaml:"max_output_tokens"`
}

// ProviderConstraints defines provider-wide parameter limits.
type ProviderConstraints struct {
	TemperatureMin float64 `yaml:"temperature_min"`
	TemperatureMax float64 `yaml:"temperature_max"`
}

// CapabilityCatalog indexes capabilities by provider.
type CapabilityCatalog struct {
	mu        sync.RWMutex
	providers map[ProviderID]*ProviderCapabilities
}

// NewCapabilityCatalog returns an empty catalog.
func NewCapabilityCatalog() *CapabilityCatalog {
	return &CapabilityCatalog{providers: make(map[ProviderID]*ProviderCapabilities)}
}

var defaultCatalog = sync.OnceValues(func() (*CapabilityCatalog, error) {
	c := NewCapabilityCatalog()
	if err := c.Load(capabilitiesYAML); err != nil {
		return nil, fmt.Errorf("embedded capabilities: %w", err)
	}
	return c, nil
})

// DefaultCapabilities returns the catalog built from the embedded YAML.
func DefaultCapabilities() *CapabilityCatalog {
	c, err := defaultCatalog()
	if err != nil {
		// The embedded file is part of the build; failing here is a programming error.
		panic(err)
	}
	return c
}

// EmbeddedCapabilities returns the raw catalog shipped with the binary.
func EmbeddedCapabilities() []byte {
	return capabilitiesYAML
}

// Load merges a YAML catalog. Providers present in data replace earlier entries.
func (c *CapabilityCatalog) Load(data []byte) error {
	var file CapabilityFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to unmarshal capabilities: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range file.Providers {
		caps := file.Providers[i]
		if !caps.Provider.IsValid() {
			return fmt.Errorf("capabilities: unknown provider '%s'", caps.Provider)
		}
		c.providers[caps.Provider] = &caps
	}
	return nil
}

// LoadFile merges a catalog from disk.
func (c *CapabilityCatalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read capabilities file: %w", err)
	}
	return c.Load(data)
}

// Provider returns capabilities for a provider variant.
func (c *CapabilityCatalog) Provider(id ProviderID) (*ProviderCapabilities, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	caps, ok := c.providers[id]
	return caps, ok
}

// Model returns the capability for a backend model. Ollama style tags
// ("llama3.2:3b") fall back to the untagged name.
func (c *CapabilityCatalog) Model(id ProviderID, model string) (ModelCapability, bool) {
	caps, ok := c.Provider(id)
	if !ok {
		return ModelCapability{}, false
	}
	if m, ok := caps.Models[model]; ok {
		return m, true
	}
	if base, _, found := strings.Cut(model, ":"); found {
		m, ok := caps.Models[base]
		return m, ok
	}
	return ModelCapability{}, false
}
