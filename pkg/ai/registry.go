package ai

import (
	"fmt"
	"maps"
	"net/http"
	"slices"
	"sync"

	"bankchat/pkg/config"
)

// ProviderType names a completion backend in the config file.
type ProviderType string

const (
	ProviderGroq    ProviderType = config.ProviderGroq
	ProviderOpenAI  ProviderType = config.ProviderOpenAI
	ProviderAzure   ProviderType = config.ProviderAzure
	ProviderBedrock ProviderType = config.ProviderBedrock
)

// Credential is how a backend authenticates.
type Credential string

const (
	// CredentialAPIKey backends need ProviderConfig.APIKey.
	CredentialAPIKey Credential = "api_key"
	// CredentialAWSChain backends resolve credentials through the AWS SDK.
	CredentialAWSChain Credential = "aws_chain"
)

// ProviderConfig is what a factory gets for one request.
type ProviderConfig struct {
	Type     ProviderType
	Settings config.ProviderConfig
	// APIKey is the credential resolved by the caller for this request.
	APIKey string
	// HTTPClient overrides the client built from Settings when set.
	HTTPClient *http.Client
}

// ProviderFactory builds a Provider for a single request.
type ProviderFactory func(cfg ProviderConfig) (Provider, error)

// Backend describes a registered provider.
type Backend struct {
	Type       ProviderType
	Name       string
	Credential Credential
}

type registration struct {
	backend Backend
	build   ProviderFactory
}

// Registry maps provider types to factories. Providers register themselves
// from init, so importing bankchat/pkg/ai/providers fills DefaultRegistry.
type Registry struct {
	mu      sync.RWMutex
	entries map[ProviderType]registration
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[ProviderType]registration)}
}

// Register adds or replaces the factory for b.Type.
func (r *Registry) Register(b Backend, build ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[b.Type] = registration{backend: b, build: build}
}

// Build constructs the provider named by cfg.Type. Backends that need an API
// key fail with ErrMissingCredentials before their factory runs.
func (r *Registry) Build(cfg ProviderConfig) (Provider, error) {
	r.mu.RLock()
	reg, ok := r.entries[cfg.Type]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
	if reg.backend.Credential == CredentialAPIKey && cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", cfg.Type, ErrMissingCredentials)
	}
	return reg.build(cfg)
}

// Backend returns the description registered for t.
func (r *Registry) Backend(t ProviderType) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[t]
	return reg.backend, ok
}

// Types lists the registered provider types in sorted order.
func (r *Registry) Types() []ProviderType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.entries))
}

// DefaultRegistry holds the built-in providers.
var DefaultRegistry = NewRegistry()

// RegisterProvider registers a provider with DefaultRegistry.
func RegisterProvider(b Backend, build ProviderFactory) {
	DefaultRegistry.Register(b, build)
}
