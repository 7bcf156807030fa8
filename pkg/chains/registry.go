package chains

import (
	"fmt"
	"sync"
)

// Registry manages chain adapters for different networks.
type Registry struct {
	adapters map[string]ChainAdapter
	mu       sync.RWMutex
}

var (
	globalRegistry     *Registry
	globalRegistryOnce sync.Once
)

// NewRegistry creates an empty registry. Tests use this to avoid sharing the
// global one.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]ChainAdapter)}
}

// InitGlobalRegistry initializes the global chain registry.
func InitGlobalRegistry() *Registry {
	globalRegistryOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// GetGlobalRegistry returns the global chain registry (nil if not initialized).
func GetGlobalRegistry() *Registry {
	return globalRegistry
}

// ResetGlobalRegistry resets the global registry (useful for testing).
func ResetGlobalRegistry() {
	globalRegistry = nil
	globalRegistryOnce = sync.Once{}
}

// Register registers a chain adapter keyed by adapter.Network(). Registering
// the same network twice replaces the previous adapter (idempotent). The
// adapter's network must belong to a known family; ad-hoc networks are
// rejected so that dispatch stays consistent with the static family tables.
func (r *Registry) Register(adapter ChainAdapter) error {
	if _, err := Classify(adapter.Network()); err != nil {
		return fmt.Errorf("cannot register adapter: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.Network()] = adapter
	return nil
}

// Get retrieves a chain adapter by network name.
func (r *Registry) Get(network string) (ChainAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, exists := r.adapters[network]
	if !exists {
		return nil, fmt.Errorf("no adapter registered for network: %s", network)
	}
	return adapter, nil
}

// GetSupportedNetworks returns a list of all registered networks.
func (r *Registry) GetSupportedNetworks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	networks := make([]string, 0, len(r.adapters))
	for network := range r.adapters {
		networks = append(networks, network)
	}
	return networks
}

// IsSupported checks if a network has a registered adapter.
func (r *Registry) IsSupported(network string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.adapters[network]
	return exists
}

// Unregister removes a chain adapter (useful for testing).
func (r *Registry) Unregister(network string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.adapters, network)
}
