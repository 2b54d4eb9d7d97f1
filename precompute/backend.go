package precompute

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/gogpu/atmosphere/render"
	"github.com/gogpu/atmosphere/texture"
)

// Backend names.
const (
	BackendRaster    = "raster"
	BackendNodeGraph = "nodegraph"
)

// ErrBackendNotAvailable is returned when a requested backend is not
// registered.
var ErrBackendNotAvailable = errors.New("precompute: backend not available")

// Backend executes a plan.
//
// Implementations must run the passes in plan order, make every output of a
// pass visible before the next pass reads it, and stop between passes or
// texel rows once ctx is cancelled.
type Backend interface {
	// Name returns the backend identifier (e.g., "raster", "nodegraph").
	Name() string

	// Require returns a *render.CapabilityError if the device lacks a
	// feature the backend needs to execute plan.
	Require(caps render.DeviceCapabilities, plan *Plan) error

	// Execute runs every pass and returns the final contents of each
	// table. Tables the plan does not use are nil.
	Execute(ctx context.Context, plan *Plan) ([NumTextures]*texture.Texture3D, error)
}

// Factory creates a new backend instance.
type Factory func() Backend

var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Priority order for backend selection (first available wins).
	backendPriority = []string{BackendRaster, BackendNodeGraph}
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it is replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the registered backend names, sorted.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Get returns a backend instance by name.
// Returns nil if the backend is not registered.
func Get(name string) Backend {
	registryMu.RLock()
	defer registryMu.RUnlock()

	factory, ok := backends[name]
	if !ok {
		return nil
	}
	return factory()
}

// Default returns the best available backend based on priority.
// Returns nil if no backends are registered.
func Default() Backend {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range backendPriority {
		if factory, ok := backends[name]; ok {
			if b := factory(); b != nil {
				return b
			}
		}
	}
	for _, name := range slices.Sorted(maps.Keys(backends)) {
		if b := backends[name](); b != nil {
			return b
		}
	}
	return nil
}
