package llm

import (
	"fmt"

	"github.com/poiesic/llmwatch/core"
)

// Registry maps each provider variant to its configured generator. The
// variant set itself is closed (core.Provider); the registry only decides,
// at runtime, which of them this process was configured to serve.
type Registry struct {
	generators map[core.Provider]Generator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{generators: make(map[core.Provider]Generator)}
}

// Register binds a generator to a provider variant, replacing any previous
// binding. Registration happens at startup; the registry is read-only after
// that and safe for concurrent Generator calls.
func (r *Registry) Register(p core.Provider, g Generator) {
	r.generators[p] = g
}

// Generator returns the generator bound to p, or ErrProviderNotConfigured
// when the process was started without that backend.
func (r *Registry) Generator(p core.Provider) (Generator, error) {
	g, ok := r.generators[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, p)
	}
	return g, nil
}
