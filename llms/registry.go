package llms

import (
	"fmt"

	"github.com/kadirpekel/crewcore/registry"
)

// Registry holds constructed Provider instances keyed by provider name
// ("anthropic", "openai", "ollama", ...), adapting the teacher's generic
// registry.BaseRegistry[T] the same way pkg/llms did for its provider set.
type Registry struct {
	base *registry.BaseRegistry[Provider]
}

func NewRegistry() *Registry {
	return &Registry{base: registry.NewBaseRegistry[Provider]()}
}

func (r *Registry) Register(name string, p Provider) error {
	return r.base.Register(name, p)
}

func (r *Registry) Get(name string) (Provider, bool) {
	return r.base.Get(name)
}

func (r *Registry) List() []Provider {
	return r.base.List()
}

// Resolve looks up the provider named by ResolveProvider's output, returning
// a descriptive error (rather than a zero Provider) when the name isn't
// registered — crew/agent construction should fail fast on a typo'd
// provider config instead of silently falling back.
func (r *Registry) Resolve(explicit, model, fallback string, table []resolveRule) (Provider, error) {
	name := ResolveProvider(explicit, model, fallback, table)
	p, ok := r.base.Get(name)
	if !ok {
		return nil, fmt.Errorf("llms: no provider registered under %q (resolved from model %q)", name, model)
	}
	return p, nil
}
