package tools

import (
	"fmt"
	"sort"

	"github.com/kadirpekel/crewcore/config"
	"github.com/kadirpekel/crewcore/registry"
)

// Registry holds every Tool available to a crew, adapting the teacher's
// tools/registry.go ToolRegistry (registry.BaseRegistry[T] wrapper) from an
// entry-per-repository scheme down to a flat entry-per-tool scheme, since
// selection (exact then fuzzy) needs direct name->Tool lookups.
type Registry struct {
	base           *registry.BaseRegistry[Tool]
	fuzzyThreshold float64
}

func NewRegistry(cfg config.ToolConfigs) *Registry {
	cfg.SetDefaults()
	return &Registry{
		base:           registry.NewBaseRegistry[Tool](),
		fuzzyThreshold: cfg.FuzzyThreshold,
	}
}

func (r *Registry) Register(t Tool) error {
	return r.base.Register(t.Name(), t)
}

func (r *Registry) List() []Tool {
	tools := r.base.List()
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

func (r *Registry) Definitions() []Definition {
	tools := r.List()
	out := make([]Definition, len(tools))
	for i, t := range tools {
		out[i] = Definition{Name: t.Name(), Description: t.Description(), Schema: t.Schema()}
	}
	return out
}

// Select implements spec.md §4.2 "Selection": exact match first; otherwise
// the best LCS-similarity candidate, usable only when similarity is
// strictly greater than the configured threshold (default 0.85).
func (r *Registry) Select(name string) (Tool, error) {
	if t, ok := r.base.Get(name); ok {
		return t, nil
	}

	names := make([]string, 0)
	for _, t := range r.base.List() {
		names = append(names, t.Name())
	}
	best, score := BestFuzzyMatch(name, names)
	if score > r.fuzzyThreshold {
		t, _ := r.base.Get(best)
		return t, nil
	}

	return nil, &Error{Kind: ErrSelection, ToolName: name, Message: fmt.Sprintf("no tool matched (best similarity %.2f)", score)}
}
