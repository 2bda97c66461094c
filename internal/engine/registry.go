package engine

import (
	"fmt"
	"sort"

	"backtest-gate/internal/config"
)

// Registry maps configured names to engines.
type Registry struct {
	engines map[string]Engine
	def     string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]Engine)}
}

// FromConfig registers a CommandEngine per configured engine.
func FromConfig(cfg *config.Config) *Registry {
	r := NewRegistry()
	for name, ec := range cfg.Engines {
		r.Register(NewCommandEngine(name, ec))
	}
	r.def = cfg.DefaultEngine
	return r
}

// Register adds e, replacing any engine with the same name.
func (r *Registry) Register(e Engine) {
	r.engines[e.Name()] = e
}

// Get returns the engine called name. An empty name selects the default
// engine, or the only engine when exactly one is registered.
func (r *Registry) Get(name string) (Engine, error) {
	if name == "" {
		name = r.def
	}
	if name == "" && len(r.engines) == 1 {
		for _, e := range r.engines {
			return e, nil
		}
	}
	e, ok := r.engines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownEngine, name, r.Names())
	}
	return e, nil
}

// Names returns the registered engine names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.engines))
	for n := range r.engines {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
