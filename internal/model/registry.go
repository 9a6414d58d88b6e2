package model

import (
	"fmt"
	"sort"
	"sync"
)

// Model is the minimal surface every registered cosmological model exposes.
// Concrete background physics lives in the cosmo package; the registry only
// needs names and parameter access.
type Model interface {
	// Name returns the registered model name ("lcdm", "xcdm", "qgrw").
	Name() string

	// Params returns the model's mutable parameter set.
	Params() *Params
}

// Option configures model construction.
type Option func(*Options)

// Options carries construction-time settings factories may honor.
type Options struct {
	// VectorLens overrides the length of named vector parameters, e.g.
	// {"massnu": 1} to enable one massive neutrino species.
	VectorLens map[string]int
}

// WithVectorLen sets the length of a vector parameter at construction time.
func WithVectorLen(name string, n int) Option {
	return func(o *Options) {
		if o.VectorLens == nil {
			o.VectorLens = make(map[string]int)
		}
		o.VectorLens[name] = n
	}
}

// Factory constructs a model instance from resolved options.
type Factory func(opts Options) (Model, error)

// ErrUnknownModel is returned by NewFromName for unregistered names.
var ErrUnknownModel = fmt.Errorf("model: unknown model name")

var (
	regMu    sync.RWMutex
	registry = make(map[string]Factory)
)

// Register adds a model factory under the given name. Registering the same
// name twice panics; model registration happens in package init and a
// duplicate is a programming error.
func Register(name string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("model: duplicate registration of %q", name))
	}
	registry[name] = f
}

// NewFromName constructs a registered model by name.
func NewFromName(name string, opts ...Option) (Model, error) {
	regMu.RLock()
	f, ok := registry[name]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownModel, name, Names())
	}
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return f(o)
}

// Names returns the registered model names in sorted order.
func Names() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
