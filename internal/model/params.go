// Package model provides the named-parameter machinery shared by all
// cosmological models: scalar and vector parameters with defaults and bounds,
// set/get by index or by name, and a registry for constructing models from
// their registered names.
package model

import (
	"fmt"
	"io"
	"sort"
)

// ParamDesc describes a single scalar parameter or one component family of a
// vector parameter.
type ParamDesc struct {
	// Name is the machine name used by SetByName ("Omegac", "w", ...).
	Name string

	// Symbol is the display symbol used in logs ("Omega_c", "w", ...).
	Symbol string

	// Default is the value a freshly constructed model starts with.
	Default float64

	// Lower and Upper bound the allowed values. A Set outside [Lower, Upper]
	// fails with ErrBounds.
	Lower float64
	Upper float64
}

// ErrBounds is returned when a parameter value falls outside its declared
// bounds.
var ErrBounds = fmt.Errorf("model: parameter out of bounds")

// ErrUnknownParam is returned when a parameter name or index does not exist.
var ErrUnknownParam = fmt.Errorf("model: unknown parameter")

// Params holds the current values of a model's scalar and vector parameters.
// Every mutation bumps a state counter so dependents (prepared distance
// tables, perturbation splines) can detect staleness cheaply.
type Params struct {
	descs  []ParamDesc
	values []float64

	vdescs  []ParamDesc
	vectors [][]float64

	byName  map[string]int
	vByName map[string]int

	state uint64
}

// NewParams creates a parameter set from scalar descriptions. All values
// start at their defaults.
func NewParams(descs []ParamDesc) *Params {
	p := &Params{
		descs:   descs,
		values:  make([]float64, len(descs)),
		byName:  make(map[string]int, len(descs)),
		vByName: make(map[string]int),
	}
	for i, d := range descs {
		p.values[i] = d.Default
		p.byName[d.Name] = i
	}
	return p
}

// AddVector declares a vector parameter of the given length. Components start
// at the description's default.
func (p *Params) AddVector(desc ParamDesc, length int) {
	vals := make([]float64, length)
	for i := range vals {
		vals[i] = desc.Default
	}
	p.vByName[desc.Name] = len(p.vdescs)
	p.vdescs = append(p.vdescs, desc)
	p.vectors = append(p.vectors, vals)
	p.state++
}

// Len returns the number of scalar parameters.
func (p *Params) Len() int { return len(p.descs) }

// State returns the mutation counter. It changes whenever any parameter is
// set, so callers can cache derived quantities keyed on it.
func (p *Params) State() uint64 { return p.state }

// Get returns the value of the scalar parameter at index i.
func (p *Params) Get(i int) float64 { return p.values[i] }

// Set assigns the scalar parameter at index i, enforcing bounds.
func (p *Params) Set(i int, v float64) error {
	if i < 0 || i >= len(p.descs) {
		return fmt.Errorf("%w: index %d", ErrUnknownParam, i)
	}
	d := p.descs[i]
	if v < d.Lower || v > d.Upper {
		return fmt.Errorf("%w: %s = %g outside [%g, %g]", ErrBounds, d.Name, v, d.Lower, d.Upper)
	}
	p.values[i] = v
	p.state++
	return nil
}

// GetByName returns the scalar parameter with the given name.
func (p *Params) GetByName(name string) (float64, error) {
	i, ok := p.byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	return p.values[i], nil
}

// SetByName assigns the scalar parameter with the given name.
func (p *Params) SetByName(name string, v float64) error {
	i, ok := p.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	return p.Set(i, v)
}

// VectorLen returns the length of the named vector parameter, or 0 when it
// does not exist.
func (p *Params) VectorLen(name string) int {
	i, ok := p.vByName[name]
	if !ok {
		return 0
	}
	return len(p.vectors[i])
}

// GetVectorComp returns component j of the named vector parameter.
func (p *Params) GetVectorComp(name string, j int) (float64, error) {
	i, ok := p.vByName[name]
	if !ok {
		return 0, fmt.Errorf("%w: vector %q", ErrUnknownParam, name)
	}
	if j < 0 || j >= len(p.vectors[i]) {
		return 0, fmt.Errorf("%w: vector %q component %d", ErrUnknownParam, name, j)
	}
	return p.vectors[i][j], nil
}

// SetVectorComp assigns component j of the named vector parameter, enforcing
// the vector's bounds.
func (p *Params) SetVectorComp(name string, j int, v float64) error {
	i, ok := p.vByName[name]
	if !ok {
		return fmt.Errorf("%w: vector %q", ErrUnknownParam, name)
	}
	if j < 0 || j >= len(p.vectors[i]) {
		return fmt.Errorf("%w: vector %q component %d", ErrUnknownParam, name, j)
	}
	d := p.vdescs[i]
	if v < d.Lower || v > d.Upper {
		return fmt.Errorf("%w: %s[%d] = %g outside [%g, %g]", ErrBounds, d.Name, j, v, d.Lower, d.Upper)
	}
	p.vectors[i][j] = v
	p.state++
	return nil
}

// SetVector replaces the named vector parameter wholesale.
func (p *Params) SetVector(name string, vs []float64) error {
	for j, v := range vs {
		if err := p.SetVectorComp(name, j, v); err != nil {
			return err
		}
	}
	return nil
}

// Names returns the scalar parameter names in declaration order.
func (p *Params) Names() []string {
	out := make([]string, len(p.descs))
	for i, d := range p.descs {
		out[i] = d.Name
	}
	return out
}

// VectorNames returns the vector parameter names in declaration order.
func (p *Params) VectorNames() []string {
	out := make([]string, len(p.vdescs))
	for i, d := range p.vdescs {
		out[i] = d.Name
	}
	return out
}

// LogAll writes all current parameter values to w as a single "#"-prefixed
// comment line, matching the column-data output convention.
func (p *Params) LogAll(w io.Writer) {
	fmt.Fprintf(w, "# Model parameters:")
	for i, d := range p.descs {
		fmt.Fprintf(w, " %s = % .8g", d.Symbol, p.values[i])
	}
	for i, d := range p.vdescs {
		for j, v := range p.vectors[i] {
			fmt.Fprintf(w, " %s[%d] = % .8g", d.Symbol, j, v)
		}
	}
	fmt.Fprintln(w)
}

// Snapshot returns a stable name -> value map of every parameter, vector
// components keyed as "name[i]". Used for hashing into the result cache.
func (p *Params) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(p.values))
	for i, d := range p.descs {
		out[d.Name] = p.values[i]
	}
	for i, d := range p.vdescs {
		for j, v := range p.vectors[i] {
			out[fmt.Sprintf("%s[%d]", d.Name, j)] = v
		}
	}
	return out
}

// SortedKeys returns the keys of a snapshot in deterministic order.
func SortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
