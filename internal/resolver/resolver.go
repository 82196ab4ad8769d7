// SPDX-License-Identifier: MPL-2.0

// Package resolver applies variable definitions collected from an ordered
// set of layer files onto an environment snapshot. The inherited process
// environment is never mutated; resolution produces a new snapshot plus
// the change-set of entries it added or overwrote.
package resolver

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/suddenlysixam/rpi-image-gen/internal/metadata"
)

// MissingVariableError reports a variable the environment must supply:
// one whose every definition is skip (or Required with no applicable
// default), or an externally required X-Env-VarRequires name.
type MissingVariableError struct {
	Name     string
	Layer    string
	External bool
}

func (e *MissingVariableError) Error() string {
	if e.External {
		return fmt.Sprintf("layer '%s' requires environment variable %s", e.Layer, e.Name)
	}
	return fmt.Sprintf("variable %s (layer '%s') must be set in the environment", e.Name, e.Layer)
}

// ValidationError reports a resolved or externally supplied value that
// failed its validation rule.
type ValidationError struct {
	Name     string
	Layer    string
	Value    string
	Rule     string   // rule spec, set when the failure is an unset value
	Unset    bool     // the variable was unset and its rule disallows that
	External bool     // an X-Env-VarRequires name rather than a declared variable
	Problems []string // rule failures for a present value
}

func (e *ValidationError) Error() string {
	switch {
	case e.Unset:
		return fmt.Sprintf("variable %s (layer '%s') is unset but rule %q does not allow that",
			e.Name, e.Layer, e.Rule)
	case e.External:
		return fmt.Sprintf("environment variable %s (required by layer '%s') value %q: %s",
			e.Name, e.Layer, e.Value, strings.Join(e.Problems, "; "))
	default:
		return fmt.Sprintf("variable %s (layer '%s') value %q: %s",
			e.Name, e.Layer, e.Value, strings.Join(e.Problems, "; "))
	}
}

// definition is one variable declaration in global scan order.
type definition struct {
	v     *metadata.Variable
	layer string
	path  string
	pos   int
}

// Entry is one resolved variable in application order.
type Entry struct {
	Name   string
	Value  string
	Policy metadata.Policy
	Layer  string
	// Changed is true when resolution wrote the value, false when the
	// value was already present in the environment (skip, or immediate
	// with an external value).
	Changed bool
}

// Result is the outcome of a resolution pass.
type Result struct {
	// Env is the final environment snapshot.
	Env map[string]string
	// Entries lists every variable the pass considered, in application
	// order, with its effective value.
	Entries []Entry
}

// Changes returns only the entries resolution actually wrote.
func (r *Result) Changes() []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.Changed {
			out = append(out, e)
		}
	}
	return out
}

// Resolver accumulates definitions from layer files in build order.
type Resolver struct {
	env      map[string]string
	defs     map[string][]definition
	order    []string
	external []externalCheck
	pos      int
}

type externalCheck struct {
	ev       metadata.ExternalVar
	layer    string
	required bool
}

// New creates a resolver over a copy of the given environment. Pass
// Snapshot() for the process environment.
func New(env map[string]string) *Resolver {
	snap := make(map[string]string, len(env))
	for k, v := range env {
		snap[k] = v
	}
	return &Resolver{env: snap, defs: map[string][]definition{}}
}

// Snapshot copies the process environment into a map.
func Snapshot() map[string]string {
	out := map[string]string{}
	for _, kv := range os.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		out[k] = v
	}
	return out
}

// AddFile records the definitions of one parsed file. Files must be added
// in build order; position within the scan decides policy tie-breaks.
func (r *Resolver) AddFile(layer string, f *metadata.File) {
	for _, v := range f.Variables {
		name := v.FullName
		if _, seen := r.defs[name]; !seen {
			r.order = append(r.order, name)
		}
		r.defs[name] = append(r.defs[name], definition{v: v, layer: layer, path: f.Path, pos: r.pos})
		r.pos++
	}
	for _, ev := range f.Requires {
		r.external = append(r.external, externalCheck{ev: ev, layer: layer, required: true})
	}
	for _, ev := range f.Optional {
		r.external = append(r.external, externalCheck{ev: ev, layer: layer})
	}
}

// winner selects the effective definition for one variable according to
// its policies: the last force always wins and overwrites; otherwise,
// when the variable is unset, the first immediate wins, falling back to
// the last lazy.
func winner(defs []definition, present bool) (definition, bool) {
	var lastForce, firstImmediate, lastLazy *definition
	for i := range defs {
		d := &defs[i]
		switch d.v.Policy {
		case metadata.PolicyForce:
			lastForce = d
		case metadata.PolicyImmediate:
			if firstImmediate == nil {
				firstImmediate = d
			}
		case metadata.PolicyLazy:
			lastLazy = d
		}
	}
	switch {
	case lastForce != nil:
		return *lastForce, true
	case present:
		return definition{}, false
	case firstImmediate != nil:
		return *firstImmediate, true
	case lastLazy != nil:
		return *lastLazy, true
	}
	return definition{}, false
}

// Resolve runs winner selection, placeholder expansion, and validation.
func (r *Resolver) Resolve() (*Result, error) {
	type planned struct {
		name string
		def  definition
		set  bool
	}

	var plan []planned
	for _, name := range r.order {
		defs := r.defs[name]
		_, present := r.env[name]
		w, set := winner(defs, present)
		if !set {
			if !present && mustBePresent(defs) {
				return nil, &MissingVariableError{Name: name, Layer: defs[0].layer}
			}
			// Observed but not written; keep it visible for annotation,
			// attributed to its first definition.
			plan = append(plan, planned{name: name, def: defs[0]})
			continue
		}
		plan = append(plan, planned{name: name, def: w, set: true})
	}

	// Apply in the scan order of the winning definitions so references
	// between resolved variables follow declaration order.
	sort.SliceStable(plan, func(i, j int) bool { return plan[i].def.pos < plan[j].def.pos })

	res := &Result{Env: r.env}
	for _, p := range plan {
		if !p.set {
			res.Entries = append(res.Entries, Entry{
				Name:   p.name,
				Value:  r.env[p.name],
				Policy: p.def.v.Policy,
				Layer:  p.def.layer,
			})
			continue
		}
		value, err := r.expand(p.def)
		if err != nil {
			return nil, err
		}
		r.env[p.name] = value
		res.Entries = append(res.Entries, Entry{
			Name:    p.name,
			Value:   value,
			Policy:  p.def.v.Policy,
			Layer:   p.def.layer,
			Changed: true,
		})
	}

	if err := r.validate(); err != nil {
		return nil, err
	}
	return res, nil
}

// mustBePresent reports whether an unset variable with no winning
// definition is fatal: any skip-policy definition, or a Required: true
// definition whose policy does not derive the default.
func mustBePresent(defs []definition) bool {
	for _, d := range defs {
		if d.v.Policy == metadata.PolicySkip || d.v.Required {
			return true
		}
	}
	return false
}

// expand substitutes file placeholders and references to already-resolved
// variables in a definition's default value. A reference to a variable
// that has not been applied yet is a fatal ordering error.
func (r *Resolver) expand(d definition) (string, error) {
	placeholders := metadata.FilePlaceholders(d.path)
	value, err := metadata.Expand(d.v.Default, func(name string) (string, bool) {
		if v, ok := placeholders[name]; ok {
			return v, true
		}
		v, ok := r.env[name]
		return v, ok
	})
	if err != nil {
		return "", fmt.Errorf("variable %s (layer '%s'): %w; referenced variables must resolve earlier in the build order",
			d.v.FullName, d.layer, err)
	}
	return value, nil
}

// validate checks every resolved or externally supplied value against its
// rule, plus the externally required and optional variables.
func (r *Resolver) validate() error {
	for _, name := range r.order {
		for _, d := range r.defs[name] {
			if d.v.Rule == nil {
				continue
			}
			value, present := r.env[name]
			if !present {
				if d.v.Rule.AllowsUnset() {
					continue
				}
				return &ValidationError{Name: name, Layer: d.layer, Rule: d.v.Rule.Spec, Unset: true}
			}
			if problems := d.v.Rule.Validate(value); len(problems) > 0 {
				return &ValidationError{Name: name, Layer: d.layer, Value: value, Problems: problems}
			}
		}
	}

	for _, ec := range r.external {
		value, present := r.env[ec.ev.Name]
		if !present {
			if ec.required && (ec.ev.Rule == nil || !ec.ev.Rule.AllowsUnset()) {
				return &MissingVariableError{Name: ec.ev.Name, Layer: ec.layer, External: true}
			}
			continue
		}
		if ec.ev.Rule == nil {
			continue
		}
		if problems := ec.ev.Rule.Validate(value); len(problems) > 0 {
			if ec.required {
				return &ValidationError{
					Name: ec.ev.Name, Layer: ec.layer, Value: value,
					External: true, Problems: problems,
				}
			}
			log.Warn("optional environment variable failed validation",
				"var", ec.ev.Name, "layer", ec.layer, "value", value,
				"problems", strings.Join(problems, "; "))
		}
	}
	return nil
}
