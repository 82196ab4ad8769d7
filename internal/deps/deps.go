// SPDX-License-Identifier: MPL-2.0

// Package deps builds and validates the layer dependency graph:
// transitive closure over Requires and RequiresProvider edges, conflict
// detection, and deterministic build ordering.
package deps

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/suddenlysixam/rpi-image-gen/internal/dag"
	"github.com/suddenlysixam/rpi-image-gen/internal/metadata"
	"github.com/suddenlysixam/rpi-image-gen/internal/registry"
)

// Env looks up an environment variable. Injected so graph construction
// is testable with synthetic environments.
type Env func(string) (string, bool)

// OSEnv returns the process environment lookup.
func OSEnv() Env { return os.LookupEnv }

// MissingLayerError is returned when a required layer is not in the registry.
type MissingLayerError struct {
	Name       string
	RequiredBy string
}

func (e *MissingLayerError) Error() string {
	if e.RequiredBy == "" {
		return fmt.Sprintf("layer '%s' not found", e.Name)
	}
	return fmt.Sprintf("layer '%s' (required by '%s') not found", e.Name, e.RequiredBy)
}

// NoProviderError is returned when no discovered layer provides a
// required capability.
type NoProviderError struct {
	Capability string
	RequiredBy string
}

func (e *NoProviderError) Error() string {
	return fmt.Sprintf("no layer provides capability '%s' (required by '%s')", e.Capability, e.RequiredBy)
}

// AmbiguousProviderError is returned when more than one layer provides
// the same required capability.
type AmbiguousProviderError struct {
	Capability string
	Providers  []string
}

func (e *AmbiguousProviderError) Error() string {
	return fmt.Sprintf("capability '%s' has multiple providers: %s",
		e.Capability, strings.Join(e.Providers, ", "))
}

// ConflictError is returned when two layers declared as conflicting are
// both part of the selection.
type ConflictError struct {
	Layer    string
	Conflict string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("layer '%s' conflicts with '%s'", e.Layer, e.Conflict)
}

// Builder resolves dependency tokens against an environment and walks
// the registry to produce validated build orders.
type Builder struct {
	reg       *registry.Registry
	env       Env
	providers map[string][]string
}

// NewBuilder creates a builder over the given registry. env may be nil,
// in which case dependency tokens must not reference the environment.
func NewBuilder(reg *registry.Registry, env Env) *Builder {
	if env == nil {
		env = func(string) (string, bool) { return "", false }
	}
	return &Builder{reg: reg, env: env, providers: reg.Providers()}
}

// resolveDep expands ${VAR} references in a dependency token and applies
// its guard. active is false when the guard disables the edge.
func (b *Builder) resolveDep(owner string, d metadata.Dep) (name string, active bool, err error) {
	name = d.Name
	if metadata.HasReference(name) {
		name, err = metadata.Expand(name, b.env)
		if err != nil {
			return "", false, fmt.Errorf("layer '%s': %w", owner, err)
		}
		if name == "" {
			return "", false, fmt.Errorf("layer '%s': dependency %q expands to an empty name", owner, d.Name)
		}
	}
	if d.Gate == nil {
		return name, true, nil
	}
	got, ok := b.env(d.Gate.Var)
	if !ok {
		log.Debug("gated dependency inactive, guard variable unset",
			"layer", owner, "dep", name, "guard", d.Gate.Var)
		return name, false, nil
	}
	if got != d.Gate.Value {
		log.Warn("gated dependency inactive, guard value mismatch",
			"layer", owner, "dep", name, "guard", d.Gate.Var,
			"want", d.Gate.Value, "got", got)
		return name, false, nil
	}
	return name, true, nil
}

// provider resolves a capability to its single provider.
func (b *Builder) provider(owner, capability string) (string, error) {
	names := b.providers[capability]
	switch len(names) {
	case 0:
		return "", &NoProviderError{Capability: capability, RequiredBy: owner}
	case 1:
		return names[0], nil
	}
	return "", &AmbiguousProviderError{Capability: capability, Providers: names}
}

// Graph builds the dependency graph for the transitive closure of the
// given target layers. All edges are validated; conflicts and cycles are
// not checked here.
func (b *Builder) Graph(targets []string) (*dag.Graph, error) {
	g := dag.New()
	queue := make([]string, 0, len(targets))
	queued := map[string]bool{}
	enqueue := func(name string) {
		if !queued[name] {
			queued[name] = true
			queue = append(queue, name)
		}
	}
	for _, t := range targets {
		enqueue(t)
	}

	for i := 0; i < len(queue); i++ {
		name := queue[i]
		entry, ok := b.reg.Get(name)
		if !ok {
			requiredBy := ""
			if g.HasNode(name) {
				requiredBy = firstDependent(g, name)
			}
			return nil, &MissingLayerError{Name: name, RequiredBy: requiredBy}
		}
		g.AddNode(name)

		layer := entry.File.Layer
		for _, d := range layer.Requires {
			dep, active, err := b.resolveDep(name, d)
			if err != nil {
				return nil, err
			}
			if !active {
				continue
			}
			g.AddEdge(name, dep)
			enqueue(dep)
		}
		for _, capability := range layer.RequiresProvider {
			prov, err := b.provider(name, capability)
			if err != nil {
				return nil, err
			}
			g.AddEdge(name, prov)
			enqueue(prov)
		}
	}
	return g, nil
}

func firstDependent(g *dag.Graph, name string) string {
	for _, n := range g.Nodes() {
		for _, d := range g.Dependencies(n) {
			if d == name {
				return n
			}
		}
	}
	return ""
}

// checkConflicts verifies that no two layers in the closure declare each
// other as conflicting. Conflict tokens honor guards and references the
// same way dependency tokens do.
func (b *Builder) checkConflicts(g *dag.Graph) error {
	inClosure := map[string]bool{}
	for _, n := range g.Nodes() {
		inClosure[n] = true
	}
	for _, n := range g.Nodes() {
		entry, ok := b.reg.Get(n)
		if !ok {
			continue
		}
		for _, d := range entry.File.Layer.Conflicts {
			name, active, err := b.resolveDep(n, d)
			if err != nil {
				return err
			}
			if active && inClosure[name] {
				return &ConflictError{Layer: n, Conflict: name}
			}
		}
	}
	return nil
}

// Check validates the closure of the targets: every dependency resolvable,
// capabilities uniquely provided, no conflicts, no cycles.
func (b *Builder) Check(targets []string) error {
	_, err := b.BuildOrder(targets)
	return err
}

// BuildOrder returns the deterministic build order for the targets:
// dependencies first, discovery order as the tie-break.
func (b *Builder) BuildOrder(targets []string) ([]string, error) {
	g, err := b.Graph(targets)
	if err != nil {
		return nil, err
	}
	if err := b.checkConflicts(g); err != nil {
		return nil, err
	}
	return g.TopologicalSort()
}

// ReverseDeps lists the layers that directly depend on target, through a
// Requires edge or through a capability target provides. Sorted by name.
func (b *Builder) ReverseDeps(target string) ([]string, error) {
	entry, ok := b.reg.Get(target)
	if !ok {
		return nil, &MissingLayerError{Name: target}
	}
	provided := map[string]bool{}
	for _, capability := range entry.File.Layer.Provides {
		provided[capability] = true
	}

	var out []string
	for _, name := range b.reg.Names() {
		if name == target {
			continue
		}
		e, _ := b.reg.Get(name)
		depends := false
		for _, d := range e.File.Layer.Requires {
			dep, active, err := b.resolveDep(name, d)
			if err != nil {
				return nil, err
			}
			if active && dep == target {
				depends = true
				break
			}
		}
		if !depends {
			for _, capability := range e.File.Layer.RequiresProvider {
				if provided[capability] {
					depends = true
					break
				}
			}
		}
		if depends {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}
