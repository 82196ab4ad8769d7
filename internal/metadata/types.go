// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"fmt"
	"strings"

	"github.com/suddenlysixam/rpi-image-gen/internal/rules"
)

// Policy controls when a variable definition is written into the
// environment during resolution.
type Policy int

const (
	// PolicyImmediate sets the variable unless it is already present.
	PolicyImmediate Policy = iota
	// PolicyLazy defers the decision until every definition has been seen;
	// the last lazy definition wins when the variable is still unset.
	PolicyLazy
	// PolicyForce always overwrites, and the last force definition wins.
	PolicyForce
	// PolicySkip never sets the variable; it must be supplied externally.
	PolicySkip
)

func (p Policy) String() string {
	switch p {
	case PolicyImmediate:
		return "immediate"
	case PolicyLazy:
		return "lazy"
	case PolicyForce:
		return "force"
	case PolicySkip:
		return "skip"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// Tag returns the annotation used when describing an applied definition.
func (p Policy) Tag() string {
	switch p {
	case PolicyImmediate:
		return "[SET]"
	case PolicyLazy:
		return "[LAZY]"
	case PolicyForce:
		return "[FORCE]"
	case PolicySkip:
		return "[SKIP]"
	}
	return "[?]"
}

// ParsePolicy maps a Set: field value onto a policy. The accepted
// vocabulary is closed; anything else is an error.
func ParsePolicy(raw string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "immediate", "true", "1", "yes", "y":
		return PolicyImmediate, nil
	case "lazy":
		return PolicyLazy, nil
	case "force":
		return PolicyForce, nil
	case "skip", "false", "0", "no", "n":
		return PolicySkip, nil
	}
	return 0, fmt.Errorf("unknown set policy %q (want immediate, lazy, force or skip)", raw)
}

func parseBoolField(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "y":
		return true, nil
	case "false", "0", "no", "n":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", raw)
}

// Gate guards a dependency edge on an environment variable having an
// exact value. The edge is absent when the variable is unset.
type Gate struct {
	Var   string
	Value string
}

// Dep is a single dependency token, optionally gated.
type Dep struct {
	Name string
	Gate *Gate
}

func (d Dep) String() string {
	if d.Gate != nil {
		return fmt.Sprintf("%s?%s=%s", d.Name, d.Gate.Var, d.Gate.Value)
	}
	return d.Name
}

// Layer is the identity and relationship portion of a metadata block.
type Layer struct {
	Name             string
	Description      string
	Version          string
	Category         string
	Requires         []Dep
	Provides         []string
	RequiresProvider []string
	Conflicts        []Dep
}

// Variable is one ordered X-Env-Var declaration. Default holds the raw
// value with placeholders unexpanded; expansion happens at apply time.
type Variable struct {
	Name        string
	FullName    string
	Default     string
	Description string
	Rule        *rules.Rule
	Policy      Policy
	Required    bool
	Line        int
}

// ExternalVar names an environment variable the layer consumes but does
// not define, with an optional validation rule.
type ExternalVar struct {
	Name string
	Rule *rules.Rule
}

// File is the parsed metadata of a single layer file.
type File struct {
	Path      string
	Layer     *Layer
	Prefix    string
	Variables []*Variable
	Requires  []ExternalVar
	Optional  []ExternalVar
}

// EnvName builds the full environment variable name for a short name
// under a prefix. Short names are lowercased.
func EnvName(prefix, short string) string {
	return "IGconf_" + prefix + "_" + strings.ToLower(short)
}

// Lookup returns the variable declared under the given short name.
func (f *File) Lookup(short string) *Variable {
	for _, v := range f.Variables {
		if strings.EqualFold(v.Name, short) {
			return v
		}
	}
	return nil
}
