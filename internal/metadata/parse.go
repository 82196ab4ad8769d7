// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"fmt"
	"os"
	"strings"

	"github.com/suddenlysixam/rpi-image-gen/internal/rules"
)

// ParseFile reads and parses a single layer file.
func ParseFile(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layer file: %w", err)
	}
	return Parse(string(content), path)
}

// Parse extracts the metadata block from content and builds the file
// descriptor. Fields are processed in declaration order so that variable
// ordering is preserved for resolution.
func Parse(content, path string) (*File, error) {
	fields, err := extract(content, path)
	if err != nil {
		return nil, err
	}

	f := &File{Path: path}
	layer := &Layer{}
	layerSeen := false

	// Variable attribute fields must follow their base definition.
	byName := map[string]*Variable{}

	var reqNames, optNames []string
	var reqRules, optRules []*rules.Rule
	var reqLine, optLine int

	for _, fld := range fields {
		key := canonicalKey(fld.key)
		if !isSupportedField(fld.key) {
			return nil, parseErrorf(path, fld.line,
				"unsupported field %q (run with --help-validation for the field reference)", fld.key)
		}

		switch key {
		case canonicalKey(fieldLayerName):
			layer.Name = strings.TrimSpace(fld.value)
			layerSeen = true
		case canonicalKey(fieldLayerDesc), canonicalKey(fieldLayerDescription):
			if layer.Description != "" {
				return nil, parseErrorf(path, fld.line, "layer description given twice")
			}
			layer.Description = foldValue(fld.value)
			layerSeen = true
		case canonicalKey(fieldLayerCategory):
			layer.Category = strings.TrimSpace(fld.value)
			layerSeen = true
		case canonicalKey(fieldLayerVersion):
			layer.Version = strings.TrimSpace(fld.value)
			layerSeen = true
		case canonicalKey(fieldLayerRequires):
			deps, err := parseDepList(fld.value)
			if err != nil {
				return nil, parseErrorf(path, fld.line, "%s: %v", fieldLayerRequires, err)
			}
			layer.Requires = deps
			layerSeen = true
		case canonicalKey(fieldLayerConflicts):
			deps, err := parseDepList(fld.value)
			if err != nil {
				return nil, parseErrorf(path, fld.line, "%s: %v", fieldLayerConflicts, err)
			}
			layer.Conflicts = deps
			layerSeen = true
		case canonicalKey(fieldLayerProvides):
			caps, err := parseCapList(fld.value)
			if err != nil {
				return nil, parseErrorf(path, fld.line, "%s: %v", fieldLayerProvides, err)
			}
			layer.Provides = caps
			layerSeen = true
		case canonicalKey(fieldLayerRequiresProvider):
			caps, err := parseCapList(fld.value)
			if err != nil {
				return nil, parseErrorf(path, fld.line, "%s: %v", fieldLayerRequiresProvider, err)
			}
			layer.RequiresProvider = caps
			layerSeen = true

		case canonicalKey(fieldVarPrefix):
			prefix := strings.TrimSpace(fld.value)
			if !validVarName(prefix) {
				return nil, parseErrorf(path, fld.line, "invalid variable prefix %q", prefix)
			}
			f.Prefix = prefix
		case canonicalKey(fieldVarRequires):
			reqNames = splitNames(fld.value)
			reqLine = fld.line
		case canonicalKey(fieldVarRequiresValid):
			rs, err := parseRuleList(fld.value)
			if err != nil {
				return nil, parseErrorf(path, fld.line, "%s: %v", fieldVarRequiresValid, err)
			}
			reqRules = rs
		case canonicalKey(fieldVarOptional):
			optNames = splitNames(fld.value)
			optLine = fld.line
		case canonicalKey(fieldVarOptionalValid):
			rs, err := parseRuleList(fld.value)
			if err != nil {
				return nil, parseErrorf(path, fld.line, "%s: %v", fieldVarOptionalValid, err)
			}
			optRules = rs

		default:
			name, attr, _ := splitVarField(fld.key)
			if attr == "" {
				v := &Variable{
					Name:    name,
					Default: foldValue(fld.value),
					Policy:  PolicyImmediate,
					Line:    fld.line,
				}
				f.Variables = append(f.Variables, v)
				byName[canonicalKey(name)] = v
				continue
			}
			v := byName[canonicalKey(name)]
			if v == nil {
				return nil, parseErrorf(path, fld.line,
					"attribute %q has no preceding %s%s definition", fld.key, varPrefix, name)
			}
			switch canonicalKey(attr) {
			case canonicalKey(attrDesc), canonicalKey(attrDescription):
				if v.Description != "" {
					return nil, parseErrorf(path, fld.line, "description for variable %q given twice", name)
				}
				v.Description = foldValue(fld.value)
			case canonicalKey(attrValid):
				r, err := rules.Parse(strings.TrimSpace(foldValue(fld.value)))
				if err != nil {
					return nil, parseErrorf(path, fld.line, "variable %q: %v", name, err)
				}
				v.Rule = r
			case canonicalKey(attrSet):
				p, err := ParsePolicy(fld.value)
				if err != nil {
					return nil, parseErrorf(path, fld.line, "variable %q: %v", name, err)
				}
				v.Policy = p
			case canonicalKey(attrRequired):
				b, err := parseBoolField(fld.value)
				if err != nil {
					return nil, parseErrorf(path, fld.line, "variable %q: %v", name, err)
				}
				v.Required = b
			}
		}
	}

	if layerSeen {
		if layer.Name == "" {
			return nil, parseErrorf(path, 0, "%s is required when layer fields are present", fieldLayerName)
		}
		f.Layer = layer
	}

	if len(f.Variables) > 0 && f.Prefix == "" {
		return nil, parseErrorf(path, f.Variables[0].Line,
			"%s is required when variables are declared", fieldVarPrefix)
	}
	for _, v := range f.Variables {
		v.FullName = EnvName(f.Prefix, v.Name)
	}

	var err2 error
	f.Requires, err2 = pairExternal(reqNames, reqRules)
	if err2 != nil {
		return nil, parseErrorf(path, reqLine, "%s: %v", fieldVarRequires, err2)
	}
	f.Optional, err2 = pairExternal(optNames, optRules)
	if err2 != nil {
		return nil, parseErrorf(path, optLine, "%s: %v", fieldVarOptional, err2)
	}
	return f, nil
}

// foldValue joins continuation lines into a single space-normalized value.
func foldValue(v string) string {
	parts := strings.Split(v, "\n")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// splitList splits a comma-separated field value, folding continuations
// and dropping empty tokens.
func splitList(v string) []string {
	var out []string
	for _, tok := range strings.Split(foldValue(v), ",") {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// splitNames splits an external variable name list on commas or
// whitespace, whichever the author used.
func splitNames(v string) []string {
	return strings.FieldsFunc(foldValue(v), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}

// parseDepList parses a comma-separated dependency list. Tokens may carry
// ${VAR} references (resolved when the graph is built) and an optional
// ?VAR=value guard suffix.
func parseDepList(v string) ([]Dep, error) {
	var out []Dep
	for _, tok := range splitList(v) {
		d, err := parseDepToken(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func parseDepToken(tok string) (Dep, error) {
	name, guard, gated := strings.Cut(tok, "?")
	if name == "" {
		return Dep{}, fmt.Errorf("empty dependency name in %q", tok)
	}
	if err := checkDepName(name); err != nil {
		return Dep{}, err
	}
	if !gated {
		return Dep{Name: name}, nil
	}
	gvar, gval, ok := strings.Cut(guard, "=")
	if !ok || gvar == "" {
		return Dep{}, fmt.Errorf("malformed guard in %q (want name?VAR=value)", tok)
	}
	if !validVarName(gvar) {
		return Dep{}, fmt.Errorf("invalid guard variable %q in %q", gvar, tok)
	}
	return Dep{Name: name, Gate: &Gate{Var: gvar, Value: gval}}, nil
}

// checkDepName accepts layer-name characters plus ${VAR} reference spans.
func checkDepName(name string) error {
	i := 0
	for i < len(name) {
		if strings.HasPrefix(name[i:], "${") {
			end := strings.IndexByte(name[i:], '}')
			if end < 0 {
				return fmt.Errorf("unterminated variable reference in %q", name)
			}
			ref := name[i+2 : i+end]
			if !validVarName(ref) {
				return fmt.Errorf("invalid variable reference %q in %q", ref, name)
			}
			i += end + 1
			continue
		}
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '_', c == '-', c == '.':
		default:
			return fmt.Errorf("invalid character %q in dependency name %q", string(c), name)
		}
		i++
	}
	return nil
}

// parseCapList parses Provides/RequiresProvider capability names. Plain
// tokens only; no guards or references.
func parseCapList(v string) ([]string, error) {
	caps := splitList(v)
	for _, c := range caps {
		for _, r := range c {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
				r == '_', r == '-':
			default:
				return nil, fmt.Errorf("invalid capability name %q", c)
			}
		}
	}
	return caps, nil
}

// parseRuleList compiles a comma-free, whitespace-separated rule list.
// Rules for external variables are paired positionally with the names, so
// the list separator is whitespace; rule specs themselves may contain
// commas (enums).
func parseRuleList(v string) ([]*rules.Rule, error) {
	var out []*rules.Rule
	for _, spec := range strings.Fields(foldValue(v)) {
		r, err := rules.Parse(spec)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func pairExternal(names []string, ruleList []*rules.Rule) ([]ExternalVar, error) {
	if len(ruleList) > len(names) {
		return nil, fmt.Errorf("%d validation rules for %d variables", len(ruleList), len(names))
	}
	var out []ExternalVar
	for i, n := range names {
		if !validExternalName(n) {
			return nil, fmt.Errorf("invalid variable name %q", n)
		}
		ev := ExternalVar{Name: n}
		if i < len(ruleList) {
			ev.Rule = ruleList[i]
		}
		out = append(out, ev)
	}
	return out, nil
}

func validExternalName(n string) bool {
	if n == "" {
		return false
	}
	for _, r := range n {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}
