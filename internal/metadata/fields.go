// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"sort"
	"strings"
)

// Field name construction for the X-Env dialect. Matching is
// case-insensitive, mirroring RFC822-style field semantics.
const (
	layerPrefix = "X-Env-Layer-"
	varPrefix   = "X-Env-Var-"

	fieldLayerName             = "X-Env-Layer-Name"
	fieldLayerDesc             = "X-Env-Layer-Desc"
	fieldLayerDescription      = "X-Env-Layer-Description"
	fieldLayerCategory         = "X-Env-Layer-Category"
	fieldLayerVersion          = "X-Env-Layer-Version"
	fieldLayerRequires         = "X-Env-Layer-Requires"
	fieldLayerProvides         = "X-Env-Layer-Provides"
	fieldLayerRequiresProvider = "X-Env-Layer-RequiresProvider"
	fieldLayerConflicts        = "X-Env-Layer-Conflicts"

	fieldVarPrefix        = "X-Env-VarPrefix"
	fieldVarRequires      = "X-Env-VarRequires"
	fieldVarRequiresValid = "X-Env-VarRequires-Valid"
	fieldVarOptional      = "X-Env-VarOptional"
	fieldVarOptionalValid = "X-Env-VarOptional-Valid"

	attrDesc        = "Desc"
	attrDescription = "Description"
	attrValid       = "Valid"
	attrSet         = "Set"
	attrRequired    = "Required"
)

func canonicalKey(key string) string { return strings.ToLower(key) }

var singleFields = map[string]string{
	canonicalKey(fieldLayerName):             "Layer name identifier",
	canonicalKey(fieldLayerDesc):             "Layer description",
	canonicalKey(fieldLayerDescription):      "Layer description",
	canonicalKey(fieldLayerCategory):         "Layer category",
	canonicalKey(fieldLayerVersion):          "Layer version",
	canonicalKey(fieldLayerRequires):         "Required layer dependencies",
	canonicalKey(fieldLayerProvides):         "Capabilities provided by this layer",
	canonicalKey(fieldLayerRequiresProvider): "Capabilities required (virtual)",
	canonicalKey(fieldLayerConflicts):        "Conflicting layers",
	canonicalKey(fieldVarPrefix):             "Variable prefix for environment variables",
	canonicalKey(fieldVarRequires):           "Environment variables required by this layer",
	canonicalKey(fieldVarRequiresValid):      "Validation rules for required environment variables",
	canonicalKey(fieldVarOptional):           "Optional environment variables used by this layer",
	canonicalKey(fieldVarOptionalValid):      "Validation rules for optional environment variables",
}

var varAttrs = map[string]bool{
	canonicalKey(attrDesc):        true,
	canonicalKey(attrDescription): true,
	canonicalKey(attrValid):       true,
	canonicalKey(attrSet):         true,
	canonicalKey(attrRequired):    true,
}

// splitVarField splits an X-Env-Var-* field into its variable short name and
// optional attribute suffix. ok is false when key is not a variable field.
func splitVarField(key string) (name, attr string, ok bool) {
	if len(key) < len(varPrefix) || !strings.EqualFold(key[:len(varPrefix)], varPrefix) {
		return "", "", false
	}
	rest := key[len(varPrefix):]
	name, attr, _ = strings.Cut(rest, "-")
	return name, attr, true
}

// isSupportedField reports whether a field name belongs to the closed schema.
func isSupportedField(key string) bool {
	if _, ok := singleFields[canonicalKey(key)]; ok {
		return true
	}
	name, attr, ok := splitVarField(key)
	if !ok || !validVarName(name) {
		return false
	}
	if attr == "" {
		return true
	}
	return varAttrs[canonicalKey(attr)]
}

func validVarName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}

// SupportedFields returns the closed field schema for display in
// diagnostics, sorted for stable output.
func SupportedFields() []string {
	out := []string{
		fieldLayerName, fieldLayerDesc, fieldLayerDescription, fieldLayerCategory,
		fieldLayerVersion, fieldLayerRequires, fieldLayerProvides,
		fieldLayerRequiresProvider, fieldLayerConflicts,
		fieldVarPrefix, fieldVarRequires, fieldVarRequiresValid,
		fieldVarOptional, fieldVarOptionalValid,
		varPrefix + "<name>",
		varPrefix + "<name>-" + attrDesc,
		varPrefix + "<name>-" + attrValid,
		varPrefix + "<name>-" + attrSet,
		varPrefix + "<name>-" + attrRequired,
	}
	sort.Strings(out)
	return out
}
