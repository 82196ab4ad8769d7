// SPDX-License-Identifier: MPL-2.0

// Package rules compiles variable validation rule specifications into
// predicates over candidate string values. Rule kinds form a closed set;
// an unrecognized kind is rejected at compile time so that authoring
// mistakes surface during --validate regardless of environment contents.
package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind enumerates the supported rule kinds.
type Kind int

const (
	// KindString matches string values, with empty/unset variants.
	KindString Kind = iota
	// KindBool matches boolean literals (true/false, 1/0, yes/no, y/n).
	KindBool
	// KindInt matches integers, optionally range-bounded.
	KindInt
	// KindEnum matches one of an enumerated value set.
	KindEnum
	// KindRegex matches against a compiled regular expression.
	KindRegex
	// KindSize matches a size with optional unit (k/m/g/s) or percentage.
	KindSize
	// KindEmail matches an email address.
	KindEmail
	// KindAll requires every sub-rule to match.
	KindAll
	// KindAny requires at least one sub-rule to match.
	KindAny
)

// Rule is a compiled validation rule. Evaluation is pure: Validate never
// touches the environment or any other external state.
type Rule struct {
	// Spec is the original rule specification string.
	Spec string

	kind       Kind
	allowEmpty bool
	allowUnset bool
	hasRange   bool
	min, max   int
	re         *regexp.Regexp
	pattern    string
	options    []string
	subs       []*Rule
}

var (
	intRangeRe = regexp.MustCompile(`^(-?[0-9]+)-(-?[0-9]+)$`)
	sizeRe     = regexp.MustCompile(`^(?:[0-9]+[kKmMgGsS]?|[1-9][0-9]*%)$`)
	emailRe    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Parse compiles a rule specification into a Rule. The specification grammar:
//
//	string | string-or-empty | string-or-unset
//	bool
//	int | int:MIN-MAX
//	regex:PATTERN
//	keywords:word1,word2,...
//	value1,value2,...          (enumerated values; single value needs a
//	                            trailing comma or the keywords: prefix)
//	size
//	email
//	all:rule|rule|...          (every sub-rule must pass)
//	any:rule|rule|...          (at least one sub-rule must pass)
//
// An unrecognized kind returns an error.
func Parse(spec string) (*Rule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("empty validation rule")
	}

	r := &Rule{Spec: spec}

	switch {
	case spec == "string":
		r.kind = KindString
	case spec == "string-or-empty":
		r.kind = KindString
		r.allowEmpty = true
	case spec == "string-or-unset":
		r.kind = KindString
		r.allowUnset = true
	case spec == "bool":
		r.kind = KindBool
	case spec == "int":
		r.kind = KindInt
	case strings.HasPrefix(spec, "int:"):
		m := intRangeRe.FindStringSubmatch(spec[len("int:"):])
		if m == nil {
			return nil, fmt.Errorf("invalid int range format %q (expected int:MIN-MAX)", spec)
		}
		lo, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("invalid int range format %q: %w", spec, err)
		}
		hi, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, fmt.Errorf("invalid int range format %q: %w", spec, err)
		}
		if lo > hi {
			return nil, fmt.Errorf("invalid int range %q: minimum exceeds maximum", spec)
		}
		r.kind = KindInt
		r.hasRange = true
		r.min, r.max = lo, hi
	case strings.HasPrefix(spec, "regex:"):
		pattern := spec[len("regex:"):]
		// Anchor at both ends for full-match semantics.
		re, err := regexp.Compile(`\A(?:` + pattern + `)\z`)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
		}
		r.kind = KindRegex
		r.re = re
		r.pattern = pattern
	case strings.HasPrefix(spec, "keywords:"):
		opts := splitTrimmed(spec[len("keywords:"):], ",")
		if len(opts) == 0 {
			return nil, fmt.Errorf("keywords rule %q lists no keywords", spec)
		}
		r.kind = KindEnum
		r.options = opts
	case spec == "size":
		r.kind = KindSize
	case spec == "email":
		r.kind = KindEmail
	case strings.HasPrefix(spec, "all:"), strings.HasPrefix(spec, "any:"):
		if strings.HasPrefix(spec, "all:") {
			r.kind = KindAll
		} else {
			r.kind = KindAny
		}
		for _, sub := range strings.Split(spec[len("all:"):], "|") {
			compiled, err := Parse(sub)
			if err != nil {
				return nil, fmt.Errorf("invalid sub-rule in %q: %w", spec, err)
			}
			r.subs = append(r.subs, compiled)
		}
		if len(r.subs) == 0 {
			return nil, fmt.Errorf("composite rule %q has no sub-rules", spec)
		}
	case strings.Contains(spec, ","):
		opts := splitTrimmed(spec, ",")
		if len(opts) == 0 {
			return nil, fmt.Errorf("enum rule %q lists no values", spec)
		}
		r.kind = KindEnum
		r.options = opts
	default:
		return nil, fmt.Errorf("unknown validation rule %q: single value must use a trailing comma (%q) or the keywords: prefix (%q)",
			spec, spec+",", "keywords:"+spec)
	}

	return r, nil
}

// Kind returns the compiled rule kind.
func (r *Rule) Kind() Kind { return r.kind }

// AllowsUnset reports whether an absent value satisfies the rule
// (the string-or-unset variant).
func (r *Rule) AllowsUnset() bool { return r.allowUnset }

// Validate checks a value against the rule and returns error messages,
// empty if the value is valid.
func (r *Rule) Validate(value string) []string {
	switch r.kind {
	case KindString:
		if value == "" && !r.allowEmpty {
			return []string{"string value cannot be empty"}
		}
		return nil
	case KindBool:
		switch strings.ToLower(value) {
		case "true", "false", "1", "0", "yes", "no", "y", "n":
			return nil
		}
		return []string{fmt.Sprintf("value %q is not a valid boolean", value)}
	case KindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return []string{fmt.Sprintf("value %q is not a valid integer", value)}
		}
		if r.hasRange {
			if n < r.min {
				return []string{fmt.Sprintf("value %d is below minimum %d", n, r.min)}
			}
			if n > r.max {
				return []string{fmt.Sprintf("value %d is above maximum %d", n, r.max)}
			}
		}
		return nil
	case KindEnum:
		for _, opt := range r.options {
			if value == opt {
				return nil
			}
		}
		return []string{fmt.Sprintf("value %q is not one of: %s", value, strings.Join(r.options, ", "))}
	case KindRegex:
		if r.re.MatchString(value) {
			return nil
		}
		return []string{fmt.Sprintf("value %q does not match pattern: %s", value, r.pattern)}
	case KindSize:
		if sizeRe.MatchString(value) {
			return nil
		}
		return []string{fmt.Sprintf("value %q is not a valid size format", value)}
	case KindEmail:
		if emailRe.MatchString(value) {
			return nil
		}
		return []string{fmt.Sprintf("value %q is not a valid email address", value)}
	case KindAll:
		var errs []string
		for _, sub := range r.subs {
			errs = append(errs, sub.Validate(value)...)
		}
		return errs
	case KindAny:
		for _, sub := range r.subs {
			if len(sub.Validate(value)) == 0 {
				return nil
			}
		}
		descs := make([]string, len(r.subs))
		for i, sub := range r.subs {
			descs[i] = sub.Spec
		}
		return []string{fmt.Sprintf("value %q matches none of: %s", value, strings.Join(descs, " | "))}
	}
	return nil
}

// Describe returns a human-readable description of the rule.
func (r *Rule) Describe() string {
	switch r.kind {
	case KindString:
		switch {
		case r.allowUnset:
			return "String value (may be unset but not empty)"
		case r.allowEmpty:
			return "String value (may be empty)"
		default:
			return "Non-empty string value"
		}
	case KindBool:
		return "Boolean value - accepts: true/false, 1/0, yes/no, y/n (case insensitive)"
	case KindInt:
		if r.hasRange {
			return fmt.Sprintf("Integer value in range %d to %d", r.min, r.max)
		}
		return "Integer value"
	case KindEnum:
		return "Must be one of: " + strings.Join(r.options, ", ")
	case KindRegex:
		return "Must match regex pattern: " + r.pattern
	case KindSize:
		return "Size value with optional unit (bytes, k/m/g/s) or percentage"
	case KindEmail:
		return "Email address"
	case KindAll:
		return "All of: " + r.describeSubs()
	case KindAny:
		return "Any of: " + r.describeSubs()
	}
	return r.Spec
}

func (r *Rule) describeSubs() string {
	parts := make([]string, len(r.subs))
	for i, sub := range r.subs {
		parts[i] = sub.Spec
	}
	return strings.Join(parts, " | ")
}

func splitTrimmed(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
