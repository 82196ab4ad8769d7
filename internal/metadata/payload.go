// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Payload summarizes the build document a layer file carries alongside
// its metadata block. The document itself is opaque to resolution; only
// a few well-known keys are surfaced for describe output.
type Payload struct {
	Keys          []string
	Architectures []string
	Packages      []string
}

// ParsePayload decodes the YAML body of a layer file. Files whose body is
// empty (metadata-only layers) yield a nil payload without error.
func ParsePayload(content string) (*Payload, error) {
	var doc map[string]any
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("parsing layer document: %w", err)
	}
	if len(doc) == 0 {
		return nil, nil
	}

	p := &Payload{}
	for k := range doc {
		p.Keys = append(p.Keys, k)
	}
	sort.Strings(p.Keys)

	if m, ok := doc["mmdebstrap"].(map[string]any); ok {
		p.Architectures = stringList(m["architectures"])
		p.Packages = stringList(m["packages"])
	}
	return p, nil
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
