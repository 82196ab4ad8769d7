// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"strings"
)

const (
	beginMarker = "METABEGIN"
	endMarker   = "METAEND"
)

// extract pulls the metadata block out of file content and folds it into
// ordered key/value fields.
func extract(content, path string) ([]field, error) {
	raw, err := extractBlock(content, path)
	if err != nil {
		return nil, err
	}
	return parseFields(raw, path)
}

// rawLine is one logical metadata line with its position in the source file.
type rawLine struct {
	text string
	line int
}

// extractBlock scans file content for the embedded metadata block and returns
// the raw lines between the markers, stripped of their comment prefix.
// When no marker pair is present, bare X-Env-* field lines are collected
// instead. Unbalanced markers are a fatal syntax error.
func extractBlock(content, path string) ([]rawLine, error) {
	lines := strings.Split(content, "\n")

	beginAt, endAt := 0, 0
	for i, line := range lines {
		switch strings.TrimSpace(line) {
		case "# " + beginMarker, "#" + beginMarker:
			if beginAt != 0 {
				return nil, parseErrorf(path, i+1, "duplicate %s marker (first at line %d)", beginMarker, beginAt)
			}
			beginAt = i + 1
		case "# " + endMarker, "#" + endMarker:
			if endAt != 0 {
				return nil, parseErrorf(path, i+1, "duplicate %s marker (first at line %d)", endMarker, endAt)
			}
			endAt = i + 1
		}
	}

	switch {
	case beginAt == 0 && endAt == 0:
		return extractBare(lines, path)
	case beginAt == 0 || endAt == 0:
		return nil, parseErrorf(path, 0, "unbalanced metadata markers: need both %s and %s", beginMarker, endMarker)
	case endAt < beginAt:
		return nil, parseErrorf(path, endAt, "%s marker precedes %s", endMarker, beginMarker)
	}

	var out []rawLine
	for i := beginAt; i < endAt-1; i++ {
		line := lines[i]
		var clean string
		switch {
		case strings.HasPrefix(line, "# "):
			clean = strings.TrimRight(line[2:], " \t\r")
		case strings.HasPrefix(line, "#"):
			clean = strings.TrimRight(line[1:], " \t\r")
		default:
			return nil, parseErrorf(path, i+1, "non-comment line inside metadata block: %q", strings.TrimSpace(line))
		}
		if strings.TrimSpace(clean) == "" {
			continue
		}
		out = append(out, rawLine{text: clean, line: i + 1})
	}
	return out, nil
}

// extractBare collects direct X-Env-* field lines from files that carry
// metadata without the comment wrapper.
func extractBare(lines []string, path string) ([]rawLine, error) {
	var out []rawLine
	for i, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// Continuation of a previous field line.
		if len(out) > 0 && (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) {
			out = append(out, rawLine{text: line, line: i + 1})
			continue
		}
		name, _, found := strings.Cut(line, ":")
		if found && strings.HasPrefix(strings.TrimSpace(name), "X-Env-") {
			out = append(out, rawLine{text: line, line: i + 1})
		}
	}
	return out, nil
}

// field is a parsed key/value pair in declaration order.
type field struct {
	key   string
	value string
	line  int
}

// parseFields folds raw lines into key/value fields, honoring RFC822-style
// continuation lines (indented with space or tab).
func parseFields(raw []rawLine, path string) ([]field, error) {
	var fields []field
	seen := make(map[string]int)

	for _, rl := range raw {
		if strings.HasPrefix(rl.text, " ") || strings.HasPrefix(rl.text, "\t") {
			if len(fields) == 0 {
				return nil, parseErrorf(path, rl.line, "continuation line with no preceding field: %q", strings.TrimSpace(rl.text))
			}
			last := &fields[len(fields)-1]
			last.value += "\n" + strings.TrimSpace(rl.text)
			continue
		}

		key, value, found := strings.Cut(rl.text, ":")
		if !found {
			return nil, parseErrorf(path, rl.line,
				"malformed metadata line %q: expected \"Key: value\" or an indented continuation", rl.text)
		}
		key = strings.TrimSpace(key)
		if !validFieldName(key) {
			return nil, parseErrorf(path, rl.line,
				"invalid field name %q: field names must contain only letters, numbers, hyphens, and underscores", key)
		}
		if prev, dup := seen[canonicalKey(key)]; dup {
			return nil, parseErrorf(path, rl.line, "duplicate field %q (first at line %d)", key, prev)
		}
		seen[canonicalKey(key)] = rl.line
		fields = append(fields, field{key: key, value: strings.TrimSpace(value), line: rl.line})
	}

	return fields, nil
}

func validFieldName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
