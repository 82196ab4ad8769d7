// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FilePlaceholders returns the built-in substitutions derived from the
// location of a layer file. The path is absolutized first so DIRECTORY
// and FILEPATH stay stable regardless of how the file was named on the
// command line.
func FilePlaceholders(path string) map[string]string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return map[string]string{
		"DIRECTORY": filepath.Dir(path),
		"FILENAME":  filepath.Base(path),
		"FILEPATH":  path,
	}
}

// Expand substitutes ${NAME} references in value using lookup. A
// backslash-escaped reference (\${) produces a literal ${ and is not
// resolved. A reference lookup cannot satisfy is an error; the caller
// decides what "cannot satisfy" means (unset environment variable,
// not-yet-resolved variable).
func Expand(value string, lookup func(string) (string, bool)) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(value) {
		if strings.HasPrefix(value[i:], `\${`) {
			b.WriteString("${")
			i += 3
			continue
		}
		if strings.HasPrefix(value[i:], "${") {
			end := strings.IndexByte(value[i:], '}')
			if end < 0 {
				return "", fmt.Errorf("unterminated reference in %q", value)
			}
			name := value[i+2 : i+end]
			if name == "" {
				return "", fmt.Errorf("empty reference in %q", value)
			}
			v, ok := lookup(name)
			if !ok {
				return "", fmt.Errorf("reference to unresolved variable %q in %q", name, value)
			}
			b.WriteString(v)
			i += end + 1
			continue
		}
		b.WriteByte(value[i])
		i++
	}
	return b.String(), nil
}

// HasReference reports whether value contains at least one unescaped
// ${NAME} reference.
func HasReference(value string) bool {
	for i := 0; i < len(value); i++ {
		if strings.HasPrefix(value[i:], `\${`) {
			i += 2
			continue
		}
		if strings.HasPrefix(value[i:], "${") {
			return true
		}
	}
	return false
}
