// SPDX-License-Identifier: MPL-2.0

// Package envfile renders resolved variables as shell-sourceable
// assignments. Values are quoted losslessly so sourcing the output
// reproduces the exact resolved environment.
package envfile

import (
	"fmt"
	"os"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/suddenlysixam/rpi-image-gen/internal/resolver"
)

// assignment renders one NAME=value pair. Plain values keep the
// conventional double-quoted form; anything the shell would mangle goes
// through lossless quoting instead.
func assignment(name, value string) (string, error) {
	quoted, err := syntax.Quote(value, syntax.LangBash)
	if err != nil {
		return "", fmt.Errorf("value of %s cannot be represented in shell: %w", name, err)
	}
	if quoted == value && !strings.Contains(value, `"`) {
		return fmt.Sprintf("%s=%q", name, value), nil
	}
	return name + "=" + quoted, nil
}

// Render produces plain sourceable assignments, one per entry.
func Render(entries []resolver.Entry) (string, error) {
	var b strings.Builder
	for _, e := range entries {
		line, err := assignment(e.Name, e.Value)
		if err != nil {
			return "", err
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// RenderAnnotated produces assignments prefixed with the application tag:
// the policy tag for entries resolution wrote, [SKIP] with an "(already
// set)" marker for values that were already present in the environment.
func RenderAnnotated(entries []resolver.Entry) (string, error) {
	var b strings.Builder
	for _, e := range entries {
		line, err := assignment(e.Name, e.Value)
		if err != nil {
			return "", err
		}
		if e.Changed {
			fmt.Fprintf(&b, "%s %s\n", e.Policy.Tag(), line)
		} else {
			fmt.Fprintf(&b, "[SKIP] %s (already set)\n", line)
		}
	}
	return b.String(), nil
}

// WriteFile writes plain assignments for the entries to path.
func WriteFile(path string, entries []resolver.Entry) error {
	out, err := Render(entries)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return fmt.Errorf("writing env file: %w", err)
	}
	return nil
}
