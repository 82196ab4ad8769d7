// SPDX-License-Identifier: MPL-2.0

package envfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/suddenlysixam/rpi-image-gen/internal/metadata"
	"github.com/suddenlysixam/rpi-image-gen/internal/resolver"
)

func TestRenderPlainValues(t *testing.T) {
	t.Parallel()

	out, err := Render([]resolver.Entry{
		{Name: "IGconf_sys_tz", Value: "UTC", Changed: true},
		{Name: "IGconf_app_dir", Value: "/srv/app", Changed: true},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "IGconf_sys_tz=\"UTC\"\nIGconf_app_dir=\"/srv/app\"\n"
	if out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestRenderQuotesLosslessly(t *testing.T) {
	t.Parallel()

	tests := []string{
		"with space",
		"dollar $HOME literal",
		`double " quote`,
		"single ' quote",
		"newline\nvalue",
		"tab\tvalue",
		"back\\slash",
	}
	for _, value := range tests {
		out, err := Render([]resolver.Entry{{Name: "V", Value: value, Changed: true}})
		if err != nil {
			t.Fatalf("Render(%q): %v", value, err)
		}
		if !strings.HasPrefix(out, "V=") || !strings.HasSuffix(out, "\n") {
			t.Errorf("malformed assignment %q", out)
		}
		// The quoted form must not leak an unescaped dollar expansion.
		if strings.Contains(value, "$") && strings.Contains(out, `"$`) {
			t.Errorf("dollar not neutralized in %q", out)
		}
	}
}

func TestRenderAnnotatedTags(t *testing.T) {
	t.Parallel()

	out, err := RenderAnnotated([]resolver.Entry{
		{Name: "A", Value: "1", Policy: metadata.PolicyImmediate, Changed: true},
		{Name: "B", Value: "2", Policy: metadata.PolicyLazy, Changed: true},
		{Name: "C", Value: "3", Policy: metadata.PolicyForce, Changed: true},
		{Name: "D", Value: "4", Policy: metadata.PolicySkip},
	})
	if err != nil {
		t.Fatalf("RenderAnnotated: %v", err)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	wantPrefix := []string{"[SET] A=", "[LAZY] B=", "[FORCE] C=", "[SKIP] D="}
	if len(lines) != len(wantPrefix) {
		t.Fatalf("lines = %v", lines)
	}
	for i, l := range lines {
		if !strings.HasPrefix(l, wantPrefix[i]) {
			t.Errorf("line %d = %q, want prefix %q", i, l, wantPrefix[i])
		}
	}
	if !strings.HasSuffix(lines[3], "(already set)") {
		t.Errorf("already-set entry %q should carry the (already set) marker", lines[3])
	}
	for _, l := range lines[:3] {
		if strings.Contains(l, "(already set)") {
			t.Errorf("written entry %q must not carry the (already set) marker", l)
		}
	}
}

func TestWriteFileChangeSetOnly(t *testing.T) {
	t.Parallel()

	res := &resolver.Result{Entries: []resolver.Entry{
		{Name: "NEW", Value: "added", Changed: true},
		{Name: "OLD", Value: "preexisting"},
	}}

	path := filepath.Join(t.TempDir(), "env")
	if err := WriteFile(path, res.Changes()); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "OLD") {
		t.Errorf("already-set entries must not be written: %q", data)
	}
	if !strings.Contains(string(data), "NEW=\"added\"") {
		t.Errorf("missing change entry: %q", data)
	}
}
