// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

const sampleBlock = `# Layer file header comment
# METABEGIN
# X-Env-Layer-Name: base
# X-Env-Layer-Desc: Minimal bootstrapped system
#  spanning two lines
# X-Env-Layer-Version: 1.2.0
# X-Env-Layer-Category: device
# X-Env-Layer-Requires: kernel, firmware
# X-Env-Layer-Provides: rootfs
#
# X-Env-VarPrefix: base
# X-Env-Var-hostname: raspberrypi
# X-Env-Var-hostname-Desc: System hostname
# X-Env-Var-hostname-Valid: string
# X-Env-Var-hostname-Set: immediate
# X-Env-Var-workdir: ${DIRECTORY}/work
# X-Env-Var-workdir-Set: lazy
# METAEND

mmdebstrap:
  architectures: [arm64]
  packages:
    - systemd
`

func TestParseBlock(t *testing.T) {
	t.Parallel()

	f, err := Parse(sampleBlock, "layer/base.yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if f.Layer == nil {
		t.Fatal("expected layer identity")
	}
	if f.Layer.Name != "base" {
		t.Errorf("layer name = %q, want base", f.Layer.Name)
	}
	if want := "Minimal bootstrapped system spanning two lines"; f.Layer.Description != want {
		t.Errorf("description = %q, want %q", f.Layer.Description, want)
	}
	if f.Layer.Version != "1.2.0" || f.Layer.Category != "device" {
		t.Errorf("version/category = %q/%q", f.Layer.Version, f.Layer.Category)
	}
	var reqs []string
	for _, d := range f.Layer.Requires {
		reqs = append(reqs, d.String())
	}
	if !slices.Equal(reqs, []string{"kernel", "firmware"}) {
		t.Errorf("requires = %v", reqs)
	}
	if !slices.Equal(f.Layer.Provides, []string{"rootfs"}) {
		t.Errorf("provides = %v", f.Layer.Provides)
	}

	if f.Prefix != "base" {
		t.Errorf("prefix = %q", f.Prefix)
	}
	if len(f.Variables) != 2 {
		t.Fatalf("got %d variables, want 2", len(f.Variables))
	}
	host := f.Variables[0]
	if host.Name != "hostname" || host.FullName != "IGconf_base_hostname" {
		t.Errorf("variable naming: %q / %q", host.Name, host.FullName)
	}
	if host.Default != "raspberrypi" || host.Policy != PolicyImmediate {
		t.Errorf("hostname default/policy = %q/%v", host.Default, host.Policy)
	}
	if host.Rule == nil {
		t.Error("hostname rule not compiled")
	}
	work := f.Variables[1]
	if work.Policy != PolicyLazy {
		t.Errorf("workdir policy = %v, want lazy", work.Policy)
	}
	if work.Default != "${DIRECTORY}/work" {
		t.Errorf("workdir default = %q, placeholders must stay raw at parse time", work.Default)
	}
}

func TestParseBareFields(t *testing.T) {
	t.Parallel()

	content := "X-Env-VarPrefix: sys\nX-Env-Var-tz: UTC\n"
	f, err := Parse(content, "layer/sys.yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Layer != nil {
		t.Error("no layer fields given, Layer should be nil")
	}
	if len(f.Variables) != 1 || f.Variables[0].FullName != "IGconf_sys_tz" {
		t.Errorf("variables = %+v", f.Variables)
	}
}

func TestParseFatalErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantSub string
	}{
		{
			name:    "unbalanced markers",
			content: "# METABEGIN\n# X-Env-VarPrefix: a\n",
			wantSub: "unbalanced",
		},
		{
			name:    "inverted markers",
			content: "# METAEND\n# METABEGIN\n",
			wantSub: "precedes",
		},
		{
			name:    "unsupported field",
			content: "# METABEGIN\n# X-Env-Layer-Name: a\n# X-Env-Frobnicate: x\n# METAEND\n",
			wantSub: "unsupported field",
		},
		{
			name:    "variables without prefix",
			content: "# METABEGIN\n# X-Env-Var-a: 1\n# METAEND\n",
			wantSub: "X-Env-VarPrefix is required",
		},
		{
			name:    "orphaned attribute",
			content: "# METABEGIN\n# X-Env-VarPrefix: p\n# X-Env-Var-a-Valid: int\n# METAEND\n",
			wantSub: "no preceding",
		},
		{
			name:    "unknown set policy",
			content: "# METABEGIN\n# X-Env-VarPrefix: p\n# X-Env-Var-a: 1\n# X-Env-Var-a-Set: maybe\n# METAEND\n",
			wantSub: "unknown set policy",
		},
		{
			name:    "bad validation rule",
			content: "# METABEGIN\n# X-Env-VarPrefix: p\n# X-Env-Var-a: 1\n# X-Env-Var-a-Valid: frob:1\n# METAEND\n",
			wantSub: "frob",
		},
		{
			name:    "duplicate field",
			content: "# METABEGIN\n# X-Env-Layer-Name: a\n# X-Env-Layer-Name: b\n# METAEND\n",
			wantSub: "duplicate field",
		},
		{
			name:    "layer fields without name",
			content: "# METABEGIN\n# X-Env-Layer-Version: 1\n# METAEND\n",
			wantSub: "X-Env-Layer-Name is required",
		},
		{
			name:    "non-comment line in block",
			content: "# METABEGIN\nX-Env-VarPrefix: p\n# METAEND\n",
			wantSub: "non-comment line",
		},
		{
			name:    "malformed guard",
			content: "# METABEGIN\n# X-Env-Layer-Name: a\n# X-Env-Layer-Requires: b?FLAG\n# METAEND\n",
			wantSub: "malformed guard",
		},
		{
			name:    "rule count exceeds names",
			content: "# METABEGIN\n# X-Env-VarRequires: A\n# X-Env-VarRequires-Valid: int bool\n# METAEND\n",
			wantSub: "2 validation rules for 1 variables",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(tt.content, "layer/bad.yaml")
			if err == nil {
				t.Fatal("expected error")
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("error type %T: %v", err, err)
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestParseGatedDependency(t *testing.T) {
	t.Parallel()

	content := "# METABEGIN\n# X-Env-Layer-Name: app\n" +
		"# X-Env-Layer-Requires: base, debug-tools?IGconf_app_debug=1, ${IGconf_app_kernel}\n" +
		"# METAEND\n"
	f, err := Parse(content, "layer/app.yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	deps := f.Layer.Requires
	if len(deps) != 3 {
		t.Fatalf("got %d deps", len(deps))
	}
	if deps[0].Gate != nil {
		t.Error("base should be ungated")
	}
	g := deps[1].Gate
	if g == nil || g.Var != "IGconf_app_debug" || g.Value != "1" {
		t.Errorf("gate = %+v", g)
	}
	if deps[2].Name != "${IGconf_app_kernel}" {
		t.Errorf("reference dep = %q", deps[2].Name)
	}
}

func TestExternalVariables(t *testing.T) {
	t.Parallel()

	content := "# METABEGIN\n" +
		"# X-Env-VarRequires: IGconf_device_class SSH_AUTH_SOCK\n" +
		"# X-Env-VarRequires-Valid: string\n" +
		"# X-Env-VarOptional: IGconf_sys_tz\n" +
		"# METAEND\n"
	f, err := Parse(content, "layer/x.yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(f.Requires) != 2 {
		t.Fatalf("requires = %+v", f.Requires)
	}
	if f.Requires[0].Rule == nil || f.Requires[1].Rule != nil {
		t.Error("rules should pair positionally, trailing names unruled")
	}
	if len(f.Optional) != 1 || f.Optional[0].Name != "IGconf_sys_tz" {
		t.Errorf("optional = %+v", f.Optional)
	}
}

func TestExpand(t *testing.T) {
	t.Parallel()

	lookup := func(m map[string]string) func(string) (string, bool) {
		return func(k string) (string, bool) { v, ok := m[k]; return v, ok }
	}

	got, err := Expand("${DIRECTORY}/cfg", lookup(map[string]string{"DIRECTORY": "/srv/layer"}))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if got != "/srv/layer/cfg" {
		t.Errorf("got %q", got)
	}

	got, err = Expand(`price is \${amount}`, lookup(nil))
	if err != nil {
		t.Fatalf("Expand escaped: %v", err)
	}
	if got != "price is ${amount}" {
		t.Errorf("escaped expansion = %q", got)
	}

	if _, err := Expand("${missing}", lookup(nil)); err == nil {
		t.Error("unresolved reference must fail")
	}
	if _, err := Expand("${broken", lookup(nil)); err == nil {
		t.Error("unterminated reference must fail")
	}

	if !HasReference("a ${b} c") || HasReference(`a \${b} c`) || HasReference("plain") {
		t.Error("HasReference misclassification")
	}
}

func TestFilePlaceholders(t *testing.T) {
	t.Parallel()

	p := FilePlaceholders("/srv/layers/net.yaml")
	if p["DIRECTORY"] != "/srv/layers" || p["FILENAME"] != "net.yaml" || p["FILEPATH"] != "/srv/layers/net.yaml" {
		t.Errorf("placeholders = %v", p)
	}
}

func TestFilePlaceholdersAbsolutizeRelativePath(t *testing.T) {
	t.Parallel()

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	p := FilePlaceholders("layers/net.yaml")
	if want := filepath.Join(cwd, "layers"); p["DIRECTORY"] != want {
		t.Errorf("DIRECTORY = %q, want %q", p["DIRECTORY"], want)
	}
	if p["FILENAME"] != "net.yaml" {
		t.Errorf("FILENAME = %q", p["FILENAME"])
	}
	if want := filepath.Join(cwd, "layers", "net.yaml"); p["FILEPATH"] != want {
		t.Errorf("FILEPATH = %q, want %q", p["FILEPATH"], want)
	}
}

func TestParsePayload(t *testing.T) {
	t.Parallel()

	p, err := ParsePayload(sampleBlock)
	if err != nil {
		t.Fatalf("ParsePayload: %v", err)
	}
	if p == nil {
		t.Fatal("expected payload")
	}
	if !slices.Equal(p.Keys, []string{"mmdebstrap"}) {
		t.Errorf("keys = %v", p.Keys)
	}
	if !slices.Equal(p.Architectures, []string{"arm64"}) {
		t.Errorf("architectures = %v", p.Architectures)
	}
	if !slices.Equal(p.Packages, []string{"systemd"}) {
		t.Errorf("packages = %v", p.Packages)
	}

	p, err = ParsePayload("# METABEGIN\n# X-Env-VarPrefix: a\n# METAEND\n")
	if err != nil {
		t.Fatalf("metadata-only payload: %v", err)
	}
	if p != nil {
		t.Errorf("metadata-only file should have nil payload, got %+v", p)
	}
}

func TestBoilerplateParses(t *testing.T) {
	t.Parallel()

	f, err := Parse(Boilerplate, "gen.yaml")
	if err != nil {
		t.Fatalf("generated boilerplate must parse: %v", err)
	}
	if f.Layer == nil || f.Layer.Name != "mylayer" || len(f.Variables) != 1 {
		t.Errorf("boilerplate parse = %+v", f)
	}
}
