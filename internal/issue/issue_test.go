// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestId_Constants(t *testing.T) {
	// Verify all IDs are unique and sequential
	ids := []Id{
		LayerNotFoundId,
		MetadataParseErrorId,
		UnsupportedFieldId,
		ValidationFailedId,
		DependencyCycleId,
		LayerCollisionId,
		ProviderAmbiguityId,
		EnvVarMissingId,
		ConfigLoadFailedId,
	}

	seen := make(map[Id]bool)
	for _, id := range ids {
		if seen[id] {
			t.Errorf("duplicate ID: %d", id)
		}
		seen[id] = true
	}

	// Verify IDs start at 1 (iota + 1)
	if LayerNotFoundId != 1 {
		t.Errorf("LayerNotFoundId = %d, want 1", LayerNotFoundId)
	}
}

func TestIssue_Id(t *testing.T) {
	issue := Get(LayerNotFoundId)
	if issue == nil {
		t.Fatal("Get(LayerNotFoundId) returned nil")
	}

	if issue.Id() != LayerNotFoundId {
		t.Errorf("issue.Id() = %d, want %d", issue.Id(), LayerNotFoundId)
	}
}

func TestIssue_MarkdownMsg(t *testing.T) {
	issue := Get(LayerNotFoundId)
	if issue == nil {
		t.Fatal("Get(LayerNotFoundId) returned nil")
	}

	msg := issue.MarkdownMsg()
	if msg == "" {
		t.Error("MarkdownMsg() returned empty string")
	}

	if !strings.Contains(string(msg), "Layer not found") {
		t.Error("MarkdownMsg() should contain 'Layer not found'")
	}
}

func TestGet_AllIssuesRegistered(t *testing.T) {
	for id := LayerNotFoundId; id <= ConfigLoadFailedId; id++ {
		if Get(id) == nil {
			t.Errorf("Get(%d) returned nil, issue not registered", id)
		}
	}
}

func TestValues(t *testing.T) {
	values := Values()
	if len(values) != 9 {
		t.Errorf("Values() returned %d issues, want 9", len(values))
	}
	for _, issue := range values {
		if issue.MarkdownMsg() == "" {
			t.Errorf("issue %d has an empty message", issue.Id())
		}
	}
}

func TestIssue_Render(t *testing.T) {
	issue := Get(DependencyCycleId)
	out, err := issue.Render("notty")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "cycle") {
		t.Errorf("rendered output missing cycle text: %q", out)
	}
}

func TestIssue_DocLinks(t *testing.T) {
	issue := Get(LayerNotFoundId)
	links := issue.DocLinks()

	// The returned slice is a clone; mutating it must not affect the issue.
	links = append(links, HttpLink("https://example.invalid"))
	if len(issue.DocLinks()) == len(links) {
		t.Error("DocLinks() must return a clone")
	}
}
