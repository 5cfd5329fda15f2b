// SPDX-License-Identifier: EPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestId_Constants(t *testing.T) {
	ids := []Id{
		BakefileNotFoundId,
		BakefileParseErrorId,
		BaseNotResolvableId,
		EngineNotFoundId,
		StagingFailedId,
		InstallFailedId,
		ConfigLoadFailedId,
		ServeStartFailedId,
		ImageNotFoundId,
	}

	seen := make(map[Id]bool)
	for _, id := range ids {
		if seen[id] {
			t.Errorf("duplicate ID: %d", id)
		}
		seen[id] = true
	}

	// IDs start at 1 (iota + 1)
	if BakefileNotFoundId != 1 {
		t.Errorf("BakefileNotFoundId = %d, want 1", BakefileNotFoundId)
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		id       Id
		wantNil  bool
		contains string
	}{
		{BakefileNotFoundId, false, "No bakefile found"},
		{BakefileParseErrorId, false, "Failed to parse bakefile"},
		{BaseNotResolvableId, false, "Base environment not found"},
		{EngineNotFoundId, false, "Container engine not found"},
		{StagingFailedId, false, "Source staging failed"},
		{InstallFailedId, false, "Install procedure failed"},
		{ConfigLoadFailedId, false, "Failed to load configuration"},
		{ServeStartFailedId, false, "Build server failed to start"},
		{ImageNotFoundId, false, "Image not found"},
		{Id(9999), true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.contains, func(t *testing.T) {
			issue := Get(tt.id)

			if tt.wantNil {
				if issue != nil {
					t.Errorf("Get(%d) should return nil", tt.id)
				}
				return
			}

			if issue == nil {
				t.Fatalf("Get(%d) returned nil", tt.id)
			}

			if tt.contains != "" && !strings.Contains(string(issue.MarkdownMsg()), tt.contains) {
				t.Errorf("Get(%d).MarkdownMsg() should contain %q", tt.id, tt.contains)
			}
		})
	}
}

func TestValues(t *testing.T) {
	issues := Values()

	expectedCount := 9
	if len(issues) != expectedCount {
		t.Errorf("Values() returned %d issues, want %d", len(issues), expectedCount)
	}

	for _, issue := range issues {
		if issue.Id() == 0 {
			t.Error("found issue with ID 0")
		}
	}
}

func TestIssue_DocLinksAreCloned(t *testing.T) {
	testIssue := &Issue{
		id:       Id(9999),
		mdMsg:    "# Test",
		docLinks: []HttpLink{"https://docs.example.com"},
	}

	links := testIssue.DocLinks()
	links[0] = "modified"
	if testIssue.DocLinks()[0] != "https://docs.example.com" {
		t.Error("DocLinks() should return a clone")
	}
}

func TestIssue_Render(t *testing.T) {
	originalRender := render
	defer func() { render = originalRender }()

	render = func(in string, stylePath string) (string, error) {
		return in, nil
	}

	issue := Get(BakefileNotFoundId)
	if issue == nil {
		t.Fatal("Get(BakefileNotFoundId) returned nil")
	}

	rendered, err := issue.Render("")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if !strings.Contains(rendered, "bakefile") {
		t.Error("Render() output should mention the bakefile")
	}
}

func TestIssue_Render_WithLinks(t *testing.T) {
	originalRender := render
	defer func() { render = originalRender }()

	render = func(in string, stylePath string) (string, error) {
		return in, nil
	}

	testIssue := &Issue{
		id:       Id(9999),
		mdMsg:    "# Test Issue\n\nThis is a test.",
		docLinks: []HttpLink{"https://docs.example.com"},
		extLinks: []HttpLink{"https://external.example.com"},
	}

	rendered, err := testIssue.Render("")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if !strings.Contains(rendered, "See also") {
		t.Error("Render() with links should contain 'See also'")
	}
}

func TestIssue_Render_NoLinks(t *testing.T) {
	originalRender := render
	defer func() { render = originalRender }()

	render = func(in string, stylePath string) (string, error) {
		return in, nil
	}

	testIssue := &Issue{
		id:    Id(9998),
		mdMsg: "# Test Issue\n\nNo links here.",
	}

	rendered, err := testIssue.Render("")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if strings.Contains(rendered, "See also") {
		t.Error("Render() without links should not contain 'See also'")
	}
}

func TestAllIssuesAreRenderable(t *testing.T) {
	originalRender := render
	defer func() { render = originalRender }()

	render = func(in string, stylePath string) (string, error) {
		return in, nil
	}

	for _, issue := range Values() {
		rendered, err := issue.Render("")
		if err != nil {
			t.Errorf("Issue %d failed to render: %v", issue.Id(), err)
		}
		if rendered == "" {
			t.Errorf("Issue %d rendered to empty string", issue.Id())
		}
	}
}
