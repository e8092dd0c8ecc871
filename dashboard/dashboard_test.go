package dashboard

import (
	"context"
	"testing"
)

func TestProjectsSeed(t *testing.T) {
	b := New("", nil)

	projects := b.Projects(context.Background())
	if len(projects) != 5 {
		t.Fatalf("expected 5 projects, got %d", len(projects))
	}
	if projects[0].ID != "proj-001" || projects[0].Name != "E-commerce Frontend" {
		t.Fatalf("unexpected first project: %+v", projects[0])
	}
	if projects[2].Status != "Failed" || projects[2].Score != "N/A" {
		t.Fatalf("unexpected failed project: %+v", projects[2])
	}
}

func TestProjectsCopiesSeed(t *testing.T) {
	b := New("", nil)

	first := b.Projects(context.Background())
	first[0].Name = "mutated"

	second := b.Projects(context.Background())
	if second[0].Name != "E-commerce Frontend" {
		t.Fatal("callers must not share the seed slice")
	}
}

func TestSplitRepo(t *testing.T) {
	owner, repo, ok := splitRepo("vuejs/core")
	if !ok || owner != "vuejs" || repo != "core" {
		t.Fatalf("unexpected parse: %s %s %v", owner, repo, ok)
	}

	for _, bad := range []string{"", "noslash", "/repo", "owner/"} {
		if _, _, ok := splitRepo(bad); ok {
			t.Fatalf("%q should not parse", bad)
		}
	}
}
