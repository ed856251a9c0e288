package reviewer

import (
	"fmt"
	"testing"

	"github.com/kyisaiah47/springforge-sub000/pkg/ownership"
	"github.com/kyisaiah47/springforge-sub000/pkg/types"
)

func member(handle string) types.OrgMember {
	return types.OrgMember{ID: "id-" + handle, Handle: handle}
}

func TestSuggestExcludesAuthor(t *testing.T) {
	members := []types.OrgMember{member("alice"), member("bob")}
	records := []ownership.Record{{
		Path:                "pkg/a.go",
		PrimaryContributors: []string{"alice", "bob"},
		ExpertiseScore:      6,
	}}

	suggestions := Suggest(members, records, "alice", Options{MinConfidence: 0.01})
	for _, s := range suggestions {
		if s.Handle == "alice" {
			t.Fatal("author must never be suggested as a reviewer")
		}
	}
	if len(suggestions) != 1 || suggestions[0].Handle != "bob" {
		t.Errorf("expected bob as the only suggestion, got %+v", suggestions)
	}
}

func TestSuggestScoringAndOrdering(t *testing.T) {
	members := []types.OrgMember{member("alice"), member("bob"), member("carol")}
	records := []ownership.Record{
		{
			Path:                "internal/api/server.go",
			PrimaryContributors: []string{"alice"},
			RecentContributors:  []string{"alice", "bob"},
			ExpertiseScore:      7,
		},
		{
			Path:                "internal/api/server_test.go",
			PrimaryContributors: []string{"alice"},
			RecentContributors:  []string{"carol"},
			ExpertiseScore:      4,
		},
	}

	suggestions := Suggest(members, records, "dave", Options{MinConfidence: 0.1})
	if len(suggestions) < 2 {
		t.Fatalf("expected at least 2 suggestions, got %d", len(suggestions))
	}
	if suggestions[0].Handle != "alice" {
		t.Errorf("expected alice ranked first, got %s", suggestions[0].Handle)
	}
	for i := 1; i < len(suggestions); i++ {
		if suggestions[i].Confidence > suggestions[i-1].Confidence {
			t.Errorf("suggestions not sorted descending at index %d", i)
		}
	}

	// alice: primary on both paths (+6), recent on one (+2), multi-area
	// (backend + testing, +1), avg expertise 5.5 > 5 (+1) => raw 10,
	// confidence capped at 1.
	if suggestions[0].Confidence != 1.0 {
		t.Errorf("expected alice at confidence 1.0, got %v", suggestions[0].Confidence)
	}
	if len(suggestions[0].Reasoning) == 0 {
		t.Error("expected reasoning entries for alice")
	}
}

func TestExpertiseBonusAveragesContributedFilesOnly(t *testing.T) {
	members := []types.OrgMember{member("alice")}
	records := []ownership.Record{
		{
			Path:                "internal/api/server.go",
			PrimaryContributors: []string{"alice"},
			ExpertiseScore:      9,
		},
		// Paths alice never touched carry no weight in her average.
		{Path: "internal/api/routes.go", ExpertiseScore: 0},
		{Path: "internal/api/middleware.go", ExpertiseScore: 0},
	}

	suggestions := Suggest(members, records, "dave", Options{MinConfidence: 0.1})
	if len(suggestions) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(suggestions))
	}
	// primary (+3) plus deep-familiarity bonus (+1): 9 > 5 over her one
	// contributed file, though the mean across all three files is only 3.
	if got := suggestions[0].Confidence; got != 0.4 {
		t.Errorf("expected confidence 0.4, got %v", got)
	}
}

func TestSuggestCapsAtFive(t *testing.T) {
	var members []types.OrgMember
	var primary []string
	for i := 0; i < 8; i++ {
		handle := fmt.Sprintf("dev%d", i)
		members = append(members, member(handle))
		primary = append(primary, handle)
	}
	records := []ownership.Record{{
		Path:                "pkg/core.go",
		PrimaryContributors: primary,
		ExpertiseScore:      6,
	}}

	suggestions := Suggest(members, records, "outsider", Options{MinConfidence: 0.01})
	if len(suggestions) > 5 {
		t.Errorf("expected at most 5 suggestions, got %d", len(suggestions))
	}
}

func TestSuggestTiesKeepRosterOrder(t *testing.T) {
	members := []types.OrgMember{member("zoe"), member("adam")}
	records := []ownership.Record{{
		Path:                "pkg/core.go",
		PrimaryContributors: []string{"zoe", "adam"},
		ExpertiseScore:      3,
	}}

	suggestions := Suggest(members, records, "outsider", Options{MinConfidence: 0.01})
	if len(suggestions) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(suggestions))
	}
	if suggestions[0].Handle != "zoe" || suggestions[1].Handle != "adam" {
		t.Errorf("expected roster order preserved on ties, got %s, %s",
			suggestions[0].Handle, suggestions[1].Handle)
	}
}

func TestSuggestConfidenceThreshold(t *testing.T) {
	members := []types.OrgMember{member("alice"), member("bob")}
	records := []ownership.Record{{
		Path:               "pkg/core.go",
		RecentContributors: []string{"alice", "bob"},
		ExpertiseScore:     2,
	}}

	// Both score raw 2 => confidence 0.2, below the default threshold.
	if got := Suggest(members, records, "outsider", Options{}); len(got) != 0 {
		t.Errorf("expected default threshold 0.3 to filter 0.2-confidence members, got %+v", got)
	}
	if got := Suggest(members, records, "outsider", Options{MinConfidence: 0.2}); len(got) != 2 {
		t.Errorf("expected both members above an 0.2 threshold, got %+v", got)
	}
}

func TestSuggestNoOwnershipMeansNoSuggestions(t *testing.T) {
	members := []types.OrgMember{member("alice")}
	records := []ownership.Record{{Path: "pkg/core.go"}}

	if got := Suggest(members, records, "outsider", Options{MinConfidence: 0.01}); len(got) != 0 {
		t.Errorf("expected no suggestions without ownership signal, got %+v", got)
	}
}

func TestAreasForPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"internal/api/server.go", AreaBackend},
		{"src/components/App.tsx", AreaFrontend},
		{"db/migrations/0001_init.sql", AreaDatabase},
		{"internal/auth/session.go", AreaSecurity},
		{"pkg/api/server_test.go", AreaTesting},
		{"docs/guide.md", AreaDocs},
		{"config/app.yaml", AreaConfig},
		{"deploy/terraform/main.tf", AreaInfra},
	}
	for _, tt := range tests {
		areas := areasForPath(tt.path)
		found := false
		for _, a := range areas {
			if a == tt.want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("areasForPath(%q) = %v, want it to include %q", tt.path, areas, tt.want)
		}
	}
}
