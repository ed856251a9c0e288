package ownership

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/kyisaiah47/springforge-sub000/pkg/github"
	"github.com/kyisaiah47/springforge-sub000/pkg/internal/testutil"
	"github.com/kyisaiah47/springforge-sub000/pkg/types"
)

func commitsBy(handle string, n int, at time.Time) []types.Commit {
	commits := make([]types.Commit, n)
	for i := range commits {
		commits[i] = types.Commit{AuthorHandle: handle, AuthorDate: at}
	}
	return commits
}

func TestAnalyzePrimaryContributors(t *testing.T) {
	ctx := context.Background()
	client := testutil.NewMockSourceControl()
	old := time.Now().Add(-90 * 24 * time.Hour)

	// alice: 6/10 commits, bob: 3/10, carol: 1/10. The 20% bar admits
	// alice and bob only.
	var commits []types.Commit
	commits = append(commits, commitsBy("alice", 6, old)...)
	commits = append(commits, commitsBy("bob", 3, old)...)
	commits = append(commits, commitsBy("carol", 1, old)...)
	client.SetCommits("acme/api", "pkg/a.go", commits)

	analyzer := New(client)
	records := analyzer.Analyze(ctx, "acme/api", []string{"pkg/a.go"})

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if len(r.PrimaryContributors) != 2 {
		t.Fatalf("expected 2 primary contributors, got %v", r.PrimaryContributors)
	}
	if r.PrimaryContributors[0] != "alice" || r.PrimaryContributors[1] != "bob" {
		t.Errorf("expected [alice bob] ordered by commit count, got %v", r.PrimaryContributors)
	}
	if len(r.RecentContributors) != 0 {
		t.Errorf("expected no recent contributors for 90-day-old commits, got %v", r.RecentContributors)
	}
	if r.CommitCount != 10 {
		t.Errorf("expected commit count 10, got %d", r.CommitCount)
	}
}

func TestAnalyzePrimaryCappedAtThree(t *testing.T) {
	ctx := context.Background()
	client := testutil.NewMockSourceControl()
	old := time.Now().Add(-60 * 24 * time.Hour)

	// Four contributors at 25% each; only the top three are kept.
	var commits []types.Commit
	for _, handle := range []string{"a", "b", "c", "d"} {
		commits = append(commits, commitsBy(handle, 2, old)...)
	}
	client.SetCommits("acme/api", "pkg/a.go", commits)

	records := New(client).Analyze(ctx, "acme/api", []string{"pkg/a.go"})
	if got := len(records[0].PrimaryContributors); got != 3 {
		t.Errorf("expected primary contributors capped at 3, got %d", got)
	}
}

func TestAnalyzeRecentContributors(t *testing.T) {
	ctx := context.Background()
	client := testutil.NewMockSourceControl()

	commits := append(
		commitsBy("alice", 2, time.Now().Add(-5*24*time.Hour)),
		commitsBy("bob", 2, time.Now().Add(-45*24*time.Hour))...)
	client.SetCommits("acme/api", "pkg/a.go", commits)

	r := New(client).Analyze(ctx, "acme/api", []string{"pkg/a.go"})[0]
	if len(r.RecentContributors) != 1 || r.RecentContributors[0] != "alice" {
		t.Errorf("expected only alice within the 30-day window, got %v", r.RecentContributors)
	}
}

func TestAnalyzeToleratesPerPathFailures(t *testing.T) {
	ctx := context.Background()
	client := testutil.NewMockSourceControl()
	recent := time.Now().Add(-24 * time.Hour)

	client.SetCommits("acme/api", "pkg/ok.go", commitsBy("alice", 5, recent))
	client.SetError("acme/api", "pkg/denied.go", github.ErrAccessDenied)
	client.SetError("acme/api", "pkg/gone.go", github.ErrNotFound)
	client.SetError("acme/api", "pkg/flaky.go", errors.New("boom"))

	records := New(client).Analyze(ctx, "acme/api",
		[]string{"pkg/ok.go", "pkg/denied.go", "pkg/gone.go", "pkg/flaky.go"})

	if len(records) != 4 {
		t.Fatalf("expected a record per path, got %d", len(records))
	}
	if records[0].ExpertiseScore == 0 {
		t.Error("expected non-zero expertise for the healthy path")
	}
	for _, r := range records[1:] {
		if r.ExpertiseScore != 0 || r.CommitCount != 0 || len(r.PrimaryContributors) != 0 {
			t.Errorf("expected zero-value record for failed path %s, got %+v", r.Path, r)
		}
	}
}

func TestExpertiseScoreFormula(t *testing.T) {
	got := expertiseScore(2, 3, 20)
	want := math.Min(10, 2*2+3*1.5+math.Log(21)*0.5)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expertiseScore(2,3,20) = %v, want %v", got, want)
	}

	if expertiseScore(3, 10, 50) != 10 {
		t.Errorf("expected expertise capped at 10, got %v", expertiseScore(3, 10, 50))
	}
	if expertiseScore(0, 0, 0) != 0 {
		t.Errorf("expected zero expertise for empty history, got %v", expertiseScore(0, 0, 0))
	}
}

func TestAnalyzeCachesCommitHistory(t *testing.T) {
	ctx := context.Background()
	client := testutil.NewMockSourceControl()
	client.SetCommits("acme/api", "pkg/a.go", commitsBy("alice", 3, time.Now()))

	analyzer := New(client)
	analyzer.Analyze(ctx, "acme/api", []string{"pkg/a.go"})
	analyzer.Analyze(ctx, "acme/api", []string{"pkg/a.go"})

	if calls := len(client.Calls()); calls != 1 {
		t.Errorf("expected 1 upstream fetch with a warm cache, got %d", calls)
	}
}

func TestRecordContributes(t *testing.T) {
	r := Record{
		PrimaryContributors: []string{"alice"},
		RecentContributors:  []string{"bob"},
	}
	if !r.Contributes("alice") || !r.Contributes("bob") {
		t.Error("expected both primary and recent contributors to count")
	}
	if r.Contributes("carol") {
		t.Error("carol should not contribute")
	}
}
