package scoring

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/kyisaiah47/springforge-sub000/pkg/types"
)

func mustScore(t *testing.T, pr types.PullRequestSummary, files []types.FileChange) Result {
	t.Helper()
	result, err := Score(pr, files, DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return result
}

func codeFile(path string, changes int) types.FileChange {
	return types.FileChange{
		Path:      path,
		Status:    "modified",
		Additions: changes,
		Changes:   changes,
	}
}

func TestScoreZeroChanges(t *testing.T) {
	result := mustScore(t, types.PullRequestSummary{}, nil)
	if result.SizeScore != 0 {
		t.Errorf("expected size score 0 for zero-change PR, got %v", result.SizeScore)
	}
}

func TestScoreBoundsUnderExtremeInputs(t *testing.T) {
	tests := []struct {
		name  string
		pr    types.PullRequestSummary
		files []types.FileChange
	}{
		{"empty", types.PullRequestSummary{}, nil},
		{"huge additions", types.PullRequestSummary{Additions: 100000, ChangedFiles: 500, Commits: 300}, nil},
		{
			"huge everything",
			types.PullRequestSummary{Additions: 1 << 30, Deletions: 1 << 30, ChangedFiles: 1 << 20, Commits: 1 << 20},
			[]types.FileChange{codeFile("a.go", 1 << 20), codeFile(".env", 1 << 20), codeFile("db/migrations/m.sql", 1 << 20)},
		},
		{"negative counts", types.PullRequestSummary{Additions: -50, Deletions: -10, ChangedFiles: -3}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := mustScore(t, tt.pr, tt.files)

			checks := map[string]float64{
				"sizeScore":        result.SizeScore,
				"riskScore":        result.RiskScore,
				"size":             result.RiskFactors.Size,
				"testCoverage":     result.RiskFactors.TestCoverage,
				"criticalPath":     result.RiskFactors.CriticalPath,
				"complexity":       result.RiskFactors.Complexity,
				"fileType":         result.RiskFactors.FileType,
				"authorExperience": result.RiskFactors.AuthorExperience,
			}
			for name, v := range checks {
				if v < 0 || v > 10 {
					t.Errorf("%s = %v, outside [0,10]", name, v)
				}
			}
		})
	}
}

func TestTestCoverageRiskEmptyFileListIsWorstCase(t *testing.T) {
	result := mustScore(t, types.PullRequestSummary{Additions: 100}, nil)
	if result.RiskFactors.TestCoverage != 10 {
		t.Errorf("expected test-coverage risk 10 for empty file list, got %v", result.RiskFactors.TestCoverage)
	}
}

func TestTestCoverageRiskTestOnlyPRIsZero(t *testing.T) {
	files := []types.FileChange{
		codeFile("pkg/a/a_test.go", 5000),
		codeFile("tests/integration/flow_test.go", 3000),
	}
	result := mustScore(t, types.PullRequestSummary{Additions: 8000, ChangedFiles: 2}, files)
	if result.RiskFactors.TestCoverage != 0 {
		t.Errorf("expected test-coverage risk 0 for test-only PR, got %v", result.RiskFactors.TestCoverage)
	}
}

func TestTestCoverageRiskUntestedCode(t *testing.T) {
	files := []types.FileChange{codeFile("pkg/a/a.go", 50), codeFile("pkg/b/b.go", 40)}
	result := mustScore(t, types.PullRequestSummary{Additions: 90, ChangedFiles: 2}, files)
	if result.RiskFactors.TestCoverage < 5 {
		t.Errorf("expected test-coverage risk >= 5 for untested code, got %v", result.RiskFactors.TestCoverage)
	}
}

func TestTestCoverageRiskGoodRatioIsLow(t *testing.T) {
	files := []types.FileChange{
		codeFile("pkg/a/a.go", 60),
		codeFile("pkg/a/a_test.go", 40),
	}
	result := mustScore(t, types.PullRequestSummary{Additions: 100, ChangedFiles: 2}, files)
	if result.RiskFactors.TestCoverage > 1 {
		t.Errorf("expected low test-coverage risk for 40%% tested changes, got %v", result.RiskFactors.TestCoverage)
	}
}

func TestFileTypeRiskDocsOnly(t *testing.T) {
	files := []types.FileChange{
		codeFile("README.md", 100),
		codeFile("docs/guide.md", 300),
	}
	result := mustScore(t, types.PullRequestSummary{Additions: 400, ChangedFiles: 2}, files)
	if result.RiskFactors.FileType != 0.5 {
		t.Errorf("expected file-type risk 0.5 for docs-only PR, got %v", result.RiskFactors.FileType)
	}
}

func TestSizeScoreMonotonicity(t *testing.T) {
	prev := -1.0
	for _, additions := range []int{0, 1, 10, 100, 1000, 10000, 100000} {
		result := mustScore(t, types.PullRequestSummary{Additions: additions, ChangedFiles: 1}, nil)
		if result.SizeScore < prev {
			t.Errorf("size score decreased from %v to %v at additions=%d", prev, result.SizeScore, additions)
		}
		prev = result.SizeScore
	}

	prev = -1.0
	for _, filesChanged := range []int{0, 1, 5, 50, 500} {
		result := mustScore(t, types.PullRequestSummary{Additions: 100, ChangedFiles: filesChanged}, nil)
		if result.SizeScore < prev {
			t.Errorf("size score decreased from %v to %v at filesChanged=%d", prev, result.SizeScore, filesChanged)
		}
		prev = result.SizeScore
	}
}

func TestScoreIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pr := types.PullRequestSummary{
		Repository:   "acme/api",
		Number:       42,
		Author:       "alice",
		State:        "open",
		Additions:    321,
		Deletions:    45,
		ChangedFiles: 7,
		Commits:      12,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	files := []types.FileChange{
		codeFile("internal/auth/token.go", 200),
		codeFile("internal/auth/token_test.go", 80),
		codeFile("package.json", 4),
	}

	first := mustScore(t, pr, files)
	second := mustScore(t, pr, files)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical inputs produced different results:\n%+v\n%+v", first, second)
	}
}

func TestSmallPRScoresNearZero(t *testing.T) {
	files := []types.FileChange{codeFile("pkg/a/a.go", 10)}
	result := mustScore(t, types.PullRequestSummary{Additions: 8, Deletions: 2, ChangedFiles: 1}, files)
	if result.SizeScore >= DefaultConfig().Thresholds.SmallPR {
		t.Errorf("expected a ten-line PR to score below the small-PR threshold, got %v", result.SizeScore)
	}
}

func TestEndToEndLargeUntestedManifestPR(t *testing.T) {
	pr := types.PullRequestSummary{
		Repository:   "acme/api",
		Number:       7,
		Additions:    1500,
		Deletions:    500,
		ChangedFiles: 50,
		Commits:      15,
	}
	files := []types.FileChange{codeFile("package.json", 30)}
	for i := 0; i < 49; i++ {
		files = append(files, codeFile(fmt.Sprintf("src/module%d.ts", i), 40))
	}

	result := mustScore(t, pr, files)

	if result.SizeScore < 8 {
		t.Errorf("expected size score >= 8, got %v", result.SizeScore)
	}
	if result.RiskFactors.TestCoverage < 5 {
		t.Errorf("expected test-coverage risk >= 5, got %v", result.RiskFactors.TestCoverage)
	}
	if result.RiskFactors.CriticalPath <= 3 {
		t.Errorf("expected critical-path risk > 3 from the manifest penalty, got %v", result.RiskFactors.CriticalPath)
	}

	wantRecs := []string{RecommendSplit, RecommendAddTests, RecommendDependencies}
	for _, want := range wantRecs {
		found := false
		for _, rec := range result.Recommendations {
			if rec == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing recommendation %q in %v", want, result.Recommendations)
		}
	}
}

func TestRecommendationOrderFollowsChecks(t *testing.T) {
	pr := types.PullRequestSummary{Additions: 5000, Deletions: 1000, ChangedFiles: 80}
	files := []types.FileChange{
		codeFile("db/migrations/0002_add_index.sql", 20),
		codeFile(".env", 2),
		codeFile("package.json", 10),
	}
	for i := 0; i < 40; i++ {
		files = append(files, codeFile(fmt.Sprintf("src/m%d.go", i), 150))
	}

	result := mustScore(t, pr, files)

	index := func(rec string) int {
		for i, r := range result.Recommendations {
			if r == rec {
				return i
			}
		}
		return -1
	}
	split, deps, migration := index(RecommendSplit), index(RecommendDependencies), index(RecommendMigrationPlan)
	if split == -1 || deps == -1 || migration == -1 {
		t.Fatalf("expected split/deps/migration recommendations, got %v", result.Recommendations)
	}
	if !(split < deps && deps < migration) {
		t.Errorf("recommendations out of insertion order: %v", result.Recommendations)
	}
}

func TestScoreRejectsMalformedConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RiskWeights.Size = -1
	if _, err := Score(types.PullRequestSummary{}, nil, cfg); err == nil {
		t.Error("expected error for negative risk weight")
	}

	cfg = DefaultConfig()
	cfg.RiskWeights = RiskWeights{Size: 0.5, TestCoverage: 0.5, CriticalPaths: 0.5, Complexity: 0.5}
	if _, err := Score(types.PullRequestSummary{}, nil, cfg); err == nil {
		t.Error("expected error for risk weights not summing to 1.0")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
}
