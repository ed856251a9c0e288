// Package scoring computes size and risk scores for pull requests. Every
// function here is a pure function of its inputs and a Config; there is no
// hidden state, so results are safe to recompute from any goroutine and are
// bit-identical across calls with identical inputs.
package scoring

import (
	"fmt"
	"math"

	"github.com/kyisaiah47/springforge-sub000/pkg/classify"
	"github.com/kyisaiah47/springforge-sub000/pkg/types"
)

const (
	maxScore = 10.0

	// sizeNormalizer and sizeLogScale shape the sub-linear size curve:
	// the weighted change count is divided by sizeNormalizer, then mapped
	// through min(10, log10(x+1)*sizeLogScale). A ten-line PR lands near
	// zero; a hundred-thousand-line PR still caps at 10.
	sizeNormalizer = 10.0
	sizeLogScale   = 4.0

	// largePRChanges marks the line count past which an untested PR picks
	// up an extra test-coverage penalty.
	largePRChanges = 500

	// neutralAuthorExperience is reported when no author history is
	// available at scoring time. The factor is informational and carries
	// no weight in the final risk score.
	neutralAuthorExperience = 5.0

	// docsOnlyFileTypeRisk is the forced file-type risk for PRs that touch
	// documentation exclusively.
	docsOnlyFileTypeRisk = 0.5
)

// RiskFactors itemizes the sub-scores behind a risk score. Each factor is
// clamped to [0,10] before any weighting is applied.
type RiskFactors struct {
	Size             float64 `json:"size"`
	TestCoverage     float64 `json:"testCoverage"`
	CriticalPath     float64 `json:"criticalPath"`
	Complexity       float64 `json:"complexity"`
	FileType         float64 `json:"fileType"`
	AuthorExperience float64 `json:"authorExperience"`
}

// SizeMetrics are the raw change counts the size score was derived from.
type SizeMetrics struct {
	Additions    int `json:"additions"`
	Deletions    int `json:"deletions"`
	FilesChanged int `json:"filesChanged"`
	TestsChanged int `json:"testsChanged"`
	TotalChanges int `json:"totalChanges"`
}

// Result is the stable output shape of the scoring engine. Consumers may
// persist or display it; it is derived data, recomputable on demand.
type Result struct {
	SizeScore       float64     `json:"sizeScore"`
	RiskScore       float64     `json:"riskScore"`
	RiskFactors     RiskFactors `json:"riskFactors"`
	SizeMetrics     SizeMetrics `json:"sizeMetrics"`
	Recommendations []string    `json:"recommendations"`
}

// Score computes the size and risk scores for a pull request and its changed
// files under the given configuration. Use DefaultConfig for the documented
// defaults. Returns an error only for malformed configuration; any input
// magnitude yields scores clamped to [0,10].
func Score(pr types.PullRequestSummary, files []types.FileChange, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, fmt.Errorf("score %s#%d: %w", pr.Repository, pr.Number, err)
	}

	metrics := collectSizeMetrics(pr, files)
	sizeScore := sizeScore(metrics, cfg.SizeWeights)

	factors := RiskFactors{
		Size:             sizeScore,
		TestCoverage:     clamp(testCoverageRisk(files, metrics)),
		CriticalPath:     clamp(criticalPathRisk(files)),
		Complexity:       clamp(complexityRisk(pr, files)),
		FileType:         clamp(fileTypeRisk(files)),
		AuthorExperience: neutralAuthorExperience,
	}

	// The path-derived pair shares one weight; the riskier of the two
	// drives the contribution. See DESIGN.md for the consolidation of the
	// two historical scoring variants.
	pathRisk := math.Max(factors.CriticalPath, factors.FileType)

	w := cfg.RiskWeights
	riskScore := clamp(w.Size*factors.Size +
		w.TestCoverage*factors.TestCoverage +
		w.CriticalPaths*pathRisk +
		w.Complexity*factors.Complexity)

	result := Result{
		SizeScore:   round1(sizeScore),
		RiskScore:   round1(riskScore),
		RiskFactors: factors,
		SizeMetrics: metrics,
	}
	result.Recommendations = recommendations(result, files, cfg.Thresholds)
	return result, nil
}

func collectSizeMetrics(pr types.PullRequestSummary, files []types.FileChange) SizeMetrics {
	m := SizeMetrics{
		Additions:    pr.Additions,
		Deletions:    pr.Deletions,
		FilesChanged: pr.ChangedFiles,
		TotalChanges: pr.Additions + pr.Deletions,
	}
	if m.FilesChanged == 0 {
		m.FilesChanged = len(files)
	}
	for _, f := range files {
		if classify.Categories(f.Path).Has(classify.Test) {
			m.TestsChanged++
		}
	}
	return m
}

// sizeScore maps weighted change counts through a logarithmic curve so that
// score growth is sub-linear for very large changesets. Zero changes score
// exactly zero.
func sizeScore(m SizeMetrics, w SizeWeights) float64 {
	weighted := float64(m.Additions)*w.Additions +
		float64(m.Deletions)*w.Deletions +
		float64(m.FilesChanged)*w.FilesChanged
	if weighted <= 0 {
		return 0
	}
	return clamp(math.Log10(weighted/sizeNormalizer+1) * sizeLogScale)
}

// testCoverageRisk treats missing information as worst case: an empty file
// list scores maximum risk. A PR made up entirely of test files cannot be
// undertested and scores zero.
func testCoverageRisk(files []types.FileChange, m SizeMetrics) float64 {
	if len(files) == 0 {
		return maxScore
	}

	codeFiles := 0
	testedChanges := 0
	for _, f := range files {
		if classify.Categories(f.Path).Has(classify.Test) {
			testedChanges += f.Changes
		} else if !classify.Categories(f.Path).Has(classify.Docs) {
			codeFiles++
		}
	}

	if m.TestsChanged == len(files) {
		return 0
	}

	if codeFiles > 0 && m.TestsChanged == 0 {
		risk := 5.0 + math.Min(3, float64(codeFiles)*0.3)
		if m.TotalChanges > largePRChanges {
			risk += 2
		}
		return risk
	}
	if codeFiles == 0 {
		// Docs plus tests, or docs alone: nothing here needs coverage.
		return 1
	}

	total := 0
	for _, f := range files {
		total += f.Changes
	}
	if total == 0 {
		return 0
	}
	ratio := float64(testedChanges) / float64(total)
	if ratio >= 0.4 {
		return 1
	}
	// Linear from 8 at ratio 0 down to 1 at ratio 0.4.
	return 8 - ratio*17.5
}

// criticalPathRisk scores zero when nothing sensitive is touched, otherwise a
// base of 3 plus per-category penalties.
func criticalPathRisk(files []types.FileChange) float64 {
	var manifest, env, migration, auth, security bool
	for _, f := range files {
		set := classify.Categories(f.Path)
		manifest = manifest || set.Has(classify.Manifest)
		env = env || set.Has(classify.EnvSecrets)
		migration = migration || set.Has(classify.Migration)
		auth = auth || set.Has(classify.Auth)
		security = security || set.Has(classify.Security)
	}
	if !manifest && !env && !migration && !auth && !security {
		return 0
	}

	risk := 3.0
	if manifest {
		risk++
	}
	if env {
		risk += 2
	}
	if migration {
		risk += 2
	}
	if auth {
		risk += 1.5
	}
	if security {
		risk += 1.5
	}
	return risk
}

// complexityRisk accumulates per-file points for complexity-heavy languages,
// large individual diffs, and new or renamed files, normalizes by file count,
// then adds a tiered penalty for high commit counts.
func complexityRisk(pr types.PullRequestSummary, files []types.FileChange) float64 {
	if len(files) == 0 {
		return 0
	}

	points := 0.0
	for _, f := range files {
		if classify.IsComplexLanguage(f.Path) {
			points++
		}
		switch {
		case f.Changes > 200:
			points += 2
		case f.Changes > 100:
			points++
		}
		if f.Status == "added" || f.Status == "renamed" {
			points += 0.5
		}
	}

	risk := points / float64(len(files)) * 3
	switch {
	case pr.Commits > 20:
		risk += 2
	case pr.Commits > 10:
		risk++
	}
	return risk
}

// fileTypeRisk penalizes critical-system, security-keyword, and
// infrastructure-as-code paths. A PR that touches documentation exclusively
// is forced to a low constant instead.
func fileTypeRisk(files []types.FileChange) float64 {
	if len(files) == 0 {
		return 0
	}

	docsOnly := true
	var critical, security, infra bool
	for _, f := range files {
		set := classify.Categories(f.Path)
		if !set.Has(classify.Docs) {
			docsOnly = false
		}
		critical = critical || set.Has(classify.Manifest) || set.Has(classify.EnvSecrets) || set.Has(classify.Migration)
		security = security || set.Has(classify.Auth) || set.Has(classify.Security)
		infra = infra || set.Has(classify.Infrastructure)
	}
	if docsOnly {
		return docsOnlyFileTypeRisk
	}

	risk := 0.0
	if critical {
		risk += 2
	}
	if security {
		risk += 2
	}
	if infra {
		risk += 1.5
	}
	return risk
}

// Recommendation messages. Each check fires independently; the output order
// is the order of the checks below.
const (
	RecommendSplit         = "Consider splitting this PR into smaller, focused changes"
	RecommendAddTests      = "Add or update tests covering the changed code"
	RecommendExtraReview   = "Critical paths affected: request additional reviewers and merge with caution"
	RecommendDependencies  = "Dependency manifest changed: verify compatibility and lockfile integrity"
	RecommendMigrationPlan = "Database migration included: confirm backward compatibility and a rollback plan"
	RecommendHighRisk      = "Overall risk is high: consider a design review before merging"
)

func recommendations(r Result, files []types.FileChange, t Thresholds) []string {
	var recs []string
	if r.SizeScore > t.LargePR {
		recs = append(recs, RecommendSplit)
	}
	if r.RiskFactors.TestCoverage > 7 {
		recs = append(recs, RecommendAddTests)
	}
	if r.RiskFactors.CriticalPath > 5 {
		recs = append(recs, RecommendExtraReview)
	}

	var manifest, migration bool
	for _, f := range files {
		set := classify.Categories(f.Path)
		manifest = manifest || set.Has(classify.Manifest)
		migration = migration || set.Has(classify.Migration)
	}
	if manifest {
		recs = append(recs, RecommendDependencies)
	}
	if migration {
		recs = append(recs, RecommendMigrationPlan)
	}
	if r.RiskScore > t.HighRisk {
		recs = append(recs, RecommendHighRisk)
	}
	return recs
}

func clamp(v float64) float64 {
	return math.Min(maxScore, math.Max(0, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
