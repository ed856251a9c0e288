package scoring

import "fmt"

// SizeWeights are the per-metric multipliers used when combining a pull
// request's raw change counts into a single weighted size value.
type SizeWeights struct {
	Additions    float64
	Deletions    float64
	FilesChanged float64
}

// RiskWeights distribute the overall risk score across its sub-factors.
// The four weights are expected to sum to 1.0 so the final score stays
// interpretable on the same 0-10 scale as the factors.
type RiskWeights struct {
	Size          float64
	TestCoverage  float64
	CriticalPaths float64
	Complexity    float64
}

// Thresholds are the scalar cut-offs used when generating recommendations.
type Thresholds struct {
	SmallPR  float64
	LargePR  float64
	HighRisk float64
}

// Config is the full tuning surface of the scoring engine. Callers that want
// non-default behavior construct one explicitly; changing a default here is a
// deliberate, reviewable change rather than an optional-field surprise.
type Config struct {
	SizeWeights SizeWeights
	RiskWeights RiskWeights
	Thresholds  Thresholds
}

// DefaultConfig returns the documented default weights and thresholds.
func DefaultConfig() Config {
	return Config{
		SizeWeights: SizeWeights{
			Additions:    1.0,
			Deletions:    0.8,
			FilesChanged: 2.0,
		},
		RiskWeights: RiskWeights{
			Size:          0.3,
			TestCoverage:  0.25,
			CriticalPaths: 0.3,
			Complexity:    0.15,
		},
		Thresholds: Thresholds{
			SmallPR:  3.0,
			LargePR:  7.0,
			HighRisk: 7.0,
		},
	}
}

// Validate checks that every weight and threshold is a positive float and
// that the risk weights sum close enough to 1.0 to keep the score scale
// meaningful. Malformed configuration fails fast; it is never retried or
// silently corrected.
func (c Config) Validate() error {
	positives := []struct {
		name  string
		value float64
	}{
		{"sizeWeights.additions", c.SizeWeights.Additions},
		{"sizeWeights.deletions", c.SizeWeights.Deletions},
		{"sizeWeights.filesChanged", c.SizeWeights.FilesChanged},
		{"riskWeights.size", c.RiskWeights.Size},
		{"riskWeights.testCoverage", c.RiskWeights.TestCoverage},
		{"riskWeights.criticalPaths", c.RiskWeights.CriticalPaths},
		{"riskWeights.complexity", c.RiskWeights.Complexity},
		{"thresholds.smallPR", c.Thresholds.SmallPR},
		{"thresholds.largePR", c.Thresholds.LargePR},
		{"thresholds.highRisk", c.Thresholds.HighRisk},
	}
	for _, p := range positives {
		if p.value <= 0 {
			return fmt.Errorf("scoring config: %s must be positive, got %v", p.name, p.value)
		}
	}

	sum := c.RiskWeights.Size + c.RiskWeights.TestCoverage + c.RiskWeights.CriticalPaths + c.RiskWeights.Complexity
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("scoring config: risk weights must sum to 1.0, got %v", sum)
	}
	return nil
}
