// Package reviewer ranks an organization's members as review candidates for
// a pull request, combining code-ownership records with inferred expertise
// areas. Scoring is deterministic: identical inputs always produce the same
// ranked list.
package reviewer

import (
	"math"
	"sort"

	"github.com/kyisaiah47/springforge-sub000/pkg/ownership"
	"github.com/kyisaiah47/springforge-sub000/pkg/types"
)

// Confidence contributions per owned path, and flat bonuses.
const (
	primaryPoints   = 3.0
	recentPoints    = 2.0
	multiAreaBonus  = 1.0
	expertiseBonus  = 1.0
	expertiseFloor  = 5.0 // average expertise a member must exceed for the bonus
	confidenceScale = 10.0
)

// Defaults applied when Options fields are zero.
const (
	DefaultMinConfidence  = 0.3
	DefaultMaxSuggestions = 5
)

// Suggestion is one ranked review candidate.
type Suggestion struct {
	Handle         string
	MemberID       string
	Confidence     float64 // in [0,1], rounded to 2 decimals
	Reasoning      []string
	ExpertiseAreas []string
}

// Options tune filtering of the ranked list.
type Options struct {
	MinConfidence  float64
	MaxSuggestions int
}

// Suggest ranks members as reviewers for a change touching the given
// ownership records. The author is never a candidate. Results are sorted by
// confidence, ties broken by roster order, and capped per Options.
func Suggest(members []types.OrgMember, records []ownership.Record, authorHandle string, opts Options) []Suggestion {
	minConfidence := opts.MinConfidence
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	maxSuggestions := opts.MaxSuggestions
	if maxSuggestions <= 0 {
		maxSuggestions = DefaultMaxSuggestions
	}

	var suggestions []Suggestion
	for _, member := range members {
		if member.Handle == authorHandle {
			continue
		}
		if s, ok := scoreMember(member, records); ok {
			suggestions = append(suggestions, s)
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})

	filtered := suggestions[:0]
	for _, s := range suggestions {
		if s.Confidence >= minConfidence {
			filtered = append(filtered, s)
		}
	}
	if len(filtered) > maxSuggestions {
		filtered = filtered[:maxSuggestions]
	}
	return filtered
}

// scoreMember accumulates a raw score across the touched paths and converts
// it to a confidence in [0,1]. Members with zero confidence are dropped.
func scoreMember(member types.OrgMember, records []ownership.Record) (Suggestion, bool) {
	s := Suggestion{Handle: member.Handle, MemberID: member.ID}

	raw := 0.0
	expertiseSum := 0.0
	owned := 0
	areaSet := make(map[string]bool)

	for _, record := range records {
		contributed := false
		if record.IsPrimary(member.Handle) {
			raw += primaryPoints
			s.Reasoning = append(s.Reasoning, "Primary contributor to "+record.Path)
			contributed = true
		}
		if record.IsRecent(member.Handle) {
			raw += recentPoints
			s.Reasoning = append(s.Reasoning, "Recently active in "+record.Path)
			contributed = true
		}
		if contributed {
			owned++
			expertiseSum += record.ExpertiseScore
			for _, area := range areasForPath(record.Path) {
				areaSet[area] = true
			}
		}
	}

	if raw == 0 {
		return Suggestion{}, false
	}

	for area := range areaSet {
		s.ExpertiseAreas = append(s.ExpertiseAreas, area)
	}
	sort.Strings(s.ExpertiseAreas)

	if len(areaSet) > 1 {
		raw += multiAreaBonus
		s.Reasoning = append(s.Reasoning, "Expertise spans multiple areas")
	}
	if owned > 0 && expertiseSum/float64(owned) > expertiseFloor {
		raw += expertiseBonus
		s.Reasoning = append(s.Reasoning, "Deep familiarity with the touched code")
	}

	s.Confidence = round2(math.Min(1, raw/confidenceScale))
	return s, s.Confidence > 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
