// Package ownership derives per-file code ownership from commit history:
// who the primary and recent contributors of a path are, and how much
// concentrated expertise the path carries.
package ownership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/kyisaiah47/springforge-sub000/pkg/cache"
	"github.com/kyisaiah47/springforge-sub000/pkg/github"
	"github.com/kyisaiah47/springforge-sub000/pkg/types"
)

const (
	commitHistoryLimit = 50
	historyCacheTTL    = 15 * time.Minute

	// primaryShare is the fraction of a file's analyzed commits a
	// contributor must have authored to count as primary.
	primaryShare = 0.20
	maxPrimary   = 3

	// recentWindow bounds how far back a commit may be for its author to
	// count as a recent contributor.
	recentWindow = 30 * 24 * time.Hour
)

// SourceControl is the slice of the source-control collaborator the analyzer
// needs.
type SourceControl interface {
	ListCommits(ctx context.Context, repo, path string, limit int) ([]types.Commit, error)
}

// Record is the derived ownership of a single file path. Records are
// ephemeral: recomputed per request, never persisted.
type Record struct {
	Path                string
	PrimaryContributors []string
	RecentContributors  []string
	ExpertiseScore      float64
	CommitCount         int
}

// Analyzer computes ownership records from commit history.
type Analyzer struct {
	client SourceControl
	cache  *cache.Cache
	now    func() time.Time
}

// New creates an Analyzer backed by the given source-control client.
func New(client SourceControl) *Analyzer {
	return &Analyzer{
		client: client,
		cache:  cache.New(historyCacheTTL),
		now:    time.Now,
	}
}

// Analyze derives an ownership record for every path. A fetch failure on one
// path never fails the whole request: the path gets a zero-value record and
// analysis continues, since some paths may be deleted or inaccessible.
func (a *Analyzer) Analyze(ctx context.Context, repo string, paths []string) []Record {
	records := make([]Record, 0, len(paths))
	for _, path := range paths {
		commits, err := a.commitHistory(ctx, repo, path)
		if err != nil {
			switch {
			case errors.Is(err, github.ErrAccessDenied):
				slog.Warn("Access denied walking file history, skipping path", "repo", repo, "path", path)
			case errors.Is(err, github.ErrNotFound):
				slog.Info("File history not found, skipping path", "repo", repo, "path", path)
			default:
				slog.Warn("Failed to fetch file history, skipping path", "repo", repo, "path", path, "error", err)
			}
			records = append(records, Record{Path: path})
			continue
		}
		records = append(records, a.buildRecord(path, commits))
	}
	return records
}

func (a *Analyzer) commitHistory(ctx context.Context, repo, path string) ([]types.Commit, error) {
	key := fmt.Sprintf("commits:%s:%s", repo, path)
	if cached, ok := a.cache.Get(key); ok {
		if commits, ok := cached.([]types.Commit); ok {
			return commits, nil
		}
	}

	commits, err := a.client.ListCommits(ctx, repo, path, commitHistoryLimit)
	if err != nil {
		return nil, err
	}
	a.cache.Set(key, commits)
	return commits, nil
}

// buildRecord tallies commit authorship for one path. Primary contributors
// authored at least primaryShare of the analyzed commits (top 3 kept, most
// commits first); recent contributors have a commit inside recentWindow.
func (a *Analyzer) buildRecord(path string, commits []types.Commit) Record {
	record := Record{Path: path, CommitCount: len(commits)}
	if len(commits) == 0 {
		return record
	}

	counts := make(map[string]int)
	lastSeen := make(map[string]time.Time)
	var order []string
	for _, c := range commits {
		if _, seen := counts[c.AuthorHandle]; !seen {
			order = append(order, c.AuthorHandle)
		}
		counts[c.AuthorHandle]++
		if c.AuthorDate.After(lastSeen[c.AuthorHandle]) {
			lastSeen[c.AuthorHandle] = c.AuthorDate
		}
	}

	minPrimary := float64(len(commits)) * primaryShare
	var primary []string
	for _, handle := range order {
		if float64(counts[handle]) >= minPrimary {
			primary = append(primary, handle)
		}
	}
	sort.SliceStable(primary, func(i, j int) bool {
		return counts[primary[i]] > counts[primary[j]]
	})
	if len(primary) > maxPrimary {
		primary = primary[:maxPrimary]
	}

	cutoff := a.now().Add(-recentWindow)
	var recent []string
	for _, handle := range order {
		if lastSeen[handle].After(cutoff) {
			recent = append(recent, handle)
		}
	}

	record.PrimaryContributors = primary
	record.RecentContributors = recent
	record.ExpertiseScore = expertiseScore(len(primary), len(recent), len(commits))
	return record
}

// expertiseScore rewards authorship concentration and recency, with a gentle
// logarithmic term for overall history depth, capped at 10.
func expertiseScore(primaryCount, recentCount, commitCount int) float64 {
	score := float64(primaryCount)*2 + float64(recentCount)*1.5 + math.Log(float64(commitCount)+1)*0.5
	return math.Min(10, score)
}

// Contributes reports whether the handle appears among the record's primary
// or recent contributors.
func (r Record) Contributes(handle string) bool {
	return r.IsPrimary(handle) || r.IsRecent(handle)
}

// IsPrimary reports whether the handle is a primary contributor.
func (r Record) IsPrimary(handle string) bool {
	for _, h := range r.PrimaryContributors {
		if h == handle {
			return true
		}
	}
	return false
}

// IsRecent reports whether the handle is a recent contributor.
func (r Record) IsRecent(handle string) bool {
	for _, h := range r.RecentContributors {
		if h == handle {
			return true
		}
	}
	return false
}
