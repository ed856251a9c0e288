// Package types contains shared data structures used across the insights system.
//
//nolint:revive // "types" is a standard Go package name for shared data structures
package types

import "time"

// PullRequestSummary is an immutable snapshot of a pull request taken at
// ingestion time. It is produced once per webhook event and never mutated.
type PullRequestSummary struct {
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MergedAt     *time.Time
	Repository   string // full name, "owner/name"
	Author       string
	State        string // "open", "closed", "merged"
	Number       int
	Additions    int
	Deletions    int
	ChangedFiles int
	Commits      int
	Draft        bool
}

// FileChange represents a single file changed in a pull request.
type FileChange struct {
	Path      string
	Status    string // "added", "removed", "modified", "renamed"
	Additions int
	Deletions int
	Changes   int
}

// Commit holds the authorship attributes of a single commit, as returned by
// the source-control host when walking a file's history.
type Commit struct {
	AuthorDate   time.Time
	SHA          string
	AuthorHandle string
}

// OrgMember is one entry in an organization's member roster.
type OrgMember struct {
	ID     string
	Handle string
}

// Organization is a tenant with an optional chat integration. Organizations
// without a webhook URL are skipped by the alerting pipeline.
type Organization struct {
	ID              string
	Name            string
	SlackWebhookURL string
}

// PRInsight is the persisted scoring record for a pull request, keyed by
// (OrgID, Repository, Number). Scores are recomputed at every ingestion
// event; the stored row is a cache of the latest result.
type PRInsight struct {
	CreatedAt  time.Time
	UpdatedAt  time.Time
	OrgID      string
	Repository string
	Author     string
	State      string
	Paths      []string
	Number     int
	Additions  int
	Deletions  int
	SizeScore  float64
	RiskScore  float64
	Draft      bool
}

// JobLock is a named TTL'd mutual-exclusion record in the shared store.
// Release flips IsLocked rather than deleting the row, so the lock's
// history stays inspectable.
type JobLock struct {
	LockedAt time.Time
	JobName  string
	IsLocked bool
}
