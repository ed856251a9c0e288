// Package jobs runs scheduled batch work under a distributed job lock.
// A run either short-circuits on a held lock with zero side effects, or
// processes every organization sequentially, isolating per-organization
// failures into the result. Nothing escapes the run boundary: errors and
// panics alike are converted into the result's error list.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kyisaiah47/springforge-sub000/pkg/store"
	"github.com/kyisaiah47/springforge-sub000/pkg/types"
)

// Job names used as lock keys in the shared store.
const (
	StalePRAlertsJob = "stale-pr-alerts"
	StandupJob       = "standup-generation"
)

// Result is the outcome of one scheduled run. Processed and Succeeded counts
// sit alongside the error list so partial success is distinguishable from
// total failure.
type Result struct {
	StartedAt  time.Time
	FinishedAt time.Time
	RunID      string
	JobName    string
	Errors     []string
	Processed  int
	Succeeded  int
	Success    bool
}

// OrgLister supplies the organizations a run iterates.
type OrgLister interface {
	ListOrganizations(ctx context.Context) ([]types.Organization, error)
}

// PerOrgFunc is the unit of work a run applies to each organization.
type PerOrgFunc func(ctx context.Context, org types.Organization) error

// Runner executes named jobs under the shared store's lock table.
type Runner struct {
	locks store.LockStore
}

// NewRunner creates a Runner on the given lock store.
func NewRunner(locks store.LockStore) *Runner {
	return &Runner{locks: locks}
}

// Run executes one scheduled job end to end. The lock is acquired before any
// work and released in a defer regardless of outcome. A held lock aborts the
// run immediately; every other failure is recorded and the run continues to
// the next organization.
func (r *Runner) Run(ctx context.Context, jobName string, orgs OrgLister, perOrg PerOrgFunc) (result Result) {
	result = Result{
		RunID:     uuid.NewString(),
		JobName:   jobName,
		StartedAt: time.Now(),
	}
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Job run panicked", "job", jobName, "run_id", result.RunID, "panic", rec)
			result.Errors = append(result.Errors, fmt.Sprintf("panic: %v", rec))
		}
		result.Success = len(result.Errors) == 0
		result.FinishedAt = time.Now()
		slog.Info("Job run finished", "job", jobName, "run_id", result.RunID,
			"processed", result.Processed, "succeeded", result.Succeeded,
			"errors", len(result.Errors), "success", result.Success)
	}()

	if err := r.locks.AcquireLock(ctx, jobName); err != nil {
		if errors.Is(err, store.ErrLockHeld) {
			slog.Info("Job already running elsewhere, skipping", "job", jobName)
			result.Errors = append(result.Errors, fmt.Sprintf("job %q is already running", jobName))
			return result
		}
		result.Errors = append(result.Errors, fmt.Sprintf("acquire lock: %v", err))
		return result
	}
	defer func() {
		if err := r.locks.ReleaseLock(ctx, jobName); err != nil {
			slog.Error("Failed to release job lock", "job", jobName, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("release lock: %v", err))
		}
	}()

	organizations, err := orgs.ListOrganizations(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("list organizations: %v", err))
		return result
	}

	// Sequential on purpose: this bounds outbound API concurrency against
	// the source-control and chat hosts and keeps failure accounting per
	// organization.
	for _, org := range organizations {
		result.Processed++
		if err := r.runOne(ctx, org, perOrg); err != nil {
			slog.Warn("Organization processing failed", "job", jobName, "org", org.Name, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("org %s: %v", org.Name, err))
			continue
		}
		result.Succeeded++
	}
	return result
}

// runOne isolates a single organization's work so a panic in one tenant
// cannot abort its siblings.
func (*Runner) runOne(ctx context.Context, org types.Organization, perOrg PerOrgFunc) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return perOrg(ctx, org)
}
