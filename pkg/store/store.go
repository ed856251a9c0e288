// Package store defines the shared-store contract: persisted pull-request
// insights, organization rosters, and the named job locks that serialize
// scheduled batch runs across process instances.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/kyisaiah47/springforge-sub000/pkg/types"
)

// ErrLockHeld is returned by AcquireLock while another holder's lease is
// still live. Callers short-circuit the whole run on it.
var ErrLockHeld = errors.New("store: job lock already held")

// LockTTL is the unified lease duration for every scheduled job. A lock older
// than this is treated as abandoned by a crashed worker and self-heals on the
// next acquire or check.
const LockTTL = time.Hour

// InsightStore persists scoring results keyed by (org, repository, number).
type InsightStore interface {
	UpsertInsight(ctx context.Context, insight types.PRInsight) error
	// StaleInsights returns open, non-draft insights with no activity for
	// at least inactiveFor.
	StaleInsights(ctx context.Context, orgID string, inactiveFor time.Duration) ([]types.PRInsight, error)
}

// OrgStore reads the tenant and roster side of the shared store.
type OrgStore interface {
	// ListOrganizations returns organizations that have a chat
	// integration configured.
	ListOrganizations(ctx context.Context) ([]types.Organization, error)
	ListMembers(ctx context.Context, orgID string) ([]types.OrgMember, error)
}

// LockStore manages the named TTL leases behind scheduled jobs.
type LockStore interface {
	// AcquireLock takes the lease atomically, returning ErrLockHeld if a
	// live holder exists. An expired lease is taken over in place.
	AcquireLock(ctx context.Context, jobName string) error
	// ReleaseLock marks the lease free. The row is updated, not deleted.
	ReleaseLock(ctx context.Context, jobName string) error
	// IsLocked reports whether a live lease exists, releasing expired
	// leases before answering.
	IsLocked(ctx context.Context, jobName string) (bool, error)
}

// Store is the full shared-store surface.
type Store interface {
	InsightStore
	OrgStore
	LockStore
}
