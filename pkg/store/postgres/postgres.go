// Package postgres implements the shared store on PostgreSQL via pgxpool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kyisaiah47/springforge-sub000/pkg/store"
	"github.com/kyisaiah47/springforge-sub000/pkg/types"
)

// Store is the PostgreSQL-backed shared store.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store on the given connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ store.Store = (*Store)(nil)

// Connect opens a pgx pool for the DSN and verifies connectivity.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// UpsertInsight writes the latest scoring record for a pull request.
func (s *Store) UpsertInsight(ctx context.Context, in types.PRInsight) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO insights (org_id, repository, number, author, state, draft,
			additions, deletions, size_score, risk_score, paths, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (org_id, repository, number) DO UPDATE SET
			author = EXCLUDED.author,
			state = EXCLUDED.state,
			draft = EXCLUDED.draft,
			additions = EXCLUDED.additions,
			deletions = EXCLUDED.deletions,
			size_score = EXCLUDED.size_score,
			risk_score = EXCLUDED.risk_score,
			paths = EXCLUDED.paths,
			updated_at = EXCLUDED.updated_at`,
		in.OrgID, in.Repository, in.Number, in.Author, in.State, in.Draft,
		in.Additions, in.Deletions, in.SizeScore, in.RiskScore, in.Paths,
		in.CreatedAt, in.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert insight %s#%d: %w", in.Repository, in.Number, err)
	}
	return nil
}

// StaleInsights returns open, non-draft insights inactive for at least
// inactiveFor, oldest activity first.
func (s *Store) StaleInsights(ctx context.Context, orgID string, inactiveFor time.Duration) ([]types.PRInsight, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT org_id, repository, number, author, state, draft,
			additions, deletions, size_score, risk_score, paths, created_at, updated_at
		FROM insights
		WHERE org_id = $1 AND state = 'open' AND NOT draft
			AND updated_at < now() - $2::interval
		ORDER BY updated_at ASC`,
		orgID, inactiveFor)
	if err != nil {
		return nil, fmt.Errorf("query stale insights: %w", err)
	}
	defer rows.Close()

	var insights []types.PRInsight
	for rows.Next() {
		var in types.PRInsight
		if err := rows.Scan(&in.OrgID, &in.Repository, &in.Number, &in.Author, &in.State, &in.Draft,
			&in.Additions, &in.Deletions, &in.SizeScore, &in.RiskScore, &in.Paths,
			&in.CreatedAt, &in.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}
		insights = append(insights, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale insights: %w", err)
	}
	return insights, nil
}

// ListOrganizations returns organizations with a chat integration.
func (s *Store) ListOrganizations(ctx context.Context) ([]types.Organization, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, slack_webhook_url FROM organizations
		WHERE slack_webhook_url <> '' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query organizations: %w", err)
	}
	defer rows.Close()

	var orgs []types.Organization
	for rows.Next() {
		var org types.Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.SlackWebhookURL); err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate organizations: %w", err)
	}
	return orgs, nil
}

// ListMembers returns an organization's member roster in insertion order.
func (s *Store) ListMembers(ctx context.Context, orgID string) ([]types.OrgMember, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, handle FROM org_members WHERE org_id = $1 ORDER BY joined_at, id`, orgID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []types.OrgMember
	for rows.Next() {
		var m types.OrgMember
		if err := rows.Scan(&m.ID, &m.Handle); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

// AcquireLock takes the named lease with a single conditional write, so two
// concurrent acquirers can never both succeed inside the TTL window.
func (s *Store) AcquireLock(ctx context.Context, jobName string) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO job_locks (job_name, is_locked, locked_at)
		VALUES ($1, true, now())
		ON CONFLICT (job_name) DO UPDATE SET is_locked = true, locked_at = now()
		WHERE job_locks.is_locked = false OR job_locks.locked_at < now() - $2::interval`,
		jobName, store.LockTTL)
	if err != nil {
		return fmt.Errorf("acquire lock %q: %w", jobName, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrLockHeld
	}
	return nil
}

// ReleaseLock frees the lease. Releasing an unheld or unknown lock is a
// no-op so release can run unconditionally in a defer.
func (s *Store) ReleaseLock(ctx context.Context, jobName string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE job_locks SET is_locked = false WHERE job_name = $1`, jobName)
	if err != nil {
		return fmt.Errorf("release lock %q: %w", jobName, err)
	}
	return nil
}

// IsLocked reports whether a live lease exists. An expired lease is released
// before answering, so a crashed worker cannot wedge the schedule.
func (s *Store) IsLocked(ctx context.Context, jobName string) (bool, error) {
	var locked bool
	var lockedAt time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT is_locked, locked_at FROM job_locks WHERE job_name = $1`, jobName).
		Scan(&locked, &lockedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check lock %q: %w", jobName, err)
	}
	if !locked {
		return false, nil
	}
	if time.Since(lockedAt) > store.LockTTL {
		if err := s.ReleaseLock(ctx, jobName); err != nil {
			return false, fmt.Errorf("self-heal expired lock %q: %w", jobName, err)
		}
		return false, nil
	}
	return true, nil
}
