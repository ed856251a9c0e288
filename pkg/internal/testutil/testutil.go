// Package testutil provides programmable in-memory fakes for the insights
// system's collaborators: the source-control host, the chat host, and the
// shared store.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/kyisaiah47/springforge-sub000/pkg/slack"
	"github.com/kyisaiah47/springforge-sub000/pkg/store"
	"github.com/kyisaiah47/springforge-sub000/pkg/types"
)

// MockSourceControl implements ownership.SourceControl with configurable
// per-path commit histories and errors.
type MockSourceControl struct {
	mu      sync.RWMutex
	commits map[string][]types.Commit
	errors  map[string]error
	calls   []string
}

// NewMockSourceControl creates an empty mock.
func NewMockSourceControl() *MockSourceControl {
	return &MockSourceControl{
		commits: make(map[string][]types.Commit),
		errors:  make(map[string]error),
	}
}

func (m *MockSourceControl) key(repo, path string) string { return repo + ":" + path }

// SetCommits configures the history returned for a path.
func (m *MockSourceControl) SetCommits(repo, path string, commits []types.Commit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits[m.key(repo, path)] = commits
}

// SetError configures a fetch failure for a path.
func (m *MockSourceControl) SetError(repo, path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[m.key(repo, path)] = err
}

// ListCommits returns the configured history, truncated to limit.
func (m *MockSourceControl) ListCommits(_ context.Context, repo, path string, limit int) ([]types.Commit, error) {
	m.mu.Lock()
	m.calls = append(m.calls, m.key(repo, path))
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.errors[m.key(repo, path)]; err != nil {
		return nil, err
	}
	commits := m.commits[m.key(repo, path)]
	if limit > 0 && len(commits) > limit {
		commits = commits[:limit]
	}
	return commits, nil
}

// Calls returns the paths fetched so far.
func (m *MockSourceControl) Calls() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.calls...)
}

// MockNotifier records sent messages and can be programmed to fail.
type MockNotifier struct {
	mu       sync.Mutex
	alerts   []slack.Message
	batches  [][]slack.Message
	alertErr error
	batchErr error
}

// NewMockNotifier creates an empty mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// FailAlerts makes every SendAlert call return err.
func (m *MockNotifier) FailAlerts(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alertErr = err
}

// FailBatches makes every message in SendBatch fail with err.
func (m *MockNotifier) FailBatches(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchErr = err
}

// SendAlert records the message or returns the configured error.
func (m *MockNotifier) SendAlert(_ context.Context, _ string, msg slack.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.alertErr != nil {
		return m.alertErr
	}
	m.alerts = append(m.alerts, msg)
	return nil
}

// SendBatch records the batch, honoring the alert cap but skipping real
// delays so tests stay fast.
func (m *MockNotifier) SendBatch(_ context.Context, _ string, msgs []slack.Message, opts slack.BatchOptions) slack.BatchResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	maxAlerts := opts.MaxAlerts
	if maxAlerts <= 0 {
		maxAlerts = slack.DefaultMaxAlerts
	}
	if len(msgs) > maxAlerts {
		msgs = msgs[:maxAlerts]
	}

	var result slack.BatchResult
	for range msgs {
		if m.batchErr != nil {
			result.Failed++
			result.Errors = append(result.Errors, m.batchErr)
			continue
		}
		result.Sent++
	}
	if m.batchErr == nil {
		m.batches = append(m.batches, msgs)
	}
	return result
}

// Alerts returns individually sent messages.
func (m *MockNotifier) Alerts() []slack.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]slack.Message(nil), m.alerts...)
}

// Batches returns recorded batch sends.
func (m *MockNotifier) Batches() [][]slack.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]slack.Message(nil), m.batches...)
}

// MemoryStore is an in-memory store.Store with real lock semantics: the
// acquire path is atomic under a mutex, so concurrent-acquire tests exercise
// genuine mutual exclusion.
type MemoryStore struct {
	mu        sync.Mutex
	insights  map[string]types.PRInsight
	orgs      []types.Organization
	members   map[string][]types.OrgMember
	locks     map[string]types.JobLock
	lockTTL   time.Duration
	staleErr  error
	orgsErr   error
	now       func() time.Time
}

// NewMemoryStore creates an empty MemoryStore with the production lock TTL.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		insights: make(map[string]types.PRInsight),
		members:  make(map[string][]types.OrgMember),
		locks:    make(map[string]types.JobLock),
		lockTTL:  store.LockTTL,
		now:      time.Now,
	}
}

// SetNow overrides the clock, for expiry tests.
func (m *MemoryStore) SetNow(now func() time.Time) { m.now = now }

// SetLockTTL overrides the lease TTL, for expiry tests.
func (m *MemoryStore) SetLockTTL(ttl time.Duration) { m.lockTTL = ttl }

// SetOrganizations configures the tenant list.
func (m *MemoryStore) SetOrganizations(orgs []types.Organization) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orgs = orgs
}

// SetMembers configures an organization's roster.
func (m *MemoryStore) SetMembers(orgID string, members []types.OrgMember) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[orgID] = members
}

// FailStaleInsights makes StaleInsights return err.
func (m *MemoryStore) FailStaleInsights(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staleErr = err
}

// FailListOrganizations makes ListOrganizations return err.
func (m *MemoryStore) FailListOrganizations(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orgsErr = err
}

func insightKey(in types.PRInsight) string {
	return in.OrgID + "/" + in.Repository + "#" + itoa(in.Number)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// UpsertInsight stores the insight.
func (m *MemoryStore) UpsertInsight(_ context.Context, in types.PRInsight) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insights[insightKey(in)] = in
	return nil
}

// Insight returns a stored insight, if present.
func (m *MemoryStore) Insight(orgID, repo string, number int) (types.PRInsight, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.insights[orgID+"/"+repo+"#"+itoa(number)]
	return in, ok
}

// StaleInsights filters stored insights the way the SQL query does.
func (m *MemoryStore) StaleInsights(_ context.Context, orgID string, inactiveFor time.Duration) ([]types.PRInsight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.staleErr != nil {
		return nil, m.staleErr
	}
	cutoff := m.now().Add(-inactiveFor)
	var out []types.PRInsight
	for _, in := range m.insights {
		if in.OrgID == orgID && in.State == "open" && !in.Draft && in.UpdatedAt.Before(cutoff) {
			out = append(out, in)
		}
	}
	return out, nil
}

// ListOrganizations returns the configured tenants.
func (m *MemoryStore) ListOrganizations(_ context.Context) ([]types.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.orgsErr != nil {
		return nil, m.orgsErr
	}
	return append([]types.Organization(nil), m.orgs...), nil
}

// ListMembers returns the configured roster.
func (m *MemoryStore) ListMembers(_ context.Context, orgID string) ([]types.OrgMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.OrgMember(nil), m.members[orgID]...), nil
}

// AcquireLock implements the conditional-write lease semantics.
func (m *MemoryStore) AcquireLock(_ context.Context, jobName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, exists := m.locks[jobName]
	if exists && lock.IsLocked && m.now().Sub(lock.LockedAt) <= m.lockTTL {
		return store.ErrLockHeld
	}
	m.locks[jobName] = types.JobLock{JobName: jobName, IsLocked: true, LockedAt: m.now()}
	return nil
}

// ReleaseLock frees the lease, keeping the row.
func (m *MemoryStore) ReleaseLock(_ context.Context, jobName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lock, exists := m.locks[jobName]; exists {
		lock.IsLocked = false
		m.locks[jobName] = lock
	}
	return nil
}

// IsLocked reports live leases, self-healing expired ones.
func (m *MemoryStore) IsLocked(_ context.Context, jobName string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, exists := m.locks[jobName]
	if !exists || !lock.IsLocked {
		return false, nil
	}
	if m.now().Sub(lock.LockedAt) > m.lockTTL {
		lock.IsLocked = false
		m.locks[jobName] = lock
		return false, nil
	}
	return true, nil
}

// Lock exposes the raw lock row for assertions.
func (m *MemoryStore) Lock(jobName string) (types.JobLock, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[jobName]
	return lock, ok
}

var _ store.Store = (*MemoryStore)(nil)
