package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyisaiah47/springforge-sub000/pkg/scoring"
	"github.com/kyisaiah47/springforge-sub000/pkg/types"
)

// fakeInsights is a minimal in-memory store.InsightStore for handler tests.
type fakeInsights struct {
	mu       sync.Mutex
	insights []types.PRInsight
}

func (f *fakeInsights) UpsertInsight(_ context.Context, in types.PRInsight) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insights = append(f.insights, in)
	return nil
}

func (f *fakeInsights) StaleInsights(context.Context, string, time.Duration) ([]types.PRInsight, error) {
	return nil, nil
}

func ingestBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"orgId": "org-1",
		"pullRequest": map[string]any{
			"repository":   "acme/api",
			"number":       7,
			"author":       "alice",
			"state":        "open",
			"additions":    1500,
			"deletions":    500,
			"changedFiles": 50,
			"commits":      12,
			"createdAt":    time.Now().Add(-48 * time.Hour),
			"updatedAt":    time.Now(),
		},
		"files": []map[string]any{
			{"path": "package.json", "status": "modified", "additions": 20, "deletions": 5, "changes": 25},
			{"path": "src/index.ts", "status": "modified", "additions": 800, "deletions": 200, "changes": 1000},
		},
	})
	require.NoError(t, err)
	return body
}

func TestIngestScoresAndPersists(t *testing.T) {
	db := &fakeInsights{}
	router := newRouter(db, scoring.DefaultConfig(), NewMetricsCollector())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/pull-request", bytes.NewReader(ingestBody(t)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var result scoring.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.GreaterOrEqual(t, result.SizeScore, 8.0)
	assert.NotEmpty(t, result.Recommendations)

	require.Len(t, db.insights, 1)
	saved := db.insights[0]
	assert.Equal(t, "org-1", saved.OrgID)
	assert.Equal(t, "acme/api", saved.Repository)
	assert.Equal(t, 7, saved.Number)
	assert.Equal(t, result.SizeScore, saved.SizeScore)
	assert.Equal(t, []string{"package.json", "src/index.ts"}, saved.Paths)
}

func TestIngestRejectsInvalidBody(t *testing.T) {
	router := newRouter(&fakeInsights{}, scoring.DefaultConfig(), NewMetricsCollector())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/pull-request", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestRequiresIdentifiers(t *testing.T) {
	router := newRouter(&fakeInsights{}, scoring.DefaultConfig(), NewMetricsCollector())

	body, err := json.Marshal(map[string]any{
		"pullRequest": map[string]any{"repository": "acme/api"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/pull-request", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthzReportsOK(t *testing.T) {
	metrics := NewMetricsCollector()
	metrics.RecordRun(2, 5)
	router := newRouter(&fakeInsights{}, scoring.DefaultConfig(), metrics)

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
