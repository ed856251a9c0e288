package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kyisaiah47/springforge-sub000/pkg/scoring"
	"github.com/kyisaiah47/springforge-sub000/pkg/store"
	"github.com/kyisaiah47/springforge-sub000/pkg/types"
)

// MetricsCollector tracks run metrics for the health endpoint.
type MetricsCollector struct {
	mu            sync.RWMutex
	lastRun       time.Time
	totalRuns     int64
	orgsProcessed int64
	alertsSent    int64
	insightsSaved int64
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// RecordRun records a completed scheduled run.
func (m *MetricsCollector) RecordRun(orgs, alerts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRun = time.Now()
	m.totalRuns++
	m.orgsProcessed += int64(orgs)
	m.alertsSent += int64(alerts)
}

// RecordInsight records a persisted scoring result.
func (m *MetricsCollector) RecordInsight() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insightsSaved++
}

// Snapshot returns current counters.
func (m *MetricsCollector) Snapshot() (lastRun time.Time, totalRuns, orgs, alerts, insights int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRun, m.totalRuns, m.orgsProcessed, m.alertsSent, m.insightsSaved
}

// ingestPayload is the pre-validated webhook body: a pull-request snapshot
// plus its changed files. Signature verification happens upstream.
type ingestPayload struct {
	OrgID       string              `json:"orgId"`
	PullRequest pullRequestPayload  `json:"pullRequest"`
	Files       []fileChangePayload `json:"files"`
}

type pullRequestPayload struct {
	Repository   string     `json:"repository"`
	Number       int        `json:"number"`
	Author       string     `json:"author"`
	State        string     `json:"state"`
	Draft        bool       `json:"draft"`
	Additions    int        `json:"additions"`
	Deletions    int        `json:"deletions"`
	ChangedFiles int        `json:"changedFiles"`
	Commits      int        `json:"commits"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	MergedAt     *time.Time `json:"mergedAt,omitempty"`
}

type fileChangePayload struct {
	Path      string `json:"path"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Changes   int    `json:"changes"`
}

// newRouter builds the HTTP surface: ingestion webhook plus health.
func newRouter(insights store.InsightStore, cfg scoring.Config, metrics *MetricsCollector) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/webhooks/pull-request", handleIngest(insights, cfg, metrics))
	r.Get("/healthz", handleHealth(metrics))
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("PR Insights Service\nHealth endpoint: /healthz\n")); err != nil {
			slog.Warn("Failed to write response", "error", err)
		}
	})
	return r
}

// handleIngest scores an incoming pull-request event and persists the
// resulting insight.
func handleIngest(insights store.InsightStore, cfg scoring.Config, metrics *MetricsCollector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload ingestPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if payload.OrgID == "" || payload.PullRequest.Repository == "" || payload.PullRequest.Number <= 0 {
			http.Error(w, "orgId, pullRequest.repository and pullRequest.number are required", http.StatusBadRequest)
			return
		}

		pr := types.PullRequestSummary{
			Repository:   payload.PullRequest.Repository,
			Number:       payload.PullRequest.Number,
			Author:       payload.PullRequest.Author,
			State:        payload.PullRequest.State,
			Draft:        payload.PullRequest.Draft,
			Additions:    payload.PullRequest.Additions,
			Deletions:    payload.PullRequest.Deletions,
			ChangedFiles: payload.PullRequest.ChangedFiles,
			Commits:      payload.PullRequest.Commits,
			CreatedAt:    payload.PullRequest.CreatedAt,
			UpdatedAt:    payload.PullRequest.UpdatedAt,
			MergedAt:     payload.PullRequest.MergedAt,
		}
		files := make([]types.FileChange, 0, len(payload.Files))
		paths := make([]string, 0, len(payload.Files))
		for _, f := range payload.Files {
			files = append(files, types.FileChange{
				Path:      f.Path,
				Status:    f.Status,
				Additions: f.Additions,
				Deletions: f.Deletions,
				Changes:   f.Changes,
			})
			paths = append(paths, f.Path)
		}

		result, err := scoring.Score(pr, files, cfg)
		if err != nil {
			slog.Error("Scoring failed", "repo", pr.Repository, "pr", pr.Number, "error", err)
			http.Error(w, "scoring failed", http.StatusInternalServerError)
			return
		}

		insight := types.PRInsight{
			OrgID:      payload.OrgID,
			Repository: pr.Repository,
			Number:     pr.Number,
			Author:     pr.Author,
			State:      pr.State,
			Draft:      pr.Draft,
			Additions:  pr.Additions,
			Deletions:  pr.Deletions,
			SizeScore:  result.SizeScore,
			RiskScore:  result.RiskScore,
			Paths:      paths,
			CreatedAt:  pr.CreatedAt,
			UpdatedAt:  pr.UpdatedAt,
		}
		if err := insights.UpsertInsight(r.Context(), insight); err != nil {
			slog.Error("Failed to persist insight", "repo", pr.Repository, "pr", pr.Number, "error", err)
			http.Error(w, "failed to persist insight", http.StatusInternalServerError)
			return
		}
		metrics.RecordInsight()

		slog.Info("Scored pull request",
			"repo", pr.Repository, "pr", pr.Number,
			"size_score", result.SizeScore, "risk_score", result.RiskScore)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(result); err != nil {
			slog.Warn("Failed to encode score result", "error", err)
		}
	}
}

func handleHealth(metrics *MetricsCollector) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		lastRun, totalRuns, orgs, alerts, insights := metrics.Snapshot()

		status := "ok"
		statusCode := http.StatusOK
		// Report unhealthy when scheduled runs have stopped happening.
		if totalRuns > 0 && time.Since(lastRun) > 30*time.Minute {
			status = "stale"
			statusCode = http.StatusServiceUnavailable
		}

		w.WriteHeader(statusCode)
		response := fmt.Sprintf("%s - %d runs, %d organizations, %d alerts sent, %d insights saved (last run: %s)\n",
			status, totalRuns, orgs, alerts, insights, lastRun.Format(time.RFC3339))
		if _, err := w.Write([]byte(response)); err != nil {
			slog.Warn("Failed to write health response", "error", err)
		}
	}
}
