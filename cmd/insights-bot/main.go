// Package main implements the PR insights service: a webhook-fed scoring
// endpoint plus a scheduled stale-PR alerting job that runs under a
// distributed job lock across all process instances.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kyisaiah47/springforge-sub000/pkg/github"
	"github.com/kyisaiah47/springforge-sub000/pkg/jobs"
	"github.com/kyisaiah47/springforge-sub000/pkg/ownership"
	"github.com/kyisaiah47/springforge-sub000/pkg/reviewer"
	"github.com/kyisaiah47/springforge-sub000/pkg/scoring"
	"github.com/kyisaiah47/springforge-sub000/pkg/slack"
	"github.com/kyisaiah47/springforge-sub000/pkg/stale"
	"github.com/kyisaiah47/springforge-sub000/pkg/store"
	"github.com/kyisaiah47/springforge-sub000/pkg/store/postgres"
	"github.com/kyisaiah47/springforge-sub000/pkg/types"
)

var (
	loopDelay      = flag.Duration("loop-delay", 15*time.Minute, "Delay between scheduled stale-PR runs")
	staleThreshold = flag.Int("stale-threshold", stale.DefaultThresholdDays, "Days of inactivity before a PR counts as stale")
	sendDelay      = flag.Duration("send-delay", time.Second, "Delay between consecutive alert sends")
	dryRun         = flag.Bool("dry-run", false, "Log alerts instead of delivering them")

	appID      = flag.String("app-id", "", "GitHub App ID for authentication")
	appKeyPath = flag.String("app-key-path", "", "Path to GitHub App private key file")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "PR insights service: scores pull requests at ingestion and alerts on stale ones.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  DATABASE_URL      - PostgreSQL connection string (required)\n")
		fmt.Fprintf(os.Stderr, "  GITHUB_TOKEN      - Personal access token (when not using App auth)\n")
		fmt.Fprintf(os.Stderr, "  GITHUB_APP_ID     - GitHub App ID\n")
		fmt.Fprintf(os.Stderr, "  GITHUB_APP_KEY_PATH - Path to GitHub App private key file\n")
		fmt.Fprintf(os.Stderr, "  PORT              - HTTP server port (default: 8080)\n")
	}
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := postgres.Connect(ctx, dsn)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	db := postgres.New(pool)

	ghClient, err := newGitHubClient(ctx)
	if err != nil {
		slog.Error("Failed to create GitHub client", "error", err)
		os.Exit(1)
	}

	var notifier stale.Notifier = slack.New(15 * time.Second)
	if *dryRun {
		slog.Info("Running in dry-run mode: alerts are logged, not delivered")
		notifier = dryRunNotifier{}
	}

	analyzer := ownership.New(ghClient)
	detector := stale.New(db, notifier, stale.Config{
		ThresholdDays: *staleThreshold,
		SendDelay:     *sendDelay,
		Suggest:       suggester(db, analyzer),
	})
	runner := jobs.NewRunner(db)
	metrics := NewMetricsCollector()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      newRouter(db, scoring.DefaultConfig(), metrics),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			stop()
		}
	}()

	runScheduledLoop(ctx, runner, db, detector, metrics)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP server shutdown failed", "error", err)
	}
	slog.Info("Shutdown complete")
}

// newGitHubClient prefers App authentication when credentials are present and
// falls back to a personal access token.
func newGitHubClient(ctx context.Context) (*github.Client, error) {
	effectiveAppID := *appID
	if effectiveAppID == "" {
		effectiveAppID = os.Getenv("GITHUB_APP_ID")
	}
	effectiveKeyPath := *appKeyPath
	if effectiveKeyPath == "" {
		effectiveKeyPath = os.Getenv("GITHUB_APP_KEY_PATH")
	}

	if effectiveAppID != "" && effectiveKeyPath != "" {
		return github.New(ctx, github.Config{
			UseAppAuth:  true,
			AppID:       effectiveAppID,
			AppKeyPath:  effectiveKeyPath,
			HTTPTimeout: 30 * time.Second,
		})
	}
	return github.New(ctx, github.Config{
		Token:       os.Getenv("GITHUB_TOKEN"),
		HTTPTimeout: 30 * time.Second,
	})
}

// suggester wires the ownership analyzer and suggestion engine into alert
// composition: touched paths come from the stored insight, candidates from
// the organization roster.
func suggester(db store.Store, analyzer *ownership.Analyzer) stale.Suggester {
	return func(ctx context.Context, org types.Organization, in types.PRInsight) []reviewer.Suggestion {
		if len(in.Paths) == 0 {
			return nil
		}
		members, err := db.ListMembers(ctx, org.ID)
		if err != nil {
			slog.Warn("Failed to list members for suggestions", "org", org.Name, "error", err)
			return nil
		}
		records := analyzer.Analyze(ctx, in.Repository, in.Paths)
		return reviewer.Suggest(members, records, in.Author, reviewer.Options{})
	}
}

// runScheduledLoop runs the stale-PR job immediately and then on every tick
// until the context is cancelled.
func runScheduledLoop(ctx context.Context, runner *jobs.Runner, db store.Store, detector *stale.Detector, metrics *MetricsCollector) {
	slog.Info("Starting scheduled loop", "loop_delay", *loopDelay)
	ticker := time.NewTicker(*loopDelay)
	defer ticker.Stop()

	for {
		var alertsSent int
		result := runner.Run(ctx, jobs.StalePRAlertsJob, db, func(ctx context.Context, org types.Organization) error {
			orgResult, err := detector.Run(ctx, org)
			if err != nil {
				return err
			}
			// Organizations are processed sequentially, so this is safe.
			alertsSent += orgResult.AlertsSent
			if len(orgResult.Errors) > 0 {
				return fmt.Errorf("%d alert deliveries failed", len(orgResult.Errors))
			}
			return nil
		})
		metrics.RecordRun(result.Processed, alertsSent)
		if !result.Success {
			slog.Warn("Scheduled run completed with errors",
				"run_id", result.RunID, "errors", result.Errors)
		}

		select {
		case <-ctx.Done():
			slog.Info("Shutting down scheduled loop")
			return
		case <-ticker.C:
		}
	}
}

// dryRunNotifier satisfies stale.Notifier by logging instead of delivering.
type dryRunNotifier struct{}

func (dryRunNotifier) SendAlert(_ context.Context, _ string, msg slack.Message) error {
	slog.Info("[DRY-RUN] Would send alert", "text", msg.Text)
	return nil
}

func (dryRunNotifier) SendBatch(_ context.Context, _ string, msgs []slack.Message, _ slack.BatchOptions) slack.BatchResult {
	for _, msg := range msgs {
		slog.Info("[DRY-RUN] Would send batch alert", "text", msg.Text)
	}
	return slack.BatchResult{Sent: len(msgs)}
}
