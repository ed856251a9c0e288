// Package stale detects pull requests that have gone inactive and delivers
// alerts through the chat collaborator: one individual alert per critical
// item, one batched summary for the rest.
package stale

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kyisaiah47/springforge-sub000/pkg/reviewer"
	"github.com/kyisaiah47/springforge-sub000/pkg/slack"
	"github.com/kyisaiah47/springforge-sub000/pkg/store"
	"github.com/kyisaiah47/springforge-sub000/pkg/types"
)

const (
	// DefaultThresholdDays is the inactivity threshold past which an open
	// PR counts as stale.
	DefaultThresholdDays = 2

	// criticalDays is the age at which a stale PR escalates from warning
	// to critical.
	criticalDays = 7

	// maxListedWarnings bounds how many warning items the batched summary
	// spells out; the remainder is summarized as a count.
	maxListedWarnings = 10

	defaultSendDelay = 1 * time.Second
)

// AlertLevel classifies how overdue a stale PR is.
type AlertLevel string

// Alert levels.
const (
	LevelWarning  AlertLevel = "warning"
	LevelCritical AlertLevel = "critical"
)

// Alert wraps a persisted insight with its staleness classification.
type Alert struct {
	LastActivity time.Time
	Level        AlertLevel
	Insight      types.PRInsight
	DaysStale    int
}

// Classify decides whether an insight is stale and how urgently. Terminal
// states and drafts are never stale. DaysStale is floor division of the
// inactive time by 24 hours, so six days and 23 hours is still a warning and
// exactly seven days is critical.
func Classify(in types.PRInsight, now time.Time, thresholdDays int) (Alert, bool) {
	if in.State != "open" || in.Draft {
		return Alert{}, false
	}
	inactive := now.Sub(in.UpdatedAt)
	if inactive < 0 {
		return Alert{}, false
	}
	daysStale := int(inactive.Hours() / 24)
	if daysStale < thresholdDays {
		return Alert{}, false
	}

	alert := Alert{
		Insight:      in,
		DaysStale:    daysStale,
		LastActivity: in.UpdatedAt,
		Level:        LevelWarning,
	}
	if daysStale >= criticalDays {
		alert.Level = LevelCritical
	}
	return alert, true
}

// Notifier is the slice of the chat collaborator the detector needs.
type Notifier interface {
	SendAlert(ctx context.Context, webhookURL string, msg slack.Message) error
	SendBatch(ctx context.Context, webhookURL string, msgs []slack.Message, opts slack.BatchOptions) slack.BatchResult
}

// Suggester produces reviewer suggestions for an insight, used to enrich
// critical alerts. May be nil.
type Suggester func(ctx context.Context, org types.Organization, in types.PRInsight) []reviewer.Suggestion

// Config tunes a Detector.
type Config struct {
	ThresholdDays int
	SendDelay     time.Duration
	Suggest       Suggester
}

// Detector runs stale-PR detection and alerting for one organization at a
// time.
type Detector struct {
	insights      store.InsightStore
	notifier      Notifier
	suggest       Suggester
	now           func() time.Time
	sendDelay     time.Duration
	thresholdDays int
}

// New creates a Detector. Zero config fields fall back to defaults.
func New(insights store.InsightStore, notifier Notifier, cfg Config) *Detector {
	d := &Detector{
		insights:      insights,
		notifier:      notifier,
		suggest:       cfg.Suggest,
		now:           time.Now,
		sendDelay:     cfg.SendDelay,
		thresholdDays: cfg.ThresholdDays,
	}
	if d.thresholdDays <= 0 {
		d.thresholdDays = DefaultThresholdDays
	}
	if d.sendDelay <= 0 {
		d.sendDelay = defaultSendDelay
	}
	return d
}

// OrgResult reports what alerting accomplished for one organization.
type OrgResult struct {
	Org        string
	Critical   int
	Warnings   int
	AlertsSent int
	Errors     []error
}

// Run fetches the organization's stale insights and delivers alerts. Having
// nothing stale is a no-op, not an error. Delivery failures are collected in
// the result; only the initial store query can fail the call outright.
func (d *Detector) Run(ctx context.Context, org types.Organization) (OrgResult, error) {
	result := OrgResult{Org: org.Name}

	insights, err := d.insights.StaleInsights(ctx, org.ID, time.Duration(d.thresholdDays)*24*time.Hour)
	if err != nil {
		return result, fmt.Errorf("fetch stale insights for %s: %w", org.Name, err)
	}

	now := d.now()
	var critical, warnings []Alert
	for _, in := range insights {
		alert, ok := Classify(in, now, d.thresholdDays)
		if !ok {
			continue
		}
		if alert.Level == LevelCritical {
			critical = append(critical, alert)
		} else {
			warnings = append(warnings, alert)
		}
	}
	result.Critical = len(critical)
	result.Warnings = len(warnings)
	if len(critical) == 0 && len(warnings) == 0 {
		return result, nil
	}

	slog.Info("Delivering stale PR alerts", "org", org.Name,
		"critical", len(critical), "warnings", len(warnings))

	if len(critical) > 0 {
		msgs := make([]slack.Message, 0, len(critical))
		for _, alert := range critical {
			msgs = append(msgs, d.criticalMessage(ctx, org, alert))
		}
		batch := d.notifier.SendBatch(ctx, org.SlackWebhookURL, msgs, slack.BatchOptions{
			Delay: d.sendDelay,
		})
		result.AlertsSent += batch.Sent
		result.Errors = append(result.Errors, batch.Errors...)
	}

	if len(warnings) > 0 {
		if err := d.notifier.SendAlert(ctx, org.SlackWebhookURL, warningSummary(warnings)); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("warning summary: %w", err))
		} else {
			result.AlertsSent++
		}
	}
	return result, nil
}

// criticalMessage renders one critical alert, enriched with reviewer
// suggestions when a suggester is configured.
func (d *Detector) criticalMessage(ctx context.Context, org types.Organization, alert Alert) slack.Message {
	in := alert.Insight
	var b strings.Builder
	fmt.Fprintf(&b, ":rotating_light: *%s#%d* by @%s has been inactive for %d days",
		in.Repository, in.Number, in.Author, alert.DaysStale)
	fmt.Fprintf(&b, " (risk %.1f, last activity %s).",
		in.RiskScore, alert.LastActivity.Format("2006-01-02"))

	if d.suggest != nil {
		if suggestions := d.suggest(ctx, org, in); len(suggestions) > 0 {
			handles := make([]string, 0, len(suggestions))
			for _, s := range suggestions {
				handles = append(handles, "@"+s.Handle)
			}
			fmt.Fprintf(&b, " Suggested reviewers: %s", strings.Join(handles, ", "))
		}
	}
	return slack.Message{Text: b.String()}
}

// warningSummary renders the single batched message for warning-level items.
func warningSummary(warnings []Alert) slack.Message {
	var b strings.Builder
	fmt.Fprintf(&b, ":hourglass_flowing_sand: %d stale pull request(s) need attention:\n", len(warnings))

	listed := warnings
	if len(listed) > maxListedWarnings {
		listed = listed[:maxListedWarnings]
	}
	for _, alert := range listed {
		in := alert.Insight
		fmt.Fprintf(&b, "• *%s#%d* by @%s — %d days inactive\n",
			in.Repository, in.Number, in.Author, alert.DaysStale)
	}
	if rest := len(warnings) - len(listed); rest > 0 {
		fmt.Fprintf(&b, "…and %d more", rest)
	}
	return slack.Message{Text: strings.TrimRight(b.String(), "\n")}
}
