package report

import (
	"time"

	"github.com/finzora/signal-engine/internal/domain"
	"github.com/finzora/signal-engine/internal/infra"
	"github.com/finzora/signal-engine/internal/signal"
)

// Report is the combined output of every signal engine for one user at one
// point in time. Building a report is pure: the same snapshot and clock
// always produce the same report.
type Report struct {
	UserID        string                `json:"userId"`
	EvaluatedAt   time.Time             `json:"evaluatedAt"`
	Subscriptions []domain.Subscription `json:"subscriptions"`
	Insights      []domain.Insight      `json:"insights"`
	Alerts        []domain.SmartAlert   `json:"alerts"`

	// SkippedRecords carries the parse boundary's exclusion count so a
	// report reader can tell when input quality was poor.
	SkippedRecords int `json:"skippedRecords,omitempty"`
}

// Build runs all engines against a parsed snapshot.
func Build(snap *infra.Snapshot, userID string, cfg signal.Thresholds, now time.Time) *Report {
	detected := signal.DetectRecurring(snap.Transactions, now)

	return &Report{
		UserID:         userID,
		EvaluatedAt:    now,
		Subscriptions:  signal.MergeSubscriptions(detected, snap.ManualSubscriptions, now),
		Insights:       signal.GenerateInsights(snap.Transactions, now),
		Alerts:         signal.GenerateAlertsWith(cfg, snap.Transactions, snap.Budgets, now),
		SkippedRecords: snap.SkippedRecords,
	}
}
