package report

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/finzora/signal-engine/internal/infra"
	"github.com/finzora/signal-engine/internal/jobs"
	"github.com/finzora/signal-engine/internal/signal"
)

// Evaluator runs full signal evaluations: load a snapshot, build the
// report, optionally archive it. It backs both the async job queue and the
// cron monitor.
type Evaluator struct {
	repo       infra.SnapshotRepository
	archiver   Archiver
	thresholds signal.Thresholds
	log        zerolog.Logger
}

// NewEvaluator creates an Evaluator. The archiver may be nil when report
// archiving is disabled.
func NewEvaluator(repo infra.SnapshotRepository, archiver Archiver, thresholds signal.Thresholds, log zerolog.Logger) *Evaluator {
	return &Evaluator{
		repo:       repo,
		archiver:   archiver,
		thresholds: thresholds,
		log:        log,
	}
}

// Evaluate loads the user's snapshot and builds a report against the given
// clock.
func (e *Evaluator) Evaluate(ctx context.Context, userID string, now time.Time) (*Report, error) {
	snap, err := infra.LoadSnapshot(ctx, e.repo, userID)
	if err != nil {
		return nil, fmt.Errorf("Evaluate: %w", err)
	}

	rep := Build(snap, userID, e.thresholds, now)

	e.log.Info().
		Str("user_id", userID).
		Time("evaluated_at", now).
		Int("subscriptions", len(rep.Subscriptions)).
		Int("insights", len(rep.Insights)).
		Int("alerts", len(rep.Alerts)).
		Int("skipped_records", rep.SkippedRecords).
		Msg("Signal evaluation complete")

	return rep, nil
}

// HandleJob processes one EvaluateSignalsJob from the queue.
func (e *Evaluator) HandleJob(ctx context.Context, job jobs.Job) error {
	evalJob, ok := job.(*jobs.EvaluateSignalsJob)
	if !ok {
		return fmt.Errorf("HandleJob: unexpected job type %s", job.GetType())
	}

	now := evalJob.AsOf
	if now.IsZero() {
		now = time.Now()
	}

	rep, err := e.Evaluate(ctx, evalJob.UserID, now)
	if err != nil {
		return fmt.Errorf("HandleJob: %w", err)
	}

	if evalJob.ArchiveReport {
		if e.archiver == nil {
			return fmt.Errorf("HandleJob: archiving requested but no archiver configured")
		}
		uri, err := e.archiver.Archive(ctx, rep)
		if err != nil {
			return fmt.Errorf("HandleJob: %w", err)
		}
		evalJob.ReportURI = uri
	}

	return nil
}
