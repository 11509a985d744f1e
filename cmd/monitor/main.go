package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/finzora/signal-engine/internal/config"
	"github.com/finzora/signal-engine/internal/infra"
	infraBQ "github.com/finzora/signal-engine/internal/infra/bigquery"
	infraMongo "github.com/finzora/signal-engine/internal/infra/mongo"
	"github.com/finzora/signal-engine/internal/logger"
	"github.com/finzora/signal-engine/internal/notify"
	"github.com/finzora/signal-engine/internal/report"
	sigengine "github.com/finzora/signal-engine/internal/signal"
)

// The monitor periodically re-evaluates every configured user's alerts and
// pushes the critical and warning ones to the notifier. Dedup state resets
// once a day so a persisting condition is re-raised each morning instead of
// every tick.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)

	if len(cfg.MonitorUsers) == 0 {
		log.Fatal().Msg("MONITOR_USERS is empty - nothing to monitor")
	}

	ctx := context.Background()

	repo, err := newSnapshotRepository(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create snapshot repository")
	}
	defer repo.Close()

	var archiver report.Archiver
	if cfg.ReportBucket != "" {
		archiver = report.NewGCSArchiver(cfg.ReportBucket)
	}

	evaluator := report.NewEvaluator(repo, archiver, sigengine.DefaultThresholds(), logger.Component(log, "evaluator"))
	dispatcher := notify.NewDispatcher(notify.NewLogNotifier(logger.Component(log, "notify")))

	runPass := func() {
		passCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()

		now := time.Now()
		for _, userID := range cfg.MonitorUsers {
			rep, err := evaluator.Evaluate(passCtx, userID, now)
			if err != nil {
				log.Error().Err(err).Str("user_id", userID).Msg("Evaluation failed")
				continue
			}
			sent, err := dispatcher.Dispatch(passCtx, userID, rep.Alerts)
			if err != nil {
				log.Error().Err(err).Str("user_id", userID).Msg("Alert delivery failed")
				continue
			}
			if sent > 0 {
				log.Info().Str("user_id", userID).Int("sent", sent).Msg("Alerts delivered")
			}
		}
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.MonitorSchedule, runPass); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.MonitorSchedule).Msg("Invalid monitor schedule")
	}
	if _, err := c.AddFunc("@daily", dispatcher.Reset); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule dedup reset")
	}

	log.Info().
		Str("schedule", cfg.MonitorSchedule).
		Int("users", len(cfg.MonitorUsers)).
		Msg("Starting alert monitor")

	// One pass immediately so a fresh deploy does not wait a full interval.
	runPass()
	c.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down monitor...")
	stopCtx := c.Stop()
	<-stopCtx.Done()
	log.Info().Msg("Monitor exited")
}

// newSnapshotRepository creates the storage backend selected by config.
func newSnapshotRepository(ctx context.Context, cfg *config.Config) (infra.SnapshotRepository, error) {
	switch cfg.SnapshotBackend {
	case config.BackendBigQuery:
		return infraBQ.NewRepository(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
	case config.BackendMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return infraMongo.NewRepository(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.SnapshotBackend)
	}
}
