package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/finzora/signal-engine/internal/aicategorize"
	"github.com/finzora/signal-engine/internal/api/handlers"
	"github.com/finzora/signal-engine/internal/api/middleware"
	"github.com/finzora/signal-engine/internal/config"
	"github.com/finzora/signal-engine/internal/infra"
	infraBQ "github.com/finzora/signal-engine/internal/infra/bigquery"
	infraMongo "github.com/finzora/signal-engine/internal/infra/mongo"
	"github.com/finzora/signal-engine/internal/jobs/inmemory"
	"github.com/finzora/signal-engine/internal/logger"
	"github.com/finzora/signal-engine/internal/report"
	sigengine "github.com/finzora/signal-engine/internal/signal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)

	ctx := context.Background()

	repo, err := newSnapshotRepository(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create snapshot repository")
	}
	defer repo.Close()

	var archiver report.Archiver
	if cfg.ReportBucket != "" {
		archiver = report.NewGCSArchiver(cfg.ReportBucket)
	} else {
		log.Warn().Msg("No report bucket configured - report archiving is disabled")
	}

	thresholds := sigengine.DefaultThresholds()
	evaluator := report.NewEvaluator(repo, archiver, thresholds, logger.Component(log, "evaluator"))

	// Job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.JobQueueSize, cfg.JobWorkers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	go func() {
		log.Info().Int("workers", cfg.JobWorkers).Msg("Starting job workers")
		if err := jobQueue.Start(workerCtx, evaluator.HandleJob); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	// Handlers
	signalsHandler := handlers.NewSignalsHandler(repo, jobQueue, archiver, thresholds, logger.Component(log, "api"))
	categorizeHandler := handlers.NewCategorizeHandler(aicategorize.New(), logger.Component(log, "categorize"))
	jobsHandler := handlers.NewJobsHandler(jobStore, logger.Component(log, "jobs"))

	// Router
	mux := http.NewServeMux()

	post := func(fn http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
				return
			}
			fn(w, r)
		}
	}

	mux.HandleFunc("/api/signals/subscriptions", post(signalsHandler.Subscriptions))
	mux.HandleFunc("/api/signals/insights", post(signalsHandler.Insights))
	mux.HandleFunc("/api/signals/alerts", post(signalsHandler.Alerts))
	mux.HandleFunc("/api/signals/report", post(signalsHandler.Report))
	mux.HandleFunc("/api/signals/refresh", post(signalsHandler.Refresh))
	mux.HandleFunc("/api/categorize", post(categorizeHandler.Categorize))

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("backend", cfg.SnapshotBackend).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
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
