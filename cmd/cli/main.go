package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/finzora/signal-engine/internal/aicategorize"
	"github.com/finzora/signal-engine/internal/config"
	"github.com/finzora/signal-engine/internal/infra"
	infraBQ "github.com/finzora/signal-engine/internal/infra/bigquery"
	infraMongo "github.com/finzora/signal-engine/internal/infra/mongo"
	"github.com/finzora/signal-engine/internal/logger"
	"github.com/finzora/signal-engine/internal/report"
	sigengine "github.com/finzora/signal-engine/internal/signal"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)

	switch os.Args[1] {
	case "detect":
		runDetect(log)
	case "insights":
		runInsights(log)
	case "alerts":
		runAlerts(log)
	case "report":
		runReport(log)
	case "evaluate":
		runEvaluate(cfg, log)
	case "fetch":
		runFetch(cfg, log)
	case "categorize":
		runCategorize(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Finzora Signal Engine CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  detect      Detect recurring subscriptions in a snapshot file")
	fmt.Println("  insights    Generate spending insights from a snapshot file")
	fmt.Println("  alerts      Generate smart alerts from a snapshot file")
	fmt.Println("  report      Build the full signal report from a snapshot file")
	fmt.Println("  evaluate    Evaluate all signals for a user and print the report")
	fmt.Println("  fetch       Fetch an archived report from GCS")
	fmt.Println("  categorize  Suggest a category for a transaction title")
	fmt.Println("  help        Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
	fmt.Println("\nThe file-based commands read a JSON snapshot:")
	fmt.Println(`  {"transactions": [...], "budgets": [...], "manualSubscriptions": [...]}`)
}

// snapshotFlags registers the flags shared by the file-based commands.
func snapshotFlags(fs *flag.FlagSet) (file, now *string) {
	file = fs.String("file", "", "Path to a JSON snapshot file")
	now = fs.String("now", "", "Fixed evaluation date (YYYY-MM-DD), defaults to today")
	return file, now
}

// loadLocal reads the snapshot file and resolves the evaluation clock.
func loadLocal(log zerolog.Logger, file, nowStr string) (*infra.Snapshot, time.Time) {
	if file == "" {
		log.Fatal().Msg("Error: --file is required")
	}

	now := time.Now()
	if nowStr != "" {
		parsed, err := time.Parse("2006-01-02", nowStr)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid --now value")
		}
		now = parsed
	}

	snap, err := infra.LoadSnapshotFile(file)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load snapshot file")
	}
	return snap, now
}

func runDetect(log zerolog.Logger) {
	fs := flag.NewFlagSet("detect", flag.ExitOnError)
	file, nowStr := snapshotFlags(fs)
	fs.Parse(os.Args[2:])

	snap, now := loadLocal(log, *file, *nowStr)
	detected := sigengine.DetectRecurring(snap.Transactions, now)
	printJSON(sigengine.MergeSubscriptions(detected, snap.ManualSubscriptions, now))
}

func runInsights(log zerolog.Logger) {
	fs := flag.NewFlagSet("insights", flag.ExitOnError)
	file, nowStr := snapshotFlags(fs)
	fs.Parse(os.Args[2:])

	snap, now := loadLocal(log, *file, *nowStr)
	printJSON(sigengine.GenerateInsights(snap.Transactions, now))
}

func runAlerts(log zerolog.Logger) {
	fs := flag.NewFlagSet("alerts", flag.ExitOnError)
	file, nowStr := snapshotFlags(fs)
	fs.Parse(os.Args[2:])

	snap, now := loadLocal(log, *file, *nowStr)
	printJSON(sigengine.GenerateAlerts(snap.Transactions, snap.Budgets, now))
}

func runReport(log zerolog.Logger) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	file, nowStr := snapshotFlags(fs)
	userID := fs.String("user", "", "User ID to stamp on the report")
	fs.Parse(os.Args[2:])

	snap, now := loadLocal(log, *file, *nowStr)
	printJSON(report.Build(snap, *userID, sigengine.DefaultThresholds(), now))
}

func runEvaluate(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("evaluate", flag.ExitOnError)
	userID := fs.String("user", "", "User ID to evaluate")
	nowStr := fs.String("now", "", "Fixed evaluation date (YYYY-MM-DD), defaults to today")
	archive := fs.Bool("archive", false, "Archive the report to GCS")
	fs.Parse(os.Args[2:])

	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}

	now := time.Now()
	if *nowStr != "" {
		parsed, err := time.Parse("2006-01-02", *nowStr)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid --now value")
		}
		now = parsed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	repo, err := newSnapshotRepository(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create snapshot repository")
	}
	defer repo.Close()

	var archiver report.Archiver
	if cfg.ReportBucket != "" {
		archiver = report.NewGCSArchiver(cfg.ReportBucket)
	}
	if *archive && archiver == nil {
		log.Fatal().Msg("Error: --archive requires REPORT_BUCKET to be set")
	}

	evaluator := report.NewEvaluator(repo, archiver, sigengine.DefaultThresholds(), log)

	rep, err := evaluator.Evaluate(ctx, *userID, now)
	if err != nil {
		log.Fatal().Err(err).Msg("Evaluation failed")
	}

	if *archive {
		uri, err := archiver.Archive(ctx, rep)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to archive report")
		}
		fmt.Println("Archived to:", uri)
	}

	printJSON(rep)
}

func runFetch(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	uri := fs.String("uri", "", "GCS URI of the archived report")
	fs.Parse(os.Args[2:])

	if *uri == "" {
		log.Fatal().Msg("Error: --uri is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	archiver := report.NewGCSArchiver(cfg.ReportBucket)
	rep, err := archiver.Fetch(ctx, *uri)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch report")
	}

	printJSON(rep)
}

func runCategorize(log zerolog.Logger) {
	fs := flag.NewFlagSet("categorize", flag.ExitOnError)
	title := fs.String("title", "", "Transaction title to categorize")
	desc := fs.String("desc", "", "Optional transaction description")
	useAI := fs.Bool("ai", false, "Ask the model instead of the keyword table")
	fs.Parse(os.Args[2:])

	if *title == "" {
		log.Fatal().Msg("Error: --title is required")
	}

	if !*useAI {
		fmt.Println(sigengine.Categorize(*title))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	category, err := aicategorize.New().Suggest(ctx, *title, *desc)
	if err != nil {
		log.Warn().Err(err).Msg("Model suggestion failed, using keyword match")
	}
	fmt.Println(category)
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, "encode:", err)
		os.Exit(1)
	}
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
