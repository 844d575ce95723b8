// TruthLedger orchestrator server - runs the fact-verification pipeline
// and exposes its HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/truthledger/truthledger/pkg/api"
	"github.com/truthledger/truthledger/pkg/conflict"
	"github.com/truthledger/truthledger/pkg/config"
	"github.com/truthledger/truthledger/pkg/derive"
	"github.com/truthledger/truthledger/pkg/extract"
	"github.com/truthledger/truthledger/pkg/feed"
	"github.com/truthledger/truthledger/pkg/ingest"
	"github.com/truthledger/truthledger/pkg/orchestrator"
	"github.com/truthledger/truthledger/pkg/reaper"
	"github.com/truthledger/truthledger/pkg/resolve"
	"github.com/truthledger/truthledger/pkg/score"
	"github.com/truthledger/truthledger/pkg/services"
	"github.com/truthledger/truthledger/pkg/store"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	} else {
		slog.Info("loaded environment file", "path", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	gin.SetMode(getEnv("GIN_MODE", "debug"))

	logger := slog.Default()
	logger.Info("starting truthledger", "http_port", httpPort, "config_dir", *configDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		logger.Error("failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	db, err := store.New(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to postgres")

	now := time.Now

	ingestor := ingest.New(db, logger)
	fetcher := feed.New(db, ingestor, cfg.Feed.MaxItems, logger)
	extractor := extract.New(db, cfg.ExtractorRegistry, logger)
	detector := conflict.New(db, logger)
	deriver := derive.New(db, cfg.DerivationRuleRegistry, logger)
	scorer := score.New(db, cfg.Scorer, logger, now)

	runners := map[string]orchestrator.Runner{
		orchestrator.JobURLIngest: func(ctx context.Context, checkCancelled func() bool, onProgress orchestrator.ProgressFunc) (int, error) {
			return runURLIngest(ctx, db, ingestor, cfg.Job, checkCancelled, onProgress)
		},
		orchestrator.JobFeedIngest: func(ctx context.Context, checkCancelled func() bool, onProgress orchestrator.ProgressFunc) (int, error) {
			return runFeedIngest(ctx, fetcher, now, checkCancelled, onProgress)
		},
		orchestrator.JobExtract: func(ctx context.Context, checkCancelled func() bool, onProgress orchestrator.ProgressFunc) (int, error) {
			res, err := extractor.Run(ctx, extract.RunFilter{Limit: cfg.Job.ExtractLimit}, checkCancelled, extract.ProgressFunc(onProgress))
			if res == nil {
				return 0, err
			}
			return res.SnippetsProcessed, err
		},
		orchestrator.JobConflicts: func(ctx context.Context, checkCancelled func() bool, onProgress orchestrator.ProgressFunc) (int, error) {
			res, err := detector.Run(ctx, conflict.Filter{Limit: cfg.Job.ConflictLimit}, checkCancelled, conflict.ProgressFunc(onProgress))
			if res == nil {
				return 0, err
			}
			return res.GroupsAnalyzed, err
		},
		orchestrator.JobDerive: func(ctx context.Context, checkCancelled func() bool, onProgress orchestrator.ProgressFunc) (int, error) {
			res, err := deriver.Run(ctx, checkCancelled, derive.ProgressFunc(onProgress))
			if res == nil {
				return 0, err
			}
			return res.ClaimsDerived, err
		},
		orchestrator.JobScore: func(ctx context.Context, checkCancelled func() bool, onProgress orchestrator.ProgressFunc) (int, error) {
			res, err := scorer.Run(ctx, store.ScoreFilter{Limit: cfg.Job.ScoreLimit}, checkCancelled, score.ProgressFunc(onProgress))
			if res == nil {
				return 0, err
			}
			return res.ClaimsScored, err
		},
	}

	orch := orchestrator.New(db, runners, logger, now)

	reaperTimeout := time.Duration(cfg.Job.JobTimeoutHours * float64(time.Hour))
	rp := reaper.New(db, reaperTimeout, cfg.Job.ReaperInterval, now, logger)
	rp.Start(ctx)
	defer rp.Stop()

	catalogSvc := services.NewCatalogService(db, now)
	reviewSvc := services.NewReviewService(db, now)
	pipelineSvc := services.NewPipelineService(orch, rp)
	resolver := resolve.New(db, cfg.Resolver)

	server := api.NewServer(db, catalogSvc, reviewSvc, pipelineSvc, resolver, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run(":" + httpPort)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("http server stopped", "error", err)
			os.Exit(1)
		}
	}
}

// runURLIngest adapts ingest.Ingestor's per-source Ingest call to the
// orchestrator.Runner shape by sweeping every active source's fixed URLs
// (spec §4.1 "url_ingest").
func runURLIngest(ctx context.Context, st store.Store, ingestor *ingest.Ingestor, jobCfg *config.JobConfig, checkCancelled func() bool, onProgress orchestrator.ProgressFunc) (int, error) {
	sources, err := st.ListActiveSources(ctx)
	if err != nil {
		return 0, err
	}

	var total int
	for i, src := range sources {
		if checkCancelled != nil && checkCancelled() {
			return total, orchestrator.ErrCancelled
		}
		if onProgress != nil {
			onProgress(i, len(sources), "ingesting source "+src.Name)
		}

		urlRows, err := st.ListSourceURLs(ctx, src.ID)
		if err != nil {
			return total, err
		}
		if len(urlRows) == 0 {
			continue
		}
		urls := make([]string, len(urlRows))
		for j, u := range urlRows {
			urls[j] = u.URL
		}

		res, err := ingestor.Ingest(ctx, src.ID, urls, src.DefaultDocType, jobCfg.URLIngestTimeout, "")
		if res != nil {
			total += res.DocumentsCreated + res.DocumentsUpdated
		}
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// runFeedIngest adapts feed.Fetcher.RefreshDue to the orchestrator.Runner
// shape (spec §4.2 "feed_ingest").
func runFeedIngest(ctx context.Context, fetcher *feed.Fetcher, now func() time.Time, checkCancelled func() bool, onProgress orchestrator.ProgressFunc) (int, error) {
	if checkCancelled != nil && checkCancelled() {
		return 0, orchestrator.ErrCancelled
	}
	results, err := fetcher.RefreshDue(ctx, now())
	var total int
	for i, r := range results {
		if onProgress != nil {
			onProgress(i, len(results), "refreshed feed "+r.FeedID)
		}
		if r.IngestResult != nil {
			total += r.IngestResult.DocumentsCreated + r.IngestResult.DocumentsUpdated
		}
	}
	return total, err
}
