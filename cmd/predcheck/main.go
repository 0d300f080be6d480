// cmd/predcheck/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"predcheck/internal/analysis"
	"predcheck/internal/common/config"
	"predcheck/internal/common/database"
	"predcheck/internal/common/logger"
	"predcheck/internal/matcher"
	"predcheck/internal/models"
	"predcheck/internal/openalex"
	"predcheck/internal/retraction"
	"predcheck/internal/scoring"
	"predcheck/internal/watchlist"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	doi := flag.String("doi", "", "DOI of the paper to analyze")
	title := flag.String("title", "", "paper title to search for when no DOI is known")
	analysisID := flag.String("id", "", "re-read a stored analysis instead of running a new one")
	timeout := flag.Duration("timeout", 15*time.Minute, "overall analysis deadline")
	jsonOut := flag.Bool("json", false, "print the full analysis as JSON")
	flag.Parse()

	if *doi == "" && *title == "" && *analysisID == "" {
		fmt.Fprintln(os.Stderr, "usage: predcheck -doi <doi> | -title <title> | -id <analysis-id>")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting predcheck",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 5, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()

	// --- Init Redis with retry (cache only, optional) ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 3, time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Warn("redis unavailable, watchlist cache disabled", zap.Error(err))
		rdb = nil
	} else {
		defer rdb.Close()
	}

	if cfg.Metrics.Enabled {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.Metrics.Address, nil); err != nil {
				zapLog.Warn("metrics listener stopped", zap.Error(err))
			}
		}()
		zapLog.Info("metrics listening", zap.String("address", cfg.Metrics.Address))
	}

	// --- Wire the pipeline ---
	provider := openalex.NewClient(log,
		openalex.WithBaseURL(cfg.APIs.OpenAlex.BaseURL),
		openalex.WithMailto(cfg.APIs.OpenAlex.Mailto),
		openalex.WithRateLimit(cfg.APIs.OpenAlex.RPS),
		openalex.WithHTTPClient(&http.Client{Timeout: config.GetDuration(cfg.APIs.OpenAlex.Timeout)}),
	)
	resolver := retraction.NewResolver(
		retraction.NewCrossrefClient(log,
			retraction.WithCrossrefBaseURL(cfg.APIs.Crossref.BaseURL),
			retraction.WithCrossrefMailto(cfg.APIs.Crossref.Mailto),
			retraction.WithCrossrefTimeout(config.GetDuration(cfg.APIs.Crossref.Timeout)),
		),
		retraction.NewPubMedClient(log,
			retraction.WithPubMedBaseURL(cfg.APIs.PubMed.BaseURL),
			retraction.WithPubMedTimeout(config.GetDuration(cfg.APIs.PubMed.Timeout)),
		),
		log,
	)
	nameMatcher := matcher.NewClient(matcher.Config{
		BaseURL:     cfg.APIs.Matcher.BaseURL,
		APIKey:      cfg.APIs.Matcher.APIKey,
		Model:       cfg.APIs.Matcher.Model,
		Temperature: float32(cfg.APIs.Matcher.Temperature),
		MaxTokens:   cfg.APIs.Matcher.MaxTokens,
		Timeout:     config.GetDuration(cfg.APIs.Matcher.Timeout),
	}, log)

	var cache *redis.Client
	if rdb != nil {
		cache = rdb.Client
	}
	store := watchlist.NewPostgresStore(pg.DB, cache,
		time.Duration(cfg.Analysis.CacheTTL)*time.Second, log)

	scorer := scoring.NewScorer(store, nameMatcher,
		cfg.Analysis.PrefilterTopN, cfg.APIs.Matcher.Threshold, log)
	sink := analysis.NewPostgresSink(pg.DB, cfg.Analysis.HighRiskThreshold, log)
	orchestrator := analysis.NewOrchestrator(provider, resolver, scorer, log,
		analysis.WithBatchSize(cfg.Analysis.BatchSize),
		analysis.WithBatchDelay(config.GetDuration(cfg.Analysis.BatchDelay)),
		analysis.WithHighRiskThreshold(cfg.Analysis.HighRiskThreshold),
		analysis.WithSink(sink),
	)

	switch {
	case *analysisID != "":
		result, err := sink.GetAnalysis(ctx, *analysisID)
		if err != nil {
			zapLog.Fatal("analysis read failed", zap.Error(err))
		}
		report(result, *jsonOut, zapLog)

	default:
		targetDOI := *doi
		if targetDOI == "" {
			targetDOI, err = pickDOIByTitle(ctx, provider, *title, zapLog)
			if err != nil {
				zapLog.Fatal("title search failed", zap.Error(err))
			}
		}
		result, err := orchestrator.Analyze(ctx, targetDOI)
		if err != nil {
			zapLog.Fatal("analysis failed", zap.Error(err))
		}
		report(result, *jsonOut, zapLog)
	}
}

// pickDOIByTitle searches OpenAlex and takes the first hit that carries
// a DOI, logging the alternatives so the user can re-run with -doi.
func pickDOIByTitle(ctx context.Context, provider *openalex.Client, title string, log *zap.Logger) (string, error) {
	results, err := provider.SearchByTitle(ctx, title)
	if err != nil {
		return "", err
	}
	for _, r := range results {
		log.Info("search result",
			zap.String("title", r.Title),
			zap.String("doi", r.DOI),
			zap.Int("year", r.Year),
			zap.String("journal", r.Journal),
			zap.Int("citations", r.CitationCount),
		)
	}
	for _, r := range results {
		if r.DOI != "" {
			log.Info("analyzing top search hit", zap.String("doi", r.DOI), zap.String("title", r.Title))
			return r.DOI, nil
		}
	}
	return "", fmt.Errorf("no search result with a DOI for %q", title)
}

func report(result *models.Analysis, asJSON bool, log *zap.Logger) {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			log.Error("encode failed", zap.Error(err))
		}
		return
	}

	log.Info("analysis summary",
		zap.String("analysisId", result.ID),
		zap.String("inputDoi", result.InputDOI),
		zap.Int("totalReferences", result.Summary.Total),
		zap.Int("highRisk", result.Summary.HighRiskCount),
		zap.Int("retracted", result.Summary.RetractedCount),
		zap.Int("unscored", result.Summary.UnscoredCount),
	)
	for _, w := range result.Warnings {
		log.Warn(w)
	}
	for level, count := range result.Summary.RiskHistogram {
		log.Info("risk bucket", zap.String("level", level), zap.Int("count", count))
	}
	for _, ref := range result.References {
		if ref.Scoring != nil && ref.Scoring.Score >= 60 {
			log.Warn("flagged reference",
				zap.String("title", ref.Reference.Title),
				zap.String("doi", ref.Reference.DOI),
				zap.Int("score", ref.Scoring.Score),
				zap.String("risk", ref.Risk.Label),
			)
		}
	}
}
