package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/nkoval/tradefeed/internal/cache"
	"github.com/nkoval/tradefeed/internal/extract"
	"github.com/nkoval/tradefeed/internal/fetch"
	"github.com/nkoval/tradefeed/internal/llm"
	"github.com/nkoval/tradefeed/internal/load"
	"github.com/nkoval/tradefeed/internal/model"
	"github.com/nkoval/tradefeed/internal/pipeline"
	"github.com/nkoval/tradefeed/internal/store"
	"github.com/nkoval/tradefeed/internal/worker"
)

// runIngestion wires the full pipeline from configuration and executes
// one run over the given date window. Shared by ingest and backfill.
func runIngestion(ctx context.Context, cfg *model.Config, start, end time.Time) error {
	log := newLogger()

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	trades := store.NewTradeRepository(db, log)
	logs := store.NewLogRepository(db, log)
	loader := load.NewLoader(trades, logs, cfg.Pipeline.ConfidenceThreshold, log)

	var transformer pipeline.Transformer
	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return fmt.Errorf("failed to create model provider: %w", err)
	}
	if provider != nil {
		transformer = extract.NewTransformer(provider, cfg.Pipeline.MaxRetries, log)
		log.Info().Str("provider", provider.Name()).Msg("model provider configured")
	} else {
		log.Warn().Msg("no model provider configured; only structured XML sources will be processed")
	}

	plans := buildPlans(cfg, log)
	p := pipeline.New(plans, transformer, loader, cfg.Pipeline.Workers, log)

	stats, err := p.Run(ctx, fetch.Params{Start: start, End: end})
	if err != nil {
		return fmt.Errorf("ingestion run failed: %w", err)
	}

	fmt.Printf("Run complete: %d new, %d skipped, %d failed\n", stats.New, stats.Skipped, stats.Failed)
	if len(stats.SourcesProcessed) > 0 {
		fmt.Printf("Sources: %v\n", stats.SourcesProcessed)
	}
	if verbose {
		total, err := trades.Count(ctx)
		if err == nil {
			fmt.Fprintf(os.Stderr, "Store now holds %d trades\n", total)
		}
	}
	return nil
}

// buildPlans assembles the source plans. The Senate chain falls back to
// the aggregator mirror when the browser-driven fetcher is blocked or
// empty; the House and insider chains have no fallback.
func buildPlans(cfg *model.Config, log zerolog.Logger) []pipeline.SourcePlan {
	pages := cache.NewMemoryCache(15*time.Minute, 30*time.Minute)
	lookups := cache.NewMemoryCache(time.Hour, 30*time.Minute)

	limiter := worker.NewLimiter(2, 1)

	senate := fetch.NewSenateFetcher(cfg.Senate, log)
	mirror := fetch.NewMirrorFetcher(cfg.Mirror, cfg.HTTP, pages, log)
	house := fetch.NewHousePDFFetcher(cfg.House, cfg.HTTP, log)

	plans := []pipeline.SourcePlan{
		{Name: "senate", Fetchers: []fetch.Fetcher{senate, mirror}},
		{Name: "house", Fetchers: []fetch.Fetcher{house}},
	}
	if cfg.Edgar.MaxFilings > 0 {
		edgar := fetch.NewEdgarFetcher(cfg.Edgar, cfg.HTTP, limiter, lookups, log)
		plans = append(plans, pipeline.SourcePlan{Name: "insider", Fetchers: []fetch.Fetcher{edgar}})
	}
	return plans
}
