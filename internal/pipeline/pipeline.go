package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nkoval/tradefeed/internal/fetch"
	"github.com/nkoval/tradefeed/internal/model"
	"github.com/nkoval/tradefeed/internal/worker"
)

// Transformer converts one fetched document into validated records.
type Transformer interface {
	Transform(ctx context.Context, res model.FetchResult) (*model.ExtractionResult, error)
}

// Loader gates and persists one extraction batch.
type Loader interface {
	Load(ctx context.Context, result model.ExtractionResult, sourceURL string) (model.LoadOutcome, error)
	LogFailure(ctx context.Context, kind model.SourceKind, sourceURL string, cause error) error
}

// Pipeline orchestrates one ingestion run: resolve each source plan to
// documents, then transform and load them on a bounded worker pool. A
// document failing anywhere stops only that document.
type Pipeline struct {
	plans       []SourcePlan
	transformer Transformer
	loader      Loader
	workers     int
	log         zerolog.Logger
}

// New creates a pipeline over the given source plans.
func New(plans []SourcePlan, transformer Transformer, loader Loader, workers int, log zerolog.Logger) *Pipeline {
	if workers <= 0 {
		workers = 4
	}
	return &Pipeline{
		plans:       plans,
		transformer: transformer,
		loader:      loader,
		workers:     workers,
		log:         log.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes one full ingestion pass over the date range.
func (p *Pipeline) Run(ctx context.Context, params fetch.Params) (*model.RunStats, error) {
	stats := &model.RunStats{}

	type sourceBatch struct {
		source string
		docs   []model.FetchResult
	}
	var batches []sourceBatch
	for _, plan := range p.plans {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		docs, source := plan.resolve(ctx, params, p.log)
		if len(docs) == 0 {
			continue
		}
		batches = append(batches, sourceBatch{source: source, docs: docs})
		stats.SourcesProcessed = append(stats.SourcesProcessed, source)
		p.log.Info().
			Str("plan", plan.Name).
			Str("source", source).
			Int("documents", len(docs)).
			Msg("source resolved")
	}

	pool := worker.NewPool(ctx, p.workers)
	pool.Start()
	for _, batch := range batches {
		for _, doc := range batch.docs {
			pool.Submit(&documentJob{pipeline: p, doc: doc})
		}
	}

	for _, result := range pool.Wait() {
		dr := result.(*documentResult)
		if dr.err != nil {
			stats.Failed++
			continue
		}
		stats.New += dr.outcome.New
		stats.Skipped += dr.outcome.Skipped
	}

	p.log.Info().
		Int("new", stats.New).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Strs("sources", stats.SourcesProcessed).
		Msg("run complete")
	return stats, nil
}

// documentJob carries one document through transform and load.
type documentJob struct {
	pipeline *Pipeline
	doc      model.FetchResult
}

type documentResult struct {
	outcome model.LoadOutcome
	err     error
}

func (r *documentResult) GetError() error { return r.err }

func (j *documentJob) Execute(ctx context.Context) worker.Result {
	p := j.pipeline

	result, err := p.extract(ctx, j.doc)
	if err != nil {
		p.log.Error().
			Str("source", string(j.doc.SourceKind)).
			Str("url", j.doc.SourceURL).
			Err(err).
			Msg("document extraction failed")
		if logErr := p.loader.LogFailure(ctx, j.doc.SourceKind, j.doc.SourceURL, err); logErr != nil {
			p.log.Error().Err(logErr).Msg("failed to record extraction failure")
		}
		return &documentResult{err: err}
	}

	outcome, err := p.loader.Load(ctx, *result, j.doc.SourceURL)
	if err != nil {
		return &documentResult{err: err}
	}
	return &documentResult{outcome: outcome}
}

// extract picks the extraction path for a document. Insider filings are
// structured XML with an exact schema; they parse deterministically and
// never touch the generative model.
func (p *Pipeline) extract(ctx context.Context, doc model.FetchResult) (*model.ExtractionResult, error) {
	if doc.SourceKind == model.SourceInsiderXML {
		return fetch.ParseForm4(doc.Content, doc.SourceURL)
	}
	if p.transformer == nil {
		return nil, fmt.Errorf("no model provider configured for %s document", doc.SourceKind)
	}
	return p.transformer.Transform(ctx, doc)
}
