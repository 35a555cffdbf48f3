package pipeline

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/nkoval/tradefeed/internal/fetch"
	"github.com/nkoval/tradefeed/internal/model"
)

// SourcePlan is one disclosure source expressed as an ordered fetcher
// chain. The first fetcher is the authoritative source; the rest are
// fallbacks, tried in order only while the preceding ones come back
// empty. A fetcher error counts as empty, so a blocked primary degrades
// to its mirror instead of failing the run.
type SourcePlan struct {
	Name     string
	Fetchers []fetch.Fetcher
}

// resolve runs the chain and returns the first non-empty result set,
// tagged with the fetcher that produced it.
func (sp SourcePlan) resolve(ctx context.Context, params fetch.Params, log zerolog.Logger) ([]model.FetchResult, string) {
	for i, f := range sp.Fetchers {
		if ctx.Err() != nil {
			return nil, ""
		}

		results, err := f.Fetch(ctx, params)
		if err != nil {
			log.Warn().
				Str("plan", sp.Name).
				Str("fetcher", f.Name()).
				Err(err).
				Msg("fetcher failed, trying fallback")
			continue
		}
		if len(results) == 0 {
			log.Debug().
				Str("plan", sp.Name).
				Str("fetcher", f.Name()).
				Msg("fetcher returned nothing")
			continue
		}

		if i > 0 {
			log.Info().
				Str("plan", sp.Name).
				Str("fetcher", f.Name()).
				Int("position", i).
				Msg("fallback source activated")
		}
		return results, f.Name()
	}

	log.Warn().Str("plan", sp.Name).Msg("no fetcher in chain produced documents")
	return nil, ""
}
