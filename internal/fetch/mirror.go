package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/temoto/robotstxt"

	"github.com/nkoval/tradefeed/internal/cache"
	"github.com/nkoval/tradefeed/internal/model"
)

// MirrorFetcher paginates a public aggregator that mirrors the same
// disclosures with a different layout. It is invoked only when the
// primary source yields nothing, and tags its output with a site marker
// so the transformer picks the mirror-specific prompt.
type MirrorFetcher struct {
	cfg     model.MirrorConfig
	client  *http.Client
	agent   string
	maxBody int64
	pages   cache.Cache
	log     zerolog.Logger
}

// NewMirrorFetcher creates the aggregator fallback fetcher.
func NewMirrorFetcher(cfg model.MirrorConfig, httpCfg model.HTTPConfig, pages cache.Cache, log zerolog.Logger) *MirrorFetcher {
	return &MirrorFetcher{
		cfg:     cfg,
		client:  &http.Client{Timeout: httpCfg.Timeout},
		agent:   httpCfg.UserAgent,
		maxBody: httpCfg.MaxBodyBytes,
		pages:   pages,
		log:     log.With().Str("fetcher", "mirror-html").Logger(),
	}
}

// Name returns the source name.
func (f *MirrorFetcher) Name() string { return string(model.SourceMirrorHTML) }

// Fetch walks the aggregator's paginated trade listing and returns one
// FetchResult per page that still contains trade rows.
func (f *MirrorFetcher) Fetch(ctx context.Context, params Params) ([]model.FetchResult, error) {
	if allowed, err := f.robotsAllowed(ctx); err != nil {
		f.log.Warn().Err(err).Msg("robots.txt unavailable, proceeding politely")
	} else if !allowed {
		return nil, newFetchError(f.Name(), ErrBlocked, fmt.Errorf("robots.txt disallows %s", f.cfg.BaseURL))
	}

	var results []model.FetchResult
	for page := 1; page <= f.cfg.MaxPages; page++ {
		pageURL := fmt.Sprintf("%s?page=%d&pubDate=%s..%s",
			f.cfg.BaseURL, page,
			params.Start.Format(model.DateOnly), params.End.Format(model.DateOnly))

		body, err := f.getPage(ctx, pageURL)
		if err != nil {
			if page == 1 {
				return nil, newFetchError(f.Name(), ErrNetwork, err)
			}
			// Later pages failing mid-walk: keep what we have.
			f.log.Warn().Int("page", page).Err(err).Msg("page fetch failed")
			break
		}

		rows, err := countTradeRows(body)
		if err != nil {
			return results, newFetchError(f.Name(), ErrParse, err)
		}
		if rows == 0 {
			break
		}

		results = append(results, model.FetchResult{
			SourceKind:  model.SourceMirrorHTML,
			Content:     body,
			ContentType: "text/html",
			SourceURL:   pageURL,
			Metadata: map[string]string{
				model.MetaSite:  f.cfg.Site,
				model.MetaDocID: "page-" + strconv.Itoa(page),
			},
		})
	}

	return results, nil
}

// robotsAllowed fetches and evaluates robots.txt for the listing path.
func (f *MirrorFetcher) robotsAllowed(ctx context.Context) (bool, error) {
	base, err := url.Parse(f.cfg.BaseURL)
	if err != nil {
		return false, err
	}
	robotsURL := base.Scheme + "://" + base.Host + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("User-Agent", f.agent)

	resp, err := f.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return false, err
	}
	return data.TestAgent(base.Path, f.agent), nil
}

// getPage downloads one listing page, memoized within the run so a
// retried source walk does not refetch.
func (f *MirrorFetcher) getPage(ctx context.Context, pageURL string) ([]byte, error) {
	key := cache.Key("mirror", pageURL)
	if cached, ok := f.pages.Get(key); ok {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.agent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	_ = f.pages.Set(key, body, 15*time.Minute)
	return body, nil
}

// countTradeRows counts trade rows in a listing page.
func countTradeRows(pageHTML []byte) (int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(pageHTML)))
	if err != nil {
		return 0, fmt.Errorf("parse page: %w", err)
	}
	return doc.Find("table tbody tr").Length(), nil
}
