package fetch

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/nkoval/tradefeed/internal/cache"
	"github.com/nkoval/tradefeed/internal/model"
	"github.com/nkoval/tradefeed/internal/worker"
)

// EdgarFetcher pulls insider ownership filings (Form 4 family) from
// SEC EDGAR. No LLM is involved on this path: the source is already
// machine-readable XML and is parsed deterministically downstream.
//
// Discovery order: full-text search index, then the latest-filings RSS
// feed, then following each filing's index page to its embedded XML
// link. Every request obeys the SEC fair-access minimum interval.
type EdgarFetcher struct {
	cfg     model.EdgarConfig
	client  *http.Client
	agent   string
	limiter *worker.Limiter
	lookups cache.Cache
	log     zerolog.Logger
}

// NewEdgarFetcher creates the insider-XML fetcher. The limiter is
// shared so the fair-access interval holds across concurrent callers.
func NewEdgarFetcher(cfg model.EdgarConfig, httpCfg model.HTTPConfig, limiter *worker.Limiter, lookups cache.Cache, log zerolog.Logger) *EdgarFetcher {
	for _, domain := range []string{"www.sec.gov", "efts.sec.gov"} {
		limiter.SetDomainInterval(domain, cfg.MinInterval)
	}
	return &EdgarFetcher{
		cfg:     cfg,
		client:  &http.Client{Timeout: httpCfg.Timeout},
		agent:   httpCfg.UserAgent,
		limiter: limiter,
		lookups: lookups,
		log:     log.With().Str("fetcher", "insider-xml").Logger(),
	}
}

// Name returns the source name.
func (f *EdgarFetcher) Name() string { return string(model.SourceInsiderXML) }

// filingRef locates one ownership document in the EDGAR archive.
type filingRef struct {
	CIK       string
	Accession string
	Filename  string
}

// DocumentURL builds the canonical archive URL from the reference
// components the search index returns.
func (r filingRef) DocumentURL(archiveBase string) string {
	return fmt.Sprintf("%s/%s/%s/%s",
		strings.TrimSuffix(archiveBase, "/"),
		strings.TrimLeft(r.CIK, "0"),
		strings.ReplaceAll(r.Accession, "-", ""),
		r.Filename)
}

// Fetch discovers recent Form 4 filings and downloads their XML.
func (f *EdgarFetcher) Fetch(ctx context.Context, params Params) ([]model.FetchResult, error) {
	refs, err := f.searchFilings(ctx, params)
	if err != nil {
		f.log.Warn().Err(err).Msg("full-text search unavailable, falling back to RSS feed")
		return f.fetchFromRSS(ctx)
	}
	if len(refs) == 0 {
		return nil, nil
	}

	var results []model.FetchResult
	for _, ref := range refs {
		docURL := ref.DocumentURL(f.cfg.ArchiveURL)
		xmlBytes, err := f.download(ctx, docURL)
		if err != nil {
			f.log.Warn().Str("url", docURL).Err(err).Msg("ownership document download failed")
			continue
		}
		results = append(results, model.FetchResult{
			SourceKind:  model.SourceInsiderXML,
			Content:     xmlBytes,
			ContentType: "application/xml",
			SourceURL:   docURL,
			Metadata: map[string]string{
				model.MetaDocID: ref.Accession,
			},
		})
	}
	return results, nil
}

// searchFilings queries the EDGAR full-text search index for Form 4
// documents in the date range. Each hit's _id is "accession:filename".
func (f *EdgarFetcher) searchFilings(ctx context.Context, params Params) ([]filingRef, error) {
	q := url.Values{
		"q":         {`"4"`},
		"forms":     {"4"},
		"startdt":   {params.Start.Format(model.DateOnly)},
		"enddt":     {params.End.Format(model.DateOnly)},
		"dateRange": {"custom"},
	}
	searchURL := f.cfg.SearchURL + "?" + q.Encode()

	body, err := f.get(ctx, searchURL, "application/json")
	if err != nil {
		return nil, err
	}

	var payload struct {
		Hits struct {
			Hits []struct {
				ID     string `json:"_id"`
				Source struct {
					CIKs []string `json:"cik"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	var refs []filingRef
	for _, hit := range payload.Hits.Hits {
		accession, filename, ok := strings.Cut(hit.ID, ":")
		if !ok || len(hit.Source.CIKs) == 0 {
			continue
		}
		if !strings.HasSuffix(filename, ".xml") {
			continue
		}
		refs = append(refs, filingRef{
			CIK:       hit.Source.CIKs[0],
			Accession: accession,
			Filename:  filename,
		})
		if len(refs) >= f.cfg.MaxFilings {
			break
		}
	}
	return refs, nil
}

// edgar Atom feed structures
type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title string `xml:"title"`
	Link  struct {
		Href string `xml:"href,attr"`
	} `xml:"link"`
}

// fetchFromRSS walks the latest-filings feed; each entry links to a
// filing index page whose embedded XML link is followed.
func (f *EdgarFetcher) fetchFromRSS(ctx context.Context) ([]model.FetchResult, error) {
	body, err := f.get(ctx, f.cfg.RSSURL, "application/atom+xml")
	if err != nil {
		return nil, newFetchError(f.Name(), ErrNetwork, err)
	}

	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, newFetchError(f.Name(), ErrParse, fmt.Errorf("decode feed: %w", err))
	}

	var results []model.FetchResult
	for _, entry := range feed.Entries {
		if len(results) >= f.cfg.MaxFilings {
			break
		}
		if entry.Link.Href == "" {
			continue
		}
		docURL, err := f.xmlLinkFromIndex(ctx, entry.Link.Href)
		if err != nil {
			f.log.Warn().Str("index", entry.Link.Href).Err(err).Msg("index page walk failed")
			continue
		}
		xmlBytes, err := f.download(ctx, docURL)
		if err != nil {
			f.log.Warn().Str("url", docURL).Err(err).Msg("ownership document download failed")
			continue
		}
		results = append(results, model.FetchResult{
			SourceKind:  model.SourceInsiderXML,
			Content:     xmlBytes,
			ContentType: "application/xml",
			SourceURL:   docURL,
			Metadata: map[string]string{
				model.MetaDocID: entry.Title,
			},
		})
	}
	return results, nil
}

// xmlLinkFromIndex locates the ownership XML link on a filing index page.
func (f *EdgarFetcher) xmlLinkFromIndex(ctx context.Context, indexURL string) (string, error) {
	body, err := f.get(ctx, indexURL, "text/html")
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("parse index page: %w", err)
	}

	base, err := url.Parse(indexURL)
	if err != nil {
		return "", err
	}

	var docURL string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		// Skip the XSL-rendered variant; we want the raw document.
		if !strings.HasSuffix(href, ".xml") || strings.Contains(href, "/xsl") {
			return true
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		docURL = base.ResolveReference(ref).String()
		return false
	})

	if docURL == "" {
		return "", fmt.Errorf("no ownership XML link on index page")
	}
	return docURL, nil
}

// download retrieves one document, memoized by URL since archive
// contents are immutable.
func (f *EdgarFetcher) download(ctx context.Context, docURL string) ([]byte, error) {
	key := cache.Key("edgar", docURL)
	if cached, ok := f.lookups.Get(key); ok {
		return cached, nil
	}

	body, err := f.get(ctx, docURL, "application/xml")
	if err != nil {
		return nil, err
	}

	_ = f.lookups.Set(key, body, time.Hour)
	return body, nil
}

// get performs one rate-limited GET with the SEC-required user agent.
func (f *EdgarFetcher) get(ctx context.Context, rawURL, accept string) ([]byte, error) {
	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.agent)
	req.Header.Set("Accept", accept)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
