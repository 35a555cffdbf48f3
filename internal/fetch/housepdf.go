package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/nkoval/tradefeed/internal/model"
)

// HousePDFFetcher drives the House clerk's disclosure search: an AJAX
// POST returning an HTML results table, one PDF link per filing. The
// PDF bytes are returned untouched; rasterization and extraction are
// the transformer's job.
type HousePDFFetcher struct {
	cfg     model.HouseConfig
	client  *http.Client
	agent   string
	maxBody int64
	maxPDF  int64
	log     zerolog.Logger
}

// NewHousePDFFetcher creates the House PDF-filing fetcher.
func NewHousePDFFetcher(cfg model.HouseConfig, httpCfg model.HTTPConfig, log zerolog.Logger) *HousePDFFetcher {
	maxPDF := cfg.MaxPDFBytes
	if maxPDF <= 0 {
		maxPDF = 64_000_000
	}
	return &HousePDFFetcher{
		cfg:     cfg,
		client:  &http.Client{Timeout: httpCfg.Timeout},
		agent:   httpCfg.UserAgent,
		maxBody: httpCfg.MaxBodyBytes,
		maxPDF:  maxPDF,
		log:     log.With().Str("fetcher", "house-pdf").Logger(),
	}
}

// Name returns the source name.
func (f *HousePDFFetcher) Name() string { return string(model.SourceHousePDF) }

// houseFiling is one row of the search results table.
type houseFiling struct {
	Name       string
	Office     string
	FilingType string
	FiledDate  string
	PDFLink    string
}

// Fetch posts the search form, keeps the periodic-transaction-report
// rows, and downloads each linked PDF.
func (f *HousePDFFetcher) Fetch(ctx context.Context, params Params) ([]model.FetchResult, error) {
	filings, err := f.search(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(filings) == 0 {
		f.log.Info().Msg("search returned no PTR filings")
		return nil, nil
	}

	var results []model.FetchResult
	for _, filing := range filings {
		pdfBytes, err := f.download(ctx, filing.PDFLink)
		if err != nil {
			f.log.Warn().Str("url", filing.PDFLink).Err(err).Msg("PDF download failed")
			continue
		}

		results = append(results, model.FetchResult{
			SourceKind:  model.SourceHousePDF,
			Content:     pdfBytes,
			ContentType: "application/pdf",
			SourceURL:   filing.PDFLink,
			Metadata: map[string]string{
				model.MetaPolitician: filing.Name,
				model.MetaFilingDate: filing.FiledDate,
				model.MetaChamber:    string(model.ChamberHouse),
			},
		})
	}

	return results, nil
}

// search posts the AJAX form and parses the resulting table, filtered
// to periodic transaction reports.
func (f *HousePDFFetcher) search(ctx context.Context, params Params) ([]houseFiling, error) {
	form := url.Values{
		"LastName":   {""},
		"FilingYear": {strconv.Itoa(params.End.Year())},
		"State":      {""},
		"District":   {""},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.SearchURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, newFetchError(f.Name(), ErrNetwork, err)
	}
	req.Header.Set("User-Agent", f.agent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, newFetchError(f.Name(), ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newFetchError(f.Name(), ErrBlocked, fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return nil, newFetchError(f.Name(), ErrParse, err)
	}

	base, err := url.Parse(f.cfg.BaseURL)
	if err != nil {
		return nil, newFetchError(f.Name(), ErrParse, err)
	}

	var filings []houseFiling
	doc.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}

		filingType := strings.TrimSpace(cells.Eq(2).Text())
		if !strings.Contains(filingType, "PTR") {
			return
		}

		href, ok := cells.Eq(0).Find("a").Attr("href")
		if !ok {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}

		filings = append(filings, houseFiling{
			Name:       strings.TrimSpace(cells.Eq(0).Text()),
			Office:     strings.TrimSpace(cells.Eq(1).Text()),
			FilingType: filingType,
			FiledDate:  strings.TrimSpace(cells.Eq(3).Text()),
			PDFLink:    base.ResolveReference(ref).String(),
		})
	})

	return filings, nil
}

// download retrieves one filing PDF.
func (f *HousePDFFetcher) download(ctx context.Context, pdfURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.agent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	// Read one byte past the cap so truncation is detectable: a
	// silently cut-off PDF only surfaces later as a cryptic
	// rasterization failure.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxPDF+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxPDF {
		return nil, fmt.Errorf("filing PDF exceeds %d byte limit", f.maxPDF)
	}
	return body, nil
}
