package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/nkoval/tradefeed/internal/model"
)

// SenateFetcher drives a real browser session against the Senate
// financial-disclosure search. The site sits behind bot mitigation that
// a plain HTTP client cannot pass; a full browser session survives it.
// One session is held for the entire source run and closed on every
// exit path.
type SenateFetcher struct {
	cfg model.SenateConfig
	log zerolog.Logger
}

// NewSenateFetcher creates the browser-driven Senate fetcher.
func NewSenateFetcher(cfg model.SenateConfig, log zerolog.Logger) *SenateFetcher {
	return &SenateFetcher{
		cfg: cfg,
		log: log.With().Str("fetcher", "senate-html").Logger(),
	}
}

// Name returns the source name.
func (f *SenateFetcher) Name() string { return string(model.SourceSenateHTML) }

// senateRow is one row of the search results data table.
type senateRow struct {
	FirstName string
	LastName  string
	Office    string
	ReportURL string
	FiledDate string
}

var hrefPattern = regexp.MustCompile(`href="([^"]+)"`)

// Fetch submits the date-range search form, intercepts the data-table
// response behind it, and captures the full filing page for every row.
func (f *SenateFetcher) Fetch(ctx context.Context, params Params) ([]model.FetchResult, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1366, 900),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	rows, err := f.search(browserCtx, params)
	if err != nil {
		return nil, newFetchError(f.Name(), ErrBlocked, err)
	}
	if len(rows) == 0 {
		f.log.Info().Msg("search returned no filings")
		return nil, nil
	}
	f.log.Info().Int("rows", len(rows)).Msg("search results received")

	var results []model.FetchResult
	for _, row := range rows {
		// Polite delay between page loads; hammering the site trips
		// the anti-automation defenses the browser session got us past.
		select {
		case <-ctx.Done():
			return results, newFetchError(f.Name(), ErrNetwork, ctx.Err())
		case <-time.After(f.cfg.PageDelay):
		}

		pageHTML, err := f.capturePage(browserCtx, row.ReportURL)
		if err != nil {
			f.log.Warn().Str("url", row.ReportURL).Err(err).Msg("filing page capture failed")
			continue
		}

		results = append(results, model.FetchResult{
			SourceKind:  model.SourceSenateHTML,
			Content:     []byte(pageHTML),
			ContentType: "text/html",
			SourceURL:   row.ReportURL,
			Metadata: map[string]string{
				model.MetaPolitician: strings.TrimSpace(row.FirstName + " " + row.LastName),
				model.MetaFilingDate: row.FiledDate,
				model.MetaChamber:    string(model.ChamberSenate),
			},
		})
	}

	return results, nil
}

// search drives the agreement page and search form, then waits for the
// intercepted data-table XHR body instead of scraping the rendered DOM.
func (f *SenateFetcher) search(ctx context.Context, params Params) ([]senateRow, error) {
	bodyCh := make(chan []byte, 1)
	var mu sync.Mutex
	var tableReqID network.RequestID

	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			if strings.Contains(e.Response.URL, "/search/report/data/") {
				mu.Lock()
				tableReqID = e.RequestID
				mu.Unlock()
			}
		case *network.EventLoadingFinished:
			mu.Lock()
			match := tableReqID != "" && e.RequestID == tableReqID
			mu.Unlock()
			if !match {
				return
			}
			go func() {
				c := chromedp.FromContext(ctx)
				body, err := network.GetResponseBody(e.RequestID).Do(cdp.WithExecutor(ctx, c.Target))
				if err != nil {
					return
				}
				select {
				case bodyCh <- body:
				default:
				}
			}()
		}
	})

	const dateLayout = "01/02/2006"
	err := chromedp.Run(ctx,
		network.Enable(),
		chromedp.Navigate(f.cfg.SearchURL),
		chromedp.WaitVisible(`#agree_statement`, chromedp.ByID),
		chromedp.Click(`#agree_statement`, chromedp.ByID),
		chromedp.WaitVisible(`#searchForm`, chromedp.ByID),
		chromedp.Click(`input.senator_filer`, chromedp.ByQuery),
		chromedp.Click(`input[value="11"]`, chromedp.ByQuery), // periodic transaction reports
		chromedp.SetValue(`#fromDate`, params.Start.Format(dateLayout), chromedp.ByID),
		chromedp.SetValue(`#toDate`, params.End.Format(dateLayout), chromedp.ByID),
		chromedp.Click(`button[type="submit"]`, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("drive search form: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(30 * time.Second):
		return nil, fmt.Errorf("timed out waiting for search data response")
	case body := <-bodyCh:
		return f.parseTableResponse(body)
	}
}

// parseTableResponse decodes the DataTables JSON payload. Each row is
// an array of cell strings; the report link cell carries raw HTML.
func (f *SenateFetcher) parseTableResponse(body []byte) ([]senateRow, error) {
	var payload struct {
		Data [][]string `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode table payload: %w", err)
	}

	base, _ := url.Parse(f.cfg.SearchURL)
	var rows []senateRow
	for _, cells := range payload.Data {
		if len(cells) < 5 {
			continue
		}
		m := hrefPattern.FindStringSubmatch(cells[3])
		if m == nil {
			continue
		}
		ref, err := url.Parse(m[1])
		if err != nil {
			continue
		}
		rows = append(rows, senateRow{
			FirstName: cells[0],
			LastName:  cells[1],
			Office:    cells[2],
			ReportURL: base.ResolveReference(ref).String(),
			FiledDate: cells[4],
		})
	}
	return rows, nil
}

// capturePage navigates to one filing and returns its full HTML.
func (f *SenateFetcher) capturePage(ctx context.Context, pageURL string) (string, error) {
	var pageHTML string
	err := chromedp.Run(ctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &pageHTML, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("capture %s: %w", pageURL, err)
	}
	return pageHTML, nil
}
