package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nkoval/tradefeed/internal/cache"
	"github.com/nkoval/tradefeed/internal/model"
	"github.com/nkoval/tradefeed/internal/worker"
)

func newEdgarTestFetcher(serverURL string, cfg model.EdgarConfig) *EdgarFetcher {
	httpCfg := model.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "test agent test@example.com", MaxBodyBytes: 1 << 20}
	return NewEdgarFetcher(cfg, httpCfg, worker.NewLimiter(100, 10), cache.NewMemoryCache(time.Minute, time.Minute), zerolog.Nop())
}

func TestEdgarFetcher_SearchPath(t *testing.T) {
	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/search-index", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("forms") != "4" {
			t.Errorf("expected forms=4, got %s", r.URL.Query().Get("forms"))
		}
		fmt.Fprint(w, `{"hits":{"hits":[
			{"_id":"0001214128-25-001234:form4.xml","_source":{"cik":["0000320193"]}},
			{"_id":"0001214128-25-001235:form4.html","_source":{"cik":["0000320193"]}}
		]}}`)
	})
	mux.HandleFunc("/archives/320193/000121412825001234/form4.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleForm4)
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	f := newEdgarTestFetcher(server.URL, model.EdgarConfig{
		SearchURL:   server.URL + "/search-index",
		ArchiveURL:  server.URL + "/archives",
		RSSURL:      server.URL + "/rss",
		MinInterval: time.Millisecond,
		MaxFilings:  10,
	})

	results, err := f.Fetch(context.Background(), Params{
		Start: time.Now().AddDate(0, -1, 0),
		End:   time.Now(),
	})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	// The .html hit must be filtered out
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].SourceKind != model.SourceInsiderXML {
		t.Errorf("unexpected source kind: %s", results[0].SourceKind)
	}
	if results[0].Meta(model.MetaDocID) != "0001214128-25-001234" {
		t.Errorf("unexpected doc id: %s", results[0].Meta(model.MetaDocID))
	}

	// The downloaded XML must parse deterministically
	extraction, err := ParseForm4(results[0].Content, results[0].SourceURL)
	if err != nil {
		t.Fatalf("ParseForm4 on fetched content failed: %v", err)
	}
	if len(extraction.Records) != 2 {
		t.Errorf("expected 2 records from fetched document, got %d", len(extraction.Records))
	}
}

func TestEdgarFetcher_RSSFallback(t *testing.T) {
	mux := http.NewServeMux()
	var server *httptest.Server

	// Search API down: triggers the RSS fallback
	mux.HandleFunc("/search-index", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/rss", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <title>4 - DOE JANE (0001214128)</title>
    <link href="%s/index/filing-index.htm"/>
  </entry>
</feed>`, server.URL)
	})
	mux.HandleFunc("/index/filing-index.htm", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><table>
			<tr><td><a href="/xsl/rendered.xml">rendered</a></td></tr>
			<tr><td><a href="form4.xml">form4.xml</a></td></tr>
		</table></body></html>`)
	})
	mux.HandleFunc("/index/form4.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleForm4)
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	f := newEdgarTestFetcher(server.URL, model.EdgarConfig{
		SearchURL:   server.URL + "/search-index",
		ArchiveURL:  server.URL + "/archives",
		RSSURL:      server.URL + "/rss",
		MinInterval: time.Millisecond,
		MaxFilings:  10,
	})

	results, err := f.Fetch(context.Background(), Params{Start: time.Now().AddDate(0, -1, 0), End: time.Now()})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result via RSS fallback, got %d", len(results))
	}
	if results[0].SourceURL != server.URL+"/index/form4.xml" {
		t.Errorf("expected XSL variant skipped, got %s", results[0].SourceURL)
	}
}

func TestEdgarFetcher_MinInterval(t *testing.T) {
	var requests int
	mux := http.NewServeMux()
	mux.HandleFunc("/search-index", func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, `{"hits":{"hits":[]}}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := newEdgarTestFetcher(server.URL, model.EdgarConfig{
		SearchURL:   server.URL + "/search-index",
		ArchiveURL:  server.URL + "/archives",
		RSSURL:      server.URL + "/rss",
		MinInterval: 50 * time.Millisecond,
		MaxFilings:  10,
	})
	// Pin the test server's domain to the configured interval, the way
	// the constructor pins the real SEC domains.
	u := server.URL[len("http://"):]
	f.limiter.SetDomainInterval(u, 50*time.Millisecond)

	ctx := context.Background()
	start := time.Now()
	_, _ = f.Fetch(ctx, Params{Start: time.Now().AddDate(0, 0, -7), End: time.Now()})
	_, _ = f.Fetch(ctx, Params{Start: time.Now().AddDate(0, 0, -7), End: time.Now()})
	elapsed := time.Since(start)

	if requests != 2 {
		t.Fatalf("expected 2 search requests, got %d", requests)
	}
	if elapsed < 50*time.Millisecond {
		t.Errorf("expected second request delayed by min interval, elapsed %v", elapsed)
	}
}
