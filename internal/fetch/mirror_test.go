package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nkoval/tradefeed/internal/cache"
	"github.com/nkoval/tradefeed/internal/model"
)

func newMirrorTestFetcher(cfg model.MirrorConfig) *MirrorFetcher {
	httpCfg := model.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "test-agent", MaxBodyBytes: 1 << 20}
	return NewMirrorFetcher(cfg, httpCfg, cache.NewMemoryCache(time.Minute, time.Minute), zerolog.Nop())
}

func tradePage(rows int) string {
	page := `<html><body><table><tbody>`
	for i := 0; i < rows; i++ {
		page += fmt.Sprintf(`<tr><td>Politician %d</td><td>AAPL</td><td>Buy</td><td>$1,001 - $15,000</td></tr>`, i)
	}
	return page + `</tbody></table></body></html>`
}

func TestMirrorFetcher_Paginates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nAllow: /\n")
	})
	mux.HandleFunc("/trades", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, tradePage(3))
		case "2":
			fmt.Fprint(w, tradePage(2))
		default:
			fmt.Fprint(w, tradePage(0))
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := newMirrorTestFetcher(model.MirrorConfig{
		BaseURL:  server.URL + "/trades",
		Site:     "testmirror",
		MaxPages: 10,
	})

	results, err := f.Fetch(context.Background(), Params{
		Start: time.Now().AddDate(0, -1, 0),
		End:   time.Now(),
	})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	// Pages 1 and 2 have rows; page 3 is empty and stops the walk
	if len(results) != 2 {
		t.Fatalf("expected 2 page results, got %d", len(results))
	}
	for _, res := range results {
		if res.SourceKind != model.SourceMirrorHTML {
			t.Errorf("unexpected source kind: %s", res.SourceKind)
		}
		if res.Meta(model.MetaSite) != "testmirror" {
			t.Errorf("missing site marker, got %q", res.Meta(model.MetaSite))
		}
	}
}

func TestMirrorFetcher_RobotsDisallow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /trades\n")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := newMirrorTestFetcher(model.MirrorConfig{
		BaseURL:  server.URL + "/trades",
		Site:     "testmirror",
		MaxPages: 3,
	})

	_, err := f.Fetch(context.Background(), Params{Start: time.Now().AddDate(0, -1, 0), End: time.Now()})
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != ErrBlocked {
		t.Fatalf("expected blocked FetchError, got %v", err)
	}
}

func TestMirrorFetcher_EmptySourceIsNotError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nAllow: /\n")
	})
	mux.HandleFunc("/trades", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, tradePage(0))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := newMirrorTestFetcher(model.MirrorConfig{BaseURL: server.URL + "/trades", Site: "m", MaxPages: 3})

	results, err := f.Fetch(context.Background(), Params{Start: time.Now().AddDate(0, -1, 0), End: time.Now()})
	if err != nil {
		t.Fatalf("empty source must not be an error, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected zero results, got %d", len(results))
	}
}
