package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vigilpt/vigil/internal/cache"
	"github.com/vigilpt/vigil/internal/model"
)

func testHTTPConfig() model.HTTPConfig {
	return model.HTTPConfig{
		Timeout:           5 * time.Second,
		UserAgent:         "vigil-test",
		MaxBodyBytes:      1 << 20,
		RequestsPerSecond: 1000, // Keep tests fast
	}
}

func newTestClient(serverURL string, opts ...PortalOption) *PortalClient {
	opts = append([]PortalOption{WithBaseURL(serverURL)}, opts...)
	c := NewPortalClient(testHTTPConfig(), opts...)
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func pageHandler(pages map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		body, ok := pages[r.URL.Query().Get("page")]
		if !ok {
			fmt.Fprint(w, `{"total":0,"results":[]}`)
			return
		}
		fmt.Fprint(w, body)
	}
}

func TestSearch_PaginatesAndSorts(t *testing.T) {
	srv := httptest.NewServer(pageHandler(map[string]string{
		"1": `{"total":3,"results":[
			{"idContrato":"20","nomeEntidadeAdjudicataria":"B Lda","precoContratual":"2.000,00"},
			{"idContrato":"10","nomeEntidadeAdjudicataria":"A Lda","precoContratual":"1.000,00"}]}`,
		"2": `{"total":3,"results":[
			{"idContrato":"30","nomeEntidadeAdjudicataria":"C Lda","precoContratual":"3.000,00"}]}`,
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	contracts, err := c.Search(context.Background(), Query{District: "Braga", Year: 2024})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(contracts) != 3 {
		t.Fatalf("expected 3 contracts, got %d", len(contracts))
	}
	for i, want := range []string{"10", "20", "30"} {
		if contracts[i].ID != want {
			t.Errorf("position %d: expected id %s, got %s", i, want, contracts[i].ID)
		}
	}
	if contracts[0].Contractor.Name != "A Lda" {
		t.Errorf("contractor lost in mapping: %+v", contracts[0])
	}
}

func TestSearch_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"total":1,"results":[{"idContrato":"1"}]}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	contracts, err := c.Search(context.Background(), Query{MaxPages: 1})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if len(contracts) != 1 {
		t.Errorf("expected 1 contract, got %d", len(contracts))
	}
	if calls.Load() < 2 {
		t.Errorf("expected at least 2 attempts, got %d", calls.Load())
	}
}

func TestSearch_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if _, err := c.Search(context.Background(), Query{MaxPages: 1}); err == nil {
		t.Fatal("expected error on 403")
	}
	if calls.Load() != 1 {
		t.Errorf("403 must not be retried, got %d attempts", calls.Load())
	}
}

func TestSearch_RobotsDisallowBlocksFetch(t *testing.T) {
	var apiCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fmt.Fprint(w, "User-agent: *\nDisallow: /\n")
			return
		}
		apiCalls.Add(1)
		fmt.Fprint(w, `{"total":0,"results":[]}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if _, err := c.Search(context.Background(), Query{MaxPages: 1}); err == nil {
		t.Fatal("expected robots.txt disallow to fail the search")
	}
	if apiCalls.Load() != 0 {
		t.Errorf("disallowed path must never be fetched, got %d calls", apiCalls.Load())
	}
}

func TestSearch_ServesFromCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		fmt.Fprint(w, `{"total":1,"results":[{"idContrato":"1"}]}`)
	}))
	defer srv.Close()

	store := cache.NewMemoryCache(time.Minute, time.Minute)
	c := newTestClient(srv.URL, WithResponseCache(store))

	for i := 0; i < 3; i++ {
		if _, err := c.Search(context.Background(), Query{MaxPages: 1}); err != nil {
			t.Fatalf("search %d: %v", i, err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single upstream fetch, got %d", calls.Load())
	}
}

func TestSearch_HTMLFallback(t *testing.T) {
	page := `<html><body>
		<a href="/Base4/pt/detalhe/?type=contratos&id=7">Obra municipal</a>
	</body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	// Every page serves the same stubs, so the second page adds nothing
	// and the search must terminate on its own.
	c := newTestClient(srv.URL)
	contracts, err := c.Search(context.Background(), Query{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(contracts) != 1 {
		t.Fatalf("expected 1 stub from HTML fallback, got %d", len(contracts))
	}
	if contracts[0].ID != "7" || contracts[0].Description != "Obra municipal" {
		t.Errorf("unexpected stub: %+v", contracts[0])
	}
}

func TestParseSearchHTML(t *testing.T) {
	page := `<html><body>
		<a href="/Base4/pt/detalhe/?type=contratos&id=12345">Pavimentação de ruas</a>
		<a href="/Base4/pt/detalhe/?type=contratos&id=12345">duplicate</a>
		<a href="/Base4/pt/detalhe/?type=entidades&id=99">not a contract</a>
		<a href="#top">anchor</a>
	</body></html>`

	contracts, err := ParseSearchHTML(page)
	if err != nil {
		t.Fatalf("ParseSearchHTML: %v", err)
	}
	if len(contracts) != 1 {
		t.Fatalf("expected 1 contract stub, got %d", len(contracts))
	}
	if contracts[0].ID != "12345" || contracts[0].Description != "Pavimentação de ruas" {
		t.Errorf("unexpected stub: %+v", contracts[0])
	}
}
