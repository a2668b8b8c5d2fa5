package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/jarcoal/httpmock"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.BaseURL = "http://example.test/catalog"
	cfg.Parallelism = 4
	cfg.MaxRetries = 0
	return cfg
}

func newMockedScraper(t *testing.T, cfg *config.Config, transport *httpmock.MockTransport) *Scraper {
	t.Helper()
	s, err := NewScraper(cfg)
	if err != nil {
		t.Fatalf("new scraper: %v", err)
	}
	s.fetcher.collector.WithTransport(transport)
	return s
}

func TestScraperFirstPageFailure(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{status: http.StatusTooManyRequests, expected: "rate_limited"},
		{status: http.StatusForbidden, expected: "forbidden"},
		{status: http.StatusNotFound, expected: "not_found"},
		{status: http.StatusBadGateway, expected: "server_error"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			cfg := testConfig()

			transport := httpmock.NewMockTransport()
			transport.RegisterResponder("GET", cfg.BaseURL, httpmock.NewStringResponder(tt.status, ""))

			s := newMockedScraper(t, cfg, transport)

			result, err := s.Run(context.Background())
			if err == nil {
				t.Fatalf("expected first page failure, got outcome %+v", result)
			}
			if !strings.Contains(err.Error(), "fetch first page") {
				t.Fatalf("error %q should name the first page", err)
			}
			if got := errorTypeLabel(err); got != tt.expected {
				t.Fatalf("label = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestScraper_Integration(t *testing.T) {
	cfg := testConfig()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", cfg.BaseURL, htmlResponder(buildCatalogPage(1, 4)))
	transport.RegisterResponder("GET", cfg.BaseURL+"?page=1", htmlResponder(buildCatalogPage(1, 4)))
	transport.RegisterResponder("GET", cfg.BaseURL+"?page=2", htmlResponder(buildCatalogPage(2, 4)))
	transport.RegisterResponder("GET", cfg.BaseURL+"?page=3", httpmock.NewStringResponder(http.StatusInternalServerError, "oops"))
	transport.RegisterResponder("GET", cfg.BaseURL+"?page=4", htmlResponder(buildCatalogPage(4, 4)))

	s := newMockedScraper(t, cfg, transport)

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.PageCount != 4 {
		t.Fatalf("pages=%d, want 4", result.PageCount)
	}
	if got := len(result.Products); got != 60 {
		t.Fatalf("products=%d, want 60 (requests=%d failures=%v)", got, result.RequestCount, result.Failures)
	}
	if len(result.Failures) != 1 || result.Failures[0].Page != 2 {
		t.Fatalf("failures=%v, want page 2 only", result.Failures)
	}
	var fetchErr *FetchError
	if !errors.As(result.Failures[0].Err, &fetchErr) {
		t.Fatalf("failure should be a FetchError, got %T", result.Failures[0].Err)
	}
	if result.ErrorsByType["server_error"] != 1 {
		t.Fatalf("errors by type = %v", result.ErrorsByType)
	}
	if result.RequestCount != 5 {
		t.Fatalf("requests=%d, want 5", result.RequestCount)
	}

	var sample *models.Product
	for i := range result.Products {
		if result.Products[i].Name == "Dress 21" {
			sample = &result.Products[i]
			break
		}
	}
	if sample == nil {
		t.Fatalf("expected product Dress 21")
	}
	if sample.Price != 1021.5 {
		t.Fatalf("price=%v, want 1021.5", sample.Price)
	}
	failed := make(map[string]bool)
	for id := 41; id <= 60; id++ {
		failed[fmt.Sprintf("Dress %d", id)] = true
	}
	for _, p := range result.Products {
		if failed[p.Name] {
			t.Fatalf("product %q came from the failed page", p.Name)
		}
	}
}

func TestScraperSinglePageWithoutPagination(t *testing.T) {
	cfg := testConfig()

	page := `<html><body><div id="products-listing-section"><ul>
<li><article><h2>Only dress</h2><p>£25.00</p></article></li>
</ul></div></body></html>`

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", cfg.BaseURL, htmlResponder(page))
	transport.RegisterResponder("GET", cfg.BaseURL+"?page=1", htmlResponder(page))

	s := newMockedScraper(t, cfg, transport)

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.PageCount != 1 || len(result.Products) != 1 {
		t.Fatalf("pages=%d products=%d, want 1/1", result.PageCount, len(result.Products))
	}
	if result.Products[0] != (models.Product{Name: "Only dress", Price: 25}) {
		t.Fatalf("product = %+v", result.Products[0])
	}
}

func TestScraperMaxPagesCap(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPages = 2

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", cfg.BaseURL, htmlResponder(buildCatalogPage(1, 9)))
	transport.RegisterResponder("GET", cfg.BaseURL+"?page=1", htmlResponder(buildCatalogPage(1, 9)))
	transport.RegisterResponder("GET", cfg.BaseURL+"?page=2", htmlResponder(buildCatalogPage(2, 9)))

	s := newMockedScraper(t, cfg, transport)

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.PageCount != 2 || len(result.Products) != 40 {
		t.Fatalf("pages=%d products=%d, want 2/40", result.PageCount, len(result.Products))
	}
	if calls := transport.GetTotalCallCount(); calls != 3 {
		t.Fatalf("requests=%d, want 3 (first page plus two catalog pages)", calls)
	}
}

func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(200, body)
	resp.Header.Set("Content-Type", "text/html")
	return httpmock.ResponderFromResponse(resp)
}

// buildCatalogPage renders 20 products for a 1-based page and a pagination
// nav whose last page link points at lastPage.
func buildCatalogPage(page, lastPage int) string {
	var builder strings.Builder
	builder.WriteString(`<html><body><div id="products-listing-section"><ul>`)

	for i := 1; i <= 20; i++ {
		id := (page-1)*20 + i
		builder.WriteString("<li><article>")
		fmt.Fprintf(&builder, "<h2>Dress %d</h2>", id)
		fmt.Fprintf(&builder, "<p>&pound;1,%03d.50</p>", id)
		builder.WriteString("</article></li>")
	}
	builder.WriteString("</ul></div>")

	builder.WriteString(`<nav aria-label="Pagination">`)
	for p := 1; p <= lastPage; p++ {
		fmt.Fprintf(&builder, `<a aria-label="Go to page %d" href="?page=%d">%d</a>`, p, p, p)
	}
	builder.WriteString("</nav></body></html>")
	return builder.String()
}
