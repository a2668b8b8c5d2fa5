package parser

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/models"
)

// MaxPageCount bounds the page count read from pagination markup.
const MaxPageCount = 10000

var (
	// ErrListingNotFound is returned when a page has no product-listing region.
	ErrListingNotFound = errors.New("parser: product listing not found")
	// ErrNilDocument is returned when extraction is handed no document.
	ErrNilDocument = errors.New("parser: nil document")
)

// ExtractProducts reads every product entry in the listing region of doc.
// Entries without a name or price still produce a Product with the zero
// value for the missing field; nothing is filtered here.
func ExtractProducts(doc *goquery.Document, sel config.Selectors, normalize func(string) float64) ([]models.Product, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}
	if normalize == nil {
		normalize = NormalizePrice
	}

	listing := doc.Find(sel.Listing)
	if listing.Length() == 0 {
		return nil, ErrListingNotFound
	}

	entries := listing.Find(sel.Product)
	products := make([]models.Product, 0, entries.Length())
	entries.Each(func(_ int, entry *goquery.Selection) {
		products = append(products, models.Product{
			Name:  joinText(entry.Find(sel.Name)),
			Price: normalize(joinText(entry.Find(sel.Price))),
		})
	})
	return products, nil
}

// DiscoverPageCount reads the total page count from the param query value
// of the last page link in the pagination region of the first page. Missing
// markup or an unparsable link target means a single-page catalog; counts
// above MaxPageCount are clamped.
func DiscoverPageCount(doc *goquery.Document, sel config.Selectors, param string) int {
	if doc == nil {
		return 1
	}

	nav := doc.Find(sel.Pagination).First()
	if nav.Length() == 0 {
		return 1
	}

	last := nav.Find(sel.PageLink).Last()
	if last.Length() == 0 {
		return 1
	}

	href, ok := last.Attr("href")
	if !ok {
		return 1
	}
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return 1
	}

	pages, err := strconv.Atoi(u.Query().Get(param))
	if err != nil || pages < 1 {
		return 1
	}
	if pages > MaxPageCount {
		return MaxPageCount
	}
	return pages
}

// joinText returns the text of every matched element joined by single
// spaces, with runs of whitespace collapsed.
func joinText(s *goquery.Selection) string {
	parts := make([]string, 0, s.Length())
	s.Each(func(_ int, el *goquery.Selection) {
		if text := strings.Join(strings.Fields(el.Text()), " "); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}
