package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-catalog/models"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ValidateProduct reports whether the extractor captured both fields.
// Incomplete products are still kept; callers only count them.
func ValidateProduct(p models.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product missing name")
	}
	if p.Price <= 0 {
		return fmt.Errorf("product missing price for %s", p.Name)
	}
	return nil
}

// NormalizePrice converts free-form price text to a number. Everything but
// ASCII digits and periods is dropped; the first period is the decimal point
// and later periods are discarded while their digits are kept, so
// "12.34.56" becomes 12.3456. Text that still does not parse yields 0.
func NormalizePrice(text string) float64 {
	var b strings.Builder
	b.Grow(len(text))

	seenPoint := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == '.' && !seenPoint:
			b.WriteByte(c)
			seenPoint = true
		}
	}

	value, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return value
}

// PriceCache memoizes NormalizePrice. Catalog pages repeat the same price
// strings heavily, so a small LRU absorbs most of the work. Safe for
// concurrent use.
type PriceCache struct {
	cache *lru.Cache[string, float64]
}

// NewPriceCache builds a cache holding up to size entries.
func NewPriceCache(size int) (*PriceCache, error) {
	if size <= 0 {
		return nil, fmt.Errorf("price cache size must be positive")
	}
	cache, err := lru.New[string, float64](size)
	if err != nil {
		return nil, fmt.Errorf("create price cache: %w", err)
	}
	return &PriceCache{cache: cache}, nil
}

// Normalize returns NormalizePrice(text), consulting the cache first.
// A nil cache normalizes directly.
func (pc *PriceCache) Normalize(text string) float64 {
	if pc == nil {
		return NormalizePrice(text)
	}
	if value, ok := pc.cache.Get(text); ok {
		return value
	}
	value := NormalizePrice(text)
	pc.cache.Add(text, value)
	return value
}

// Len reports the number of cached entries.
func (pc *PriceCache) Len() int {
	if pc == nil {
		return 0
	}
	return pc.cache.Len()
}
