// Package report turns scraped products into statistics, a price ranking
// and the CSV/JSON/chart artifacts built from them.
package report

import (
	"sort"

	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/aluiziolira/go-scrape-catalog/parser"
)

// DefaultTopN is the size of the most-expensive list when none is configured.
const DefaultTopN = 5

// Report is the summary of one scrape.
type Report struct {
	Count      int
	Incomplete int
	Average    float64
	Min        float64
	Max        float64
	// Ranked holds every product by descending price; equal prices keep
	// their aggregation order.
	Ranked []models.Product
	Top    []models.Product
}

// Build computes statistics over products and selects the topN most
// expensive. An empty input yields zero statistics and an empty top list.
// The input slice is not modified.
func Build(products []models.Product, topN int) Report {
	if topN < 0 {
		topN = 0
	}

	r := Report{
		Count:  len(products),
		Ranked: make([]models.Product, len(products)),
		Top:    []models.Product{},
	}
	copy(r.Ranked, products)
	if len(products) == 0 {
		return r
	}

	sum := 0.0
	r.Min = products[0].Price
	r.Max = products[0].Price
	for _, p := range products {
		sum += p.Price
		if p.Price < r.Min {
			r.Min = p.Price
		}
		if p.Price > r.Max {
			r.Max = p.Price
		}
		if parser.ValidateProduct(p) != nil {
			r.Incomplete++
		}
	}
	r.Average = sum / float64(len(products))

	sort.SliceStable(r.Ranked, func(i, j int) bool {
		return r.Ranked[i].Price > r.Ranked[j].Price
	})
	if topN > len(r.Ranked) {
		topN = len(r.Ranked)
	}
	r.Top = r.Ranked[:topN:topN]
	return r
}
