// Package models defines data structures for the scraper.
package models

import "time"

// Product is a single catalog entry extracted from a listing page.
type Product struct {
	Name  string  `csv:"name" json:"name"`
	Price float64 `csv:"price" json:"price"`
}

// PageState tracks a page-task through Pending -> Fetching -> Extracted | Failed.
type PageState string

const (
	PagePending   PageState = "pending"
	PageFetching  PageState = "fetching"
	PageExtracted PageState = "extracted"
	PageFailed    PageState = "failed"
)

// PageFailure records why a page contributed no products.
type PageFailure struct {
	Page int
	URL  string
	Err  error
}

// ScrapeOutcome holds the aggregate of a catalog scrape.
type ScrapeOutcome struct {
	Products     []Product
	Failures     []PageFailure
	PageCount    int
	Skipped      int // never dispatched because the run was cancelled
	RequestCount int
	RetryCount   int
	ErrorsByType map[string]int
	StartTime    time.Time
	EndTime      time.Time
}

// Succeeded returns the number of pages that were extracted.
func (o *ScrapeOutcome) Succeeded() int {
	if o == nil {
		return 0
	}
	return o.PageCount - len(o.Failures) - o.Skipped
}

// Duration is the wall time of the scrape.
func (o *ScrapeOutcome) Duration() time.Duration {
	if o == nil || o.EndTime.Before(o.StartTime) {
		return 0
	}
	return o.EndTime.Sub(o.StartTime)
}
