package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/aluiziolira/go-scrape-catalog/parser"
)

// Scraper drives a full catalog scrape: the first page decides the page
// count, then the coordinator fans out over every page.
type Scraper struct {
	cfg         *config.Config
	fetcher     *collyFetcher
	prices      *parser.PriceCache
	coordinator *Coordinator
	Metrics     *Metrics
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	metrics := NewMetrics()

	fetcher, err := newCollyFetcher(cfg, metrics)
	if err != nil {
		return nil, err
	}

	var prices *parser.PriceCache
	if cfg.PriceCacheSize > 0 {
		prices, err = parser.NewPriceCache(cfg.PriceCacheSize)
		if err != nil {
			return nil, err
		}
	}

	s := &Scraper{
		cfg:     cfg,
		fetcher: fetcher,
		prices:  prices,
		Metrics: metrics,
	}
	s.coordinator = NewCoordinator(fetcher, s.extract, cfg, metrics)
	return s, nil
}

// Run fetches the first page, discovers the page count and scrapes every
// page. Only a failure on the first page is returned as an error; page-level
// failures are recorded in the outcome.
func (s *Scraper) Run(ctx context.Context) (*models.ScrapeOutcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	first, err := s.fetcher.Fetch(s.cfg.BaseURL)
	if err != nil {
		s.Metrics.IncError(errorTypeLabel(err))
		return nil, fmt.Errorf("fetch first page: %w", err)
	}

	pages := parser.DiscoverPageCount(first, s.cfg.Selectors, s.cfg.PageParam)
	if s.cfg.MaxPages > 0 && pages > s.cfg.MaxPages {
		slog.Info("capping page count",
			slog.Int("discovered", pages),
			slog.Int("max_pages", s.cfg.MaxPages),
		)
		pages = s.cfg.MaxPages
	}
	slog.Info("discovered catalog pages", slog.Int("pages", pages))

	outcome := s.coordinator.Run(ctx, s.cfg.BaseURL, pages, s.cfg.Parallelism)
	outcome.StartTime = start
	outcome.RequestCount++
	return outcome, nil
}

func (s *Scraper) extract(doc *goquery.Document) ([]models.Product, error) {
	return parser.ExtractProducts(doc, s.cfg.Selectors, s.prices.Normalize)
}
