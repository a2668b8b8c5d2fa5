package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/models"
)

// Extractor turns one fetched page into products.
type Extractor func(doc *goquery.Document) ([]models.Product, error)

// Coordinator fetches and extracts catalog pages on a fixed-size worker
// pool. A failing page is recorded and contributes no products; it never
// stops its siblings.
type Coordinator struct {
	fetcher   Fetcher
	extract   Extractor
	pageParam string
	retry     retryPolicy
	metrics   *Metrics
}

// NewCoordinator wires a coordinator. metrics may be nil.
func NewCoordinator(fetcher Fetcher, extract Extractor, cfg *config.Config, metrics *Metrics) *Coordinator {
	return &Coordinator{
		fetcher:   fetcher,
		extract:   extract,
		pageParam: cfg.PageParam,
		retry:     newRetryPolicy(cfg),
		metrics:   metrics,
	}
}

type pageResult struct {
	page     int
	url      string
	products []models.Product
	attempts int
	err      error
}

type run struct {
	baseURL   string
	total     int
	tasks     chan int
	results   chan pageResult
	completed atomic.Int64
}

// Run scrapes pages 0..pageCount-1 of baseURL with at most workers page-tasks
// in flight and returns once every dispatched task has finished. Memory held
// by Run grows with completed pages, not with pageCount. Cancelling ctx stops
// dispatching; tasks already running are not interrupted and the
// undispatched pages are counted in Skipped.
func (c *Coordinator) Run(ctx context.Context, baseURL string, pageCount, workers int) *models.ScrapeOutcome {
	if ctx == nil {
		ctx = context.Background()
	}
	if pageCount < 0 {
		pageCount = 0
	}

	outcome := &models.ScrapeOutcome{
		PageCount:    pageCount,
		ErrorsByType: make(map[string]int),
		StartTime:    time.Now(),
	}
	if pageCount == 0 {
		outcome.EndTime = time.Now()
		return outcome
	}

	if workers <= 0 {
		workers = 1
	}
	if workers > pageCount {
		workers = pageCount
	}

	r := &run{
		baseURL: baseURL,
		total:   pageCount,
		tasks:   make(chan int),
		results: make(chan pageResult, workers),
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go c.worker(ctx, &wg, r)
	}

	// Products are held per page so the merged order follows page order,
	// not completion order.
	byPage := make(map[int][]models.Product)
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for res := range r.results {
			c.merge(outcome, byPage, res)
		}
	}()

	dispatched := 0
dispatch:
	for page := 0; page < pageCount; page++ {
		if ctx.Err() != nil {
			break
		}
		select {
		case r.tasks <- page:
			dispatched++
		case <-ctx.Done():
			break dispatch
		}
	}
	close(r.tasks)
	wg.Wait()
	close(r.results)
	<-collected

	if skipped := pageCount - dispatched; skipped > 0 {
		outcome.Skipped = skipped
		outcome.ErrorsByType[errorTypeLabel(ctx.Err())] += skipped
		slog.Warn("scrape stopped before every page was dispatched",
			slog.Int("skipped", skipped),
			slog.Any("error", ctx.Err()),
		)
	}

	pages := make([]int, 0, len(byPage))
	for page := range byPage {
		pages = append(pages, page)
	}
	sort.Ints(pages)
	for _, page := range pages {
		outcome.Products = append(outcome.Products, byPage[page]...)
	}
	sort.Slice(outcome.Failures, func(i, j int) bool {
		return outcome.Failures[i].Page < outcome.Failures[j].Page
	})
	outcome.EndTime = time.Now()
	return outcome
}

func (c *Coordinator) worker(ctx context.Context, wg *sync.WaitGroup, r *run) {
	defer wg.Done()

	for page := range r.tasks {
		res := c.scrapePage(ctx, r.baseURL, page)
		if res.err != nil {
			c.metrics.IncPage(models.PageFailed)
			slog.Error("page failed",
				slog.Int("page", page),
				slog.String("url", res.url),
				slog.String("category", errorTypeLabel(res.err)),
				slog.Any("error", res.err),
			)
		} else {
			c.metrics.IncPage(models.PageExtracted)
			c.metrics.AddProducts(len(res.products))
			slog.Debug("page extracted",
				slog.Int("page", page),
				slog.Int("products", len(res.products)),
			)
		}

		if done := r.completed.Add(1); done%10 == 0 {
			slog.Info("scrape progress",
				slog.Int64("pages_done", done),
				slog.Int("pages_total", r.total),
			)
		}
		r.results <- res
	}
}

func (c *Coordinator) scrapePage(ctx context.Context, baseURL string, page int) (res pageResult) {
	res.page = page
	res.url = PageURL(baseURL, c.pageParam, page)
	slog.Debug("page task", slog.Int("page", page), slog.String("state", string(models.PageFetching)))

	defer func() {
		if p := recover(); p != nil {
			res.products = nil
			res.err = &ExtractionError{Page: page, URL: res.url, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	doc, attempts, err := c.fetch(ctx, res.url)
	res.attempts = attempts
	if err != nil {
		var extraction *ExtractionError
		if errors.As(err, &extraction) {
			res.err = &ExtractionError{Page: page, URL: res.url, Err: extraction.Err}
			return res
		}
		res.err = &FetchError{Page: page, URL: res.url, Err: err}
		return res
	}

	products, err := c.extract(doc)
	if err != nil {
		res.err = &ExtractionError{Page: page, URL: res.url, Err: err}
		return res
	}
	res.products = products
	return res
}

// fetch performs the first attempt plus any retries the policy allows and
// reports how many requests were issued.
func (c *Coordinator) fetch(ctx context.Context, pageURL string) (*goquery.Document, int, error) {
	for attempt := 0; ; attempt++ {
		doc, err := c.fetcher.Fetch(pageURL)
		if err == nil {
			return doc, attempt + 1, nil
		}
		c.metrics.IncError(errorTypeLabel(err))
		if !c.retry.shouldRetry(attempt, err) {
			return nil, attempt + 1, err
		}

		c.metrics.IncRetries()
		slog.Debug("retrying page",
			slog.String("url", pageURL),
			slog.Int("attempt", attempt+1),
			slog.Any("error", err),
		)
		if !c.retry.wait(ctx, attempt+1) {
			return nil, attempt + 1, err
		}
	}
}

func (c *Coordinator) merge(outcome *models.ScrapeOutcome, byPage map[int][]models.Product, res pageResult) {
	outcome.RequestCount += res.attempts
	if res.attempts > 1 {
		outcome.RetryCount += res.attempts - 1
	}
	if res.err != nil {
		outcome.Failures = append(outcome.Failures, models.PageFailure{
			Page: res.page,
			URL:  res.url,
			Err:  res.err,
		})
		outcome.ErrorsByType[errorTypeLabel(res.err)]++
		return
	}
	byPage[res.page] = res.products
}

// PageURL derives the URL of the 0-based page index: baseURL with param set
// to page+1.
func PageURL(baseURL, param string, page int) string {
	n := strconv.Itoa(page + 1)

	u, err := url.Parse(baseURL)
	if err != nil {
		sep := "?"
		if strings.Contains(baseURL, "?") {
			sep = "&"
		}
		return baseURL + sep + param + "=" + n
	}

	q := u.Query()
	q.Set(param, n)
	u.RawQuery = q.Encode()
	return u.String()
}
