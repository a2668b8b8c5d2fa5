package scraper

import (
	"bytes"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/gocolly/colly/v2"
)

// Fetcher retrieves one URL as a queryable document.
type Fetcher interface {
	Fetch(url string) (*goquery.Document, error)
}

// collyFetcher issues one synchronous colly request per Fetch. Every call
// runs on a clone of the base collector, so callbacks stay per-request while
// the HTTP backend and limit rules are shared.
type collyFetcher struct {
	collector *colly.Collector
	metrics   *Metrics
}

func newCollyFetcher(cfg *config.Config, metrics *Metrics) (*collyFetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: cfg.Parallelism,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	return &collyFetcher{collector: collector, metrics: metrics}, nil
}

// Fetch implements Fetcher. Transport failures and non-2xx responses come
// back classified (ErrTimeout, ErrNotFound, ...).
func (f *collyFetcher) Fetch(rawURL string) (*goquery.Document, error) {
	c := f.collector.Clone()

	var (
		body     []byte
		status   int
		fetchErr error
		start    time.Time
	)
	c.OnRequest(func(r *colly.Request) {
		start = time.Now()
		f.metrics.IncRequest("started")
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
		f.metrics.ObserveDuration(time.Since(start))
		f.metrics.IncRequest(strconv.Itoa(r.StatusCode))
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
		f.metrics.IncRequest("failed")
	})

	if err := c.Visit(rawURL); err != nil {
		return nil, classifyError(err, status)
	}
	if fetchErr != nil {
		return nil, classifyError(fetchErr, status)
	}
	if body == nil {
		return nil, fmt.Errorf("empty response from %s", rawURL)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &ExtractionError{URL: rawURL, Err: fmt.Errorf("parse html: %w", err)}
	}
	return doc, nil
}
