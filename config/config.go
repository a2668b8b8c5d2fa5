package config

import (
	"fmt"
	"net/url"
	"time"
)

// Selectors are the CSS queries used to read the catalog markup.
type Selectors struct {
	Listing    string `yaml:"listing"`
	Product    string `yaml:"product"`
	Name       string `yaml:"name"`
	Price      string `yaml:"price"`
	Pagination string `yaml:"pagination"`
	PageLink   string `yaml:"page_link"`
}

// Config holds scraper configuration.
type Config struct {
	BaseURL          string        `yaml:"base_url"`
	PageParam        string        `yaml:"page_param"`
	MaxPages         int           `yaml:"max_pages"`
	Parallelism      int           `yaml:"parallelism"`
	TopN             int           `yaml:"top_n"`
	Timeout          time.Duration `yaml:"timeout"`
	MaxRetries       int           `yaml:"max_retries"`
	RetryBackoff     time.Duration `yaml:"retry_backoff"`
	RetryBackoffMax  time.Duration `yaml:"retry_backoff_max"`
	PriceCacheSize   int           `yaml:"price_cache_size"`
	OutputFile       string        `yaml:"output_file"`
	OutputFormat     string        `yaml:"output_format"` // csv, json, or dual
	ChartFile        string        `yaml:"chart_file"`
	ChartWidth       int           `yaml:"chart_width"`
	ChartHeight      int           `yaml:"chart_height"`
	UserAgent        string        `yaml:"user_agent"`
	Verbose          bool          `yaml:"verbose"`
	RespectRobotsTxt bool          `yaml:"respect_robots_txt"`
	MetricsAddr      string        `yaml:"metrics_addr"`
	Selectors        Selectors     `yaml:"selectors"`
}

// DefaultSelectors match the H&M product listing markup.
func DefaultSelectors() Selectors {
	return Selectors{
		Listing:    "div#products-listing-section",
		Product:    "li article",
		Name:       "h2",
		Price:      "p",
		Pagination: "nav[aria-label=Pagination]",
		PageLink:   `a[aria-label^="Go to page"]`,
	}
}

// DefaultConfig returns the defaults for the demo catalog.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:          "https://www2.hm.com/en_gb/ladies/shop-by-product/dresses.html",
		PageParam:        "page",
		MaxPages:         0,
		Parallelism:      10,
		TopN:             5,
		Timeout:          30 * time.Second,
		MaxRetries:       0,
		RetryBackoff:     200 * time.Millisecond,
		RetryBackoffMax:  2 * time.Second,
		PriceCacheSize:   1024,
		OutputFile:       "products.csv",
		OutputFormat:     "csv",
		ChartFile:        "",
		ChartWidth:       800,
		ChartHeight:      600,
		UserAgent:        "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Verbose:          false,
		RespectRobotsTxt: false,
		Selectors:        DefaultSelectors(),
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}
	if c.PageParam == "" {
		return fmt.Errorf("page param cannot be empty")
	}

	if c.MaxPages < 0 {
		return fmt.Errorf("max pages cannot be negative")
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.TopN <= 0 {
		return fmt.Errorf("top n must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.PriceCacheSize < 0 {
		return fmt.Errorf("price cache size cannot be negative")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.ChartWidth <= 0 || c.ChartHeight <= 0 {
		return fmt.Errorf("chart dimensions must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if err := c.Selectors.validate(); err != nil {
		return err
	}

	return nil
}

// ChartPath is ChartFile, or a name derived from TopN when it is unset.
func (c *Config) ChartPath() string {
	if c.ChartFile != "" {
		return c.ChartFile
	}
	return fmt.Sprintf("top_%d_expensive_products_chart.png", c.TopN)
}

func (s Selectors) validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"listing", s.Listing},
		{"product", s.Product},
		{"name", s.Name},
		{"price", s.Price},
		{"pagination", s.Pagination},
		{"page link", s.PageLink},
	}
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("%s selector cannot be empty", f.name)
		}
	}
	return nil
}
