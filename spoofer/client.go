package spoofer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"paepcke.de/asngap/asnfetch"
	"paepcke.de/asngap/metrics"
)

// defaults
const (
	DefaultBaseURL   = "https://spoofer.caida.org/"
	DefaultQueryPath = "recent_tests.php"
	DefaultCountry   = "ind"
	DefaultMaxPages  = 50
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"

	_maxPageSize = 16 << 20
)

// ErrFetch wraps a page fetch that failed after all retries
var ErrFetch = errors.New("page fetch failed")

// ErrWaitDeadline is returned when the rate limit delay would outlast the ctx deadline
var ErrWaitDeadline = errors.New("rate limit wait exceeds deadline")

// TableFetcher fetches and parses one result page
type TableFetcher interface {
	FetchPage(ctx context.Context, pageURL string) (*Page, error)
}

// HTTPOptions ...
type HTTPOptions struct {
	BaseURL   string        // next links are resolved against it
	UserAgent string        // request user agent
	Timeout   time.Duration // per request timeout
	Rate      float64       // page requests per second, shared, <= 0 disables the limit
	Client    *http.Client  // optional, replaces the default client
}

// HTTPFetcher is the TableFetcher for the live site
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	base      *url.URL
	limiter   *rate.Limiter
}

// NewHTTPFetcher ...
func NewHTTPFetcher(opt HTTPOptions) (*HTTPFetcher, error) {
	if opt.BaseURL == "" {
		opt.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(opt.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("[spoofer] invalid base url: %w", err)
	}
	if opt.UserAgent == "" {
		opt.UserAgent = DefaultUserAgent
	}
	client := opt.Client
	if client == nil {
		client = asnfetch.NewClient(opt.Timeout, true)
	}
	h := &HTTPFetcher{
		client:    client,
		userAgent: opt.UserAgent,
		base:      base,
	}
	if opt.Rate > 0 {
		h.limiter = rate.NewLimiter(rate.Limit(opt.Rate), 1)
	}
	return h, nil
}

// FetchPage ...
func (h *HTTPFetcher) FetchPage(ctx context.Context, pageURL string) (*Page, error) {
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			// the limiter refuses early when the next token lies past the deadline
			if ctx.Err() == nil {
				err = fmt.Errorf("%w: %w", ErrWaitDeadline, err)
			}
			return nil, asnfetch.Permanent(err)
		}
	}
	resp, err := asnfetch.Get(ctx, h.client, pageURL, h.userAgent)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return ParsePage(io.LimitReader(resp.Body, _maxPageSize), h.base)
}

// Options are shared by the Classifier and the Dumper
type Options struct {
	BaseURL   string         // site root
	QueryPath string         // result table path below BaseURL
	Country   string         // spoofer country filter, e.g. "ind"
	MaxPages  int            // pagination bound per walk
	Retry     asnfetch.Retry // page fetch retry policy
	Log       logrus.FieldLogger
	Metrics   *metrics.Metrics
}

// scraper is the paginated walk common to classification and dump
type scraper struct {
	fetcher  TableFetcher
	base     *url.URL
	path     string
	country  string
	maxPages int
	retry    asnfetch.Retry
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
}

// newScraper ...
func newScraper(f TableFetcher, opt Options) (scraper, error) {
	if opt.BaseURL == "" {
		opt.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(opt.BaseURL)
	if err != nil {
		return scraper{}, fmt.Errorf("[spoofer] invalid base url: %w", err)
	}
	if opt.QueryPath == "" {
		opt.QueryPath = DefaultQueryPath
	}
	if opt.Country == "" {
		opt.Country = DefaultCountry
	}
	if opt.MaxPages < 1 {
		opt.MaxPages = DefaultMaxPages
	}
	if opt.Log == nil {
		opt.Log = logrus.StandardLogger()
	}
	return scraper{
		fetcher:  f,
		base:     base,
		path:     strings.TrimPrefix(opt.QueryPath, "/"),
		country:  opt.Country,
		maxPages: opt.MaxPages,
		retry:    opt.Retry,
		log:      opt.Log,
		metrics:  opt.Metrics,
	}, nil
}

// pageURL builds the first result page url for an as filter ("" = all)
func (s *scraper) pageURL(asInclude string) string {
	u := s.base.ResolveReference(&url.URL{Path: s.path})
	q := url.Values{}
	q.Set("as_include", asInclude)
	q.Set("country_include", s.country)
	u.RawQuery = q.Encode()
	return u.String()
}

// fetch retrieves one page under the retry policy
func (s *scraper) fetch(ctx context.Context, log logrus.FieldLogger, pageURL string) (*Page, error) {
	retry := s.retry
	retry.Notify = func(err error, attempt int, wait time.Duration) {
		log.WithFields(logrus.Fields{
			"url":     pageURL,
			"attempt": attempt,
			"wait":    wait,
		}).WithError(err).Warn("page fetch failed, retrying")
		if s.retry.Notify != nil {
			s.retry.Notify(err, attempt, wait)
		}
	}
	var page *Page
	err := retry.Do(ctx, func() (err error) {
		page, err = s.fetcher.FetchPage(ctx, pageURL)
		if err != nil {
			s.metrics.PageFetch("error")
			return err
		}
		s.metrics.PageFetch("ok")
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w [%s]: %w", ErrFetch, pageURL, err)
	}
	return page, nil
}

// walk visits result pages starting at first until visit returns true,
// the last page is reached, a next link repeats or maxPages is hit
func (s *scraper) walk(ctx context.Context, log logrus.FieldLogger, first string, visit func(n int, p *Page) bool) error {
	visited := make(map[string]bool)
	next := first
	for n := 0; next != ""; n++ {
		if n >= s.maxPages {
			log.WithField("pages", n).Warn("page limit reached, stop following next links")
			return nil
		}
		if visited[next] {
			log.WithField("url", next).Warn("next link cycles, stop following")
			return nil
		}
		visited[next] = true
		page, err := s.fetch(ctx, log, next)
		if err != nil {
			return err
		}
		if visit(n, page) {
			return nil
		}
		next = page.Next
	}
	return nil
}
