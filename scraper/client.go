// Package scraper downloads weather-station observations from the ARSO
// meteorological archive and writes them as CSV files that the experiment
// can load.
//
// The archive answers with XML documents wrapping a JavaScript object
// literal. Station lists come from locations.xml, observations from data.xml
// (half-hourly for automatic stations, daily for the others).
package scraper

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/YuminosukeSato/treeprimer/pkg/errors"
	"github.com/YuminosukeSato/treeprimer/pkg/log"
)

// DefaultBaseURL is the public archive endpoint.
const DefaultBaseURL = "https://meteo.arso.gov.si/webmet/archive"

// DateLayout is the date format the archive expects in d1/d2.
const DateLayout = "2006-01-02"

const userAgent = "treeprimer-arsoscrape/1.0"

// Client fetches archive documents. Requests are throttled by a token bucket
// shared by every goroutine using the client.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another archive root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default HTTP client (60s timeout).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRateLimit limits requests to rps per second with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client with 2 requests per second by default.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(2), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.GetLoggerWithName("scraper")
	}
	return c
}

// fetch GETs baseURL/path?query and returns the body as text.
func (c *Client) fetch(ctx context.Context, path string, query url.Values) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", errors.Wrap(err, "rate limiter")
	}

	target := c.baseURL + "/" + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", errors.Wrapf(err, "build request %s", path)
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "GET %s", path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrapf(err, "read %s", path)
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf("GET %s: status %d", path, resp.StatusCode)
	}

	c.logger.Debug("Archive document fetched",
		"path", path,
		"status", resp.StatusCode,
		"bytes", len(body),
		log.DurationMsKey, time.Since(start).Milliseconds())
	return string(body), nil
}
