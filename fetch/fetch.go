// Package fetch is the sole network-facing primitive of the harvester.
// Every other component retrieves pages and assets through a Client.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/rsilveira/bookharvest/config"
	"github.com/rsilveira/bookharvest/metrics"
)

const resultKey = "fetch_result"

// result carries the response of one collector request back to the
// caller through the colly request context.
type result struct {
	body   []byte
	status int
	err    error
}

// Client wraps a colly collector behind a synchronous fetch interface.
type Client struct {
	cfg       *config.Config
	collector *colly.Collector
	metrics   *metrics.Metrics
}

// NewClient builds a fetch client configured from cfg.
func NewClient(cfg *config.Config, m *metrics.Metrics) (*Client, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	c := &Client{
		cfg:       cfg,
		collector: collector,
		metrics:   m,
	}

	collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
		m.IncRequest()
	})

	collector.OnResponse(func(r *colly.Response) {
		if res, ok := r.Ctx.GetAny(resultKey).(*result); ok {
			res.body = r.Body
			res.status = r.StatusCode
		}
		if start, ok := r.Ctx.GetAny("start").(time.Time); ok {
			m.ObserveDuration(time.Since(start))
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r == nil || r.Request == nil || r.Request.Ctx == nil {
			return
		}
		res, ok := r.Request.Ctx.GetAny(resultKey).(*result)
		if !ok {
			return
		}
		res.err = err
		res.status = r.StatusCode
	})

	return c, nil
}

// WithTransport swaps the underlying HTTP transport.
func (c *Client) WithTransport(rt http.RoundTripper) {
	c.collector.WithTransport(rt)
}

// Document fetches a URL and returns its parsed HTML document.
func (c *Client) Document(ctx context.Context, rawURL string) (*goquery.Document, error) {
	body, err := c.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Kind: KindOther, Err: fmt.Errorf("parse document: %w", err)}
	}
	return doc, nil
}

// Bytes fetches a URL and returns the raw response body.
func (c *Client) Bytes(ctx context.Context, rawURL string) ([]byte, error) {
	return c.fetch(ctx, rawURL)
}

func (c *Client) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr *FetchError

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			c.metrics.IncRetries()
			if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
				return nil, &FetchError{URL: rawURL, Kind: KindCanceled, Err: err}
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, &FetchError{URL: rawURL, Kind: KindCanceled, Err: err}
		}

		res := &result{}
		cctx := colly.NewContext()
		cctx.Put(resultKey, res)

		reqErr := c.collector.Request(http.MethodGet, rawURL, nil, cctx, nil)
		if res.err == nil && reqErr == nil {
			return res.body, nil
		}

		err := res.err
		if err == nil {
			err = reqErr
		}
		kind := classify(err, res.status)
		c.metrics.IncFetchError(kind)
		lastErr = &FetchError{URL: rawURL, Status: res.status, Kind: kind, Err: err}

		if !retryable(kind, res.status) {
			break
		}
		slog.Debug("retrying fetch",
			slog.String("url", rawURL),
			slog.Int("attempt", attempt+1),
			slog.String("kind", kind),
		)
	}

	return nil, lastErr
}

func (c *Client) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := c.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := c.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
