package fetch

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/rsilveira/bookharvest/config"
	"github.com/rsilveira/bookharvest/metrics"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.BaseURL = "http://example.test/"
	cfg.MaxRetries = 0
	cfg.RetryBackoff = time.Millisecond
	cfg.RetryBackoffMax = 5 * time.Millisecond
	return cfg
}

func newTestClient(t *testing.T, cfg *config.Config) (*Client, *httpmock.MockTransport) {
	t.Helper()
	client, err := NewClient(cfg, metrics.New())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	transport := httpmock.NewMockTransport()
	client.WithTransport(transport)
	return client, transport
}

func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(200, body)
	resp.Header.Set("Content-Type", "text/html")
	return httpmock.ResponderFromResponse(resp)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
	}{
		{name: "context timeout", err: context.DeadlineExceeded, statusCode: 0, expected: KindTimeout},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, statusCode: 0, expected: KindTimeout},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, statusCode: 0, expected: KindConnection},
		{name: "canceled", err: context.Canceled, statusCode: 0, expected: KindCanceled},
		{name: "forbidden", err: errors.New("forbidden"), statusCode: http.StatusForbidden, expected: KindForbidden},
		{name: "not found", err: errors.New("not found"), statusCode: http.StatusNotFound, expected: KindNotFound},
		{name: "rate limited", err: errors.New("too many requests"), statusCode: http.StatusTooManyRequests, expected: KindRateLimited},
		{name: "server error", err: errors.New("internal"), statusCode: http.StatusInternalServerError, expected: KindHTTP},
		{name: "other", err: errors.New("some other error"), statusCode: 0, expected: KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err, tt.statusCode); got != tt.expected {
				t.Fatalf("classify(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		kind     string
		status   int
		expected bool
	}{
		{kind: KindTimeout, expected: true},
		{kind: KindConnection, expected: true},
		{kind: KindRateLimited, status: http.StatusTooManyRequests, expected: true},
		{kind: KindHTTP, status: http.StatusInternalServerError, expected: true},
		{kind: KindHTTP, status: http.StatusBadRequest, expected: false},
		{kind: KindNotFound, status: http.StatusNotFound, expected: false},
		{kind: KindForbidden, status: http.StatusForbidden, expected: false},
		{kind: KindCanceled, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			if got := retryable(tt.kind, tt.status); got != tt.expected {
				t.Fatalf("retryable(%q, %d) = %v, want %v", tt.kind, tt.status, got, tt.expected)
			}
		})
	}
}

func TestDocumentParsesHTML(t *testing.T) {
	cfg := testConfig()
	client, transport := newTestClient(t, cfg)
	transport.RegisterResponder("GET", "http://example.test/page.html",
		htmlResponder(`<html><body><h1>Travel</h1></body></html>`))

	doc, err := client.Document(context.Background(), "http://example.test/page.html")
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	if got := doc.Find("h1").Text(); got != "Travel" {
		t.Fatalf("h1 = %q, want %q", got, "Travel")
	}
}

func TestDocumentNotFound(t *testing.T) {
	cfg := testConfig()
	client, transport := newTestClient(t, cfg)
	transport.RegisterResponder("GET", "http://example.test/missing.html",
		httpmock.NewStringResponder(http.StatusNotFound, ""))

	_, err := client.Document(context.Background(), "http://example.test/missing.html")
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if fetchErr.Kind != KindNotFound {
		t.Fatalf("kind = %q, want %q", fetchErr.Kind, KindNotFound)
	}
	if fetchErr.Status != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", fetchErr.Status, http.StatusNotFound)
	}
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 2
	client, transport := newTestClient(t, cfg)

	calls := 0
	transport.RegisterResponder("GET", "http://example.test/flaky.html",
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return httpmock.NewStringResponse(http.StatusInternalServerError, ""), nil
			}
			resp := httpmock.NewStringResponse(200, "<html><body>ok</body></html>")
			resp.Header.Set("Content-Type", "text/html")
			return resp, nil
		})

	body, err := client.Bytes(context.Background(), "http://example.test/flaky.html")
	if err != nil {
		t.Fatalf("bytes after retries: %v", err)
	}
	if len(body) == 0 {
		t.Fatalf("expected non-empty body")
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestFetchDoesNotRetryNotFound(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 3
	client, transport := newTestClient(t, cfg)

	calls := 0
	transport.RegisterResponder("GET", "http://example.test/gone.html",
		func(req *http.Request) (*http.Response, error) {
			calls++
			return httpmock.NewStringResponse(http.StatusNotFound, ""), nil
		})

	if _, err := client.Bytes(context.Background(), "http://example.test/gone.html"); err == nil {
		t.Fatalf("expected fetch error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (404 must not be retried)", calls)
	}
}

func TestFetchHonorsCancelledContext(t *testing.T) {
	cfg := testConfig()
	client, transport := newTestClient(t, cfg)
	transport.RegisterResponder("GET", "http://example.test/page.html",
		htmlResponder("<html></html>"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Document(ctx, "http://example.test/page.html")
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Kind != KindCanceled {
		t.Fatalf("expected canceled fetch error, got %v", err)
	}
}
