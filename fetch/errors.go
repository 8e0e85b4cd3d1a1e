package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Failure classification labels, used for metrics and retry decisions.
const (
	KindTimeout     = "timeout"
	KindConnection  = "connection"
	KindForbidden   = "forbidden"
	KindNotFound    = "not_found"
	KindRateLimited = "rate_limited"
	KindHTTP        = "http"
	KindCanceled    = "canceled"
	KindOther       = "other"
)

// FetchError reports a failed page or asset retrieval.
type FetchError struct {
	URL    string
	Status int
	Kind   string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: %s (status %d): %v", e.URL, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// classify maps a transport error and HTTP status to a failure kind.
func classify(err error, statusCode int) string {
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindConnection
	}

	switch statusCode {
	case 0:
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindHTTP
	}

	return KindOther
}

// retryable reports whether a failure kind is worth another attempt.
func retryable(kind string, status int) bool {
	switch kind {
	case KindTimeout, KindConnection, KindRateLimited:
		return true
	case KindHTTP:
		return status >= http.StatusInternalServerError
	default:
		return false
	}
}
