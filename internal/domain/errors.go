package domain

import (
	"errors"
	"fmt"
)

// ErrMalformedFeed reports a payload that does not match the feed schema.
var ErrMalformedFeed = errors.New("malformed feed")

// NetworkError wraps a transport failure while fetching the feed.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError reports a non-success status from the feed.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

// Fetch error classes, used as log fields and metric labels.
const (
	FailureNetwork   = "network"
	FailureHTTP      = "http"
	FailureMalformed = "malformed"
	FailureUnknown   = "unknown"
)

// ClassifyFetchError maps a fetch-cycle error to its failure class.
func ClassifyFetchError(err error) string {
	var netErr *NetworkError
	var httpErr *HTTPError
	switch {
	case errors.Is(err, ErrMalformedFeed):
		return FailureMalformed
	case errors.As(err, &httpErr):
		return FailureHTTP
	case errors.As(err, &netErr):
		return FailureNetwork
	default:
		return FailureUnknown
	}
}
