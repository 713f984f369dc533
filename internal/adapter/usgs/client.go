package usgs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/quake-monitor-service/internal/domain"
	"github.com/couchcryptid/quake-monitor-service/internal/observability"
)

// maxPayloadBytes bounds the body read from the feed; the month feed is
// typically 5–10 MB.
const maxPayloadBytes = 64 << 20

// Client fetches and normalizes USGS GeoJSON summary feeds.
// It implements scheduler.Fetcher.
type Client struct {
	baseURL    string
	httpClient *http.Client
	geocoder   domain.Geocoder
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a feed client. Pass a nil geocoder to disable place
// enrichment.
func NewClient(baseURL string, timeout time.Duration, geocoder domain.Geocoder, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		geocoder: geocoder,
		metrics:  metrics,
		logger:   logger,
	}
}

// FeedURL returns the summary document URL for a time range.
func (c *Client) FeedURL(r domain.TimeRange) string {
	return fmt.Sprintf("%s/summary/%s", c.baseURL, r.FeedName())
}

// Fetch downloads the feed for r and returns its quakes in feed order.
// Transport failures return *domain.NetworkError, non-2xx responses
// *domain.HTTPError, and undecodable bodies wrap domain.ErrMalformedFeed.
func (c *Client) Fetch(ctx context.Context, r domain.TimeRange) ([]domain.Quake, error) {
	body, err := c.download(ctx, c.FeedURL(r))
	if err != nil {
		return nil, err
	}

	quakes, err := domain.Normalize(body)
	if err != nil {
		return nil, err
	}
	return domain.EnrichPlaces(ctx, quakes, c.geocoder, c.logger), nil
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.FeedRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FeedRequests.WithLabelValues("error").Inc()
		return nil, &domain.NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.FeedRequests.WithLabelValues("error").Inc()
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10)) //nolint:errcheck // drain for connection reuse
		return nil, &domain.HTTPError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		c.metrics.FeedRequests.WithLabelValues("error").Inc()
		return nil, &domain.NetworkError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}

	c.metrics.FeedRequests.WithLabelValues("success").Inc()
	return body, nil
}
