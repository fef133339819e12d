package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"mediacatalog/internal/tracing"
)

// ShowItem is one record of the shows feed
type ShowItem struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	FirstAired  string   `json:"first_aired"`
	IMDbRating  *float64 `json:"imdb_rating"`
}

// MovieItem is one record of the movies feed
type MovieItem struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	ReleaseYear *int     `json:"release_year"`
	IMDbRating  *float64 `json:"imdb_rating"`
}

// FeedClient downloads the JSON feeds
type FeedClient struct {
	httpClient *http.Client
	userAgent  string
}

// NewFeedClient creates a feed client with the given request timeout
func NewFeedClient(timeout time.Duration, userAgent string) *FeedClient {
	return &FeedClient{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
	}
}

// FetchShows downloads and decodes the shows feed
func (c *FeedClient) FetchShows(ctx context.Context, url string) ([]ShowItem, error) {
	var items []ShowItem
	if err := c.fetch(ctx, url, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// FetchMovies downloads and decodes the movies feed
func (c *FeedClient) FetchMovies(ctx context.Context, url string) ([]MovieItem, error) {
	var items []MovieItem
	if err := c.fetch(ctx, url, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *FeedClient) fetch(ctx context.Context, url string, out interface{}) (err error) {
	ctx, span := tracing.StartSpan(ctx, "feed.fetch", attribute.String("feed.url", url))
	defer func() { tracing.EndSpan(span, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrapf(err, "build feed request for %s", url)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "fetch feed %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("fetch feed %s: unexpected status %d", url, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode feed %s", url)
	}
	return nil
}
