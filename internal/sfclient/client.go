// Package sfclient reads position and employment data from the external HR
// source over its OData v2 query surface.
package sfclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"vacancy-report-service/internal/telemetry"
)

// FetchError wraps a failed call against the HR source. Status is the HTTP
// status code when the source answered, zero otherwise.
type FetchError struct {
	Resource string
	Status   int
	Err      error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: source returned status %d", e.Resource, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.Resource, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client issues read-only queries against the HR source. It does not retry;
// retry policy belongs to callers.
type Client struct {
	baseURL  string
	http     *http.Client
	username string
	password string
	log      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBasicAuth attaches credentials to every request. Empty values leave
// requests unauthenticated.
func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithTimeout bounds each individual page request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New creates a client rooted at baseURL (e.g. "https://host/odata/v2").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope matches the source's OData v2 response body.
type envelope struct {
	D struct {
		Results []json.RawMessage `json:"results"`
	} `json:"d"`
}

// Get issues a single query and returns the raw result rows.
func (c *Client) Get(ctx context.Context, q Query) ([]json.RawMessage, error) {
	u := c.baseURL + "/" + q.Resource
	if qs := q.encode(); qs != "" {
		u += "?" + qs
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &FetchError{Resource: q.Resource, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	telemetry.SourceRequests.Inc()
	resp, err := c.http.Do(req)
	if err != nil {
		telemetry.SourceErrors.Inc()
		return nil, &FetchError{Resource: q.Resource, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		telemetry.SourceErrors.Inc()
		return nil, &FetchError{Resource: q.Resource, Status: resp.StatusCode}
	}

	var body envelope
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		telemetry.SourceErrors.Inc()
		return nil, &FetchError{Resource: q.Resource, Err: fmt.Errorf("decode response: %w", err)}
	}
	return body.D.Results, nil
}

// FetchAll pages through q with pageSize rows per request, accumulating all
// rows. A page shorter than pageSize signals end-of-data; when the row
// count is an exact multiple of the page size the final, empty page is
// still requested.
func (c *Client) FetchAll(ctx context.Context, q Query, pageSize int) ([]json.RawMessage, error) {
	var all []json.RawMessage
	q.Paged = true
	q.Top = pageSize
	for skip := 0; ; skip += pageSize {
		q.Skip = skip
		rows, err := c.Get(ctx, q)
		if err != nil {
			return nil, err
		}
		c.log.Debug("fetched page", "resource", q.Resource, "skip", skip, "rows", len(rows))
		all = append(all, rows...)
		if len(rows) < pageSize {
			break
		}
	}
	return all, nil
}
