// internal/common/http/client.go
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"niche-finder/internal/common/errors"
)

// MaxBodyBytes caps how much of a response body is read.
const MaxBodyBytes = 10 << 20

// Fetcher is the single network primitive the discovery pipeline depends on.
type Fetcher interface {
	FetchJSON(ctx context.Context, rawURL string) ([]byte, error)
}

type Client struct {
	httpClient *http.Client
	userAgent  string
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// NewClientWith wraps an existing *http.Client, mainly for tests.
func NewClientWith(hc *http.Client) *Client {
	return &Client{httpClient: hc}
}

// WithUserAgent returns a copy of c that sends ua on every request.
func (c *Client) WithUserAgent(ua string) *Client {
	cp := *c
	cp.userAgent = ua
	return &cp
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.httpClient.Do(req)
}

// FetchJSON performs one GET and returns the body once it is known to be
// valid JSON. Any failure is a NETWORK_ERROR carrying the redacted URL.
// There are no retries.
func (c *Client) FetchJSON(ctx context.Context, rawURL string) ([]byte, error) {
	safeURL := RedactURL(rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.NewNetworkError(safeURL, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		// The transport error embeds the raw URL.
		if uerr, ok := err.(*url.Error); ok {
			err = uerr.Err
		}
		return nil, errors.NewNetworkError(safeURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, errors.NewNetworkError(safeURL, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return nil, errors.NewNetworkError(safeURL, fmt.Errorf("read body: %w", err))
	}

	if !gjson.ValidBytes(body) {
		return nil, errors.NewNetworkError(safeURL, fmt.Errorf("response is not valid JSON"))
	}

	return body, nil
}

// RedactURL masks the key query parameter so URLs are safe to log.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<unparseable url>"
	}
	q := u.Query()
	if q.Has("key") {
		q.Set("key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
