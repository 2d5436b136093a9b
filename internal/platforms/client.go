package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPClient is the slice of *http.Client the adapters need. Tests
// substitute a fake to script upstream responses without a network.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the shared upstream API client. All six adapters go through
// it so authentication, retries and timeouts live in one place.
type Client struct {
	httpc   HTTPClient
	baseURL string
	apiKey  string

	maxRetries  int
	backoffBase time.Duration
}

// retryableStatus lists the upstream statuses worth retrying. Anything
// else fails immediately.
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// NewClient builds an upstream client with the default retry policy:
// three retries with exponential backoff starting at two seconds.
func NewClient(httpc HTTPClient, baseURL, apiKey string) *Client {
	return &Client{
		httpc:       httpc,
		baseURL:     baseURL,
		apiKey:      apiKey,
		maxRetries:  3,
		backoffBase: 2 * time.Second,
	}
}

// NewHTTPClient returns the production transport with a hard timeout
// covering connect, write and read.
func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &http.Client{Timeout: timeout}
}

// getJSON performs an authenticated GET against the upstream API and
// decodes the response body into v. Transport errors and retryable
// statuses are retried with exponential backoff; the context cancels
// both in-flight requests and backoff sleeps.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, v any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.backoffBase * (1 << (attempt - 1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusOK {
			if err := json.Unmarshal(body, v); err != nil {
				return fmt.Errorf("decode %s response: %w", path, err)
			}
			return nil
		}

		lastErr = fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, truncate(string(body), 200))
		if !retryableStatus[resp.StatusCode] {
			return lastErr
		}
	}

	return fmt.Errorf("%s failed after %d retries: %w", path, c.maxRetries, lastErr)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
