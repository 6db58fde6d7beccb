package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/pairup/internal/domain/types"
)

// Client calls the pairup HTTP API.
type Client struct {
	http *http.Client
	base string
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{http: &http.Client{Timeout: timeout}, base: baseURL}
}

// Health checks that /healthz answers 200.
func (c *Client) Health(ctx context.Context) error {
	status, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("health check returned status %d", status)
	}
	return nil
}

// Join enters the queue and returns the HTTP status with the response.
func (c *Client) Join(ctx context.Context, req types.JoinRequest) (int, types.JoinResponse, error) { //nolint:gocritic // request value
	var out types.JoinResponse
	status, err := c.do(ctx, http.MethodPost, "/queue/join", req, &out)
	return status, out, err
}

// RequestMatch asks for a match.
func (c *Client) RequestMatch(ctx context.Context, req types.MatchRequest) (int, types.MatchResponse, error) { //nolint:gocritic // request value
	var out types.MatchResponse
	status, err := c.do(ctx, http.MethodPost, "/match", req, &out)
	return status, out, err
}

// Bookings reads the bookings of one user.
func (c *Client) Bookings(ctx context.Context, userID string) (types.BookingsResponse, error) {
	var out types.BookingsResponse
	status, err := c.do(ctx, http.MethodGet, "/bookings/"+url.PathEscape(userID), nil, &out)
	if err != nil {
		return out, err
	}
	if status != http.StatusOK {
		return out, fmt.Errorf("bookings for %s returned status %d", userID, status)
	}
	return out, nil
}

// do sends body as JSON and decodes a 2xx response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if out != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
