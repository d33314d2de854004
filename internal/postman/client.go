package postman

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jaredboynton/postman-probe-sub001/internal/infrastructure/config"
)

const (
	// defaultBaseURL is the public Postman API endpoint.
	defaultBaseURL = "https://api.postman.com"

	// defaultRequestTimeout is used when the config specifies none.
	defaultRequestTimeout = 30 * time.Second

	// secondsPerMinute converts the configured requests-per-minute cap
	// into a per-second rate.
	secondsPerMinute = 60
)

// Client is a rate-limited Postman REST API client.
//
// Every request authenticates via the X-Api-Key header and passes
// through a client-side token-bucket limiter sized from
// postman.rate_limit.requests_per_minute, so a collection run cannot
// exhaust the team's server-side quota.
//
// Thread Safety: all methods are safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New creates a Client from the postman section of config.yaml.
func New(cfg config.PostmanConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	rpm := cfg.RateLimit.RequestsPerMinute
	if rpm <= 0 {
		rpm = secondsPerMinute
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		// Burst of 1 keeps request spacing even across a run.
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/secondsPerMinute), 1),
	}
}

// ListWorkspaces returns all workspaces visible to the API key.
func (c *Client) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	var resp workspaceListResponse
	if err := c.get(ctx, "/workspaces", &resp); err != nil {
		return nil, err
	}
	return resp.Workspaces, nil
}

// GetWorkspace returns a single workspace with its collection memberships.
func (c *Client) GetWorkspace(ctx context.Context, id string) (*WorkspaceDetail, error) {
	if id == "" {
		return nil, fmt.Errorf("workspace id is required")
	}
	var resp workspaceResponse
	if err := c.get(ctx, "/workspaces/"+id, &resp); err != nil {
		return nil, err
	}
	return &resp.Workspace, nil
}

// ListCollections returns all collections visible to the API key.
func (c *Client) ListCollections(ctx context.Context) ([]CollectionSummary, error) {
	var resp collectionListResponse
	if err := c.get(ctx, "/collections", &resp); err != nil {
		return nil, err
	}
	return resp.Collections, nil
}

// GetCollection returns full collection metadata for a collection UID.
func (c *Client) GetCollection(ctx context.Context, uid string) (*CollectionDetail, error) {
	if uid == "" {
		return nil, fmt.Errorf("collection uid is required")
	}
	var resp collectionResponse
	if err := c.get(ctx, "/collections/"+uid, &resp); err != nil {
		return nil, err
	}
	return &resp.Collection, nil
}

// ListUsers returns the team's users.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var resp userListResponse
	if err := c.get(ctx, "/users", &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// HealthCheck verifies the API is reachable and the key is accepted.
func (c *Client) HealthCheck(ctx context.Context) error {
	var resp workspaceListResponse
	if err := c.get(ctx, "/workspaces", &resp); err != nil {
		return fmt.Errorf("postman health check: %w", err)
	}
	return nil
}

// get performs a rate-limited GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode, path); err != nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// statusError maps HTTP status codes to sentinel errors.
func statusError(status int, path string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s (HTTP %d)", ErrUnauthorized, path, status)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, path)
	default:
		return fmt.Errorf("postman: %s returned HTTP %d", path, status)
	}
}
