package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ritzau/storygraph/pkg/logging"
	"github.com/ritzau/storygraph/pkg/model"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default number of backend requests per second
	DefaultRateLimit = 5.0

	// maxErrorBody limits how much of an error response ends up in an error
	maxErrorBody = 512
)

// Client is a rate-limited HTTP client for the story backend API
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	token      string
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithToken sets the bearer token for authenticated requests
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit sets the allowed requests per second. Zero or less disables limiting.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// NewClient creates a backend client for the API rooted at baseURL
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchForest retrieves the chapter tree of a story
func (c *Client) FetchForest(ctx context.Context, storyID string) ([]*model.ChapterNode, error) {
	var resp treeResponse
	if err := c.do(ctx, http.MethodGet, "/stories/"+url.PathEscape(storyID)+"/tree", nil, &resp); err != nil {
		return nil, fmt.Errorf("story %q: %w", storyID, err)
	}
	if resp.Data == nil {
		resp.Data = make([]*model.ChapterNode, 0)
	}
	return resp.Data, nil
}

// Vote records a vote on a chapter and returns the updated tally
func (c *Client) Vote(ctx context.Context, chapterID string, direction model.VoteDirection) (model.Votes, error) {
	body := struct {
		Direction model.VoteDirection `json:"direction"`
	}{direction}

	var resp struct {
		Data model.Votes `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/chapters/"+url.PathEscape(chapterID)+"/votes", body, &resp); err != nil {
		return model.Votes{}, fmt.Errorf("vote on chapter %q: %w", chapterID, err)
	}
	return resp.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %w", ErrFetch, err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encoding request: %w", ErrFetch, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if requestID := logging.GetRequestID(ctx); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	logging.DebugContext(ctx, "backend request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"durationMs", time.Since(start).Milliseconds(),
	)

	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %w", ErrFetch, err)
	}
	return nil
}

// checkStatus returns an error if the HTTP response indicates a problem
func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrFetch, ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %w: status %d", ErrFetch, ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrFetch, ErrRateLimited)
	case resp.StatusCode >= 400:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: status %d: %s", ErrFetch, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
