// Package client is the HTTP client for the transitly API.
//
// Every request goes through the same chain: the bearer token is attached from
// the credential store, the request is sent, and a 401 triggers at most one
// token refresh followed by a single replay of that request.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/transitly/transitly/internal/cli/credstore"
)

// Refresher mints a new access token after a 401.
// Implementations own the credential store writes, including clearing the
// session when the refresh fails or the refreshed token is rejected too.
type Refresher interface {
	RefreshAccessToken(ctx context.Context) (string, error)
	// Expire clears the session after the replayed request also got a 401
	// and returns the error the call reports.
	Expire(ctx context.Context, cause error) error
}

// Client represents an HTTP client for the transitly API
type Client struct {
	baseURL    string
	httpClient *http.Client
	base       http.RoundTripper
	store      credstore.Reader
	logger     zerolog.Logger

	mu        sync.RWMutex
	refresher Refresher
}

// Option configures a Client
type Option func(*Client)

// WithTransport sets the base transport used under the auth and logging layers
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.base = rt
		}
	}
}

// WithLogger sets the logger used for request/response logging
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRefresher sets the token refresher used on 401 responses
func WithRefresher(r Refresher) Option {
	return func(c *Client) {
		c.refresher = r
	}
}

// New creates a new API client. The base URL is fixed for the client's lifetime.
func New(baseURL string, store credstore.Reader, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		base:    http.DefaultTransport,
		store:   store,
		logger:  zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	// No Timeout: requests wait for the server. Callers cancel through ctx.
	c.httpClient = &http.Client{
		Transport: &authTransport{
			store:  store,
			logger: c.logger,
			base: &loggingTransport{
				base:   c.base,
				logger: c.logger,
			},
		},
	}

	return c
}

// SetRefresher installs the refresher after construction. The session manager
// is built on top of the client, so it registers itself here.
func (c *Client) SetRefresher(r Refresher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refresher = r
}

func (c *Client) getRefresher() Refresher {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refresher
}

// BaseURL returns the server URL this client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request is one logical API call. The replayed flag is its one-shot marker:
// it belongs to this call only, so independent calls each get their own retry.
type request struct {
	method    string
	path      string
	body      []byte
	header    http.Header
	noRefresh bool
	replayed  bool
}

// RequestOption customizes a single call
type RequestOption func(*request)

// WithBearer authenticates the call with an explicit token instead of the
// stored access token
func WithBearer(token string) RequestOption {
	return func(r *request) {
		if token != "" {
			r.header.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithoutRefresh disables the refresh-and-replay path for the call
func WithoutRefresh() RequestOption {
	return func(r *request) {
		r.noRefresh = true
	}
}

// Do sends a JSON request and decodes the JSON response into out (if non-nil)
func (c *Client) Do(ctx context.Context, method, path string, in, out any, opts ...RequestOption) error {
	req := &request{
		method: method,
		path:   path,
		header: http.Header{},
	}
	for _, opt := range opts {
		opt(req)
	}

	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		req.body = data
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && !req.noRefresh && !req.replayed {
		if refresher := c.getRefresher(); refresher != nil {
			drain(resp)
			req.replayed = true

			token, err := refresher.RefreshAccessToken(ctx)
			if err != nil {
				return fmt.Errorf("failed to refresh access token: %w", err)
			}

			c.logger.Debug().Str("method", req.method).Str("path", req.path).Msg("Replaying request with refreshed token")
			req.header.Set("Authorization", "Bearer "+token)

			resp, err = c.send(ctx, req)
			if err != nil {
				return err
			}
			if resp.StatusCode == http.StatusUnauthorized {
				defer resp.Body.Close()
				return refresher.Expire(ctx, decodeResponse(resp, nil))
			}
		}
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

func (c *Client) send(ctx context.Context, req *request) (*http.Response, error) {
	url := c.baseURL + req.path

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range req.header {
		httpReq.Header[k] = v
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{Method: req.method, URL: url, Err: err}
	}
	return resp, nil
}

func decodeResponse(resp *http.Response, out any) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
