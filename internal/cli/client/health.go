package client

import (
	"context"
	"net/http"
)

// HealthResponse is the server's liveness report
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// Health checks that the server is reachable. It needs no credentials.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.Do(ctx, http.MethodGet, "/health", nil, &resp, WithoutRefresh()); err != nil {
		return nil, err
	}
	return &resp, nil
}
