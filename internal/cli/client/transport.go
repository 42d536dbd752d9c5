package client

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/transitly/transitly/internal/cli/credstore"
)

// authTransport attaches the stored access token to outgoing requests.
// A request that already carries an Authorization header is left alone.
type authTransport struct {
	store  credstore.Reader
	base   http.RoundTripper
	logger zerolog.Logger
}

// RoundTrip implements http.RoundTripper
func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Authorization") == "" && t.store != nil {
		token, err := credstore.Lookup(req.Context(), t.store, credstore.KeyAccessToken)
		if err != nil {
			// Not fatal here: the request goes out unauthenticated and the
			// server decides.
			t.logger.Warn().Err(err).Msg("Failed to read access token")
		}
		if token != "" {
			req = req.Clone(req.Context())
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	return t.base.RoundTrip(req)
}

// loggingTransport logs each request and response at debug level
type loggingTransport struct {
	base   http.RoundTripper
	logger zerolog.Logger
}

// RoundTrip implements http.RoundTripper
func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	t.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Bool("authenticated", req.Header.Get("Authorization") != "").
		Msg("API request")

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.logger.Warn().
			Err(err).
			Str("method", req.Method).
			Str("url", req.URL.String()).
			Dur("duration", time.Since(start)).
			Msg("API request failed")
		return nil, err
	}

	t.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("API response")

	return resp, nil
}
