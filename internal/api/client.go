// Package api is the HTTP client for the CV builder backend: auth, CV storage,
// rendering and cover-letter generation.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// TokenStore supplies the bearer token and is cleared when the backend rejects it.
type TokenStore interface {
	AccessToken(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// Options configures a Client.
type Options struct {
	BaseURL string
	// Timeout bounds each request. Zero means no client-side timeout.
	Timeout time.Duration
	// HTTPClient overrides the transport; Timeout is ignored when set.
	HTTPClient *http.Client
	Tokens     TokenStore
	Logger     zerolog.Logger
}

// Client calls the backend. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore
	log     zerolog.Logger
}

// New returns a client for the backend at opts.BaseURL.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", opts.BaseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		baseURL: base,
		http:    hc,
		tokens:  opts.Tokens,
		log:     opts.Logger.With().Str("component", "api").Logger(),
	}, nil
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes one backend call.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	// out receives the decoded JSON response; nil discards the body.
	out any
	// noAuth skips the bearer header (login, register, refresh).
	noAuth bool
}

// do performs r and decodes a JSON response into r.out.
func (c *Client) do(ctx context.Context, r request) error {
	resp, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if r.out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(r.out); err != nil && !errors.Is(err, io.EOF) {
		return &RequestError{Method: r.method, Path: r.path, Message: "failed to decode response", Cause: err}
	}
	return nil
}

// doBytes performs r and returns the raw response body.
func (c *Client) doBytes(ctx context.Context, r request) ([]byte, string, error) {
	resp, err := c.send(ctx, r)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &RequestError{Method: r.method, Path: r.path, Message: "failed to read response body", Cause: err}
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// send executes the request and turns non-2xx responses into *Error.
// On a 401 other than the unverified-email one the stored tokens are cleared.
func (c *Client) send(ctx context.Context, r request) (*http.Response, error) {
	endpoint := c.baseURL + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return nil, &RequestError{Method: r.method, Path: r.path, Message: "failed to encode request", Cause: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, body)
	if err != nil {
		return nil, &RequestError{Method: r.method, Path: r.path, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !r.noAuth && c.tokens != nil {
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return nil, &RequestError{Method: r.method, Path: r.path, Message: "failed to read access token", Cause: err}
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RequestError{Method: r.method, Path: r.path, Message: "HTTP request failed", Cause: err}
	}
	c.log.Debug().
		Str("method", r.method).
		Str("path", r.path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("backend call")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer func() { _ = resp.Body.Close() }()
	apiErr := &Error{
		Method:     r.method,
		Path:       r.path,
		StatusCode: resp.StatusCode,
		Detail:     readDetail(resp.Body),
	}
	if resp.StatusCode == http.StatusUnauthorized && apiErr.Detail != UnverifiedDetail && c.tokens != nil {
		if err := c.tokens.Clear(ctx); err != nil {
			c.log.Warn().Err(err).Msg("failed to clear tokens after 401")
		}
	}
	return nil, apiErr
}

// readDetail extracts a string "detail" field from an error body.
func readDetail(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil || len(data) == 0 {
		return ""
	}
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}
	var detail string
	if err := json.Unmarshal(envelope.Detail, &detail); err != nil {
		return ""
	}
	return detail
}
