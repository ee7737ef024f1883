// Package api is the typed HTTP client of the document-processing backend.
package api

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

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"docforms/internal/logger"
	"docforms/internal/metrics"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultPollTimeout = 25 // seconds
	pollGrace          = 5 * time.Second
	maxErrorBody       = 64 << 10
)

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	baseURL     *url.URL
	http        *http.Client
	download    *http.Client
	tokens      oauth2.TokenSource
	timeout     time.Duration
	pollTimeout int
	log         zerolog.Logger
}

type Option func(*Client)

// WithTokenSource decorates every backend request with a bearer token from ts.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithHTTPClient replaces the base HTTP client. Its transport is still
// wrapped with metrics and the bearer decoration.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every request except long polls.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithPollTimeout sets the server-side hold of a poll request, in seconds.
// The client waits five seconds longer than that.
func WithPollTimeout(seconds int) Option {
	return func(c *Client) { c.pollTimeout = seconds }
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	const op = "api.New"

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid base URL: %w", op, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s: base URL must be absolute: %q", op, baseURL)
	}

	c := &Client{
		baseURL:     u,
		http:        &http.Client{},
		timeout:     defaultTimeout,
		pollTimeout: defaultPollTimeout,
		log:         logger.WithComponent("api"),
	}
	for _, opt := range opts {
		opt(c)
	}

	base := c.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	// presigned download URLs must not carry the bearer token
	c.download = &http.Client{Transport: metrics.InstrumentTransport(base)}

	rt := base
	if c.tokens != nil {
		rt = &oauth2.Transport{Source: c.tokens, Base: base}
	}
	c.http = &http.Client{
		Transport:     metrics.InstrumentTransport(rt),
		CheckRedirect: c.http.CheckRedirect,
		Jar:           c.http.Jar,
	}

	return c, nil
}

// BaseURL returns the backend root the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	timeout     time.Duration
}

func jsonRequest(op, method, path string, payload any) (request, error) {
	req := request{op: op, method: method, path: path}
	if payload == nil {
		return req, nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return req, fmt.Errorf("%s: failed to encode request: %w", op, err)
	}
	req.body = bytes.NewReader(body)
	req.contentType = "application/json"
	return req, nil
}

// do sends req and decodes a 2xx JSON body into out (when out is non-nil).
func (c *Client) do(ctx context.Context, req request, out any) error {
	timeout := req.timeout
	if timeout == 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.endpoint(req.path, req.query), req.body)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", req.op, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Debug().Err(err).Str("op", req.op).Str("path", req.path).Msg("Request failed")
		return fmt.Errorf("%s: request failed: %w", req.op, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("op", req.op).
		Str("method", req.method).
		Str("path", req.path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Backend request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.responseError(req.op, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", req.op, err)
	}
	return nil
}

func (c *Client) responseError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	detail := strings.TrimSpace(string(body))
	if gjson.ValidBytes(body) {
		if d := gjson.GetBytes(body, "detail"); d.Exists() {
			if d.Type == gjson.String {
				detail = d.Str
			} else {
				detail = d.Raw
			}
		}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.log.Warn().Str("op", op).Msg("Backend rejected credentials")
	}
	return &Error{Op: op, StatusCode: resp.StatusCode, Detail: detail}
}
