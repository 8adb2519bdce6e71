// Package api is the single choke point for authenticated calls to the
// library backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bremen-jose-oliveira/mylibrary/internal/logging"
	"github.com/bremen-jose-oliveira/mylibrary/internal/tokenstore"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const (
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 64 << 10

	RequestIDHeader = "X-Request-ID"
)

// SessionExpiredHandler is invoked after a 401 has cleared the token. UIs use
// it to navigate back to the login entry point.
type SessionExpiredHandler func()

// Client wraps outbound backend calls with bearer auth and the 401 policy.
// It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     tokenstore.Store
	log        logrus.FieldLogger
	metrics    *Metrics

	mu       sync.RWMutex
	onExpiry []SessionExpiredHandler
}

type Option func(*Client)

// WithHTTPClient replaces the default client (30s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the request timeout; zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) { c.log = l }
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a client for the backend rooted at baseURL.
func New(baseURL string, tokens tokenstore.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		tokens:     tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logging.OrDiscard(c.log).WithField("component", "api")
	return c
}

// OnSessionExpired registers a handler run after every 401.
func (c *Client) OnSessionExpired(h SessionExpiredHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExpiry = append(c.onExpiry, h)
}

// Tokens exposes the token store the client reads from.
func (c *Client) Tokens() tokenstore.Store {
	return c.tokens
}

// BaseURL returns the backend root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// Do sends a JSON request and decodes a 2xx body into out (when non-nil).
//
// A 401 clears the token, runs the expiry handlers and returns
// ErrSessionExpired. Other non-2xx statuses become *RequestError carrying the
// server's message. A 2xx body that fails to decode is a
// *MalformedResponseError.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())

	token, err := c.tokens.GetToken(ctx)
	if err != nil {
		// Unreadable storage counts as logged out.
		c.log.WithError(err).Warn("token store read failed")
		token = ""
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log := c.log.WithFields(logrus.Fields{
		"method":     method,
		"path":       path,
		"request_id": req.Header.Get(RequestIDHeader),
	})

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.observe(method, 0, started)
		log.WithError(err).Debug("request failed")
		return &RequestError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()
	c.metrics.observe(method, resp.StatusCode, started)
	log.WithField("status", resp.StatusCode).Debug("response received")

	if resp.StatusCode == http.StatusUnauthorized {
		c.expireSession(ctx)
		return ErrSessionExpired
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &RequestError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw, resp.StatusCode),
		}
	}

	if out == nil {
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RequestError{Method: method, Path: path, StatusCode: resp.StatusCode, Err: err}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return &MalformedResponseError{Path: path, Err: fmt.Errorf("empty body")}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &MalformedResponseError{Path: path, Err: err}
	}
	return nil
}

func (c *Client) expireSession(ctx context.Context) {
	if err := c.tokens.RemoveToken(ctx); err != nil {
		c.log.WithError(err).Error("failed to clear token after 401")
	}
	c.log.Info("session expired, token cleared")

	c.mu.RLock()
	handlers := append([]SessionExpiredHandler(nil), c.onExpiry...)
	c.mu.RUnlock()

	for _, h := range handlers {
		h()
	}
}

// errorMessage extracts a human readable message from an error body. Bodies
// without a known message key are passed through as sent.
func errorMessage(raw []byte, status int) string {
	if gjson.ValidBytes(raw) {
		parsed := gjson.ParseBytes(raw)
		for _, key := range []string{"message", "error", "detail"} {
			if r := parsed.Get(key); r.Exists() && r.String() != "" {
				return r.String()
			}
		}
		if parsed.Type == gjson.String {
			if msg := strings.TrimSpace(parsed.String()); msg != "" {
				return msg
			}
			return http.StatusText(status)
		}
		if parsed.Type == gjson.Null || (parsed.IsObject() && len(parsed.Map()) == 0) {
			return http.StatusText(status)
		}
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" {
		return msg
	}
	return http.StatusText(status)
}
