// Package backend is the typed REST client for the remote C2D backend.
package backend

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

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	apiPrefix       = "/c2d/api/v1"
	maxResponseBody = 10 << 20
)

// GenericMessage is shown when the backend gives no usable message.
const GenericMessage = "An unexpected error occurred. Please try again."

var ErrUnauthenticated = errors.New("backend: unauthenticated")

// APIError is a non-2xx backend answer.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: status %d", e.Status)
	}
	return fmt.Sprintf("backend: status %d: %s", e.Status, e.Message)
}

// Unwrap maps 401 answers onto ErrUnauthenticated.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthenticated
	}
	return nil
}

// UserMessage returns the backend's message carried by err, or GenericMessage.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	return GenericMessage
}

// Client talks JSON and multipart to the backend.
type Client struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// Option configures Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit paces outgoing requests to rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			if burst <= 0 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New builds a client for baseURL. A trailing "/api" is dropped because every
// backend path already carries its own /c2d/api prefix.
func New(baseURL string, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	base = strings.TrimSuffix(base, "/api")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", baseURL)
	}
	c := &Client{
		base: base,
		http: &http.Client{Timeout: 15 * time.Second},
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized backend origin.
func (c *Client) BaseURL() string { return c.base }

type request struct {
	method      string
	path        string
	token       string
	body        io.Reader
	contentType string
}

func jsonRequest(method, path, token string, payload any) (request, error) {
	r := request{method: method, path: path, token: token}
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return request{}, err
		}
		r.body = bytes.NewReader(buf)
		r.contentType = "application/json"
	}
	return r, nil
}

// do sends r and returns the raw 2xx body.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, r.method, c.base+apiPrefix+r.path, r.body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("backend_request_failed", zap.String("method", r.method), zap.String("path", r.path), zap.Error(err))
		return nil, fmt.Errorf("backend %s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read backend response: %w", err)
	}
	c.log.Debug("backend_request",
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.Int("status", resp.StatusCode),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(body, &payload) == nil {
			apiErr.Message = strings.TrimSpace(payload.Message)
			if apiErr.Message == "" {
				apiErr.Message = strings.TrimSpace(payload.Error)
			}
		}
		return nil, apiErr
	}
	return body, nil
}

func (c *Client) getJSON(ctx context.Context, path, token string) ([]byte, error) {
	return c.do(ctx, request{method: http.MethodGet, path: path, token: token})
}

func (c *Client) postJSON(ctx context.Context, path, token string, payload any) ([]byte, error) {
	r, err := jsonRequest(http.MethodPost, path, token, payload)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, r)
}
