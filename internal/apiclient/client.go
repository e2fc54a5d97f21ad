// Package apiclient sends JSON requests to the soil advisor service.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// NetworkErrorMessage is surfaced when no usable error body was received.
const NetworkErrorMessage = "Network error"

// APIError is the single error shape for failed requests.
// Status is 0 when no HTTP response was received. Err holds the underlying
// cause of failures that happened before or instead of a response.
type APIError struct {
	Message string
	Status  int
	Err     error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

func (e *APIError) Unwrap() error { return e.Err }

// HasStatus reports whether a response was received.
func (e *APIError) HasStatus() bool {
	return e.Status != 0
}

// IsUnauthorized reports whether err is an APIError with status 401.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// Message returns the user-facing message of err.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// TokenSource provides the current bearer token. An empty token means anonymous.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// Client builds JSON requests against a base URL.
type Client struct {
	baseURL        string
	http           *http.Client
	tokens         TokenSource
	logger         *slog.Logger
	onUnauthorized func(ctx context.Context)
}

// New creates a client for baseURL. tokens may be nil for anonymous use.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		tokens:  tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// OnUnauthorized registers fn to be called whenever an authenticated request
// is answered with 401.
func (c *Client) OnUnauthorized(fn func(ctx context.Context)) {
	c.onUnauthorized = fn
}

// Get issues a GET request and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, authRequired bool, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, authRequired, out)
}

// Post issues a POST request with a JSON body and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body any, authRequired bool, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, authRequired, out)
}

// Do sends a request and decodes a 2xx JSON response into out (if non-nil).
// Every failure, including ones before the request is sent, is returned as
// *APIError. No retries are attempted.
func (c *Client) Do(ctx context.Context, method, path string, body any, authRequired bool, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return &APIError{Message: fmt.Sprintf("encode request body: %v", err), Err: err}
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &APIError{Message: fmt.Sprintf("build request: %v", err), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if authRequired && c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			// The server decides authorization; proceed without a token.
			c.logger.Warn("failed to read bearer token", "error", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed without response", "method", method, "path", path, "error", err)
		return &APIError{Message: NetworkErrorMessage, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Message: errorMessage(resp.Body), Status: resp.StatusCode}
		c.logger.Debug("request rejected", "method", method, "path", path, "status", resp.StatusCode, "error", apiErr.Message)
		if authRequired && resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Message: NetworkErrorMessage, Status: resp.StatusCode, Err: err}
	}
	return nil
}

// errorMessage extracts the "error" field of a JSON error body.
func errorMessage(body io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil || payload.Error == "" {
		return NetworkErrorMessage
	}
	return payload.Error
}
