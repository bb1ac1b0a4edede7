// Package api is the REST client for the dashboard API: resource endpoints, the PDF
// feed and the login exchange. Every non-2xx answer becomes an *errs.RemoteError.
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

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/wordshelf/internal/errs"
	"github.com/and161185/wordshelf/internal/observability"
)

// DefaultTimeout bounds every request; a timeout is reported like any transport failure.
const DefaultTimeout = 10 * time.Second

const maxErrorBody = 64 << 10

// Client performs authenticated JSON requests against one API base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.httpClient = h } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = observability.OrNop(l) } }

// NewClient creates a client for baseURL (e.g. "https://api.example.com").
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		log:        zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// call describes one request for error reporting: "Failed to <verb> <noun> ...".
type call struct {
	method string
	path   string
	query  url.Values
	token  string
	body   any
	verb   string
	noun   string
}

func (c *Client) do(ctx context.Context, r call, out any) error {
	op := r.verb + " " + r.noun
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	if id, err := uuid.NewV4(); err == nil {
		req.Header.Set("X-Request-ID", id.String())
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("request failed", zap.String("op", op), zap.Error(err))
		return &errs.RemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	c.log.Debug("request",
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("dur", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp, r.verb, r.noun)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &errs.RemoteError{
			Op:      op,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("Failed to %s %s: invalid response body", r.verb, r.noun),
			Err:     err,
		}
	}
	return nil
}

// errorBody accepts both {"detail": "msg"} and {"detail": {"error_message": "msg", "code": "..."}}.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
	Code   string          `json:"code"`
}

type errorDetail struct {
	ErrorMessage string `json:"error_message"`
	Code         string `json:"code"`
}

func decodeError(resp *http.Response, verb, noun string) error {
	e := &errs.RemoteError{Op: verb + " " + noun, Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var b errorBody
	if err := json.Unmarshal(raw, &b); err == nil && len(b.Detail) > 0 {
		e.Code = b.Code
		var s string
		var d errorDetail
		switch {
		case json.Unmarshal(b.Detail, &s) == nil:
			e.Message = s
		case json.Unmarshal(b.Detail, &d) == nil:
			e.Message = d.ErrorMessage
			if d.Code != "" {
				e.Code = d.Code
			}
		}
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("Failed to %s %s with status %d", verb, noun, resp.StatusCode)
	}
	return e
}
