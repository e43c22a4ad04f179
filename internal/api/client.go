// Package api is the client for the AutoDoc Writer backend REST API.
//
// Every call goes through Client.request, which attaches the bearer token of
// the bound token source, issues exactly one HTTP request (no retries, no
// client-side timeout beyond the caller's context) and turns a non-2xx answer
// into an apperror.ErrUpstream carrying the best message it can find.
//
// ONE CLIENT, MANY PROFILES:
// A Client is created once per process with the base URL and logger.
// Registry then derives one copy per browser profile with WithTokenSource:
//
//	api.New(baseURL)                      shared http.Client, no token
//	  └─ WithTokenSource(profile A's kv)  Authorization: Bearer <A's token>
//	  └─ WithTokenSource(profile B's kv)  Authorization: Bearer <B's token>
//
// The token is read from storage on every call, so a login or logout in the
// profile takes effect on the next request without rebuilding the client.
//
// FUNCTIONAL OPTIONS:
// New takes a variadic list of Option values (func(*Client)). Each one
// changes a single field of the fresh Client, and New applies them in
// order, so callers name only what they change:
//
//	api.New(url)                                 defaults
//	api.New(url, api.WithLogger(logger))         request tracing
//	api.New(url, api.WithTokenSource(ts))        authenticated from the start
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/autodocwriter/autodoc/internal/apperror"
	"github.com/autodocwriter/autodoc/internal/auth"
)

// DefaultBaseURL is used when no API URL is configured.
const DefaultBaseURL = "http://localhost:8000"

// Client calls the backend on behalf of one profile.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  oauth2.TokenSource
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTokenSource sets the source of the bearer token.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a Client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithTokenSource returns a copy of c bound to ts. The copy shares the
// underlying http.Client.
func (c *Client) WithTokenSource(ts oauth2.TokenSource) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// LoginURL is the backend endpoint that starts the GitHub OAuth flow. It is
// a full-page redirect target, never fetched by the client.
func (c *Client) LoginURL() string {
	return c.baseURL + "/api/v1/auth/login"
}

// request issues one call and decodes the answer into out.
//
// On success out receives the decoded JSON when the response is JSON, or the
// raw body when out is a *string and the response is text. A JSON body that
// does not decode leaves out untouched. On failure the error wraps
// apperror.ErrUpstream (non-2xx) or the transport error.
func (c *Client) request(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encoding %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("api: building %s %s: %w", method, path, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID(ctx))

	// TOKEN SOURCE:
	// oauth2.TokenSource is the one-method interface Token() (*oauth2.Token,
	// error). SetAuthHeader writes "Authorization: Bearer <token>". A
	// profile without a token is not an error here: the call goes out
	// anonymously and the backend answers 401 where it has to.
	if c.tokens != nil {
		tok, err := c.tokens.Token()
		switch {
		case errors.Is(err, auth.ErrNoToken):
			// anonymous call
		case err != nil:
			return fmt.Errorf("api: %s %s: %w", method, path, err)
		default:
			tok.SetAuthHeader(req)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	// The body must always be closed, or the underlying connection is not
	// returned to the pool.
	defer resp.Body.Close()

	// A body that cannot be read degrades to an empty one.
	raw, _ := io.ReadAll(resp.Body)
	isJSON := strings.Contains(resp.Header.Get("Content-Type"), "application/json")

	c.logger.Debug("api request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperror.Upstream(resp.StatusCode, errorMessage(resp, raw, isJSON))
	}

	// 204s and empty 200s decode to "nothing"; out keeps its zero value
	// and callers see an empty result.
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	if isJSON {
		if err := json.Unmarshal(raw, out); err != nil {
			c.logger.Warn("api: ignoring malformed JSON response",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}

	if s, ok := out.(*string); ok {
		*s = string(raw)
	}
	return nil
}

// errorMessage extracts the most useful text from a failed response:
// the JSON "detail" or "message" field, then a plain text body, then the
// HTTP status text.
func errorMessage(resp *http.Response, raw []byte, isJSON bool) string {
	if isJSON {
		var payload map[string]any
		if err := json.Unmarshal(raw, &payload); err == nil {
			for _, field := range []string{"detail", "message"} {
				if msg := messageValue(payload[field]); msg != "" {
					return msg
				}
			}
		}
	} else if text := strings.TrimSpace(string(raw)); text != "" {
		return text
	}

	// resp.Status is "404 Not Found"; strip the code to keep the reason
	// phrase the server actually sent.
	if text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))); text != "" {
		return text
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return "Request failed"
}

// messageValue renders a detail/message field. Strings are used as is;
// structured details (FastAPI validation errors) are re-encoded.
func messageValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// requestID propagates the incoming request ID to the backend, or mints one
// for calls that do not originate from an HTTP request (CLI, poll tasks).
func requestID(ctx context.Context) string {
	if id := chimiddleware.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}
