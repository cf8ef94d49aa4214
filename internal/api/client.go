// Package api is the client for the remote debate service.
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

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lorenzotomasdiez/agora/internal/apperr"
	"github.com/lorenzotomasdiez/agora/internal/auth"
	"github.com/lorenzotomasdiez/agora/internal/debate"
	"github.com/lorenzotomasdiez/agora/internal/httpx"
	"github.com/lorenzotomasdiez/agora/internal/logging"
)

// DefaultBaseURL is used when no URL is configured.
const DefaultBaseURL = "http://localhost:5000/api"

// ErrSessionReload means a refreshed credential was rejected as well. The
// session has been cleared and the user must sign in again.
var ErrSessionReload = apperr.New(apperr.AuthRequired, "", "session expired; sign in again")

// Cache stores immutable debate metadata.
type Cache interface {
	GetDebate(ctx context.Context, id string) (*debate.Debate, bool)
	PutDebate(ctx context.Context, d *debate.Debate)
	Invalidate(ctx context.Context, id string) error
}

// Recorder observes API traffic.
type Recorder interface {
	ObserveRequest(method, route string, code int)
	ObserveCache(hit bool)
}

// Client talks to the debate service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	session    *auth.Session
	retry      httpx.Retrier
	cache      Cache
	metrics    Recorder
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }

// WithRetrier replaces the retry policy.
func WithRetrier(r httpx.Retrier) Option { return func(c *Client) { c.retry = r } }

// WithCache enables cache-aside lookups for GetDebate.
func WithCache(cache Cache) Option { return func(c *Client) { c.cache = cache } }

// WithMetrics records request counts.
func WithMetrics(m Recorder) Option { return func(c *Client) { c.metrics = m } }

// NewClient returns a client for baseURL. A nil session means anonymous.
func NewClient(baseURL string, session *auth.Session, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if session == nil {
		session = auth.NewSession(auth.Token{}, nil)
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		session:    session,
		retry:      httpx.DefaultRetrier(),
		log:        logging.Component("api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the credential session the client uses.
func (c *Client) Session() *auth.Session { return c.session }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// do sends one request and decodes the envelope's data into out. A 401 on
// an authenticated request triggers one credential refresh and retry.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return apperr.Wrap(apperr.Validation, op, err)
		}
		payload = b
	}

	token, err := c.session.Token(ctx)
	if err != nil {
		return err
	}

	code, env, err := c.send(ctx, method, path, query, payload, token)
	if err != nil {
		return apperr.Wrap(apperr.Network, op, err)
	}

	if code == http.StatusUnauthorized && token != "" {
		c.log.Debug().Str("op", op).Msg("credential rejected, refreshing")
		token, err = c.session.Refresh(ctx)
		if err != nil {
			return err
		}
		code, env, err = c.send(ctx, method, path, query, payload, token)
		if err != nil {
			return apperr.Wrap(apperr.Network, op, err)
		}
		if code == http.StatusUnauthorized {
			c.log.Warn().Str("op", op).Msg("refreshed credential rejected, session cleared")
			c.session.MarkReload()
			return ErrSessionReload
		}
	}

	if err := classify(op, code, env); err != nil {
		return err
	}
	if out != nil && len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return apperr.Wrap(apperr.Network, op, fmt.Errorf("decode response: %w", err))
		}
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte, token string) (int, envelope, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	reqID := uuid.NewString()
	route := logging.SanitizePath(path)
	start := time.Now()

	resp, err := c.retry.DoMethod(ctx, method, func(ctx context.Context) (*http.Response, error) {
		var rd io.Reader
		if payload != nil {
			rd = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, rd)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", reqID)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return c.httpClient.Do(req)
	})
	if err != nil {
		code := 0
		var se *httpx.StatusError
		if errors.As(err, &se) {
			code = se.Code
		}
		c.observe(method, route, code)
		c.log.Warn().Err(err).Str("method", method).Str("path", route).Str("request_id", reqID).Msg("request failed")
		return 0, envelope{}, err
	}
	defer resp.Body.Close()

	c.observe(method, route, resp.StatusCode)
	c.log.Debug().
		Str("method", method).
		Str("path", route).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Str("request_id", reqID).
		Msg("api request")

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, envelope{}, err
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return 0, envelope{}, fmt.Errorf("decode envelope: %w", err)
		}
	}
	return resp.StatusCode, env, nil
}

func (c *Client) observe(method, route string, code int) {
	if c.metrics != nil {
		c.metrics.ObserveRequest(method, route, code)
	}
}

// classify maps a status and envelope onto the error taxonomy.
func classify(op string, code int, env envelope) error {
	msg := env.Error
	if msg == "" {
		msg = env.Message
	}
	if msg == "" {
		msg = http.StatusText(code)
	}

	switch {
	case code >= 200 && code < 300:
		if !env.Success {
			if msg == http.StatusText(code) {
				msg = "request was not accepted"
			}
			return apperr.New(apperr.Forbidden, op, msg)
		}
		return nil
	case code == http.StatusBadRequest:
		return apperr.New(apperr.Validation, op, msg)
	case code == http.StatusUnauthorized:
		return apperr.New(apperr.AuthRequired, op, msg)
	case code == http.StatusForbidden, code == http.StatusConflict:
		return apperr.New(apperr.Forbidden, op, msg)
	case code == http.StatusNotFound:
		return apperr.New(apperr.NotFound, op, msg)
	default:
		return apperr.New(apperr.Network, op, fmt.Sprintf("unexpected status %d: %s", code, msg))
	}
}

// unwrapKey decodes raw into v, accepting either the object itself or the
// object nested under key.
func unwrapKey(raw json.RawMessage, key string, v any) error {
	var nested map[string]json.RawMessage
	if err := json.Unmarshal(raw, &nested); err == nil {
		if inner, ok := nested[key]; ok {
			return json.Unmarshal(inner, v)
		}
	}
	return json.Unmarshal(raw, v)
}
