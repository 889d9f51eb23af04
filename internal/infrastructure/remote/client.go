// Package remote talks to the bookstore backend API: the per-user cart,
// the product catalog and the order service.
package remote

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

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bookstore/storefront/internal/domain/shared/valueobject"
	"github.com/bookstore/storefront/internal/infrastructure/logger"
	"github.com/bookstore/storefront/internal/infrastructure/telemetry"
)

const (
	defaultTimeout          = 30 * time.Second
	defaultMaxResponseBytes = 4 << 20
)

// TokenSource supplies the bearer credential for authenticated calls
type TokenSource interface {
	// Token returns the current credential, or "" when signed out
	Token(ctx context.Context) string
}

// Config holds client settings
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	MaxResponseBytes int64
	Currency         valueobject.Currency
}

// Client is the shared HTTP plumbing of the API clients
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	tokens     TokenSource
	maxBytes   int64
	currency   valueobject.Currency
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a Client. tokens may be nil for unauthenticated use.
func NewClient(cfg Config, tokens TokenSource, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("remote: invalid base URL %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = defaultMaxResponseBytes
	}
	if cfg.Currency == "" {
		cfg.Currency = valueobject.DefaultCurrency
	}

	c := &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tokens:     tokens,
		maxBytes:   cfg.MaxResponseBytes,
		currency:   cfg.Currency,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// envelope is the backend's response wrapper
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// do sends one request and decodes the envelope's result into out (if non-nil)
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	ctx, span := telemetry.StartSpan(ctx, op, trace.SpanKindClient,
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
	)
	defer span.End()

	err := c.roundTrip(ctx, op, method, path, body, out)
	if err != nil {
		telemetry.RecordError(span, err)
		logger.Enrich(ctx, c.logger).Debug("remote call failed",
			zap.String("op", op),
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := logger.GetRequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}
	if c.tokens != nil {
		if token := c.tokens.Token(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return transportError(op, err)
	}
	if int64(len(raw)) > c.maxBytes {
		return tooLarge(op, resp.StatusCode, c.maxBytes)
	}

	var env envelope
	var decodeErr error
	if len(bytes.TrimSpace(raw)) > 0 {
		decodeErr = json.Unmarshal(raw, &env)
	}

	if resp.StatusCode >= 400 {
		return statusError(op, resp.StatusCode, env.Code, env.Message)
	}
	if decodeErr != nil {
		return invalidResponse(op, resp.StatusCode, decodeErr)
	}
	if out == nil || len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return invalidResponse(op, resp.StatusCode, err)
	}
	return nil
}
