package transport

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

	"golang.org/x/time/rate"

	"github.com/yndnr/regdesk-go/internal/core/domain"
	"github.com/yndnr/regdesk-go/internal/telemetry/logger"
	"github.com/yndnr/regdesk-go/internal/telemetry/metric"
)

// Header names.
const (
	HeaderSessionToken = "X-Session-Token"
	HeaderRequestID    = "X-Request-ID"
	HeaderRunID        = "X-Run-ID"
)

// Outcome labels used for metrics and logs.
const (
	OutcomeSuccess      = "success"
	OutcomeHTTPError    = "http_error"
	OutcomeNetworkError = "network_error"
	OutcomeMalformed    = "malformed"
)

// DefaultTimeout bounds a single call, validation included.
const DefaultTimeout = 30 * time.Second

// maxBodySize caps how much of a response body is read.
const maxBodySize = 4 << 20

// TokenSource yields the current session token.
// sessionstore.Store satisfies it.
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
}

// Client issues authenticated JSON calls to the backend.
type Client struct {
	baseURL   string
	client    *http.Client
	tokens    TokenSource
	limiter   *rate.Limiter
	userAgent string
	logger    logger.Logger
	metrics   *metric.Registry
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithTimeout sets the per-call timeout. A client passed to
// WithHTTPClient is copied, not modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			return
		}
		hc := http.Client{}
		if c.client != nil {
			hc = *c.client
		}
		hc.Timeout = d
		c.client = &hc
	}
}

// WithRateLimit throttles outgoing calls to rps with the given burst.
// A non-positive rps disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metric.Registry) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a client for server. A server without scheme gets http://.
func New(server string, tokens TokenSource, opts ...Option) *Client {
	baseURL := strings.TrimRight(server, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}

	c := &Client{
		baseURL:   baseURL,
		client:    &http.Client{Timeout: DefaultTimeout},
		tokens:    tokens,
		userAgent: "regdesk-cli/1.0",
		logger:    logger.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the base URL of the client.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Response is a successful (2xx) backend response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       json.RawMessage // nil when the body was empty
	RequestID  string
}

// Decode unmarshals the body into target. An empty body leaves target untouched.
func (r *Response) Decode(target any) error {
	if len(r.Body) == 0 || target == nil {
		return nil
	}
	if err := json.Unmarshal(r.Body, target); err != nil {
		return domain.ErrResponseMalformed.WithCause(err)
	}
	return nil
}

// CallOption adjusts a single call.
type CallOption func(*callConfig)

type callConfig struct {
	token  *string
	query  url.Values
	header http.Header
}

// WithToken sends token instead of the stored one.
func WithToken(token string) CallOption {
	return func(cc *callConfig) {
		cc.token = &token
	}
}

// WithoutToken sends no session header (login, public lookups).
func WithoutToken() CallOption {
	return WithToken("")
}

// WithQuery appends query parameters.
func WithQuery(q url.Values) CallOption {
	return func(cc *callConfig) {
		cc.query = q
	}
}

// WithHeader sets an extra request header.
func WithHeader(key, value string) CallOption {
	return func(cc *callConfig) {
		if cc.header == nil {
			cc.header = make(http.Header)
		}
		cc.header.Set(key, value)
	}
}

// Call issues method path with an optional JSON body.
//
// Errors are *HTTPError, *NetworkError, or a *domain.DomainError for local
// failures (body encoding, token store failure, malformed 2xx body).
func (c *Client) Call(ctx context.Context, method, path string, body any, opts ...CallOption) (*Response, error) {
	var cc callConfig
	for _, opt := range opts {
		opt(&cc)
	}

	target := c.baseURL + path
	if len(cc.query) > 0 {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		target += sep + cc.query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, domain.ErrRequestEncode.WithCause(err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, domain.ErrInvalidArgument.WithDetails("build request").WithCause(err)
	}

	token, err := c.resolveToken(ctx, cc.token)
	if err != nil {
		return nil, err
	}

	requestID, err := domain.NewRequestID()
	if err != nil {
		return nil, err
	}

	ctx = logger.WithRequestID(ctx, requestID)
	c.addHeaders(req, token, requestID)
	if runID := logger.RunIDFromContext(ctx); runID != "" {
		req.Header.Set(HeaderRunID, runID)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range cc.header {
		req.Header[k] = v
	}

	log := logger.Enrich(ctx, c.logger).With("method", method, "path", path)
	start := time.Now()

	resp, err := c.do(ctx, req)
	if err != nil {
		c.metrics.RecordRequest(method, OutcomeNetworkError, time.Since(start))
		log.Debug("request failed before response", "error", err)
		return nil, &NetworkError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	// A response cut off mid-body never completed, so it is a network
	// error even though a status line arrived.
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		c.metrics.RecordRequest(method, OutcomeNetworkError, time.Since(start))
		log.Debug("response body read failed", "status", resp.StatusCode, "error", err)
		return nil, &NetworkError{Method: method, URL: target, Err: fmt.Errorf("read body: %w", err)}
	}
	elapsed := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.RecordRequest(method, OutcomeHTTPError, elapsed)
		log.Debug("request rejected", "status", resp.StatusCode, "duration", elapsed)
		return nil, newHTTPError(resp.StatusCode, data)
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		RequestID:  requestID,
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 {
		if !json.Valid(trimmed) {
			c.metrics.RecordRequest(method, OutcomeMalformed, elapsed)
			return nil, domain.ErrResponseMalformed.WithDetails(fmt.Sprintf("%s %s: status %d", method, path, resp.StatusCode))
		}
		out.Body = json.RawMessage(trimmed)
	}

	c.metrics.RecordRequest(method, OutcomeSuccess, elapsed)
	log.Debug("request completed", "status", resp.StatusCode, "duration", elapsed)
	return out, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, opts ...CallOption) (*Response, error) {
	return c.Call(ctx, http.MethodGet, path, nil, opts...)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...CallOption) (*Response, error) {
	return c.Call(ctx, http.MethodPost, path, body, opts...)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any, opts ...CallOption) (*Response, error) {
	return c.Call(ctx, http.MethodPut, path, body, opts...)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, opts ...CallOption) (*Response, error) {
	return c.Call(ctx, http.MethodDelete, path, nil, opts...)
}

// do waits for the rate limiter, then sends req.
func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	return c.client.Do(req)
}

// resolveToken reads the token fresh from the store unless the call
// overrides it. An absent token means the request goes out without one.
func (c *Client) resolveToken(ctx context.Context, override *string) (string, error) {
	if override != nil {
		return *override, nil
	}
	if c.tokens == nil {
		return "", nil
	}
	token, err := c.tokens.GetToken(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrSessionAbsent) {
			return "", nil
		}
		return "", err
	}
	return token, nil
}

// addHeaders adds authentication and common headers.
func (c *Client) addHeaders(req *http.Request, token, requestID string) {
	if token != "" {
		req.Header.Set(HeaderSessionToken, token)
	}
	req.Header.Set(HeaderRequestID, requestID)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
}
