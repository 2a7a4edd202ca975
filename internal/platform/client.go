package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/felixgeelhaar/grievance/internal/log"
	"github.com/felixgeelhaar/grievance/internal/metrics"
)

// DefaultBaseURL is used when no base URL is configured
const DefaultBaseURL = "/api"

// localOrigin anchors relative base URLs such as "/api"
const localOrigin = "http://localhost"

// TokenSource returns the current bearer token, or "" when there is none.
type TokenSource func() string

// FailureHandler is invoked with every error an operation returns.
type FailureHandler func(error)

// Config holds the transport configuration of the access client
type Config struct {
	// BaseURL is prefixed to every endpoint path (default "/api")
	BaseURL string

	// Timeout bounds a single request including the response body (default 30s)
	Timeout time.Duration

	// UserAgent is sent on every request
	UserAgent string
}

// DefaultConfig returns the configuration used when nothing is overridden
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		Timeout:   30 * time.Second,
		UserAgent: "grievance-cli",
	}
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTokenSource injects the accessor consulted when no in-memory token is set
func WithTokenSource(src TokenSource) Option {
	return func(c *Client) {
		c.tokenSource = src
	}
}

// WithFailureHandler registers a callback that observes every returned error
func WithFailureHandler(fn FailureHandler) Option {
	return func(c *Client) {
		c.onFailure = fn
	}
}

// WithLogger sets the diagnostics logger
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics enables request instrumentation
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// Client is the single conduit for all network I/O of the grievance client.
// It is safe for concurrent use.
type Client struct {
	baseURL     string
	userAgent   string
	httpClient  *http.Client
	tokenSource TokenSource
	onFailure   FailureHandler
	logger      *log.Logger
	metrics     *metrics.Metrics

	mu    sync.RWMutex
	token string
}

// NewClient creates a new access client
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	c := &Client{
		baseURL:   resolveBaseURL(cfg.BaseURL),
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = log.DefaultLogger()
	}

	return c
}

// resolveBaseURL anchors a path-only base URL to the local origin
func resolveBaseURL(base string) string {
	base = strings.TrimRight(base, "/")
	if strings.HasPrefix(base, "http://") || strings.HasPrefix(base, "https://") {
		return base
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return localOrigin + base
}

// BaseURL returns the resolved base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetAuthToken sets the in-memory token. An empty token clears the override
// so the injected token source is consulted again.
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// authToken resolves the token for a single call
func (c *Client) authToken() string {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	if token != "" {
		return token
	}
	if c.tokenSource != nil {
		return c.tokenSource()
	}
	return ""
}

// Request describes one call. It is built per call and never retained.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers http.Header
	Body    any
}

// Get issues a read request. Query values are string-coerced.
func (c *Client) Get(ctx context.Context, path string, query map[string]any) (json.RawMessage, error) {
	return c.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  encodeQuery(query),
	})
}

// Post sends body as JSON
func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put sends body as JSON
func (c *Client) Put(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body})
}

// Delete issues a delete request
func (c *Client) Delete(ctx context.Context, path string) (json.RawMessage, error) {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path})
}

// Do performs a JSON request and normalizes the response
func (c *Client) Do(ctx context.Context, r Request) (json.RawMessage, error) {
	start := time.Now()

	var reqBody io.Reader
	if r.Body != nil {
		jsonBody, err := json.Marshal(r.Body)
		if err != nil {
			return nil, c.fail(r, start, fmt.Errorf("failed to marshal request body: %w", err))
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, c.endpoint(r.Path, r.Query), reqBody)
	if err != nil {
		return nil, c.fail(r, start, fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	c.decorate(req)
	for key, values := range r.Headers {
		req.Header[http.CanonicalHeaderKey(key)] = values
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.fail(r, start, &TransportError{
			Op:      r.Method + " " + r.Path,
			Message: msgNetworkFailed,
			Cause:   err,
		})
	}
	defer resp.Body.Close()

	data, err := normalize(resp, msgRequestFailed)
	if err != nil {
		return nil, c.fail(r, start, err)
	}

	elapsed := time.Since(start)
	c.metrics.ObserveRequest(r.Method, metrics.OutcomeOK, elapsed)
	if c.logger.Enabled(ctx, log.LevelDebug) {
		c.logger.Debug("request completed",
			"method", r.Method,
			"path", r.Path,
			"bytes", len(data),
			"duration", elapsed,
		)
	}
	return data, nil
}

// decorate attaches the headers every request carries
func (c *Client) decorate(req *http.Request) {
	if token := c.authToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
}

// endpoint joins the base URL, path and query
func (c *Client) endpoint(path string, query url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.baseURL + path
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		u += sep + query.Encode()
	}
	return u
}

// fail records, logs and hands the error to the failure handler
func (c *Client) fail(r Request, start time.Time, err error) error {
	c.metrics.ObserveRequest(r.Method, outcomeOf(err), time.Since(start))
	c.logger.WithError(err).Debug("request failed",
		"method", r.Method,
		"path", r.Path,
		"status", statusOf(err),
	)
	if c.onFailure != nil {
		c.onFailure(err)
	}
	return err
}

// normalize applies the response contract shared by every operation.
// fallback is the message used when a rejection carries no "error" field.
func normalize(resp *http.Response, fallback string) (json.RawMessage, error) {
	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "application/json") {
		return nil, &ProtocolError{
			Message:     msgNonJSON,
			StatusCode:  resp.StatusCode,
			ContentType: contentType,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "read response", Message: msgNetworkFailed, Cause: err}
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, &ProtocolError{
			Message:     msgEmptyResponse,
			StatusCode:  resp.StatusCode,
			ContentType: contentType,
		}
	}

	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &ProtocolError{
			Message:     msgMalformedJSON,
			StatusCode:  resp.StatusCode,
			ContentType: contentType,
			Cause:       err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := fallback
		if obj, ok := parsed.(map[string]any); ok {
			if msg, ok := obj["error"].(string); ok && msg != "" {
				message = msg
			}
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	return json.RawMessage(body), nil
}

// encodeQuery string-coerces query parameters
func encodeQuery(params map[string]any) url.Values {
	if len(params) == 0 {
		return nil
	}
	values := make(url.Values, len(params))
	for key, value := range params {
		values.Set(key, fmt.Sprint(value))
	}
	return values
}

// decodeInto unmarshals a normalized payload into target
func decodeInto(data json.RawMessage, target any) error {
	if err := json.Unmarshal(data, target); err != nil {
		return &ProtocolError{
			Message: "Server returned an unexpected response",
			Cause:   err,
		}
	}
	return nil
}

func outcomeOf(err error) string {
	switch err.(type) {
	case *APIError:
		return metrics.OutcomeAPIError
	case *ProtocolError:
		return metrics.OutcomeProtocolError
	case *TransportError:
		return metrics.OutcomeTransportError
	default:
		return metrics.OutcomeClientError
	}
}

func statusOf(err error) int {
	switch e := err.(type) {
	case *APIError:
		return e.StatusCode
	case *ProtocolError:
		return e.StatusCode
	default:
		return 0
	}
}
