// Package transport implements the shared HTTP layer under every vendor
// driver: request building, authentication headers, bounded retry with
// exponential backoff, and the single place where vendor HTTP failures
// become driver errors.
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
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/driverkit/internal/auth"
	"github.com/fivetwenty-io/driverkit/internal/constants"
	"github.com/fivetwenty-io/driverkit/pkg/driver"
)

// Request describes one vendor API call.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string

	// Body is JSON-marshaled unless Form is set.
	Body any

	// Form, when non-nil, is sent form-encoded instead of JSON. Stripe
	// writes use this.
	Form url.Values
}

// Response is the decoded-enough view of a vendor API response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// JSON unmarshals the response body into v.
func (r *Response) JSON(v any) error {
	if len(r.Body) == 0 {
		return nil
	}

	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}

	return nil
}

// Client is the HTTP client shared by all vendor drivers. Authentication,
// retry policy, and error mapping are configured per vendor through
// options.
type Client struct {
	vendor       string
	baseURL      string
	httpClient   *retryablehttp.Client
	tokenManager auth.TokenManager
	apiKeyHeader string
	basicUser    string
	basicPass    string
	headers      map[string]string
	userAgent    string
	logger       driver.Logger
	debug        bool
	interceptors *driver.InterceptorChain
}

// Option configures a Client.
type Option func(*Client)

// WithTokenManager authenticates requests with a bearer token from the
// manager.
func WithTokenManager(manager auth.TokenManager) Option {
	return func(c *Client) {
		c.tokenManager = manager
	}
}

// WithAPIKeyHeader sends the manager's token in the named header instead
// of Authorization, e.g. "X-Api-Key" for Fidoo or "Api-Key" for mPOHODA.
func WithAPIKeyHeader(header string, manager auth.TokenManager) Option {
	return func(c *Client) {
		c.tokenManager = manager
		c.apiKeyHeader = header
	}
}

// WithBasicAuth authenticates requests with HTTP basic auth.
func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		c.basicUser = username
		c.basicPass = password
	}
}

// WithHeader sets a fixed header on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithUserAgent overrides the default User-Agent.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithLogger wires structured logging into the client.
func WithLogger(logger driver.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables per-request debug logging. Requires a logger.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithTimeout bounds each HTTP request including retries' individual
// attempts.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient.Timeout = timeout
	}
}

// WithRetryConfig overrides the retry bounds. A negative max disables
// retries.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		if retryMax < 0 {
			retryMax = 0
		}

		c.httpClient.RetryMax = retryMax

		if waitMin > 0 {
			c.httpClient.RetryWaitMin = waitMin
		}

		if waitMax > 0 {
			c.httpClient.RetryWaitMax = waitMax
		}
	}
}

// WithInterceptors attaches a request/response interceptor chain.
func WithInterceptors(chain *driver.InterceptorChain) Option {
	return func(c *Client) {
		c.interceptors = chain
	}
}

// NewClient creates a transport client for one vendor rooted at baseURL.
func NewClient(vendor, baseURL string, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = constants.DefaultRetryMax
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	retryClient.Logger = nil

	// Keep the final response on retry exhaustion so a drained 429 still
	// carries its Retry-After header into the mapped error.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := &Client{
		vendor:     vendor,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: retryClient,
		headers:    make(map[string]string),
		userAgent:  constants.UserAgent,
	}

	for _, opt := range opts {
		opt(client)
	}

	retryClient.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			retriesTotal.WithLabelValues(vendor).Inc()
		}

		if client.debug && client.logger != nil {
			client.logger.Debug("sending request", map[string]interface{}{
				"vendor":  vendor,
				"method":  req.Method,
				"url":     req.URL.String(),
				"attempt": attempt,
			})
		}
	}

	return client
}

// BaseURL returns the resolved API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do executes the request and maps any failure to a driver error.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	interceptReq := &driver.Request{
		Method:  req.Method,
		Path:    req.Path,
		Headers: httpReq.Header,
	}

	if c.interceptors != nil {
		if err := c.interceptors.ExecuteRequestInterceptors(ctx, interceptReq); err != nil {
			return nil, driver.NewConnectionError(err.Error(), nil)
		}
	}

	start := time.Now()

	httpResp, err := c.httpClient.Do(httpReq)

	requestDuration.WithLabelValues(c.vendor).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, c.mapTransportError(ctx, err)
	}

	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, driver.NewConnectionError(fmt.Sprintf("reading response body: %v", err), nil)
	}

	requestsTotal.WithLabelValues(c.vendor, req.Method, strconv.Itoa(httpResp.StatusCode)).Inc()

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
	}

	if c.interceptors != nil {
		interceptResp := &driver.Response{
			StatusCode: resp.StatusCode,
			Headers:    resp.Headers,
			Body:       resp.Body,
		}
		if err := c.interceptors.ExecuteResponseInterceptors(ctx, interceptReq, interceptResp); err != nil {
			return nil, driver.NewConnectionError(err.Error(), nil)
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		mapped := c.mapStatusError(resp)
		errorsTotal.WithLabelValues(c.vendor, string(mapped.Kind)).Inc()

		return nil, mapped
	}

	return resp, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post performs a JSON POST request.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// PostForm performs a form-encoded POST request.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Form: form})
}

// Put performs a JSON PUT request.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// Patch performs a JSON PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.HTTPClient.CloseIdleConnections()
}

func (c *Client) buildRequest(ctx context.Context, req *Request) (*retryablehttp.Request, error) {
	fullURL := c.baseURL + req.Path
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	var (
		bodyReader  io.Reader
		contentType string
	)

	switch {
	case req.Form != nil:
		bodyReader = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.Body != nil:
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, driver.NewValidationError(fmt.Sprintf("encoding request body: %v", err), nil)
		}

		bodyReader = bytes.NewReader(data)
		contentType = "application/json"
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, fullURL, bodyReader)
	if err != nil {
		return nil, driver.NewConnectionError(fmt.Sprintf("building request: %v", err), nil)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	if err := c.applyAuth(ctx, httpReq); err != nil {
		return nil, err
	}

	for key, value := range c.headers {
		httpReq.Header.Set(key, value)
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	return httpReq, nil
}

func (c *Client) applyAuth(ctx context.Context, httpReq *retryablehttp.Request) error {
	if c.basicUser != "" {
		httpReq.SetBasicAuth(c.basicUser, c.basicPass)
	}

	if c.tokenManager == nil {
		return nil
	}

	token, err := c.tokenManager.GetToken(ctx)
	if err != nil {
		return driver.NewAuthenticationError(fmt.Sprintf("obtaining token: %v", err), nil)
	}

	if c.apiKeyHeader != "" {
		httpReq.Header.Set(c.apiKeyHeader, token)
	} else {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	return nil
}

func (c *Client) mapTransportError(ctx context.Context, err error) *driver.Error {
	var mapped *driver.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded) || isTimeout(err):
		mapped = driver.NewTimeoutError(
			fmt.Sprintf("request to %s timed out: %v", c.vendor, err), nil)
	case ctx.Err() != nil:
		mapped = driver.NewTimeoutError(
			fmt.Sprintf("request to %s cancelled: %v", c.vendor, ctx.Err()), nil)
	default:
		mapped = driver.NewConnectionError(
			fmt.Sprintf("request to %s failed: %v", c.vendor, err), nil)
	}

	errorsTotal.WithLabelValues(c.vendor, string(mapped.Kind)).Inc()

	return mapped
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }

	return errors.As(err, &netErr) && netErr.Timeout()
}

// mapStatusError translates one HTTP failure status into a driver error.
// This is the single mapping point for all vendors.
func (c *Client) mapStatusError(resp *Response) *driver.Error {
	message := extractErrorMessage(resp.Body)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		if message == "" {
			message = "invalid or missing credentials"
		}

		return driver.NewAuthenticationError(message, map[string]any{
			"status_code": resp.StatusCode,
		})

	case http.StatusNotFound:
		if message == "" {
			message = "resource not found"
		}

		return driver.NewObjectNotFoundError(message, map[string]any{
			"status_code": resp.StatusCode,
		})

	case http.StatusBadRequest:
		if message == "" {
			message = "request rejected as malformed"
		}

		return driver.NewQuerySyntaxError(message, map[string]any{
			"status_code": resp.StatusCode,
		})

	case http.StatusUnprocessableEntity:
		if message == "" {
			message = "request failed validation"
		}

		return driver.NewValidationError(message, map[string]any{
			"status_code": resp.StatusCode,
		})

	case http.StatusTooManyRequests:
		details := map[string]any{"status_code": resp.StatusCode}
		if retryAfter := parseRetryAfter(resp.Headers.Get("Retry-After")); retryAfter > 0 {
			details["retry_after"] = retryAfter
		}

		return driver.NewRateLimitError(
			fmt.Sprintf("%s rate limit exceeded after retries", c.vendor), details)

	default:
		if message == "" {
			message = fmt.Sprintf("%s returned status %d", c.vendor, resp.StatusCode)
		}

		return driver.NewConnectionError(message, map[string]any{
			"status_code": resp.StatusCode,
		})
	}
}

// parseRetryAfter reads a Retry-After value in delay-seconds form.
func parseRetryAfter(value string) int {
	if value == "" {
		return 0
	}

	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0
	}

	return seconds
}

// extractErrorMessage pulls a human-readable message out of the common
// vendor error body shapes.
func extractErrorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	for _, key := range []string{"message", "detail", "error_description"} {
		if msg, ok := payload[key].(string); ok && msg != "" {
			return msg
		}
	}

	// Stripe nests {"error": {"message": ...}}; others use a bare string.
	switch errVal := payload["error"].(type) {
	case string:
		return errVal
	case map[string]any:
		if msg, ok := errVal["message"].(string); ok {
			return msg
		}
	}

	return ""
}
