// Package endpoint queries an arbitrary RAG HTTP endpoint and extracts an
// answer string from whatever response shape it returns.
package endpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/datar-psa/ragscore/api"
)

// Defaults for client construction.
const (
	DefaultTimeout     = 40 * time.Second
	DefaultMaxTries    = 3
	DefaultBackoffBase = 800 * time.Millisecond

	bodyPreviewLen = 500
)

// retryableStatuses are the only response codes worth another attempt.
var retryableStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Client queries a RAG endpoint under test. Create it with NewClient; the
// zero value is not usable. A Client is safe for concurrent use.
type Client struct {
	endpointURL   string
	method        string
	questionField string
	headers       map[string]string
	httpClient    *http.Client
	maxTries      int
	backoffBase   time.Duration
	logger        *zap.Logger
}

// ClientOptions configures Client creation.
type ClientOptions struct {
	method        string
	questionField string
	headers       map[string]string
	httpClient    *http.Client
	timeout       time.Duration
	maxTries      int
	backoffBase   time.Duration
	loginURL      string
	username      string
	password      string
	logger        *zap.Logger
}

// WithMethod sets the HTTP method, POST (default) or GET.
func WithMethod(method string) func(*ClientOptions) {
	return func(opts *ClientOptions) {
		opts.method = strings.ToUpper(method)
	}
}

// WithQuestionField sets the request field name carrying the question.
func WithQuestionField(field string) func(*ClientOptions) {
	return func(opts *ClientOptions) {
		opts.questionField = field
	}
}

// WithHeaders sets additional request headers.
func WithHeaders(headers map[string]string) func(*ClientOptions) {
	return func(opts *ClientOptions) {
		opts.headers = headers
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) func(*ClientOptions) {
	return func(opts *ClientOptions) {
		opts.timeout = timeout
	}
}

// WithMaxRetries sets the total number of attempts for retryable statuses.
func WithMaxRetries(tries int) func(*ClientOptions) {
	return func(opts *ClientOptions) {
		opts.maxTries = tries
	}
}

// WithBackoffBase sets the initial retry backoff interval.
func WithBackoffBase(base time.Duration) func(*ClientOptions) {
	return func(opts *ClientOptions) {
		opts.backoffBase = base
	}
}

// WithHTTPClient replaces the underlying HTTP client. Mainly for tests.
func WithHTTPClient(client *http.Client) func(*ClientOptions) {
	return func(opts *ClientOptions) {
		opts.httpClient = client
	}
}

// WithLogin configures a session login issued once at construction. The
// session cookies it produces are reused on every query.
func WithLogin(loginURL, username, password string) func(*ClientOptions) {
	return func(opts *ClientOptions) {
		opts.loginURL = loginURL
		opts.username = username
		opts.password = password
	}
}

// WithLogger sets the logger for query diagnostics.
func WithLogger(logger *zap.Logger) func(*ClientOptions) {
	return func(opts *ClientOptions) {
		opts.logger = logger
	}
}

// NewClient creates a Client for the given endpoint URL. When login
// credentials are configured the authentication request is issued here, and
// its failure is returned as an error: queries cannot succeed without it.
func NewClient(endpointURL string, opts ...func(*ClientOptions)) (*Client, error) {
	options := &ClientOptions{
		method:        http.MethodPost,
		questionField: "question",
		timeout:       DefaultTimeout,
		maxTries:      DefaultMaxTries,
		backoffBase:   DefaultBackoffBase,
	}
	for _, opt := range opts {
		opt(options)
	}
	if endpointURL == "" {
		return nil, fmt.Errorf("%w: endpoint URL is required", api.ErrInvalidConfig)
	}
	if options.method != http.MethodPost && options.method != http.MethodGet {
		return nil, fmt.Errorf("%w: unsupported method %q", api.ErrInvalidConfig, options.method)
	}
	if options.logger == nil {
		options.logger = zap.NewNop()
	}
	if options.httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		options.httpClient = &http.Client{
			Timeout: options.timeout,
			Jar:     jar,
		}
	}

	c := &Client{
		endpointURL:   endpointURL,
		method:        options.method,
		questionField: options.questionField,
		headers:       options.headers,
		httpClient:    options.httpClient,
		maxTries:      options.maxTries,
		backoffBase:   options.backoffBase,
		logger:        options.logger,
	}

	if options.loginURL != "" {
		if err := c.authenticate(options.loginURL, options.username, options.password); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Client) authenticate(loginURL, username, password string) error {
	form := url.Values{
		"username": {username},
		"password": {password},
	}
	resp, err := c.httpClient.PostForm(loginURL, form)
	if err != nil {
		return fmt.Errorf("%w: %v", api.ErrAuthenticationFailed, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: login returned status %d", api.ErrAuthenticationFailed, resp.StatusCode)
	}
	c.logger.Info("endpoint authentication successful", zap.String("login_url", loginURL))
	return nil
}

// Query sends question to the endpoint and extracts an answer from the
// response. extraParams, if non-nil, is merged into the request payload.
//
// Query is total for ordinary failure modes: timeouts, HTTP errors,
// unparsable bodies, and empty bodies all come back as a response with an
// empty answer and an ErrorKind, never as an error.
func (c *Client) Query(ctx context.Context, question string, extraParams map[string]any) api.EndpointResponse {
	payload := map[string]any{c.questionField: question}
	for k, v := range extraParams {
		payload[k] = v
	}

	start := time.Now()
	body, err := c.doWithRetry(ctx, payload)
	elapsed := float64(time.Since(start)) / float64(time.Millisecond)

	if err != nil {
		kind := classifyError(err)
		c.logger.Warn("endpoint query failed",
			zap.String("kind", kind),
			zap.Error(err),
		)
		return failure(kind, err.Error(), elapsed)
	}

	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return failure(api.ErrorKindEmptyBody, "empty response body", elapsed)
	}

	var raw map[string]any
	if jsonErr := json.Unmarshal([]byte(trimmed), &raw); jsonErr != nil {
		resp := failure(api.ErrorKindJSONParse, jsonErr.Error(), elapsed)
		resp.Raw["body_preview"] = preview(trimmed)
		return resp
	}

	return api.EndpointResponse{
		Answer:    extractAnswer(raw),
		Raw:       raw,
		ElapsedMS: elapsed,
	}
}

// statusError carries a non-2xx response status through the retry loop.
type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("endpoint returned status %d", e.status)
}

// doWithRetry performs the request, retrying only the fixed set of retryable
// statuses with exponential backoff. An exhausted budget surfaces as the
// last status error, a single failure.
func (c *Client) doWithRetry(ctx context.Context, payload map[string]any) ([]byte, error) {
	operation := func() ([]byte, error) {
		req, err := c.newRequest(ctx, payload)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Transport failures are not status-driven, so they get no
			// retry budget.
			return nil, backoff.Permanent(err)
		}
		defer resp.Body.Close()

		// Streaming responses (text/event-stream or chunked transfer) and
		// plain bodies are handled the same way: read every chunk to the
		// end and parse the concatenation.
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			sErr := &statusError{status: resp.StatusCode}
			if retryableStatuses[resp.StatusCode] {
				return nil, sErr
			}
			return nil, backoff.Permanent(sErr)
		}
		return body, nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.backoffBase

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(c.maxTries)),
	)
}

func (c *Client) newRequest(ctx context.Context, payload map[string]any) (*http.Request, error) {
	var req *http.Request
	var err error
	if c.method == http.MethodGet {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, c.endpointURL, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		for k, v := range payload {
			q.Set(k, fmt.Sprint(v))
		}
		req.URL.RawQuery = q.Encode()
	} else {
		body, mErr := json.Marshal(payload)
		if mErr != nil {
			return nil, mErr
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func classifyError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return api.ErrorKindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return api.ErrorKindTimeout
	}
	var sErr *statusError
	var uErr *url.Error
	if errors.As(err, &sErr) || errors.As(err, &uErr) {
		return api.ErrorKindHTTP
	}
	return api.ErrorKindUnexpected
}

func failure(kind, cause string, elapsed float64) api.EndpointResponse {
	return api.EndpointResponse{
		Answer: "",
		Raw: map[string]any{
			"error": kind,
			"cause": cause,
		},
		ElapsedMS: elapsed,
		ErrorKind: kind,
	}
}

func preview(s string) string {
	if len(s) > bodyPreviewLen {
		return s[:bodyPreviewLen]
	}
	return s
}
