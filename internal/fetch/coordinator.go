// Package fetch wraps outbound calls to the leave-management backend: bounded wait,
// CSRF token attachment for mutating verbs, and a single retry when the backend
// rejects the token.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/yukyu/yukyu/internal/metrics"
)

// DefaultTimeout bounds a request when the caller does not pass one.
const DefaultTimeout = 30 * time.Second

// RequestIDHeader tags every outbound attempt for backend log correlation.
const RequestIDHeader = "X-Request-ID"

// Coordinator performs single logical HTTP requests against one API base.
//
// The zero value is usable once BaseURL is set. The token cache is the only mutable
// state and belongs to the coordinator; other components reach it only through
// GetCSRFToken and InvalidateCSRFToken.
type Coordinator struct {
	BaseURL        string
	Client         *http.Client
	DefaultTimeout time.Duration
	CSRFTokenTTL   time.Duration
	CSRFTokenPath  string
	UserAgent      string
	Limiter        *rate.Limiter
	Logger         *logging.Logger
	Clock          func() time.Time

	mu    sync.Mutex
	token *CSRFToken
	stats CSRFStats
}

// Options configures New.
type Options struct {
	BaseURL        string
	DefaultTimeout time.Duration
	CSRFTokenTTL   time.Duration
	CSRFTokenPath  string
	UserAgent      string
	// RateLimit caps outbound requests per second. Zero disables throttling.
	RateLimit float64
	RateBurst int
	Tracing   bool
	Logger    *logging.Logger
}

// New builds a coordinator with its own HTTP client.
func New(opts Options) *Coordinator {
	c := &Coordinator{
		BaseURL:        strings.TrimSpace(opts.BaseURL),
		Client:         NewHTTPClient(opts.Tracing),
		DefaultTimeout: opts.DefaultTimeout,
		CSRFTokenTTL:   opts.CSRFTokenTTL,
		CSRFTokenPath:  opts.CSRFTokenPath,
		UserAgent:      opts.UserAgent,
		Logger:         opts.Logger,
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		c.Limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return c
}

// NewHTTPClient returns a client without its own timeout; deadlines come from the
// request context. With tracing on, the transport emits OpenTelemetry client spans.
func NewHTTPClient(tracing bool) *http.Client {
	var transport http.RoundTripper = http.DefaultTransport
	if tracing {
		transport = otelhttp.NewTransport(transport)
	}
	return &http.Client{Transport: transport}
}

// Request describes one logical call. Body is kept as bytes so the CSRF retry can
// resend it unchanged.
type Request struct {
	URL     string
	Method  Method
	Body    []byte
	Header  http.Header
	Timeout time.Duration
}

// Request performs req under a single deadline that covers token acquisition, the
// original attempt and the optional CSRF retry.
//
// Only transport failures and timeouts are returned as errors. Every HTTP status,
// including 4xx and 5xx, comes back as a RawResponse. A 403 carrying a CSRF rejection
// code triggers exactly one reissue with a fresh token; the reissue's response is
// returned as is, even if it is rejected again.
func (c *Coordinator) Request(ctx context.Context, req Request) (*RawResponse, error) {
	if c == nil {
		return nil, errors.New("fetch coordinator is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	method := req.Method
	if method == "" {
		method = MethodGet
	}
	if !method.Valid() {
		return nil, fmt.Errorf("unsupported method: %s", method)
	}

	timeout := req.Timeout
	if timeout == 0 {
		timeout = c.defaultTimeout()
	}
	if timeout < 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", timeout)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	target := c.resolve(req.URL)
	header := cloneHeader(req.Header)

	resp, err := c.do(ctx, method, target, req.Body, header)
	c.record(method, resp, err, time.Since(start))
	return resp, err
}

func (c *Coordinator) do(ctx context.Context, method Method, target string, body []byte, header http.Header) (*RawResponse, error) {
	withToken := method.Mutating() && header.Get("Authorization") == ""
	if withToken {
		token, err := c.GetCSRFToken(ctx)
		if err != nil {
			return nil, err
		}
		header.Set(CSRFHeader, token.Value)
	}

	resp, err := c.send(ctx, method, target, body, header)
	if err != nil {
		return nil, err
	}
	if !resp.CSRFRejected() {
		return resp, nil
	}

	c.debug("CSRF token rejected, retrying once",
		zap.String("method", string(method)),
		zap.String("url", target),
		zap.String("error_code", errorCode(resp.Body)),
		zap.Bool("had_token", withToken))

	c.InvalidateCSRFToken()
	token, err := c.fetchCSRFToken(ctx, "rejected")
	if err != nil {
		return nil, err
	}
	header.Set(CSRFHeader, token.Value)

	retried, err := c.send(ctx, method, target, body, header)
	if err != nil {
		return nil, err
	}
	retried.Attempts = 2

	c.mu.Lock()
	c.stats.Retries++
	c.mu.Unlock()

	outcome := "accepted"
	if retried.CSRFRejected() {
		outcome = "rejected"
	}
	metrics.RecordCSRFRetry(outcome)
	return retried, nil
}

// send issues one HTTP attempt and reads the full body under ctx.
func (c *Coordinator) send(ctx context.Context, method Method, target string, body []byte, header http.Header) (*RawResponse, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil, c.classify(ctx, ctx.Err())
			}
			return nil, timeoutError(err)
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, string(method), target, reader)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Message: fmt.Sprintf("build request: %v", err), Err: err}
	}
	for key, values := range header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	if body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.UserAgent)
	}
	httpReq.Header.Set(RequestIDHeader, uuid.New().String())

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, c.classify(ctx, err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.classify(ctx, err)
	}

	return &RawResponse{
		Status:   resp.StatusCode,
		Header:   resp.Header,
		Body:     data,
		Attempts: 1,
	}, nil
}

func (c *Coordinator) classify(ctx context.Context, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return timeoutError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return timeoutError(err)
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindNetwork, Message: "request canceled", Err: err}
	}

	c.debug("Request transport failure", zap.Error(err))
	return networkError(err)
}

func (c *Coordinator) record(method Method, resp *RawResponse, err error, elapsed time.Duration) {
	if err != nil {
		metrics.RecordFetch(string(method), "error", elapsed)
		metrics.RecordFetchError(string(KindOf(err)))
		return
	}
	outcome := "ok"
	if !resp.OK() {
		outcome = "http_error"
	}
	metrics.RecordFetch(string(method), outcome, elapsed)
}

// Get issues a GET for path relative to BaseURL.
func (c *Coordinator) Get(ctx context.Context, path string) (*RawResponse, error) {
	return c.Request(ctx, Request{URL: path, Method: MethodGet})
}

// Post JSON-encodes payload and POSTs it.
func (c *Coordinator) Post(ctx context.Context, path string, payload any) (*RawResponse, error) {
	return c.SendJSON(ctx, MethodPost, path, payload)
}

// Put JSON-encodes payload and PUTs it.
func (c *Coordinator) Put(ctx context.Context, path string, payload any) (*RawResponse, error) {
	return c.SendJSON(ctx, MethodPut, path, payload)
}

// Patch JSON-encodes payload and PATCHes it.
func (c *Coordinator) Patch(ctx context.Context, path string, payload any) (*RawResponse, error) {
	return c.SendJSON(ctx, MethodPatch, path, payload)
}

// Delete issues a DELETE for path.
func (c *Coordinator) Delete(ctx context.Context, path string) (*RawResponse, error) {
	return c.Request(ctx, Request{URL: path, Method: MethodDelete})
}

// SendJSON encodes payload (nil sends no body) and issues the request.
func (c *Coordinator) SendJSON(ctx context.Context, method Method, path string, payload any) (*RawResponse, error) {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = encoded
	}
	return c.Request(ctx, Request{URL: path, Method: method, Body: body})
}

func (c *Coordinator) resolve(target string) string {
	target = strings.TrimSpace(target)
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}
	base := strings.TrimRight(c.BaseURL, "/")
	if target == "" {
		return base
	}
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}
	return base + target
}

func (c *Coordinator) defaultTimeout() time.Duration {
	if c.DefaultTimeout > 0 {
		return c.DefaultTimeout
	}
	return DefaultTimeout
}

func (c *Coordinator) now() time.Time {
	if c != nil && c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

func (c *Coordinator) debug(msg string, fields ...zap.Field) {
	if c.Logger != nil {
		c.Logger.Debug(msg, fields...)
	}
}

func cloneHeader(h http.Header) http.Header {
	if h == nil {
		return http.Header{}
	}
	return h.Clone()
}
