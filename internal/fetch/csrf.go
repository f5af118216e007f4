package fetch

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yukyu/yukyu/internal/metrics"
)

// DefaultCSRFTokenTTL matches the backend's token lifetime with a safety margin.
const DefaultCSRFTokenTTL = 50 * time.Minute

// DefaultCSRFTokenPath is the token endpoint relative to the API base.
const DefaultCSRFTokenPath = "/api/csrf-token"

// CSRFHeader carries the token on mutating requests.
const CSRFHeader = "X-CSRF-Token"

// CSRFToken is a cached anti-forgery token.
type CSRFToken struct {
	Value      string
	AcquiredAt time.Time
	TTL        time.Duration
}

// Valid reports whether the token is still usable at now.
func (t CSRFToken) Valid(now time.Time) bool {
	return t.Value != "" && now.Sub(t.AcquiredAt) < t.TTL
}

// CSRFStats counts token cache activity since the coordinator was created.
type CSRFStats struct {
	Fetches       int64
	Invalidations int64
	Retries       int64
}

// GetCSRFToken returns the cached token if it is still valid, otherwise fetches a new
// one. Failures are not cached, so the next call fetches again.
//
// Concurrent callers that observe an expired token may each fetch a new one. Token
// issuance is idempotent on the backend, so the duplicate work is accepted rather than
// serialized behind the fetch.
func (c *Coordinator) GetCSRFToken(ctx context.Context) (CSRFToken, error) {
	now := c.now()

	c.mu.Lock()
	if c.token != nil && c.token.Valid(now) {
		token := *c.token
		c.mu.Unlock()
		return token, nil
	}
	expired := c.token != nil
	c.mu.Unlock()

	reason := "initial"
	if expired {
		reason = "expired"
	}
	return c.fetchCSRFToken(ctx, reason)
}

// InvalidateCSRFToken clears the cached token unconditionally.
func (c *Coordinator) InvalidateCSRFToken() {
	c.mu.Lock()
	c.token = nil
	c.stats.Invalidations++
	c.mu.Unlock()
}

// CSRFStats returns a snapshot of token cache counters.
func (c *Coordinator) CSRFStats() CSRFStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Coordinator) fetchCSRFToken(ctx context.Context, reason string) (CSRFToken, error) {
	resp, err := c.send(ctx, MethodGet, c.resolve(c.csrfTokenPath()), nil, nil)
	if err != nil {
		c.debug("CSRF token fetch failed", zap.String("reason", reason), zap.Error(err))
		return CSRFToken{}, err
	}
	if !resp.OK() {
		return CSRFToken{}, &Error{
			Kind:    KindStatus,
			Status:  resp.Status,
			Message: "CSRF token endpoint failed: " + resp.ErrorMessage(),
		}
	}

	var payload struct {
		CSRFToken string `json:"csrf_token"`
	}
	if err := resp.DecodeJSON(&payload); err != nil {
		return CSRFToken{}, err
	}
	value := strings.TrimSpace(payload.CSRFToken)
	if value == "" {
		return CSRFToken{}, &Error{Kind: KindDecode, Status: resp.Status, Message: "CSRF token endpoint returned no csrf_token"}
	}

	token := CSRFToken{Value: value, AcquiredAt: c.now(), TTL: c.csrfTokenTTL()}

	c.mu.Lock()
	c.token = &token
	c.stats.Fetches++
	c.mu.Unlock()

	metrics.RecordCSRFRefresh(reason)
	c.debug("CSRF token acquired", zap.String("reason", reason), zap.Duration("ttl", token.TTL))
	return token, nil
}

func (c *Coordinator) csrfTokenTTL() time.Duration {
	if c.CSRFTokenTTL > 0 {
		return c.CSRFTokenTTL
	}
	return DefaultCSRFTokenTTL
}

func (c *Coordinator) csrfTokenPath() string {
	if strings.TrimSpace(c.CSRFTokenPath) != "" {
		return c.CSRFTokenPath
	}
	return DefaultCSRFTokenPath
}
