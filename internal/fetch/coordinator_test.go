package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// csrfBackend issues numbered tokens and routes everything else to handler.
type csrfBackend struct {
	tokenHits atomic.Int32
	fail      atomic.Bool
	handler   http.HandlerFunc
}

func (b *csrfBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == DefaultCSRFTokenPath {
		n := b.tokenHits.Add(1)
		if b.fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"csrf_token": "t" + strconv.Itoa(int(n))})
		return
	}
	b.handler(w, r)
}

func newTestCoordinator(t *testing.T, backend *csrfBackend) (*Coordinator, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	c := &Coordinator{
		BaseURL: server.URL,
		Client:  server.Client(),
	}
	return c, server
}

func writeCSRFRejection(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(`{"error_code":"` + code + `"}`))
}

func TestRequestAttachesCSRFTokenOnMutatingVerbs(t *testing.T) {
	var seen []string
	backend := &csrfBackend{handler: func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.Header.Get(CSRFHeader))
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))
		w.WriteHeader(http.StatusOK)
	}}
	c, _ := newTestCoordinator(t, backend)

	_, err := c.Get(context.Background(), "/api/employees")
	require.NoError(t, err)
	require.Equal(t, int32(0), backend.tokenHits.Load())

	for _, method := range []Method{MethodPost, MethodPut, MethodPatch, MethodDelete} {
		resp, err := c.Request(context.Background(), Request{URL: "/api/things", Method: method})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.Status)
	}

	require.Equal(t, []string{"GET ", "POST t1", "PUT t1", "PATCH t1", "DELETE t1"}, seen)
	require.Equal(t, int32(1), backend.tokenHits.Load())
}

func TestRequestSkipsCSRFWhenAuthorizationPresent(t *testing.T) {
	backend := &csrfBackend{handler: func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get(CSRFHeader))
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}}
	c, _ := newTestCoordinator(t, backend)

	header := http.Header{}
	header.Set("Authorization", "Bearer abc")
	resp, err := c.Request(context.Background(), Request{URL: "/api/sync", Method: MethodPost, Header: header})
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.Status)
	require.Equal(t, int32(0), backend.tokenHits.Load())
}

func TestRequestRetriesCSRFRejectionWithoutInitialToken(t *testing.T) {
	for _, tc := range []struct {
		name   string
		method Method
		header http.Header
	}{
		{name: "get", method: MethodGet},
		{name: "authorization", method: MethodPost, header: http.Header{"Authorization": []string{"Bearer abc"}}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var tokens []string
			backend := &csrfBackend{}
			backend.handler = func(w http.ResponseWriter, r *http.Request) {
				tokens = append(tokens, r.Header.Get(CSRFHeader))
				if len(tokens) == 1 {
					writeCSRFRejection(w, CodeCSRFTokenMissing)
					return
				}
				w.WriteHeader(http.StatusOK)
			}
			c, _ := newTestCoordinator(t, backend)

			resp, err := c.Request(context.Background(), Request{URL: "/api/employees", Method: tc.method, Header: tc.header})
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.Status)
			require.Equal(t, 2, resp.Attempts)
			require.Equal(t, []string{"", "t1"}, tokens)
			require.Equal(t, int64(1), c.CSRFStats().Invalidations)
		})
	}
}

func TestRequestRetriesOnceAfterCSRFRejection(t *testing.T) {
	var attempts atomic.Int32
	var bodies []string
	var tokens []string
	backend := &csrfBackend{}
	backend.handler = func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		encoded, _ := json.Marshal(payload)
		bodies = append(bodies, string(encoded))
		tokens = append(tokens, r.Header.Get(CSRFHeader))
		if n == 1 {
			writeCSRFRejection(w, CodeCSRFTokenInvalid)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}
	c, _ := newTestCoordinator(t, backend)

	resp, err := c.Post(context.Background(), "/api/leave-requests/7/approve", map[string]any{"reason": "ok"})
	require.NoError(t, err)
	require.True(t, resp.OK())
	require.Equal(t, 2, resp.Attempts)
	require.Equal(t, int32(2), attempts.Load())
	require.Equal(t, []string{"t1", "t2"}, tokens)
	require.Equal(t, bodies[0], bodies[1])

	stats := c.CSRFStats()
	require.Equal(t, int64(1), stats.Invalidations)
	require.Equal(t, int64(2), stats.Fetches)
	require.Equal(t, int64(1), stats.Retries)
}

func TestRequestRetriesOnNestedDetailRejection(t *testing.T) {
	var attempts atomic.Int32
	backend := &csrfBackend{}
	backend.handler = func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"detail":{"error_code":"CSRF_TOKEN_MISSING","message":"missing"}}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
	}
	c, _ := newTestCoordinator(t, backend)

	resp, err := c.Post(context.Background(), "/api/leave-requests", map[string]any{"days": 1})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Status)
	require.Equal(t, int32(2), attempts.Load())
}

func TestRequestNeverRetriesMoreThanOnce(t *testing.T) {
	var attempts atomic.Int32
	backend := &csrfBackend{}
	backend.handler = func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		writeCSRFRejection(w, CodeCSRFTokenMissing)
	}
	c, _ := newTestCoordinator(t, backend)

	resp, err := c.Post(context.Background(), "/api/sync", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.Status)
	require.True(t, resp.CSRFRejected())
	require.Equal(t, 2, resp.Attempts)
	require.Equal(t, int32(2), attempts.Load())
	require.Equal(t, int64(1), c.CSRFStats().Invalidations)
}

func TestRequestPassesHTTPErrorsThrough(t *testing.T) {
	var attempts atomic.Int32
	backend := &csrfBackend{}
	backend.handler = func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error_code":"NOT_ALLOWED"}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"database offline"}`))
	}
	c, _ := newTestCoordinator(t, backend)

	resp, err := c.Get(context.Background(), "/api/employees")
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.Status)
	require.Equal(t, "database offline", resp.ErrorMessage())

	resp, err = c.Post(context.Background(), "/api/sync", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.Status)
	require.False(t, resp.CSRFRejected())
	require.Equal(t, 1, resp.Attempts)
	require.Equal(t, int32(2), attempts.Load())
}

func TestRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	backend := &csrfBackend{handler: func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}}
	c, _ := newTestCoordinator(t, backend)
	defer close(release)

	timeout := 50 * time.Millisecond
	start := time.Now()
	_, err := c.Request(context.Background(), Request{URL: "/api/employees", Timeout: timeout})
	elapsed := time.Since(start)

	require.Error(t, err)
	require.ErrorIs(t, err, ErrTimeout)
	require.Equal(t, KindTimeout, KindOf(err))
	require.Equal(t, TimeoutMessage, MessageOf(err))
	require.Less(t, elapsed, timeout+time.Second)
}

func TestRequestNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := &Coordinator{BaseURL: url}
	_, err := c.Get(context.Background(), "/api/employees")
	require.Error(t, err)
	require.Equal(t, KindNetwork, KindOf(err))
	require.NotEmpty(t, MessageOf(err))
}

func TestRequestValidatesInput(t *testing.T) {
	c := &Coordinator{BaseURL: "http://127.0.0.1:1"}

	_, err := c.Request(context.Background(), Request{URL: "/x", Method: Method("TRACE")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported method")

	_, err = c.Request(context.Background(), Request{URL: "/x", Timeout: -time.Second})
	require.Error(t, err)
	require.Contains(t, err.Error(), "timeout")
}

func TestGetCSRFTokenHonorsTTL(t *testing.T) {
	backend := &csrfBackend{handler: http.NotFound}
	c, _ := newTestCoordinator(t, backend)

	t0 := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	now := t0
	c.Clock = func() time.Time { return now }
	c.CSRFTokenTTL = time.Second

	token, err := c.GetCSRFToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "t1", token.Value)
	require.Equal(t, t0, token.AcquiredAt)

	now = t0.Add(999 * time.Millisecond)
	token, err = c.GetCSRFToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "t1", token.Value)
	require.Equal(t, int32(1), backend.tokenHits.Load())

	now = t0.Add(1001 * time.Millisecond)
	token, err = c.GetCSRFToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "t2", token.Value)
	require.Equal(t, int32(2), backend.tokenHits.Load())
}

func TestDefaultClockKeepsMonotonicReading(t *testing.T) {
	backend := &csrfBackend{handler: http.NotFound}
	c, _ := newTestCoordinator(t, backend)

	token, err := c.GetCSRFToken(context.Background())
	require.NoError(t, err)
	// Time.String appends the monotonic reading as "m=...".
	require.Contains(t, token.AcquiredAt.String(), "m=")
	require.True(t, token.Valid(time.Now()))
}

func TestGetCSRFTokenDoesNotCacheFailures(t *testing.T) {
	backend := &csrfBackend{handler: http.NotFound}
	backend.fail.Store(true)
	c, _ := newTestCoordinator(t, backend)

	_, err := c.GetCSRFToken(context.Background())
	require.Error(t, err)
	require.Equal(t, KindStatus, KindOf(err))

	backend.fail.Store(false)
	token, err := c.GetCSRFToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "t2", token.Value)
	require.Equal(t, int32(2), backend.tokenHits.Load())
}

func TestInvalidateCSRFTokenClearsCache(t *testing.T) {
	backend := &csrfBackend{handler: http.NotFound}
	c, _ := newTestCoordinator(t, backend)

	_, err := c.GetCSRFToken(context.Background())
	require.NoError(t, err)

	c.InvalidateCSRFToken()
	token, err := c.GetCSRFToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "t2", token.Value)
}

func TestMutatingRequestFailsWhenTokenUnavailable(t *testing.T) {
	var attempts atomic.Int32
	backend := &csrfBackend{handler: func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
	}}
	backend.fail.Store(true)
	c, _ := newTestCoordinator(t, backend)

	_, err := c.Post(context.Background(), "/api/sync", nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrStatus))
	require.Equal(t, int32(0), attempts.Load())
}
