package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yukyu/yukyu/internal/fetch"
	"github.com/yukyu/yukyu/internal/server/middleware"
)

func TestFromFetchErrorMapsKinds(t *testing.T) {
	tests := []struct {
		err    error
		code   string
		status int
	}{
		{&fetch.Error{Kind: fetch.KindTimeout, Message: fetch.TimeoutMessage}, CodeTimeout, http.StatusGatewayTimeout},
		{&fetch.Error{Kind: fetch.KindNetwork, Message: "connection refused"}, CodeExternalService, http.StatusBadGateway},
		{&fetch.Error{Kind: fetch.KindCSRFRejected, Status: 403, Message: "rejected"}, CodeForbidden, http.StatusForbidden},
		{&fetch.Error{Kind: fetch.KindStatus, Status: 500, Message: "boom"}, CodeExternalService, http.StatusBadGateway},
		{&fetch.Error{Kind: fetch.KindDecode, Message: "bad json"}, CodeDataProcessing, http.StatusBadGateway},
		{stderrors.New("plain failure"), CodeExternalService, http.StatusBadGateway},
	}

	for _, tt := range tests {
		envelope := FromFetchError(context.Background(), tt.err)
		require.NotNil(t, envelope)
		assert.Equal(t, tt.code, envelope.Code, tt.err.Error())
		assert.Equal(t, tt.status, HTTPStatusFromEnvelope(envelope))
		assert.Equal(t, fetch.MessageOf(tt.err), envelope.Message)
		assert.NotEmpty(t, envelope.CorrelationID)
	}

	assert.Nil(t, FromFetchError(context.Background(), nil))
}

func TestFromFetchErrorKeepsBackendStatus(t *testing.T) {
	envelope := FromFetchError(context.Background(), &fetch.Error{Kind: fetch.KindStatus, Status: 503, Message: "maintenance"})
	details := ResponseDetails(envelope)
	assert.Equal(t, 503, details["backend_status"])
	assert.Equal(t, "status", details["kind"])
}

func TestEnsureEnvelope(t *testing.T) {
	envelope := EnsureEnvelope(stderrors.New("kaboom"))
	assert.Equal(t, CodeInternal, envelope.Code)
	assert.Equal(t, "kaboom", ResponseDetails(envelope)["wrapped_error"])

	wrapped := EnsureEnvelope(&fetch.Error{Kind: fetch.KindTimeout, Message: fetch.TimeoutMessage})
	assert.Equal(t, CodeTimeout, wrapped.Code)
	assert.Empty(t, wrapped.CorrelationID)

	existing := NewNotFoundError("missing")
	assert.Same(t, existing, EnsureEnvelope(existing))

	assert.Equal(t, CodeInternal, EnsureEnvelope(nil).Code)
}

func TestRespondWithErrorUsesRequestID(t *testing.T) {
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RespondWithError(w, r, &fetch.Error{Kind: fetch.KindCSRFRejected, Status: 403, Message: "token rejected"})
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/employees", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)

	var body HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeForbidden, body.Error.Code)
	assert.Equal(t, "token rejected", body.Error.Message)
	assert.Equal(t, "req-123", body.Error.RequestID)
}
