package payment

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/vymjay/aprylo/pkg/errors"
	"github.com/vymjay/aprylo/pkg/httpclient"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	httpCfg := httpclient.Config{
		Timeout:         2 * time.Second,
		MaxRetries:      0,
		RetryWaitMin:    time.Millisecond,
		RetryWaitMax:    time.Millisecond,
		MaxConnsPerHost: 5,
	}
	cb := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpCfg),
		httpclient.DefaultCircuitBreakerConfig("payments-test-"+t.Name()),
		logger,
	)
	return NewClient(cb, baseURL, logger)
}

func TestClient_Charge_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/charges", r.URL.Path)

		var req ChargeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ord-1", req.OrderID)
		assert.Equal(t, int64(15998), req.Amount)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(ChargeResult{Reference: "ch_abc123", Status: "succeeded"})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	result, err := client.Charge(t.Context(), ChargeRequest{
		OrderID: "ord-1", UserID: "user-1", Amount: 15998, Currency: "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, "ch_abc123", result.Reference)
	assert.Equal(t, "succeeded", result.Status)
}

func TestClient_Charge_Declined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(map[string]string{"code": "card_declined", "message": "insufficient funds"})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Charge(t.Context(), ChargeRequest{OrderID: "ord-1", Amount: 100, Currency: "USD"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrPaymentFailed))
}

func TestClient_Charge_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Charge(t.Context(), ChargeRequest{OrderID: "ord-1", Amount: 100, Currency: "USD"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrPaymentFailed), "a provider outage is not a decline")
}
