package exchange

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MahdiHaeri/Cloud-Practice-1/internal/metrics"
)

func newNobitex(t *testing.T, handler http.HandlerFunc) (*NobitexClient, *metrics.Metrics) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	m := metrics.New(nobitexName)
	return NewNobitexClient(zap.NewNop(), srv.URL, nil, m), m
}

func TestNobitexFetch_TopOfBookScaledToToman(t *testing.T) {
	client, m := newNobitex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/orderbook/BTCIRT", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"status": "ok",
			"bids": [["41000000000", "0.5"], ["40990000000", "1.2"]],
			"asks": [["41010000000", "0.1"]],
			"lastUpdate": 1730000000000,
			"lastTradePrice": "41005000000"
		}`))
	})

	q, err := client.Fetch(context.Background(), "btc")
	require.NoError(t, err)

	assert.Equal(t, "nobitex", q.Exchange)
	assert.Equal(t, "BTCIRT", q.Symbol)
	assert.Equal(t, "IRT", q.QuoteCurrency)

	// Rial values divided by ten
	assert.True(t, q.Bid.Decimal.Equal(decimal.RequireFromString("4100000000")))
	assert.True(t, q.Ask.Decimal.Equal(decimal.RequireFromString("4101000000")))
	assert.True(t, q.Last.Decimal.Equal(decimal.RequireFromString("4100500000")))

	summary := m.Summary()["nobitex"].(map[string]any)
	assert.EqualValues(t, 1, summary["successful_requests"])
}

func TestNobitexFetch_EmptyBookFallsBackToLastTrade(t *testing.T) {
	client, _ := newNobitex(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": "ok", "bids": [], "asks": [], "lastTradePrice": "500"}`))
	})

	q, err := client.Fetch(context.Background(), "BTC")
	require.NoError(t, err)

	want := decimal.RequireFromString("50")
	require.True(t, q.Bid.Valid)
	require.True(t, q.Ask.Valid)
	assert.True(t, q.Bid.Decimal.Equal(want))
	assert.True(t, q.Ask.Decimal.Equal(want))
}

func TestNobitexFetch_OneSidedBookKeepsOtherSideAbsent(t *testing.T) {
	client, _ := newNobitex(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": "ok", "bids": [["1000", "1"]], "asks": [], "lastTradePrice": ""}`))
	})

	q, err := client.Fetch(context.Background(), "BTC")
	require.NoError(t, err)

	assert.True(t, q.Bid.Valid)
	assert.False(t, q.Ask.Valid, "an empty ask side must stay absent, not become zero")
	assert.False(t, q.Last.Valid)
}

func TestNobitexFetch_NonOkStatus(t *testing.T) {
	client, m := newNobitex(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": "failed"}`))
	})

	_, err := client.Fetch(context.Background(), "XYZ")
	require.Error(t, err)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, FailureSymbolNotFound, fetchErr.Kind)

	summary := m.Summary()["nobitex"].(map[string]any)
	assert.EqualValues(t, 1, summary["failed_requests"])
}

func TestNobitexFetch_EmptyPayload(t *testing.T) {
	client, _ := newNobitex(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": "ok"}`))
	})

	_, err := client.Fetch(context.Background(), "BTC")
	require.Error(t, err)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, FailureUnparseable, fetchErr.Kind)
}

func TestNobitexFetch_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	m := metrics.New(nobitexName)
	client := NewNobitexClient(zap.NewNop(), srv.URL, nil, m)

	_, err := client.Fetch(context.Background(), "BTC")
	require.Error(t, err)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, FailureTransport, fetchErr.Kind)

	summary := m.Summary()["nobitex"].(map[string]any)
	assert.EqualValues(t, 1, summary["failed_requests"])
}
