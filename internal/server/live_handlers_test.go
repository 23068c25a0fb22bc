package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/aetherquant/internal/config"
)

func liveDryRunConfig(cfg *config.Config) {
	cfg.LiveBroker = config.LiveBrokerConfig{
		Endpoint: "https://broker.example.com",
		Token:    "test-token",
		Provider: "generic-rest",
		DryRun:   true,
		Timeout:  5 * time.Second,
	}
}

func TestHandleLiveOrder_DryRun(t *testing.T) {
	srv := newTestServer(t, liveDryRunConfig)

	rec := doJSON(t, srv, http.MethodPost, "/api/live/orders", map[string]any{
		"symbol":       "SPY",
		"quantity":     5.0,
		"side":         "buy",
		"market_price": 100.0,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["dry_run"])
	assert.InDelta(t, 100.0, body["fill_price"].(float64), 1e-9)
	assert.InDelta(t, 0.0, body["commission"].(float64), 1e-9)
}

func TestHandleLiveOrder_Validation(t *testing.T) {
	srv := newTestServer(t, liveDryRunConfig)

	rec := doJSON(t, srv, http.MethodPost, "/api/live/orders", map[string]any{
		"symbol":       "SPY",
		"quantity":     5.0,
		"side":         "hold",
		"market_price": 100.0,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/live/orders", map[string]any{
		"symbol":       "SPY",
		"quantity":     -1.0,
		"side":         "buy",
		"market_price": 100.0,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/live/orders", map[string]any{
		"symbol":   "SPY",
		"quantity": 1.0,
		"side":     "buy",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "market price required")
}

func TestHandleLive_NotConfigured(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/live/orders", map[string]any{
		"symbol": "SPY", "quantity": 1.0, "side": "buy", "market_price": 100.0,
	}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/live/account", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleLiveAccount_DryRunIsEmpty(t *testing.T) {
	srv := newTestServer(t, liveDryRunConfig)

	rec := doJSON(t, srv, http.MethodGet, "/api/live/account", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.InDelta(t, 0.0, body["equity"].(float64), 1e-9)
	assert.Equal(t, true, body["dry_run"])
}
