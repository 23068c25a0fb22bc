package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/aetherquant/internal/modules/execution"
)

// liveBroker builds the live broker adapter from configuration. Returns nil
// when no live endpoint is configured.
func (s *Server) liveBroker() (*execution.LiveBroker, error) {
	if s.cfg.LiveBroker.Endpoint == "" {
		return nil, nil
	}
	return execution.NewLiveBroker(execution.LiveBrokerConfig{
		Endpoint: s.cfg.LiveBroker.Endpoint,
		APIToken: s.cfg.LiveBroker.Token,
		APIKeyID: s.cfg.LiveBroker.KeyID,
		Provider: s.cfg.LiveBroker.Provider,
		DryRun:   s.cfg.LiveBroker.DryRun,
		Timeout:  s.cfg.LiveBroker.Timeout,
	}, nil, s.log)
}

// liveOrderRequest places one market order with the live provider.
type liveOrderRequest struct {
	Symbol      string  `json:"symbol"`
	Quantity    float64 `json:"quantity"`
	Side        string  `json:"side"`
	MarketPrice float64 `json:"market_price"`
}

// handleLiveOrder submits a market order through the configured live broker.
// Admin only; honors dry-run mode.
func (s *Server) handleLiveOrder(w http.ResponseWriter, r *http.Request) {
	broker, err := s.liveBroker()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if broker == nil {
		s.writeError(w, http.StatusServiceUnavailable, "live broker is not configured")
		return
	}

	var req liveOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.MarketPrice <= 0 {
		s.writeError(w, http.StatusBadRequest, "market_price must be greater than zero")
		return
	}
	side, err := execution.SideFromString(req.Side)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	order, err := execution.NewOrder(req.Symbol, req.Quantity, side, time.Now().UTC())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	fill, err := broker.SubmitOrder(order, req.MarketPrice)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"symbol":     fill.Order.Symbol,
		"side":       string(fill.Order.Side),
		"quantity":   fill.Order.Quantity,
		"fill_price": fill.FillPrice,
		"commission": fill.Commission,
		"dry_run":    s.cfg.LiveBroker.DryRun,
	})
}

// handleLiveAccount returns the provider's account snapshot. Admin only.
func (s *Server) handleLiveAccount(w http.ResponseWriter, r *http.Request) {
	broker, err := s.liveBroker()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if broker == nil {
		s.writeError(w, http.StatusServiceUnavailable, "live broker is not configured")
		return
	}

	snapshot := broker.AccountSnapshot(0, "")
	s.writeJSON(w, http.StatusOK, map[string]any{
		"cash":         snapshot.Cash,
		"market_value": snapshot.MarketValue,
		"equity":       snapshot.Equity,
		"dry_run":      s.cfg.LiveBroker.DryRun,
	})
}
