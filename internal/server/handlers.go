package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aristath/aetherquant/internal/domain"
	"github.com/aristath/aetherquant/internal/modules/backtest"
	"github.com/aristath/aetherquant/internal/modules/execution"
	"github.com/aristath/aetherquant/internal/modules/optimization"
	"github.com/aristath/aetherquant/internal/modules/portfolio"
	"github.com/aristath/aetherquant/internal/modules/runs"
	"github.com/aristath/aetherquant/internal/modules/strategies"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "aetherquant",
	})
}

// strategyRequest is the shared request shape for backtests and simulations.
type strategyRequest struct {
	Symbol        string   `json:"symbol"`
	Period        string   `json:"period"`
	Fast          int      `json:"fast"`
	Slow          int      `json:"slow"`
	InitialCash   *float64 `json:"initial_cash"`
	CommissionBps *float64 `json:"commission_bps"`
	SlippageBps   *float64 `json:"slippage_bps"`
}

// resolve fills request defaults from the server configuration.
func (req *strategyRequest) resolve(s *Server) (symbol string, momentum strategies.MomentumConfig, initialCash, commissionBps, slippageBps float64) {
	symbol = req.Symbol
	if symbol == "" {
		symbol = s.cfg.DefaultSymbol
	}

	momentum = strategies.DefaultMomentumConfig()
	if req.Fast > 0 {
		momentum.LookbackFast = req.Fast
	}
	if req.Slow > 0 {
		momentum.LookbackSlow = req.Slow
	}

	initialCash = s.cfg.InitialCash
	if req.InitialCash != nil {
		initialCash = *req.InitialCash
	}
	commissionBps = s.cfg.CommissionBps
	if req.CommissionBps != nil {
		commissionBps = *req.CommissionBps
	}
	slippageBps = s.cfg.SlippageBps
	if req.SlippageBps != nil {
		slippageBps = *req.SlippageBps
	}
	return
}

func metricsPayload(m backtest.Metrics) map[string]float64 {
	return map[string]float64{
		"annual_return": m.AnnualReturn,
		"max_drawdown":  m.MaxDrawdown,
		"sharpe":        m.Sharpe,
	}
}

// handleBacktest runs the weight-rebalancing backtest and records the run.
func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var req strategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	symbol, momentum, initialCash, commissionBps, _ := req.resolve(s)

	prices, err := s.provider.ClosePrices(r.Context(), symbol, req.Period)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	strategy, err := strategies.NewMovingAverageCross(momentum)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	portfolioCfg, err := portfolio.NewConfig(initialCash, commissionBps)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := backtest.NewEngine(strategy, portfolioCfg, s.log).Run(prices)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	metrics := metricsPayload(result.Metrics)
	runID, err := s.runs.RecordRun(runs.RunRecord{
		RunType:  "backtest",
		Symbol:   symbol,
		Period:   req.Period,
		Interval: "1d",
		Payload: map[string]any{
			"strategy":       strategy.Name(),
			"initial_cash":   initialCash,
			"commission_bps": commissionBps,
		},
		Metrics: metrics,
		Equity:  result.Equity,
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"run_id":            runID,
		"symbol":            symbol,
		"strategy":          strategy.Name(),
		"final_equity":      result.Equity.Last(),
		"metrics":           metrics,
		"benchmark_metrics": metricsPayload(result.BenchmarkMetrics),
	})
}

// handleSimulate runs the order-driven paper trading simulation and records
// the run with its orders.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req strategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	symbol, momentum, initialCash, commissionBps, slippageBps := req.resolve(s)

	prices, err := s.provider.ClosePrices(r.Context(), symbol, req.Period)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	strategy, err := strategies.NewMovingAverageCross(momentum)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	targets, err := strategy.TargetPositions(prices)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	// The paper broker holds no short positions: a sell-signal target goes
	// flat, not short.
	targets = targets.ClipLower(0)

	broker, err := execution.NewPaperBroker(initialCash, commissionBps, slippageBps, s.log)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := execution.NewTradingEngine(broker, symbol, s.log).Run(prices, targets)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	runID, err := s.runs.RecordRun(runs.RunRecord{
		RunType:  "simulate",
		Symbol:   symbol,
		Period:   req.Period,
		Interval: "1d",
		Payload: map[string]any{
			"strategy":       strategy.Name(),
			"initial_cash":   initialCash,
			"commission_bps": commissionBps,
			"slippage_bps":   slippageBps,
		},
		Equity: result.EquityCurve,
		Orders: result.Orders,
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"run_id":        runID,
		"symbol":        symbol,
		"strategy":      strategy.Name(),
		"final_equity":  result.EquityCurve.Last(),
		"orders_placed": result.OrdersPlaced,
	})
}

// handleSignal classifies the latest period return of a symbol as a
// buy/sell/hold action against a symmetric threshold.
func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		symbol = s.cfg.DefaultSymbol
	}
	period := r.URL.Query().Get("period")

	threshold := 0.0
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "threshold must be a non-negative number")
			return
		}
		threshold = parsed
	}

	prices, err := s.provider.ClosePrices(r.Context(), symbol, period)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	returns := prices.PctChange()
	if len(returns) == 0 {
		s.writeError(w, http.StatusUnprocessableEntity, "need at least two prices to compute a return")
		return
	}
	latest := returns[len(returns)-1]

	s.writeJSON(w, http.StatusOK, map[string]any{
		"symbol":        symbol,
		"latest_return": latest,
		"threshold":     threshold,
		"action":        strategies.Signal(latest, threshold),
	})
}

// optimizeRequest carries an explicit asset returns matrix plus constraints.
type optimizeRequest struct {
	Assets       []string    `json:"assets"`
	Returns      [][]float64 `json:"returns"`
	MaxWeight    *float64    `json:"max_weight"`
	AllowShort   bool        `json:"allow_short"`
	RiskAversion float64     `json:"risk_aversion"`
}

func (req *optimizeRequest) build() (optimization.ReturnsMatrix, optimization.Constraints, error) {
	matrix, err := optimization.NewReturnsMatrix(req.Assets, req.Returns)
	if err != nil {
		return optimization.ReturnsMatrix{}, optimization.Constraints{}, err
	}

	constraints := optimization.DefaultConstraints()
	if req.MaxWeight != nil || req.AllowShort {
		maxWeight := 1.0
		if req.MaxWeight != nil {
			maxWeight = *req.MaxWeight
		}
		constraints, err = optimization.NewConstraints(req.AllowShort, maxWeight)
		if err != nil {
			return optimization.ReturnsMatrix{}, optimization.Constraints{}, err
		}
	}
	return matrix, constraints, nil
}

func (s *Server) handleRiskParity(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	matrix, constraints, err := req.build()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	weights, err := s.optimizer.RiskParityWeights(matrix, constraints)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"weights": weights})
}

func (s *Server) handleMeanVariance(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	matrix, constraints, err := req.build()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	weights, err := s.optimizer.MeanVarianceWeights(matrix, req.RiskAversion, constraints)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"weights": weights})
}

// handleListRuns returns the most recent runs.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	stored, err := s.runs.ListRuns(limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	items := make([]map[string]any, 0, len(stored))
	for _, run := range stored {
		items = append(items, map[string]any{
			"run_id":        run.RunID,
			"created_at":    run.CreatedAt,
			"run_type":      run.RunType,
			"symbol":        run.Symbol,
			"final_equity":  run.FinalEquity,
			"orders_placed": run.OrdersPlaced,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"runs": items})
}

// handleRunEquity returns the stored equity path of a run.
func (s *Server) handleRunEquity(w http.ResponseWriter, r *http.Request) {
	runID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "run id must be an integer")
		return
	}

	equity, err := s.runs.GetRunEquity(runID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, seriesPayload(equity))
}

func seriesPayload(series domain.Series) map[string]any {
	times := make([]string, series.Len())
	values := make([]float64, series.Len())
	for i := 0; i < series.Len(); i++ {
		times[i] = series.Time(i).Format("2006-01-02T15:04:05Z07:00")
		values[i] = series.Value(i)
	}
	return map[string]any{"times": times, "values": values}
}

// handleListAudit returns recent audit events. Admin only.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	events, err := s.runs.ListAuditEvents(100)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	items := make([]map[string]any, 0, len(events))
	for _, event := range events {
		items = append(items, map[string]any{
			"created_at": event.CreatedAt,
			"method":     event.Method,
			"path":       event.Path,
			"status":     event.StatusCode,
			"request_id": event.RequestID,
			"actor_role": event.ActorRole,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"events": items})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{"error": message})
}
