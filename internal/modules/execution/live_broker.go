package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Transport performs a single JSON request against a live broker API.
// Extracted as an interface so tests can run without a network.
type Transport interface {
	RequestJSON(ctx context.Context, method, url string, headers map[string]string, payload map[string]any) (map[string]any, error)
}

// HTTPTransport is the default Transport backed by net/http.
type HTTPTransport struct {
	Client *http.Client
}

// RequestJSON sends the request and decodes the JSON object response.
func (t *HTTPTransport) RequestJSON(ctx context.Context, method, url string, headers map[string]string, payload map[string]any) (map[string]any, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("live broker request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("live broker returned status %d", resp.StatusCode)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read live broker response: %w", err)
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return map[string]any{}, nil
	}

	var decoded map[string]any
	if err := json.Unmarshal(content, &decoded); err != nil {
		return nil, fmt.Errorf("live broker response must be a JSON object: %w", err)
	}
	return decoded, nil
}

// endpoints holds the provider-specific API paths.
type endpoints struct {
	orderPath   string
	accountPath string
}

func providerEndpoints(provider string) (endpoints, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "generic-rest":
		return endpoints{orderPath: "/orders", accountPath: "/account"}, nil
	case "alpaca":
		return endpoints{orderPath: "/v2/orders", accountPath: "/v2/account"}, nil
	default:
		return endpoints{}, fmt.Errorf("unsupported live broker provider: %q", provider)
	}
}

// LiveBrokerConfig configures the live broker adapter.
type LiveBrokerConfig struct {
	Endpoint string
	APIToken string
	APIKeyID string // Required for the alpaca provider
	Provider string // "generic-rest" or "alpaca"
	DryRun   bool
	Timeout  time.Duration
}

// LiveBroker delegates order execution to an external REST API.
//
// In dry-run mode it returns synthetic fills at market price with zero
// commission and an empty account snapshot, which keeps the trading engine
// runnable before any provider credentials exist.
type LiveBroker struct {
	cfg       LiveBrokerConfig
	endpoints endpoints
	transport Transport
	log       zerolog.Logger
}

// NewLiveBroker creates a live broker adapter. transport may be nil, in which
// case the default HTTP transport is used.
func NewLiveBroker(cfg LiveBrokerConfig, transport Transport, log zerolog.Logger) (*LiveBroker, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("live broker endpoint must be non-empty")
	}
	if strings.TrimSpace(cfg.APIToken) == "" {
		return nil, fmt.Errorf("live broker api_token must be non-empty")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("live broker timeout must be greater than zero")
	}
	if cfg.Provider == "" {
		cfg.Provider = "generic-rest"
	}

	eps, err := providerEndpoints(cfg.Provider)
	if err != nil {
		return nil, err
	}
	if strings.ToLower(cfg.Provider) == "alpaca" && strings.TrimSpace(cfg.APIKeyID) == "" {
		return nil, fmt.Errorf("api_key_id is required for the alpaca provider")
	}
	if transport == nil {
		transport = &HTTPTransport{Client: &http.Client{Timeout: cfg.Timeout}}
	}

	return &LiveBroker{
		cfg:       cfg,
		endpoints: eps,
		transport: transport,
		log:       log.With().Str("broker", "live").Str("provider", cfg.Provider).Logger(),
	}, nil
}

// SubmitOrder places a market order with the live provider.
func (b *LiveBroker) SubmitOrder(order Order, marketPrice float64) (Fill, error) {
	if b.cfg.DryRun {
		b.log.Info().
			Str("symbol", order.Symbol).
			Str("side", string(order.Side)).
			Float64("quantity", order.Quantity).
			Msg("Dry-run order, returning synthetic fill")
		return Fill{Order: order, FillPrice: marketPrice, Commission: 0}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.Timeout)
	defer cancel()

	response, err := b.transport.RequestJSON(ctx, http.MethodPost, b.cfg.Endpoint+b.endpoints.orderPath, b.headers(), map[string]any{
		"client_order_id": uuid.New().String(),
		"symbol":          order.Symbol,
		"qty":             order.Quantity,
		"side":            string(order.Side),
		"type":            "market",
		"time_in_force":   "day",
	})
	if err != nil {
		return Fill{}, fmt.Errorf("failed to submit order: %w", err)
	}

	fillPrice, err := responseFloat(response, "fill_price", marketPrice)
	if err != nil {
		return Fill{}, err
	}
	commission, err := responseFloat(response, "commission", 0)
	if err != nil {
		return Fill{}, err
	}
	return Fill{Order: order, FillPrice: fillPrice, Commission: commission}, nil
}

// AccountSnapshot fetches account values from the live provider.
// The symbol and mark price arguments are unused; the provider reports its
// own marked values. Transport failures degrade to an empty snapshot.
func (b *LiveBroker) AccountSnapshot(marketPrice float64, symbol string) AccountSnapshot {
	if b.cfg.DryRun {
		return AccountSnapshot{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.Timeout)
	defer cancel()

	response, err := b.transport.RequestJSON(ctx, http.MethodGet, b.cfg.Endpoint+b.endpoints.accountPath, b.headers(), nil)
	if err != nil {
		b.log.Error().Err(err).Msg("Failed to fetch account snapshot")
		return AccountSnapshot{}
	}

	cash, err := responseFloat(response, "cash", 0)
	if err != nil {
		b.log.Error().Err(err).Msg("Malformed account response")
		return AccountSnapshot{}
	}
	equity, err := responseFloat(response, "equity", cash)
	if err != nil {
		b.log.Error().Err(err).Msg("Malformed account response")
		return AccountSnapshot{}
	}
	marketValue, err := responseFloat(response, "market_value", equity-cash)
	if err != nil {
		b.log.Error().Err(err).Msg("Malformed account response")
		return AccountSnapshot{}
	}
	return AccountSnapshot{Cash: cash, MarketValue: marketValue, Equity: equity}
}

func (b *LiveBroker) headers() map[string]string {
	if strings.ToLower(b.cfg.Provider) == "alpaca" {
		return map[string]string{
			"APCA-API-KEY-ID":     b.cfg.APIKeyID,
			"APCA-API-SECRET-KEY": b.cfg.APIToken,
		}
	}
	return map[string]string{"Authorization": "Bearer " + b.cfg.APIToken}
}

// responseFloat coerces a JSON response field to float64, falling back to a
// default when the field is absent.
func responseFloat(response map[string]any, key string, fallback float64) (float64, error) {
	value, ok := response[key]
	if !ok || value == nil {
		return fallback, nil
	}
	switch v := value.(type) {
	case float64:
		return v, nil
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("live broker response field %q is not numeric: %q", key, v)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("live broker response field %q has unsupported type %T", key, value)
	}
}
