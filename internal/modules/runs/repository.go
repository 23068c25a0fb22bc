// Package runs persists strategy-run history, per-run metrics, placed
// orders, and the API audit log.
package runs

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/aetherquant/internal/domain"
	"github.com/aristath/aetherquant/internal/modules/execution"
)

// StoredRun is a summary row from the run history.
type StoredRun struct {
	RunID        int64
	CreatedAt    string
	RunType      string
	Symbol       string
	FinalEquity  *float64
	OrdersPlaced *int64
}

// AuditEvent records one authenticated API request.
type AuditEvent struct {
	EventID    int64
	CreatedAt  string
	Method     string
	Path       string
	StatusCode int
	RequestID  string
	ActorRole  string
}

// RunRecord is the input for recording a completed run.
type RunRecord struct {
	RunType  string
	Symbol   string
	Period   string
	Interval string
	Payload  map[string]any
	Metrics  map[string]float64
	Equity   domain.Series
	Orders   []execution.Order
}

// equityBlob is the msgpack encoding of an equity path.
type equityBlob struct {
	Times  []int64   `msgpack:"times"` // Unix seconds, UTC
	Values []float64 `msgpack:"values"`
}

// Repository handles run-history database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new run repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "runs").Logger(),
	}
}

// InitSchema creates the run-history tables if they do not exist.
func (r *Repository) InitSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS strategy_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL,
			run_type TEXT NOT NULL,
			symbol TEXT NOT NULL,
			period TEXT,
			interval TEXT,
			payload_json TEXT NOT NULL,
			equity_blob BLOB,
			final_equity REAL,
			orders_placed INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS run_metrics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL REFERENCES strategy_runs(id),
			metric_name TEXT NOT NULL,
			metric_value REAL NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS execution_orders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL REFERENCES strategy_runs(id),
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			quantity REAL NOT NULL,
			timestamp TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL,
			method TEXT NOT NULL,
			path TEXT NOT NULL,
			status_code INTEGER NOT NULL,
			request_id TEXT NOT NULL,
			actor_role TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create run schema: %w", err)
		}
	}
	return nil
}

// RecordRun inserts a completed run with its metrics and orders.
// Returns the new run id.
func (r *Repository) RecordRun(record RunRecord) (int64, error) {
	if strings.TrimSpace(record.RunType) == "" {
		return 0, fmt.Errorf("run_type must be non-empty")
	}
	if strings.TrimSpace(record.Symbol) == "" {
		return 0, fmt.Errorf("symbol must be non-empty")
	}

	payload := record.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to encode run payload: %w", err)
	}

	var blob []byte
	var finalEquity *float64
	if record.Equity.Len() > 0 {
		times := make([]int64, record.Equity.Len())
		for i := range times {
			times[i] = record.Equity.Time(i).UTC().Unix()
		}
		blob, err = msgpack.Marshal(equityBlob{Times: times, Values: record.Equity.Values()})
		if err != nil {
			return 0, fmt.Errorf("failed to encode equity path: %w", err)
		}
		last := record.Equity.Last()
		finalEquity = &last
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin run transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO strategy_runs
			(created_at, run_type, symbol, period, interval, payload_json, equity_blob, final_equity, orders_placed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		time.Now().UTC().Format(time.RFC3339),
		record.RunType,
		strings.ToUpper(strings.TrimSpace(record.Symbol)),
		nullString(record.Period),
		nullString(record.Interval),
		string(payloadJSON),
		blob,
		finalEquity,
		len(record.Orders),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted run id: %w", err)
	}

	for name, value := range record.Metrics {
		if _, err := tx.Exec(`
			INSERT INTO run_metrics (run_id, metric_name, metric_value)
			VALUES (?, ?, ?)
		`, runID, name, value); err != nil {
			return 0, fmt.Errorf("failed to insert run metric %s: %w", name, err)
		}
	}

	for _, order := range record.Orders {
		if _, err := tx.Exec(`
			INSERT INTO execution_orders (run_id, symbol, side, quantity, timestamp)
			VALUES (?, ?, ?, ?, ?)
		`, runID, order.Symbol, string(order.Side), order.Quantity, order.Timestamp.UTC().Format(time.RFC3339)); err != nil {
			return 0, fmt.Errorf("failed to insert run order: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	r.log.Debug().
		Int64("run_id", runID).
		Str("run_type", record.RunType).
		Str("symbol", record.Symbol).
		Int("orders", len(record.Orders)).
		Msg("Run recorded")

	return runID, nil
}

// ListRuns returns the most recent runs, newest first.
func (r *Repository) ListRuns(limit int) ([]StoredRun, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero, got %d", limit)
	}

	rows, err := r.db.Query(`
		SELECT id, created_at, run_type, symbol, final_equity, orders_placed
		FROM strategy_runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []StoredRun
	for rows.Next() {
		var run StoredRun
		if err := rows.Scan(&run.RunID, &run.CreatedAt, &run.RunType, &run.Symbol, &run.FinalEquity, &run.OrdersPlaced); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRunMetrics returns the metric map of a single run.
func (r *Repository) GetRunMetrics(runID int64) (map[string]float64, error) {
	rows, err := r.db.Query(`
		SELECT metric_name, metric_value FROM run_metrics WHERE run_id = ?
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run metrics: %w", err)
	}
	defer rows.Close()

	metrics := make(map[string]float64)
	for rows.Next() {
		var name string
		var value float64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan metric row: %w", err)
		}
		metrics[name] = value
	}
	return metrics, rows.Err()
}

// GetRunEquity decodes the stored equity path of a run.
// Returns an empty series when the run stored no equity path.
func (r *Repository) GetRunEquity(runID int64) (domain.Series, error) {
	var blob []byte
	err := r.db.QueryRow(`SELECT equity_blob FROM strategy_runs WHERE id = ?`, runID).Scan(&blob)
	if err == sql.ErrNoRows {
		return domain.Series{}, fmt.Errorf("run %d not found", runID)
	}
	if err != nil {
		return domain.Series{}, fmt.Errorf("failed to load run equity: %w", err)
	}
	if len(blob) == 0 {
		return domain.Series{}, nil
	}

	var decoded equityBlob
	if err := msgpack.Unmarshal(blob, &decoded); err != nil {
		return domain.Series{}, fmt.Errorf("failed to decode equity path: %w", err)
	}

	times := make([]time.Time, len(decoded.Times))
	for i, unix := range decoded.Times {
		times[i] = time.Unix(unix, 0).UTC()
	}
	return domain.NewSeries(times, decoded.Values)
}

// RecordAuditEvent appends one request to the audit log.
func (r *Repository) RecordAuditEvent(method, path string, statusCode int, requestID, actorRole string) error {
	_, err := r.db.Exec(`
		INSERT INTO audit_log (created_at, method, path, status_code, request_id, actor_role)
		VALUES (?, ?, ?, ?, ?, ?)
	`, time.Now().UTC().Format(time.RFC3339), method, path, statusCode, requestID, actorRole)
	if err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}
	return nil
}

// ListAuditEvents returns the most recent audit events, newest first.
func (r *Repository) ListAuditEvents(limit int) ([]AuditEvent, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero, got %d", limit)
	}

	rows, err := r.db.Query(`
		SELECT id, created_at, method, path, status_code, request_id, actor_role
		FROM audit_log
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var event AuditEvent
		if err := rows.Scan(&event.EventID, &event.CreatedAt, &event.Method, &event.Path, &event.StatusCode, &event.RequestID, &event.ActorRole); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
