package marketdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog"

	"github.com/aristath/aetherquant/internal/domain"
)

// csvBar is one daily bar row. Only Date and Close are required; the other
// columns are accepted and ignored so exports from common data vendors load
// without preprocessing.
type csvBar struct {
	Date  string  `csv:"Date"`
	Open  float64 `csv:"Open,omitempty"`
	High  float64 `csv:"High,omitempty"`
	Low   float64 `csv:"Low,omitempty"`
	Close float64 `csv:"Close"`
}

// CSVProvider loads close prices from per-symbol CSV files in a directory.
// A symbol SPY resolves to <dir>/SPY.csv.
type CSVProvider struct {
	dir string
	log zerolog.Logger
}

// NewCSVProvider creates a provider rooted at dir.
func NewCSVProvider(dir string, log zerolog.Logger) (*CSVProvider, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open market data directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("market data path %s is not a directory", dir)
	}
	return &CSVProvider{
		dir: dir,
		log: log.With().Str("component", "marketdata").Logger(),
	}, nil
}

// ClosePrices reads the symbol's CSV file and returns its close prices,
// trimmed to the requested period counted back from the last bar.
func (p *CSVProvider) ClosePrices(ctx context.Context, symbol, period string) (domain.Series, error) {
	if err := ctx.Err(); err != nil {
		return domain.Series{}, err
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return domain.Series{}, fmt.Errorf("symbol must be non-empty")
	}

	path := filepath.Join(p.dir, symbol+".csv")
	file, err := os.Open(path)
	if err != nil {
		return domain.Series{}, fmt.Errorf("no market data for symbol %s: %w", symbol, err)
	}
	defer file.Close()

	var bars []csvBar
	if err := gocsv.UnmarshalFile(file, &bars); err != nil {
		return domain.Series{}, fmt.Errorf("failed to parse market data for %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return domain.Series{}, fmt.Errorf("market data file for %s holds no bars", symbol)
	}

	type point struct {
		t time.Time
		v float64
	}
	points := make([]point, 0, len(bars))
	for i, bar := range bars {
		t, err := parseBarDate(bar.Date)
		if err != nil {
			return domain.Series{}, fmt.Errorf("bad date on row %d of %s: %w", i+1, symbol, err)
		}
		points = append(points, point{t: t, v: bar.Close})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].t.Before(points[j].t) })

	times := make([]time.Time, len(points))
	values := make([]float64, len(points))
	for i, pt := range points {
		times[i] = pt.t
		values[i] = pt.v
	}

	series, err := domain.NewSeries(times, values)
	if err != nil {
		return domain.Series{}, fmt.Errorf("market data for %s is not a valid series: %w", symbol, err)
	}

	series, err = trimToPeriod(series, period)
	if err != nil {
		return domain.Series{}, err
	}

	p.log.Debug().Str("symbol", symbol).Int("bars", series.Len()).Msg("Loaded close prices")
	return series, nil
}

func parseBarDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// trimToPeriod keeps the bars inside the window ending at the last bar.
// An empty period or "max" returns the series unchanged.
func trimToPeriod(s domain.Series, period string) (domain.Series, error) {
	period = strings.ToLower(strings.TrimSpace(period))
	if period == "" || period == "max" {
		return s, nil
	}

	var n int
	var unit string
	if _, err := fmt.Sscanf(period, "%d%s", &n, &unit); err != nil || n <= 0 {
		return domain.Series{}, fmt.Errorf("invalid period %q (want forms like 30d, 6mo, 1y)", period)
	}

	end := s.Time(s.Len() - 1)
	var start time.Time
	switch unit {
	case "d":
		start = end.AddDate(0, 0, -n)
	case "w":
		start = end.AddDate(0, 0, -7*n)
	case "mo":
		start = end.AddDate(0, -n, 0)
	case "y":
		start = end.AddDate(-n, 0, 0)
	default:
		return domain.Series{}, fmt.Errorf("invalid period unit %q (want d, w, mo or y)", unit)
	}

	times := s.Times()
	values := s.Values()
	from := sort.Search(len(times), func(i int) bool { return !times[i].Before(start) })
	return domain.NewSeries(times[from:], values[from:])
}
