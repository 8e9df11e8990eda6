// Package marketcap implements the market-cap query and ranking engine:
// threshold classification, the filtered store join, deduplication and
// ranking of the raw rows, and projection into public entries.
package marketcap

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	// GlobalCountry is the sentinel meaning "no country filter".
	GlobalCountry = "Global"

	// DefaultFuzzyWindowDays is how far back a fuzzy match looks for a print.
	DefaultFuzzyWindowDays = 5

	// publicCompanyTypeID is the company type id of public companies.
	publicCompanyTypeID = 4
)

// querier is the minimal store interface used by Engine.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Query holds the engine's request parameters.
type Query struct {
	AsOf      string  // YYYY-MM-DD
	Threshold float64 // USD millions
	Country   string  // ISO-2 code or GlobalCountry
	Fuzzy     bool
}

// Engine executes the market-cap join against the store.
type Engine struct {
	pool       querier
	windowDays int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithFuzzyWindowDays overrides how many days back a fuzzy query reaches.
func WithFuzzyWindowDays(days int) EngineOption {
	return func(e *Engine) {
		if days > 0 {
			e.windowDays = days
		}
	}
}

// NewEngine creates an Engine backed by pool.
func NewEngine(pool querier, opts ...EngineOption) *Engine {
	e := &Engine{pool: pool, windowDays: DefaultFuzzyWindowDays}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WindowDays returns the fuzzy window length in days.
func (e *Engine) WindowDays() int { return e.windowDays }

const marketCapSQL = `
SELECT
	mc.companyid,
	mc.marketcap::float8 AS marketcap,
	mc.pricingdate,
	round((mc.marketcap / er.priceclose)::numeric, 2)::float8 AS usdmarketcap,
	c.companyname,
	ti.tickersymbol,
	cur.isocode AS currency,
	ex.exchangesymbol AS exchange,
	cg.isocountry2 AS country,
	er.priceclose::float8 AS priceclose
FROM ciqmarketcap mc
JOIN ciqcompany c ON mc.companyid = c.companyid
JOIN ciqsecurity s ON mc.companyid = s.companyid
JOIN ciqtradingitem ti ON s.securityid = ti.securityid
JOIN ciqexchangerate er ON ti.currencyid = er.currencyid
JOIN ciqcurrency cur ON ti.currencyid = cur.currencyid
JOIN ciqexchange ex ON ti.exchangeid = ex.exchangeid
JOIN ciqcountrygeo cg ON c.countryid = cg.countryid
WHERE mc.pricingdate BETWEEN $1::date AND $2::date
  AND er.pricedate = $2::date
  AND er.latestsnapflag = 1
  AND mc.marketcap / er.priceclose >= $3
  AND ($4::text IS NULL OR cg.isocountry2 = $4)
  AND c.companytypeid = $5
  AND s.primaryflag = 1
  AND ti.primaryflag = 1
ORDER BY mc.pricingdate DESC, usdmarketcap DESC`

// IsGlobal reports whether country is the no-filter sentinel.
func IsGlobal(country string) bool {
	return strings.EqualFold(strings.TrimSpace(country), GlobalCountry)
}

// Query runs the filtered join and returns the raw rows in store order
// (pricing date desc, USD market cap desc).
func (e *Engine) Query(ctx context.Context, q Query) ([]Row, error) {
	asof, err := ParseDate(q.AsOf)
	if err != nil {
		return nil, err
	}
	window := NewWindow(asof, q.Fuzzy, e.windowDays)

	var countryParam *string
	if !IsGlobal(q.Country) {
		c := q.Country
		countryParam = &c
	}

	log := zap.L().With(zap.String("component", "marketcap.engine"))
	log.Debug("querying market cap",
		zap.String("asof", q.AsOf),
		zap.Float64("threshold", q.Threshold),
		zap.String("country", q.Country),
		zap.Bool("fuzzy", q.Fuzzy),
		zap.Time("window_start", window.Start),
	)

	rows, err := e.pool.Query(ctx, marketCapSQL,
		window.Start, window.End, q.Threshold, countryParam, publicCompanyTypeID)
	if err != nil {
		return nil, &DataSourceError{Op: "query market cap", Err: err}
	}
	defer rows.Close()

	return scanRows(rows, window)
}

// scanRows drains rows into Row values, rejecting pricing dates outside
// the requested window.
func scanRows(rows pgx.Rows, window Window) ([]Row, error) {
	if fields := rows.FieldDescriptions(); len(fields) > 0 && len(fields) != len(rowColumns) {
		return nil, &MalformedRowError{
			Row: -1,
			Err: eris.Errorf("marketcap: expected %d columns, got %d", len(rowColumns), len(fields)),
		}
	}

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(r.scanTargets()...); err != nil {
			return nil, &MalformedRowError{Row: len(out), Err: eris.Wrap(err, "marketcap: scan row")}
		}
		if r.PricingDate.Valid && !window.Contains(r.PricingDate.Time) {
			return nil, &MalformedRowError{
				Row:    len(out),
				Column: "pricingdate",
				Err: eris.Errorf("marketcap: pricing date %s outside window %s..%s",
					r.PricingDate.Time.Format(DateLayout),
					window.Start.Format(DateLayout),
					window.End.Format(DateLayout)),
			}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &DataSourceError{Op: "rows iteration", Err: err}
	}
	return out, nil
}
