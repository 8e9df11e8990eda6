package marketcap

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// Screener is the transport-agnostic surface of the market-cap service.
type Screener interface {
	GetLatestMarketCap(ctx context.Context, country, category string, topN *int) ([]Entry, error)
	GetHistoricalMarketCap(ctx context.Context, country, category string, year, month int, topN *int) ([]Entry, error)
}

// rowQuerier is the engine capability the service needs.
type rowQuerier interface {
	Query(ctx context.Context, q Query) ([]Row, error)
}

// Service orchestrates classify → query → process → map.
type Service struct {
	engine rowQuerier
	now    func() time.Time
}

// Ensure Service implements Screener.
var _ Screener = (*Service)(nil)

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the clock used by the latest path.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a Service over engine.
func NewService(engine rowQuerier, opts ...ServiceOption) *Service {
	s := &Service{engine: engine, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetLatestMarketCap returns the companies in country above the category
// cutoff as of today, fuzzy-matched to the most recent trading print.
func (s *Service) GetLatestMarketCap(ctx context.Context, country, category string, topN *int) ([]Entry, error) {
	asof := s.now().UTC().Format(DateLayout)
	return s.run(ctx, "latest", country, category, asof, topN)
}

// GetHistoricalMarketCap returns the ranking as of the first calendar day
// of the given month.
func (s *Service) GetHistoricalMarketCap(ctx context.Context, country, category string, year, month int, topN *int) ([]Entry, error) {
	asof, err := FirstOfMonth(year, month)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, "historical", country, category, asof, topN)
}

// GetMarketCapByThreshold is the raw numeric entry point: threshold is in
// USD millions and asof is YYYY-MM-DD.
func (s *Service) GetMarketCapByThreshold(ctx context.Context, country string, threshold float64, asof string, fuzzy bool, topN *int) ([]Entry, error) {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) || threshold < 0 {
		return nil, &InvalidThresholdError{Threshold: threshold}
	}
	if _, err := ParseDate(asof); err != nil {
		return nil, err
	}
	country, err := NormalizeCountry(country)
	if err != nil {
		return nil, err
	}
	if err := validateTopN(topN); err != nil {
		return nil, err
	}
	return s.execute(ctx, "threshold", Query{AsOf: asof, Threshold: threshold, Country: country, Fuzzy: fuzzy}, topN)
}

func (s *Service) run(ctx context.Context, op, country, category, asof string, topN *int) ([]Entry, error) {
	threshold, err := Classify(category)
	if err != nil {
		return nil, err
	}
	country, err = NormalizeCountry(country)
	if err != nil {
		return nil, err
	}
	if err := validateTopN(topN); err != nil {
		return nil, err
	}

	return s.execute(ctx, op, Query{AsOf: asof, Threshold: threshold, Country: country, Fuzzy: true}, topN)
}

func (s *Service) execute(ctx context.Context, op string, q Query, topN *int) ([]Entry, error) {
	start := time.Now()
	log := zap.L().With(
		zap.String("component", "marketcap.service"),
		zap.String("op", op),
		zap.String("country", q.Country),
		zap.Float64("threshold", q.Threshold),
		zap.String("asof", q.AsOf),
	)

	rows, err := s.engine.Query(ctx, q)
	if err != nil {
		log.Error("market cap query failed", zap.Error(err))
		return nil, err
	}

	entries, err := Map(Process(rows, topN))
	if err != nil {
		log.Error("market cap mapping failed", zap.Error(err))
		return nil, err
	}

	log.Info("market cap query complete",
		zap.Int("raw_rows", len(rows)),
		zap.Int("entries", len(entries)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return entries, nil
}

// FirstOfMonth returns YYYY-MM-01 for the given year and month.
func FirstOfMonth(year, month int) (string, error) {
	if month < 1 || month > 12 || year < 1 || year > 9999 {
		return "", &InvalidDateError{Input: formatYearMonth(year, month)}
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format(DateLayout), nil
}

func formatYearMonth(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// countryAliases maps reserved codes in common use to the assigned code the
// store keys on.
var countryAliases = map[string]string{
	"UK": "GB",
}

// withdrawnCountries are ISO 3166-1 codes split into several successors,
// so no single replacement exists.
var withdrawnCountries = map[string]bool{
	"AN": true, "CS": true, "NT": true, "SU": true, "YU": true,
}

// NormalizeCountry returns the canonical upper-case ISO 3166-1 alpha-2 code
// for country, or GlobalCountry for the sentinel in any letter case.
// Deprecated codes with a single successor are replaced by it.
func NormalizeCountry(country string) (string, error) {
	c := strings.TrimSpace(country)
	if IsGlobal(c) {
		return GlobalCountry, nil
	}
	if len(c) != 2 {
		return "", &InvalidCountryError{Country: country}
	}
	c = strings.ToUpper(c)
	if alias, ok := countryAliases[c]; ok {
		c = alias
	}
	if withdrawnCountries[c] {
		return "", &InvalidCountryError{Country: country}
	}

	region, err := language.ParseRegion(c)
	if err != nil {
		return "", &InvalidCountryError{Country: country}
	}
	region = region.Canonicalize()
	code := region.String()
	if !region.IsCountry() || len(code) != 2 || withdrawnCountries[code] {
		return "", &InvalidCountryError{Country: country}
	}
	return code, nil
}

func validateTopN(topN *int) error {
	if topN != nil && *topN < 0 {
		return &InvalidTopNError{TopN: *topN}
	}
	return nil
}
