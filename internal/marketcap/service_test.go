package marketcap

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine records the last query and returns canned rows.
type fakeEngine struct {
	rows  []Row
	err   error
	calls int
	last  Query
}

func (f *fakeEngine) Query(_ context.Context, q Query) ([]Row, error) {
	f.calls++
	f.last = q
	return f.rows, f.err
}

func fixedClock(s string) func() time.Time {
	return func() time.Time {
		t, _ := time.Parse(time.RFC3339, s)
		return t
	}
}

func TestService_Latest_UsesTodayAndFuzzy(t *testing.T) {
	fe := &fakeEngine{}
	svc := NewService(fe, WithClock(fixedClock("2025-05-12T23:30:00-04:00")))

	_, err := svc.GetLatestMarketCap(context.Background(), "us", "large", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, fe.calls)
	assert.Equal(t, "2025-05-13", fe.last.AsOf, "today is taken in UTC")
	assert.True(t, fe.last.Fuzzy)
	assert.Equal(t, 10000.0, fe.last.Threshold)
	assert.Equal(t, "US", fe.last.Country)
}

func TestService_Historical_FirstOfMonth(t *testing.T) {
	fe := &fakeEngine{}
	svc := NewService(fe)

	_, err := svc.GetHistoricalMarketCap(context.Background(), "Global", "mega", 2025, 5, nil)
	require.NoError(t, err)

	assert.Equal(t, "2025-05-01", fe.last.AsOf)
	assert.True(t, fe.last.Fuzzy)
	assert.Equal(t, 200000.0, fe.last.Threshold)
	assert.Equal(t, GlobalCountry, fe.last.Country)
}

func TestService_ValidationBeforeStore(t *testing.T) {
	tests := []struct {
		name   string
		call   func(s *Service) error
		target any
	}{
		{"bad category", func(s *Service) error {
			_, err := s.GetLatestMarketCap(context.Background(), "US", "small", nil)
			return err
		}, new(*InvalidCategoryError)},
		{"month 13", func(s *Service) error {
			_, err := s.GetHistoricalMarketCap(context.Background(), "US", "mid", 2025, 13, nil)
			return err
		}, new(*InvalidDateError)},
		{"month 0", func(s *Service) error {
			_, err := s.GetHistoricalMarketCap(context.Background(), "US", "mid", 2025, 0, nil)
			return err
		}, new(*InvalidDateError)},
		{"bad country", func(s *Service) error {
			_, err := s.GetLatestMarketCap(context.Background(), "USA", "mid", nil)
			return err
		}, new(*InvalidCountryError)},
		{"single letter", func(s *Service) error {
			_, err := s.GetLatestMarketCap(context.Background(), "X", "mid", nil)
			return err
		}, new(*InvalidCountryError)},
		{"negative top", func(s *Service) error {
			_, err := s.GetLatestMarketCap(context.Background(), "US", "mid", intPtr(-1))
			return err
		}, new(*InvalidTopNError)},
		{"negative threshold", func(s *Service) error {
			_, err := s.GetMarketCapByThreshold(context.Background(), "US", -1, "2025-05-03", true, nil)
			return err
		}, new(*InvalidThresholdError)},
		{"bad asof", func(s *Service) error {
			_, err := s.GetMarketCapByThreshold(context.Background(), "US", 1, "2025-05-32", true, nil)
			return err
		}, new(*InvalidDateError)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := &fakeEngine{}
			err := tt.call(NewService(fe))
			require.Error(t, err)
			assert.True(t, errors.As(err, tt.target))
			assert.True(t, IsInvalidInput(err))
			assert.Zero(t, fe.calls, "store must not be touched")
		})
	}
}

func TestService_PropagatesStoreError(t *testing.T) {
	storeErr := &DataSourceError{Op: "query market cap", Err: errors.New("timeout")}
	svc := NewService(&fakeEngine{err: storeErr})

	entries, err := svc.GetLatestMarketCap(context.Background(), "US", "mid", nil)
	assert.Nil(t, entries)
	assert.Same(t, storeErr, err)
}

func TestService_NoPartialResults(t *testing.T) {
	bad := newRow(2, "2025-05-12", 500)
	bad.Exchange.Valid = false
	svc := NewService(&fakeEngine{rows: []Row{newRow(1, "2025-05-12", 900), bad}})

	entries, err := svc.GetLatestMarketCap(context.Background(), "US", "mid", nil)
	assert.Nil(t, entries)
	assert.True(t, IsMalformedRow(err))
}

func TestService_ThresholdEntryPoint(t *testing.T) {
	fe := &fakeEngine{rows: []Row{newRow(1, "2025-05-03", 500)}}
	svc := NewService(fe)

	entries, err := svc.GetMarketCapByThreshold(context.Background(), "ch", 200e3, "2025-05-03", false, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, Query{AsOf: "2025-05-03", Threshold: 200e3, Country: "CH", Fuzzy: false}, fe.last)
}

// End to end over a mocked pool: latest US mid caps, top 5.
func TestService_LatestUSMidTop5(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows(rowColumns)
	type co struct {
		id  int64
		usd float64
	}
	// Seven companies, two of them with an older duplicate print.
	for _, c := range []co{{1, 9000}, {2, 2500}, {3, 4100}, {4, 2000}, {5, 7700}, {6, 3000}, {7, 15000}} {
		rows.AddRow(c.id, c.usd, pgDate("2025-05-09"), c.usd, "Co", "T", "USD", "NYSE", "US", 1.0)
	}
	rows.AddRow(int64(1), 8800.0, pgDate("2025-05-08"), 8800.0, "Co", "T", "USD", "NYSE", "US", 1.0)
	rows.AddRow(int64(7), 14000.0, pgDate("2025-05-07"), 14000.0, "Co", "T", "USD", "NYSE", "US", 1.0)

	mock.ExpectQuery(`FROM ciqmarketcap`).
		WithArgs(dateArg{date("2025-05-05")}, dateArg{date("2025-05-10")}, 2000.0, countryArg{strPtr("US")}, publicCompanyTypeID).
		WillReturnRows(rows)

	svc := NewService(NewEngine(mock), WithClock(fixedClock("2025-05-10T12:00:00Z")))
	entries, err := svc.GetLatestMarketCap(context.Background(), "US", "mid", intPtr(5))
	require.NoError(t, err)
	require.Len(t, entries, 5)

	seen := map[int64]bool{}
	var got []int64
	for _, e := range entries {
		assert.GreaterOrEqual(t, e.USDMarketCap, 2000.0)
		assert.False(t, seen[e.CompanyID], "duplicate company %d", e.CompanyID)
		assert.Equal(t, "2025-05-09", e.PricingDate)
		seen[e.CompanyID] = true
		got = append(got, e.CompanyID)
	}
	assert.Equal(t, []int64{7, 1, 5, 3, 6}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_NaNMarketCapIsMalformedRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows(rowColumns).
		AddRow(int64(1), math.NaN(), pgDate("2025-05-03"), math.NaN(), "Co", "T", "USD", "NYSE", "US", 1.0)
	mock.ExpectQuery(`FROM ciqmarketcap`).WithArgs(anyArgs()...).WillReturnRows(rows)

	svc := NewService(NewEngine(mock))
	var entries []Entry
	require.NotPanics(t, func() {
		entries, err = svc.GetMarketCapByThreshold(context.Background(), "US", 0, "2025-05-03", false, nil)
	})
	assert.Nil(t, entries)
	assert.True(t, IsMalformedRow(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFirstOfMonth(t *testing.T) {
	got, err := FirstOfMonth(2024, 2)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", got)

	_, err = FirstOfMonth(0, 1)
	var ide *InvalidDateError
	require.True(t, errors.As(err, &ide))
	assert.Equal(t, "0000-01", ide.Input)
}

func TestNormalizeCountry(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"US", "US", false},
		{"ch", "CH", false},
		{" sa ", "SA", false},
		{"Global", GlobalCountry, false},
		{"GLOBAL", GlobalCountry, false},
		{"", "", true},
		{"USA", "", true},
		{"12", "", true},
		{"UK", "GB", false},
		{"uk", "GB", false},
		{"GB", "GB", false},
		{"AN", "", true},
		{"CS", "", true},
		{"YU", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeCountry(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
