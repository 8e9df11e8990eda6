package marketcap

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

func date(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func pgDate(s string) pgtype.Date {
	return pgtype.Date{Time: date(s), Valid: true}
}

// newRow builds a fully populated USD-denominated row.
func newRow(id int64, pricing string, usd float64) Row {
	return Row{
		CompanyID:    pgtype.Int8{Int64: id, Valid: true},
		MarketCap:    pgtype.Float8{Float64: usd, Valid: true},
		PricingDate:  pgDate(pricing),
		USDMarketCap: pgtype.Float8{Float64: usd, Valid: true},
		CompanyName:  pgtype.Text{String: "Company", Valid: true},
		TickerSymbol: pgtype.Text{String: "TCKR", Valid: true},
		Currency:     pgtype.Text{String: "USD", Valid: true},
		Exchange:     pgtype.Text{String: "NasdaqGS", Valid: true},
		Country:      pgtype.Text{String: "US", Valid: true},
		PriceClose:   pgtype.Float8{Float64: 1, Valid: true},
	}
}

func intPtr(n int) *int { return &n }

func ids(rows []Row) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.CompanyID.Int64
	}
	return out
}
