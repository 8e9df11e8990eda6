package marketcap

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// DateLayout is the calendar date format used on input and output.
const DateLayout = "2006-01-02"

// Row is one raw result of the market-cap join. Columns are nullable so the
// mapper, not the scanner, decides what a missing value means.
type Row struct {
	CompanyID    pgtype.Int8
	MarketCap    pgtype.Float8
	PricingDate  pgtype.Date
	USDMarketCap pgtype.Float8
	CompanyName  pgtype.Text
	TickerSymbol pgtype.Text
	Currency     pgtype.Text
	Exchange     pgtype.Text
	Country      pgtype.Text
	PriceClose   pgtype.Float8 // exchange rate close, currency units per USD
}

// rowColumns lists the result columns in select order.
var rowColumns = []string{
	"companyid", "marketcap", "pricingdate", "usdmarketcap",
	"companyname", "tickersymbol", "currency", "exchange", "country",
	"priceclose",
}

func (r *Row) scanTargets() []any {
	return []any{
		&r.CompanyID, &r.MarketCap, &r.PricingDate, &r.USDMarketCap,
		&r.CompanyName, &r.TickerSymbol, &r.Currency, &r.Exchange, &r.Country,
		&r.PriceClose,
	}
}

// Window is an inclusive range of calendar dates.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow returns the pricing-date window ending at asof. A non-fuzzy
// window covers asof only; a fuzzy one reaches back days calendar days.
func NewWindow(asof time.Time, fuzzy bool, days int) Window {
	end := truncateDay(asof)
	if !fuzzy || days <= 0 {
		return Window{Start: end, End: end}
	}
	return Window{Start: end.AddDate(0, 0, -days), End: end}
}

// Contains reports whether d falls inside the window, ignoring time of day.
func (w Window) Contains(d time.Time) bool {
	d = truncateDay(d)
	return !d.Before(w.Start) && !d.After(w.End)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, &InvalidDateError{Input: s, Err: err}
	}
	return t, nil
}
