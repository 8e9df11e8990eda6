package marketcap

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// Entry is the public market-cap record.
type Entry struct {
	CompanyID    int64   `json:"companyid" yaml:"companyid"`
	MarketCap    float64 `json:"marketcap" yaml:"marketcap"`
	PricingDate  string  `json:"pricingdate" yaml:"pricingdate"`
	USDMarketCap float64 `json:"usdmarketcap" yaml:"usdmarketcap"`
	CompanyName  string  `json:"companyname" yaml:"companyname"`
	TickerSymbol string  `json:"tickersymbol" yaml:"tickersymbol"`
	Currency     string  `json:"currency" yaml:"currency"`
	Exchange     string  `json:"exchange" yaml:"exchange"`
	Country      string  `json:"country" yaml:"country"`
}

var (
	errNullColumn = eris.New("marketcap: required column is null")
	errNonFinite  = eris.New("marketcap: value is not a finite number")
	errZeroRate   = eris.New("marketcap: zero exchange rate")
)

// Map projects rows into entries. Any null required column fails the whole
// batch; no partial result is returned.
func Map(rows []Row) ([]Entry, error) {
	entries := make([]Entry, 0, len(rows))
	for i, r := range rows {
		e, err := mapRow(i, r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func mapRow(i int, r Row) (Entry, error) {
	null := func(col string) error {
		return &MalformedRowError{Row: i, Column: col, Err: errNullColumn}
	}

	switch {
	case !r.CompanyID.Valid:
		return Entry{}, null("companyid")
	case !r.MarketCap.Valid:
		return Entry{}, null("marketcap")
	case !r.PricingDate.Valid:
		return Entry{}, null("pricingdate")
	case !r.USDMarketCap.Valid:
		return Entry{}, null("usdmarketcap")
	case !r.CompanyName.Valid:
		return Entry{}, null("companyname")
	case !r.TickerSymbol.Valid:
		return Entry{}, null("tickersymbol")
	case !r.Currency.Valid:
		return Entry{}, null("currency")
	case !r.Exchange.Valid:
		return Entry{}, null("exchange")
	case !r.Country.Valid:
		return Entry{}, null("country")
	case !r.PriceClose.Valid:
		return Entry{}, null("priceclose")
	}

	if !isFinite(r.MarketCap.Float64) {
		return Entry{}, &MalformedRowError{Row: i, Column: "marketcap", Err: errNonFinite}
	}
	if !isFinite(r.PriceClose.Float64) {
		return Entry{}, &MalformedRowError{Row: i, Column: "priceclose", Err: errNonFinite}
	}

	usd, err := ConvertToUSD(r.MarketCap.Float64, r.PriceClose.Float64)
	if err != nil {
		return Entry{}, &MalformedRowError{Row: i, Column: "priceclose", Err: err}
	}

	return Entry{
		CompanyID:    r.CompanyID.Int64,
		MarketCap:    r.MarketCap.Float64,
		PricingDate:  r.PricingDate.Time.Format(DateLayout),
		USDMarketCap: usd,
		CompanyName:  r.CompanyName.String,
		TickerSymbol: r.TickerSymbol.String,
		Currency:     r.Currency.String,
		Exchange:     r.Exchange.String,
		Country:      r.Country.String,
	}, nil
}

// ConvertToUSD converts a native-currency amount at the given close rate
// (currency units per USD) and rounds half away from zero to cents.
func ConvertToUSD(marketCap, rateClose float64) (float64, error) {
	if !isFinite(marketCap) || !isFinite(rateClose) {
		return 0, eris.Wrapf(errNonFinite, "marketcap: convert %v / %v", marketCap, rateClose)
	}
	if rateClose == 0 {
		return 0, errZeroRate
	}
	q := decimal.NewFromFloat(marketCap).Div(decimal.NewFromFloat(rateClose))
	return q.Round(2).InexactFloat64(), nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
