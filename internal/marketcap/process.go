package marketcap

import (
	"slices"
)

// Process deduplicates rows to the most recent pricing date per company and,
// when topN is non-nil, ranks the survivors by USD market cap and keeps the
// first *topN. The input slice is not modified.
// Rows may arrive in any order.
func Process(rows []Row, topN *int) []Row {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b Row) int {
		return compareDateDesc(a, b)
	})

	seen := make(map[int64]struct{}, len(sorted))
	out := make([]Row, 0, len(sorted))
	for _, r := range sorted {
		id := r.CompanyID.Int64
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, r)
	}

	if topN == nil {
		return out
	}

	slices.SortStableFunc(out, func(a, b Row) int {
		return compareUSDDesc(a, b)
	})
	n := *topN
	if n < 0 {
		n = 0
	}
	if n < len(out) {
		out = out[:n]
	}
	return out
}

// compareDateDesc orders later pricing dates first; null dates sort last.
func compareDateDesc(a, b Row) int {
	switch {
	case a.PricingDate.Valid && !b.PricingDate.Valid:
		return -1
	case !a.PricingDate.Valid && b.PricingDate.Valid:
		return 1
	case !a.PricingDate.Valid && !b.PricingDate.Valid:
		return 0
	}
	return b.PricingDate.Time.Compare(a.PricingDate.Time)
}

// compareUSDDesc orders larger USD market caps first; nulls sort last.
func compareUSDDesc(a, b Row) int {
	switch {
	case a.USDMarketCap.Valid && !b.USDMarketCap.Valid:
		return -1
	case !a.USDMarketCap.Valid && b.USDMarketCap.Valid:
		return 1
	case !a.USDMarketCap.Valid && !b.USDMarketCap.Valid:
		return 0
	}
	switch {
	case a.USDMarketCap.Float64 > b.USDMarketCap.Float64:
		return -1
	case a.USDMarketCap.Float64 < b.USDMarketCap.Float64:
		return 1
	}
	return 0
}
