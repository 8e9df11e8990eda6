package marketcap

import (
	"errors"
	"fmt"
)

// InvalidCategoryError reports an unrecognized market-cap bucket label.
type InvalidCategoryError struct {
	Category string
}

func (e *InvalidCategoryError) Error() string {
	return fmt.Sprintf("invalid market cap category: %q", e.Category)
}

// InvalidDateError reports a malformed or impossible calendar date.
type InvalidDateError struct {
	Input string
	Err   error
}

func (e *InvalidDateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid date %q: %v", e.Input, e.Err)
	}
	return fmt.Sprintf("invalid date %q", e.Input)
}

func (e *InvalidDateError) Unwrap() error {
	return e.Err
}

// InvalidCountryError reports a country that is neither an ISO 3166-1
// alpha-2 code nor the Global sentinel.
type InvalidCountryError struct {
	Country string
}

func (e *InvalidCountryError) Error() string {
	return fmt.Sprintf("invalid country: %q", e.Country)
}

// InvalidTopNError reports a negative top-N limit.
type InvalidTopNError struct {
	TopN int
}

func (e *InvalidTopNError) Error() string {
	return fmt.Sprintf("invalid top-n %d: must be non-negative", e.TopN)
}

// InvalidThresholdError reports a negative or non-finite USD cutoff.
type InvalidThresholdError struct {
	Threshold float64
}

func (e *InvalidThresholdError) Error() string {
	return fmt.Sprintf("invalid threshold %v: must be a non-negative number", e.Threshold)
}

// DataSourceError wraps a store connect/execute failure.
type DataSourceError struct {
	Op  string
	Err error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("data source unavailable: %s: %v", e.Op, e.Err)
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}

// MalformedRowError reports a row that violates the join's guarantees.
type MalformedRowError struct {
	Row    int
	Column string
	Err    error
}

func (e *MalformedRowError) Error() string {
	msg := fmt.Sprintf("malformed row %d", e.Row)
	if e.Column != "" {
		msg += fmt.Sprintf(" (column %s)", e.Column)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedRowError) Unwrap() error {
	return e.Err
}

// IsInvalidInput returns true if err (or any error in its chain) is a
// caller validation failure detected before any store access.
func IsInvalidInput(err error) bool {
	if err == nil {
		return false
	}
	var (
		cat    *InvalidCategoryError
		date   *InvalidDateError
		ctry   *InvalidCountryError
		topN   *InvalidTopNError
		thresh *InvalidThresholdError
	)
	return errors.As(err, &cat) ||
		errors.As(err, &date) ||
		errors.As(err, &ctry) ||
		errors.As(err, &topN) ||
		errors.As(err, &thresh)
}

// IsDataSourceUnavailable returns true if err (or any error in its chain)
// is a DataSourceError.
func IsDataSourceUnavailable(err error) bool {
	var ds *DataSourceError
	return errors.As(err, &ds)
}

// IsMalformedRow returns true if err (or any error in its chain) is a
// MalformedRowError.
func IsMalformedRow(err error) bool {
	var mr *MalformedRowError
	return errors.As(err, &mr)
}
