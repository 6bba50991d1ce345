// Package core provides the transaction model and its parsing helpers.
//
// This file contains functions for parsing monetary amounts and posting
// dates as they arrive from the transaction service or from import files.
package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a signed decimal string into a decimal.Decimal.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators, a leading
// sign, surrounding whitespace and a currency symbol. Thousands separators are
// not supported because they are ambiguous with a decimal comma.
//
// Examples:
//
//	ParseAmount("-12.34")  -> -12.34, nil
//	ParseAmount("1000,5")  -> 1000.5, nil
//	ParseAmount("€ 7")     -> 7, nil
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "€")
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// dateLayouts are tried in order by ParsePostedAt.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// ParsePostedAt parses a posting timestamp.
//
// The calendar fields are kept exactly as written: a timestamp carrying a
// zone offset is re-expressed in UTC with the same wall-clock fields, so
// bucketing never shifts a transaction into a neighbouring day.
func ParsePostedAt(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrMissingDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
		}
	}
	return time.Time{}, ErrMissingDate
}

