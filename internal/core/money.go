// Package core provides money parsing and handling utilities.
//
// Amounts are held as integer minor units. Conversion to and from the
// textual representation goes through shopspring/decimal so that no binary
// floating point value ever touches a balance.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	VND = Currency{Code: "VND", Exponent: 0}
	EUR = Currency{Code: "EUR", Exponent: 2}
	USD = Currency{Code: "USD", Exponent: 2}
)

// CurrencyFromCode returns a known currency, defaulting to two decimals.
func CurrencyFromCode(code string) Currency {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "VND", "JPY", "KRW":
		return Currency{Code: strings.ToUpper(strings.TrimSpace(code)), Exponent: 0}
	case "":
		return EUR
	default:
		return Currency{Code: strings.ToUpper(strings.TrimSpace(code)), Exponent: 2}
	}
}

// ParseAmount converts a signed decimal string into minor units of c.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half away from zero to the currency exponent. Zero is rejected.
//
// Examples (EUR):
//
//	ParseAmount("12.34", EUR)  -> 1234
//	ParseAmount("-12,345", EUR) -> -1235
//	ParseAmount("50000", VND)  -> 50000
func ParseAmount(s string, c Currency) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	minor := d.Shift(c.Exponent).Round(0)
	if !minor.IsInteger() || minor.IsZero() {
		return Money{}, ErrInvalidAmount
	}
	// Reject values that do not fit an int64.
	if minor.Abs().GreaterThan(decimal.NewFromInt(1 << 62)) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Minor: minor.IntPart()}, nil
}

// Decimal returns m as a decimal in major units of c.
func (m Money) Decimal(c Currency) decimal.Decimal {
	return decimal.New(m.Minor, -c.Exponent)
}

// FormatMoney renders m with a fixed number of decimals and the currency code.
func FormatMoney(m Money, c Currency) string {
	s := m.Decimal(c).StringFixed(c.Exponent)
	if c.Code == "" {
		return s
	}
	return s + " " + c.Code
}

// FormatApprox prefixes the formatted amount with "≈" when approximate is set.
func FormatApprox(m Money, c Currency, approximate bool) string {
	if approximate {
		return "≈" + FormatMoney(m, c)
	}
	return FormatMoney(m, c)
}
