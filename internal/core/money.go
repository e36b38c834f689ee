// Package core holds the ledger domain: records, tickets, the aggregation
// rules and the row codec shared by the file and spreadsheet backends.
//
// This file contains helpers for parsing user-entered magnitudes (yen
// amounts) and formatting points and values for display.
package core

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-entered amount to a positive decimal.
//
// It accepts dot or comma decimal separators and thousands separators written
// as full-width or ASCII commas when followed by exactly three digits, e.g.
//
//	ParseAmount("1200")    -> 1200
//	ParseAmount("1,200")   -> 1200
//	ParseAmount("12,5")    -> 12.5
//	ParseAmount("１２００") -> 1200
//
// Zero, negative and non-numeric input returns ErrInvalidValue.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = normalizeDigits(strings.TrimSpace(s))
	s = strings.TrimSuffix(strings.TrimSuffix(s, "円"), "¥")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "¥"), "￥")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidValue
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidValue
	}
	s = stripThousands(s)
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidValue
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidValue
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidValue
	}
	return d, nil
}

// FormatPoints renders points with thousands separators, e.g. "1,300 pt".
func FormatPoints(p int64) string {
	return groupThousands(strconv.FormatInt(p, 10)) + " pt"
}

// FormatYen renders a value as yen with thousands separators, e.g. "¥1,200".
func FormatYen(v decimal.Decimal) string {
	return "¥" + groupThousands(v.String())
}

func groupThousands(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if hasFrac {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

// stripThousands removes commas that separate groups of three digits.
func stripThousands(s string) string {
	parts := strings.Split(s, ",")
	if len(parts) < 2 {
		return s
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return s
		}
	}
	return strings.Join(parts, "")
}

func normalizeDigits(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '０' && r <= '９':
			return '0' + (r - '０')
		case r == '，':
			return ','
		case r == '．':
			return '.'
		}
		return r
	}, s)
}
