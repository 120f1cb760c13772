package main

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// formatTokenCount formats an integer with comma separators (e.g. 45230 -> "45,230").
func formatTokenCount(n int64) string {
	if n < 0 {
		return "-" + formatTokenCount(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var b strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		b.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// formatSignedCount is formatTokenCount with an explicit sign for deltas.
func formatSignedCount(n int64) string {
	if n >= 0 {
		return "+" + formatTokenCount(n)
	}
	return formatTokenCount(n)
}

// formatUSD renders a dollar amount to six places, enough for per-request
// costs in the thousandths of a cent.
func formatUSD(v decimal.Decimal) string {
	if v.IsNegative() {
		return "-" + formatUSD(v.Neg())
	}
	return "$" + v.StringFixed(6)
}

func formatSignedUSD(v decimal.Decimal) string {
	if !v.IsNegative() {
		return "+" + formatUSD(v)
	}
	return formatUSD(v)
}
