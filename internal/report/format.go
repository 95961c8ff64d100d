package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Svanik-yan/trading-backtest/internal/backtest"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int64) string {
	if n < 0 {
		return "-" + groupDigits(strconv.FormatInt(-n, 10))
	}
	return groupDigits(strconv.FormatInt(n, 10))
}

// groupDigits inserts a comma every three digits from the right.
func groupDigits(s string) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	start := len(s) % 3
	if start > 0 {
		b.WriteString(s[:start])
	}
	for i := start; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatMoney formats v rounded half away from zero to two decimals, with
// comma separators: 1234567.891 -> "1,234,567.89".
func FormatMoney(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	s := d.StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")
	return sign + groupDigits(whole) + "." + frac
}

// FormatSignedMoney is FormatMoney with an explicit "+" for gains.
func FormatSignedMoney(v float64) string {
	if decimal.NewFromFloat(v).Round(2).IsPositive() {
		return "+" + FormatMoney(v)
	}
	return FormatMoney(v)
}

// FormatPct formats a fraction as a signed percentage: 0.1234 -> "+12.34%".
// Zero has no sign.
func FormatPct(f float64) string {
	pct := decimal.NewFromFloat(f).Mul(decimal.NewFromInt(100)).Round(2)
	switch {
	case pct.IsPositive():
		return "+" + pct.StringFixed(2) + "%"
	case pct.IsZero():
		return "0.00%"
	default:
		return pct.StringFixed(2) + "%"
	}
}

// FormatRatio formats a dimensionless ratio with two decimals.
func FormatRatio(f float64) string {
	return decimal.NewFromFloat(f).StringFixed(2)
}

// FormatProfitFactor renders the unbounded sentinel as "inf".
func FormatProfitFactor(f float64) string {
	if f == backtest.ProfitFactorUnbounded {
		return "inf"
	}
	return FormatRatio(f)
}

// FormatCompactAmount formats a large amount with B/M/K suffixes.
func FormatCompactAmount(v float64) string {
	a := v
	if a < 0 {
		a = -a
	}
	switch {
	case a >= 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case a >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case a >= 1e3:
		return fmt.Sprintf("%.1fK", v/1e3)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}
