package dashboard

import (
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatAmount renders v with thousands grouping and two decimals.
func FormatAmount(v decimal.Decimal) string {
	f, _ := v.Round(2).Float64()
	return message.NewPrinter(language.English).Sprintf("%.2f", f)
}

// FormatMoney renders v as a dollar amount.
func FormatMoney(v decimal.Decimal) string {
	if v.IsNegative() {
		return "-$" + FormatAmount(v.Abs())
	}
	return "$" + FormatAmount(v)
}

// FormatCount renders an integer count with thousands grouping.
func FormatCount(v int64) string {
	return message.NewPrinter(language.English).Sprintf("%d", v)
}

// FormatPercent renders a percentage with one decimal.
func FormatPercent(v decimal.Decimal) string {
	return v.StringFixed(1) + "%"
}

func formatFloat(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}
