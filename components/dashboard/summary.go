package dashboard

import (
	"strconv"

	"github.com/shopspring/decimal"
)

const (
	summaryPeriodFallback   = "Period not selected"
	defaultCommissionRate   = 7
	defaultPromoSpendShare  = "0.25"
	summaryCostPricePercent = 30
	summaryHoldsPercent     = 5
)

// SummaryRow is one label/value line of the summary panel.
type SummaryRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Summary is the sidebar breakdown of the current period.
type Summary struct {
	Period string       `json:"period"`
	Rows   []SummaryRow `json:"rows"`
}

// BuildSummary derives the summary panel from the current snapshot.
// Promotional costs fall back to a quarter of spend and the commission rate
// falls back to 7% when the snapshot does not carry them.
func BuildSummary(current MetricSnapshot, period *DateRange) Summary {
	sales := snapshotDecimal(current, MetricSales)
	promo, ok := current.Number(MetricPromotionalCosts)
	promoCost := decimal.NewFromFloat(promo)
	if !ok {
		promoCost = snapshotDecimal(current, MetricSpend).Mul(decimal.RequireFromString(defaultPromoSpendShare)).Round(2)
	}
	promoShare := decimal.Zero
	if !sales.IsZero() {
		promoShare = promoCost.Div(sales).Mul(decimal.NewFromInt(100))
	}

	commission := decimal.NewFromInt(defaultCommissionRate)
	if v, ok := current.Get(MetricCommissionRate); ok {
		if p, ok := v.Percent(); ok && p != 0 {
			commission = decimal.NewFromFloat(p)
		}
	}
	conversion := decimal.Zero
	if v, ok := current.Get(MetricConversion); ok {
		if p, ok := v.Percent(); ok {
			conversion = decimal.NewFromFloat(p)
		}
	}
	orders, _ := current.Number(MetricOrders)
	clicks, _ := current.Number(MetricClicks)

	return Summary{
		Period: FormatPeriod(period, summaryPeriodFallback),
		Rows: []SummaryRow{
			{Label: "Sales", Value: FormatMoney(sales)},
			{Label: "Units", Value: rawNumber(orders)},
			{Label: "Promotional costs", Value: shareOfSales(promoCost, promoShare)},
			{Label: "Commission rate", Value: shareOfSales(percentOf(sales, commission), commission)},
			{Label: "Cost price", Value: shareOfSales(percentOf(sales, decimal.NewFromInt(summaryCostPricePercent)), decimal.NewFromInt(summaryCostPricePercent))},
			{Label: "Amazon Holds", Value: shareOfSales(percentOf(sales, decimal.NewFromInt(summaryHoldsPercent)), decimal.NewFromInt(summaryHoldsPercent))},
			{Label: "Profit", Value: FormatMoney(snapshotDecimal(current, MetricProfit))},
			{Label: "Clicks", Value: rawNumber(clicks)},
			{Label: "Conversion", Value: FormatPercent(conversion)},
		},
	}
}

// rawNumber prints counts ungrouped, unlike the metric tiles.
func rawNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func snapshotDecimal(s MetricSnapshot, name string) decimal.Decimal {
	v, _ := s.Number(name)
	return decimal.NewFromFloat(v)
}

func percentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(decimal.NewFromInt(100))
}

func shareOfSales(amount, percent decimal.Decimal) string {
	return FormatMoney(amount) + " / " + FormatPercent(percent)
}
