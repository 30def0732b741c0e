package report

import "github.com/shopspring/decimal"

// Money rounds a currency amount to cents.
func Money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

// Ratio rounds a rate or model quantity to four places.
func Ratio(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(4)
}
