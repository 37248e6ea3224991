package model

import "github.com/shopspring/decimal"

// LineItem is any billable line with derived HT/TVA/TTC amounts.
// Each derived value is independently rounded to 2 decimals before the
// owning document sums them. This line-level rounding granularity (not
// aggregate-then-round) governs penny-level reconciliation.
type LineItem interface {
	TotalHT() Money
	TotalTVA() Money
	TotalTTC() Money
}

func lineHT(unitPrice Money, quantity decimal.Decimal) Money {
	return unitPrice.Mul(quantity).Round2()
}

func lineTVA(unitPrice Money, quantity, taxRate decimal.Decimal) Money {
	return lineHT(unitPrice, quantity).Mul(taxRate).DivideByHundred().Round2()
}

func lineTTC(unitPrice Money, quantity, taxRate decimal.Decimal) Money {
	return lineHT(unitPrice, quantity).Add(lineTVA(unitPrice, quantity, taxRate))
}
