// Package totals computes document-level HT/TVA/TTC from line items and
// an optional flat discount. Pure functions, no I/O.
package totals

import (
	"github.com/atelierweb/billing-core/internal/model"
)

// Policy controls how a flat discount interacts with TVA.
//
// With DiscountAffectsTVA the discount reduces HT before taxing: the TVA
// pool shrinks proportionally to the discounted share of the subtotal.
// Without it the already-summed TVA pool passes through unchanged and the
// discount only reduces HT/TTC (legacy invoice behaviour).
type Policy struct {
	DiscountAffectsTVA bool
}

type Totals struct {
	TotalHT  model.Money
	TotalTVA model.Money
	TotalTTC model.Money
}

// Compute aggregates per-line values (each already rounded to 2 decimals
// at the line boundary) and applies the flat discount.
//
// The discount is subtracted from HT only and the result clamps to zero:
// a discount meeting or exceeding the subtotal yields all-zero totals,
// not an error. The d == rawHT boundary belongs to the cascade: once
// nothing is left to tax, TVA is zeroed under either policy.
func Compute[T model.LineItem](items []T, discount model.Money, policy Policy) Totals {
	rawHT := model.ZeroMoney
	rawTVA := model.ZeroMoney
	for _, item := range items {
		rawHT = rawHT.Add(item.TotalHT())
		rawTVA = rawTVA.Add(item.TotalTVA())
	}

	discount = discount.ClampToZero()
	totalHT := rawHT.Sub(discount).ClampToZero()

	var tva model.Money
	switch {
	case totalHT.IsZero() && !discount.IsZero():
		// Full clamp cascades: nothing left to tax.
		tva = model.ZeroMoney
	case policy.DiscountAffectsTVA && !discount.IsZero() && !rawHT.IsZero():
		ratio := totalHT.Decimal().Div(rawHT.Decimal())
		tva = rawTVA.Mul(ratio)
	default:
		tva = rawTVA
	}

	totalHT = totalHT.Round2().ClampToZero()
	tva = tva.Round2().ClampToZero()
	totalTTC := totalHT.Add(tva).Round2().ClampToZero()

	return Totals{TotalHT: totalHT, TotalTVA: tva, TotalTTC: totalTTC}
}
