package quotes

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	MinScale = 1
	MaxScale = 20

	// ApprovalThreshold is the lowest scale level that needs admin review.
	ApprovalThreshold = 4
	// HighPriorityThreshold is the lowest scale level flagged for prominent review.
	HighPriorityThreshold = 9

	// cubicFeetPerScale is one scale step: a 3x3x3 ft pile.
	cubicFeetPerScale = 27
)

var itemVolume = map[string]int{
	SizeSmall:  9,
	SizeMedium: 18,
	SizeLarge:  45,
}

// serviceFeeRate is the share of the total attributed to disposal and labor.
var serviceFeeRate = decimal.RequireFromString("0.15")

// PriceBand is the dollar range allowed for a scale level.
type PriceBand struct {
	Low  int64
	High int64
}

// Midpoint is the rule-based price for the band.
func (b PriceBand) Midpoint() int64 {
	return (b.Low + b.High) / 2
}

var priceBands = [...]PriceBand{
	1:  {35, 45},
	2:  {55, 75},
	3:  {80, 100},
	4:  {100, 130},
	5:  {125, 165},
	6:  {165, 205},
	7:  {200, 250},
	8:  {240, 300},
	9:  {290, 350},
	10: {350, 450},
}

// BandFor returns the price band for a scale level, clamping out-of-range input.
func BandFor(scale int) PriceBand {
	scale = ClampScale(scale)
	if scale < len(priceBands) {
		return priceBands[scale]
	}
	low := int64(400 + 50*(scale-11))
	return PriceBand{Low: low, High: low + 100}
}

// ClampScale bounds a scale level to [MinScale, MaxScale].
func ClampScale(scale int) int {
	if scale < MinScale {
		return MinScale
	}
	if scale > MaxScale {
		return MaxScale
	}
	return scale
}

// SizeTier labels a scale level for display.
func SizeTier(scale int) string {
	switch {
	case scale <= 4:
		return "Small"
	case scale <= 8:
		return "Medium"
	case scale <= 14:
		return "Large"
	default:
		return "XL"
	}
}

// VolumeForItems sums the cubic footage of the items.
func VolumeForItems(items []Item) int {
	total := 0
	for _, item := range items {
		vol, ok := itemVolume[normalizeSize(item.Size)]
		if !ok {
			vol = itemVolume[SizeMedium]
		}
		total += vol * item.Quantity
	}
	return total
}

// ScaleForVolume converts cubic feet into a scale level.
func ScaleForVolume(cubicFeet int) int {
	if cubicFeet <= 0 {
		return MinScale
	}
	return ClampScale((cubicFeet + cubicFeetPerScale - 1) / cubicFeetPerScale)
}

// ClampPrice keeps an estimated price inside the band of its scale level.
func ClampPrice(scale int, price float64) float64 {
	band := BandFor(scale)
	p := decimal.NewFromFloat(price).Round(2)
	if p.LessThan(decimal.NewFromInt(band.Low)) {
		return float64(band.Low)
	}
	if p.GreaterThan(decimal.NewFromInt(band.High)) {
		return float64(band.High)
	}
	return p.InexactFloat64()
}

// BreakdownFor splits a total into base cost and the service charge.
func BreakdownFor(total float64) Breakdown {
	t := decimal.NewFromFloat(total).Round(2)
	base := t.Div(decimal.NewFromInt(1).Add(serviceFeeRate)).Round(2)
	return Breakdown{
		BaseCost:          base.InexactFloat64(),
		AdditionalCharges: t.Sub(base).InexactFloat64(),
		Total:             t.InexactFloat64(),
	}
}

// RuleEstimate prices items by volume without AI assistance.
func RuleEstimate(items []Item) Estimate {
	volume := VolumeForItems(items)
	scale := ScaleForVolume(volume)
	band := BandFor(scale)
	explanation := fmt.Sprintf("Scale %d of %d: about %d cubic feet of items, priced in the $%d-$%d range.",
		scale, MaxScale, volume, band.Low, band.High)
	return Estimate{
		ScaleLevel:  scale,
		TotalPrice:  float64(band.Midpoint()),
		Explanation: explanation,
		Items:       items,
	}
}

// ToCents converts a dollar amount to integer cents.
func ToCents(dollars float64) int64 {
	return decimal.NewFromFloat(dollars).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FromCents converts integer cents to dollars.
func FromCents(cents int64) float64 {
	return decimal.New(cents, -2).InexactFloat64()
}
