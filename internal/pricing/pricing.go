package pricing

import (
	"math"
	"math/bits"

	"github.com/shopspring/decimal"

	"github.com/dshills/shopadmin/pkg/types"
)

// Tolerance is the largest accepted difference between a claimed total and
// the computed net total.
var Tolerance = decimal.RequireFromString("0.01")

// Line is the priced part of an order item
type Line struct {
	Price    int64
	Quantity int
}

// lineTotal returns price·quantity, or false when it does not fit in an int64
func lineTotal(l Line) (int64, bool) {
	if l.Price < 0 || l.Quantity < 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(uint64(l.Price), uint64(l.Quantity))
	if hi != 0 || lo > math.MaxInt64 {
		return 0, false
	}
	return int64(lo), true
}

// ComputeTotal returns the gross total, Σ price·quantity. An empty slice totals 0.
// A line with a negative price or quantity, or a sum past math.MaxInt64,
// returns types.ErrTotalOverflow.
func ComputeTotal(lines []Line) (int64, error) {
	var total int64
	for _, l := range lines {
		sub, ok := lineTotal(l)
		if !ok || sub > math.MaxInt64-total {
			return 0, types.ErrTotalOverflow
		}
		total += sub
	}
	return total, nil
}

// NetTotal returns the total after discount
func NetTotal(computed, discount int64) int64 {
	return computed - discount
}

// ValidateTotal reports whether claimed is within Tolerance of computed - discount
func ValidateTotal(computed, discount int64, claimed decimal.Decimal) bool {
	expected := decimal.NewFromInt(NetTotal(computed, discount))
	return claimed.Sub(expected).Abs().LessThanOrEqual(Tolerance)
}
