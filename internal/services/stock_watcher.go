package services

import (
	"math"

	"github.com/feldhof/orders/internal/domain"
)

// ThresholdSignal reports a stock record crossing at or below its threshold.
type ThresholdSignal struct {
	ItemID    string
	Name      string
	Quantity  float64
	Threshold float64
}

// CheckThresholdCrossing inspects the before/after states of a stock write
// and reports an edge-triggered crossing. The signal fires only on the
// transition from above threshold to at-or-below; a record that was already
// at or below and stays there does not re-fire. A nil before (first write
// ever) counts as a crossing when after is already at or below.
//
// A threshold of zero or below, or a non-finite threshold, disables alerting
// for the record entirely.
func CheckThresholdCrossing(before *domain.StockItem, after domain.StockItem) *ThresholdSignal {
	if stockStateAbove(after) {
		return nil
	}
	if before != nil && !stockStateAbove(*before) {
		// already low, stays low
		return nil
	}
	return &ThresholdSignal{
		ItemID:    after.ID,
		Name:      after.Name,
		Quantity:  after.Quantity,
		Threshold: after.Threshold,
	}
}

// stockStateAbove reports whether the item counts as ABOVE its threshold.
// Disabled alerting (threshold <= 0 or non-finite) is always ABOVE.
func stockStateAbove(item domain.StockItem) bool {
	if item.Threshold <= 0 || math.IsNaN(item.Threshold) || math.IsInf(item.Threshold, 0) {
		return true
	}
	return item.Quantity > item.Threshold
}
