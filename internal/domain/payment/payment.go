// Package payment prices milk collections.
//
// VLC milk is paid on a fat+SNF formula; Thekadari milk is paid on a net
// quantity adjusted for its fat deviation from the 65 reference point. The
// functions are pure and never fail: invalid numbers flow through to the result
// and callers validate inputs before pricing.
package payment

import (
	"fmt"

	"github.com/anmoldairy/dairy/internal/domain/models"
)

const (
	vlcFatPoints  = 6.0
	vlcFatBase    = 650.0
	vlcSNFPoints  = 4.0
	vlcSNFBase    = 900.0
	thekadariBase = 65.0
	thekadariStep = 1.5
)

// Result is the priced collection. LessAdd and NetMilk are set only for
// Thekadari milk; nil means "not applicable", not zero.
type Result struct {
	Amount  float64  `json:"amount"`
	LessAdd *float64 `json:"lessAdd,omitempty"`
	NetMilk *float64 `json:"netMilk,omitempty"`
}

// NetQuantity returns NetMilk when present and weight otherwise.
func (r Result) NetQuantity(weight float64) float64 {
	if r.NetMilk != nil {
		return *r.NetMilk
	}
	return weight
}

// LessAddOrZero returns LessAdd when present and 0 otherwise.
func (r Result) LessAddOrZero() float64 {
	if r.LessAdd != nil {
		return *r.LessAdd
	}
	return 0
}

// VLCAmount prices VLC milk: weight × ((fat × rate × 6/650) + (snf × rate × 4/900)).
func VLCAmount(weight, fat, snf, rate float64) float64 {
	return weight * ((fat * rate * vlcFatPoints / vlcFatBase) + (snf * rate * vlcSNFPoints / vlcSNFBase))
}

// ThekadariLessAdd is the quantity added (fat above 65) or deducted (fat below 65).
func ThekadariLessAdd(fat, weight float64) float64 {
	return (fat - thekadariBase) * weight * thekadariStep / 100
}

// ThekadariNetMilk is the payable quantity after the less/add adjustment.
func ThekadariNetMilk(weight, lessAdd float64) float64 {
	return weight + lessAdd
}

// ThekadariAmount prices the net quantity.
func ThekadariAmount(netMilk, rate float64) float64 {
	return netMilk * rate
}

// Calculate prices a collection according to its milk type. A nil snf is
// priced as zero for VLC and ignored for Thekadari.
func Calculate(milkType models.MilkType, weight, fat float64, snf *float64, rate float64) Result {
	if milkType == models.MilkTypeVLC {
		var snfValue float64
		if snf != nil {
			snfValue = *snf
		}
		return Result{Amount: VLCAmount(weight, fat, snfValue, rate)}
	}

	lessAdd := ThekadariLessAdd(fat, weight)
	netMilk := ThekadariNetMilk(weight, lessAdd)
	return Result{
		Amount:  ThekadariAmount(netMilk, rate),
		LessAdd: &lessAdd,
		NetMilk: &netMilk,
	}
}

// ForEntry prices a stored collection entry with the rate frozen into it.
func ForEntry(entry models.CollectionEntry) Result {
	return Calculate(entry.MilkType, entry.Weight, entry.Fat, entry.SNF, entry.Rate)
}

// FormatLessAdd renders an adjustment with an explicit sign, e.g. "+1.50" or "-0.75".
func FormatLessAdd(value float64) string {
	if value >= 0 {
		return fmt.Sprintf("+%.2f", value)
	}
	return fmt.Sprintf("%.2f", value)
}

// FormatCurrency renders an amount in rupees with two decimals.
func FormatCurrency(value float64) string {
	return fmt.Sprintf("₹%.2f", value)
}
