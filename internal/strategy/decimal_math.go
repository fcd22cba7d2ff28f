package strategy

import (
	"math"

	"github.com/shopspring/decimal"
)

const (
	QuantityPlaces = 6
	CurrencyPlaces = 2
)

var (
	decTenThousand = decimal.NewFromInt(10000)
	decimalZero    = decimal.Zero
)

func decFromFloat(val float64) decimal.Decimal {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return decimalZero
	}
	return decimal.NewFromFloat(val)
}

func decToFloat(val decimal.Decimal) float64 {
	f, _ := val.Float64()
	return f
}

// RoundQuantity rounds half away from zero to QuantityPlaces.
func RoundQuantity(v float64) float64 {
	return decToFloat(decFromFloat(v).Round(QuantityPlaces))
}

// RoundCurrency rounds half away from zero to CurrencyPlaces.
func RoundCurrency(v float64) float64 {
	return decToFloat(decFromFloat(v).Round(CurrencyPlaces))
}

func roundCurrencyPtr(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	r := RoundCurrency(*v)
	return &r
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
