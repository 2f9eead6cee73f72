package stats

import (
	"math/big"
)

// Scale converts a raw base-unit amount to its decimal-adjusted value
// using the token's own decimals. nil scales to 0.
func Scale(raw *big.Int, decimals uint8) float64 {
	if raw == nil || raw.Sign() == 0 {
		return 0
	}
	f := new(big.Float).SetInt(raw)
	f.Quo(f, decimalsFactor(decimals))
	v, _ := f.Float64()
	return v
}

// Unscale converts a decimal-adjusted value back to base units,
// rounding to the nearest integer.
func Unscale(value float64, decimals uint8) *big.Int {
	f := big.NewFloat(value)
	f.Mul(f, decimalsFactor(decimals))
	// Round half away from zero.
	half := big.NewFloat(0.5)
	if f.Sign() < 0 {
		f.Sub(f, half)
	} else {
		f.Add(f, half)
	}
	out, _ := f.Int(nil)
	return out
}

func decimalsFactor(decimals uint8) *big.Float {
	factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Float).SetInt(factor)
}
