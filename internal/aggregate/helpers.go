package aggregate

import (
	"math/big"
	"time"
)

const ratioScale = 18

func formatTokenAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	sign := value.Sign()
	abs := new(big.Int).Abs(value)
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	rat := new(big.Rat).SetFrac(abs, denom)
	text := rat.FloatString(int(decimals))
	if sign < 0 {
		return "-" + text
	}
	return text
}

func feeRate(fee *big.Int, tvl *big.Int) *big.Rat {
	if fee == nil || fee.Sign() == 0 || tvl == nil || tvl.Sign() == 0 {
		return nil
	}
	return new(big.Rat).SetFrac(fee, tvl)
}

func ratString(r *big.Rat) *string {
	if r == nil {
		return nil
	}
	val := r.FloatString(ratioScale)
	return &val
}

// computeAPR annualizes the window's fee yield. A constant-product pool holds
// equal value on both sides, so the combined yield is the mean of the per-side rates.
func computeAPR(rate0 *big.Rat, rate1 *big.Rat, windowSeconds uint64) *string {
	if windowSeconds == 0 || (rate0 == nil && rate1 == nil) {
		return nil
	}
	yield := new(big.Rat)
	if rate0 != nil {
		yield.Add(yield, rate0)
	}
	if rate1 != nil {
		yield.Add(yield, rate1)
	}
	yield.Quo(yield, big.NewRat(2, 1))

	yearSeconds := big.NewRat(int64(365*24*time.Hour/time.Second), 1)
	window := big.NewRat(int64(windowSeconds), 1)
	apr := new(big.Rat).Mul(yield, yearSeconds)
	apr.Quo(apr, window)
	return ratString(apr)
}
