// Package fixedpoint provides the checked integer arithmetic used by the pool
// invariants. Pool quantities are uint64; intermediates are evaluated in 128-bit
// width and every narrowing is checked.
package fixedpoint

import (
	"fmt"
	"math"

	"github.com/holiman/uint256"

	"pairExchange/internal/amm"
)

// maxBits is the width of an intermediate value.
const maxBits = 128

// Mul returns the exact 128-bit product of two uint64 values.
func Mul(a, b uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
}

// MulDiv returns floor(a*b/denom). It fails when a*b does not fit in 128 bits
// or denom is zero.
func MulDiv(a, b, denom *uint256.Int) (*uint256.Int, error) {
	if denom.IsZero() {
		return nil, fmt.Errorf("%w: division by zero", amm.ErrArithmeticOverflow)
	}
	product, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow || product.BitLen() > maxBits {
		return nil, fmt.Errorf("%w: product %s * %s exceeds %d bits", amm.ErrArithmeticOverflow, a.ToBig(), b.ToBig(), maxBits)
	}
	return product.Div(product, denom), nil
}

// MulDivRoundingUp returns ceil(a*b/denom) under the same limits as MulDiv.
func MulDivRoundingUp(a, b, denom *uint256.Int) (*uint256.Int, error) {
	q, err := MulDiv(a, b, denom)
	if err != nil {
		return nil, err
	}
	product := new(uint256.Int).Mul(a, b)
	if !new(uint256.Int).Mod(product, denom).IsZero() {
		q.AddUint64(q, 1)
	}
	return q, nil
}

// MulDivU64 is MulDiv over uint64 operands narrowed back to uint64.
func MulDivU64(a, b, denom uint64) (uint64, error) {
	q, err := MulDiv(uint256.NewInt(a), uint256.NewInt(b), uint256.NewInt(denom))
	if err != nil {
		return 0, err
	}
	return ToUint64(q)
}

// ToUint64 narrows x, failing if that would lose precision.
func ToUint64(x *uint256.Int) (uint64, error) {
	if !x.IsUint64() {
		return 0, fmt.Errorf("%w: %s does not fit in 64 bits", amm.ErrArithmeticOverflow, x.ToBig())
	}
	return x.Uint64(), nil
}

// Sqrt returns floor(sqrt(x)) for a value of at most 128 bits.
func Sqrt(x *uint256.Int) (uint64, error) {
	if x.BitLen() > maxBits {
		return 0, fmt.Errorf("%w: sqrt operand %s exceeds %d bits", amm.ErrArithmeticOverflow, x.ToBig(), maxBits)
	}
	return ToUint64(new(uint256.Int).Sqrt(x))
}

// Add returns a+b or fails on uint64 overflow.
func Add(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, fmt.Errorf("%w: %d + %d", amm.ErrArithmeticOverflow, a, b)
	}
	return a + b, nil
}

// Sub returns a-b or fails when b > a.
func Sub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, fmt.Errorf("%w: %d - %d underflows", amm.ErrArithmeticOverflow, a, b)
	}
	return a - b, nil
}

// Min returns the smaller of a and b.
func Min(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
