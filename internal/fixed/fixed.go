// Package fixed provides the deterministic fixed-point arithmetic used by
// the settlement engine. All real-world values (predictions, truth values,
// consensus) are int64 scaled by 1e6; every division truncates. Nothing in
// this package touches floating point, so every observer computes
// bit-identical results.
package fixed

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Precision is the fixed-point scale: values carry six decimal places.
const Precision = 1_000_000

// Abs returns |v| as a uint64. It is defined for the full int64 range,
// including math.MinInt64.
func Abs(v int64) uint64 {
	if v < 0 {
		return uint64(-(v + 1)) + 1
	}
	return uint64(v)
}

// AbsDiff returns |a-b| as a uint64 without intermediate signed overflow.
func AbsDiff(a, b int64) uint64 {
	if a >= b {
		return uint64(a) - uint64(b)
	}
	return uint64(b) - uint64(a)
}

// MulDiv computes a*b/d with a 256-bit intermediate so the product cannot
// overflow before the truncating division. d must be non-zero.
func MulDiv(a, b, d uint64) uint64 {
	n := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	n.Div(n, uint256.NewInt(d))
	return n.Uint64()
}

// Format renders a fixed-point value as a decimal string, e.g.
// 152_750_000 -> "152.75".
func Format(v int64) string {
	neg := v < 0
	abs := Abs(v)
	whole := abs / Precision
	frac := abs % Precision

	s := fmt.Sprintf("%d", whole)
	if neg {
		s = "-" + s
	}
	if frac == 0 {
		return s
	}
	fs := fmt.Sprintf("%06d", frac)
	for len(fs) > 1 && fs[len(fs)-1] == '0' {
		fs = fs[:len(fs)-1]
	}
	return s + "." + fs
}
