package fixed

import (
	"math"
	"testing"
)

func TestAbs(t *testing.T) {
	if Abs(0) != 0 {
		t.Errorf("Abs(0) = %d, want 0", Abs(0))
	}
	if Abs(-5) != 5 {
		t.Errorf("Abs(-5) = %d, want 5", Abs(-5))
	}
	if Abs(7) != 7 {
		t.Errorf("Abs(7) = %d, want 7", Abs(7))
	}
	if Abs(math.MinInt64) != 1<<63 {
		t.Errorf("Abs(MinInt64) = %d, want %d", Abs(math.MinInt64), uint64(1)<<63)
	}
	if Abs(math.MaxInt64) != math.MaxInt64 {
		t.Errorf("Abs(MaxInt64) = %d, want %d", Abs(math.MaxInt64), uint64(math.MaxInt64))
	}
}

func TestAbsDiff(t *testing.T) {
	cases := []struct {
		a, b int64
		want uint64
	}{
		{0, 0, 0},
		{10, 3, 7},
		{3, 10, 7},
		{-5, 5, 10},
		{math.MaxInt64, math.MinInt64, math.MaxUint64},
		{math.MinInt64, math.MaxInt64, math.MaxUint64},
	}
	for _, c := range cases {
		if got := AbsDiff(c.a, c.b); got != c.want {
			t.Errorf("AbsDiff(%d, %d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestMulDiv(t *testing.T) {
	if got := MulDiv(6, 7, 2); got != 21 {
		t.Errorf("MulDiv(6,7,2) = %d, want 21", got)
	}
	// Truncating division.
	if got := MulDiv(7, 3, 2); got != 10 {
		t.Errorf("MulDiv(7,3,2) = %d, want 10", got)
	}
	// The product overflows 64 bits; the 256-bit intermediate must not.
	big := uint64(math.MaxUint64)
	if got := MulDiv(big, big, big); got != big {
		t.Errorf("MulDiv(max,max,max) = %d, want %d", got, big)
	}
	// pool-share shape: amount * stake / total where the product alone
	// would overflow uint64.
	if got := MulDiv(10_000_000_000_000_000_000, 3, 10); got != 3_000_000_000_000_000_000 {
		t.Errorf("MulDiv(1e19,3,10) = %d, want 3e18", got)
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		v    int64
		want string
	}{
		{0, "0"},
		{152_750_000, "152.75"},
		{-1_750_000, "-1.75"},
		{1_000_000, "1"},
		{1, "0.000001"},
		{-1, "-0.000001"},
		{150_000_000, "150"},
		{155_500_000, "155.5"},
	}
	for _, c := range cases {
		if got := Format(c.v); got != c.want {
			t.Errorf("Format(%d) = %q, want %q", c.v, got, c.want)
		}
	}
}

func TestLnTable(t *testing.T) {
	if got := Ln(0); got != 1_000_000 {
		t.Errorf("Ln(0) = %d, want 1000000 (ln e = 1.0)", got)
	}
	if got := Ln(1); got != 1_313_262 {
		t.Errorf("Ln(1) = %d, want 1313262", got)
	}
	if got := Ln(63); got != 3_058_839 {
		t.Errorf("Ln(63) = %d, want 3058839", got)
	}
}

func TestLnExtension(t *testing.T) {
	if got := Ln(64); got != 4_158_883 {
		t.Errorf("Ln(64) = %d, want 4158883", got)
	}
	// extra = (74-64) * 1e6 / 64 = 156250; dampened by /10.
	if got := Ln(74); got != 4_158_883+15_625 {
		t.Errorf("Ln(74) = %d, want %d", got, 4_158_883+15_625)
	}
	// The extension never decreases.
	prev := Ln(64)
	for n := uint32(65); n < 200; n++ {
		cur := Ln(n)
		if cur < prev {
			t.Fatalf("Ln(%d) = %d < Ln(%d) = %d", n, cur, n-1, prev)
		}
		prev = cur
	}
}
