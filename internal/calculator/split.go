package calculator

import (
	"fmt"
	"math"
)

// EvenSplit divides amount into n shares rounded to 2 decimals, summing
// exactly to amount: every share is the floor-rounded equal part and the
// last share absorbs the rounding remainder. 100.00 three ways yields
// [33.33, 33.33, 33.34].
func EvenSplit(amount float64, n int) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("must split between at least one member")
	}
	if amount < 0 {
		return nil, fmt.Errorf("amount cannot be negative")
	}

	// Work in cents to keep the shares exact.
	totalCents := int64(math.Round(amount * 100))
	baseCents := totalCents / int64(n)
	remainder := totalCents - baseCents*int64(n)

	shares := make([]float64, n)
	for i := range shares {
		shares[i] = float64(baseCents) / 100
	}
	shares[n-1] = float64(baseCents+remainder) / 100

	return shares, nil
}

// SumWithinTolerance reports whether the split amounts add up to the
// transaction amount within the currency-minor-unit tolerance.
func SumWithinTolerance(amount float64, splitAmounts []float64) bool {
	var total float64
	for _, a := range splitAmounts {
		total += a
	}
	return math.Abs(amount-total) < epsilon
}
