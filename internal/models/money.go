package models

import "math"

// Cents is an amount of money in minor currency units. Amounts are stored,
// summed and compared as whole cents; fractional major units only exist at
// the API edge.
type Cents int64

// CentsFromFloat rounds a major-unit amount to the nearest cent.
func CentsFromFloat(v float64) Cents {
	return Cents(math.Round(v * 100))
}

// Float returns c in major units.
func (c Cents) Float() float64 {
	return float64(c) / 100
}
