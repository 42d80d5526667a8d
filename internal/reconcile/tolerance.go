// Package reconcile implements the pure reconciliation engine: it consumes
// position and conditional-order snapshots and produces corrective actions.
// Nothing in this package performs I/O.
package reconcile

import "math"

// DefaultTolerance is the fixed epsilon, in position-size units, used to
// absorb floating-point noise from exchange-reported sizes and prices.
const DefaultTolerance = 1e-4

// Comparator provides tolerance-based numeric comparisons.
type Comparator struct {
	Epsilon float64
}

// Equal reports whether a and b are equal within tolerance.
func (c Comparator) Equal(a, b float64) bool {
	return math.Abs(a-b) <= c.Epsilon
}

// Greater reports whether a exceeds b by more than the tolerance.
func (c Comparator) Greater(a, b float64) bool {
	return a > b+c.Epsilon
}

// Less reports whether a is below b by more than the tolerance.
func (c Comparator) Less(a, b float64) bool {
	return a < b-c.Epsilon
}
