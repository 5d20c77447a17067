// Package testutil provides shared test infrastructure for the pisim engine.
// It consolidates assertion helpers and small fixtures used across the sim/
// test packages.
package testutil

import (
	"math"
	"testing"
)

// Scenario is a reference run whose estimate must land in a band around pi.
type Scenario struct {
	Name    string
	Samples int64
	Seed    int64
	Ranks   int
	Threads int
	// PiLow and PiHigh bound the accepted estimate (exclusive).
	PiLow, PiHigh float64
}

// Scenarios are the reference runs exercised by the engine and transport tests.
var Scenarios = []Scenario{
	{Name: "single worker 1M", Samples: 1_000_000, Seed: 42, Ranks: 1, Threads: 1, PiLow: 3.0, PiHigh: 3.3},
	{Name: "four ranks x two threads 2M", Samples: 2_000_000, Seed: 42, Ranks: 4, Threads: 2, PiLow: 3.1, PiHigh: 3.2},
	{Name: "uneven split 1000003", Samples: 1_000_003, Seed: 7, Ranks: 3, Threads: 5, PiLow: 3.0, PiHigh: 3.3},
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertPiWithin fails unless |got - pi| < tol.
func AssertPiWithin(t *testing.T, got, tol float64) {
	t.Helper()
	if diff := math.Abs(got - math.Pi); diff >= tol {
		t.Errorf("pi estimate %.10f is %.6f away from pi, want < %v", got, diff, tol)
	}
}
