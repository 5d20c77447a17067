package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inference-sim/pisim/sim/internal/testutil"
)

func TestCountHits_ZeroQuotaLeavesStreamUntouched(t *testing.T) {
	s := NewStream(42)
	before0, before1 := s.State()

	assert.Zero(t, CountHits(0, &s))

	after0, after1 := s.State()
	assert.Equal(t, before0, after0)
	assert.Equal(t, before1, after1)
}

func TestCountHits_BoundedByQuota(t *testing.T) {
	for _, quota := range []int64{1, 10, 1000, 100_000} {
		s := NewStream(uint64(quota))
		hits := CountHits(quota, &s)
		assert.GreaterOrEqual(t, hits, int64(0), "quota %d", quota)
		assert.LessOrEqual(t, hits, quota, "quota %d", quota)
	}
}

func TestCountHits_ConsumesTwoDrawsPerPoint(t *testing.T) {
	// GIVEN two streams with the same seed
	a, b := NewStream(9), NewStream(9)

	// WHEN one counts 100 points and the other draws 200 floats
	CountHits(100, &a)
	for i := 0; i < 200; i++ {
		b.Float64()
	}

	// THEN both end in the same state
	a0, a1 := a.State()
	b0, b1 := b.State()
	assert.Equal(t, b0, a0)
	assert.Equal(t, b1, a1)
}

func TestCountHits_SingleWorkerScenario(t *testing.T) {
	// GIVEN one worker on seed 42 with a million samples
	s := NewWorkerStream(42, WorkerID{}, SeedStride(1))

	// WHEN the kernel runs
	hits := CountHits(1_000_000, &s)

	// THEN the estimate lands in (3.0, 3.3)
	pi := EstimatePi(hits, 1_000_000)
	assert.Greater(t, pi, 3.0)
	assert.Less(t, pi, 3.3)
}

func TestCountHits_Converges(t *testing.T) {
	if testing.Short() {
		t.Skip("10M samples")
	}
	s := NewStream(42)
	hits := CountHits(10_000_000, &s)
	testutil.AssertPiWithin(t, EstimatePi(hits, 10_000_000), 0.01)
}

func TestEstimatePi(t *testing.T) {
	tests := []struct {
		name    string
		hits    int64
		samples int64
		want    float64
	}{
		{"no samples", 0, 0, 0},
		{"negative samples", 3, -1, 0},
		{"all hits", 10, 10, 4},
		{"quarter circle ratio", 785_398, 1_000_000, 3.141592},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertFloat64Equal(t, "pi", tt.want, EstimatePi(tt.hits, tt.samples), 1e-12)
		})
	}
	assert.False(t, math.IsNaN(EstimatePi(0, 0)))
}
