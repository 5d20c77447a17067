//go:build ignore

package sim

// =============================================================================
// H2: Thread Count Does Not Bias the Estimate
//
// Hypothesis: Splitting a fixed sample budget over more workers changes the
// exact hit count (each worker draws from its own stream) but not its
// distribution. The mean estimate over seeds is the same for 1, 4 and 16
// workers.
//
// Refuted if: for any worker count, the mean estimate over 64 seeds differs
// from the 1-worker mean by more than 4 standard errors.
//
// Independent variable: workers per rank (1, 4, 16)
// Controlled variables: 200k samples, one rank, stride = worker count
// Dependent variable: mean and standard error of pi_hat across seeds
//
// Run by copying into sim/:
//
//	cp hypotheses/h2-thread-count-invariance/h2_thread_count_invariance_test.go sim/ && go test ./sim/ -run H2 -v
// =============================================================================

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"
)

const (
	h2Seeds   = 64
	h2Samples = 200_000
)

func h2Estimates(threads int) []float64 {
	out := make([]float64, h2Seeds)
	for seed := 0; seed < h2Seeds; seed++ {
		lr := RunLocal(LocalConfig{
			Key:     SimulationKey(seed * 1000),
			Samples: h2Samples,
			Threads: threads,
			Stride:  SeedStride(threads),
		})
		out[seed] = EstimatePi(lr.Hits, h2Samples)
	}
	return out
}

func TestH2_ThreadCountInvariance(t *testing.T) {
	base := h2Estimates(1)
	baseMean, baseStd := stat.MeanStdDev(base, nil)
	t.Logf("threads=1  mean=%.6f std=%.6f", baseMean, baseStd)

	for _, threads := range []int{4, 16} {
		est := h2Estimates(threads)
		mean, std := stat.MeanStdDev(est, nil)
		se := math.Sqrt((baseStd*baseStd + std*std) / h2Seeds)
		t.Logf("threads=%-2d mean=%.6f std=%.6f diff=%.2f SE", threads, mean, std, math.Abs(mean-baseMean)/se)
		if math.Abs(mean-baseMean) > 4*se {
			t.Errorf("REFUTED: %d workers shift the mean by %.6f (> 4 SE = %.6f)", threads, mean-baseMean, 4*se)
		}
	}
}
