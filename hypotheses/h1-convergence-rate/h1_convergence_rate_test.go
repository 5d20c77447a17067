//go:build ignore

package sim

// =============================================================================
// H1: Convergence Rate of the Estimator
//
// Hypothesis: The root-mean-square error of the pi estimate falls as
// 1/sqrt(N): on a log-log plot of RMS error against total samples, the
// least-squares slope is -0.5.
//
// Refuted if: the fitted slope lies outside [-0.6, -0.4] over four decades of
// N, averaging 32 seeds per decade.
//
// Independent variable: total samples (1e3 .. 1e6)
// Controlled variables: one rank, one worker, stride 1
// Dependent variable: RMS |pi_hat - pi| across seeds
//
// Run by copying into sim/:
//
//	cp hypotheses/h1-convergence-rate/h1_convergence_rate_test.go sim/ && go test ./sim/ -run H1 -v
// =============================================================================

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"

	"gonum.org/v1/gonum/stat"
)

const h1Seeds = 32

// h1OutputDir resolves the hypothesis output directory from the source file
// location (in sim/ once copied).
func h1OutputDir() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return filepath.Join("hypotheses", "h1-convergence-rate", "output")
	}
	repoRoot := filepath.Dir(filepath.Dir(filename))
	return filepath.Join(repoRoot, "hypotheses", "h1-convergence-rate", "output")
}

func h1RMSError(samples int64) float64 {
	var sq float64
	for seed := 0; seed < h1Seeds; seed++ {
		s := NewWorkerStream(SimulationKey(seed), WorkerID{}, SeedStride(1))
		pi := EstimatePi(CountHits(samples, &s), samples)
		sq += (pi - math.Pi) * (pi - math.Pi)
	}
	return math.Sqrt(sq / h1Seeds)
}

func TestH1_ConvergenceRate(t *testing.T) {
	sizes := []int64{1_000, 10_000, 100_000, 1_000_000}
	logN := make([]float64, len(sizes))
	logErr := make([]float64, len(sizes))
	rows := [][]string{{"samples", "rms_error"}}

	for i, n := range sizes {
		rms := h1RMSError(n)
		logN[i] = math.Log10(float64(n))
		logErr[i] = math.Log10(rms)
		rows = append(rows, []string{strconv.FormatInt(n, 10), strconv.FormatFloat(rms, 'e', 6, 64)})
		t.Logf("N=%-9d rms=%.6e", n, rms)
	}

	_, slope := stat.LinearRegression(logN, logErr, nil, false)
	t.Logf("fitted slope: %.4f (expected -0.5)", slope)

	dir := h1OutputDir()
	if err := os.MkdirAll(dir, 0o755); err == nil {
		if f, err := os.Create(filepath.Join(dir, "h1_convergence.csv")); err == nil {
			w := csv.NewWriter(f)
			_ = w.WriteAll(rows)
			f.Close()
		}
	}

	if slope < -0.6 || slope > -0.4 {
		t.Errorf("REFUTED: slope %.4f outside [-0.6, -0.4]", slope)
	} else {
		fmt.Printf("H1 CONFIRMED: RMS error slope %.4f\n", slope)
	}
}
