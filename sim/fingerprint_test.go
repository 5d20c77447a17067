package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// layoutOf builds the layout a run with the given per-rank thread counts reports.
func layoutOf(threads ...int) ThreadLayout {
	l := ThreadLayout{}
	for rank, n := range threads {
		l.MaxThreads = max(l.MaxThreads, n)
		l.Digest += LayoutTerm(rank, n)
	}
	return l
}

func TestFingerprint_StableAndSensitive(t *testing.T) {
	base := RunConfig{TotalSamples: 1_000_000, Seed: 42, Ranks: 4}
	layout := layoutOf(2, 2, 2, 2)
	fp := Fingerprint(base, layout)

	assert.Len(t, fp, 32)
	assert.Equal(t, fp, Fingerprint(base, layoutOf(2, 2, 2, 2)))

	// rank is not part of the fingerprint; every rank agrees on it
	other := base
	other.Rank = 3
	assert.Equal(t, fp, Fingerprint(other, layout))

	variants := map[string]string{
		"samples": Fingerprint(RunConfig{TotalSamples: 1_000_001, Seed: 42, Ranks: 4}, layout),
		"seed":    Fingerprint(RunConfig{TotalSamples: 1_000_000, Seed: 43, Ranks: 4}, layout),
		"ranks":   Fingerprint(RunConfig{TotalSamples: 1_000_000, Seed: 42, Ranks: 5}, layout),
		"threads": Fingerprint(base, layoutOf(3, 3, 3, 3)),
	}
	for field, v := range variants {
		assert.NotEqual(t, fp, v, "changing %s must change the fingerprint", field)
	}
}

func TestFingerprint_SeesEveryRanksThreads(t *testing.T) {
	cfg := RunConfig{TotalSamples: 100_000, Seed: 42, Ranks: 2}
	tests := []struct {
		name string
		a, b ThreadLayout
	}{
		{"non-root rank changes, max unchanged", layoutOf(2, 1), layoutOf(2, 2)},
		{"non-root rank raises the max", layoutOf(2, 2), layoutOf(2, 8)},
		{"same counts on swapped ranks", layoutOf(1, 3), layoutOf(3, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, Fingerprint(cfg, tt.a), Fingerprint(cfg, tt.b))
		})
	}
}

func TestResult_Fingerprint(t *testing.T) {
	cfg := RunConfig{TotalSamples: 10, Seed: 1, Ranks: 1}
	r := &Result{Config: cfg, Threads: 4, Layout: layoutOf(4)}
	assert.Equal(t, Fingerprint(cfg, layoutOf(4)), r.Fingerprint())
}
