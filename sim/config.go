package sim

import (
	"math"
	"runtime"
)

// MaxTotalSamples is the largest supported sample count. Sample and hit
// counters are int64 and hits never exceed samples, so nothing can wrap below
// this bound.
const MaxTotalSamples = math.MaxInt64

// RunConfig is everything one rank needs to take part in a run.
// Immutable for the run's duration.
type RunConfig struct {
	TotalSamples int64         // samples across all ranks (≥ 0)
	Seed         SimulationKey // seed base shared by every rank
	Ranks        int           // cooperating processes (≥ 1)
	Rank         int           // this process, in [0, Ranks)
	Threads      int           // local workers; 0 = discover via GOMAXPROCS
}

// LocalThreads returns the configured worker count, or the number of
// goroutines the runtime will execute in parallel.
func (c RunConfig) LocalThreads() int {
	if c.Threads > 0 {
		return c.Threads
	}
	return runtime.GOMAXPROCS(0)
}

// LocalSamples is this rank's share of TotalSamples.
func (c RunConfig) LocalSamples() int64 {
	return Share(c.TotalSamples, c.Ranks, c.Rank)
}

// Validate rejects configurations that would make a collective meaningless.
// Zero samples is valid: every rank contributes zero hits.
func (c RunConfig) Validate() error {
	if c.TotalSamples < 0 {
		return ConfigError(CodeInvalidSamples, "total samples must be non-negative, got %d", c.TotalSamples)
	}
	if c.Ranks < 1 {
		return ConfigError(CodeInvalidRanks, "rank count must be >= 1, got %d", c.Ranks)
	}
	if c.Rank < 0 || c.Rank >= c.Ranks {
		return ConfigError(CodeInvalidRank, "rank %d outside [0, %d)", c.Rank, c.Ranks)
	}
	if c.Threads < 0 {
		return ConfigError(CodeInvalidThreads, "thread count must be >= 0, got %d", c.Threads)
	}
	return nil
}
