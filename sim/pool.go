package sim

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// LocalConfig describes one rank's share of the work.
type LocalConfig struct {
	Key     SimulationKey
	Rank    int
	Samples int64  // this rank's samples
	Threads int    // workers to spread Samples over (≥ 1)
	Stride  uint64 // seed stride agreed by all ranks
}

// ThreadResult is one worker's outcome.
type ThreadResult struct {
	Thread  int
	Seed    uint64
	Samples int64
	Hits    int64
}

// LocalResult is the per-rank aggregate of all workers.
type LocalResult struct {
	Samples int64
	Hits    int64
	Threads []ThreadResult
}

// RunLocal samples cfg.Samples points over cfg.Threads goroutines.
// Each worker owns its stream and writes only its own result slot; slots are
// summed serially after every worker has returned.
func RunLocal(cfg LocalConfig) LocalResult {
	threads := cfg.Threads
	if threads < 1 {
		threads = 1
	}
	quotas := Quotas(cfg.Samples, threads)
	slots := make([]ThreadResult, threads)

	var wg sync.WaitGroup
	for t := 0; t < threads; t++ {
		wg.Add(1)
		go func(t int) {
			defer wg.Done()
			seed := WorkerSeed(cfg.Key, WorkerID{Rank: cfg.Rank, Thread: t}, cfg.Stride)
			stream := NewStream(seed)
			slots[t] = ThreadResult{
				Thread:  t,
				Seed:    seed,
				Samples: quotas[t],
				Hits:    CountHits(quotas[t], &stream),
			}
		}(t)
	}
	wg.Wait()

	res := LocalResult{Threads: slots}
	for _, s := range slots {
		res.Samples += s.Samples
		res.Hits += s.Hits
		logrus.Debugf("rank %d thread %d: %d/%d hits", cfg.Rank, s.Thread, s.Hits, s.Samples)
	}
	return res
}
