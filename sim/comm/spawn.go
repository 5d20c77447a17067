package comm

import (
	"context"
	"errors"
	"sync"

	"github.com/inference-sim/pisim/sim"
)

// RankFunc is the body of one rank.
type RankFunc func(ctx context.Context, c sim.Communicator) error

// Spawn runs size ranks as goroutines sharing a fresh Hub and waits for all of
// them. The returned error joins every rank's error, in rank order.
func Spawn(ctx context.Context, size int, fn RankFunc) error {
	return SpawnWith(ctx, NewHub(size), nil, fn)
}

// SpawnWith is Spawn over an existing hub. wrap, if non-nil, may decorate each
// rank's communicator (fault injection, tracing).
func SpawnWith(ctx context.Context, hub *Hub, wrap func(sim.Communicator) sim.Communicator, fn RankFunc) error {
	errs := make([]error, hub.Size())
	var wg sync.WaitGroup
	for rank := 0; rank < hub.Size(); rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			var c sim.Communicator = hub.Endpoint(rank)
			if wrap != nil {
				c = wrap(c)
			}
			defer c.Close()
			errs[rank] = fn(ctx, c)
		}(rank)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// RunInProcess runs cfg.Ranks ranks as goroutines over a fresh Hub and returns
// the root's result. cfg.Rank is ignored; each goroutine takes its own rank.
func RunInProcess(ctx context.Context, cfg sim.RunConfig) (*sim.Result, error) {
	if cfg.Ranks < 1 {
		return nil, sim.ConfigError(sim.CodeInvalidRanks, "rank count must be >= 1, got %d", cfg.Ranks)
	}
	results := make([]*sim.Result, cfg.Ranks)
	err := Spawn(ctx, cfg.Ranks, func(ctx context.Context, c sim.Communicator) error {
		rc := cfg
		rc.Rank = c.Rank()
		res, err := sim.Run(ctx, rc, c)
		results[c.Rank()] = res
		return err
	})
	if err != nil {
		return nil, err
	}
	return results[sim.RootRank], nil
}
