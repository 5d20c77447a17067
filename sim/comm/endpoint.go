package comm

import (
	"context"

	"github.com/inference-sim/pisim/sim"
)

// Endpoint is an in-process rank attached to a Hub. It implements
// sim.Communicator. An Endpoint is used by one goroutine at a time.
type Endpoint struct {
	hub  *Hub
	rank int
	seq  uint64
}

var _ sim.Communicator = (*Endpoint)(nil)

// Endpoint returns the communicator for rank. Each rank must take exactly one
// endpoint; sequence numbers are tracked per endpoint.
func (h *Hub) Endpoint(rank int) *Endpoint {
	return &Endpoint{hub: h, rank: rank}
}

// Rank is this endpoint's rank in the group.
func (e *Endpoint) Rank() int { return e.rank }

// Size is the number of ranks in the group.
func (e *Endpoint) Size() int { return e.hub.size }

// Barrier blocks until every rank has reached it.
func (e *Endpoint) Barrier(ctx context.Context) error {
	_, err := e.enter(ctx, OpBarrier, sim.RootRank, 0)
	return err
}

// ReduceSum adds value across the group. Only root receives the sum.
func (e *Endpoint) ReduceSum(ctx context.Context, value int64, root int) (int64, error) {
	sum, err := e.enter(ctx, OpReduceSum, root, value)
	if err != nil || e.rank != root {
		return 0, err
	}
	return sum, nil
}

// AllReduceMax returns the group-wide maximum of value.
func (e *Endpoint) AllReduceMax(ctx context.Context, value int64) (int64, error) {
	return e.enter(ctx, OpAllReduceMax, sim.RootRank, value)
}

// Abort fails the whole group with cause.
func (e *Endpoint) Abort(_ context.Context, cause error) {
	e.hub.Abort(cause)
}

// Close is a no-op; the Hub owns no per-rank resources.
func (e *Endpoint) Close() error { return nil }

func (e *Endpoint) enter(ctx context.Context, op Op, root int, value int64) (int64, error) {
	seq := e.seq
	e.seq++
	return e.hub.Enter(ctx, seq, e.rank, op, root, value)
}
