package comm

import (
	"context"

	"github.com/inference-sim/pisim/sim"
)

// Faulty wraps a communicator and makes one collective fail on this rank with
// cause instead of reaching the transport. Used to rehearse failure handling.
type Faulty struct {
	sim.Communicator
	Op    Op
	Cause error
}

// WithFault returns c with op replaced by an immediate failure.
func WithFault(c sim.Communicator, op Op, cause error) *Faulty {
	return &Faulty{Communicator: c, Op: op, Cause: cause}
}

// Barrier fails if Op is OpBarrier, otherwise delegates.
func (f *Faulty) Barrier(ctx context.Context) error {
	if f.Op == OpBarrier {
		return f.err()
	}
	return f.Communicator.Barrier(ctx)
}

// ReduceSum fails if Op is OpReduceSum, otherwise delegates.
func (f *Faulty) ReduceSum(ctx context.Context, value int64, root int) (int64, error) {
	if f.Op == OpReduceSum {
		return 0, f.err()
	}
	return f.Communicator.ReduceSum(ctx, value, root)
}

// AllReduceMax fails if Op is OpAllReduceMax, otherwise delegates.
func (f *Faulty) AllReduceMax(ctx context.Context, value int64) (int64, error) {
	if f.Op == OpAllReduceMax {
		return 0, f.err()
	}
	return f.Communicator.AllReduceMax(ctx, value)
}

func (f *Faulty) err() error {
	return sim.CollectiveError(sim.CodeTransport, "injected fault", f.Cause)
}
