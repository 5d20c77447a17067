package sim

import "context"

// RootRank is the coordinating rank: it receives the reduction and owns the
// authoritative timing marks.
const RootRank = 0

// Communicator is one rank's handle on a group of cooperating ranks.
// Every rank must issue the same sequence of collective calls; a collective
// returns only after all ranks have entered it, or fails on all of them.
//
// Implementations live in sim/comm (in-process) and sim/comm/grpcx (network).
type Communicator interface {
	// Rank is this process's zero-based index.
	Rank() int
	// Size is the number of cooperating ranks.
	Size() int
	// Barrier blocks until every rank has reached it.
	Barrier(ctx context.Context) error
	// ReduceSum adds value across all ranks. The sum is meaningful on root only;
	// other ranks receive 0.
	ReduceSum(ctx context.Context, value int64, root int) (int64, error)
	// AllReduceMax returns the maximum of value across all ranks, on every rank.
	AllReduceMax(ctx context.Context, value int64) (int64, error)
	// Abort fails every pending and future collective of the group with cause.
	Abort(ctx context.Context, cause error)
	// Close releases transport resources.
	Close() error
}
