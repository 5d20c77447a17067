// Package comm provides collective communication between cooperating ranks.
//
// A Hub is the rendezvous point for one group. Ranks living in the same
// process use Hub.Endpoint directly; remote ranks reach the same Hub through
// sim/comm/grpcx.
package comm

import (
	"context"
	"fmt"
	"sync"

	"github.com/inference-sim/pisim/sim"
)

// Op names a collective operation.
type Op string

const (
	OpBarrier      Op = "barrier"
	OpReduceSum    Op = "reduce_sum"
	OpAllReduceMax Op = "allreduce_max"
)

// validOps is the set of recognized collective operations.
var validOps = map[Op]bool{OpBarrier: true, OpReduceSum: true, OpAllReduceMax: true}

// IsValidOp returns true if op names a collective the Hub can combine.
func IsValidOp(op Op) bool {
	return validOps[op]
}

// round is one collective in flight. Ranks match rounds by sequence number:
// the n-th collective call of every rank belongs to round n.
type round struct {
	op      Op
	root    int
	values  []int64
	seen    []bool
	arrived int
	result  int64
	done    chan struct{}
}

// Hub matches collective calls from a fixed number of ranks.
// Safe for concurrent use.
type Hub struct {
	size int

	mu       sync.Mutex
	rounds   map[uint64]*round
	abortErr error
	aborted  chan struct{}
}

// NewHub creates a Hub for size ranks. Panics if size < 1.
func NewHub(size int) *Hub {
	if size < 1 {
		panic(fmt.Sprintf("comm.NewHub: size must be >= 1, got %d", size))
	}
	return &Hub{
		size:    size,
		rounds:  make(map[uint64]*round),
		aborted: make(chan struct{}),
	}
}

// Size returns the number of ranks in the group.
func (h *Hub) Size() int {
	return h.size
}

// Enter contributes value from rank to collective number seq and blocks until
// every rank has contributed, the group is aborted, or ctx is done.
// It returns the combined value: the sum for OpReduceSum, the maximum for
// OpAllReduceMax and 0 for OpBarrier. Every failure aborts the group.
func (h *Hub) Enter(ctx context.Context, seq uint64, rank int, op Op, root int, value int64) (int64, error) {
	if rank < 0 || rank >= h.size {
		return 0, h.fail(sim.CodeTransport, fmt.Sprintf("rank %d outside group of %d", rank, h.size), nil)
	}
	if !IsValidOp(op) {
		return 0, h.fail(sim.CodeOpMismatch, fmt.Sprintf("unknown collective %q", op), nil)
	}
	if root < 0 || root >= h.size {
		return 0, h.fail(sim.CodeOpMismatch, fmt.Sprintf("root %d outside group of %d", root, h.size), nil)
	}

	h.mu.Lock()
	if h.abortErr != nil {
		err := h.abortErr
		h.mu.Unlock()
		return 0, err
	}
	r, ok := h.rounds[seq]
	if !ok {
		r = &round{
			op:     op,
			root:   root,
			values: make([]int64, h.size),
			seen:   make([]bool, h.size),
			done:   make(chan struct{}),
		}
		h.rounds[seq] = r
	}
	if r.op != op || r.root != root {
		err := h.abortLocked(sim.CollectiveError(sim.CodeOpMismatch,
			fmt.Sprintf("collective %d: rank %d called %s(root=%d), group is in %s(root=%d)", seq, rank, op, root, r.op, r.root), nil))
		h.mu.Unlock()
		return 0, err
	}
	if r.seen[rank] {
		err := h.abortLocked(sim.CollectiveError(sim.CodeOpMismatch,
			fmt.Sprintf("collective %d: rank %d entered twice", seq, rank), nil))
		h.mu.Unlock()
		return 0, err
	}
	r.seen[rank] = true
	r.values[rank] = value
	r.arrived++
	if r.arrived == h.size {
		r.result = combine(op, r.values)
		delete(h.rounds, seq)
		close(r.done)
	}
	h.mu.Unlock()

	select {
	case <-r.done:
		return r.result, nil
	default:
	}
	select {
	case <-r.done:
		return r.result, nil
	case <-h.aborted:
		return 0, h.Err()
	case <-ctx.Done():
		return 0, h.fail(sim.CodeTransport, fmt.Sprintf("rank %d: %s cancelled", rank, op), ctx.Err())
	}
}

// Abort fails every pending and future collective with cause. Only the first
// call has an effect.
func (h *Hub) Abort(cause error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.abortLocked(sim.CollectiveError(sim.CodeAborted, "group aborted", cause))
}

// Err returns the abort error, or nil while the group is healthy.
func (h *Hub) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.abortErr
}

// Done is closed once the group is aborted.
func (h *Hub) Done() <-chan struct{} {
	return h.aborted
}

func (h *Hub) fail(code, message string, cause error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.abortLocked(sim.CollectiveError(code, message, cause))
}

// abortLocked records err as the abort cause unless one is already set and
// returns the cause in effect. h.mu must be held.
func (h *Hub) abortLocked(err error) error {
	if h.abortErr == nil {
		h.abortErr = err
		close(h.aborted)
	}
	return h.abortErr
}

func combine(op Op, values []int64) int64 {
	switch op {
	case OpReduceSum:
		var sum int64
		for _, v := range values {
			sum += v
		}
		return sum
	case OpAllReduceMax:
		hi := values[0]
		for _, v := range values[1:] {
			if v > hi {
				hi = v
			}
		}
		return hi
	default:
		return 0
	}
}
