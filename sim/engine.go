package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Result is one rank's view of a finished run. GlobalHits, PiEstimate and the
// timing marks are authoritative on the root rank only.
type Result struct {
	Config     RunConfig
	Root       bool
	Threads    int          // local worker count, echoed for provenance
	MaxThreads int          // run-wide maximum, used as the seed stride
	Layout     ThreadLayout // root only
	GlobalHits int64        // root only
	PiEstimate float64
	Marks      TimingMarks
	Local      LocalResult
}

// Elapsed is the measured region from the pre-compute barrier to the end of
// the reduction.
func (r *Result) Elapsed() time.Duration { return r.Marks.Elapsed() }

// ComputeTime is the local sampling interval.
func (r *Result) ComputeTime() time.Duration { return r.Marks.Compute() }

// CommTime is the reduction interval.
func (r *Result) CommTime() time.Duration { return r.Marks.Comm() }

// Run executes one rank's part of a run over comm:
//
//  1. validate the configuration (no collective has started yet)
//  2. agree on the seed stride (max-allreduce of local thread counts)
//  3. sum-reduce every rank's LayoutTerm to the root for the fingerprint
//  4. barrier, then mark Start
//  5. sample locally on all workers, join, mark ComputeEnd
//  6. sum-reduce hits to the root, mark ReduceEnd
//
// Any failure aborts the whole group, so no rank can block forever on a
// collective that a failed rank will never enter.
func Run(ctx context.Context, cfg RunConfig, comm Communicator) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		comm.Abort(ctx, err)
		return nil, err
	}
	if comm.Size() != cfg.Ranks || comm.Rank() != cfg.Rank {
		err := ConfigError(CodeInvalidRank, "communicator is rank %d of %d, config says rank %d of %d",
			comm.Rank(), comm.Size(), cfg.Rank, cfg.Ranks)
		comm.Abort(ctx, err)
		return nil, err
	}

	threads := cfg.LocalThreads()
	maxThreads, err := comm.AllReduceMax(ctx, int64(threads))
	if err != nil {
		return nil, fail(ctx, comm, CodeAllReduceFailed, "agreeing on seed stride", err)
	}
	digest, err := comm.ReduceSum(ctx, int64(LayoutTerm(cfg.Rank, threads)), RootRank)
	if err != nil {
		return nil, fail(ctx, comm, CodeReduceFailed, "thread layout reduction", err)
	}

	local := LocalConfig{
		Key:     cfg.Seed,
		Rank:    cfg.Rank,
		Samples: cfg.LocalSamples(),
		Threads: threads,
		Stride:  SeedStride(int(maxThreads)),
	}
	logrus.Debugf("rank %d: %d samples over %d threads, seed stride %d",
		cfg.Rank, local.Samples, local.Threads, local.Stride)

	if err := comm.Barrier(ctx); err != nil {
		return nil, fail(ctx, comm, CodeBarrierFailed, "pre-compute barrier", err)
	}

	var marks TimingMarks
	marks.Start = time.Now()
	lr := RunLocal(local)
	marks.ComputeEnd = time.Now()

	global, err := comm.ReduceSum(ctx, lr.Hits, RootRank)
	if err != nil {
		return nil, fail(ctx, comm, CodeReduceFailed, "hit reduction", err)
	}
	marks.ReduceEnd = time.Now()

	res := &Result{
		Config:     cfg,
		Root:       cfg.Rank == RootRank,
		Threads:    threads,
		MaxThreads: int(maxThreads),
		Marks:      marks,
		Local:      lr,
	}
	if res.Root {
		if global < 0 || global > cfg.TotalSamples {
			err := &RunError{Kind: KindCollective, Code: CodeReduceFailed,
				Message: fmt.Sprintf("global hits %d outside [0, %d]", global, cfg.TotalSamples)}
			comm.Abort(ctx, err)
			return nil, err
		}
		res.Layout = ThreadLayout{MaxThreads: int(maxThreads), Digest: uint64(digest)}
		res.GlobalHits = global
		res.PiEstimate = EstimatePi(global, cfg.TotalSamples)
		logrus.Infof("run finished: hits=%d samples=%d pi=%.10f compute=%v comm=%v",
			global, cfg.TotalSamples, res.PiEstimate, res.ComputeTime(), res.CommTime())
	}
	return res, nil
}

func fail(ctx context.Context, comm Communicator, code, message string, cause error) error {
	err := CollectiveError(code, message, cause)
	logrus.Errorf("rank %d: %v", comm.Rank(), err)
	comm.Abort(ctx, err)
	return err
}
