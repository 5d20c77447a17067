package sim

import "time"

// TimingMarks are the three wall-clock boundaries of a run. Only rank 0's
// marks are reported.
type TimingMarks struct {
	Start      time.Time // right after the pre-compute barrier
	ComputeEnd time.Time // all local workers joined, before the reduction
	ReduceEnd  time.Time // reduction returned
}

// Compute is the sampling interval.
func (m TimingMarks) Compute() time.Duration {
	return nonNegative(m.ComputeEnd.Sub(m.Start))
}

// Comm is the reduction interval.
func (m TimingMarks) Comm() time.Duration {
	return nonNegative(m.ReduceEnd.Sub(m.ComputeEnd))
}

// Elapsed spans the whole measured region.
func (m TimingMarks) Elapsed() time.Duration {
	return nonNegative(m.ReduceEnd.Sub(m.Start))
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
