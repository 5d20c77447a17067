package sim

import (
	"fmt"
	"math/bits"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible run.
// Two runs with the same SimulationKey, rank count and per-rank thread counts
// MUST produce bit-for-bit identical hit counts.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === WorkerID ===

// WorkerID names one sampling worker: a thread index inside a rank.
type WorkerID struct {
	Rank   int
	Thread int
}

func (w WorkerID) String() string {
	return fmt.Sprintf("rank_%d/thread_%d", w.Rank, w.Thread)
}

// === Seed derivation ===

// SeedStride returns the multiplier that separates the seed ranges of adjacent
// ranks. It is the run-wide maximum thread count, so thread indices of one rank
// can never reach into the next rank's range.
func SeedStride(maxThreads int) uint64 {
	if maxThreads < 1 {
		return 1
	}
	return uint64(maxThreads)
}

// WorkerSeed combines the run key with a worker's coordinates:
//
//	seed = key + rank*stride + thread
//
// The arithmetic wraps at 64 bits. For thread < stride the mapping is injective
// over (rank, thread) within one run.
func WorkerSeed(key SimulationKey, id WorkerID, stride uint64) uint64 {
	return uint64(key) + uint64(id.Rank)*stride + uint64(id.Thread)
}

const goldenGamma = 0x9E3779B97F4A7C15

// splitMix64 is the splitmix64 output function; every input bit affects every
// output bit.
func splitMix64(seed uint64) uint64 {
	z := seed + goldenGamma
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// mixSeed derives the offset-th independent word from seed.
func mixSeed(seed, offset uint64) uint64 {
	return splitMix64(seed + offset*goldenGamma)
}

// === Stream ===

// Stream is a xoroshiro128+ generator. The zero value is invalid; use NewStream.
//
// Thread-safety: NOT thread-safe. Each worker owns exactly one Stream.
type Stream struct {
	s0, s1 uint64
}

// NewStream seeds a Stream from a worker seed. Neither state word is the raw
// seed: both pass through splitmix64 with distinct offsets.
func NewStream(workerSeed uint64) Stream {
	s := Stream{
		s0: mixSeed(workerSeed, 0),
		s1: mixSeed(workerSeed, 1),
	}
	if s.s0 == 0 && s.s1 == 0 {
		// xoroshiro has a fixed point at zero
		s.s0 = goldenGamma
	}
	return s
}

// NewWorkerStream is shorthand for NewStream(WorkerSeed(key, id, stride)).
func NewWorkerStream(key SimulationKey, id WorkerID, stride uint64) Stream {
	return NewStream(WorkerSeed(key, id, stride))
}

// Uint64 advances the stream and returns 64 pseudo-random bits.
func (s *Stream) Uint64() uint64 {
	s0, s1 := s.s0, s.s1
	result := s0 + s1
	s1 ^= s0
	s.s0 = bits.RotateLeft64(s0, 24) ^ s1 ^ (s1 << 16)
	s.s1 = bits.RotateLeft64(s1, 37)
	return result
}

// Float64 returns a uniform value in [0, 1) built from the top 53 bits of one draw.
func (s *Stream) Float64() float64 {
	return float64(s.Uint64()>>11) * 0x1p-53
}

// State returns the two state words, for diagnostics and tests.
func (s *Stream) State() (uint64, uint64) {
	return s.s0, s.s1
}
