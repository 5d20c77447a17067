// Package sim provides the parallel sampling-and-reduction engine behind the
// pisim Monte Carlo estimate of pi.
//
// # Reading Guide
//
// Start with these files to understand a run:
//   - engine.go: Run, the per-rank sequence of collectives, sampling and timing marks
//   - pool.go: the local worker pool (one goroutine and one result slot per worker)
//   - kernel.go: the hot loop counting points inside the quarter-circle
//
// # Determinism
//
// Every worker owns a Stream seeded from seed + rank*stride + thread, mixed
// through splitmix64. The stride is the run-wide maximum thread count, agreed
// by a max-allreduce before sampling, so no two workers share a seed. Given the
// same seed, rank count and thread counts, global hits are bit-for-bit
// identical across runs. Each rank also sum-reduces a hash of (rank, threads)
// to the root, so the result fingerprint covers every rank's thread count.
//
// # Architecture
//
// The sim package defines the Communicator interface and the engine; transports
// and collaborators live in sub-packages:
//   - sim/comm/: in-process collectives (Hub, Endpoint, Spawn, fault injection)
//   - sim/comm/grpcx/: collectives between OS processes over gRPC
//   - sim/report/: result CSV, local/S3 object stores, SQLite run ledger
//   - sim/sweep/: strong and weak scaling studies
package sim
