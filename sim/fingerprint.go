package sim

import (
	"encoding/binary"
	"fmt"

	"github.com/spaolacci/murmur3"
)

// ThreadLayout summarizes how workers were spread over ranks. Together with
// samples, seed and rank count it decides every worker's seed and quota.
type ThreadLayout struct {
	MaxThreads int    // seed stride agreed by all ranks
	Digest     uint64 // wrapping sum of LayoutTerm over all ranks
}

// LayoutTerm is one rank's contribution to ThreadLayout.Digest. The rank is
// hashed in, so moving a thread count to another rank changes the digest.
func LayoutTerm(rank, threads int) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(rank))
	binary.LittleEndian.PutUint64(buf[8:], uint64(threads))
	return murmur3.Sum64(buf[:])
}

// Fingerprint identifies the inputs that determine a run's hit count: total
// samples, seed, rank count and the thread layout. Runs sharing a fingerprint
// must report identical global hits.
func Fingerprint(cfg RunConfig, layout ThreadLayout) string {
	var buf [40]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(cfg.TotalSamples))
	binary.LittleEndian.PutUint64(buf[8:], uint64(cfg.Seed))
	binary.LittleEndian.PutUint64(buf[16:], uint64(cfg.Ranks))
	binary.LittleEndian.PutUint64(buf[24:], uint64(layout.MaxThreads))
	binary.LittleEndian.PutUint64(buf[32:], layout.Digest)
	h1, h2 := murmur3.Sum128(buf[:])
	return fmt.Sprintf("%016x%016x", h1, h2)
}

// Fingerprint of a finished run. Meaningful on the root rank only.
func (r *Result) Fingerprint() string {
	return Fingerprint(r.Config, r.Layout)
}
