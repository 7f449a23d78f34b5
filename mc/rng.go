package mc

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// domainRNG returns a deterministically-seeded RNG for one stream in one
// cycle, derived from the run's master seed. Two runs with the same
// master seed and the same domain counts produce bit-identical sequences,
// including the D=1 case. Each cycle the driver draws the decomposition
// origin from domain -1, each region's worker from its region index, and
// the box move from domain -2, so no two of them share a stream.
//
// Adapted from the teacher's per-subsystem RNG partitioning; here the
// subsystem name is derived from (cycle, domain) rather than a fixed
// component name.
func domainRNG(masterSeed int64, cycle, domain int) *rand.Rand {
	name := fmt.Sprintf("cycle_%d_domain_%d", cycle, domain)
	seed := masterSeed ^ fnv1a64(name)
	return rand.New(rand.NewSource(seed))
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string, folded into
// an int64 seed.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
