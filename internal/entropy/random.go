// Package entropy provides the injectable random source used by map generation
// and autonomous-faction tie-breaks.
// Seeded sources are reproducible; seed 0 draws a seed from crypto/rand, so the
// default behaviour of a match is not reproducible.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
)

// Source is the subset of *rand.Rand the simulation draws from.
// Tests substitute a seeded *rand.Rand or a scripted fake.
type Source interface {
	Float64() float64
	Intn(n int) int
}

// New returns a pseudo-random source. A zero seed is replaced by CryptoSeed.
func New(seed int64) *mrand.Rand {
	if seed == 0 {
		seed = CryptoSeed()
	}
	return mrand.New(mrand.NewSource(seed))
}

// CryptoSeed returns a non-zero seed read from crypto/rand.
func CryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand never fails on supported platforms.
		return 1
	}
	seed := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	if seed == 0 {
		seed = 1
	}
	return seed
}

// IntRange returns a uniform integer in [lo, hi]. Returns lo when hi < lo.
func IntRange(src Source, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return lo + src.Intn(hi-lo+1)
}
