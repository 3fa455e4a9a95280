package globimap

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash"
	"github.com/dchest/siphash"
	"github.com/dgryski/go-metro"
	"github.com/spaolacci/murmur3"
)

// H1 seeds the point hash of a Bitmap and is the default base seed of a
// Sketch.
const H1 = 8589845122

const pointSeed = uint32(H1 & 0xffffffff)

// FNV-1 constants, as in hash/fnv.
const (
	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

// splitmix64 constants.
const (
	goldenGamma = 0x9e3779b97f4a7c15
	mixMul1     = 0xbf58476d1ce4e5b9
	mixMul2     = 0x94d049bb133111eb
)

// Hash selects the function family used to derive the per-row hashes of a
// Sketch. Every row uses the same family with its own seed.
type Hash int

const (
	Murmur3 Hash = iota // murmur3 x64, the default
	SipHash             // SipHash-2-4 keyed with the row seed
	XXHash              // xxHash64 mixed with the row seed
	Metro               // metrohash64 seeded with the row seed
	FNV                 // FNV-1 mixed with the row seed
)

var hashNames = [...]string{
	Murmur3: "murmur3",
	SipHash: "siphash",
	XXHash:  "xxhash",
	Metro:   "metro",
	FNV:     "fnv",
}

// String returns the name accepted by ParseHash.
func (h Hash) String() string {
	if h.valid() {
		return hashNames[h]
	}
	return fmt.Sprintf("Hash(%d)", int(h))
}

func (h Hash) valid() bool {
	return h >= 0 && int(h) < len(hashNames)
}

// ParseHash returns the Hash with the given name. The empty string selects
// Murmur3.
func ParseHash(name string) (Hash, error) {
	if name == "" {
		return Murmur3, nil
	}
	for i, n := range hashNames {
		if strings.EqualFold(n, name) {
			return Hash(i), nil
		}
	}
	return 0, fmt.Errorf("globimap: unknown hash %q", name)
}

// sum returns the seeded 64-bit hash of key.
func (h Hash) sum(key []byte, seed uint64) uint64 {
	switch h {
	case SipHash:
		return siphash.Hash(seed, mix64(seed), key)
	case XXHash:
		return mix64(xxhash.Sum64(key) ^ seed)
	case Metro:
		return metro.Hash64(key, seed)
	case FNV:
		return mix64(multihash(key) ^ seed)
	default:
		return murmur3.Sum64WithSeed(key, uint32(seed)^uint32(seed>>32))
	}
}

// multihash is 64-bit FNV-1 over key.
func multihash(key []byte) uint64 {
	k := uint64(fnvOffset64)
	for _, b := range key {
		k *= fnvPrime64
		k ^= uint64(b)
	}
	return k
}

// mix64 is the splitmix64 finalizer.
func mix64(v uint64) uint64 {
	v ^= v >> 30
	v *= mixMul1
	v ^= v >> 27
	v *= mixMul2
	v ^= v >> 31
	return v
}

// rowSeeds derives n row seeds from base. The sequence only depends on base,
// so reconfiguring a sketch yields the same seeds.
func rowSeeds(base uint64, n int) []uint64 {
	seeds := make([]uint64, n)
	state := base
	for i := range seeds {
		state += goldenGamma
		seeds[i] = mix64(state)
	}
	return seeds
}

// pointHash returns the two 64-bit halves used to derive the probes of a
// point: murmur3 x64 128 over the 16-byte key, seeded with H1.
func pointHash(x, y uint64) (uint64, uint64) {
	return murmur3.Sum128WithSeed(PointKey(x, y), pointSeed)
}
