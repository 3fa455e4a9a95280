package globimap

import (
	"encoding/json"
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// MaxLogSize is the largest logSize accepted by Bitmap.Configure.
const MaxLogSize = 40

type point struct{ x, y uint64 }

// A Bitmap is a Bloom filter over 2-D points. Get never misses a point that
// was Put, but may report points that were not. Known false positives can be
// registered as corrections and removed from rasters with Correct.
type Bitmap struct {
	k           int
	logSize     uint
	mask        uint64
	bits        *bitset.BitSet
	corrections map[point]struct{}
}

// NewBitmap returns an unconfigured bitmap.
func NewBitmap() *Bitmap {
	return &Bitmap{corrections: make(map[point]struct{})}
}

// Configure resets the bitmap to 2^logSize cleared bits probed by k hashes
// per point. If k < 1 or logSize > MaxLogSize it returns an error wrapping
// ErrInvalidConfiguration and leaves the bitmap untouched.
func (b *Bitmap) Configure(k int, logSize uint) error {
	if k < 1 || logSize > MaxLogSize {
		return fmt.Errorf("%w: %d hashes over 2^%d bits", ErrInvalidConfiguration, k, logSize)
	}
	b.k = k
	b.logSize = logSize
	b.mask = 1<<logSize - 1
	b.bits = bitset.New(uint(b.mask + 1))
	b.corrections = make(map[point]struct{})
	return nil
}

// K returns the number of probes per point, or 0 if the bitmap is
// unconfigured.
func (b *Bitmap) K() int { return b.k }

// Size returns the number of bits.
func (b *Bitmap) Size() uint64 {
	if b.bits == nil {
		return 0
	}
	return b.mask + 1
}

// probes calls fn with every bit index of (x, y) until fn returns false.
func (b *Bitmap) probes(x, y uint64, fn func(i uint) bool) {
	h1, h2 := pointHash(x, y)
	for i := 0; i < b.k; i++ {
		if !fn(uint((h1 + uint64(i+1)*h2) & b.mask)) {
			return
		}
	}
}

// Put sets the bits of (x, y).
func (b *Bitmap) Put(x, y uint64) error {
	if b.bits == nil {
		return ErrNotConfigured
	}
	b.probes(x, y, func(i uint) bool {
		b.bits.Set(i)
		return true
	})
	return nil
}

// Get reports whether (x, y) may have been put.
func (b *Bitmap) Get(x, y uint64) (bool, error) {
	if b.bits == nil {
		return false, ErrNotConfigured
	}
	return b.get(x, y), nil
}

func (b *Bitmap) get(x, y uint64) bool {
	found := true
	b.probes(x, y, func(i uint) bool {
		found = b.bits.Test(i)
		return found
	})
	return found
}

// AddError registers (x, y) as a known false positive.
func (b *Bitmap) AddError(x, y uint64) {
	if b.corrections == nil {
		b.corrections = make(map[point]struct{})
	}
	b.corrections[point{x, y}] = struct{}{}
}

// Corrections returns the number of registered false positives.
func (b *Bitmap) Corrections() int { return len(b.corrections) }

// Map puts every cell of mask that is true, with mask[0][0] at (x0, y0).
func (b *Bitmap) Map(mask [][]bool, x0, y0 uint64) error {
	if b.bits == nil {
		return ErrNotConfigured
	}
	for i, row := range mask {
		for j, set := range row {
			if set {
				_ = b.Put(x0+uint64(i), y0+uint64(j))
			}
		}
	}
	return nil
}

// Enforce compares the bitmap with the ground truth in mask, with mask[0][0]
// at (x0, y0), and registers every false positive it finds. It returns the
// number of false positives.
func (b *Bitmap) Enforce(mask [][]bool, x0, y0 uint64) (int, error) {
	if b.bits == nil {
		return 0, ErrNotConfigured
	}
	n := 0
	for i, row := range mask {
		for j, set := range row {
			x, y := x0+uint64(i), y0+uint64(j)
			if !set && b.get(x, y) {
				b.AddError(x, y)
				n++
			}
		}
	}
	return n, nil
}

// Rasterize reads the rows x cols region starting at (x, y). Cells are 1 if
// the point may have been put and 0 otherwise.
func (b *Bitmap) Rasterize(x, y uint64, rows, cols int) (*Raster, error) {
	if b.bits == nil {
		return nil, ErrNotConfigured
	}
	r, err := newRaster(x, y, rows, cols)
	if err != nil {
		return nil, err
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if b.get(x+uint64(i), y+uint64(j)) {
				r.Data[i*cols+j] = 1
			}
		}
	}
	return r, nil
}

// Correct clears every registered false positive inside the extent of r and
// returns r.
func (b *Bitmap) Correct(r *Raster) *Raster {
	if r == nil {
		return nil
	}
	for p := range b.corrections {
		if p.x < r.X || p.y < r.Y {
			continue
		}
		i, j := p.x-r.X, p.y-r.Y
		if i < uint64(r.Rows) && j < uint64(r.Cols) {
			r.Data[int(i)*r.Cols+int(j)] = 0
		}
	}
	return r
}

// Stats returns the number of set bits and the fraction of zero bits.
func (b *Bitmap) Stats() (ones uint64, foz float64) {
	if b.bits == nil {
		return 0, 0
	}
	ones = uint64(b.bits.Count())
	size := b.Size()
	return ones, float64(size-ones) / float64(size)
}

type bitmapSummary struct {
	K         int     `json:"k"`
	LogSize   uint    `json:"log_size"`
	StorageB  float64 `json:"storage_b"`
	StorageKB float64 `json:"storage_kb"`
	StorageMB float64 `json:"storage_mb"`
	Ones      uint64  `json:"ones"`
	FOZ       float64 `json:"foz"`
	ECI       int     `json:"eci"`
}

// Summary returns the size, fill and number of corrections as indented JSON.
func (b *Bitmap) Summary() (string, error) {
	if b.bits == nil {
		return "", ErrNotConfigured
	}
	ones, foz := b.Stats()
	bytes := float64(b.Size()) / 8
	out, err := json.MarshalIndent(bitmapSummary{
		K:         b.k,
		LogSize:   b.logSize,
		StorageB:  bytes,
		StorageKB: bytes / 1024,
		StorageMB: bytes / (1024 * 1024),
		Ones:      ones,
		FOZ:       foz,
		ECI:       len(b.corrections),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("globimap: summary: %w", err)
	}
	return string(out), nil
}

// bufferLen returns the length of the bit buffer in bytes.
func (b *Bitmap) bufferLen() int {
	return int((b.Size() + 7) / 8)
}

// Buffer returns the bits packed into bytes, bit i at bit i%8 of byte i/8.
func (b *Bitmap) Buffer() []byte {
	buf := make([]byte, b.bufferLen())
	if b.bits == nil {
		return buf
	}
	for i, ok := b.bits.NextSet(0); ok; i, ok = b.bits.NextSet(i + 1) {
		buf[i/8] |= 1 << (i % 8)
	}
	return buf
}

// LoadBuffer replaces the bits with the packed bits in buf, as returned by
// Buffer. Registered corrections are kept.
func (b *Bitmap) LoadBuffer(buf []byte) error {
	if b.bits == nil {
		return ErrNotConfigured
	}
	if len(buf) != b.bufferLen() {
		return fmt.Errorf("%w: %d bytes for %d bits", ErrBufferSize, len(buf), b.Size())
	}
	b.bits.ClearAll()
	size := uint(b.Size())
	for i, c := range buf {
		for j := uint(0); j < 8 && c != 0; j++ {
			if c&(1<<j) != 0 && uint(i)*8+j < size {
				b.bits.Set(uint(i)*8 + j)
			}
		}
	}
	return nil
}

// Clear clears every bit and drops the corrections. The configuration is
// kept.
func (b *Bitmap) Clear() {
	if b.bits != nil {
		b.bits.ClearAll()
	}
	b.corrections = make(map[point]struct{})
}
