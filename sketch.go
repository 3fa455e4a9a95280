package globimap

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"math"
	"math/bits"
	"slices"
)

// DefaultCounterBits is the counter width of a Sketch unless WithCounterBits
// says otherwise.
const DefaultCounterBits = 64

// MaxCounters is the largest number of counters, depth times width, accepted
// by Configure.
const MaxCounters = 1 << 32

// An Option customizes a Sketch created by New.
type Option func(*Sketch)

// WithHash sets the hash family used for the rows of a sketch.
func WithHash(h Hash) Option { return func(s *Sketch) { s.hash = h } }

// WithSeed sets the base seed the row seeds are derived from.
func WithSeed(seed uint64) Option { return func(s *Sketch) { s.seed = seed } }

// WithCounterBits sets the width of every counter to 8, 16, 32 or 64 bits.
// Counters saturate at the largest value of that width. Other widths make
// Configure fail.
func WithCounterBits(n uint) Option { return func(s *Sketch) { s.bits = n } }

// A Sketch is a count-min sketch (http://en.wikipedia.org/wiki/Count-min_sketch)
// of depth rows by width saturating counters.
//
// A new Sketch is unconfigured: Depth and Width return 0 and Add, Increment
// and Estimate fail with ErrNotConfigured until Configure succeeds.
type Sketch struct {
	depth    int
	width    int
	bits     uint
	hash     Hash
	seed     uint64
	max      uint64
	total    uint64
	seeds    []uint64
	counters []uint64 // row-major, depth*width
}

// New returns an unconfigured sketch.
func New(opts ...Option) *Sketch {
	s := &Sketch{
		bits: DefaultCounterBits,
		hash: Murmur3,
		seed: H1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configure resets the sketch to depth rows of width zeroed counters and
// re-derives the row seeds. If depth or width is less than 1 it returns an
// error wrapping ErrInvalidConfiguration and leaves the sketch untouched. The
// same holds if depth*width exceeds MaxCounters.
func (s *Sketch) Configure(depth, width int) error {
	if depth < 1 || width < 1 {
		return fmt.Errorf("%w: depth %d and width %d must be at least 1",
			ErrInvalidConfiguration, depth, width)
	}
	max, ok := counterMax(s.bits)
	if !ok {
		return fmt.Errorf("%w: counter width of %d bits", ErrInvalidConfiguration, s.bits)
	}
	if !s.hash.valid() {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, s.hash)
	}
	if uint64(depth) > MaxCounters/uint64(width) || uint64(depth) > math.MaxInt/uint64(width) {
		return fmt.Errorf("%w: %d x %d counters", ErrInvalidConfiguration, depth, width)
	}

	s.depth = depth
	s.width = width
	s.max = max
	s.total = 0
	s.seeds = rowSeeds(s.seed, depth)
	s.counters = make([]uint64, depth*width)
	return nil
}

// Dimensions returns the depth and width of a sketch whose estimates exceed
// the true count by at most epsilon times the total count, with probability
// 1-delta. Depth is ceil(ln(1/delta)) and width is ceil(e/epsilon). For
// epsilon=0.001 and delta=0.01 that is five rows of 2719 counters. Bounds
// that need more than MaxCounters counters are rejected.
func Dimensions(epsilon, delta float64) (depth, width int, err error) {
	if epsilon <= 0 || epsilon >= 1 || delta <= 0 || delta >= 1 {
		return 0, 0, fmt.Errorf("%w: epsilon %v and delta %v must be in (0, 1)",
			ErrInvalidConfiguration, epsilon, delta)
	}
	d := math.Ceil(math.Log(1 / delta))
	w := math.Ceil(math.E / epsilon)
	// Also false for NaN and +Inf.
	if !(d*w <= MaxCounters) {
		return 0, 0, fmt.Errorf("%w: epsilon %v and delta %v need %v x %v counters",
			ErrInvalidConfiguration, epsilon, delta, d, w)
	}
	return int(d), int(w), nil
}

// Depth returns the number of rows, or 0 if the sketch is unconfigured.
func (s *Sketch) Depth() int { return s.depth }

// Width returns the number of counters per row, or 0 if the sketch is
// unconfigured.
func (s *Sketch) Width() int { return s.width }

func (s *Sketch) configured() bool { return s.depth > 0 }

// column returns the counter index of key in the given row.
func (s *Sketch) column(row int, key []byte) int {
	return row*s.width + int(s.hash.sum(key, s.seeds[row])%uint64(s.width))
}

// Add adds amount to the count of key. An amount of 0 leaves the sketch
// unchanged.
func (s *Sketch) Add(key []byte, amount uint64) error {
	if !s.configured() {
		return ErrNotConfigured
	}
	if amount == 0 {
		return nil
	}
	for row := 0; row < s.depth; row++ {
		k := s.column(row, key)
		s.counters[k] = saturatingAdd(s.counters[k], amount, s.max)
	}
	s.total = saturatingAdd(s.total, amount, math.MaxUint64)
	return nil
}

// Increment adds 1 to the count of key.
func (s *Sketch) Increment(key []byte) error {
	return s.Add(key, 1)
}

// Estimate returns the estimated count of key: the smallest of the counters
// key maps to. It is never less than the total added for key since the last
// Configure.
func (s *Sketch) Estimate(key []byte) (uint64, error) {
	if !s.configured() {
		return 0, ErrNotConfigured
	}
	min := uint64(math.MaxUint64)
	for row := 0; row < s.depth; row++ {
		if v := s.counters[s.column(row, key)]; v < min {
			min = v
		}
	}
	return min, nil
}

// Total returns the sum of all amounts added since the last Configure.
func (s *Sketch) Total() uint64 { return s.total }

// ByteSize returns the memory taken by the counters at the configured counter
// width.
func (s *Sketch) ByteSize() uint64 {
	return uint64(len(s.counters)) * uint64(s.bits) / 8
}

// Equal reports whether s and other have the same options, dimensions and
// counters.
func (s *Sketch) Equal(other *Sketch) bool {
	if s == other {
		return true
	}
	if s == nil || other == nil {
		return false
	}
	return s.depth == other.depth &&
		s.width == other.width &&
		s.bits == other.bits &&
		s.hash == other.hash &&
		s.seed == other.seed &&
		s.total == other.total &&
		slices.Equal(s.counters, other.counters)
}

// Clone returns a deep copy of the sketch.
func (s *Sketch) Clone() *Sketch {
	clone := *s
	clone.seeds = slices.Clone(s.seeds)
	clone.counters = slices.Clone(s.counters)
	return &clone
}

// PointKey returns the key of the 2-D point (x, y): both coordinates as
// little-endian uint64.
func PointKey(x, y uint64) []byte {
	key := make([]byte, 16)
	binary.LittleEndian.PutUint64(key, x)
	binary.LittleEndian.PutUint64(key[8:], y)
	return key
}

// Rasterize returns the estimates of the rows x cols region of points
// starting at (x, y), keyed with PointKey.
func (s *Sketch) Rasterize(x, y uint64, rows, cols int) (*Raster, error) {
	if !s.configured() {
		return nil, ErrNotConfigured
	}
	r, err := newRaster(x, y, rows, cols)
	if err != nil {
		return nil, err
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v, _ := s.Estimate(PointKey(x+uint64(i), y+uint64(j)))
			r.Data[i*cols+j] = float64(v)
		}
	}
	return r, nil
}

// SumMasked returns the sum of the estimates of the points in the rows x cols
// region starting at (x, y) that mask may contain. The sum saturates.
func (s *Sketch) SumMasked(mask *Bitmap, x, y uint64, rows, cols int) (uint64, error) {
	if !s.configured() || mask == nil || mask.bits == nil {
		return 0, ErrNotConfigured
	}
	if rows < 0 || cols < 0 {
		return 0, fmt.Errorf("globimap: region of %d x %d cells", rows, cols)
	}
	var sum uint64
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			px, py := x+uint64(i), y+uint64(j)
			if !mask.get(px, py) {
				continue
			}
			v, _ := s.Estimate(PointKey(px, py))
			sum = saturatingAdd(sum, v, math.MaxUint64)
		}
	}
	return sum, nil
}

// GobEncode returns the gob encoding of the sketch.
func (s *Sketch) GobEncode() ([]byte, error) {
	buf := &bytes.Buffer{}
	encoder := gob.NewEncoder(buf)
	for _, v := range []interface{}{s.depth, s.width, s.bits, int(s.hash), s.seed, s.total, s.counters} {
		if err := encoder.Encode(v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// GobDecode replaces the sketch with the gob-encoded sketch in data.
func (s *Sketch) GobDecode(data []byte) error {
	var (
		clone    = &Sketch{}
		hash     int
		decoder  = gob.NewDecoder(bytes.NewReader(data))
		counters []uint64
	)
	for _, v := range []interface{}{&clone.depth, &clone.width, &clone.bits, &hash, &clone.seed, &clone.total, &counters} {
		if err := decoder.Decode(v); err != nil {
			return err
		}
	}
	clone.hash = Hash(hash)
	if clone.depth == 0 {
		*s = *clone
		return nil
	}
	total := clone.total
	if err := clone.Configure(clone.depth, clone.width); err != nil {
		return err
	}
	if len(counters) != len(clone.counters) {
		return fmt.Errorf("globimap: decoded %d counters for a %d x %d sketch",
			len(counters), clone.depth, clone.width)
	}
	for i, v := range counters {
		if v > clone.max {
			return fmt.Errorf("globimap: decoded counter %d holds %d, above the %d-bit maximum",
				i, v, clone.bits)
		}
	}
	clone.counters = counters
	clone.total = total
	*s = *clone
	return nil
}

// counterMax returns the saturation value of an n-bit counter.
func counterMax(n uint) (uint64, bool) {
	switch n {
	case 8, 16, 32:
		return 1<<n - 1, true
	case 64:
		return math.MaxUint64, true
	}
	return 0, false
}

// saturatingAdd returns v+delta, or max if the sum would exceed it.
func saturatingAdd(v, delta, max uint64) uint64 {
	sum, carry := bits.Add64(v, delta, 0)
	if carry != 0 || sum > max {
		return max
	}
	return sum
}
