package globimap

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"
	"time"
)

// A Rollup tracks rates at several resolutions with a cascade of windows.
// Given the durations 10m, 1h and 24h it keeps six 10 minute buckets and
// twenty-four 1 hour buckets. Every event is recorded at each level; a rate
// query is answered by the finest level first and the remainder of the
// interval by the coarser levels.
type Rollup struct {
	clock  func() time.Time
	m      sync.Mutex
	levels []*Window
}

// NewRollup returns a Rollup of sketches with the given dimensions and
// options. The durations must be increasing; each one after the first adds a
// level of buckets spanning the previous duration, enough of them to cover
// it.
func NewRollup(depth, width int, durations []time.Duration, opts ...Option) (*Rollup, error) {
	if len(durations) < 2 {
		return nil, fmt.Errorf("%w: a rollup needs at least two durations, got %d",
			ErrInvalidConfiguration, len(durations))
	}
	r := &Rollup{levels: make([]*Window, len(durations)-1)}
	for i := 1; i < len(durations); i++ {
		from, to := durations[i-1], durations[i]
		if from <= 0 || to <= from {
			return nil, fmt.Errorf("%w: durations %v and %v are not increasing",
				ErrInvalidConfiguration, from, to)
		}
		num := int(to / from)
		if to%from > 0 {
			num++
		}
		w, err := NewWindow(depth, width, from, num, opts...)
		if err != nil {
			return nil, err
		}
		r.levels[i-1] = w
	}
	return r, nil
}

func (r *Rollup) now() time.Time {
	if r.clock == nil {
		return time.Now()
	}
	return r.clock()
}

// Add records amount occurrences of key at every level and returns its rate
// per second over the given interval. If interval is shorter than a second,
// or the recorded data covers less than a second, the rate is 0.
func (r *Rollup) Add(key []byte, amount uint64, interval time.Duration) (float64, error) {
	r.m.Lock()
	defer r.m.Unlock()

	var (
		count   float64
		covered time.Duration
		t       = r.now()
	)
	for _, w := range r.levels {
		if interval < 0 {
			interval = 0
		}
		n, d, err := w.record(key, amount, t, interval)
		if err != nil {
			return 0, err
		}
		count += n
		covered += d
		interval -= d
	}
	return rate(count, covered), nil
}

// Rate returns the rate per second at which key was recorded over the given
// interval. If interval is shorter than a second, or the recorded data covers
// less than a second, the rate is 0.
func (r *Rollup) Rate(key []byte, interval time.Duration) float64 {
	r.m.Lock()
	defer r.m.Unlock()

	var (
		count   float64
		covered time.Duration
		t       = r.now()
	)
	for _, w := range r.levels {
		if interval <= 0 {
			break
		}
		n, d := w.sum(key, t, interval)
		count += n
		covered += d
		t = t.Add(-d)
		interval -= d
	}
	return rate(count, covered)
}

// GobEncode returns the gob encoding of every level of the rollup.
func (r *Rollup) GobEncode() ([]byte, error) {
	r.m.Lock()
	defer r.m.Unlock()

	buf := &bytes.Buffer{}
	if err := gob.NewEncoder(buf).Encode(r.levels); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode replaces the levels of the rollup with the gob-encoded levels in
// data. The clock is kept.
func (r *Rollup) GobDecode(data []byte) error {
	var levels []*Window
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&levels); err != nil {
		return err
	}
	if len(levels) == 0 {
		return fmt.Errorf("globimap: decoded rollup without levels")
	}

	r.m.Lock()
	defer r.m.Unlock()
	r.levels = levels
	return nil
}
