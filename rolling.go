package globimap

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"
	"time"
)

// bucket is a sketch covering the events recorded from start until the next
// bucket starts, or at most one span.
type bucket struct {
	start  time.Time
	sketch *Sketch
}

// Window maintains a series of sketches to count events in time-based
// buckets. Events always go to the newest bucket, which is replaced by a
// fresh one once it is older than the span. At most limit buckets are kept;
// the oldest one is forgotten first.
//
// Rates are estimated from the buckets covering the queried interval. A
// bucket that only partially overlaps the interval contributes in proportion
// to the overlap.
type Window struct {
	span     time.Duration
	limit    int
	template *Sketch // configured and empty; cloned for every new bucket

	clock   func() time.Time
	m       sync.Mutex
	buckets []bucket
}

// NewWindow returns a Window of sketches with the given dimensions and
// options. Every bucket covers at most span, and at most limit buckets are
// kept.
func NewWindow(depth, width int, span time.Duration, limit int, opts ...Option) (*Window, error) {
	if span <= 0 || limit < 1 {
		return nil, fmt.Errorf("%w: span %v and limit %d must be positive",
			ErrInvalidConfiguration, span, limit)
	}
	template := New(opts...)
	if err := template.Configure(depth, width); err != nil {
		return nil, err
	}
	return &Window{span: span, limit: limit, template: template}, nil
}

func (w *Window) now() time.Time {
	if w.clock == nil {
		return time.Now()
	}
	return w.clock()
}

// current returns the bucket events at time t go to, rolling the window if
// the newest bucket is older than the span.
func (w *Window) current(t time.Time) (*bucket, error) {
	n := len(w.buckets)
	if n > 0 && t.Sub(w.buckets[n-1].start) < w.span {
		return &w.buckets[n-1], nil
	}
	if w.template == nil {
		return nil, ErrNotConfigured
	}
	b := bucket{start: t, sketch: w.template.Clone()}
	if n >= w.limit {
		copy(w.buckets, w.buckets[1:])
		w.buckets[n-1] = b
	} else {
		w.buckets = append(w.buckets, b)
	}
	return &w.buckets[len(w.buckets)-1], nil
}

// sum walks the buckets backwards from t and returns the estimated count of
// key within interval along with the duration those counts cover.
func (w *Window) sum(key []byte, t time.Time, interval time.Duration) (float64, time.Duration) {
	var (
		count   float64
		covered time.Duration
		from    = t.Add(-interval)
		end     = t
	)
	for i := len(w.buckets) - 1; i >= 0 && interval > 0; i-- {
		b := w.buckets[i]
		d := end.Sub(b.start)
		if d <= 0 {
			continue
		}
		interval -= d

		est, _ := b.sketch.Estimate(key)
		n := float64(est)

		if from.After(b.start) {
			// The interval starts inside this bucket; only count the
			// overlapping share of its events.
			stop := b.start.Add(w.span)
			if stop.After(end) {
				stop = end
			}
			overlap := stop.Sub(from)
			if d-overlap > w.span {
				break
			}
			n = n * float64(overlap) / float64(d)
			d = end.Sub(from)
		}

		count += n
		covered += d
		end = b.start
	}
	if covered < time.Second {
		return 0, 0
	}
	return count, covered
}

func rate(count float64, covered time.Duration) float64 {
	if covered == 0 {
		return 0
	}
	return count / covered.Seconds()
}

// Add records amount occurrences of key and returns its rate per second over
// the given interval. If interval is shorter than a second, or the recorded
// data covers less than a second, the rate is 0.
func (w *Window) Add(key []byte, amount uint64, interval time.Duration) (float64, error) {
	w.m.Lock()
	defer w.m.Unlock()

	return w.add(key, amount, w.now(), interval)
}

func (w *Window) add(key []byte, amount uint64, t time.Time, interval time.Duration) (float64, error) {
	n, d, err := w.record(key, amount, t, interval)
	if err != nil {
		return 0, err
	}
	return rate(n, d), nil
}

// record adds amount to key in the bucket for t and returns the estimated
// count of key within interval along with the duration it covers.
func (w *Window) record(key []byte, amount uint64, t time.Time, interval time.Duration) (
	float64, time.Duration, error) {

	b, err := w.current(t)
	if err != nil {
		return 0, 0, err
	}
	if err := b.sketch.Add(key, amount); err != nil {
		return 0, 0, err
	}
	n, d := w.sum(key, t, interval)
	return n, d, nil
}

// Rate returns the rate per second at which key was recorded over the given
// interval. If interval is shorter than a second, or the recorded data covers
// less than a second, the rate is 0.
func (w *Window) Rate(key []byte, interval time.Duration) float64 {
	w.m.Lock()
	defer w.m.Unlock()

	if len(w.buckets) == 0 {
		return 0
	}
	return rate(w.sum(key, w.now(), interval))
}

// Reset forgets every bucket.
func (w *Window) Reset() {
	w.m.Lock()
	defer w.m.Unlock()
	w.buckets = nil
}

// Latest returns a copy of the newest bucket's sketch, or nil if nothing was
// recorded yet.
func (w *Window) Latest() *Sketch {
	w.m.Lock()
	defer w.m.Unlock()

	if len(w.buckets) == 0 {
		return nil
	}
	return w.buckets[len(w.buckets)-1].sketch.Clone()
}

// GobEncode returns the gob encoding of the buckets and settings of the
// window. The clock is not encoded.
func (w *Window) GobEncode() ([]byte, error) {
	w.m.Lock()
	defer w.m.Unlock()

	starts := make([]time.Time, len(w.buckets))
	sketches := make([]*Sketch, len(w.buckets))
	for i, b := range w.buckets {
		starts[i] = b.start
		sketches[i] = b.sketch
	}

	buf := &bytes.Buffer{}
	encoder := gob.NewEncoder(buf)
	for _, v := range []interface{}{w.span, w.limit, w.template, starts, sketches} {
		if err := encoder.Encode(v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// GobDecode replaces the buckets and settings of the window with the
// gob-encoded window in data. The clock is kept.
func (w *Window) GobDecode(data []byte) error {
	var (
		span     time.Duration
		limit    int
		template = New()
		starts   []time.Time
		sketches []*Sketch
		decoder  = gob.NewDecoder(bytes.NewReader(data))
	)
	for _, v := range []interface{}{&span, &limit, template, &starts, &sketches} {
		if err := decoder.Decode(v); err != nil {
			return err
		}
	}
	if span <= 0 || limit < 1 || !template.configured() ||
		len(starts) != len(sketches) || len(starts) > limit {
		return fmt.Errorf("globimap: decoded window of %d buckets with span %v and limit %d",
			len(sketches), span, limit)
	}
	buckets := make([]bucket, len(starts))
	for i := range starts {
		if sketches[i] == nil || sketches[i].Depth() != template.Depth() ||
			sketches[i].Width() != template.Width() {
			return fmt.Errorf("globimap: decoded bucket %d does not match the window", i)
		}
		buckets[i] = bucket{start: starts[i], sketch: sketches[i]}
	}

	w.m.Lock()
	defer w.m.Unlock()
	w.span = span
	w.limit = limit
	w.template = template
	w.buckets = buckets
	return nil
}
