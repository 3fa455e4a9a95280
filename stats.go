package globimap

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/DataDog/sketches-go/ddsketch"
)

// loadAccuracy is the relative accuracy of the load quantiles in Stats.
const loadAccuracy = 0.01

// Stats describes the counters of a Sketch.
type Stats struct {
	Zeros uint64  `json:"zeros"`
	Min   uint64  `json:"min"`
	Max   uint64  `json:"max"`
	Sum   uint64  `json:"sum"`
	Mean  float64 `json:"mean"`
	FOZ   float64 `json:"foz"` // fraction of zero counters

	// Load quantiles over the non-zero counters. All zero when every
	// counter is zero.
	P50 float64 `json:"p50"`
	P90 float64 `json:"p90"`
	P99 float64 `json:"p99"`
}

// Stats scans every counter of the sketch.
func (s *Sketch) Stats() (Stats, error) {
	if !s.configured() {
		return Stats{}, ErrNotConfigured
	}
	load, err := ddsketch.NewDefaultDDSketch(loadAccuracy)
	if err != nil {
		return Stats{}, err
	}

	st := Stats{Min: s.counters[0]}
	for _, v := range s.counters {
		st.Sum = saturatingAdd(st.Sum, v, math.MaxUint64)
		if v < st.Min {
			st.Min = v
		}
		if v > st.Max {
			st.Max = v
		}
		if v == 0 {
			st.Zeros++
			continue
		}
		if err := load.Add(float64(v)); err != nil {
			return Stats{}, err
		}
	}
	n := float64(len(s.counters))
	st.Mean = float64(st.Sum) / n
	st.FOZ = float64(st.Zeros) / n

	if load.GetCount() > 0 {
		qs, err := load.GetValuesAtQuantiles([]float64{0.5, 0.9, 0.99})
		if err != nil {
			return Stats{}, err
		}
		st.P50, st.P90, st.P99 = qs[0], qs[1], qs[2]
	}
	return st, nil
}

type sketchSummary struct {
	Depth    int     `json:"depth"`
	Width    int     `json:"width"`
	Bits     uint    `json:"bits"`
	Hash     string  `json:"hash"`
	Total    uint64  `json:"total"`
	ByteSize uint64  `json:"byte_size"`
	KBSize   float64 `json:"kb_size"`
	MBSize   float64 `json:"mb_size"`
	Counters Stats   `json:"counters"`
}

// Summary returns the configuration and Stats of the sketch as indented JSON.
func (s *Sketch) Summary() (string, error) {
	st, err := s.Stats()
	if err != nil {
		return "", err
	}
	size := s.ByteSize()
	out, err := json.MarshalIndent(sketchSummary{
		Depth:    s.depth,
		Width:    s.width,
		Bits:     s.bits,
		Hash:     s.hash.String(),
		Total:    s.total,
		ByteSize: size,
		KBSize:   float64(size) / 1024,
		MBSize:   float64(size) / (1024 * 1024),
		Counters: st,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("globimap: summary: %w", err)
	}
	return string(out), nil
}
