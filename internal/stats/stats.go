// Package stats keeps rolling-window parse latency figures.
package stats

import (
	"sort"
	"sync"
	"time"
)

type sample struct {
	timestamp time.Time
	micros    int64
	blocks    int
	reused    int
}

// Snapshot is a point-in-time aggregate of parse samples.
type Snapshot struct {
	Count int     `json:"count"`
	MinUs int64   `json:"min_us"`
	MaxUs int64   `json:"max_us"`
	AvgUs float64 `json:"avg_us"`
	P50Us float64 `json:"p50_us"`
	P95Us float64 `json:"p95_us"`
	P99Us float64 `json:"p99_us"`

	// Blocks and Reused total the cache blocks seen and served from cache
	// across the window.
	Blocks   int     `json:"blocks"`
	Reused   int     `json:"reused"`
	ReusePct float64 `json:"reuse_pct"`
}

// Parse is one parse call as seen by the recorder.
type Parse struct {
	Duration time.Duration
	Blocks   int
	Reused   int
}

// Recorder tracks recent parse calls within a rolling window.
type Recorder struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
}

func NewRecorder(maxAge time.Duration) *Recorder {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Recorder{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
	}
}

// Record adds one parse. A nil recorder ignores it.
func (r *Recorder) Record(p Parse) {
	if r == nil {
		return
	}
	us := p.Duration.Microseconds()
	if us < 0 {
		us = 0
	}
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(now)
	r.samples = append(r.samples, sample{
		timestamp: now,
		micros:    us,
		blocks:    p.Blocks,
		reused:    p.Reused,
	})
}

func (r *Recorder) Snapshot() Snapshot {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(now)
	if len(r.samples) == 0 {
		return Snapshot{}
	}

	values := make([]int64, 0, len(r.samples))
	var sum int64
	var snap Snapshot
	for _, sm := range r.samples {
		values = append(values, sm.micros)
		sum += sm.micros
		snap.Blocks += sm.blocks
		snap.Reused += sm.reused
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	snap.Count = len(values)
	snap.MinUs = values[0]
	snap.MaxUs = values[len(values)-1]
	snap.AvgUs = float64(sum) / float64(len(values))
	snap.P50Us = percentile(values, 50)
	snap.P95Us = percentile(values, 95)
	snap.P99Us = percentile(values, 99)
	if snap.Blocks > 0 {
		snap.ReusePct = 100 * float64(snap.Reused) / float64(snap.Blocks)
	}
	return snap
}

func (r *Recorder) pruneLocked(now time.Time) {
	cutoff := now.Add(-r.maxAge)
	writeIdx := 0
	for _, sm := range r.samples {
		if !sm.timestamp.Before(cutoff) {
			r.samples[writeIdx] = sm
			writeIdx++
		}
	}
	r.samples = r.samples[:writeIdx]
}

// percentile interpolates linearly between the two nearest ranks.
func percentile(sorted []int64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sorted[0])
	}
	if pct >= 100 {
		return float64(sorted[len(sorted)-1])
	}

	index := (float64(len(sorted)-1) * pct) / 100.0
	lower := int(index)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	weight := index - float64(lower)
	lo := float64(sorted[lower])
	hi := float64(sorted[lower+1])
	return lo + ((hi - lo) * weight)
}
