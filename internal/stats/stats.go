// Package stats keeps rolling latency and failure counts for conversion
// operations (parse, serialize, split, store) so /api/stats can report them.
package stats

import (
	"sort"
	"sync"
	"time"
)

type sample struct {
	at     time.Time
	took   time.Duration
	failed bool
}

// Snapshot aggregates the samples of one operation inside the window.
type Snapshot struct {
	Count  int     `json:"count"`
	Errors int     `json:"errors"`
	MinMs  float64 `json:"min_ms"`
	MaxMs  float64 `json:"max_ms"`
	AvgMs  float64 `json:"avg_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
	P99Ms  float64 `json:"p99_ms"`
}

// Recorder tracks per-operation samples within a rolling window.
type Recorder struct {
	mu     sync.Mutex
	window time.Duration
	ops    map[string][]sample
	now    func() time.Time
}

func NewRecorder(window time.Duration) *Recorder {
	if window <= 0 {
		window = time.Hour
	}
	return &Recorder{
		window: window,
		ops:    make(map[string][]sample),
		now:    time.Now,
	}
}

// Record adds one sample for op. Negative durations count as zero.
func (r *Recorder) Record(op string, took time.Duration, err error) {
	if took < 0 {
		took = 0
	}
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.ops[op] = append(prune(r.ops[op], now.Add(-r.window)), sample{
		at:     now,
		took:   took,
		failed: err != nil,
	})
}

// Time runs fn and records its duration and outcome under op.
func (r *Recorder) Time(op string, fn func() error) error {
	start := r.now()
	err := fn()
	r.Record(op, r.now().Sub(start), err)
	return err
}

// Snapshot returns the aggregate for every operation with samples in the
// window.
func (r *Recorder) Snapshot() map[string]Snapshot {
	cutoff := r.now().Add(-r.window)

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Snapshot, len(r.ops))
	for op, samples := range r.ops {
		samples = prune(samples, cutoff)
		if len(samples) == 0 {
			delete(r.ops, op)
			continue
		}
		r.ops[op] = samples
		out[op] = aggregate(samples)
	}
	return out
}

func prune(samples []sample, cutoff time.Time) []sample {
	kept := samples[:0]
	for _, s := range samples {
		if !s.at.Before(cutoff) {
			kept = append(kept, s)
		}
	}
	return kept
}

func aggregate(samples []sample) Snapshot {
	values := make([]float64, 0, len(samples))
	var sum float64
	errs := 0
	for _, s := range samples {
		ms := float64(s.took) / float64(time.Millisecond)
		values = append(values, ms)
		sum += ms
		if s.failed {
			errs++
		}
	}
	sort.Float64s(values)

	return Snapshot{
		Count:  len(values),
		Errors: errs,
		MinMs:  values[0],
		MaxMs:  values[len(values)-1],
		AvgMs:  sum / float64(len(values)),
		P50Ms:  percentile(values, 50),
		P95Ms:  percentile(values, 95),
		P99Ms:  percentile(values, 99),
	}
}

// percentile interpolates linearly between the two nearest ranks.
func percentile(sorted []float64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return sorted[0]
	case pct >= 100:
		return sorted[len(sorted)-1]
	}
	index := float64(len(sorted)-1) * pct / 100
	lower := int(index)
	if lower+1 >= len(sorted) {
		return sorted[lower]
	}
	weight := index - float64(lower)
	return sorted[lower] + (sorted[lower+1]-sorted[lower])*weight
}
