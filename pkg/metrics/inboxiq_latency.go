// Package metrics tracks request latencies with percentile summaries.
package metrics

import (
	"sort"
	"sync"
	"time"
)

const defaultWindow = 1000

// LatencyTracker keeps a sliding window of recent samples.
type LatencyTracker struct {
	mu         sync.Mutex
	samples    []int64 // microseconds
	maxSamples int
}

func NewLatencyTracker(windowSize int) *LatencyTracker {
	if windowSize <= 0 {
		windowSize = defaultWindow
	}
	return &LatencyTracker{
		samples:    make([]int64, 0, windowSize),
		maxSamples: windowSize,
	}
}

// Record drops the oldest tenth of the window when it is full.
func (lt *LatencyTracker) Record(d time.Duration) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	if len(lt.samples) >= lt.maxSamples {
		drop := lt.maxSamples / 10
		if drop < 1 {
			drop = 1
		}
		lt.samples = append(lt.samples[:0], lt.samples[drop:]...)
	}
	lt.samples = append(lt.samples, d.Microseconds())
}

// Stats sorts a copy so the window keeps arrival order.
func (lt *LatencyTracker) Stats() LatencyStats {
	lt.mu.Lock()
	sorted := make([]int64, len(lt.samples))
	copy(sorted, lt.samples)
	lt.mu.Unlock()

	n := len(sorted)
	if n == 0 {
		return LatencyStats{}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum int64
	for _, v := range sorted {
		sum += v
	}
	micros := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	percentile := func(p float64) int64 { return sorted[int(float64(n-1)*p)] }

	return LatencyStats{
		Count: n,
		Min:   micros(sorted[0]),
		Max:   micros(sorted[n-1]),
		Avg:   micros(sum / int64(n)),
		P50:   micros(percentile(0.50)),
		P95:   micros(percentile(0.95)),
		P99:   micros(percentile(0.99)),
	}
}

type LatencyStats struct {
	Count int
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
	P50   time.Duration
	P95   time.Duration
	P99   time.Duration
}

// ToMap renders durations as fractional milliseconds.
func (s LatencyStats) ToMap() map[string]any {
	ms := func(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }
	return map[string]any{
		"count":  s.Count,
		"min_ms": ms(s.Min),
		"max_ms": ms(s.Max),
		"avg_ms": ms(s.Avg),
		"p50_ms": ms(s.P50),
		"p95_ms": ms(s.P95),
		"p99_ms": ms(s.P99),
	}
}

// LatencyRegistry holds one tracker per key, created on first use.
type LatencyRegistry struct {
	mu       sync.RWMutex
	trackers map[string]*LatencyTracker
	window   int
}

func NewLatencyRegistry(windowSize int) *LatencyRegistry {
	return &LatencyRegistry{
		trackers: make(map[string]*LatencyTracker),
		window:   windowSize,
	}
}

func (r *LatencyRegistry) Record(key string, d time.Duration) {
	r.mu.RLock()
	tracker, ok := r.trackers[key]
	r.mu.RUnlock()

	if !ok {
		r.mu.Lock()
		if tracker, ok = r.trackers[key]; !ok {
			tracker = NewLatencyTracker(r.window)
			r.trackers[key] = tracker
		}
		r.mu.Unlock()
	}
	tracker.Record(d)
}

func (r *LatencyRegistry) AllStats() map[string]LatencyStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]LatencyStats, len(r.trackers))
	for key, tracker := range r.trackers {
		result[key] = tracker.Stats()
	}
	return result
}
