package completion

import (
	"context"
	"math"
	"slices"
	"sort"
	"sync"
	"time"
)

type sample struct {
	timestamp  time.Time
	durationMs int64
	failed     bool
}

// StatsSnapshot is a point-in-time aggregate of completion latency samples.
type StatsSnapshot struct {
	Count    int     `json:"count"`
	Failures int     `json:"failures"`
	MinMs    int64   `json:"min_ms"`
	MaxMs    int64   `json:"max_ms"`
	AvgMs    float64 `json:"avg_ms"`
	P50Ms    float64 `json:"p50_ms"`
	P95Ms    float64 `json:"p95_ms"`
	P99Ms    float64 `json:"p99_ms"`
}

// Stats tracks recent completion call latencies within a rolling window.
type Stats struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
	now     func() time.Time
}

func NewStats(maxAge time.Duration) *Stats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Stats{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Record adds one call outcome.
func (s *Stats) Record(d time.Duration, failed bool) {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)
	s.samples = append(s.samples, sample{
		timestamp:  now,
		durationMs: ms,
		failed:     failed,
	})
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	s.pruneLocked(s.now())
	window := make([]sample, len(s.samples))
	copy(window, s.samples)
	s.mu.Unlock()

	return summarize(window)
}

// pruneLocked drops samples older than maxAge. Samples arrive in time
// order, so the expired ones form a prefix.
func (s *Stats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	keep := sort.Search(len(s.samples), func(i int) bool {
		return !s.samples[i].timestamp.Before(cutoff)
	})
	if keep == 0 {
		return
	}
	n := copy(s.samples, s.samples[keep:])
	s.samples = s.samples[:n]
}

func summarize(window []sample) StatsSnapshot {
	if len(window) == 0 {
		return StatsSnapshot{}
	}
	snap := StatsSnapshot{Count: len(window)}
	ms := make([]int64, len(window))
	var total int64
	for i, sm := range window {
		ms[i] = sm.durationMs
		total += sm.durationMs
		if sm.failed {
			snap.Failures++
		}
	}
	slices.Sort(ms)

	snap.MinMs, snap.MaxMs = ms[0], ms[len(ms)-1]
	snap.AvgMs = float64(total) / float64(len(ms))
	snap.P50Ms = nearestRank(ms, 0.50)
	snap.P95Ms = nearestRank(ms, 0.95)
	snap.P99Ms = nearestRank(ms, 0.99)
	return snap
}

// nearestRank returns the smallest observed value with at least q of the
// sorted sample at or below it.
func nearestRank(sorted []int64, q float64) float64 {
	rank := int(math.Ceil(q * float64(len(sorted))))
	rank = max(1, min(rank, len(sorted)))
	return float64(sorted[rank-1])
}

// Timed wraps a Completer and records every call into Stats.
type Timed struct {
	next  Completer
	stats *Stats
}

func NewTimed(next Completer, stats *Stats) *Timed {
	return &Timed{next: next, stats: stats}
}

func (t *Timed) Complete(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	text, err := t.next.Complete(ctx, req)
	t.stats.Record(time.Since(start), err != nil)
	return text, err
}
