// Package metrics collects per-session transfer metrics: outcome counters
// and a latency histogram suitable for percentile reporting.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/google/uuid"
)

// Recorder aggregates transfer outcomes for one session.
type Recorder struct {
	total     atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64

	mu sync.Mutex
	// Latency histogram in microseconds for precision.
	histogram *hdrhistogram.Histogram
	perHandle map[uuid.UUID]int64
}

// Snapshot is a point-in-time view of a recorder.
type Snapshot struct {
	Total     int64
	Succeeded int64
	Failed    int64
	Handles   int

	P50 time.Duration
	P95 time.Duration
	P99 time.Duration
	Max time.Duration
}

// NewRecorder creates an empty recorder covering latencies from 1µs to 60s.
func NewRecorder() *Recorder {
	return &Recorder{
		histogram: hdrhistogram.New(1, 60_000_000, 3),
		perHandle: make(map[uuid.UUID]int64),
	}
}

// Observe records one finished transfer. The handle id lets the recorder
// track how many distinct handles (connection pools) the session touched.
func (r *Recorder) Observe(handleID uuid.UUID, elapsed time.Duration, err error) {
	r.total.Add(1)
	if err != nil {
		r.failed.Add(1)
	} else {
		r.succeeded.Add(1)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.histogram.RecordValue(elapsed.Microseconds())
	r.perHandle[handleID]++
}

// TransfersFor reports how many transfers ran on the given handle.
func (r *Recorder) TransfersFor(handleID uuid.UUID) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.perHandle[handleID]
}

// Snapshot returns the current aggregate view.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		Total:     r.total.Load(),
		Succeeded: r.succeeded.Load(),
		Failed:    r.failed.Load(),
		Handles:   len(r.perHandle),
		P50:       time.Duration(r.histogram.ValueAtQuantile(50)) * time.Microsecond,
		P95:       time.Duration(r.histogram.ValueAtQuantile(95)) * time.Microsecond,
		P99:       time.Duration(r.histogram.ValueAtQuantile(99)) * time.Microsecond,
		Max:       time.Duration(r.histogram.Max()) * time.Microsecond,
	}
}
