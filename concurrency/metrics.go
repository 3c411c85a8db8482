package concurrency

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// maxSamples caps the reservoir a Histogram keeps for percentiles. Older
// samples are overwritten; count, sum, min and max still cover every
// observation.
const maxSamples = 1024

// Counter is a monotonically increasing metric
type Counter struct {
	value atomic.Uint64
	name  string
}

func NewCounter(name string) *Counter {
	return &Counter{name: name}
}

func (c *Counter) Inc() {
	c.value.Add(1)
}

func (c *Counter) Add(delta uint64) {
	c.value.Add(delta)
}

func (c *Counter) Get() uint64 {
	return c.value.Load()
}

func (c *Counter) Name() string {
	return c.name
}

// Histogram tracks the distribution of values
type Histogram struct {
	mu      sync.RWMutex
	name    string
	samples []float64
	next    int
	count   uint64
	sum     float64
	min     float64
	max     float64
}

func NewHistogram(name string) *Histogram {
	return &Histogram{
		name:    name,
		samples: make([]float64, 0, maxSamples),
		min:     math.MaxFloat64,
	}
}

// Observe records a new observation
func (h *Histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) < maxSamples {
		h.samples = append(h.samples, value)
	} else {
		h.samples[h.next] = value
		h.next = (h.next + 1) % maxSamples
	}
	h.count++
	h.sum += value
	h.min = math.Min(h.min, value)
	h.max = math.Max(h.max, value)
}

func (h *Histogram) Count() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *Histogram) Mean() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.count == 0 {
		return 0
	}
	return h.sum / float64(h.count)
}

func (h *Histogram) Min() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.count == 0 {
		return 0
	}
	return h.min
}

func (h *Histogram) Max() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.max
}

// Percentile returns the value at the given percentile (0-100) of the
// retained samples.
func (h *Histogram) Percentile(p float64) float64 {
	h.mu.RLock()
	sorted := make([]float64, len(h.samples))
	copy(sorted, h.samples)
	h.mu.RUnlock()

	if len(sorted) == 0 {
		return 0
	}
	sort.Float64s(sorted)

	index := int(float64(len(sorted)) * p / 100.0)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

func (h *Histogram) Name() string {
	return h.name
}

// Timer measures durations and provides timing statistics
type Timer struct {
	histogram *Histogram
}

func NewTimer(name string) *Timer {
	return &Timer{histogram: NewHistogram(name)}
}

func (t *Timer) Record(duration time.Duration) {
	t.histogram.Observe(duration.Seconds())
}

// Time returns a function that when called, records the elapsed time
func (t *Timer) Time() func() {
	start := time.Now()
	return func() {
		t.Record(time.Since(start))
	}
}

func (t *Timer) Count() uint64 {
	return t.histogram.Count()
}

func (t *Timer) Mean() time.Duration {
	return seconds(t.histogram.Mean())
}

func (t *Timer) Min() time.Duration {
	return seconds(t.histogram.Min())
}

func (t *Timer) Max() time.Duration {
	return seconds(t.histogram.Max())
}

func (t *Timer) Percentile(p float64) time.Duration {
	return seconds(t.histogram.Percentile(p))
}

func (t *Timer) Name() string {
	return t.histogram.Name()
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// RollingWindow counts events over a sliding time window split into buckets.
type RollingWindow struct {
	mu       sync.Mutex
	name     string
	window   time.Duration
	buckets  []bucketData
	current  int
	lastTick time.Time
	now      func() time.Time
}

type bucketData struct {
	timestamp time.Time
	count     uint64
	sum       float64
}

// NewRollingWindow creates a new rolling window with the given duration and bucket count
func NewRollingWindow(name string, window time.Duration, buckets int) *RollingWindow {
	if buckets <= 0 {
		buckets = 60
	}
	rw := &RollingWindow{
		name:    name,
		window:  window,
		buckets: make([]bucketData, buckets),
		now:     time.Now,
	}
	rw.lastTick = rw.now()
	return rw
}

// Add records a value in the current bucket
func (rw *RollingWindow) Add(value float64) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	now := rw.now()
	rw.rotate(now)

	rw.buckets[rw.current].timestamp = now
	rw.buckets[rw.current].count++
	rw.buckets[rw.current].sum += value
}

func (rw *RollingWindow) Inc() {
	rw.Add(1.0)
}

// rotate advances the window if necessary. Callers hold mu.
func (rw *RollingWindow) rotate(now time.Time) {
	bucketDuration := rw.window / time.Duration(len(rw.buckets))
	elapsed := now.Sub(rw.lastTick)
	if elapsed < bucketDuration {
		return
	}

	bucketsToRotate := int(elapsed / bucketDuration)
	if bucketsToRotate >= len(rw.buckets) {
		for i := range rw.buckets {
			rw.buckets[i] = bucketData{}
		}
	} else {
		for i := 0; i < bucketsToRotate; i++ {
			rw.current = (rw.current + 1) % len(rw.buckets)
			rw.buckets[rw.current] = bucketData{}
		}
	}
	rw.lastTick = rw.lastTick.Add(time.Duration(bucketsToRotate) * bucketDuration)
}

// Count returns the count of all values in the window
func (rw *RollingWindow) Count() uint64 {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	now := rw.now()
	rw.rotate(now)

	var count uint64
	cutoff := now.Add(-rw.window)
	for _, bucket := range rw.buckets {
		if bucket.timestamp.After(cutoff) {
			count += bucket.count
		}
	}
	return count
}

// Rate returns the average rate per second over the window
func (rw *RollingWindow) Rate() float64 {
	return float64(rw.Count()) / rw.window.Seconds()
}

func (rw *RollingWindow) Name() string {
	return rw.name
}
