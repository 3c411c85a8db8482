package arena

import (
	"time"

	"github.com/ByteMirror/highlander/concurrency"
)

const (
	rateWindow  = 5 * time.Second
	rateBuckets = 50
)

// Metrics is a point-in-time view of a run's counters.
type Metrics struct {
	FightsPerSecond float64       `json:"fights_per_second" yaml:"fights_per_second"`
	LockTimeouts    uint64        `json:"lock_timeouts" yaml:"lock_timeouts"`
	Barriers        uint64        `json:"barriers" yaml:"barriers"`
	BarrierMin      time.Duration `json:"barrier_min_ns" yaml:"barrier_min"`
	BarrierMean     time.Duration `json:"barrier_mean_ns" yaml:"barrier_mean"`
	BarrierP95      time.Duration `json:"barrier_p95_ns" yaml:"barrier_p95"`
	BarrierMax      time.Duration `json:"barrier_max_ns" yaml:"barrier_max"`
}

type runMetrics struct {
	fights       *concurrency.RollingWindow
	lockTimeouts *concurrency.Counter
	barrier      *concurrency.Timer
}

func newRunMetrics() *runMetrics {
	return &runMetrics{
		fights:       concurrency.NewRollingWindow("fights", rateWindow, rateBuckets),
		lockTimeouts: concurrency.NewCounter("lock_timeouts"),
		barrier:      concurrency.NewTimer("barrier"),
	}
}

func (m *runMetrics) record(outcome FightOutcome) {
	switch outcome {
	case OutcomeFought:
		m.fights.Inc()
	case OutcomeLockTimeout:
		m.lockTimeouts.Inc()
	}
}

func (m *runMetrics) snapshot() Metrics {
	return Metrics{
		FightsPerSecond: m.fights.Rate(),
		LockTimeouts:    m.lockTimeouts.Get(),
		Barriers:        m.barrier.Count(),
		BarrierMin:      m.barrier.Min(),
		BarrierMean:     m.barrier.Mean(),
		BarrierP95:      m.barrier.Percentile(95),
		BarrierMax:      m.barrier.Max(),
	}
}
