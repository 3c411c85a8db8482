package arena

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/ByteMirror/highlander/config"
)

// BenchmarkFight measures one uncontended fight per strategy.
func BenchmarkFight(b *testing.B) {
	for _, strategy := range []Strategy{StrategyOrdered, StrategyNaive} {
		b.Run(strategy.String(), func(b *testing.B) {
			members := newTestCombatants(2, 1<<40, 2, strategy, &ScoreBoard{})
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _ = members[i%2].Fight(ctx, members[(i+1)%2])
			}
		})
	}
}

// BenchmarkContendedFights runs fights from GOMAXPROCS goroutines over a
// small population so most of them wait on a lock.
func BenchmarkContendedFights(b *testing.B) {
	members := newTestCombatants(8, 1<<40, 2, StrategyOrdered, &ScoreBoard{})
	p := NewPopulation(members)

	b.SetParallelism(runtime.GOMAXPROCS(0))
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		ctx := context.Background()
		i := 0
		for pb.Next() {
			attacker := members[i%len(members)]
			if opponent, err := p.PickOpponent(attacker); err == nil {
				_, _ = attacker.Fight(ctx, opponent)
			}
			i++
		}
	})
}

// BenchmarkPauseAndWaitAll measures the barrier over a running population.
func BenchmarkPauseAndWaitAll(b *testing.B) {
	m := NewManager()
	cfg := config.Simulation{
		Count:         200,
		InitialHealth: config.MaxHealth,
		Damage:        2,
		FightMode:     config.FightModeOrdered,
		YieldMs:       1,
		StopGraceMs:   2000,
	}
	if err := m.Start(context.Background(), cfg); err != nil {
		b.Fatal(err)
	}
	defer func() { _ = m.Stop() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := m.PauseAndWaitAll(ctx); err != nil {
			b.Fatal(err)
		}
		m.Resume()
	}
	b.ReportMetric(float64(m.Metrics().BarrierMean.Microseconds()), "µs/barrier")
}
