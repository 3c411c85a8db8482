package arena

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ByteMirror/highlander/concurrency"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCombatants(n int, health, damage int64, strategy Strategy, sb *ScoreBoard) []*Combatant {
	members := make([]*Combatant, n)
	for i := range members {
		members[i] = NewCombatant(fmt.Sprintf("Immortal-%d", i), i, health, damage, strategy, 20*time.Millisecond, sb)
	}
	return members
}

func sumHealth(members []*Combatant) int64 {
	var sum int64
	for _, c := range members {
		sum += c.Health()
	}
	return sum
}

func TestFightTransfersHealth(t *testing.T) {
	for _, strategy := range []Strategy{StrategyOrdered, StrategyNaive} {
		t.Run(strategy.String(), func(t *testing.T) {
			sb := &ScoreBoard{}
			members := newTestCombatants(2, 100, 10, strategy, sb)

			outcome, err := members[0].Fight(context.Background(), members[1])
			require.NoError(t, err)
			assert.Equal(t, OutcomeFought, outcome)
			assert.Equal(t, int64(105), members[0].Health())
			assert.Equal(t, int64(90), members[1].Health())
			assert.Equal(t, int64(1), sb.TotalFights())
			assert.False(t, members[0].mu.Locked())
			assert.False(t, members[1].mu.Locked())
		})
	}
}

func TestFightWithDeadPartyIsNoOp(t *testing.T) {
	sb := &ScoreBoard{}
	members := newTestCombatants(2, 100, 10, StrategyOrdered, sb)
	members[1].health.Store(0)

	outcome, err := members[0].Fight(context.Background(), members[1])
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.Equal(t, int64(100), members[0].Health())
	assert.Equal(t, int64(0), members[1].Health())
	assert.Zero(t, sb.TotalFights())

	outcome, err = members[1].Fight(context.Background(), members[0])
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.Zero(t, sb.TotalFights())
}

func TestFightAgainstSelfIsSkipped(t *testing.T) {
	sb := &ScoreBoard{}
	c := newTestCombatants(1, 100, 10, StrategyOrdered, sb)[0]

	outcome, err := c.Fight(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)

	outcome, err = c.Fight(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.Zero(t, sb.TotalFights())
}

func TestNaiveTimeoutReleasesOnlyHeldLocks(t *testing.T) {
	sb := &ScoreBoard{}
	members := newTestCombatants(2, 100, 10, StrategyNaive, sb)
	attacker, opponent := members[0], members[1]

	require.True(t, opponent.mu.TryLock())

	outcome, err := attacker.Fight(context.Background(), opponent)
	require.NoError(t, err)
	assert.Equal(t, OutcomeLockTimeout, outcome)
	assert.False(t, attacker.mu.Locked(), "attacker lock must be released")
	assert.True(t, opponent.mu.Locked(), "lock held by someone else must stay held")
	assert.Equal(t, int64(100), attacker.Health())
	assert.Equal(t, int64(100), opponent.Health())
	assert.Zero(t, sb.TotalFights())

	opponent.mu.Unlock()
}

func TestNaiveTimeoutOnOwnLock(t *testing.T) {
	sb := &ScoreBoard{}
	members := newTestCombatants(2, 100, 10, StrategyNaive, sb)
	attacker, opponent := members[0], members[1]

	require.True(t, attacker.mu.TryLock())

	outcome, err := attacker.Fight(context.Background(), opponent)
	require.NoError(t, err)
	assert.Equal(t, OutcomeLockTimeout, outcome)
	assert.False(t, opponent.mu.Locked())
	assert.Zero(t, sb.TotalFights())

	attacker.mu.Unlock()
}

func TestNaiveCancelledWhileWaiting(t *testing.T) {
	sb := &ScoreBoard{}
	members := newTestCombatants(2, 100, 10, StrategyNaive, sb)
	members[0].lockTimeout = time.Minute
	require.True(t, members[1].mu.TryLock())
	defer members[1].mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	outcome, err := members[0].Fight(ctx, members[1])
	assert.Equal(t, OutcomeCancelled, outcome)
	assert.ErrorIs(t, err, concurrency.ErrCancelled)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, members[0].mu.Locked())
}

func TestOrderedCancelledWhileWaiting(t *testing.T) {
	sb := &ScoreBoard{}
	members := newTestCombatants(2, 100, 10, StrategyOrdered, sb)
	require.True(t, members[1].mu.TryLock())
	defer members[1].mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	outcome, err := members[0].Fight(ctx, members[1])
	assert.Equal(t, OutcomeCancelled, outcome)
	assert.ErrorIs(t, err, concurrency.ErrCancelled)
	assert.False(t, members[0].mu.Locked(), "first lock must be released on cancellation")
	assert.Equal(t, int64(100), members[0].Health())
}

func TestOrderedLockOrder(t *testing.T) {
	sb := &ScoreBoard{}
	a := NewCombatant("Immortal-1", 1, 100, 10, StrategyOrdered, 0, sb)
	b := NewCombatant("Immortal-10", 10, 100, 10, StrategyOrdered, 0, sb)
	twin := NewCombatant("Immortal-1", 2, 100, 10, StrategyOrdered, 0, sb)

	assert.True(t, a.before(b), "string order puts Immortal-1 before Immortal-10")
	assert.False(t, b.before(a))
	assert.True(t, a.before(twin), "seq breaks ties between equal ids")
	assert.False(t, twin.before(a))
}

// Opposing pairs contending for the same two locks in both directions must
// all finish under the ordered strategy.
func TestOrderedOpposingFightsDoNotDeadlock(t *testing.T) {
	sb := &ScoreBoard{}
	members := newTestCombatants(3, 1_000_000, 2, StrategyOrdered, sb)

	const rounds = 2000
	var wg sync.WaitGroup
	for i := range members {
		for j := range members {
			if i == j {
				continue
			}
			wg.Add(1)
			go func(attacker, opponent *Combatant) {
				defer wg.Done()
				for k := 0; k < rounds; k++ {
					_, err := attacker.Fight(context.Background(), opponent)
					if !assert.NoError(t, err) {
						return
					}
				}
			}(members[i], members[j])
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("ordered fights deadlocked")
	}

	fights := sb.TotalFights()
	assert.Equal(t, int64(6*rounds), fights)
	assert.Equal(t, int64(3*1_000_000)-fights, sumHealth(members))
}

// Four combatants fighting round robin (i attacks i+1) fifty times lose
// exactly 5 health per fight.
func TestRoundRobinScenario(t *testing.T) {
	sb := &ScoreBoard{}
	members := newTestCombatants(4, 100, 10, StrategyOrdered, sb)

	for f := 0; f < 50; f++ {
		attacker := members[f%4]
		opponent := members[(f+1)%4]
		outcome, err := attacker.Fight(context.Background(), opponent)
		require.NoError(t, err)
		require.Equal(t, OutcomeFought, outcome)
	}

	assert.Equal(t, int64(50), sb.TotalFights())
	assert.Equal(t, int64(150), sumHealth(members))
	assert.Equal(t, []int64{45, 35, 30, 40}, []int64{
		members[0].Health(), members[1].Health(), members[2].Health(), members[3].Health(),
	})
}

func TestCombatantAlive(t *testing.T) {
	c := NewCombatant("Immortal-0", 0, 10, 10, StrategyOrdered, 0, &ScoreBoard{})
	assert.True(t, c.Alive())

	c.health.Store(0)
	assert.False(t, c.Alive())

	c.health.Store(10)
	c.Stop()
	assert.False(t, c.Running())
	assert.False(t, c.Alive())
}
