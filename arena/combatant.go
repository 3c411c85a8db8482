package arena

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ByteMirror/highlander/concurrency"
)

// Combatant is one member of the population. Its health is only changed by
// fight transactions holding its lock; reads outside a quiesced barrier are
// best-effort.
type Combatant struct {
	id  string
	seq int

	health atomic.Int64
	damage int64

	running atomic.Bool
	// mu is held only for the duration of a fight transaction.
	mu *concurrency.TimedMutex

	strategy    Strategy
	lockTimeout time.Duration
	scoreBoard  *ScoreBoard
}

// NewCombatant creates a running combatant. seq is its stable index in the
// arena and breaks ties between equal ids.
func NewCombatant(id string, seq int, health, damage int64, strategy Strategy, lockTimeout time.Duration, scoreBoard *ScoreBoard) *Combatant {
	c := &Combatant{
		id:          id,
		seq:         seq,
		damage:      damage,
		mu:          concurrency.NewTimedMutex(),
		strategy:    strategy,
		lockTimeout: lockTimeout,
		scoreBoard:  scoreBoard,
	}
	c.health.Store(health)
	c.running.Store(true)
	return c
}

func (c *Combatant) ID() string         { return c.id }
func (c *Combatant) Seq() int           { return c.seq }
func (c *Combatant) Health() int64      { return c.health.Load() }
func (c *Combatant) Damage() int64      { return c.damage }
func (c *Combatant) Running() bool      { return c.running.Load() }
func (c *Combatant) Strategy() Strategy { return c.strategy }

// Alive reports whether the combatant still has health and has not been stopped.
func (c *Combatant) Alive() bool {
	return c.Health() > 0 && c.Running()
}

// Stop tells the combatant's worker to leave its loop.
func (c *Combatant) Stop() {
	c.running.Store(false)
}

// before reports whether c sorts ahead of other in the global lock order.
func (c *Combatant) before(other *Combatant) bool {
	if c.id != other.id {
		return c.id < other.id
	}
	return c.seq < other.seq
}

// Fight runs one fight transaction of c against opponent using c's strategy.
// The only error is cancellation of a lock wait; lock timeouts and dead
// parties are outcomes, not errors.
func (c *Combatant) Fight(ctx context.Context, opponent *Combatant) (FightOutcome, error) {
	if opponent == nil || opponent == c {
		return OutcomeSkipped, nil
	}
	if c.strategy == StrategyNaive {
		return c.fightNaive(ctx, opponent)
	}
	return c.fightOrdered(ctx, opponent)
}

// fightOrdered takes the lower-ordered lock first, then the other. Every
// transaction uses the same order, so no two fights can each hold the lock
// the other is waiting for.
func (c *Combatant) fightOrdered(ctx context.Context, opponent *Combatant) (FightOutcome, error) {
	first, second := c, opponent
	if opponent.before(c) {
		first, second = opponent, c
	}

	if err := first.mu.Lock(ctx); err != nil {
		return OutcomeCancelled, err
	}
	defer first.mu.Unlock()

	if err := second.mu.Lock(ctx); err != nil {
		return OutcomeCancelled, err
	}
	defer second.mu.Unlock()

	return c.exchange(opponent), nil
}

// fightNaive locks attacker then opponent regardless of any global order,
// waiting at most lockTimeout for each. Only locks actually acquired are
// released.
func (c *Combatant) fightNaive(ctx context.Context, opponent *Combatant) (FightOutcome, error) {
	if !c.mu.TryLockFor(ctx, c.lockTimeout) {
		return c.missed(ctx)
	}
	defer c.mu.Unlock()

	if !opponent.mu.TryLockFor(ctx, c.lockTimeout) {
		return c.missed(ctx)
	}
	defer opponent.mu.Unlock()

	return c.exchange(opponent), nil
}

func (c *Combatant) missed(ctx context.Context) (FightOutcome, error) {
	if err := ctx.Err(); err != nil {
		return OutcomeCancelled, fmt.Errorf("%w: %w", concurrency.ErrCancelled, err)
	}
	return OutcomeLockTimeout, nil
}

// exchange moves health between the pair. Both locks must be held.
func (c *Combatant) exchange(opponent *Combatant) FightOutcome {
	if c.health.Load() <= 0 || opponent.health.Load() <= 0 {
		return OutcomeSkipped
	}

	opponent.health.Add(-c.damage)
	c.health.Add(c.damage / 2)
	c.scoreBoard.RecordFight()
	return OutcomeFought
}
