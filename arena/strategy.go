package arena

import (
	"fmt"
	"strings"

	"github.com/ByteMirror/highlander/config"
)

// Strategy selects how a fight acquires the two combatants' locks.
type Strategy int

const (
	// StrategyOrdered locks the pair in a global order by combatant id. No
	// cycle of waiting fights can form, so it never deadlocks.
	StrategyOrdered Strategy = iota
	// StrategyNaive locks attacker then opponent with a bounded wait each and
	// gives up on timeout. Opposite pairs contend and fights get lost.
	StrategyNaive
)

func (s Strategy) String() string {
	switch s {
	case StrategyOrdered:
		return config.FightModeOrdered
	case StrategyNaive:
		return config.FightModeNaive
	default:
		return "unknown"
	}
}

// ParseStrategy maps a fight mode name to a Strategy. The empty string means
// ordered.
func ParseStrategy(mode string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", config.FightModeOrdered:
		return StrategyOrdered, nil
	case config.FightModeNaive:
		return StrategyNaive, nil
	default:
		return 0, fmt.Errorf("%w: unknown fight mode %q", ErrInvalidConfig, mode)
	}
}

// FightOutcome is the result of one fight attempt.
type FightOutcome int

const (
	// OutcomeFought means health moved and the fight was recorded.
	OutcomeFought FightOutcome = iota
	// OutcomeSkipped means a party was already dead (or the pair was
	// degenerate); nothing changed.
	OutcomeSkipped
	// OutcomeLockTimeout means the naive strategy could not get both locks.
	OutcomeLockTimeout
	// OutcomeCancelled means lock acquisition was interrupted.
	OutcomeCancelled
)

func (o FightOutcome) String() string {
	switch o {
	case OutcomeFought:
		return "fought"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeLockTimeout:
		return "lock timeout"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}
