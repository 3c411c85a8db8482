// Package arena runs the highlander simulation: a population of combatants,
// one goroutine each, fighting random opponents and trading health while a
// reaper removes the dead.
//
// Every fight moves health between exactly two combatants under both of their
// locks, and the attacker only gains half the damage dealt, so the total
// health of the population shrinks by damage/2 per recorded fight:
//
//	sum(health) == N*H - (M/2)*F
//
// The equation is only meaningful on a quiesced population. Observers call
// Manager.PauseAndWaitAll, read PopulationSnapshot and ScoreboardTotal, and
// then Resume.
package arena

import (
	"errors"

	"github.com/ByteMirror/highlander/config"
)

var (
	// ErrInvalidConfig is returned by Manager.Start for non-positive sizes or
	// an unknown fight mode. No run is created.
	ErrInvalidConfig = errors.New("invalid simulation config")

	// ErrNoOpponent means the live population has nobody to fight. Workers
	// treat it as a skipped iteration.
	ErrNoOpponent = errors.New("no opponent available")
)

// MaxPopulation bounds the population size accepted by Start.
const MaxPopulation = config.MaxCount
