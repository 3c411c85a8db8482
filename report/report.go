// Package report takes invariant checks of a running simulation and renders
// them for people and machines.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ByteMirror/highlander/arena"
	"github.com/ByteMirror/highlander/config"
)

// ErrNoRun is returned when a check is requested before any run was started.
var ErrNoRun = errors.New("no simulation has been started")

// Source is the part of the manager a check needs.
type Source interface {
	PauseAndWaitAll(ctx context.Context) error
	Resume()
	PopulationSnapshot() []arena.CombatantStatus
	ScoreboardTotal() int64
	ExpectedTotalHealth() int64
	Config() (config.Simulation, bool)
	RunID() string
	Strategy() arena.Strategy
}

// Report is the outcome of one invariant check on a quiesced population.
type Report struct {
	RunID         string    `json:"run_id" yaml:"run_id"`
	TakenAt       time.Time `json:"taken_at" yaml:"taken_at"`
	Strategy      string    `json:"strategy" yaml:"strategy"`
	Population    int       `json:"population" yaml:"population"`
	InitialHealth int       `json:"initial_health" yaml:"initial_health"`
	Damage        int       `json:"damage" yaml:"damage"`
	Fights        int64     `json:"fights" yaml:"fights"`
	Expected      int64     `json:"expected_health" yaml:"expected_health"`
	Actual        int64     `json:"actual_health" yaml:"actual_health"`
	Difference    int64     `json:"difference" yaml:"difference"`
	Alive         int       `json:"alive" yaml:"alive"`
	Holds         bool      `json:"holds" yaml:"holds"`

	Combatants []arena.CombatantStatus `json:"combatants,omitempty" yaml:"combatants,omitempty"`
}

// Check pauses the population, waits until every worker is parked and
// compares the health sum with the closed form. The population is left
// paused; the caller decides when to resume.
func Check(ctx context.Context, src Source) (*Report, error) {
	cfg, ok := src.Config()
	if !ok {
		return nil, ErrNoRun
	}
	if err := src.PauseAndWaitAll(ctx); err != nil {
		return nil, fmt.Errorf("pause before check: %w", err)
	}
	return build(src, cfg), nil
}

// CheckAndResume runs Check and resumes the population afterwards, also when
// the barrier wait failed.
func CheckAndResume(ctx context.Context, src Source) (*Report, error) {
	if _, ok := src.Config(); ok {
		defer src.Resume()
	}
	return Check(ctx, src)
}

func build(src Source, cfg config.Simulation) *Report {
	snapshot := src.PopulationSnapshot()
	r := &Report{
		RunID:         src.RunID(),
		TakenAt:       time.Now(),
		Strategy:      src.Strategy().String(),
		Population:    cfg.Count,
		InitialHealth: cfg.InitialHealth,
		Damage:        cfg.Damage,
		Fights:        src.ScoreboardTotal(),
		Expected:      src.ExpectedTotalHealth(),
		Combatants:    snapshot,
	}
	for _, c := range snapshot {
		r.Actual += c.Health
		if c.Alive {
			r.Alive++
		}
	}
	r.Difference = r.Actual - r.Expected
	r.Holds = r.Difference == 0
	return r
}

// Formula spells out the expected total for the report's numbers.
func (r *Report) Formula() string {
	return fmt.Sprintf("%d*%d - (%d/2)*%d = %d",
		r.Population, r.InitialHealth, r.Damage, r.Fights, r.Expected)
}

// Verdict is a one-line summary.
func (r *Report) Verdict() string {
	if r.Holds {
		return fmt.Sprintf("invariant holds: %d == %d", r.Actual, r.Expected)
	}
	return fmt.Sprintf("invariant violated: actual %d, expected %d (diff %+d)", r.Actual, r.Expected, r.Difference)
}

// Summary drops the per-combatant rows.
func (r *Report) Summary() *Report {
	s := *r
	s.Combatants = nil
	return &s
}
