package arena

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ByteMirror/highlander/concurrency"
	"github.com/ByteMirror/highlander/config"
	"github.com/ByteMirror/highlander/log"
	"github.com/google/uuid"
)

// CombatantStatus is an immutable view of one combatant.
type CombatantStatus struct {
	ID     string `json:"id" yaml:"id"`
	Health int64  `json:"health" yaml:"health"`
	Alive  bool   `json:"alive" yaml:"alive"`
}

// run is everything one Start call creates. A stopped run stays readable
// until the next Start replaces it.
type run struct {
	id         string
	cfg        config.Simulation
	strategy   Strategy
	controller *concurrency.PauseController
	scoreBoard *ScoreBoard
	population *Population
	group      *concurrency.TaskGroup
	metrics    *runMetrics
	startedAt  time.Time

	stopping atomic.Bool
	stopOnce sync.Once
	stopErr  error
}

// Manager owns the population of a simulation run and its workers.
type Manager struct {
	// mu serializes Start and Stop.
	mu      sync.Mutex
	current atomic.Pointer[run]

	removalLog *log.Every
}

// NewManager returns a manager with no run.
func NewManager() *Manager {
	return &Manager{removalLog: log.NewEvery(time.Second)}
}

// Start validates cfg, stops any previous run and launches a new one: one
// fighter task per combatant and one reaper task. Tasks run under ctx, so ctx
// must outlive the run; cancelling it is a forced stop.
func (m *Manager) Start(ctx context.Context, cfg config.Simulation) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	strategy, err := ParseStrategy(cfg.FightMode)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if prev := m.current.Load(); prev != nil {
		if err := m.stopRun(prev); err != nil {
			log.WarningLog.Printf("run %s: stop before restart: %v", prev.id, err)
		}
	}

	r := newRun(ctx, cfg, strategy)
	m.current.Store(r)

	for _, c := range r.population.All() {
		// Registered before the goroutine exists so a pause issued right
		// after Start already waits for it.
		r.controller.Register()
		if _, err := r.group.Go(c.ID(), r.fighter(c)); err != nil {
			r.controller.Unregister()
			return fmt.Errorf("failed to launch %s: %w", c.ID(), err)
		}
	}
	r.controller.Register()
	if _, err := r.group.Go("reaper", r.reaper(m.removalLog)); err != nil {
		r.controller.Unregister()
		return fmt.Errorf("failed to launch reaper: %w", err)
	}

	log.InfoLog.Printf("run %s started: %d combatants, health %d, damage %d, %s fights",
		r.id, cfg.Count, cfg.InitialHealth, cfg.Damage, strategy)
	if cfg.Damage%2 != 0 {
		// Each fight loses damage-damage/2, so the closed form drifts by F.
		log.WarningLog.Printf("run %s: odd damage %d, expected health is exact only for even damage", r.id, cfg.Damage)
	}
	return nil
}

func newRun(ctx context.Context, cfg config.Simulation, strategy Strategy) *run {
	r := &run{
		id:         uuid.NewString(),
		cfg:        cfg,
		strategy:   strategy,
		controller: concurrency.NewPauseController(),
		scoreBoard: &ScoreBoard{},
		metrics:    newRunMetrics(),
		startedAt:  time.Now(),
	}

	members := make([]*Combatant, cfg.Count)
	for i := range members {
		members[i] = NewCombatant(fmt.Sprintf("Immortal-%d", i), i,
			int64(cfg.InitialHealth), int64(cfg.Damage),
			strategy, cfg.NaiveLockTimeout(), r.scoreBoard)
	}
	r.population = NewPopulation(members)
	r.group = concurrency.NewTaskGroup(ctx, "arena-"+r.id[:8])
	return r
}

// fighter is the worker loop of one combatant: checkpoint, pick an opponent,
// fight, yield, until the combatant is stopped.
func (r *run) fighter(c *Combatant) concurrency.TaskFunc {
	return func(ctx context.Context) error {
		defer r.controller.Unregister()

		for c.Running() {
			if err := r.controller.AwaitIfPaused(ctx); err != nil {
				return err
			}
			if !c.Running() {
				return nil
			}

			if opponent, err := r.population.PickOpponent(c); err == nil {
				outcome, err := c.Fight(ctx, opponent)
				if err != nil {
					return fmt.Errorf("%s: %w", c.ID(), err)
				}
				r.metrics.record(outcome)
				if log.IsDebugEnabled() {
					log.DebugLog.Printf("run %s: %s vs %s: %s", r.id, c.ID(), opponent.ID(), outcome)
				}
			}

			if err := concurrency.Sleep(ctx, r.cfg.Yield()); err != nil {
				return fmt.Errorf("%w: %w", concurrency.ErrCancelled, err)
			}
		}
		return nil
	}
}

// reaper removes and stops dead combatants until the run's tasks are shut
// down. It never scans while the gate is closed, so a quiesced population
// keeps its membership.
func (r *run) reaper(every *log.Every) concurrency.TaskFunc {
	return func(ctx context.Context) error {
		defer r.controller.Unregister()

		for !r.group.ShuttingDown() {
			if err := r.controller.AwaitIfPaused(ctx); err != nil {
				return err
			}
			if r.group.ShuttingDown() {
				return nil
			}

			if !r.controller.Paused() {
				r.reap(every)
			}

			if err := concurrency.Sleep(ctx, r.cfg.Yield()); err != nil {
				return fmt.Errorf("%w: %w", concurrency.ErrCancelled, err)
			}
		}
		return nil
	}
}

func (r *run) reap(every *log.Every) {
	for _, c := range r.population.Live() {
		if c.Health() > 0 {
			continue
		}
		if r.population.Remove(c) {
			c.Stop()
			if every.ShouldLog() {
				log.InfoLog.Printf("run %s: %s fell with health %d, %d left",
					r.id, c.ID(), c.Health(), r.population.Len())
			}
		}
	}
}

// Stop ends the current run. It signals every worker, releases any that are
// parked, and waits for them up to the configured grace period before
// cancelling. It is idempotent and safe without a run.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.current.Load()
	if r == nil {
		return nil
	}
	return m.stopRun(r)
}

func (m *Manager) stopRun(r *run) error {
	r.stopOnce.Do(func() {
		r.stopping.Store(true)
		for _, c := range r.population.All() {
			c.Stop()
		}
		// Parked workers see running=false as soon as they leave the
		// checkpoint, so no fight happens after this resume.
		r.controller.Resume()

		r.stopErr = r.group.Shutdown(r.cfg.StopGrace())
		if r.stopErr != nil {
			log.WarningLog.Printf("run %s stopped with errors: %v", r.id, r.stopErr)
		}
		log.InfoLog.Printf("run %s stopped after %v: %d fights, %d alive, %s",
			r.id, time.Since(r.startedAt).Round(time.Millisecond),
			r.scoreBoard.TotalFights(), r.aliveCount(), r.group.Metrics())
	})
	return r.stopErr
}

// Close stops the current run.
func (m *Manager) Close() error {
	return m.Stop()
}

// Pause closes the gate without waiting for workers to park.
func (m *Manager) Pause() {
	if r := m.current.Load(); r != nil {
		r.controller.RequestPause()
	}
}

// PauseAndWaitAll closes the gate and blocks until every worker of the run is
// parked. Without a run there is nothing to wait for.
func (m *Manager) PauseAndWaitAll(ctx context.Context) error {
	r := m.current.Load()
	if r == nil {
		return nil
	}
	done := r.metrics.barrier.Time()
	if err := r.controller.PauseAndWaitAll(ctx); err != nil {
		return err
	}
	done()
	return nil
}

// Metrics returns the fight rate, lock timeouts and barrier latency of the
// current run.
func (m *Manager) Metrics() Metrics {
	r := m.current.Load()
	if r == nil {
		return Metrics{}
	}
	return r.metrics.snapshot()
}

// Resume opens the gate and releases parked workers.
func (m *Manager) Resume() {
	if r := m.current.Load(); r != nil {
		r.controller.Resume()
	}
}

// Paused reports whether the gate of the current run is closed.
func (m *Manager) Paused() bool {
	r := m.current.Load()
	return r != nil && r.controller.Paused()
}

// State reports the gate state of the current run.
func (m *Manager) State() concurrency.PauseState {
	r := m.current.Load()
	if r == nil {
		return concurrency.StateRunning
	}
	return r.controller.State()
}

// Counts returns the registered and parked worker counts of the current run.
func (m *Manager) Counts() (active, parked int) {
	r := m.current.Load()
	if r == nil {
		return 0, 0
	}
	return r.controller.Counts()
}

// PopulationSnapshot returns every combatant of the run in arena order, dead
// ones included. It is only consistent after PauseAndWaitAll.
func (m *Manager) PopulationSnapshot() []CombatantStatus {
	r := m.current.Load()
	if r == nil {
		return nil
	}

	all := r.population.All()
	snapshot := make([]CombatantStatus, len(all))
	for i, c := range all {
		snapshot[i] = CombatantStatus{ID: c.ID(), Health: c.Health(), Alive: c.Alive()}
	}
	return snapshot
}

// ScoreboardTotal returns the number of recorded fights.
func (m *Manager) ScoreboardTotal() int64 {
	r := m.current.Load()
	if r == nil {
		return 0
	}
	return r.scoreBoard.TotalFights()
}

// ExpectedTotalHealth returns N*H - (M/2)*F with integer division of M.
func (m *Manager) ExpectedTotalHealth() int64 {
	r := m.current.Load()
	if r == nil {
		return 0
	}
	return ExpectedHealth(r.cfg, r.scoreBoard.TotalFights())
}

// ExpectedHealth evaluates the invariant for cfg after fights fights.
func ExpectedHealth(cfg config.Simulation, fights int64) int64 {
	initial := int64(cfg.Count) * int64(cfg.InitialHealth)
	return initial - int64(cfg.Damage/2)*fights
}

// TotalHealth sums the health of every combatant of the run.
func (m *Manager) TotalHealth() int64 {
	r := m.current.Load()
	if r == nil {
		return 0
	}
	var sum int64
	for _, c := range r.population.All() {
		sum += c.Health()
	}
	return sum
}

// AliveCount returns how many combatants still have health and are running.
func (m *Manager) AliveCount() int {
	r := m.current.Load()
	if r == nil {
		return 0
	}
	return r.aliveCount()
}

func (r *run) aliveCount() int {
	n := 0
	for _, c := range r.population.All() {
		if c.Alive() {
			n++
		}
	}
	return n
}

// Config returns the parameters of the current run.
func (m *Manager) Config() (config.Simulation, bool) {
	r := m.current.Load()
	if r == nil {
		return config.Simulation{}, false
	}
	return r.cfg, true
}

// Running reports whether a run is active and has not been stopped.
func (m *Manager) Running() bool {
	r := m.current.Load()
	return r != nil && !r.stopping.Load()
}

// RunID returns the id of the current run, or "" before the first Start.
func (m *Manager) RunID() string {
	if r := m.current.Load(); r != nil {
		return r.id
	}
	return ""
}

// WorkerStatus is the lifecycle view of one task of a run.
type WorkerStatus struct {
	Name    string        `json:"name" yaml:"name"`
	Status  string        `json:"status" yaml:"status"`
	Runtime time.Duration `json:"runtime_ns" yaml:"runtime"`
	Error   string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Workers lists the fighter and reaper tasks of the current run in start
// order.
func (m *Manager) Workers() []WorkerStatus {
	r := m.current.Load()
	if r == nil {
		return nil
	}

	tasks := r.group.Tasks()
	workers := make([]WorkerStatus, len(tasks))
	for i, task := range tasks {
		workers[i] = WorkerStatus{
			Name:    task.Name(),
			Status:  task.Status().String(),
			Runtime: task.Runtime(),
		}
		if err := task.Err(); err != nil {
			workers[i].Error = err.Error()
		}
	}
	return workers
}

// Strategy returns the fight strategy of the current run.
func (m *Manager) Strategy() Strategy {
	if r := m.current.Load(); r != nil {
		return r.strategy
	}
	return StrategyOrdered
}
