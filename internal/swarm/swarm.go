// Package swarm searches course start times with a constricted particle
// swarm hybridised with a pairwise interchange local search.
//
// Particles encode one real-valued start per course. Every generation each
// particle moves under
//
//	v_next = k*w*(v + c1*r1*(p_personal - x) + c2*r2*(p_global - x))
//
// with k the constriction coefficient for c1 and c2 (see Constriction) and
// fresh uniform r1, r2 per dimension. Particles are processed in order and
// a new global best is visible to the particles that follow it in the same
// generation.
package swarm

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/timetable"
)

// Particle is one member of the swarm.
type Particle struct {
	ID      int
	Pos     []float64
	Vel     []float64
	BestPos []float64
	BestVal int
}

// Generation is reported to observers after initialisation (Index 0) and
// after every completed generation.
type Generation struct {
	Index       int
	BestFitness int
	Improved    bool
}

// Result is the outcome of a run.
type Result struct {
	BestFitness  int
	BestPosition []float64
	// BestSchedule is the schedule that was scored at BestFitness.
	BestSchedule timetable.Schedule
	// History holds the global best after initialisation and after each
	// generation; it never decreases.
	History []int
}

// Option customises a Swarm.
type Option func(*Swarm)

// WithLogger logs generation progress at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Swarm) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver registers a callback invoked once per generation.
func WithObserver(fn func(Generation)) Option {
	return func(s *Swarm) {
		s.observer = fn
	}
}

// Swarm owns particle state for a single run.
type Swarm struct {
	problem *timetable.Problem
	params  Params
	rng     *rand.Rand
	k       float64
	upper   float64

	Pop          []*Particle
	best         []float64
	bestVal      int
	bestSchedule timetable.Schedule
	history      []int
	generation   int

	logger   *zap.Logger
	observer func(Generation)
}

// New validates the inputs and initialises particles uniformly inside
// [0, horizon - shortest duration] with zero velocity.
func New(problem *timetable.Problem, params Params, opts ...Option) (*Swarm, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := problem.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPrecondition, err)
	}
	if params.LocalSearch && len(problem.Courses) < 2 {
		return nil, fmt.Errorf("%w: interchange needs at least 2 courses", ErrPrecondition)
	}

	s := &Swarm{
		problem: problem,
		params:  params,
		rng:     rand.New(rand.NewSource(params.Seed)),
		k:       Constriction(params.Cognitive, params.Social),
		upper:   problem.UpperBound(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	n := len(problem.Courses)
	s.Pop = make([]*Particle, params.Particles)
	for i := range s.Pop {
		pos := make([]float64, n)
		for d := range pos {
			pos[d] = s.upper * s.rng.Float64()
		}
		s.Pop[i] = &Particle{ID: i, Pos: pos, Vel: make([]float64, n)}
	}

	for i, p := range s.Pop {
		schedule := timetable.BuildSchedule(problem, p.Pos)
		p.BestPos = clone(p.Pos)
		p.BestVal = timetable.Fitness(problem, schedule)
		if i == 0 || p.BestVal > s.bestVal {
			s.best = clone(p.Pos)
			s.bestVal = p.BestVal
			s.bestSchedule = schedule
		}
	}
	s.history = append(s.history, s.bestVal)

	s.logger.Debug("swarm initialised",
		zap.Int("particles", params.Particles),
		zap.Int("courses", n),
		zap.Float64("constriction", s.k),
		zap.Int("best_fitness", s.bestVal),
	)
	s.notify(false)
	return s, nil
}

// Step runs one generation over every particle in order.
func (s *Swarm) Step() {
	improved := false
	for _, p := range s.Pop {
		if s.move(p) {
			improved = true
		}
	}
	s.generation++
	s.history = append(s.history, s.bestVal)

	if improved {
		s.logger.Debug("global best improved", zap.Int("generation", s.generation), zap.Int("best_fitness", s.bestVal))
	}
	s.notify(improved)
}

// move updates one particle and reports whether it raised the global best.
func (s *Swarm) move(p *Particle) bool {
	n := len(p.Pos)
	r1 := make([]float64, n)
	for d := range r1 {
		r1[d] = s.rng.Float64()
	}
	r2 := make([]float64, n)
	for d := range r2 {
		r2[d] = s.rng.Float64()
	}

	c1, c2, w := s.params.Cognitive, s.params.Social, s.params.Inertia
	for d := range p.Vel {
		cognitive := c1 * r1[d] * (p.BestPos[d] - p.Pos[d])
		social := c2 * r2[d] * (s.best[d] - p.Pos[d])
		p.Vel[d] = s.k * w * (p.Vel[d] + cognitive + social)
	}
	for d := range p.Pos {
		p.Pos[d] = clamp(p.Pos[d]+p.Vel[d], 0, s.upper)
	}

	schedule := timetable.BuildSchedule(s.problem, p.Pos)
	fitness := timetable.Fitness(s.problem, schedule)
	if s.params.LocalSearch {
		candidate := timetable.Interchange(schedule, s.rng)
		if local := timetable.Fitness(s.problem, candidate); local > fitness {
			schedule = candidate
			fitness = local
			p.Pos = candidate.Positions()
		}
	}

	if fitness <= p.BestVal {
		return false
	}
	p.BestPos = clone(p.Pos)
	p.BestVal = fitness
	if fitness <= s.bestVal {
		return false
	}
	s.best = clone(p.Pos)
	s.bestVal = fitness
	s.bestSchedule = schedule
	return true
}

func (s *Swarm) notify(improved bool) {
	if s.observer == nil {
		return
	}
	s.observer(Generation{Index: s.generation, BestFitness: s.bestVal, Improved: improved})
}

// Result snapshots the current global best and history.
func (s *Swarm) Result() *Result {
	return &Result{
		BestFitness:  s.bestVal,
		BestPosition: clone(s.best),
		BestSchedule: s.bestSchedule.Clone(),
		History:      append([]int(nil), s.history...),
	}
}

// Run initialises a swarm and advances it params.Iterations generations.
// Identical problem and params yield identical results.
func Run(problem *timetable.Problem, params Params, opts ...Option) (*Result, error) {
	s, err := New(problem, params, opts...)
	if err != nil {
		return nil, err
	}
	for i := 0; i < params.Iterations; i++ {
		s.Step()
	}
	return s.Result(), nil
}

func clone(v []float64) []float64 {
	return append([]float64(nil), v...)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
