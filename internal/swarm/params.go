package swarm

import (
	"errors"
	"fmt"
	"math"
)

// ErrPrecondition is returned before any generation runs when the caller
// supplied coefficients or sizes the search cannot work with.
var ErrPrecondition = errors.New("swarm precondition violated")

// Default coefficients c1 = c2 = 2.05 and w = 0.8, with seed 40.
const (
	DefaultCognition = 2.05
	DefaultSocial    = 2.05
	DefaultInertia   = 0.8
	DefaultParticles = 20
	DefaultSeed      = 40
)

// Params configures a single run.
type Params struct {
	// Cognitive and Social are the acceleration coefficients c1 and c2.
	// Their sum must exceed 4.
	Cognitive float64 `json:"cognitive" yaml:"cognitive"`
	Social    float64 `json:"social" yaml:"social"`
	// Inertia scales the constriction-adjusted velocity.
	Inertia     float64 `json:"inertia" yaml:"inertia"`
	Seed        int64   `json:"seed" yaml:"seed"`
	Particles   int     `json:"particles" yaml:"particles"`
	Iterations  int     `json:"iterations" yaml:"iterations"`
	LocalSearch bool    `json:"localSearch" yaml:"localSearch"`
}

// DefaultParams returns the default settings for the given iteration count.
func DefaultParams(iterations int) Params {
	return Params{
		Cognitive:   DefaultCognition,
		Social:      DefaultSocial,
		Inertia:     DefaultInertia,
		Seed:        DefaultSeed,
		Particles:   DefaultParticles,
		Iterations:  iterations,
		LocalSearch: true,
	}
}

// Validate checks the preconditions of Run that do not depend on the problem.
func (p Params) Validate() error {
	if phi := p.Cognitive + p.Social; !(phi > 4) {
		return fmt.Errorf("%w: cognitive+social must exceed 4, got %g", ErrPrecondition, phi)
	}
	if p.Particles < 2 {
		return fmt.Errorf("%w: at least 2 particles required, got %d", ErrPrecondition, p.Particles)
	}
	if p.Iterations < 0 {
		return fmt.Errorf("%w: iterations must not be negative, got %d", ErrPrecondition, p.Iterations)
	}
	return nil
}

// Constriction calculates Clerc's constriction coefficient for c1 and c2:
//
//	k = 2 / |2 - phi - sqrt(phi^2 - 4*phi)|,  phi = c1 + c2
//
// phi must be greater than 4 for k to be real.
func Constriction(c1, c2 float64) float64 {
	phi := c1 + c2
	return 2 / math.Abs(2-phi-math.Sqrt(phi*phi-4*phi))
}
