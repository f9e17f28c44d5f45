// Package catalog supplies problem instances: a seeded synthetic generator
// and YAML/JSON problem files.
package catalog

import (
	"fmt"
	"math/rand"

	"github.com/go-playground/validator/v10"

	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/timetable"
)

// GeneratorConfig sizes a synthetic instance.
type GeneratorConfig struct {
	Courses   int   `json:"courses" yaml:"courses" validate:"omitempty,min=1,max=500"`
	Teachers  int   `json:"teachers" yaml:"teachers" validate:"omitempty,min=1,max=500"`
	Classes   int   `json:"classes" yaml:"classes" validate:"omitempty,min=1,max=500"`
	Rooms     int   `json:"rooms" yaml:"rooms" validate:"omitempty,min=1,max=500"`
	Horizon   int   `json:"horizon" yaml:"horizon" validate:"omitempty,min=1,max=200"`
	Blocked   []int `json:"blocked" yaml:"blocked" validate:"omitempty,dive,min=0"`
	Durations []int `json:"durations" yaml:"durations" validate:"omitempty,dive,min=1"`
	// ForbiddenRate is the probability that a slot is forbidden; the rest
	// is spread evenly over the scores 1..5. Nil takes the default, zero
	// means no forbidden slots.
	ForbiddenRate *float64 `json:"forbiddenRate,omitempty" yaml:"forbiddenRate,omitempty" validate:"omitnil,min=0,lt=1"`
}

var validate = validator.New()

// Rate returns a pointer for GeneratorConfig.ForbiddenRate.
func Rate(v float64) *float64 { return &v }

// Validate checks the sizes and rates before generating. Zero sizes are
// allowed and take the defaults.
func (c GeneratorConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: generator: %v", timetable.ErrInvalidProblem, err)
	}
	return nil
}

// DefaultGeneratorConfig describes a five-day week of four slots with
// Thursday afternoon (slots 10 and 11) blocked.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Courses:       20,
		Teachers:      16,
		Classes:       10,
		Rooms:         10,
		Horizon:       20,
		Blocked:       []int{10, 11},
		Durations:     []int{2, 3},
		ForbiddenRate: Rate(0.1),
	}
}

// withDefaults fills zero fields from DefaultGeneratorConfig.
func (c GeneratorConfig) withDefaults() GeneratorConfig {
	def := DefaultGeneratorConfig()
	if c.Courses <= 0 {
		c.Courses = def.Courses
	}
	if c.Teachers <= 0 {
		c.Teachers = def.Teachers
	}
	if c.Classes <= 0 {
		c.Classes = def.Classes
	}
	if c.Rooms <= 0 {
		c.Rooms = def.Rooms
	}
	if c.Horizon <= 0 {
		c.Horizon = def.Horizon
	}
	if c.Blocked == nil {
		c.Blocked = def.Blocked
	}
	if len(c.Durations) == 0 {
		c.Durations = def.Durations
	}
	if c.ForbiddenRate == nil {
		c.ForbiddenRate = def.ForbiddenRate
	}
	return c
}

// Generate builds a random course catalog and preference tables. The same
// config and seed always produce the same problem.
func Generate(cfg GeneratorConfig, seed int64) *timetable.Problem {
	cfg = cfg.withDefaults()
	rng := rand.New(rand.NewSource(seed))

	courses := make([]timetable.Course, cfg.Courses)
	for i := range courses {
		courses[i] = timetable.Course{
			ID:        fmt.Sprintf("COURSE%d", i+1),
			TeacherID: fmt.Sprintf("T%d", rng.Intn(cfg.Teachers)+1),
			ClassID:   fmt.Sprintf("C%d", rng.Intn(cfg.Classes)+1),
			RoomID:    fmt.Sprintf("R%d", rng.Intn(cfg.Rooms)+1),
			Duration:  cfg.Durations[rng.Intn(len(cfg.Durations))],
		}
	}

	teachers := make(timetable.PreferenceTable, cfg.Teachers)
	for i := 1; i <= cfg.Teachers; i++ {
		teachers[fmt.Sprintf("T%d", i)] = randomRow(rng, cfg.Horizon, *cfg.ForbiddenRate)
	}
	classes := make(timetable.PreferenceTable, cfg.Classes)
	for i := 1; i <= cfg.Classes; i++ {
		classes[fmt.Sprintf("C%d", i)] = randomRow(rng, cfg.Horizon, *cfg.ForbiddenRate)
	}

	return timetable.NewProblem(courses, teachers, classes, cfg.Horizon, cfg.Blocked)
}

func randomRow(rng *rand.Rand, horizon int, forbiddenRate float64) []timetable.Preference {
	row := make([]timetable.Preference, horizon)
	for i := range row {
		u := rng.Float64()
		if u < forbiddenRate {
			row[i] = timetable.Forbidden()
			continue
		}
		score := 1 + int((u-forbiddenRate)/(1-forbiddenRate)*5)
		if score > 5 {
			score = 5
		}
		row[i] = timetable.Value(score)
	}
	return row
}
