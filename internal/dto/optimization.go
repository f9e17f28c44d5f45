package dto

import (
	"time"

	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/catalog"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/models"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/timetable"
)

// GeneratorRequest sizes a synthetic problem. Zero sizes and a nil
// forbiddenRate take the generator defaults; a forbiddenRate of 0 disables
// forbidden slots.
type GeneratorRequest struct {
	Courses       int      `json:"courses" validate:"omitempty,min=1,max=500"`
	Teachers      int      `json:"teachers" validate:"omitempty,min=1,max=500"`
	Classes       int      `json:"classes" validate:"omitempty,min=1,max=500"`
	Rooms         int      `json:"rooms" validate:"omitempty,min=1,max=500"`
	Horizon       int      `json:"horizon" validate:"omitempty,min=1,max=200"`
	Blocked       []int    `json:"blocked" validate:"omitempty,dive,min=0"`
	ForbiddenRate *float64 `json:"forbiddenRate" validate:"omitnil,min=0,lt=1"`
}

// OptimizationRequest captures POST /optimizations payloads. Nil optimiser
// fields fall back to the service defaults.
type OptimizationRequest struct {
	Source      models.ProblemSource `json:"source" validate:"omitempty,oneof=generated stored"`
	ProblemID   string               `json:"problemId" validate:"required_if=Source stored,omitempty,uuid"`
	ProblemSeed *int64               `json:"problemSeed"`
	Generator   *GeneratorRequest    `json:"generator" validate:"omitempty"`

	Cognitive   *float64 `json:"c1" validate:"omitempty,gt=0"`
	Social      *float64 `json:"c2" validate:"omitempty,gt=0"`
	Inertia     *float64 `json:"w" validate:"omitempty,gt=0"`
	Seed        *int64   `json:"seed"`
	Particles   *int     `json:"particles" validate:"omitempty,min=2,max=1000"`
	Iterations  *int     `json:"iterations" validate:"omitempty,min=0"`
	LocalSearch *bool    `json:"localSearch"`
	Penalty     *int     `json:"penalty" validate:"omitnil,min=1"`
}

// ScheduleEntry is one placed course in a response. Start is null when the
// course could not be placed.
type ScheduleEntry struct {
	CourseID  string `json:"courseId"`
	TeacherID string `json:"teacherId"`
	ClassID   string `json:"classId"`
	RoomID    string `json:"roomId"`
	Start     *int   `json:"start"`
	Duration  int    `json:"duration"`
}

// OptimizationResponse reports a run. Result fields are empty until the run
// has finished.
type OptimizationResponse struct {
	RunID         string                `json:"runId"`
	Status        models.RunStatus      `json:"status"`
	Params        models.RunParams      `json:"params"`
	BestFitness   *int                  `json:"bestFitness,omitempty"`
	Preference    int                   `json:"preference"`
	Penalty       int                   `json:"penalty"`
	Valid         bool                  `json:"valid"`
	History       []int                 `json:"history,omitempty"`
	Schedule      []ScheduleEntry       `json:"schedule,omitempty"`
	Violations    []timetable.Violation `json:"violations,omitempty"`
	ForbiddenHits []timetable.Violation `json:"forbiddenHits,omitempty"`
	DurationMs    int64                 `json:"durationMs"`
	Error         *string               `json:"error,omitempty"`
	CreatedAt     time.Time             `json:"createdAt"`
	FinishedAt    *time.Time            `json:"finishedAt,omitempty"`
}

// OptimizationJobResponse is returned after enqueueing a run.
type OptimizationJobResponse struct {
	RunID  string           `json:"runId"`
	Status models.RunStatus `json:"status"`
}

// ScheduleEntries converts a schedule into its wire form.
func ScheduleEntries(schedule timetable.Schedule) []ScheduleEntry {
	out := make([]ScheduleEntry, len(schedule))
	for i, e := range schedule {
		out[i] = ScheduleEntry{
			CourseID:  e.CourseID,
			TeacherID: e.TeacherID,
			ClassID:   e.ClassID,
			RoomID:    e.RoomID,
			Duration:  e.Duration,
		}
		if slot, ok := e.Start.Slot(); ok {
			start := slot
			out[i].Start = &start
		}
	}
	return out
}

// ProblemRequest stores a problem for later runs. The problem body uses the
// same shape as problem files.
type ProblemRequest struct {
	Name    string              `json:"name" validate:"required,max=120"`
	Problem catalog.ProblemFile `json:"problem"`
}

// ProblemResponse identifies a stored problem.
type ProblemResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Courses int    `json:"courses"`
	Horizon int    `json:"horizon"`
}
