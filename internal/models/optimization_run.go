package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// RunStatus captures the optimisation run lifecycle.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "QUEUED"
	RunStatusProcessing RunStatus = "PROCESSING"
	RunStatusFinished   RunStatus = "FINISHED"
	RunStatusFailed     RunStatus = "FAILED"
)

// ProblemSource says where a run takes its problem instance from.
type ProblemSource string

const (
	ProblemSourceGenerated ProblemSource = "generated"
	ProblemSourceStored    ProblemSource = "stored"
)

// OptimizationRun is a persisted optimisation run. Only the best schedule
// and its fitness trajectory are kept.
type OptimizationRun struct {
	ID           string         `db:"id" json:"id"`
	Status       RunStatus      `db:"status" json:"status"`
	Params       RunParams      `db:"params" json:"params"`
	BestFitness  *int           `db:"best_fitness" json:"best_fitness,omitempty"`
	History      types.JSONText `db:"history" json:"history,omitempty"`
	Schedule     types.JSONText `db:"schedule" json:"schedule,omitempty"`
	ErrorMessage *string        `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time     `db:"finished_at" json:"finished_at,omitempty"`
}

// RunParams stores the optimiser inputs of a run as JSONB.
type RunParams struct {
	Source        ProblemSource `json:"source"`
	ProblemID     string        `json:"problemId,omitempty"`
	ProblemSeed   int64         `json:"problemSeed"`
	Cognitive     float64       `json:"cognitive"`
	Social        float64       `json:"social"`
	Inertia       float64       `json:"inertia"`
	Seed          int64         `json:"seed"`
	Particles     int           `json:"particles"`
	Iterations    int           `json:"iterations"`
	LocalSearch   bool          `json:"localSearch"`
	Penalty       int           `json:"penalty,omitempty"`
	Courses       int           `json:"courses,omitempty"`
	Teachers      int           `json:"teachers,omitempty"`
	Classes       int           `json:"classes,omitempty"`
	Rooms         int           `json:"rooms,omitempty"`
	Horizon       int           `json:"horizon,omitempty"`
	Blocked       []int         `json:"blocked"`
	ForbiddenRate *float64      `json:"forbiddenRate,omitempty"`
}

// Value marshals params to JSON for persistence.
func (p RunParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal run params: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the params struct.
func (p *RunParams) Scan(value interface{}) error {
	if value == nil {
		*p = RunParams{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for RunParams", value)
	}
	if len(data) == 0 {
		*p = RunParams{}
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal run params: %w", err)
	}
	return nil
}
