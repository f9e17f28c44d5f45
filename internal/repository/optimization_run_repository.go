package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/models"
)

const runColumns = `id, status, params, best_fitness, history, schedule, error_message, created_at, finished_at`

// OptimizationRunRepository persists optimisation runs.
type OptimizationRunRepository struct {
	db *sqlx.DB
}

// NewOptimizationRunRepository constructs the repository.
func NewOptimizationRunRepository(db *sqlx.DB) *OptimizationRunRepository {
	return &OptimizationRunRepository{db: db}
}

// Create inserts a run row, filling id, status and timestamp when empty.
func (r *OptimizationRunRepository) Create(ctx context.Context, run *models.OptimizationRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = models.RunStatusQueued
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if len(run.History) == 0 {
		run.History = types.JSONText(`[]`)
	}
	if len(run.Schedule) == 0 {
		run.Schedule = types.JSONText(`null`)
	}
	const query = `INSERT INTO optimization_runs (` + runColumns + `)
VALUES (:id, :status, :params, :best_fitness, :history, :schedule, :error_message, :created_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("create optimization run: %w", err)
	}
	return nil
}

// GetByID returns a run by its identifier.
func (r *OptimizationRunRepository) GetByID(ctx context.Context, id string) (*models.OptimizationRun, error) {
	const query = `SELECT ` + runColumns + ` FROM optimization_runs WHERE id = $1`
	var run models.OptimizationRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		return nil, fmt.Errorf("get optimization run: %w", err)
	}
	return &run, nil
}

// UpdateRunParams defines the mutable fields of a run.
type UpdateRunParams struct {
	Status       *models.RunStatus
	BestFitness  *int
	History      types.JSONText
	Schedule     types.JSONText
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Update persists the provided changes for a run row.
func (r *OptimizationRunRepository) Update(ctx context.Context, id string, params UpdateRunParams) error {
	set := make([]string, 0, 6)
	args := make([]interface{}, 0, 7)
	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.Status != nil {
		add("status", *params.Status)
	}
	if params.BestFitness != nil {
		add("best_fitness", *params.BestFitness)
	}
	if params.History != nil {
		add("history", params.History)
	}
	if params.Schedule != nil {
		add("schedule", params.Schedule)
	}
	if params.ErrorMessage != nil {
		add("error_message", *params.ErrorMessage)
	}
	if params.FinishedAt != nil {
		add("finished_at", *params.FinishedAt)
	}

	if len(set) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE optimization_runs SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update optimization run: %w", err)
	}
	return nil
}

// ListByStatus fetches the oldest runs in the given state; the worker uses
// it to pick up queued runs after a restart.
func (r *OptimizationRunRepository) ListByStatus(ctx context.Context, status models.RunStatus, limit int) ([]models.OptimizationRun, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT ` + runColumns + ` FROM optimization_runs WHERE status = $1 ORDER BY created_at ASC LIMIT $2`
	var runs []models.OptimizationRun
	if err := r.db.SelectContext(ctx, &runs, query, status, limit); err != nil {
		return nil, fmt.Errorf("list optimization runs: %w", err)
	}
	return runs, nil
}
