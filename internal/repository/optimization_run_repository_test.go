package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/require"

	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/models"
)

var runRowColumns = []string{"id", "status", "params", "best_fitness", "history", "schedule", "error_message", "created_at", "finished_at"}

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestOptimizationRunRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewOptimizationRunRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO optimization_runs")).
		WithArgs(sqlmock.AnyArg(), "QUEUED", sqlmock.AnyArg(), nil, sqlmock.AnyArg(), sqlmock.AnyArg(), nil, sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	run := &models.OptimizationRun{
		Params: models.RunParams{Source: models.ProblemSourceGenerated, Particles: 20, Iterations: 100},
	}
	require.NoError(t, repo.Create(context.Background(), run))
	require.NotEmpty(t, run.ID)
	require.Equal(t, types.JSONText(`[]`), run.History)

	rows := sqlmock.NewRows(runRowColumns).
		AddRow(run.ID, "FINISHED", `{"source":"generated","particles":20,"iterations":100}`, 42, `[10,42]`, `{"entries":[]}`, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, status, params, best_fitness, history, schedule, error_message, created_at, finished_at FROM optimization_runs WHERE id = $1")).
		WithArgs(run.ID).
		WillReturnRows(rows)

	fetched, err := repo.GetByID(context.Background(), run.ID)
	require.NoError(t, err)
	require.Equal(t, models.RunStatusFinished, fetched.Status)
	require.Equal(t, 20, fetched.Params.Particles)
	require.NotNil(t, fetched.BestFitness)
	require.Equal(t, 42, *fetched.BestFitness)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOptimizationRunRepositoryGetMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewOptimizationRunRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM optimization_runs WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOptimizationRunRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewOptimizationRunRepository(db)

	now := time.Now()
	status := models.RunStatusFinished
	best := 57
	history := types.JSONText(`[12,57]`)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE optimization_runs SET status = $1, best_fitness = $2, history = $3, finished_at = $4 WHERE id = $5")).
		WithArgs(status, best, history, now, "run-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "run-1", UpdateRunParams{
		Status:      &status,
		BestFitness: &best,
		History:     history,
		FinishedAt:  &now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOptimizationRunRepositoryUpdateNoop(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewOptimizationRunRepository(db)

	require.NoError(t, repo.Update(context.Background(), "run-1", UpdateRunParams{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOptimizationRunRepositoryListByStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewOptimizationRunRepository(db)

	rows := sqlmock.NewRows(runRowColumns).
		AddRow("run-1", "QUEUED", `{"source":"generated"}`, nil, `[]`, `null`, nil, time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, status, params, best_fitness, history, schedule, error_message, created_at, finished_at FROM optimization_runs WHERE status = $1 ORDER BY created_at ASC LIMIT $2")).
		WithArgs(models.RunStatusQueued, 20).
		WillReturnRows(rows)

	runs, err := repo.ListByStatus(context.Background(), models.RunStatusQueued, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Nil(t, runs[0].BestFitness)
	require.NoError(t, mock.ExpectationsWereMet())
}
