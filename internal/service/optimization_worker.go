package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/dto"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/models"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/repository"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/pkg/jobs"
)

type runCompleter interface {
	Complete(ctx context.Context, run *models.OptimizationRun) (*dto.OptimizationResponse, error)
}

// OptimizationWorker executes queued runs.
type OptimizationWorker struct {
	repo       runStore
	runner     runCompleter
	logger     *zap.Logger
	maxRetries int
}

// NewOptimizationWorker constructs a worker. maxRetries should match the
// queue's retry budget so the last attempt marks the run failed.
func NewOptimizationWorker(repo runStore, runner runCompleter, maxRetries int, logger *zap.Logger) *OptimizationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &OptimizationWorker{repo: repo, runner: runner, logger: logger, maxRetries: maxRetries}
}

// Handle processes a queue job. Runs with invalid inputs fail immediately
// and are not retried.
func (w *OptimizationWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if record.Status == models.RunStatusFinished || record.Status == models.RunStatusFailed {
		w.logger.Sugar().Infow("skipping settled optimization run", "run_id", job.ID, "status", record.Status)
		return nil
	}

	processing := models.RunStatusProcessing
	if err := w.repo.Update(ctx, job.ID, repository.UpdateRunParams{Status: &processing}); err != nil {
		return err
	}

	if _, err := w.runner.Complete(ctx, record); err != nil {
		msg := err.Error()
		// ctx is done when the queue stops; hand the run back as QUEUED so
		// the next process recovers it instead of failing it.
		interrupted := ctx.Err() != nil
		writeCtx, cancel := detachedContext(ctx)
		defer cancel()
		if !interrupted && (IsInputError(err) || job.Attempt >= w.maxRetries) {
			failed := models.RunStatusFailed
			now := time.Now().UTC()
			if updateErr := w.repo.Update(writeCtx, job.ID, repository.UpdateRunParams{
				Status:       &failed,
				ErrorMessage: &msg,
				FinishedAt:   &now,
			}); updateErr != nil {
				w.logger.Sugar().Warnw("failed to mark run failed", "run_id", job.ID, "error", updateErr)
			}
			if IsInputError(err) {
				return nil
			}
			return err
		}
		queued := models.RunStatusQueued
		if updateErr := w.repo.Update(writeCtx, job.ID, repository.UpdateRunParams{
			Status:       &queued,
			ErrorMessage: &msg,
		}); updateErr != nil {
			w.logger.Sugar().Warnw("failed to mark run queued", "run_id", job.ID, "error", updateErr)
		}
		return err
	}
	return nil
}
