package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/catalog"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/dto"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/models"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/repository"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/swarm"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/timetable"
	appErrors "github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/pkg/errors"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/pkg/export"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/pkg/jobs"
)

// JobTypeOptimization tags queued optimisation runs.
const JobTypeOptimization = "optimization"

// statusWriteTimeout bounds status writes that outlive the request context.
const statusWriteTimeout = 5 * time.Second

// recoverBatch caps how many runs of each status RecoverPending requeues.
const recoverBatch = 50

type runStore interface {
	Create(ctx context.Context, run *models.OptimizationRun) error
	GetByID(ctx context.Context, id string) (*models.OptimizationRun, error)
	Update(ctx context.Context, id string, params repository.UpdateRunParams) error
	ListByStatus(ctx context.Context, status models.RunStatus, limit int) ([]models.OptimizationRun, error)
}

type problemStore interface {
	Load(ctx context.Context, id string) (*timetable.Problem, error)
	Save(ctx context.Context, name string, problem *timetable.Problem) (string, error)
}

type runCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// OptimizationConfig carries the defaults applied to unset request fields.
type OptimizationConfig struct {
	Cognitive     float64
	Social        float64
	Inertia       float64
	Particles     int
	Iterations    int
	MaxIterations int
	LocalSearch   bool
	Penalty       int
	CacheTTL      time.Duration
}

// DefaultOptimizationConfig mirrors the swarm package defaults.
func DefaultOptimizationConfig() OptimizationConfig {
	return OptimizationConfig{
		Cognitive:     swarm.DefaultCognition,
		Social:        swarm.DefaultSocial,
		Inertia:       swarm.DefaultInertia,
		Particles:     swarm.DefaultParticles,
		Iterations:    1000,
		MaxIterations: 10000,
		LocalSearch:   true,
		Penalty:       timetable.DefaultPenalty,
		CacheTTL:      10 * time.Minute,
	}
}

// storedResult is the JSON document kept in optimization_runs.schedule.
type storedResult struct {
	Entries       []dto.ScheduleEntry   `json:"entries"`
	Preference    int                   `json:"preference"`
	Penalty       int                   `json:"penalty"`
	Valid         bool                  `json:"valid"`
	Violations    []timetable.Violation `json:"violations,omitempty"`
	ForbiddenHits []timetable.Violation `json:"forbiddenHits,omitempty"`
	DurationMs    int64                 `json:"durationMs"`
}

// OptimizationService runs the swarm on request and manages run records.
type OptimizationService struct {
	runs      runStore
	problems  problemStore
	cache     runCache
	queue     jobDispatcher
	exporter  *ExportService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       OptimizationConfig
}

// NewOptimizationService constructs the service. cache, queue and metrics
// may be nil.
func NewOptimizationService(
	runs runStore,
	problems problemStore,
	cache runCache,
	queue jobDispatcher,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg OptimizationConfig,
) *OptimizationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultOptimizationConfig()
	if cfg.Particles <= 0 {
		cfg.Particles = def.Particles
	}
	if cfg.Cognitive <= 0 {
		cfg.Cognitive = def.Cognitive
	}
	if cfg.Social <= 0 {
		cfg.Social = def.Social
	}
	if cfg.Inertia <= 0 {
		cfg.Inertia = def.Inertia
	}
	if cfg.Iterations <= 0 {
		cfg.Iterations = def.Iterations
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.Penalty <= 0 {
		cfg.Penalty = def.Penalty
	}
	return &OptimizationService{
		runs:      runs,
		problems:  problems,
		cache:     cache,
		queue:     queue,
		exporter:  NewExportService(),
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// SetQueue attaches the dispatcher once the worker queue exists; the queue
// handler itself depends on the service.
func (s *OptimizationService) SetQueue(queue jobDispatcher) {
	s.queue = queue
}

// Run executes an optimisation synchronously and returns the finished run.
func (s *OptimizationService) Run(ctx context.Context, req dto.OptimizationRequest) (*dto.OptimizationResponse, error) {
	params, err := s.resolveParams(req)
	if err != nil {
		return nil, err
	}
	run := &models.OptimizationRun{Status: models.RunStatusProcessing, Params: params}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create optimization run")
	}
	resp, err := s.Complete(ctx, run)
	if err != nil {
		s.markFailed(ctx, run.ID, err)
		return nil, err
	}
	return resp, nil
}

// Submit stores a queued run and hands it to the worker pool.
func (s *OptimizationService) Submit(ctx context.Context, req dto.OptimizationRequest) (*dto.OptimizationJobResponse, error) {
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "asynchronous runs are disabled")
	}
	params, err := s.resolveParams(req)
	if err != nil {
		return nil, err
	}
	run := &models.OptimizationRun{Status: models.RunStatusQueued, Params: params}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create optimization run")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: run.ID, Type: JobTypeOptimization}); err != nil {
		s.markFailed(ctx, run.ID, errors.New("failed to enqueue run"))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue optimization run")
	}
	return &dto.OptimizationJobResponse{RunID: run.ID, Status: run.Status}, nil
}

// Get returns a run, preferring the cache for finished runs.
func (s *OptimizationService) Get(ctx context.Context, id string) (*dto.OptimizationResponse, error) {
	if s.cache != nil {
		var cached dto.OptimizationResponse
		if hit, err := s.cache.Get(ctx, RunKey(id), &cached); err == nil && hit {
			return &cached, nil
		}
	}
	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "optimization run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load optimization run")
	}
	resp, err := responseFromRecord(run)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode optimization run")
	}
	if run.Status == models.RunStatusFinished {
		s.storeCache(ctx, resp)
	}
	return resp, nil
}

// Export renders the best schedule of a finished run.
func (s *OptimizationService) Export(ctx context.Context, id string, format export.Format) (*ExportFile, error) {
	switch format {
	case "", export.FormatCSV, export.FormatPDF:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	resp, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if resp.Status != models.RunStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "optimization run has not finished")
	}
	file, err := s.exporter.Render(resp, format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return file, nil
}

// SaveProblem validates and stores a problem file, returning its id.
func (s *OptimizationService) SaveProblem(ctx context.Context, name string, file catalog.ProblemFile) (string, error) {
	if s.problems == nil {
		return "", appErrors.Clone(appErrors.ErrUnavailable, "problem storage is disabled")
	}
	if err := s.validator.Struct(dto.ProblemRequest{Name: name, Problem: file}); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid problem payload")
	}
	problem := file.Problem()
	if err := problem.Validate(); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	id, err := s.problems.Save(ctx, name, problem)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store problem")
	}
	return id, nil
}

// RecoverPending requeues runs a previous process left QUEUED or stopped
// in the middle of (PROCESSING). Call it before serving requests so no
// PROCESSING run belongs to a live caller.
func (s *OptimizationService) RecoverPending(ctx context.Context) {
	if s.queue == nil {
		return
	}
	for _, status := range []models.RunStatus{models.RunStatusQueued, models.RunStatusProcessing} {
		pending, err := s.runs.ListByStatus(ctx, status, recoverBatch)
		if err != nil {
			s.logger.Sugar().Warnw("failed to list optimization runs", "status", status, "error", err)
			continue
		}
		for _, run := range pending {
			if err := s.queue.Enqueue(jobs.Job{ID: run.ID, Type: JobTypeOptimization}); err != nil {
				s.logger.Sugar().Warnw("failed to requeue optimization run", "run_id", run.ID, "error", err)
			}
		}
	}
}

// Complete runs the swarm for a stored run and persists the outcome. Input
// errors are returned as validation errors.
func (s *OptimizationService) Complete(ctx context.Context, run *models.OptimizationRun) (*dto.OptimizationResponse, error) {
	problem, err := s.loadProblem(ctx, run.Params)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.search(ctx, problem, run.Params)
	if err != nil {
		s.metrics.ObserveRun(models.RunStatusFailed, 0, 0)
		return nil, err
	}
	elapsed := time.Since(start)

	score := timetable.Evaluate(problem, result.BestSchedule)
	stored := storedResult{
		Entries:       dto.ScheduleEntries(result.BestSchedule),
		Preference:    score.Preference,
		Penalty:       score.Penalty,
		Valid:         timetable.IsValid(problem, result.BestSchedule),
		Violations:    score.Violations,
		ForbiddenHits: timetable.ForbiddenHits(problem, result.BestSchedule),
		DurationMs:    elapsed.Milliseconds(),
	}
	history, err := json.Marshal(result.History)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode history")
	}
	schedule, err := json.Marshal(stored)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode schedule")
	}

	finished := models.RunStatusFinished
	now := time.Now().UTC()
	best := result.BestFitness
	noError := ""
	if err := s.runs.Update(ctx, run.ID, repository.UpdateRunParams{
		Status:       &finished,
		BestFitness:  &best,
		History:      types.JSONText(history),
		Schedule:     types.JSONText(schedule),
		ErrorMessage: &noError,
		FinishedAt:   &now,
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store optimization result")
	}
	s.metrics.ObserveRun(models.RunStatusFinished, best, elapsed)
	s.logger.Info("optimization finished",
		zap.String("run_id", run.ID),
		zap.Int("best_fitness", best),
		zap.Bool("valid", stored.Valid),
		zap.Duration("elapsed", elapsed),
	)

	run.Status = finished
	run.BestFitness = &best
	run.History = history
	run.Schedule = schedule
	run.FinishedAt = &now
	resp, err := responseFromRecord(run)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode optimization run")
	}
	s.storeCache(ctx, resp)
	return resp, nil
}

// search drives the swarm one generation at a time so ctx can stop it.
func (s *OptimizationService) search(ctx context.Context, problem *timetable.Problem, params models.RunParams) (*swarm.Result, error) {
	sp := swarmParams(params)
	sw, err := swarm.New(problem, sp,
		swarm.WithLogger(s.logger),
		swarm.WithObserver(func(g swarm.Generation) {
			if g.Index > 0 {
				s.metrics.ObserveGeneration(g.Improved)
			}
		}),
	)
	if err != nil {
		return nil, inputError(err)
	}
	for i := 0; i < sp.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("optimization interrupted after %d generations: %w", i, err)
		}
		sw.Step()
	}
	return sw.Result(), nil
}

func (s *OptimizationService) resolveParams(req dto.OptimizationRequest) (models.RunParams, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.RunParams{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid optimization payload")
	}

	params := models.RunParams{
		Source:      req.Source,
		ProblemID:   req.ProblemID,
		ProblemSeed: swarm.DefaultSeed,
		Cognitive:   s.cfg.Cognitive,
		Social:      s.cfg.Social,
		Inertia:     s.cfg.Inertia,
		Seed:        swarm.DefaultSeed,
		Particles:   s.cfg.Particles,
		Iterations:  s.cfg.Iterations,
		LocalSearch: s.cfg.LocalSearch,
	}
	if params.Source == "" {
		params.Source = models.ProblemSourceGenerated
	}
	// Stored problems keep their own penalty unless the request overrides it.
	if params.Source == models.ProblemSourceGenerated {
		params.Penalty = s.cfg.Penalty
	}
	if req.ProblemSeed != nil {
		params.ProblemSeed = *req.ProblemSeed
	}
	if req.Cognitive != nil {
		params.Cognitive = *req.Cognitive
	}
	if req.Social != nil {
		params.Social = *req.Social
	}
	if req.Inertia != nil {
		params.Inertia = *req.Inertia
	}
	if req.Seed != nil {
		params.Seed = *req.Seed
	}
	if req.Particles != nil {
		params.Particles = *req.Particles
	}
	if req.Iterations != nil {
		params.Iterations = *req.Iterations
	}
	if req.LocalSearch != nil {
		params.LocalSearch = *req.LocalSearch
	}
	if req.Penalty != nil {
		params.Penalty = *req.Penalty
	}
	if g := req.Generator; g != nil && params.Source == models.ProblemSourceGenerated {
		params.Courses = g.Courses
		params.Teachers = g.Teachers
		params.Classes = g.Classes
		params.Rooms = g.Rooms
		params.Horizon = g.Horizon
		params.Blocked = g.Blocked
		params.ForbiddenRate = g.ForbiddenRate
	}

	if params.Iterations > s.cfg.MaxIterations {
		return models.RunParams{}, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("iterations must not exceed %d", s.cfg.MaxIterations))
	}
	if err := swarmParams(params).Validate(); err != nil {
		return models.RunParams{}, inputError(err)
	}
	return params, nil
}

func (s *OptimizationService) loadProblem(ctx context.Context, params models.RunParams) (*timetable.Problem, error) {
	var problem *timetable.Problem
	switch params.Source {
	case models.ProblemSourceStored:
		if s.problems == nil {
			return nil, appErrors.Clone(appErrors.ErrUnavailable, "problem storage is disabled")
		}
		loaded, err := s.problems.Load(ctx, params.ProblemID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "problem not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load problem")
		}
		problem = loaded
	default:
		cfg := catalog.GeneratorConfig{
			Courses:       params.Courses,
			Teachers:      params.Teachers,
			Classes:       params.Classes,
			Rooms:         params.Rooms,
			Horizon:       params.Horizon,
			Blocked:       params.Blocked,
			ForbiddenRate: params.ForbiddenRate,
		}
		if err := cfg.Validate(); err != nil {
			return nil, inputError(err)
		}
		problem = catalog.Generate(cfg, params.ProblemSeed)
	}
	// Zero is "not requested": requests reject an explicit zero penalty.
	if params.Penalty != 0 {
		problem.Penalty = params.Penalty
	}
	if err := problem.Validate(); err != nil {
		return nil, inputError(err)
	}
	return problem, nil
}

func (s *OptimizationService) markFailed(ctx context.Context, id string, cause error) {
	ctx, cancel := detachedContext(ctx)
	defer cancel()
	failed := models.RunStatusFailed
	msg := cause.Error()
	now := time.Now().UTC()
	if err := s.runs.Update(ctx, id, repository.UpdateRunParams{
		Status:       &failed,
		ErrorMessage: &msg,
		FinishedAt:   &now,
	}); err != nil {
		s.logger.Sugar().Warnw("failed to mark optimization run failed", "run_id", id, "error", err)
	}
}

func (s *OptimizationService) storeCache(ctx context.Context, resp *dto.OptimizationResponse) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Set(ctx, RunKey(resp.RunID), resp, s.cfg.CacheTTL)
}

// detachedContext keeps ctx values but not its cancellation, so a run can
// still be settled after the client hung up or the queue stopped.
func detachedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
}

func swarmParams(p models.RunParams) swarm.Params {
	return swarm.Params{
		Cognitive:   p.Cognitive,
		Social:      p.Social,
		Inertia:     p.Inertia,
		Seed:        p.Seed,
		Particles:   p.Particles,
		Iterations:  p.Iterations,
		LocalSearch: p.LocalSearch,
	}
}

// inputError maps optimiser precondition failures onto validation errors.
func inputError(err error) error {
	if errors.Is(err, swarm.ErrPrecondition) || errors.Is(err, timetable.ErrInvalidProblem) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	return err
}

// IsInputError reports whether err was caused by the run's inputs rather
// than by infrastructure; retrying such runs cannot succeed.
func IsInputError(err error) bool {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case appErrors.ErrValidation.Code, appErrors.ErrNotFound.Code:
			return true
		}
	}
	return false
}

func responseFromRecord(run *models.OptimizationRun) (*dto.OptimizationResponse, error) {
	resp := &dto.OptimizationResponse{
		RunID:       run.ID,
		Status:      run.Status,
		Params:      run.Params,
		BestFitness: run.BestFitness,
		CreatedAt:   run.CreatedAt,
		FinishedAt:  run.FinishedAt,
	}
	if run.ErrorMessage != nil && *run.ErrorMessage != "" {
		resp.Error = run.ErrorMessage
	}
	if len(run.History) > 0 {
		if err := json.Unmarshal(run.History, &resp.History); err != nil {
			return nil, fmt.Errorf("decode history: %w", err)
		}
	}
	if len(run.Schedule) > 0 && string(run.Schedule) != "null" {
		var stored storedResult
		if err := json.Unmarshal(run.Schedule, &stored); err != nil {
			return nil, fmt.Errorf("decode schedule: %w", err)
		}
		resp.Schedule = stored.Entries
		resp.Preference = stored.Preference
		resp.Penalty = stored.Penalty
		resp.Valid = stored.Valid
		resp.Violations = stored.Violations
		resp.ForbiddenHits = stored.ForbiddenHits
		resp.DurationMs = stored.DurationMs
	}
	return resp, nil
}
