package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-api/internal/dto"
	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/internal/repository"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
	"github.com/noah-isme/sma-bulletin-api/pkg/jobs"
)

type generationJobStore interface {
	Create(ctx context.Context, job *models.GenerationJob) error
	GetByID(ctx context.Context, id string) (*models.GenerationJob, error)
	Update(ctx context.Context, id string, params repository.UpdateGenerationJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.GenerationJob, error)
}

type classGenerator interface {
	GenerateForClass(ctx context.Context, req dto.GenerateClassRequest) (*dto.ClassGenerationResult, error)
}

// GenerationJobService records asynchronous class generation requests and
// hands them to the generation queue.
type GenerationJobService struct {
	repo      generationJobStore
	queue     JobDispatcher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGenerationJobService constructs the service.
func NewGenerationJobService(repo generationJobStore, queue JobDispatcher, validate *validator.Validate, logger *zap.Logger) *GenerationJobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &GenerationJobService{repo: repo, queue: queue, validator: validate, logger: logger}
}

// Create persists a queued job and enqueues it.
func (s *GenerationJobService) Create(ctx context.Context, req dto.GenerateClassRequest, actorID string) (*dto.GenerationJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation request")
	}
	job := &models.GenerationJob{
		ClassID:   req.ClassID,
		PeriodID:  req.PeriodID,
		Options:   req.Options(),
		Status:    models.JobStatusQueued,
		CreatedBy: actorID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create generation job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: jobs.TypeClassGeneration}); err != nil {
		status := models.JobStatusFailed
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		progress := 100
		_ = s.repo.Update(ctx, job.ID, repository.UpdateGenerationJobParams{
			Status:       &status,
			Progress:     &progress,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue generation job")
	}
	return jobResponse(job), nil
}

// GetStatus exposes job progress. Teachers only see jobs they created.
func (s *GenerationJobService) GetStatus(ctx context.Context, id, actorID string, role models.UserRole) (*dto.GenerationJobResponse, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load generation job")
	}
	if role == models.RoleTeacher && job.CreatedBy != actorID {
		return nil, appErrors.ErrForbidden
	}
	return jobResponse(job), nil
}

// RecoverQueued replays jobs left queued by a previous process.
func (s *GenerationJobService) RecoverQueued(ctx context.Context) {
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Sugar().Warnw("failed to recover queued generation jobs", "error", err)
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: jobs.TypeClassGeneration}); err != nil {
			s.logger.Sugar().Warnw("failed to requeue generation job", "job_id", job.ID, "error", err)
		}
	}
}

func jobResponse(job *models.GenerationJob) *dto.GenerationJobResponse {
	resp := &dto.GenerationJobResponse{
		ID:       job.ID,
		ClassID:  job.ClassID,
		PeriodID: job.PeriodID,
		Status:   job.Status,
		Progress: job.Progress,
		Summary:  job.Summary,
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp
}

// GenerationWorker runs queued class generations.
type GenerationWorker struct {
	repo       generationJobStore
	generator  classGenerator
	logger     *zap.Logger
	maxRetries int
}

// NewGenerationWorker constructs a worker.
func NewGenerationWorker(repo generationJobStore, generator classGenerator, maxRetries int, logger *zap.Logger) *GenerationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &GenerationWorker{repo: repo, generator: generator, logger: logger, maxRetries: maxRetries}
}

// Handle processes a queue job. Domain failures finish the job as FAILED
// without retrying; infrastructure failures are retried by the queue.
func (w *GenerationWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	processing := models.JobStatusProcessing
	progress := 10
	if err := w.repo.Update(ctx, job.ID, repository.UpdateGenerationJobParams{
		Status:   &processing,
		Progress: &progress,
	}); err != nil {
		return err
	}

	result, err := w.generator.GenerateForClass(ctx, dto.GenerateClassRequest{
		ClassID:        record.ClassID,
		PeriodID:       record.PeriodID,
		Force:          record.Options.Force,
		HardRegenerate: record.Options.HardRegenerate,
	})
	if err != nil {
		if permanentFailure(err) || job.Attempt >= w.maxRetries {
			w.finishFailed(ctx, job.ID, err)
			if permanentFailure(err) {
				return nil
			}
			return err
		}
		queued := models.JobStatusQueued
		reset := 0
		msg := err.Error()
		if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateGenerationJobParams{
			Status:       &queued,
			Progress:     &reset,
			ErrorMessage: &msg,
		}); updateErr != nil {
			w.logger.Sugar().Warnw("failed to mark generation job queued", "job_id", job.ID, "error", updateErr)
		}
		return err
	}

	finished := models.JobStatusFinished
	progress = 100
	now := time.Now().UTC()
	clear := ""
	summary := models.GenerationSummary{Generated: result.Generated, ClassAverage: result.ClassAverage}
	if err := w.repo.Update(ctx, job.ID, repository.UpdateGenerationJobParams{
		Status:       &finished,
		Progress:     &progress,
		Summary:      &summary,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark generation job finished", "job_id", job.ID, "error", err)
		return err
	}
	return nil
}

func (w *GenerationWorker) finishFailed(ctx context.Context, id string, cause error) {
	failed := models.JobStatusFailed
	progress := 100
	now := time.Now().UTC()
	msg := cause.Error()
	params := repository.UpdateGenerationJobParams{
		Status:       &failed,
		Progress:     &progress,
		ErrorMessage: &msg,
		FinishedAt:   &now,
	}
	var appErr *appErrors.Error
	if errors.As(cause, &appErr) {
		msg = appErr.Message
		if failures, ok := appErr.Details.([]models.StudentFailure); ok {
			params.Summary = &models.GenerationSummary{Failures: failures}
		}
	}
	if err := w.repo.Update(ctx, id, params); err != nil {
		w.logger.Sugar().Warnw("failed to mark generation job failed", "job_id", id, "error", err)
	}
}

// permanentFailure reports whether retrying cannot change the outcome. A
// concurrent run holding the class lock is transient.
func permanentFailure(err error) bool {
	if errors.Is(err, appErrors.ErrGenerationInProgress) {
		return false
	}
	var appErr *appErrors.Error
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Status >= http.StatusBadRequest && appErr.Status < http.StatusInternalServerError
}
