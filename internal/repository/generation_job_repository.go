package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
)

const generationJobColumns = `id, class_id, period_id, options, status, progress, summary, created_by, created_at, finished_at, error_message`

// GenerationJobRepository persists asynchronous class generation jobs.
type GenerationJobRepository struct {
	db *sqlx.DB
}

// NewGenerationJobRepository constructs the repository.
func NewGenerationJobRepository(db *sqlx.DB) *GenerationJobRepository {
	return &GenerationJobRepository{db: db}
}

// Create inserts a new job row with generated defaults.
func (r *GenerationJobRepository) Create(ctx context.Context, job *models.GenerationJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.JobStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO generation_jobs (id, class_id, period_id, options, status, progress, summary, created_by, created_at, finished_at, error_message)
VALUES (:id, :class_id, :period_id, :options, :status, :progress, :summary, :created_by, :created_at, :finished_at, :error_message)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create generation job: %w", err)
	}
	return nil
}

// GetByID returns a job row by its identifier.
func (r *GenerationJobRepository) GetByID(ctx context.Context, id string) (*models.GenerationJob, error) {
	query := `SELECT ` + generationJobColumns + ` FROM generation_jobs WHERE id = $1`
	var job models.GenerationJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, fmt.Errorf("get generation job: %w", err)
	}
	return &job, nil
}

// UpdateGenerationJobParams defines the mutable fields.
type UpdateGenerationJobParams struct {
	Status       *models.JobStatus
	Progress     *int
	Summary      *models.GenerationSummary
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Update persists the provided changes for a job row.
func (r *GenerationJobRepository) Update(ctx context.Context, id string, params UpdateGenerationJobParams) error {
	set := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)

	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if params.Status != nil {
		add("status", *params.Status)
	}
	if params.Progress != nil {
		add("progress", *params.Progress)
	}
	if params.Summary != nil {
		add("summary", *params.Summary)
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
	query := fmt.Sprintf("UPDATE generation_jobs SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update generation job: %w", err)
	}
	return nil
}

// ListQueued fetches queued jobs for cold start recovery.
func (r *GenerationJobRepository) ListQueued(ctx context.Context, limit int) ([]models.GenerationJob, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + generationJobColumns + ` FROM generation_jobs WHERE status = 'QUEUED' ORDER BY created_at ASC LIMIT $1`
	var jobs []models.GenerationJob
	if err := r.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		return nil, fmt.Errorf("list queued generation jobs: %w", err)
	}
	return jobs, nil
}
