package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
)

// AcademicRepository reads classes, school years and periods.
type AcademicRepository struct {
	db *sqlx.DB
}

// NewAcademicRepository constructs the repository.
func NewAcademicRepository(db *sqlx.DB) *AcademicRepository {
	return &AcademicRepository{db: db}
}

// FindClass returns a class by id.
func (r *AcademicRepository) FindClass(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, name, school_year_id, cycle, COALESCE(grade_level, '') AS grade_level, COALESCE(track, '') AS track, created_at, updated_at
FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, fmt.Errorf("find class: %w", err)
	}
	return &class, nil
}

// FindPeriod returns a grading period by id.
func (r *AcademicRepository) FindPeriod(ctx context.Context, id string) (*models.Period, error) {
	const query = `SELECT id, school_year_id, period_index, name FROM periods WHERE id = $1`
	var period models.Period
	if err := r.db.GetContext(ctx, &period, query, id); err != nil {
		return nil, fmt.Errorf("find period: %w", err)
	}
	return &period, nil
}

// FindSchoolYear returns a school year by id.
func (r *AcademicRepository) FindSchoolYear(ctx context.Context, id string) (*models.SchoolYear, error) {
	const query = `SELECT id, name, start_date, end_date, period_count FROM school_years WHERE id = $1`
	var year models.SchoolYear
	if err := r.db.GetContext(ctx, &year, query, id); err != nil {
		return nil, fmt.Errorf("find school year: %w", err)
	}
	return &year, nil
}

// ListPeriods returns the periods of a school year ordered by index.
func (r *AcademicRepository) ListPeriods(ctx context.Context, schoolYearID string) ([]models.Period, error) {
	const query = `SELECT id, school_year_id, period_index, name FROM periods WHERE school_year_id = $1 ORDER BY period_index`
	var periods []models.Period
	if err := r.db.SelectContext(ctx, &periods, query, schoolYearID); err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	return periods, nil
}
