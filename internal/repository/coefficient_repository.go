package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
)

// CoefficientRepository reads the subject coefficient rule table.
type CoefficientRepository struct {
	db *sqlx.DB
}

// NewCoefficientRepository constructs the repository.
func NewCoefficientRepository(db *sqlx.DB) *CoefficientRepository {
	return &CoefficientRepository{db: db}
}

// List returns every coefficient row.
func (r *CoefficientRepository) List(ctx context.Context) ([]models.SubjectCoefficient, error) {
	const query = `SELECT subject_id, cycle, COALESCE(grade_level, '') AS grade_level, COALESCE(track, '') AS track, coefficient
FROM subject_coefficients
ORDER BY cycle, grade_level, track, subject_id`
	var rows []models.SubjectCoefficient
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list subject coefficients: %w", err)
	}
	return rows, nil
}
