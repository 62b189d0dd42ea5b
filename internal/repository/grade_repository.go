package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
)

// GradeRepository reads evaluation results from the grade book.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// FetchPublished returns the student's published grades for a class period.
func (r *GradeRepository) FetchPublished(ctx context.Context, classID, periodID, studentID string) ([]models.GradeRecord, error) {
	const query = `SELECT g.id, g.student_id, g.class_id, g.period_id, g.subject_id, s.name AS subject_name, s.display_order AS subject_order,
g.kind, g.score, g.published, g.recorded_at
FROM grades g
JOIN subjects s ON s.id = g.subject_id
WHERE g.class_id = $1 AND g.period_id = $2 AND g.student_id = $3 AND g.published = TRUE
ORDER BY s.display_order, g.subject_id, g.recorded_at`
	var grades []models.GradeRecord
	if err := r.db.SelectContext(ctx, &grades, query, classID, periodID, studentID); err != nil {
		return nil, fmt.Errorf("fetch published grades: %w", err)
	}
	return grades, nil
}

// PublishedFingerprint digests the published grades of a class period. The
// value changes whenever a grade is published, edited or withdrawn, and is
// empty when nothing is published.
func (r *GradeRepository) PublishedFingerprint(ctx context.Context, classID, periodID string) (string, error) {
	const query = `SELECT COALESCE(md5(string_agg(g.id::text || ':' || g.kind || ':' || g.score::text, ',' ORDER BY g.id)), '') AS fingerprint
FROM grades g
WHERE g.class_id = $1 AND g.period_id = $2 AND g.published = TRUE`
	var fingerprint string
	if err := r.db.GetContext(ctx, &fingerprint, query, classID, periodID); err != nil {
		return "", fmt.Errorf("fingerprint published grades: %w", err)
	}
	return fingerprint, nil
}
