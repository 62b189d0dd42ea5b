package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
)

// RosterRepository lists validated class enrollments.
type RosterRepository struct {
	db *sqlx.DB
}

// NewRosterRepository constructs the repository.
func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

// ListValidated returns students actively enrolled in the class for the
// period's school year, ordered by name.
func (r *RosterRepository) ListValidated(ctx context.Context, classID, periodID string) ([]models.RosterEntry, error) {
	const query = `SELECT e.student_id, s.full_name AS student_name
FROM enrollments e
JOIN students s ON s.id = e.student_id
JOIN periods p ON p.school_year_id = e.school_year_id
WHERE e.class_id = $1 AND p.id = $2 AND e.status = 'ACTIVE'
ORDER BY s.full_name, e.student_id`
	var roster []models.RosterEntry
	if err := r.db.SelectContext(ctx, &roster, query, classID, periodID); err != nil {
		return nil, fmt.Errorf("list class roster: %w", err)
	}
	return roster, nil
}
