package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-bulletin-api/internal/grading"
	"github.com/noah-isme/sma-bulletin-api/internal/models"
)

// AttendanceRepository summarises daily attendance for bulletins.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Count tallies a student's absences and late arrivals in the class within the
// inclusive window.
func (r *AttendanceRepository) Count(ctx context.Context, studentID, classID string, window grading.Window) (grading.AttendanceCounts, error) {
	if window.Empty() {
		return grading.AttendanceCounts{}, nil
	}
	const query = `SELECT da.status, COUNT(*) AS total
FROM daily_attendance da
JOIN enrollments e ON e.id = da.enrollment_id
WHERE e.student_id = $1 AND e.class_id = $2 AND da.date >= $3 AND da.date <= $4
GROUP BY da.status`
	var rows []struct {
		Status models.AttendanceStatus `db:"status"`
		Total  int                     `db:"total"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, studentID, classID, window.Start, window.End); err != nil {
		return grading.AttendanceCounts{}, fmt.Errorf("count attendance: %w", err)
	}
	var counts grading.AttendanceCounts
	for _, row := range rows {
		switch {
		case row.Status.Justified():
			counts.JustifiedAbsences += row.Total
		case row.Status == models.AttendanceStatusAbsent:
			counts.UnjustifiedAbsences += row.Total
		case row.Status == models.AttendanceStatusLate:
			counts.LateArrivals += row.Total
		}
	}
	return counts, nil
}
