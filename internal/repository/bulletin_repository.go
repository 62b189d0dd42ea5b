package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-bulletin-api/internal/grading"
	"github.com/noah-isme/sma-bulletin-api/internal/models"
)

const bulletinColumns = `id, student_id, class_id, period_id, subject_lines, evaluation_count, total_weighted_points, total_coefficients,
overall_average, mention, class_rank, class_size, class_average, class_top_average, class_bottom_average,
justified_absences, unjustified_absences, late_arrivals, status, published, published_at, rendered_document_path, generated_at, updated_at`

const bulletinColumnsB = `b.id, b.student_id, b.class_id, b.period_id, b.subject_lines, b.evaluation_count, b.total_weighted_points, b.total_coefficients,
b.overall_average, b.mention, b.class_rank, b.class_size, b.class_average, b.class_top_average, b.class_bottom_average,
b.justified_absences, b.unjustified_absences, b.late_arrivals, b.status, b.published, b.published_at, b.rendered_document_path, b.generated_at, b.updated_at`

const upsertBulletinQuery = `INSERT INTO bulletins (id, student_id, class_id, period_id, subject_lines, evaluation_count, total_weighted_points, total_coefficients,
overall_average, mention, class_rank, class_size, class_average, class_top_average, class_bottom_average,
justified_absences, unjustified_absences, late_arrivals, status, published, generated_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, FALSE, $20, $20)
ON CONFLICT (student_id, class_id, period_id) DO UPDATE SET
subject_lines = EXCLUDED.subject_lines,
evaluation_count = EXCLUDED.evaluation_count,
total_weighted_points = EXCLUDED.total_weighted_points,
total_coefficients = EXCLUDED.total_coefficients,
overall_average = EXCLUDED.overall_average,
mention = EXCLUDED.mention,
class_rank = EXCLUDED.class_rank,
class_size = EXCLUDED.class_size,
class_average = EXCLUDED.class_average,
class_top_average = EXCLUDED.class_top_average,
class_bottom_average = EXCLUDED.class_bottom_average,
justified_absences = EXCLUDED.justified_absences,
unjustified_absences = EXCLUDED.unjustified_absences,
late_arrivals = EXCLUDED.late_arrivals,
status = EXCLUDED.status,
generated_at = EXCLUDED.generated_at,
updated_at = EXCLUDED.updated_at%s
RETURNING id, published, published_at, rendered_document_path`

// UpsertOptions controls what a regeneration overwrites.
type UpsertOptions struct {
	// HardRegenerate also clears the rendered document reference, which is
	// stale once the computed figures change.
	HardRegenerate bool
}

// BulletinRepository persists computed bulletins.
type BulletinRepository struct {
	db *sqlx.DB
}

// NewBulletinRepository constructs the repository.
func NewBulletinRepository(db *sqlx.DB) *BulletinRepository {
	return &BulletinRepository{db: db}
}

// UpsertBatch writes each bulletin keyed by (student, class, period) inside tx.
// Existing rows keep their publication flag; the rendered document path is
// kept unless opts.HardRegenerate. Stored identifiers and preserved fields are
// copied back into the given bulletins.
func (r *BulletinRepository) UpsertBatch(ctx context.Context, tx *sqlx.Tx, bulletins []*models.Bulletin, opts UpsertOptions) error {
	query := fmt.Sprintf(upsertBulletinQuery, "")
	if opts.HardRegenerate {
		query = fmt.Sprintf(upsertBulletinQuery, ",\nrendered_document_path = NULL")
	}
	now := time.Now().UTC()
	for _, b := range bulletins {
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		if b.GeneratedAt.IsZero() {
			b.GeneratedAt = now
		}
		b.UpdatedAt = b.GeneratedAt
		row := tx.QueryRowxContext(ctx, query,
			b.ID, b.StudentID, b.ClassID, b.PeriodID, b.Lines, b.Evaluations, b.TotalWeightedPoints, b.TotalCoefficients,
			b.OverallAverage, b.Mention, b.Rank, b.ClassSize, b.ClassAverage, b.ClassTopAverage, b.ClassBottomAverage,
			b.JustifiedAbsences, b.UnjustifiedAbsences, b.LateArrivals, b.Status, b.GeneratedAt,
		)
		if err := row.Scan(&b.ID, &b.Published, &b.PublishedAt, &b.RenderedDocumentPath); err != nil {
			return fmt.Errorf("upsert bulletin for student %s: %w", b.StudentID, err)
		}
	}
	return nil
}

// DeleteStale removes unpublished bulletins of students no longer on the roster.
func (r *BulletinRepository) DeleteStale(ctx context.Context, tx *sqlx.Tx, classID, periodID string, keep []string) (int64, error) {
	const query = `DELETE FROM bulletins WHERE class_id = $1 AND period_id = $2 AND published = FALSE AND NOT (student_id = ANY($3))`
	res, err := tx.ExecContext(ctx, query, classID, periodID, pq.Array(keep))
	if err != nil {
		return 0, fmt.Errorf("delete stale bulletins: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete stale bulletins: %w", err)
	}
	return affected, nil
}

// Get returns the bulletin for a (student, class, period) key.
func (r *BulletinRepository) Get(ctx context.Context, studentID, classID, periodID string) (*models.Bulletin, error) {
	query := `SELECT ` + bulletinColumns + ` FROM bulletins WHERE student_id = $1 AND class_id = $2 AND period_id = $3`
	var b models.Bulletin
	if err := r.db.GetContext(ctx, &b, query, studentID, classID, periodID); err != nil {
		return nil, fmt.Errorf("get bulletin: %w", err)
	}
	return &b, nil
}

// GetByID returns a bulletin by identifier.
func (r *BulletinRepository) GetByID(ctx context.Context, id string) (*models.Bulletin, error) {
	query := `SELECT ` + bulletinColumns + ` FROM bulletins WHERE id = $1`
	var b models.Bulletin
	if err := r.db.GetContext(ctx, &b, query, id); err != nil {
		return nil, fmt.Errorf("get bulletin: %w", err)
	}
	return &b, nil
}

// ListByClassPeriod returns the class bulletins, ranked rows first by rank.
func (r *BulletinRepository) ListByClassPeriod(ctx context.Context, classID, periodID string) ([]models.Bulletin, error) {
	query := `SELECT ` + bulletinColumns + ` FROM bulletins WHERE class_id = $1 AND period_id = $2
ORDER BY class_rank = 0, class_rank, student_id`
	var bulletins []models.Bulletin
	if err := r.db.SelectContext(ctx, &bulletins, query, classID, periodID); err != nil {
		return nil, fmt.Errorf("list bulletins: %w", err)
	}
	return bulletins, nil
}

// ListByStudentYear returns a student's period bulletins for a class and school
// year, ordered by period index.
func (r *BulletinRepository) ListByStudentYear(ctx context.Context, studentID, classID, schoolYearID string) ([]models.PeriodBulletin, error) {
	query := `SELECT ` + bulletinColumnsB + `, p.period_index
FROM bulletins b
JOIN periods p ON p.id = b.period_id
WHERE b.student_id = $1 AND b.class_id = $2 AND p.school_year_id = $3
ORDER BY p.period_index`
	var rows []models.PeriodBulletin
	if err := r.db.SelectContext(ctx, &rows, query, studentID, classID, schoolYearID); err != nil {
		return nil, fmt.Errorf("list student bulletins: %w", err)
	}
	return rows, nil
}

// MarkPublished publishes every ranked bulletin of the class period. Publishing
// is one-way; already published rows are left untouched.
func (r *BulletinRepository) MarkPublished(ctx context.Context, classID, periodID string, at time.Time) (int64, error) {
	const query = `UPDATE bulletins SET published = TRUE, published_at = $3, updated_at = $3
WHERE class_id = $1 AND period_id = $2 AND published = FALSE AND status = $4`
	res, err := r.db.ExecContext(ctx, query, classID, periodID, at, grading.StatusRanked)
	if err != nil {
		return 0, fmt.Errorf("publish bulletins: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("publish bulletins: %w", err)
	}
	return affected, nil
}

// SetDocumentPath records where the rendered document was stored.
func (r *BulletinRepository) SetDocumentPath(ctx context.Context, id, path string) error {
	const query = `UPDATE bulletins SET rendered_document_path = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, path); err != nil {
		return fmt.Errorf("set bulletin document path: %w", err)
	}
	return nil
}
