package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-bulletin-api/internal/grading"
	"github.com/noah-isme/sma-bulletin-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var bulletinRowColumns = []string{
	"id", "student_id", "class_id", "period_id", "subject_lines", "evaluation_count", "total_weighted_points", "total_coefficients",
	"overall_average", "mention", "class_rank", "class_size", "class_average", "class_top_average", "class_bottom_average",
	"justified_absences", "unjustified_absences", "late_arrivals", "status", "published", "published_at", "rendered_document_path", "generated_at", "updated_at",
}

func TestBulletinRepositoryUpsertBatchPreservesPublication(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBulletinRepository(db)

	publishedAt := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bulletins")).
		WithArgs(sqlmock.AnyArg(), "stu-1", "class-1", "p1", sqlmock.AnyArg(), 4, 62.0, 4.0, 15.5, "good", 1, 2, 13.0, 15.5, 10.5, 0, 1, 2, grading.StatusRanked, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "published", "published_at", "rendered_document_path"}).
			AddRow("bul-1", true, publishedAt, "class-1/p1/stu-1.pdf"))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bulletins")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "published", "published_at", "rendered_document_path"}).
			AddRow("bul-2", false, nil, nil))
	mock.ExpectCommit()

	first := &models.Bulletin{
		StudentID: "stu-1", ClassID: "class-1", PeriodID: "p1", Evaluations: 4,
		TotalWeightedPoints: 62, TotalCoefficients: 4, OverallAverage: 15.5, Mention: "good",
		Rank: 1, ClassSize: 2, ClassAverage: 13, ClassTopAverage: 15.5, ClassBottomAverage: 10.5,
		UnjustifiedAbsences: 1, LateArrivals: 2, Status: grading.StatusRanked,
	}
	second := &models.Bulletin{StudentID: "stu-2", ClassID: "class-1", PeriodID: "p1", Status: grading.StatusRanked}

	tx, err := db.Beginx()
	require.NoError(t, err)
	require.NoError(t, repo.UpsertBatch(context.Background(), tx, []*models.Bulletin{first, second}, UpsertOptions{}))
	require.NoError(t, tx.Commit())

	assert.Equal(t, "bul-1", first.ID)
	assert.True(t, first.Published)
	require.NotNil(t, first.PublishedAt)
	require.NotNil(t, first.RenderedDocumentPath)
	assert.Equal(t, "class-1/p1/stu-1.pdf", *first.RenderedDocumentPath)
	assert.Equal(t, "bul-2", second.ID)
	assert.Nil(t, second.RenderedDocumentPath)
	assert.False(t, first.GeneratedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBulletinRepositoryHardRegenerateClearsDocument(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBulletinRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("updated_at = EXCLUDED.updated_at, rendered_document_path = NULL RETURNING")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "published", "published_at", "rendered_document_path"}).
			AddRow("bul-1", false, nil, nil))
	mock.ExpectRollback()

	tx, err := db.Beginx()
	require.NoError(t, err)
	err = repo.UpsertBatch(context.Background(), tx, []*models.Bulletin{{StudentID: "stu-1", ClassID: "class-1", PeriodID: "p1"}}, UpsertOptions{HardRegenerate: true})
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBulletinRepositoryUpsertBatchWrapsErrors(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBulletinRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bulletins")).WillReturnError(errors.New("unique violation"))
	mock.ExpectRollback()

	tx, err := db.Beginx()
	require.NoError(t, err)
	err = repo.UpsertBatch(context.Background(), tx, []*models.Bulletin{{StudentID: "stu-9", ClassID: "c", PeriodID: "p"}}, UpsertOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stu-9")
	require.NoError(t, tx.Rollback())
}

func TestBulletinRepositoryDeleteStale(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBulletinRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM bulletins WHERE class_id = $1 AND period_id = $2 AND published = FALSE")).
		WithArgs("class-1", "p1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	removed, err := repo.DeleteStale(context.Background(), tx, "class-1", "p1", []string{"stu-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBulletinRepositoryGetNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBulletinRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM bulletins WHERE student_id = $1 AND class_id = $2 AND period_id = $3")).
		WithArgs("stu-1", "class-1", "p1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "stu-1", "class-1", "p1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestBulletinRepositoryListByClassPeriod(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBulletinRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(bulletinRowColumns).
		AddRow("bul-1", "stu-1", "class-1", "p1", `[{"subjectId":"math","coefficient":4,"average":15.5,"weightedPoints":62}]`, 2, 62.0, 4.0, 15.5, "good", 1, 2, 13.0, 15.5, 10.5, 0, 0, 0, "RANKED", false, nil, nil, now, now).
		AddRow("bul-2", "stu-2", "class-1", "p1", `[]`, 1, 42.0, 4.0, 10.5, "pass", 2, 2, 13.0, 15.5, 10.5, 1, 0, 0, "RANKED", false, nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM bulletins WHERE class_id = $1 AND period_id = $2 ORDER BY class_rank = 0, class_rank, student_id")).
		WithArgs("class-1", "p1").
		WillReturnRows(rows)

	list, err := repo.ListByClassPeriod(context.Background(), "class-1", "p1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 1, list[0].Rank)
	require.Len(t, list[0].Lines, 1)
	assert.Equal(t, "math", list[0].Lines[0].SubjectID)
	assert.Empty(t, list[1].Lines)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBulletinRepositoryListByStudentYear(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBulletinRepository(db)

	now := time.Now()
	cols := append(append([]string{}, bulletinRowColumns...), "period_index")
	rows := sqlmock.NewRows(cols).
		AddRow("bul-1", "stu-1", "class-1", "p1", `[]`, 3, 0.0, 0.0, 12.0, "fairly good", 2, 20, 11.0, 16.0, 7.0, 1, 0, 2, "RANKED", true, now, nil, now, now, 1).
		AddRow("bul-2", "stu-1", "class-1", "p2", `[]`, 3, 0.0, 0.0, 13.0, "fairly good", 1, 20, 11.0, 13.0, 7.0, 0, 1, 0, "RANKED", true, now, nil, now, now, 2)
	mock.ExpectQuery(regexp.QuoteMeta("JOIN periods p ON p.id = b.period_id WHERE b.student_id = $1 AND b.class_id = $2 AND p.school_year_id = $3")).
		WithArgs("stu-1", "class-1", "sy-1").
		WillReturnRows(rows)

	list, err := repo.ListByStudentYear(context.Background(), "stu-1", "class-1", "sy-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 2, list[1].PeriodIndex)
	assert.Equal(t, 13.0, list[1].OverallAverage)
	assert.Equal(t, 2, list[0].LateArrivals)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBulletinRepositoryMarkPublished(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBulletinRepository(db)

	at := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bulletins SET published = TRUE, published_at = $3, updated_at = $3 WHERE class_id = $1 AND period_id = $2 AND published = FALSE AND status = $4")).
		WithArgs("class-1", "p1", at, grading.StatusRanked).
		WillReturnResult(sqlmock.NewResult(0, 25))

	count, err := repo.MarkPublished(context.Background(), "class-1", "p1", at)
	require.NoError(t, err)
	assert.Equal(t, int64(25), count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBulletinRepositorySetDocumentPath(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBulletinRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bulletins SET rendered_document_path = $2 WHERE id = $1")).
		WithArgs("bul-1", "class-1/p1/stu-1.pdf").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetDocumentPath(context.Background(), "bul-1", "class-1/p1/stu-1.pdf"))
	require.NoError(t, mock.ExpectationsWereMet())
}
