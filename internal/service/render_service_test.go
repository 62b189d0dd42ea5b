package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-bulletin-api/internal/grading"
	"github.com/noah-isme/sma-bulletin-api/internal/models"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
	"github.com/noah-isme/sma-bulletin-api/pkg/events"
	"github.com/noah-isme/sma-bulletin-api/pkg/export"
	"github.com/noah-isme/sma-bulletin-api/pkg/jobs"
	"github.com/noah-isme/sma-bulletin-api/pkg/storage"
)

type failingRenderer struct{}

func (failingRenderer) Render(doc export.BulletinDocument) ([]byte, error) {
	return nil, errors.New("font missing")
}

func newRenderServiceForTest(t *testing.T, pdf documentRenderer) (*RenderService, *bulletinFixture) {
	t.Helper()
	f := newBulletinFixture(t, BulletinServiceConfig{}, nil)
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewRenderService(f.store, f.academic, f.roster, files, signer, f.events, NewMetricsService(),
		RenderConfig{APIPrefix: "/api/v1/", SchoolName: "Lycee Test"}, nil, pdf)

	f.store.put(models.Bulletin{
		ID: "b-s1", StudentID: "s1", ClassID: "c1", PeriodID: "p1",
		Lines: models.SubjectLines{
			{SubjectID: "math", SubjectName: "Mathematics", Coefficient: 4, Average: 16, WeightedPoints: 64},
		},
		TotalCoefficients: 4, TotalWeightedPoints: 64, OverallAverage: 16, Mention: "very good",
		Rank: 1, ClassSize: 3, ClassAverage: 14, ClassTopAverage: 16, ClassBottomAverage: 11.33,
		Status: grading.StatusRanked,
	})
	return svc, f
}

func TestRenderServiceRenderStoresDocument(t *testing.T) {
	svc, f := newRenderServiceForTest(t, nil)

	relPath, err := svc.Render(context.Background(), "b-s1")
	require.NoError(t, err)
	assert.Equal(t, "c1/p1/s1.pdf", relPath)

	stored, err := f.store.GetByID(context.Background(), "b-s1")
	require.NoError(t, err)
	require.NotNil(t, stored.RenderedDocumentPath)
	assert.Equal(t, relPath, *stored.RenderedDocumentPath)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, events.TypeDocumentRendered, f.events.events[0].Type)
	assert.Equal(t, "b-s1", f.events.events[0].BulletinID)

	_, err = svc.Render(context.Background(), "missing")
	requireCode(t, err, appErrors.ErrNotFound.Code)
}

func TestRenderServiceRenderFailureLeavesBulletin(t *testing.T) {
	svc, f := newRenderServiceForTest(t, failingRenderer{})

	err := svc.HandleJob(context.Background(), jobs.Job{ID: "b-s1", Type: jobs.TypeBulletinRender})
	requireCode(t, err, appErrors.ErrInternal.Code)

	stored, err := f.store.GetByID(context.Background(), "b-s1")
	require.NoError(t, err)
	assert.Nil(t, stored.RenderedDocumentPath)
	assert.Empty(t, f.events.events)

	err = svc.HandleJob(context.Background(), jobs.Job{ID: "b-s1", Type: jobs.TypeClassGeneration})
	require.Error(t, err)
}

func TestRenderServiceDocumentLinkAndDownload(t *testing.T) {
	svc, _ := newRenderServiceForTest(t, nil)
	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}

	link, err := svc.DocumentLink(context.Background(), "b-s1", admin)
	require.NoError(t, err)
	assert.Equal(t, "b-s1", link.BulletinID)
	require.True(t, strings.HasPrefix(link.URL, "/api/v1/export/"))
	assert.True(t, link.ExpiresAt.After(time.Now()))

	token := strings.TrimPrefix(link.URL, "/api/v1/export/")
	file, filename, err := svc.ResolveDownload(token)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, "s1.pdf", filename)
	content, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "%PDF"))

	_, _, err = svc.ResolveDownload(token + "tampered")
	requireCode(t, err, appErrors.ErrForbidden.Code)
}

func TestRenderServiceDocumentLinkStudentAccess(t *testing.T) {
	svc, f := newRenderServiceForTest(t, nil)
	owner := &models.JWTClaims{UserID: "s1", Role: models.RoleStudent}
	other := &models.JWTClaims{UserID: "s2", Role: models.RoleStudent}

	_, err := svc.DocumentLink(context.Background(), "b-s1", owner)
	requireCode(t, err, appErrors.ErrForbidden.Code)

	_, err = f.store.MarkPublished(context.Background(), "c1", "p1", time.Now())
	require.NoError(t, err)

	_, err = svc.DocumentLink(context.Background(), "b-s1", other)
	requireCode(t, err, appErrors.ErrForbidden.Code)

	link, err := svc.DocumentLink(context.Background(), "b-s1", owner)
	require.NoError(t, err)
	assert.NotEmpty(t, link.URL)

	_, err = svc.DocumentLink(context.Background(), "b-s1", nil)
	requireCode(t, err, appErrors.ErrUnauthorized.Code)
}
