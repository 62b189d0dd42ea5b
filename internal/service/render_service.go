package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-api/internal/dto"
	"github.com/noah-isme/sma-bulletin-api/internal/models"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
	"github.com/noah-isme/sma-bulletin-api/pkg/events"
	"github.com/noah-isme/sma-bulletin-api/pkg/export"
	"github.com/noah-isme/sma-bulletin-api/pkg/jobs"
	"github.com/noah-isme/sma-bulletin-api/pkg/storage"
)

// DocumentStore reads bulletins and records their rendered documents.
type DocumentStore interface {
	GetByID(ctx context.Context, id string) (*models.Bulletin, error)
	SetDocumentPath(ctx context.Context, id, path string) error
}

type fileStorage interface {
	Save(key string, data []byte) (string, error)
	Open(key string) (*os.File, error)
}

type documentRenderer interface {
	Render(doc export.BulletinDocument) ([]byte, error)
}

// RenderConfig tunes document rendering and download links.
type RenderConfig struct {
	APIPrefix  string
	SchoolName string
}

// RenderService turns stored bulletins into PDF documents and hands out
// signed download links for them.
type RenderService struct {
	bulletins DocumentStore
	academic  AcademicSource
	roster    RosterSource
	storage   fileStorage
	pdf       documentRenderer
	signer    *storage.SignedURLSigner
	events    EventPublisher
	metrics   *MetricsService
	cfg       RenderConfig
	tracer    trace.Tracer
	logger    *zap.Logger
	now       func() time.Time
}

// NewRenderService constructs a RenderService.
func NewRenderService(bulletins DocumentStore, academic AcademicSource, roster RosterSource, files fileStorage, signer *storage.SignedURLSigner, publisher EventPublisher, metrics *MetricsService, cfg RenderConfig, logger *zap.Logger, pdf documentRenderer) *RenderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pdf == nil {
		pdf = export.NewBulletinPDF()
	}
	cfg.APIPrefix = strings.TrimRight(cfg.APIPrefix, "/")
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &RenderService{
		bulletins: bulletins,
		academic:  academic,
		roster:    roster,
		storage:   files,
		pdf:       pdf,
		signer:    signer,
		events:    publisher,
		metrics:   metrics,
		cfg:       cfg,
		tracer:    otel.Tracer("github.com/noah-isme/sma-bulletin-api/internal/service/render"),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Render renders the bulletin to PDF, stores it and records its path.
func (s *RenderService) Render(ctx context.Context, bulletinID string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "bulletins.render", trace.WithAttributes(attribute.String("bulletin.id", bulletinID)))
	defer span.End()

	relPath, err := s.render(ctx, bulletinID)
	s.metrics.RecordRender(err == nil)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	span.SetAttributes(attribute.String("document.path", relPath))
	return relPath, nil
}

func (s *RenderService) render(ctx context.Context, bulletinID string) (string, error) {
	b, err := s.load(ctx, bulletinID)
	if err != nil {
		return "", err
	}
	doc, err := s.buildDocument(ctx, b)
	if err != nil {
		return "", err
	}
	payload, err := s.pdf.Render(doc)
	if err != nil {
		return "", internalError(err, "failed to render bulletin document")
	}
	relPath, err := s.storage.Save(documentKey(b), payload)
	if err != nil {
		return "", internalError(err, "failed to store bulletin document")
	}
	if err := s.bulletins.SetDocumentPath(ctx, b.ID, relPath); err != nil {
		return "", internalError(err, "failed to record bulletin document")
	}
	if s.events != nil {
		event := events.Event{
			Type:       events.TypeDocumentRendered,
			ClassID:    b.ClassID,
			PeriodID:   b.PeriodID,
			StudentID:  b.StudentID,
			BulletinID: b.ID,
			OccurredAt: s.now(),
		}
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.Sugar().Warnw("failed to publish render event", "bulletin_id", b.ID, "error", err)
		}
	}
	return relPath, nil
}

// HandleJob is the render queue handler.
func (s *RenderService) HandleJob(ctx context.Context, job jobs.Job) error {
	if job.Type != jobs.TypeBulletinRender {
		return fmt.Errorf("unsupported job type %s", job.Type)
	}
	_, err := s.Render(ctx, job.ID)
	return err
}

// DocumentLink returns a signed download URL for the bulletin, rendering it
// first when no document is stored yet. Students only reach their own
// published bulletins.
func (s *RenderService) DocumentLink(ctx context.Context, bulletinID string, claims *models.JWTClaims) (*dto.DocumentLinkResponse, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	b, err := s.load(ctx, bulletinID)
	if err != nil {
		return nil, err
	}
	if claims.Role == models.RoleStudent {
		if claims.UserID != b.StudentID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "bulletin belongs to another student")
		}
		if !b.Published {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "bulletin is not published yet")
		}
	}

	relPath := ""
	if b.RenderedDocumentPath != nil {
		relPath = *b.RenderedDocumentPath
	}
	if relPath == "" {
		if relPath, err = s.Render(ctx, b.ID); err != nil {
			return nil, err
		}
	}

	token, expiresAt, err := s.signer.Generate(b.ID, relPath)
	if err != nil {
		return nil, internalError(err, "failed to sign download link")
	}
	return &dto.DocumentLinkResponse{
		BulletinID: b.ID,
		URL:        fmt.Sprintf("%s/export/%s", s.cfg.APIPrefix, token),
		ExpiresAt:  expiresAt,
	}, nil
}

// ResolveDownload validates a signed token and opens the stored document.
// The caller closes the file.
func (s *RenderService) ResolveDownload(token string) (*os.File, string, error) {
	parsed, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download link")
	}
	file, err := s.storage.Open(parsed.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "document no longer available")
		}
		return nil, "", internalError(err, "failed to open document")
	}
	return file, path.Base(parsed.Path), nil
}

func (s *RenderService) load(ctx context.Context, bulletinID string) (*models.Bulletin, error) {
	b, err := s.bulletins.GetByID(ctx, bulletinID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "bulletin not found")
		}
		return nil, internalError(err, "failed to load bulletin")
	}
	return b, nil
}

func (s *RenderService) buildDocument(ctx context.Context, b *models.Bulletin) (export.BulletinDocument, error) {
	class, err := s.academic.FindClass(ctx, b.ClassID)
	if err != nil {
		return export.BulletinDocument{}, lookupError(err, "class")
	}
	period, err := s.academic.FindPeriod(ctx, b.PeriodID)
	if err != nil {
		return export.BulletinDocument{}, lookupError(err, "period")
	}
	year, err := s.academic.FindSchoolYear(ctx, period.SchoolYearID)
	if err != nil {
		return export.BulletinDocument{}, lookupError(err, "school year")
	}
	roster, err := s.roster.ListValidated(ctx, b.ClassID, b.PeriodID)
	if err != nil {
		return export.BulletinDocument{}, internalError(err, "failed to load class roster")
	}
	studentName := b.StudentID
	for _, entry := range roster {
		if entry.StudentID == b.StudentID {
			studentName = entry.StudentName
			break
		}
	}

	doc := export.BulletinDocument{
		SchoolName:          s.cfg.SchoolName,
		SchoolYear:          year.Name,
		ClassName:           class.Name,
		PeriodName:          period.Name,
		StudentID:           b.StudentID,
		StudentName:         studentName,
		TotalCoefficients:   b.TotalCoefficients,
		TotalWeightedPoints: b.TotalWeightedPoints,
		OverallAverage:      b.OverallAverage,
		Mention:             b.Mention,
		Ranked:              b.Ranked(),
		Rank:                b.Rank,
		ClassSize:           b.ClassSize,
		ClassAverage:        b.ClassAverage,
		ClassTop:            b.ClassTopAverage,
		ClassBottom:         b.ClassBottomAverage,
		JustifiedAbsences:   b.JustifiedAbsences,
		UnjustifiedAbsences: b.UnjustifiedAbsences,
		LateArrivals:        b.LateArrivals,
		GeneratedAt:         b.GeneratedAt,
	}
	for _, line := range b.Lines {
		doc.Lines = append(doc.Lines, export.BulletinLine{
			Subject:        line.SubjectName,
			Coefficient:    line.Coefficient,
			Average:        line.Average,
			WeightedPoints: line.WeightedPoints,
		})
	}
	return doc, nil
}

func documentKey(b *models.Bulletin) string {
	return fmt.Sprintf("%s/%s/%s.pdf", sanitizeFilename(b.ClassID), sanitizeFilename(b.PeriodID), sanitizeFilename(b.StudentID))
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
