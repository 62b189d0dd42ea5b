package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-bulletin-api/internal/dto"
	"github.com/noah-isme/sma-bulletin-api/internal/grading"
	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/internal/repository"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
	"github.com/noah-isme/sma-bulletin-api/pkg/events"
	"github.com/noah-isme/sma-bulletin-api/pkg/export"
	"github.com/noah-isme/sma-bulletin-api/pkg/jobs"
	"github.com/noah-isme/sma-bulletin-api/pkg/lock"
)

// GradeSource yields published grades for one student in a class period.
type GradeSource interface {
	FetchPublished(ctx context.Context, classID, periodID, studentID string) ([]models.GradeRecord, error)
	PublishedFingerprint(ctx context.Context, classID, periodID string) (string, error)
}

// CoefficientSource yields the stored coefficient rule rows.
type CoefficientSource interface {
	List(ctx context.Context) ([]models.SubjectCoefficient, error)
}

// AttendanceSource counts attendance events inside a date window.
type AttendanceSource interface {
	Count(ctx context.Context, studentID, classID string, window grading.Window) (grading.AttendanceCounts, error)
}

// RosterSource lists the students validated in a class for a period.
type RosterSource interface {
	ListValidated(ctx context.Context, classID, periodID string) ([]models.RosterEntry, error)
}

// AcademicSource resolves classes, periods and school years.
type AcademicSource interface {
	FindClass(ctx context.Context, id string) (*models.Class, error)
	FindPeriod(ctx context.Context, id string) (*models.Period, error)
	FindSchoolYear(ctx context.Context, id string) (*models.SchoolYear, error)
	ListPeriods(ctx context.Context, schoolYearID string) ([]models.Period, error)
}

// BulletinStore persists bulletins.
type BulletinStore interface {
	UpsertBatch(ctx context.Context, tx *sqlx.Tx, bulletins []*models.Bulletin, opts repository.UpsertOptions) error
	DeleteStale(ctx context.Context, tx *sqlx.Tx, classID, periodID string, keep []string) (int64, error)
	Get(ctx context.Context, studentID, classID, periodID string) (*models.Bulletin, error)
	GetByID(ctx context.Context, id string) (*models.Bulletin, error)
	ListByClassPeriod(ctx context.Context, classID, periodID string) ([]models.Bulletin, error)
	ListByStudentYear(ctx context.Context, studentID, classID, schoolYearID string) ([]models.PeriodBulletin, error)
	MarkPublished(ctx context.Context, classID, periodID string, at time.Time) (int64, error)
}

// EventPublisher emits bulletin lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// JobDispatcher enqueues background jobs.
type JobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// TxRunner runs fn inside a single database transaction.
type TxRunner func(ctx context.Context, fn func(tx *sqlx.Tx) error) error

// BulletinDependencies wires the collaborators of BulletinService. Cache,
// Metrics, Events and Renders are optional.
type BulletinDependencies struct {
	Grades       GradeSource
	Coefficients CoefficientSource
	Attendance   AttendanceSource
	Roster       RosterSource
	Academic     AcademicSource
	Bulletins    BulletinStore
	Tx           TxRunner
	Locker       lock.Locker
	Rules        *GradingRules
	Cache        *CacheService
	Metrics      *MetricsService
	Events       EventPublisher
	Renders      JobDispatcher
	Validator    *validator.Validate
	Logger       *zap.Logger
}

// BulletinServiceConfig tunes the generation pipeline.
type BulletinServiceConfig struct {
	Workers        int
	PeriodCount    int
	TiePolicy      grading.TiePolicy
	MinEvaluations int
	PreviewTTL     time.Duration
	RenderEnabled  bool
}

// BulletinService computes, ranks and stores bulletins.
type BulletinService struct {
	deps   BulletinDependencies
	cfg    BulletinServiceConfig
	sheets *export.CSVExporter
	tracer trace.Tracer
	logger *zap.Logger
	now    func() time.Time
}

// NewBulletinService constructs the service.
func NewBulletinService(deps BulletinDependencies, cfg BulletinServiceConfig) *BulletinService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Rules == nil {
		deps.Rules = DefaultGradingRules()
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewLocalLocker(lock.Options{})
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.PeriodCount <= 0 {
		cfg.PeriodCount = grading.DefaultPeriodCount
	}
	if cfg.TiePolicy == "" {
		cfg.TiePolicy = grading.TieSequential
	}
	return &BulletinService{
		deps:   deps,
		cfg:    cfg,
		sheets: export.NewCSVExporter(','),
		tracer: otel.Tracer("github.com/noah-isme/sma-bulletin-api/internal/service/bulletin"),
		logger: deps.Logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type classContext struct {
	class   *models.Class
	period  *models.Period
	year    *models.SchoolYear
	scope   grading.Scope
	window  grading.Window
	builder *grading.Builder
}

type studentOutcome struct {
	report  *grading.Report
	failure *models.StudentFailure
}

// PreviewClassPeriod computes draft figures for every validated student without
// writing anything. Students that cannot be built are reported as not ready.
func (s *BulletinService) PreviewClassPeriod(ctx context.Context, classID, periodID string) (*dto.ClassPreviewResponse, error) {
	ctx, span := s.tracer.Start(ctx, "bulletins.preview", trace.WithAttributes(
		attribute.String("class.id", classID),
		attribute.String("period.id", periodID),
	))
	defer span.End()

	key, cacheable := s.previewKey(ctx, classID, periodID)
	var cached dto.ClassPreviewResponse
	if cacheable && s.deps.Cache.Get(ctx, key, &cached) {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return &cached, nil
	}

	cc, err := s.loadClassContext(ctx, classID, periodID)
	if err != nil {
		return nil, s.fail(span, err)
	}
	roster, err := s.loadRoster(ctx, classID, periodID)
	if err != nil {
		return nil, s.fail(span, err)
	}
	outcomes, err := s.buildRoster(ctx, cc, roster)
	if err != nil {
		return nil, s.fail(span, err)
	}

	resp := &dto.ClassPreviewResponse{
		ClassID:     classID,
		PeriodID:    periodID,
		Window:      cc.window,
		Students:    make([]dto.StudentPreview, 0, len(roster)),
		GeneratedAt: s.now(),
	}
	for i, entry := range roster {
		preview := dto.StudentPreview{StudentID: entry.StudentID, StudentName: entry.StudentName}
		if failure := outcomes[i].failure; failure != nil {
			preview.Code = failure.Code
			preview.Reason = failure.Reason
		} else {
			report := outcomes[i].report
			preview.Ready = true
			preview.SubjectCount = len(report.Lines)
			preview.Evaluations = report.Evaluations
			preview.ProvisionalAverage = report.OverallAverage
			preview.Mention = report.Mention
			resp.ReadyCount++
		}
		resp.Students = append(resp.Students, preview)
	}

	if cacheable {
		s.deps.Cache.Set(ctx, key, resp, s.cfg.PreviewTTL)
	}
	return resp, nil
}

// previewKey ties the cached preview to the published grades it was built
// from. Grades published by the grade book produce a new key.
func (s *BulletinService) previewKey(ctx context.Context, classID, periodID string) (string, bool) {
	if !s.deps.Cache.Enabled() {
		return "", false
	}
	fingerprint, err := s.deps.Grades.PublishedFingerprint(ctx, classID, periodID)
	if err != nil {
		s.logger.Sugar().Warnw("failed to fingerprint published grades, skipping preview cache", "class_id", classID, "period_id", periodID, "error", err)
		return "", false
	}
	return PreviewCacheKey(classID, periodID, fingerprint), true
}

// GenerateForClass builds every student's bulletin in parallel, ranks the
// complete class and stores the result in one transaction. Any student that
// cannot be built aborts the run before anything is written.
func (s *BulletinService) GenerateForClass(ctx context.Context, req dto.GenerateClassRequest) (*dto.ClassGenerationResult, error) {
	if err := s.deps.Validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation request")
	}
	ctx, span := s.tracer.Start(ctx, "bulletins.generate_class", trace.WithAttributes(
		attribute.String("class.id", req.ClassID),
		attribute.String("period.id", req.PeriodID),
		attribute.Bool("force", req.Force),
	))
	defer span.End()

	start := time.Now()
	result, err := s.generateClass(ctx, req)
	if err != nil {
		s.deps.Metrics.RecordGenerationFailure(appErrors.FromError(err).Code)
		return nil, s.fail(span, err)
	}
	s.deps.Metrics.ObserveGeneration("class", result.Generated, time.Since(start))
	span.SetAttributes(attribute.Int("bulletins.generated", result.Generated))
	s.logger.Sugar().Infow("class bulletins generated",
		"class_id", req.ClassID,
		"period_id", req.PeriodID,
		"generated", result.Generated,
		"class_average", result.ClassAverage,
		"duration", time.Since(start),
	)
	return result, nil
}

func (s *BulletinService) generateClass(ctx context.Context, req dto.GenerateClassRequest) (*dto.ClassGenerationResult, error) {
	release, err := s.acquire(ctx, req.ClassID, req.PeriodID)
	if err != nil {
		return nil, err
	}
	defer s.unlock(ctx, release, req.ClassID, req.PeriodID)

	cc, err := s.loadClassContext(ctx, req.ClassID, req.PeriodID)
	if err != nil {
		return nil, err
	}
	roster, err := s.loadRoster(ctx, req.ClassID, req.PeriodID)
	if err != nil {
		return nil, err
	}
	if len(roster) == 0 {
		return nil, appErrors.Clone(appErrors.ErrIncompleteClass, "class has no validated enrollments for the period")
	}

	existing, err := s.deps.Bulletins.ListByClassPeriod(ctx, req.ClassID, req.PeriodID)
	if err != nil {
		return nil, internalError(err, "failed to load existing bulletins")
	}
	if !req.Force {
		if published := publishedStudents(existing); len(published) > 0 {
			return nil, appErrors.WithDetails(
				appErrors.Clone(appErrors.ErrBulletinPublished, "class period has published bulletins; set force to regenerate"),
				map[string]interface{}{"students": published},
			)
		}
	}

	outcomes, err := s.buildRoster(ctx, cc, roster)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(roster))
	reports := make([]*grading.Report, 0, len(roster))
	var failures []models.StudentFailure
	for i, entry := range roster {
		ids = append(ids, entry.StudentID)
		if outcomes[i].failure != nil {
			failures = append(failures, *outcomes[i].failure)
			continue
		}
		reports = append(reports, outcomes[i].report)
	}
	if len(failures) > 0 {
		return nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrIncompleteClass, fmt.Sprintf("%d of %d students could not be built; nothing was written", len(failures), len(roster))),
			failures,
		)
	}

	ranked, stats, err := grading.RankClass(reports, ids, s.cfg.TiePolicy)
	if err != nil {
		return nil, translateGradingError(err, "failed to rank class")
	}
	bulletins := make([]*models.Bulletin, 0, len(ranked))
	for _, report := range ranked {
		bulletins = append(bulletins, models.BulletinFromReport(report))
	}

	var removed int64
	txStart := time.Now()
	err = s.deps.Tx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if removed, err = s.deps.Bulletins.DeleteStale(ctx, tx, req.ClassID, req.PeriodID, ids); err != nil {
			return err
		}
		return s.deps.Bulletins.UpsertBatch(ctx, tx, bulletins, repository.UpsertOptions{HardRegenerate: req.HardRegenerate})
	})
	s.deps.Metrics.ObserveDBQuery("bulletin_class_store", time.Since(txStart))
	if err != nil {
		return nil, internalError(err, "failed to store bulletins")
	}

	s.invalidatePreview(ctx, req.ClassID, req.PeriodID)
	s.notify(ctx, events.Event{Type: events.TypeClassGenerated, ClassID: req.ClassID, PeriodID: req.PeriodID, Count: len(bulletins)})
	s.enqueueRenders(bulletins)

	result := &dto.ClassGenerationResult{
		ClassID:      req.ClassID,
		PeriodID:     req.PeriodID,
		Generated:    len(bulletins),
		ClassAverage: stats.Average,
		ClassTop:     stats.Top,
		ClassBottom:  stats.Bottom,
		RemovedStale: removed,
		Bulletins:    make([]models.Bulletin, 0, len(bulletins)),
	}
	for _, b := range bulletins {
		result.Bulletins = append(result.Bulletins, *b)
	}
	return result, nil
}

// GenerateForStudent builds and stores one student's bulletin as an unranked
// draft. Ranks and class figures only come from GenerateForClass.
func (s *BulletinService) GenerateForStudent(ctx context.Context, req dto.GenerateStudentRequest) (*models.Bulletin, error) {
	if err := s.deps.Validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation request")
	}
	ctx, span := s.tracer.Start(ctx, "bulletins.generate_student", trace.WithAttributes(
		attribute.String("student.id", req.StudentID),
		attribute.String("class.id", req.ClassID),
		attribute.String("period.id", req.PeriodID),
	))
	defer span.End()

	start := time.Now()
	bulletin, err := s.generateStudent(ctx, req)
	if err != nil {
		s.deps.Metrics.RecordGenerationFailure(appErrors.FromError(err).Code)
		return nil, s.fail(span, err)
	}
	s.deps.Metrics.ObserveGeneration("student", 1, time.Since(start))
	return bulletin, nil
}

func (s *BulletinService) generateStudent(ctx context.Context, req dto.GenerateStudentRequest) (*models.Bulletin, error) {
	release, err := s.acquire(ctx, req.ClassID, req.PeriodID)
	if err != nil {
		return nil, err
	}
	defer s.unlock(ctx, release, req.ClassID, req.PeriodID)

	cc, err := s.loadClassContext(ctx, req.ClassID, req.PeriodID)
	if err != nil {
		return nil, err
	}
	roster, err := s.loadRoster(ctx, req.ClassID, req.PeriodID)
	if err != nil {
		return nil, err
	}
	if !onRoster(roster, req.StudentID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student is not enrolled in the class for this period")
	}

	existing, err := s.deps.Bulletins.Get(ctx, req.StudentID, req.ClassID, req.PeriodID)
	switch {
	case err == nil:
		if existing.Published {
			return nil, appErrors.Clone(appErrors.ErrBulletinPublished, "bulletin is published; regenerate the whole class with force to keep its rank")
		}
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, internalError(err, "failed to load existing bulletin")
	}

	report, err := s.buildStudent(ctx, cc, req.StudentID)
	if err != nil {
		return nil, translateGradingError(err, "failed to build bulletin")
	}
	bulletin := models.BulletinFromReport(report)

	err = s.deps.Tx(ctx, func(tx *sqlx.Tx) error {
		return s.deps.Bulletins.UpsertBatch(ctx, tx, []*models.Bulletin{bulletin}, repository.UpsertOptions{HardRegenerate: req.HardRegenerate})
	})
	if err != nil {
		return nil, internalError(err, "failed to store bulletin")
	}

	s.invalidatePreview(ctx, req.ClassID, req.PeriodID)
	s.notify(ctx, events.Event{
		Type:       events.TypeStudentGenerated,
		ClassID:    req.ClassID,
		PeriodID:   req.PeriodID,
		StudentID:  req.StudentID,
		BulletinID: bulletin.ID,
		Count:      1,
	})
	s.enqueueRenders([]*models.Bulletin{bulletin})
	return bulletin, nil
}

// GenerateAnnual combines a student's stored period bulletins for the school
// year into an annual average, mention and promotion decision.
func (s *BulletinService) GenerateAnnual(ctx context.Context, studentID, classID, schoolYearID string) (*grading.AnnualReport, error) {
	ctx, span := s.tracer.Start(ctx, "bulletins.annual", trace.WithAttributes(
		attribute.String("student.id", studentID),
		attribute.String("class.id", classID),
		attribute.String("school_year.id", schoolYearID),
	))
	defer span.End()

	class, err := s.deps.Academic.FindClass(ctx, classID)
	if err != nil {
		return nil, s.fail(span, lookupError(err, "class"))
	}
	if class.SchoolYearID != schoolYearID {
		return nil, s.fail(span, appErrors.Clone(appErrors.ErrValidation, "class does not belong to the school year"))
	}
	year, err := s.deps.Academic.FindSchoolYear(ctx, schoolYearID)
	if err != nil {
		return nil, s.fail(span, lookupError(err, "school year"))
	}
	n, err := s.periodCount(ctx, year)
	if err != nil {
		return nil, s.fail(span, err)
	}

	rows, err := s.deps.Bulletins.ListByStudentYear(ctx, studentID, classID, schoolYearID)
	if err != nil {
		return nil, s.fail(span, internalError(err, "failed to load period bulletins"))
	}
	in := grading.AnnualInput{StudentID: studentID, ClassID: classID, SchoolYearID: schoolYearID}
	for _, row := range rows {
		in.Reports = append(in.Reports, grading.PeriodReport{
			PeriodID:       row.PeriodID,
			Index:          row.PeriodIndex,
			OverallAverage: row.OverallAverage,
			Attendance:     row.Attendance(),
		})
	}

	report, err := grading.Annual(in, n, s.deps.Rules.Decisions, s.deps.Rules.Mentions)
	if err != nil {
		return nil, s.fail(span, translateGradingError(err, "failed to evaluate promotion decision"))
	}
	span.SetAttributes(attribute.String("decision", report.Decision))
	return report, nil
}

// ListClassPeriod returns the stored bulletins of a class period, ranked first.
func (s *BulletinService) ListClassPeriod(ctx context.Context, classID, periodID string) ([]models.Bulletin, error) {
	bulletins, err := s.deps.Bulletins.ListByClassPeriod(ctx, classID, periodID)
	if err != nil {
		return nil, internalError(err, "failed to list bulletins")
	}
	return bulletins, nil
}

// PublishClassPeriod marks every bulletin of a fully ranked class period as
// published. Publishing is one-way.
func (s *BulletinService) PublishClassPeriod(ctx context.Context, classID, periodID string) (*dto.PublishResponse, error) {
	release, err := s.acquire(ctx, classID, periodID)
	if err != nil {
		return nil, err
	}
	defer s.unlock(ctx, release, classID, periodID)

	bulletins, err := s.deps.Bulletins.ListByClassPeriod(ctx, classID, periodID)
	if err != nil {
		return nil, internalError(err, "failed to list bulletins")
	}
	if len(bulletins) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no bulletins generated for the class period")
	}
	for _, b := range bulletins {
		if !b.Published && b.Status != grading.StatusRanked {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "class period has unranked bulletins; regenerate the class before publishing")
		}
	}

	count, err := s.deps.Bulletins.MarkPublished(ctx, classID, periodID, s.now())
	if err != nil {
		return nil, internalError(err, "failed to publish bulletins")
	}
	s.invalidatePreview(ctx, classID, periodID)
	s.notify(ctx, events.Event{Type: events.TypeClassPublished, ClassID: classID, PeriodID: periodID, Count: int(count)})
	return &dto.PublishResponse{ClassID: classID, PeriodID: periodID, Published: count}, nil
}

// ExportClassSheet renders the class period as a CSV sheet with one column per
// subject average. It returns the content and a suggested filename.
func (s *BulletinService) ExportClassSheet(ctx context.Context, classID, periodID string) ([]byte, string, error) {
	bulletins, err := s.deps.Bulletins.ListByClassPeriod(ctx, classID, periodID)
	if err != nil {
		return nil, "", internalError(err, "failed to list bulletins")
	}
	if len(bulletins) == 0 {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "no bulletins generated for the class period")
	}
	roster, err := s.loadRoster(ctx, classID, periodID)
	if err != nil {
		return nil, "", err
	}
	names := make(map[string]string, len(roster))
	for _, entry := range roster {
		names[entry.StudentID] = entry.StudentName
	}

	headers := []string{"rank", "student_id", "student_name"}
	seen := make(map[string]bool)
	for _, b := range bulletins {
		for _, line := range b.Lines {
			if !seen[line.SubjectID] {
				seen[line.SubjectID] = true
				headers = append(headers, line.SubjectID)
			}
		}
	}
	headers = append(headers, "total_coefficients", "total_weighted_points", "overall_average", "mention",
		"justified_absences", "unjustified_absences", "late_arrivals", "status", "published")

	rows := make([]map[string]string, 0, len(bulletins))
	for _, b := range bulletins {
		row := map[string]string{
			"student_id":            b.StudentID,
			"student_name":          names[b.StudentID],
			"total_coefficients":    export.Score(b.TotalCoefficients),
			"total_weighted_points": export.Score(b.TotalWeightedPoints),
			"overall_average":       export.Score(b.OverallAverage),
			"mention":               b.Mention,
			"justified_absences":    strconv.Itoa(b.JustifiedAbsences),
			"unjustified_absences":  strconv.Itoa(b.UnjustifiedAbsences),
			"late_arrivals":         strconv.Itoa(b.LateArrivals),
			"status":                string(b.Status),
			"published":             strconv.FormatBool(b.Published),
		}
		if b.Rank > 0 {
			row["rank"] = strconv.Itoa(b.Rank)
		}
		for _, line := range b.Lines {
			row[line.SubjectID] = export.Score(line.Average)
		}
		rows = append(rows, row)
	}

	content, err := s.sheets.Render(export.Dataset{Headers: headers, Rows: rows})
	if err != nil {
		return nil, "", internalError(err, "failed to render class sheet")
	}
	return content, fmt.Sprintf("bulletins_%s_%s.csv", classID, periodID), nil
}

func (s *BulletinService) loadClassContext(ctx context.Context, classID, periodID string) (*classContext, error) {
	class, err := s.deps.Academic.FindClass(ctx, classID)
	if err != nil {
		return nil, lookupError(err, "class")
	}
	period, err := s.deps.Academic.FindPeriod(ctx, periodID)
	if err != nil {
		return nil, lookupError(err, "period")
	}
	if period.SchoolYearID != class.SchoolYearID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "period does not belong to the class school year")
	}
	year, err := s.deps.Academic.FindSchoolYear(ctx, period.SchoolYearID)
	if err != nil {
		return nil, lookupError(err, "school year")
	}
	n, err := s.periodCount(ctx, year)
	if err != nil {
		return nil, err
	}
	window, err := grading.PeriodWindow(year.StartDate, year.EndDate, period.Index, n)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid period configuration")
	}

	cycle := grading.Cycle(strings.ToUpper(strings.TrimSpace(class.Cycle)))
	if !cycle.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("class has unsupported cycle %q", class.Cycle))
	}
	stored, err := s.deps.Coefficients.List(ctx)
	if err != nil {
		return nil, internalError(err, "failed to load coefficients")
	}
	table, err := s.deps.Rules.CoefficientTable(stored)
	if err != nil {
		return nil, internalError(err, "invalid coefficient configuration")
	}

	return &classContext{
		class:   class,
		period:  period,
		year:    year,
		scope:   grading.NewScope(cycle, class.GradeLevel, class.Track),
		window:  window,
		builder: grading.NewBuilder(table, s.deps.Rules.Mentions, grading.Policy{MinEvaluations: s.cfg.MinEvaluations}),
	}, nil
}

func (s *BulletinService) periodCount(ctx context.Context, year *models.SchoolYear) (int, error) {
	if year.PeriodCount > 0 {
		return year.PeriodCount, nil
	}
	periods, err := s.deps.Academic.ListPeriods(ctx, year.ID)
	if err != nil {
		return 0, internalError(err, "failed to list periods")
	}
	if len(periods) > 0 {
		return len(periods), nil
	}
	return s.cfg.PeriodCount, nil
}

func (s *BulletinService) loadRoster(ctx context.Context, classID, periodID string) ([]models.RosterEntry, error) {
	roster, err := s.deps.Roster.ListValidated(ctx, classID, periodID)
	if err != nil {
		return nil, internalError(err, "failed to load class roster")
	}
	return roster, nil
}

// buildRoster runs the per-student phase with bounded parallelism. Each
// goroutine writes only its own slot. Grading errors become per-student
// failures; any other error aborts the whole batch.
func (s *BulletinService) buildRoster(ctx context.Context, cc *classContext, roster []models.RosterEntry) ([]studentOutcome, error) {
	outcomes := make([]studentOutcome, len(roster))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, entry := range roster {
		i, entry := i, entry
		g.Go(func() error {
			report, err := s.buildStudent(gctx, cc, entry.StudentID)
			if err != nil {
				appErr := gradingError(err)
				if appErr == nil {
					return err
				}
				outcomes[i].failure = &models.StudentFailure{StudentID: entry.StudentID, Code: appErr.Code, Reason: err.Error()}
				return nil
			}
			outcomes[i].report = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, internalError(err, "failed to build bulletins")
	}
	return outcomes, nil
}

func (s *BulletinService) buildStudent(ctx context.Context, cc *classContext, studentID string) (*grading.Report, error) {
	records, err := s.deps.Grades.FetchPublished(ctx, cc.class.ID, cc.period.ID, studentID)
	if err != nil {
		return nil, fmt.Errorf("fetch grades for %s: %w", studentID, err)
	}
	counts, err := s.deps.Attendance.Count(ctx, studentID, cc.class.ID, cc.window)
	if err != nil {
		return nil, fmt.Errorf("count attendance for %s: %w", studentID, err)
	}
	grades := make([]grading.Grade, 0, len(records))
	for _, r := range records {
		grades = append(grades, grading.Grade{
			ID:           r.ID,
			SubjectID:    r.SubjectID,
			SubjectName:  r.SubjectName,
			SubjectOrder: r.SubjectOrder,
			Kind:         grading.EvaluationKind(strings.ToUpper(r.Kind)),
			Score:        r.Score,
			Published:    r.Published,
		})
	}
	return cc.builder.Build(grading.BuildInput{
		StudentID:  studentID,
		ClassID:    cc.class.ID,
		PeriodID:   cc.period.ID,
		Scope:      cc.scope,
		Grades:     grades,
		Attendance: counts,
	})
}

func (s *BulletinService) acquire(ctx context.Context, classID, periodID string) (lock.Release, error) {
	release, err := s.deps.Locker.Acquire(ctx, lock.ClassPeriodKey(classID, periodID))
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, appErrors.ErrGenerationInProgress
		}
		return nil, internalError(err, "failed to acquire generation lock")
	}
	return release, nil
}

func (s *BulletinService) unlock(ctx context.Context, release lock.Release, classID, periodID string) {
	if err := release(context.WithoutCancel(ctx)); err != nil {
		s.logger.Sugar().Warnw("failed to release generation lock", "class_id", classID, "period_id", periodID, "error", err)
	}
}

func (s *BulletinService) invalidatePreview(ctx context.Context, classID, periodID string) {
	s.deps.Cache.Invalidate(ctx, PreviewCachePattern(classID, periodID))
}

func (s *BulletinService) notify(ctx context.Context, event events.Event) {
	if s.deps.Events == nil {
		return
	}
	event.OccurredAt = s.now()
	if err := s.deps.Events.Publish(ctx, event); err != nil {
		s.logger.Sugar().Warnw("failed to publish bulletin event", "type", event.Type, "class_id", event.ClassID, "error", err)
	}
}

// enqueueRenders schedules document rendering after a committed store.
// Rendering failures never affect the stored bulletins.
func (s *BulletinService) enqueueRenders(bulletins []*models.Bulletin) {
	if !s.cfg.RenderEnabled || s.deps.Renders == nil {
		return
	}
	for _, b := range bulletins {
		if err := s.deps.Renders.Enqueue(jobs.Job{ID: b.ID, Type: jobs.TypeBulletinRender}); err != nil {
			s.logger.Sugar().Warnw("failed to enqueue bulletin render", "bulletin_id", b.ID, "error", err)
		}
	}
}

func (s *BulletinService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, appErrors.FromError(err).Code)
	return err
}

func publishedStudents(bulletins []models.Bulletin) []string {
	var ids []string
	for _, b := range bulletins {
		if b.Published {
			ids = append(ids, b.StudentID)
		}
	}
	return ids
}

func onRoster(roster []models.RosterEntry, studentID string) bool {
	for _, entry := range roster {
		if entry.StudentID == studentID {
			return true
		}
	}
	return false
}

// gradingError maps engine errors to their API error; nil means err is not a
// grading error.
func gradingError(err error) *appErrors.Error {
	var base *appErrors.Error
	switch {
	case errors.Is(err, grading.ErrOutOfRange):
		base = appErrors.ErrOutOfRange
	case errors.Is(err, grading.ErrUnresolvedCoefficient):
		base = appErrors.ErrUnresolvedCoefficient
	case errors.Is(err, grading.ErrInsufficientData):
		base = appErrors.ErrInsufficientData
	case errors.Is(err, grading.ErrIncompleteClass):
		base = appErrors.ErrIncompleteClass
	case errors.Is(err, grading.ErrIncompletePeriods):
		base = appErrors.ErrIncompletePeriods
	default:
		return nil
	}
	return appErrors.Clone(base, err.Error())
}

func translateGradingError(err error, fallback string) error {
	if appErr := gradingError(err); appErr != nil {
		return appErr
	}
	return internalError(err, fallback)
}

func lookupError(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, what+" not found")
	}
	return internalError(err, "failed to load "+what)
}

func internalError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
