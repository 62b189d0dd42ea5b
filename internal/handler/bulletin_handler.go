package handler

import (
	"bytes"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-bulletin-api/internal/dto"
	"github.com/noah-isme/sma-bulletin-api/internal/grading"
	"github.com/noah-isme/sma-bulletin-api/internal/models"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
	"github.com/noah-isme/sma-bulletin-api/pkg/response"
)

type bulletinService interface {
	PreviewClassPeriod(ctx context.Context, classID, periodID string) (*dto.ClassPreviewResponse, error)
	GenerateForClass(ctx context.Context, req dto.GenerateClassRequest) (*dto.ClassGenerationResult, error)
	GenerateForStudent(ctx context.Context, req dto.GenerateStudentRequest) (*models.Bulletin, error)
	GenerateAnnual(ctx context.Context, studentID, classID, schoolYearID string) (*grading.AnnualReport, error)
	ListClassPeriod(ctx context.Context, classID, periodID string) ([]models.Bulletin, error)
	PublishClassPeriod(ctx context.Context, classID, periodID string) (*dto.PublishResponse, error)
	ExportClassSheet(ctx context.Context, classID, periodID string) ([]byte, string, error)
}

type generationJobService interface {
	Create(ctx context.Context, req dto.GenerateClassRequest, actorID string) (*dto.GenerationJobResponse, error)
	GetStatus(ctx context.Context, id, actorID string, role models.UserRole) (*dto.GenerationJobResponse, error)
}

type documentService interface {
	DocumentLink(ctx context.Context, bulletinID string, claims *models.JWTClaims) (*dto.DocumentLinkResponse, error)
}

// BulletinHandler exposes bulletin generation endpoints.
type BulletinHandler struct {
	bulletins bulletinService
	jobs      generationJobService
	documents documentService
}

// NewBulletinHandler constructs the handler. jobs and documents may be nil
// when async generation or rendering is disabled.
func NewBulletinHandler(bulletins bulletinService, jobs generationJobService, documents documentService) *BulletinHandler {
	return &BulletinHandler{bulletins: bulletins, jobs: jobs, documents: documents}
}

// Preview godoc
// @Summary Preview class period bulletins
// @Description Computes provisional figures for every validated student without storing anything.
// @Tags Bulletins
// @Produce json
// @Param classId path string true "Class ID"
// @Param periodId path string true "Period ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bulletins/classes/{classId}/periods/{periodId}/preview [get]
func (h *BulletinHandler) Preview(c *gin.Context) {
	preview, err := h.bulletins.PreviewClassPeriod(c.Request.Context(), c.Param("classId"), c.Param("periodId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview, nil)
}

// ListClassPeriod godoc
// @Summary List stored class period bulletins
// @Tags Bulletins
// @Produce json
// @Param classId path string true "Class ID"
// @Param periodId path string true "Period ID"
// @Success 200 {object} response.Envelope
// @Router /bulletins/classes/{classId}/periods/{periodId} [get]
func (h *BulletinHandler) ListClassPeriod(c *gin.Context) {
	bulletins, err := h.bulletins.ListClassPeriod(c.Request.Context(), c.Param("classId"), c.Param("periodId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bulletins, nil, map[string]interface{}{"count": len(bulletins)})
}

// GenerateClass godoc
// @Summary Generate and rank class period bulletins
// @Description Builds every student's bulletin, ranks the class and stores the batch atomically. With async=true a job is queued instead.
// @Tags Bulletins
// @Accept json
// @Produce json
// @Param classId path string true "Class ID"
// @Param periodId path string true "Period ID"
// @Param payload body dto.GenerateClassRequest false "Generation options"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bulletins/classes/{classId}/periods/{periodId}/generate [post]
func (h *BulletinHandler) GenerateClass(c *gin.Context) {
	var req dto.GenerateClassRequest
	if err := bindOptional(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	req.ClassID = c.Param("classId")
	req.PeriodID = c.Param("periodId")

	if req.Async {
		if h.jobs == nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "asynchronous generation is not enabled"))
			return
		}
		claims := claimsFromContext(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}
		job, err := h.jobs.Create(c.Request.Context(), req, claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusAccepted, job, nil)
		return
	}

	result, err := h.bulletins.GenerateForClass(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// GenerateStudent godoc
// @Summary Generate one student's draft bulletin
// @Tags Bulletins
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param classId path string true "Class ID"
// @Param periodId path string true "Period ID"
// @Param payload body dto.GenerateStudentRequest false "Generation options"
// @Success 200 {object} response.Envelope
// @Router /bulletins/students/{studentId}/classes/{classId}/periods/{periodId}/generate [post]
func (h *BulletinHandler) GenerateStudent(c *gin.Context) {
	var req dto.GenerateStudentRequest
	if err := bindOptional(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	req.StudentID = c.Param("studentId")
	req.ClassID = c.Param("classId")
	req.PeriodID = c.Param("periodId")

	bulletin, err := h.bulletins.GenerateForStudent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bulletin, nil)
}

// Publish godoc
// @Summary Publish class period bulletins
// @Tags Bulletins
// @Produce json
// @Param classId path string true "Class ID"
// @Param periodId path string true "Period ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /bulletins/classes/{classId}/periods/{periodId}/publish [post]
func (h *BulletinHandler) Publish(c *gin.Context) {
	result, err := h.bulletins.PublishClassPeriod(c.Request.Context(), c.Param("classId"), c.Param("periodId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Sheet godoc
// @Summary Download the class period sheet as CSV
// @Tags Bulletins
// @Produce text/csv
// @Param classId path string true "Class ID"
// @Param periodId path string true "Period ID"
// @Success 200 {file} binary
// @Router /bulletins/classes/{classId}/periods/{periodId}/sheet [get]
func (h *BulletinHandler) Sheet(c *gin.Context) {
	content, filename, err := h.bulletins.ExportClassSheet(c.Request.Context(), c.Param("classId"), c.Param("periodId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, "text/csv; charset=utf-8", int64(len(content)), bytes.NewReader(content))
}

// Annual godoc
// @Summary Annual result and promotion decision
// @Tags Bulletins
// @Produce json
// @Param studentId path string true "Student ID"
// @Param classId path string true "Class ID"
// @Param yearId path string true "School year ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bulletins/students/{studentId}/classes/{classId}/years/{yearId}/annual [get]
func (h *BulletinHandler) Annual(c *gin.Context) {
	report, err := h.bulletins.GenerateAnnual(c.Request.Context(), c.Param("studentId"), c.Param("classId"), c.Param("yearId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// JobStatus godoc
// @Summary Asynchronous generation job status
// @Tags Bulletins
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /bulletins/jobs/{id} [get]
func (h *BulletinHandler) JobStatus(c *gin.Context) {
	if h.jobs == nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	job, err := h.jobs.GetStatus(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Document godoc
// @Summary Signed download link for a rendered bulletin
// @Tags Bulletins
// @Produce json
// @Param id path string true "Bulletin ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /bulletins/{id}/document [get]
func (h *BulletinHandler) Document(c *gin.Context) {
	if h.documents == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "document rendering is not enabled"))
		return
	}
	link, err := h.documents.DocumentLink(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// bindOptional decodes a JSON body when one is present.
func bindOptional(c *gin.Context, dest interface{}) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}
	return nil
}
