package dto

import (
	"time"

	"github.com/noah-isme/sma-bulletin-api/internal/grading"
	"github.com/noah-isme/sma-bulletin-api/internal/models"
)

// GenerateClassRequest captures POST /bulletins/classes/{classId}/periods/{periodId}/generate.
// ClassID and PeriodID come from the path.
type GenerateClassRequest struct {
	ClassID        string `json:"-" validate:"required,max=64"`
	PeriodID       string `json:"-" validate:"required,max=64"`
	Force          bool   `json:"force"`
	HardRegenerate bool   `json:"hardRegenerate"`
	Async          bool   `json:"async"`
}

// Options returns the regeneration switches.
func (r GenerateClassRequest) Options() models.GenerationOptions {
	return models.GenerationOptions{Force: r.Force, HardRegenerate: r.HardRegenerate}
}

// GenerateStudentRequest captures a single student (re)generation. Published
// bulletins are only regenerated through the class run.
type GenerateStudentRequest struct {
	StudentID      string `json:"-" validate:"required,max=64"`
	ClassID        string `json:"-" validate:"required,max=64"`
	PeriodID       string `json:"-" validate:"required,max=64"`
	HardRegenerate bool   `json:"hardRegenerate"`
}

// StudentPreview summarises what generation would produce for one student.
type StudentPreview struct {
	StudentID          string  `json:"studentId"`
	StudentName        string  `json:"studentName"`
	Ready              bool    `json:"ready"`
	Code               string  `json:"code,omitempty"`
	Reason             string  `json:"reason,omitempty"`
	SubjectCount       int     `json:"subjectCount"`
	Evaluations        int     `json:"evaluations"`
	ProvisionalAverage float64 `json:"provisionalAverage"`
	Mention            string  `json:"mention,omitempty"`
}

// ClassPreviewResponse is the read-only readiness view of a class period.
type ClassPreviewResponse struct {
	ClassID     string           `json:"classId"`
	PeriodID    string           `json:"periodId"`
	Window      grading.Window   `json:"window"`
	ReadyCount  int              `json:"readyCount"`
	Students    []StudentPreview `json:"students"`
	GeneratedAt time.Time        `json:"generatedAt"`
}

// ClassGenerationResult reports a completed class generation.
type ClassGenerationResult struct {
	ClassID      string            `json:"classId"`
	PeriodID     string            `json:"periodId"`
	Generated    int               `json:"generated"`
	ClassAverage float64           `json:"classAverage"`
	ClassTop     float64           `json:"classTop"`
	ClassBottom  float64           `json:"classBottom"`
	RemovedStale int64             `json:"removedStale"`
	Bulletins    []models.Bulletin `json:"bulletins"`
}

// GenerationJobResponse exposes asynchronous generation progress.
type GenerationJobResponse struct {
	ID       string                    `json:"id"`
	ClassID  string                    `json:"classId"`
	PeriodID string                    `json:"periodId"`
	Status   models.JobStatus          `json:"status"`
	Progress int                       `json:"progress"`
	Summary  *models.GenerationSummary `json:"summary,omitempty"`
	Error    *string                   `json:"error,omitempty"`
}

// PublishResponse reports how many bulletins were published.
type PublishResponse struct {
	ClassID   string `json:"classId"`
	PeriodID  string `json:"periodId"`
	Published int64  `json:"published"`
}

// DocumentLinkResponse carries a signed download URL for a rendered bulletin.
type DocumentLinkResponse struct {
	BulletinID string    `json:"bulletinId"`
	URL        string    `json:"url"`
	ExpiresAt  time.Time `json:"expiresAt"`
}
