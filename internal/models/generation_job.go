package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JobStatus captures background job lifecycle states.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "QUEUED"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusFinished   JobStatus = "FINISHED"
	JobStatusFailed     JobStatus = "FAILED"
)

// GenerationOptions are the caller's switches for a class generation run.
type GenerationOptions struct {
	Force          bool `json:"force"`
	HardRegenerate bool `json:"hardRegenerate"`
}

// Value marshals options to JSON for persistence.
func (o GenerationOptions) Value() (driver.Value, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("marshal generation options: %w", err)
	}
	return data, nil
}

// Scan unmarshals the JSONB column.
func (o *GenerationOptions) Scan(value interface{}) error {
	*o = GenerationOptions{}
	_, err := scanJSON(value, o, "generation options")
	return err
}

// StudentFailure explains why one student's bulletin could not be built.
type StudentFailure struct {
	StudentID string `json:"studentId"`
	Code      string `json:"code"`
	Reason    string `json:"reason"`
}

// GenerationSummary is the outcome of a finished class generation job.
type GenerationSummary struct {
	Generated    int              `json:"generated"`
	ClassAverage float64          `json:"classAverage"`
	Failures     []StudentFailure `json:"failures,omitempty"`
}

// Value marshals the summary to JSON for persistence.
func (s GenerationSummary) Value() (driver.Value, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal generation summary: %w", err)
	}
	return data, nil
}

// Scan unmarshals the JSONB column.
func (s *GenerationSummary) Scan(value interface{}) error {
	*s = GenerationSummary{}
	_, err := scanJSON(value, s, "generation summary")
	return err
}

// GenerationJob is a persisted asynchronous class generation request.
type GenerationJob struct {
	ID           string             `db:"id" json:"id"`
	ClassID      string             `db:"class_id" json:"class_id"`
	PeriodID     string             `db:"period_id" json:"period_id"`
	Options      GenerationOptions  `db:"options" json:"options"`
	Status       JobStatus          `db:"status" json:"status"`
	Progress     int                `db:"progress" json:"progress"`
	Summary      *GenerationSummary `db:"summary" json:"summary,omitempty"`
	CreatedBy    string             `db:"created_by" json:"created_by"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time         `db:"finished_at" json:"finished_at,omitempty"`
	ErrorMessage *string            `db:"error_message" json:"error_message,omitempty"`
}
