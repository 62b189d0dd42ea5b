package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/noah-isme/sma-bulletin-api/internal/grading"
)

// SubjectLines is the ordered per-subject breakdown persisted as JSONB.
type SubjectLines []grading.SubjectLine

// Value marshals lines to JSON for persistence.
func (l SubjectLines) Value() (driver.Value, error) {
	if l == nil {
		l = SubjectLines{}
	}
	data, err := json.Marshal([]grading.SubjectLine(l))
	if err != nil {
		return nil, fmt.Errorf("marshal subject lines: %w", err)
	}
	return data, nil
}

// Scan unmarshals the JSONB column.
func (l *SubjectLines) Scan(value interface{}) error {
	var lines []grading.SubjectLine
	ok, err := scanJSON(value, &lines, "subject lines")
	if err != nil {
		return err
	}
	if !ok {
		*l = SubjectLines{}
		return nil
	}
	*l = lines
	return nil
}

// Bulletin is the persisted report of one student for one class and period.
type Bulletin struct {
	ID                   string         `db:"id" json:"id"`
	StudentID            string         `db:"student_id" json:"student_id"`
	ClassID              string         `db:"class_id" json:"class_id"`
	PeriodID             string         `db:"period_id" json:"period_id"`
	Lines                SubjectLines   `db:"subject_lines" json:"subject_lines"`
	Evaluations          int            `db:"evaluation_count" json:"evaluation_count"`
	TotalWeightedPoints  float64        `db:"total_weighted_points" json:"total_weighted_points"`
	TotalCoefficients    float64        `db:"total_coefficients" json:"total_coefficients"`
	OverallAverage       float64        `db:"overall_average" json:"overall_average"`
	Mention              string         `db:"mention" json:"mention"`
	Rank                 int            `db:"class_rank" json:"rank"`
	ClassSize            int            `db:"class_size" json:"class_size"`
	ClassAverage         float64        `db:"class_average" json:"class_average"`
	ClassTopAverage      float64        `db:"class_top_average" json:"class_top_average"`
	ClassBottomAverage   float64        `db:"class_bottom_average" json:"class_bottom_average"`
	JustifiedAbsences    int            `db:"justified_absences" json:"justified_absences"`
	UnjustifiedAbsences  int            `db:"unjustified_absences" json:"unjustified_absences"`
	LateArrivals         int            `db:"late_arrivals" json:"late_arrivals"`
	Status               grading.Status `db:"status" json:"status"`
	Published            bool           `db:"published" json:"published"`
	PublishedAt          *time.Time     `db:"published_at" json:"published_at,omitempty"`
	RenderedDocumentPath *string        `db:"rendered_document_path" json:"rendered_document_path,omitempty"`
	GeneratedAt          time.Time      `db:"generated_at" json:"generated_at"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
}

// BulletinFromReport maps a computed report onto a bulletin row. Persistence
// fields (id, published, document path) are left for the store to manage.
func BulletinFromReport(r *grading.Report) *Bulletin {
	if r == nil {
		return nil
	}
	return &Bulletin{
		StudentID:           r.StudentID,
		ClassID:             r.ClassID,
		PeriodID:            r.PeriodID,
		Lines:               SubjectLines(r.Lines),
		Evaluations:         r.Evaluations,
		TotalWeightedPoints: r.TotalWeightedPoints,
		TotalCoefficients:   r.TotalCoefficients,
		OverallAverage:      r.OverallAverage,
		Mention:             r.Mention,
		Rank:                r.Rank,
		ClassSize:           r.ClassSize,
		ClassAverage:        r.ClassAverage,
		ClassTopAverage:     r.ClassTopAverage,
		ClassBottomAverage:  r.ClassBottomAverage,
		JustifiedAbsences:   r.Attendance.JustifiedAbsences,
		UnjustifiedAbsences: r.Attendance.UnjustifiedAbsences,
		LateArrivals:        r.Attendance.LateArrivals,
		Status:              r.Status,
	}
}

// Attendance returns the stored attendance counts.
func (b *Bulletin) Attendance() grading.AttendanceCounts {
	return grading.AttendanceCounts{
		JustifiedAbsences:   b.JustifiedAbsences,
		UnjustifiedAbsences: b.UnjustifiedAbsences,
		LateArrivals:        b.LateArrivals,
	}
}

// Ranked reports whether the bulletin went through the class ranking pass.
func (b *Bulletin) Ranked() bool {
	return b.Status == grading.StatusRanked && b.Rank > 0
}

// PeriodBulletin is a stored bulletin joined with its period index, used for
// annual aggregation.
type PeriodBulletin struct {
	Bulletin
	PeriodIndex int `db:"period_index" json:"period_index"`
}
