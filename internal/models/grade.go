package models

import "time"

// GradeRecord is a single evaluation result as stored by the grade book.
type GradeRecord struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	ClassID      string    `db:"class_id" json:"class_id"`
	PeriodID     string    `db:"period_id" json:"period_id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	SubjectName  string    `db:"subject_name" json:"subject_name"`
	SubjectOrder int       `db:"subject_order" json:"subject_order"`
	Kind         string    `db:"kind" json:"kind"`
	Score        float64   `db:"score" json:"score"`
	Published    bool      `db:"published" json:"published"`
	RecordedAt   time.Time `db:"recorded_at" json:"recorded_at"`
}

// SubjectCoefficient is one row of the coefficient rule table.
type SubjectCoefficient struct {
	SubjectID   string  `db:"subject_id" json:"subject_id"`
	Cycle       string  `db:"cycle" json:"cycle"`
	GradeLevel  string  `db:"grade_level" json:"grade_level"`
	Track       string  `db:"track" json:"track"`
	Coefficient float64 `db:"coefficient" json:"coefficient"`
}
