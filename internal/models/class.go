package models

import "time"

// Class is a class section with the axes used to resolve coefficients.
type Class struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	SchoolYearID string    `db:"school_year_id" json:"school_year_id"`
	Cycle        string    `db:"cycle" json:"cycle"`
	GradeLevel   string    `db:"grade_level" json:"grade_level"`
	Track        string    `db:"track" json:"track"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// SchoolYear bounds a set of grading periods.
type SchoolYear struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	StartDate   time.Time `db:"start_date" json:"start_date"`
	EndDate     time.Time `db:"end_date" json:"end_date"`
	PeriodCount int       `db:"period_count" json:"period_count"`
}

// Period is one grading period (trimester) of a school year. Index is 1-based.
type Period struct {
	ID           string `db:"id" json:"id"`
	SchoolYearID string `db:"school_year_id" json:"school_year_id"`
	Index        int    `db:"period_index" json:"index"`
	Name         string `db:"name" json:"name"`
}

// RosterEntry is a validated enrollment of a student in a class.
type RosterEntry struct {
	StudentID   string `db:"student_id" json:"student_id"`
	StudentName string `db:"student_name" json:"student_name"`
}
