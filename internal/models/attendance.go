package models

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "H"
	AttendanceStatusSick    AttendanceStatus = "S"
	AttendanceStatusExcused AttendanceStatus = "I"
	AttendanceStatusAbsent  AttendanceStatus = "A"
	AttendanceStatusLate    AttendanceStatus = "L"
)

// Justified reports whether the status counts as a justified absence.
func (s AttendanceStatus) Justified() bool {
	return s == AttendanceStatusSick || s == AttendanceStatusExcused
}
