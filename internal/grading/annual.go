package grading

import "sort"

// DefaultPeriodCount is the usual number of grading periods per school year.
const DefaultPeriodCount = 3

// PeriodReport is the slice of a stored period report the annual aggregator needs.
type PeriodReport struct {
	PeriodID       string
	Index          int
	OverallAverage float64
	Attendance     AttendanceCounts
}

// PeriodAverage is one period row of an annual report.
type PeriodAverage struct {
	PeriodID string  `json:"periodId"`
	Index    int     `json:"index"`
	Average  float64 `json:"average"`
}

// AnnualReport is the computed projection over a full school year.
type AnnualReport struct {
	StudentID     string           `json:"studentId"`
	ClassID       string           `json:"classId"`
	SchoolYearID  string           `json:"schoolYearId"`
	Periods       []PeriodAverage  `json:"periods"`
	AnnualAverage float64          `json:"annualAverage"`
	Mention       string           `json:"mention"`
	Decision      string           `json:"decision"`
	Attendance    AttendanceCounts `json:"attendance"`
}

// AnnualInput identifies the student year and carries its period reports.
type AnnualInput struct {
	StudentID    string
	ClassID      string
	SchoolYearID string
	Reports      []PeriodReport
}

// Annual combines exactly n period reports, one per period index 1..n.
func Annual(in AnnualInput, n int, decisions *DecisionPolicy, mentions *MentionScale) (*AnnualReport, error) {
	if n < 1 {
		n = DefaultPeriodCount
	}
	byIndex := make(map[int]PeriodReport, n)
	for _, r := range in.Reports {
		if r.Index < 1 || r.Index > n {
			continue
		}
		if _, dup := byIndex[r.Index]; !dup {
			byIndex[r.Index] = r
		}
	}
	if len(byIndex) < n {
		return nil, &IncompletePeriodsError{Required: n, Found: len(byIndex)}
	}

	ordered := make([]PeriodReport, 0, n)
	for _, r := range byIndex {
		ordered = append(ordered, r)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	report := &AnnualReport{StudentID: in.StudentID, ClassID: in.ClassID, SchoolYearID: in.SchoolYearID}
	averages := make([]float64, 0, n)
	var sum float64
	for _, r := range ordered {
		report.Periods = append(report.Periods, PeriodAverage{PeriodID: r.PeriodID, Index: r.Index, Average: r.OverallAverage})
		averages = append(averages, r.OverallAverage)
		sum += r.OverallAverage
		report.Attendance.JustifiedAbsences += r.Attendance.JustifiedAbsences
		report.Attendance.UnjustifiedAbsences += r.Attendance.UnjustifiedAbsences
		report.Attendance.LateArrivals += r.Attendance.LateArrivals
	}
	report.AnnualAverage = Round2(sum / float64(n))

	decision, err := decisions.Decide(report.AnnualAverage, averages)
	if err != nil {
		return nil, err
	}
	report.Decision = decision
	report.Mention = mentions.Resolve(report.AnnualAverage)
	return report, nil
}
