package grading

import (
	"fmt"
	"time"
)

const day = 24 * time.Hour

// Window is an inclusive calendar date range.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls on a day within the window.
func (w Window) Contains(t time.Time) bool {
	d := dateOf(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

// Days returns the number of calendar days covered.
func (w Window) Days() int {
	if w.Empty() {
		return 0
	}
	return int(w.End.Sub(w.Start)/day) + 1
}

// Empty reports whether the window covers no day at all.
func (w Window) Empty() bool {
	return w.End.Before(w.Start)
}

// PeriodWindow splits the school year into n contiguous segments of
// ceil(totalWeeks/n) weeks and returns segment index (1-based). The first
// segment starts on yearStart and the last ends on yearEnd. In years too short
// for n full segments, segments starting after yearEnd are empty (Start is the
// day after yearEnd) so windows never overlap.
func PeriodWindow(yearStart, yearEnd time.Time, index, n int) (Window, error) {
	if n < 1 {
		return Window{}, fmt.Errorf("period count must be positive, got %d", n)
	}
	if index < 1 || index > n {
		return Window{}, fmt.Errorf("period index %d outside 1..%d", index, n)
	}
	start := dateOf(yearStart)
	end := dateOf(yearEnd)
	if end.Before(start) {
		return Window{}, fmt.Errorf("school year ends %s before it starts %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	totalDays := int(end.Sub(start)/day) + 1
	totalWeeks := ceilDiv(totalDays, 7)
	segmentDays := ceilDiv(totalWeeks, n) * 7

	segStart := func(k int) time.Time {
		return start.AddDate(0, 0, (k-1)*segmentDays)
	}

	w := Window{Start: segStart(index), End: end}
	if w.Start.After(end) {
		return Window{Start: end.AddDate(0, 0, 1), End: end}, nil
	}
	if index < n {
		w.End = minDate(segStart(index+1).AddDate(0, 0, -1), end)
	}
	return w, nil
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func minDate(a, b time.Time) time.Time {
	if a.After(b) {
		return b
	}
	return a
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
