package grading

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPeriodWindowSplitsYearIntoContiguousSegments(t *testing.T) {
	start, end := date(2024, time.September, 2), date(2025, time.June, 27)

	windows := make([]Window, 0, 3)
	for i := 1; i <= 3; i++ {
		w, err := PeriodWindow(start, end, i, 3)
		require.NoError(t, err)
		windows = append(windows, w)
	}

	assert.Equal(t, start, windows[0].Start)
	assert.Equal(t, date(2024, time.December, 15), windows[0].End)
	assert.Equal(t, date(2024, time.December, 16), windows[1].Start)
	assert.Equal(t, date(2025, time.March, 30), windows[1].End)
	assert.Equal(t, date(2025, time.March, 31), windows[2].Start)
	assert.Equal(t, end, windows[2].End)

	total := 0
	for i, w := range windows {
		total += w.Days()
		if i > 0 {
			assert.Equal(t, windows[i-1].End.AddDate(0, 0, 1), w.Start)
		}
	}
	assert.Equal(t, 299, total)
}

func TestPeriodWindowShortYearsNeverOverlap(t *testing.T) {
	start, end := date(2025, time.January, 6), date(2025, time.January, 15)

	first, err := PeriodWindow(start, end, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, start, first.Start)
	assert.Equal(t, date(2025, time.January, 12), first.End)

	second, err := PeriodWindow(start, end, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.January, 13), second.Start)
	assert.Equal(t, end, second.End)

	third, err := PeriodWindow(start, end, 3, 3)
	require.NoError(t, err)
	assert.True(t, third.Empty())
	assert.Zero(t, third.Days())
	assert.False(t, third.Contains(end))

	assert.Equal(t, 10, first.Days()+second.Days()+third.Days())
}

func TestPeriodWindowsAreDisjoint(t *testing.T) {
	start := date(2025, time.January, 6)
	for _, length := range []int{1, 6, 10, 20, 45, 300} {
		end := start.AddDate(0, 0, length-1)
		for n := 1; n <= 6; n++ {
			covered := map[time.Time]int{}
			for i := 1; i <= n; i++ {
				w, err := PeriodWindow(start, end, i, n)
				require.NoError(t, err)
				for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
					covered[d]++
				}
			}
			assert.Len(t, covered, length, "days=%d n=%d", length, n)
			for d, count := range covered {
				assert.Equal(t, 1, count, "day %s counted %d times (days=%d n=%d)", d.Format("2006-01-02"), count, length, n)
			}
		}
	}
}

func TestPeriodWindowRejectsBadInput(t *testing.T) {
	start, end := date(2024, time.September, 2), date(2025, time.June, 27)

	_, err := PeriodWindow(start, end, 0, 3)
	assert.Error(t, err)
	_, err = PeriodWindow(start, end, 4, 3)
	assert.Error(t, err)
	_, err = PeriodWindow(start, end, 1, 0)
	assert.Error(t, err)
	_, err = PeriodWindow(end, start, 1, 3)
	assert.Error(t, err)
}

func TestWindowContainsIgnoresTimeOfDay(t *testing.T) {
	w := Window{Start: date(2024, time.September, 2), End: date(2024, time.December, 15)}
	assert.True(t, w.Contains(time.Date(2024, time.December, 15, 23, 59, 0, 0, time.UTC)))
	assert.True(t, w.Contains(date(2024, time.September, 2)))
	assert.False(t, w.Contains(date(2024, time.December, 16)))
	assert.False(t, w.Contains(date(2024, time.September, 1)))
}
