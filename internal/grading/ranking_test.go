package grading

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drafts(averages ...float64) ([]*Report, []string) {
	reports := make([]*Report, 0, len(averages))
	roster := make([]string, 0, len(averages))
	for i, avg := range averages {
		id := fmt.Sprintf("stu-%02d", i+1)
		roster = append(roster, id)
		reports = append(reports, &Report{StudentID: id, OverallAverage: avg, Status: StatusDraft})
	}
	return reports, roster
}

func ranksByStudent(reports []*Report) map[string]int {
	out := make(map[string]int, len(reports))
	for _, r := range reports {
		out[r.StudentID] = r.Rank
	}
	return out
}

func TestRankClassSequentialTies(t *testing.T) {
	reports, roster := drafts(12.5, 15, 15)
	ranked, stats, err := RankClass(reports, roster, TieSequential)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"stu-02": 1, "stu-03": 2, "stu-01": 3}, ranksByStudent(ranked))
	assert.Equal(t, 3, stats.Size)
	assert.Equal(t, 14.17, stats.Average)
	assert.Equal(t, 15.0, stats.Top)
	assert.Equal(t, 12.5, stats.Bottom)
	for _, r := range ranked {
		assert.Equal(t, StatusRanked, r.Status)
		assert.Equal(t, stats.Average, r.ClassAverage)
		assert.Equal(t, 3, r.ClassSize)
	}
}

func TestRankClassRanksArePermutation(t *testing.T) {
	reports, roster := drafts(9, 11.25, 14, 14, 7.5, 18, 11.25, 10)
	ranked, _, err := RankClass(reports, roster, TieSequential)
	require.NoError(t, err)

	seen := make(map[int]bool)
	sum := 0
	for i, r := range ranked {
		assert.Equal(t, i+1, r.Rank)
		assert.False(t, seen[r.Rank])
		seen[r.Rank] = true
		sum += r.Rank
		if i > 0 {
			assert.GreaterOrEqual(t, ranked[i-1].OverallAverage, r.OverallAverage)
		}
	}
	n := len(ranked)
	assert.Equal(t, n*(n+1)/2, sum)
}

func TestRankClassIdenticalAverages(t *testing.T) {
	reports, roster := drafts(13.4, 13.4, 13.4, 13.4)
	_, stats, err := RankClass(reports, roster, TieSequential)
	require.NoError(t, err)
	assert.Equal(t, 13.4, stats.Average)
	assert.Equal(t, stats.Average, stats.Top)
	assert.Equal(t, stats.Average, stats.Bottom)
}

func TestRankClassSingleStudent(t *testing.T) {
	reports, roster := drafts(8.75)
	ranked, stats, err := RankClass(reports, roster, TieSequential)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, 8.75, stats.Average)
}

func TestRankClassTiePolicies(t *testing.T) {
	cases := []struct {
		policy TiePolicy
		want   []int
	}{
		{TieSequential, []int{1, 2, 3, 4}},
		{TieCompetition, []int{1, 2, 2, 4}},
		{TieDense, []int{1, 2, 2, 3}},
	}
	for _, tc := range cases {
		t.Run(string(tc.policy), func(t *testing.T) {
			reports, roster := drafts(16, 12, 12, 9)
			ranked, _, err := RankClass(reports, roster, tc.policy)
			require.NoError(t, err)
			got := make([]int, 0, len(ranked))
			for _, r := range ranked {
				got = append(got, r.Rank)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRankClassRejectsPartialRoster(t *testing.T) {
	reports, roster := drafts(10, 11, 12, 13, 14, 15, 16, 17, 18, 19)
	_, _, err := RankClass(reports[:9], roster, TieSequential)
	require.Error(t, err)

	var incomplete *IncompleteClassError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, 10, incomplete.Expected)
	assert.Equal(t, 9, incomplete.Built)
	assert.Equal(t, []string{"stu-10"}, incomplete.Missing)
	for _, r := range reports {
		assert.Zero(t, r.Rank)
		assert.Equal(t, StatusDraft, r.Status)
	}
}

func TestRankClassRejectsStudentsOffRoster(t *testing.T) {
	reports, roster := drafts(10, 11)
	reports = append(reports, &Report{StudentID: "intruder", OverallAverage: 12})
	_, _, err := RankClass(reports, roster, TieSequential)
	var incomplete *IncompleteClassError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, []string{"intruder"}, incomplete.Extra)
}

func TestRankClassRejectsEmptyClass(t *testing.T) {
	_, _, err := RankClass(nil, nil, TieSequential)
	assert.ErrorIs(t, err, ErrIncompleteClass)
}

func TestParseTiePolicy(t *testing.T) {
	p, err := ParseTiePolicy("")
	require.NoError(t, err)
	assert.Equal(t, TieSequential, p)

	p, err = ParseTiePolicy(" dense ")
	require.NoError(t, err)
	assert.Equal(t, TieDense, p)

	_, err = ParseTiePolicy("olympic")
	assert.Error(t, err)
}
