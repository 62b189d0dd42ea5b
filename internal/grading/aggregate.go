package grading

import "sort"

// Grade is one evaluation result fed to the aggregator.
type Grade struct {
	ID           string
	SubjectID    string
	SubjectName  string
	SubjectOrder int
	Kind         EvaluationKind
	Score        float64
	Published    bool
}

// GradeRef records a grade that contributed to a subject line.
type GradeRef struct {
	GradeID    string         `json:"gradeId"`
	Kind       EvaluationKind `json:"kind"`
	Score      float64        `json:"score"`
	Normalized float64        `json:"normalized"`
}

// SubjectLine is the per-subject row of a report.
type SubjectLine struct {
	SubjectID      string     `json:"subjectId"`
	SubjectName    string     `json:"subjectName"`
	Coefficient    float64    `json:"coefficient"`
	Average        float64    `json:"average"`
	WeightedPoints float64    `json:"weightedPoints"`
	Grades         []GradeRef `json:"grades"`

	order int
}

// AggregateSubjects groups published grades by subject and computes per-subject
// averages and weighted points. It also returns the number of evaluations used.
// Subjects without a published grade produce no line.
func AggregateSubjects(grades []Grade, resolver CoefficientResolver, scope Scope) ([]SubjectLine, int, error) {
	index := make(map[string]int)
	lines := make([]SubjectLine, 0)
	sums := make([]float64, 0)
	evaluations := 0

	for _, g := range grades {
		if !g.Published {
			continue
		}
		normalized, err := Normalize(g.Score, g.Kind)
		if err != nil {
			return nil, 0, err
		}
		pos, ok := index[g.SubjectID]
		if !ok {
			pos = len(lines)
			index[g.SubjectID] = pos
			lines = append(lines, SubjectLine{SubjectID: g.SubjectID, SubjectName: g.SubjectName, order: g.SubjectOrder})
			sums = append(sums, 0)
		}
		lines[pos].Grades = append(lines[pos].Grades, GradeRef{GradeID: g.ID, Kind: g.Kind, Score: g.Score, Normalized: normalized})
		sums[pos] += normalized
		evaluations++
	}

	for i := range lines {
		coeff, err := resolver.Resolve(lines[i].SubjectID, scope)
		if err != nil {
			return nil, 0, err
		}
		lines[i].Coefficient = coeff
		lines[i].Average = Round2(sums[i] / float64(len(lines[i].Grades)))
		lines[i].WeightedPoints = Round2(lines[i].Average * coeff)
	}

	sort.SliceStable(lines, func(a, b int) bool {
		if lines[a].order != lines[b].order {
			return lines[a].order < lines[b].order
		}
		return lines[a].SubjectID < lines[b].SubjectID
	})
	return lines, evaluations, nil
}
