package grading

import (
	"math"
	"strconv"
	"strings"
)

// EvaluationKind identifies an evaluation type with a fixed grading scale.
type EvaluationKind string

const (
	KindOral        EvaluationKind = "ORAL"
	KindWritten     EvaluationKind = "WRITTEN"
	KindComposition EvaluationKind = "COMPOSITION"
	KindPractical   EvaluationKind = "PRACTICAL"
)

// CanonicalScale is the scale every score is normalized to.
const CanonicalScale = 20.0

var scaleMax = map[EvaluationKind]float64{
	KindOral:        10,
	KindWritten:     20,
	KindComposition: 100,
	KindPractical:   20,
}

// ScaleMax returns the maximum score for the kind and whether the kind is known.
func (k EvaluationKind) ScaleMax() (float64, bool) {
	limit, ok := scaleMax[k]
	return limit, ok
}

// Valid reports whether the kind is supported.
func (k EvaluationKind) Valid() bool {
	_, ok := scaleMax[k]
	return ok
}

// Normalize converts a raw score to the 0-20 scale, rounded to 2 decimals.
func Normalize(score float64, kind EvaluationKind) (float64, error) {
	limit, ok := kind.ScaleMax()
	if !ok {
		return 0, &OutOfRangeError{Kind: kind, Score: score}
	}
	if math.IsNaN(score) || score < 0 || score > limit {
		return 0, &OutOfRangeError{Kind: kind, Score: score, Max: limit}
	}
	return Round2(score / limit * CanonicalScale), nil
}

// Round2 rounds half away from zero at 2 decimals. It works on the shortest
// decimal form of v so that 1.005 rounds to 1.01 even though the float is
// stored just below it.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	digits := strconv.FormatFloat(math.Abs(v), 'f', -1, 64)
	whole, frac, _ := strings.Cut(digits, ".")
	if len(frac) <= 2 {
		return v
	}
	cents, err := strconv.ParseInt(whole+frac[:2], 10, 64)
	if err != nil {
		return math.Round(v*100) / 100
	}
	if frac[2] >= '5' {
		cents++
	}
	rounded := float64(cents) / 100
	if v < 0 && rounded != 0 {
		return -rounded
	}
	return rounded
}
