package grading

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFullScaleIsTwenty(t *testing.T) {
	for _, kind := range []EvaluationKind{KindOral, KindWritten, KindComposition, KindPractical} {
		limit, ok := kind.ScaleMax()
		require.True(t, ok)
		got, err := Normalize(limit, kind)
		require.NoError(t, err)
		assert.Equal(t, 20.0, got, kind)
	}
}

func TestNormalizeStaysWithinCanonicalScale(t *testing.T) {
	for _, kind := range []EvaluationKind{KindOral, KindWritten, KindComposition, KindPractical} {
		limit, _ := kind.ScaleMax()
		for x := 0.0; x <= limit; x += 0.25 {
			got, err := Normalize(x, kind)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 20.0)
		}
	}
}

func TestNormalizeScales(t *testing.T) {
	cases := []struct {
		score float64
		kind  EvaluationKind
		want  float64
	}{
		{7, KindOral, 14},
		{14, KindWritten, 14},
		{73, KindComposition, 14.6},
		{33.33, KindComposition, 6.67},
		{0, KindPractical, 0},
	}
	for _, tc := range cases {
		got, err := Normalize(tc.score, tc.kind)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestNormalizeRejectsOutOfRange(t *testing.T) {
	_, err := Normalize(21, KindWritten)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfRange))
	var oor *OutOfRangeError
	require.True(t, errors.As(err, &oor))
	assert.Equal(t, 20.0, oor.Max)

	_, err = Normalize(-0.5, KindOral)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = Normalize(math.NaN(), KindOral)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = Normalize(5, EvaluationKind("QUIZ"))
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestRound2HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, 10.17, Round2(30.5/3))
	assert.Equal(t, 2.5, Round2(2.5))
	assert.Equal(t, 0.13, Round2(0.125))
	assert.Equal(t, -0.13, Round2(-0.125))
	assert.Equal(t, 1.01, Round2(1.005))
	assert.Equal(t, 8.35, Round2(8.345))
	assert.Equal(t, 2.68, Round2(2.675))
	assert.Equal(t, 14.15, Round2(14.145))
	assert.Equal(t, -1.01, Round2(-1.005))
	assert.Equal(t, 1.01, Round2((1.00+1.01)/2))
	assert.Equal(t, 0.0, Round2(-0.001))
}
