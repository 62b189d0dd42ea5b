package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRendersHeadersInOrder(t *testing.T) {
	out, err := NewCSVExporter(0).Render(Dataset{
		Headers: []string{"Rank", "Student", "Average"},
		Rows: []map[string]string{
			{"Student": "Ada", "Rank": "1", "Average": Score(15)},
			{"Student": "Lin, B.", "Rank": "2", "Average": Score(12.5)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Rank,Student,Average\n1,Ada,15.00\n2,\"Lin, B.\",12.50\n", string(out))
}

func TestCSVExporterSemicolon(t *testing.T) {
	out, err := NewCSVExporter(';').Render(Dataset{Headers: []string{"a", "b"}, Rows: []map[string]string{{"a": "1", "b": "2"}}})
	require.NoError(t, err)
	assert.Equal(t, "a;b\n1;2\n", string(out))

	_, err = NewCSVExporter(0).Render(Dataset{})
	assert.Error(t, err)
}

func TestBulletinPDFRender(t *testing.T) {
	out, err := NewBulletinPDF().Render(BulletinDocument{
		SchoolYear:  "2024-2025",
		ClassName:   "6e A",
		PeriodName:  "Trimestre 1",
		StudentID:   "stu-1",
		StudentName: "Zoé Martin",
		Lines: []BulletinLine{
			{Subject: "Français", Coefficient: 3, Average: 15, WeightedPoints: 45},
		},
		TotalCoefficients:   3,
		TotalWeightedPoints: 45,
		OverallAverage:      15,
		Mention:             "good",
		Ranked:              true,
		Rank:                1,
		ClassSize:           28,
		GeneratedAt:         time.Date(2024, 12, 20, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	_, err = NewBulletinPDF().Render(BulletinDocument{})
	assert.Error(t, err)
}
