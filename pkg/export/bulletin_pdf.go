package export

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// BulletinLine is one subject row of a rendered bulletin.
type BulletinLine struct {
	Subject        string
	Coefficient    float64
	Average        float64
	WeightedPoints float64
}

// BulletinDocument is everything printed on a student's bulletin.
type BulletinDocument struct {
	SchoolName  string
	SchoolYear  string
	ClassName   string
	PeriodName  string
	StudentID   string
	StudentName string

	Lines               []BulletinLine
	TotalCoefficients   float64
	TotalWeightedPoints float64
	OverallAverage      float64
	Mention             string

	Ranked       bool
	Rank         int
	ClassSize    int
	ClassAverage float64
	ClassTop     float64
	ClassBottom  float64

	JustifiedAbsences   int
	UnjustifiedAbsences int
	LateArrivals        int

	GeneratedAt time.Time
}

// BulletinPDF renders bulletins as single-page A4 PDFs.
type BulletinPDF struct{}

// NewBulletinPDF constructs the renderer.
func NewBulletinPDF() *BulletinPDF {
	return &BulletinPDF{}
}

var lineColumns = []struct {
	title string
	width float64
	align string
}{
	{"Subject", 85, "L"},
	{"Coef.", 25, "C"},
	{"Average /20", 40, "C"},
	{"Points", 40, "C"},
}

// Render lays out the header, subject table, totals, class standing and attendance.
func (r *BulletinPDF) Render(doc BulletinDocument) ([]byte, error) {
	if doc.StudentID == "" {
		return nil, fmt.Errorf("bulletin document requires a student")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetTitle(fmt.Sprintf("Bulletin %s %s", doc.StudentID, doc.PeriodName), true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 14)
	if doc.SchoolName != "" {
		pdf.CellFormat(0, 8, tr(doc.SchoolName), "", 1, "C", false, 0, "")
	}
	pdf.CellFormat(0, 8, tr("REPORT CARD "+doc.PeriodName), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Arial", "", 10)
	name := doc.StudentName
	if name == "" {
		name = doc.StudentID
	}
	pdf.CellFormat(95, 6, tr("Student: "+name), "", 0, "L", false, 0, "")
	pdf.CellFormat(95, 6, tr("Class: "+doc.ClassName), "", 1, "R", false, 0, "")
	pdf.CellFormat(95, 6, tr("School year: "+doc.SchoolYear), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	for _, col := range lineColumns {
		pdf.CellFormat(col.width, 8, col.title, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, line := range doc.Lines {
		values := []string{tr(line.Subject), trimFloat(line.Coefficient), Score(line.Average), Score(line.WeightedPoints)}
		for i, col := range lineColumns {
			pdf.CellFormat(col.width, 7, values[i], "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(lineColumns[0].width, 7, "Totals", "1", 0, "L", false, 0, "")
	pdf.CellFormat(lineColumns[1].width, 7, trimFloat(doc.TotalCoefficients), "1", 0, "C", false, 0, "")
	pdf.CellFormat(lineColumns[2].width, 7, "", "1", 0, "C", false, 0, "")
	pdf.CellFormat(lineColumns[3].width, 7, Score(doc.TotalWeightedPoints), "1", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 7, tr(fmt.Sprintf("Overall average: %s / 20   Mention: %s", Score(doc.OverallAverage), doc.Mention)), "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	if doc.Ranked {
		pdf.CellFormat(0, 6, fmt.Sprintf("Rank: %d / %d", doc.Rank, doc.ClassSize), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 6, fmt.Sprintf("Class average: %s   Highest: %s   Lowest: %s",
			Score(doc.ClassAverage), Score(doc.ClassTop), Score(doc.ClassBottom)), "", 1, "L", false, 0, "")
	} else {
		pdf.CellFormat(0, 6, "Provisional: not ranked", "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)
	pdf.CellFormat(0, 6, fmt.Sprintf("Absences: %d justified, %d unjustified   Late arrivals: %d",
		doc.JustifiedAbsences, doc.UnjustifiedAbsences, doc.LateArrivals), "", 1, "L", false, 0, "")

	generated := doc.GeneratedAt
	if generated.IsZero() {
		generated = time.Now().UTC()
	}
	pdf.SetY(-20)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 5, "Generated "+generated.Format("2006-01-02 15:04 MST"), "", 0, "R", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render bulletin pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
