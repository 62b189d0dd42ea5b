package grading

// Status tracks whether a report went through the class ranking pass.
type Status string

const (
	StatusDraft  Status = "DRAFT"
	StatusRanked Status = "RANKED"
)

// AttendanceCounts summarises attendance events inside a period window.
type AttendanceCounts struct {
	JustifiedAbsences   int `json:"justifiedAbsences"`
	UnjustifiedAbsences int `json:"unjustifiedAbsences"`
	LateArrivals        int `json:"lateArrivals"`
}

// Report is a student's computed report for one class and period.
type Report struct {
	StudentID           string
	ClassID             string
	PeriodID            string
	Lines               []SubjectLine
	Evaluations         int
	TotalWeightedPoints float64
	TotalCoefficients   float64
	OverallAverage      float64
	Mention             string
	Rank                int
	ClassSize           int
	ClassAverage        float64
	ClassTopAverage     float64
	ClassBottomAverage  float64
	Attendance          AttendanceCounts
	Status              Status
}

// Policy carries the configurable gates applied while building reports.
type Policy struct {
	// MinEvaluations is the minimum number of published evaluations a student
	// needs; zero disables the gate.
	MinEvaluations int
}

// BuildInput is everything the builder needs for one student.
type BuildInput struct {
	StudentID  string
	ClassID    string
	PeriodID   string
	Scope      Scope
	Grades     []Grade
	Attendance AttendanceCounts
}

// Builder produces draft (unranked) reports.
type Builder struct {
	coefficients CoefficientResolver
	mentions     *MentionScale
	policy       Policy
}

// NewBuilder constructs a Builder. A nil mention scale uses the default tiers.
func NewBuilder(coefficients CoefficientResolver, mentions *MentionScale, policy Policy) *Builder {
	if mentions == nil {
		mentions = DefaultMentionScale()
	}
	return &Builder{coefficients: coefficients, mentions: mentions, policy: policy}
}

// Build computes a draft report.
func (b *Builder) Build(in BuildInput) (*Report, error) {
	lines, evaluations, err := AggregateSubjects(in.Grades, b.coefficients, in.Scope)
	if err != nil {
		return nil, err
	}
	if b.policy.MinEvaluations > 0 && evaluations < b.policy.MinEvaluations {
		return nil, &InsufficientDataError{StudentID: in.StudentID, Required: b.policy.MinEvaluations, Recorded: evaluations}
	}

	report := &Report{
		StudentID:   in.StudentID,
		ClassID:     in.ClassID,
		PeriodID:    in.PeriodID,
		Lines:       lines,
		Evaluations: evaluations,
		Attendance:  in.Attendance,
		Status:      StatusDraft,
	}
	var points, coefficients float64
	for _, line := range lines {
		points += line.WeightedPoints
		coefficients += line.Coefficient
	}
	report.TotalWeightedPoints = Round2(points)
	report.TotalCoefficients = Round2(coefficients)
	if report.TotalCoefficients > 0 {
		report.OverallAverage = Round2(report.TotalWeightedPoints / report.TotalCoefficients)
	}
	report.Mention = b.mentions.Resolve(report.OverallAverage)
	return report, nil
}
