package grading

import (
	"fmt"
	"strings"
)

// Cycle identifies the education level a class belongs to.
type Cycle string

const (
	CyclePrimary        Cycle = "PRIMARY"
	CycleLowerSecondary Cycle = "LOWER_SECONDARY"
	CycleUpperSecondary Cycle = "UPPER_SECONDARY"
)

// Valid reports whether the cycle is supported.
func (c Cycle) Valid() bool {
	switch c {
	case CyclePrimary, CycleLowerSecondary, CycleUpperSecondary:
		return true
	default:
		return false
	}
}

// Scope is the coefficient lookup axis for a class. Only the axes relevant to
// the cycle are populated: primary uses the cycle alone, lower secondary adds
// the grade level, upper secondary adds both grade level and track.
type Scope struct {
	Cycle      Cycle
	GradeLevel string
	Track      string
}

// NewScope canonicalises the axes for the cycle so equal scopes compare equal.
func NewScope(cycle Cycle, gradeLevel, track string) Scope {
	scope := Scope{Cycle: cycle}
	switch cycle {
	case CycleLowerSecondary:
		scope.GradeLevel = normalizeAxis(gradeLevel)
	case CycleUpperSecondary:
		scope.GradeLevel = normalizeAxis(gradeLevel)
		scope.Track = normalizeAxis(track)
	}
	return scope
}

func (s Scope) String() string {
	parts := []string{string(s.Cycle)}
	if s.GradeLevel != "" {
		parts = append(parts, "grade "+s.GradeLevel)
	}
	if s.Track != "" {
		parts = append(parts, "track "+s.Track)
	}
	return strings.Join(parts, "/")
}

func normalizeAxis(v string) string {
	return strings.ToUpper(strings.TrimSpace(v))
}

// CoefficientResolver maps a subject within a scope to its weight.
type CoefficientResolver interface {
	Resolve(subjectID string, scope Scope) (float64, error)
}

// CoefficientRow is one entry of an injected coefficient rule table.
type CoefficientRow struct {
	SubjectID   string
	Cycle       Cycle
	GradeLevel  string
	Track       string
	Coefficient float64
}

type coefficientKey struct {
	subjectID string
	scope     Scope
}

// CoefficientTable is an immutable lookup built from rule rows.
type CoefficientTable struct {
	entries map[coefficientKey]float64
}

// NewCoefficientTable validates and indexes the rows.
func NewCoefficientTable(rows []CoefficientRow) (*CoefficientTable, error) {
	entries := make(map[coefficientKey]float64, len(rows))
	for _, row := range rows {
		if row.SubjectID == "" {
			return nil, fmt.Errorf("coefficient row missing subject")
		}
		if !row.Cycle.Valid() {
			return nil, fmt.Errorf("coefficient row for %s has invalid cycle %q", row.SubjectID, row.Cycle)
		}
		if row.Coefficient < 0 {
			return nil, fmt.Errorf("coefficient row for %s is negative", row.SubjectID)
		}
		key := coefficientKey{subjectID: row.SubjectID, scope: NewScope(row.Cycle, row.GradeLevel, row.Track)}
		if _, dup := entries[key]; dup {
			return nil, fmt.Errorf("duplicate coefficient for subject %s in %s", row.SubjectID, key.scope)
		}
		entries[key] = row.Coefficient
	}
	return &CoefficientTable{entries: entries}, nil
}

// Resolve returns the coefficient or an UnresolvedCoefficientError. There is no fallback weight.
func (t *CoefficientTable) Resolve(subjectID string, scope Scope) (float64, error) {
	scope = NewScope(scope.Cycle, scope.GradeLevel, scope.Track)
	if t != nil {
		if coeff, ok := t.entries[coefficientKey{subjectID: subjectID, scope: scope}]; ok {
			return coeff, nil
		}
	}
	return 0, &UnresolvedCoefficientError{SubjectID: subjectID, Scope: scope}
}

// Len returns the number of entries.
func (t *CoefficientTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}
