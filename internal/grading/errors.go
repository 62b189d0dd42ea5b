package grading

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels usable with errors.Is against the typed errors below.
var (
	ErrOutOfRange            = errors.New("score out of range")
	ErrUnresolvedCoefficient = errors.New("coefficient unresolved")
	ErrIncompleteClass       = errors.New("class roster incomplete")
	ErrIncompletePeriods     = errors.New("school year periods incomplete")
	ErrInsufficientData      = errors.New("insufficient grading data")
)

// OutOfRangeError reports a raw score outside [0, scale] or an unknown evaluation kind.
type OutOfRangeError struct {
	Kind  EvaluationKind
	Score float64
	Max   float64
}

func (e *OutOfRangeError) Error() string {
	if e.Max == 0 {
		return fmt.Sprintf("unknown evaluation kind %q", e.Kind)
	}
	return fmt.Sprintf("score %.2f outside [0, %.0f] for %s", e.Score, e.Max, e.Kind)
}

// Is matches ErrOutOfRange.
func (e *OutOfRangeError) Is(target error) bool { return target == ErrOutOfRange }

// UnresolvedCoefficientError reports a missing rule-table entry.
type UnresolvedCoefficientError struct {
	SubjectID string
	Scope     Scope
}

func (e *UnresolvedCoefficientError) Error() string {
	return fmt.Sprintf("no coefficient for subject %s in %s", e.SubjectID, e.Scope)
}

// Is matches ErrUnresolvedCoefficient.
func (e *UnresolvedCoefficientError) Is(target error) bool { return target == ErrUnresolvedCoefficient }

// IncompleteClassError reports a ranking attempt over a partial roster.
type IncompleteClassError struct {
	Expected int
	Built    int
	Missing  []string
	Extra    []string
}

func (e *IncompleteClassError) Error() string {
	msg := fmt.Sprintf("ranking requires %d reports, got %d", e.Expected, e.Built)
	if len(e.Missing) > 0 {
		msg += fmt.Sprintf(" (missing: %s)", strings.Join(e.Missing, ", "))
	}
	if len(e.Extra) > 0 {
		msg += fmt.Sprintf(" (not on roster: %s)", strings.Join(e.Extra, ", "))
	}
	return msg
}

// Is matches ErrIncompleteClass.
func (e *IncompleteClassError) Is(target error) bool { return target == ErrIncompleteClass }

// IncompletePeriodsError reports an annual aggregation without every period.
type IncompletePeriodsError struct {
	Required int
	Found    int
}

func (e *IncompletePeriodsError) Error() string {
	return fmt.Sprintf("annual report requires %d period reports, found %d", e.Required, e.Found)
}

// Is matches ErrIncompletePeriods.
func (e *IncompletePeriodsError) Is(target error) bool { return target == ErrIncompletePeriods }

// InsufficientDataError reports a student below the minimum evaluation count.
type InsufficientDataError struct {
	StudentID string
	Required  int
	Recorded  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("student %s has %d evaluations, %d required", e.StudentID, e.Recorded, e.Required)
}

// Is matches ErrInsufficientData.
func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }
