package service

import (
	"fmt"
	"strings"

	"github.com/noah-isme/sma-bulletin-api/internal/grading"
	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/pkg/config"
)

// GradingRules is the school policy in the form the grading engine consumes.
type GradingRules struct {
	Mentions     *grading.MentionScale
	Decisions    *grading.DecisionPolicy
	Coefficients []grading.CoefficientRow
}

// DefaultGradingRules uses the built-in mention scale and decision thresholds
// with no static coefficients.
func DefaultGradingRules() *GradingRules {
	return &GradingRules{
		Mentions:  grading.DefaultMentionScale(),
		Decisions: grading.DefaultDecisionPolicy(),
	}
}

// NewGradingRules compiles a loaded rules file. Sections left empty keep the defaults.
func NewGradingRules(rules *config.Rules) (*GradingRules, error) {
	out := DefaultGradingRules()
	if rules == nil {
		return out, nil
	}

	if len(rules.Mentions.Tiers) > 0 {
		fallback := rules.Mentions.Fallback
		if fallback == "" {
			fallback = "insufficient"
		}
		scale, err := grading.NewMentionScale(toTiers(rules.Mentions.Tiers), fallback)
		if err != nil {
			return nil, err
		}
		out.Mentions = scale
	}

	if len(rules.Decision.Thresholds) > 0 || len(rules.Decision.Rules) > 0 {
		thresholds := grading.DefaultDecisionThresholds()
		if len(rules.Decision.Thresholds) > 0 {
			thresholds = toTiers(rules.Decision.Thresholds)
		}
		fallback := rules.Decision.Fallback
		if fallback == "" {
			fallback = grading.DecisionRepeat
		}
		celRules := make([]grading.DecisionRule, 0, len(rules.Decision.Rules))
		for _, r := range rules.Decision.Rules {
			celRules = append(celRules, grading.DecisionRule{When: r.When, Then: r.Then})
		}
		policy, err := grading.NewDecisionPolicy(thresholds, fallback, celRules)
		if err != nil {
			return nil, err
		}
		out.Decisions = policy
	}

	for _, c := range rules.Coefficients {
		out.Coefficients = append(out.Coefficients, grading.CoefficientRow{
			SubjectID:   c.SubjectID,
			Cycle:       grading.Cycle(strings.ToUpper(c.Cycle)),
			GradeLevel:  c.GradeLevel,
			Track:       c.Track,
			Coefficient: c.Coefficient,
		})
	}
	if _, err := grading.NewCoefficientTable(out.Coefficients); err != nil {
		return nil, fmt.Errorf("rules file coefficients: %w", err)
	}
	return out, nil
}

// CoefficientTable merges stored coefficient rows with the static rows. A key
// present in both sources is a configuration error.
func (r *GradingRules) CoefficientTable(stored []models.SubjectCoefficient) (*grading.CoefficientTable, error) {
	rows := make([]grading.CoefficientRow, 0, len(stored)+len(r.Coefficients))
	for _, c := range stored {
		rows = append(rows, grading.CoefficientRow{
			SubjectID:   c.SubjectID,
			Cycle:       grading.Cycle(strings.ToUpper(c.Cycle)),
			GradeLevel:  c.GradeLevel,
			Track:       c.Track,
			Coefficient: c.Coefficient,
		})
	}
	rows = append(rows, r.Coefficients...)
	return grading.NewCoefficientTable(rows)
}

func toTiers(rules []config.TierRule) []grading.Tier {
	tiers := make([]grading.Tier, 0, len(rules))
	for _, t := range rules {
		tiers = append(tiers, grading.Tier{Min: t.Min, Label: t.Label})
	}
	return tiers
}
