package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-bulletin-api/internal/grading"
	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/pkg/config"
)

func TestNewGradingRulesDefaults(t *testing.T) {
	rules, err := NewGradingRules(nil)
	require.NoError(t, err)
	assert.Equal(t, "excellent", rules.Mentions.Resolve(18))
	decision, err := rules.Decisions.Decide(9.5, nil)
	require.NoError(t, err)
	assert.Equal(t, grading.DecisionConditional, decision)
}

func TestNewGradingRulesFromFile(t *testing.T) {
	rules, err := NewGradingRules(&config.Rules{
		Mentions: config.MentionRules{Tiers: []config.TierRule{{Min: 15, Label: "honours"}, {Min: 10, Label: "pass"}}},
		Decision: config.DecisionRules{
			Thresholds: []config.TierRule{{Min: 10, Label: "promote"}},
			Rules:      []config.CELRule{{When: "periods.exists(p, p < 5.0)", Then: "council_review"}},
		},
		Coefficients: []config.CoefficientRule{{SubjectID: "pe", Cycle: "primary", Coefficient: 1}},
	})
	require.NoError(t, err)

	assert.Equal(t, "honours", rules.Mentions.Resolve(15))
	assert.Equal(t, "insufficient", rules.Mentions.Resolve(9.99))

	decision, err := rules.Decisions.Decide(12, []float64{14, 4.5, 17.5})
	require.NoError(t, err)
	assert.Equal(t, "council_review", decision)
	decision, err = rules.Decisions.Decide(9, []float64{9, 9, 9})
	require.NoError(t, err)
	assert.Equal(t, grading.DecisionRepeat, decision)

	table, err := rules.CoefficientTable([]models.SubjectCoefficient{{SubjectID: "math", Cycle: "primary", Coefficient: 3}})
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
	coeff, err := table.Resolve("pe", grading.NewScope(grading.CyclePrimary, "", ""))
	require.NoError(t, err)
	assert.Equal(t, 1.0, coeff)

	_, err = rules.CoefficientTable([]models.SubjectCoefficient{{SubjectID: "pe", Cycle: "PRIMARY", Coefficient: 2}})
	require.Error(t, err)
}

func TestNewGradingRulesRejectsInvalidRule(t *testing.T) {
	_, err := NewGradingRules(&config.Rules{
		Decision: config.DecisionRules{Rules: []config.CELRule{{When: "average + 1", Then: "promote"}}},
	})
	require.Error(t, err)
}
