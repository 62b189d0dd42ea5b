package grading

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Promotion decisions produced by the default policy.
const (
	DecisionPromote     = "promote"
	DecisionConditional = "conditional"
	DecisionRepeat      = "repeat"
)

// DecisionRule is a CEL condition over the annual figures. The expression sees
// `average` (double) and `periods` (list of double, ordered by period index).
type DecisionRule struct {
	When string `mapstructure:"when" json:"when"`
	Then string `mapstructure:"then" json:"then"`

	program cel.Program
}

// DecisionPolicy turns an annual average into a promotion decision. Rules are
// evaluated first, in order; thresholds apply when no rule matches.
type DecisionPolicy struct {
	rules      []DecisionRule
	thresholds []Tier
	fallback   string
}

// DefaultDecisionThresholds promotes at 10 and allows conditional promotion at 9.
func DefaultDecisionThresholds() []Tier {
	return []Tier{{Min: 10, Label: DecisionPromote}, {Min: 9, Label: DecisionConditional}}
}

// DefaultDecisionPolicy applies DefaultDecisionThresholds with DecisionRepeat below them.
func DefaultDecisionPolicy() *DecisionPolicy {
	return &DecisionPolicy{thresholds: DefaultDecisionThresholds(), fallback: DecisionRepeat}
}

// NewDecisionPolicy compiles the rules and orders the thresholds.
func NewDecisionPolicy(thresholds []Tier, fallback string, rules []DecisionRule) (*DecisionPolicy, error) {
	ordered, err := orderTiers(thresholds)
	if err != nil {
		return nil, fmt.Errorf("decision thresholds: %w", err)
	}
	if fallback == "" {
		return nil, fmt.Errorf("decision policy: fallback decision required")
	}
	compiled := make([]DecisionRule, 0, len(rules))
	if len(rules) > 0 {
		env, err := decisionEnv()
		if err != nil {
			return nil, err
		}
		for i, rule := range rules {
			if rule.Then == "" {
				return nil, fmt.Errorf("decision rule %d has no outcome", i+1)
			}
			ast, iss := env.Compile(rule.When)
			if iss.Err() != nil {
				return nil, fmt.Errorf("decision rule %d: %w", i+1, iss.Err())
			}
			if !ast.OutputType().IsExactType(cel.BoolType) {
				return nil, fmt.Errorf("decision rule %d must evaluate to bool, got %s", i+1, ast.OutputType())
			}
			prg, err := env.Program(ast)
			if err != nil {
				return nil, fmt.Errorf("decision rule %d: %w", i+1, err)
			}
			rule.program = prg
			compiled = append(compiled, rule)
		}
	}
	return &DecisionPolicy{rules: compiled, thresholds: ordered, fallback: fallback}, nil
}

// Decide returns the decision for the annual average and per-period averages.
func (p *DecisionPolicy) Decide(average float64, periods []float64) (string, error) {
	if p == nil {
		p = DefaultDecisionPolicy()
	}
	if len(p.rules) > 0 {
		vars := map[string]any{"average": average, "periods": append([]float64(nil), periods...)}
		for i, rule := range p.rules {
			out, _, err := rule.program.Eval(vars)
			if err != nil {
				return "", fmt.Errorf("evaluate decision rule %d: %w", i+1, err)
			}
			if matched, ok := out.Value().(bool); ok && matched {
				return rule.Then, nil
			}
		}
	}
	return matchTier(p.thresholds, average, p.fallback), nil
}

func decisionEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("average", cel.DoubleType),
		cel.Variable("periods", cel.ListType(cel.DoubleType)),
	)
	if err != nil {
		return nil, fmt.Errorf("build decision environment: %w", err)
	}
	return env, nil
}
