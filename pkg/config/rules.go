package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Rules is the school policy injected into the grading engine: mention tiers,
// promotion decision policy and, optionally, coefficient rows.
type Rules struct {
	Mentions     MentionRules      `mapstructure:"mentions"`
	Decision     DecisionRules     `mapstructure:"decision"`
	Coefficients []CoefficientRule `mapstructure:"coefficients" validate:"dive"`
}

type MentionRules struct {
	Fallback string     `mapstructure:"fallback"`
	Tiers    []TierRule `mapstructure:"tiers" validate:"dive"`
}

type DecisionRules struct {
	Fallback   string     `mapstructure:"fallback"`
	Thresholds []TierRule `mapstructure:"thresholds" validate:"dive"`
	Rules      []CELRule  `mapstructure:"rules" validate:"dive"`
}

type TierRule struct {
	Min   float64 `mapstructure:"min" validate:"gte=0,lte=20"`
	Label string  `mapstructure:"label" validate:"required"`
}

type CELRule struct {
	When string `mapstructure:"when" validate:"required"`
	Then string `mapstructure:"then" validate:"required"`
}

type CoefficientRule struct {
	SubjectID   string  `mapstructure:"subject" validate:"required"`
	Cycle       string  `mapstructure:"cycle" validate:"required,oneof=PRIMARY LOWER_SECONDARY UPPER_SECONDARY"`
	GradeLevel  string  `mapstructure:"grade_level"`
	Track       string  `mapstructure:"track"`
	Coefficient float64 `mapstructure:"coefficient" validate:"gte=0"`
}

// LoadRules reads a YAML rules file. An empty path returns nil rules so callers
// fall back to the built-in scales.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return nil, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read rules file %s: %w", path, err)
	}

	var rules Rules
	if err := v.Unmarshal(&rules); err != nil {
		return nil, fmt.Errorf("decode rules file %s: %w", path, err)
	}
	if err := validator.New().Struct(rules); err != nil {
		return nil, fmt.Errorf("validate rules file %s: %w", path, err)
	}
	return &rules, nil
}
