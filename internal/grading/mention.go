package grading

import (
	"fmt"
	"sort"
)

// Tier maps an inclusive lower bound on an average to a label.
type Tier struct {
	Min   float64 `mapstructure:"min" json:"min"`
	Label string  `mapstructure:"label" json:"label"`
}

// MentionScale resolves a qualitative label from an average.
type MentionScale struct {
	tiers    []Tier
	fallback string
}

// NewMentionScale orders tiers from highest to lowest bound. Duplicate bounds are rejected.
func NewMentionScale(tiers []Tier, fallback string) (*MentionScale, error) {
	ordered, err := orderTiers(tiers)
	if err != nil {
		return nil, fmt.Errorf("mention scale: %w", err)
	}
	if fallback == "" {
		return nil, fmt.Errorf("mention scale: fallback label required")
	}
	return &MentionScale{tiers: ordered, fallback: fallback}, nil
}

// DefaultMentionScale returns the 18/16/14/12/10 scale.
func DefaultMentionScale() *MentionScale {
	return &MentionScale{
		tiers: []Tier{
			{Min: 18, Label: "excellent"},
			{Min: 16, Label: "very good"},
			{Min: 14, Label: "good"},
			{Min: 12, Label: "fairly good"},
			{Min: 10, Label: "pass"},
		},
		fallback: "insufficient",
	}
}

// Resolve returns the first tier whose bound the average reaches.
func (m *MentionScale) Resolve(average float64) string {
	if m == nil {
		m = DefaultMentionScale()
	}
	return matchTier(m.tiers, average, m.fallback)
}

func orderTiers(tiers []Tier) ([]Tier, error) {
	ordered := append([]Tier(nil), tiers...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Min > ordered[j].Min })
	for i, t := range ordered {
		if t.Label == "" {
			return nil, fmt.Errorf("tier %.2f has no label", t.Min)
		}
		if i > 0 && ordered[i-1].Min == t.Min {
			return nil, fmt.Errorf("duplicate tier bound %.2f", t.Min)
		}
	}
	return ordered, nil
}

func matchTier(ordered []Tier, average float64, fallback string) string {
	for _, t := range ordered {
		if average >= t.Min {
			return t.Label
		}
	}
	return fallback
}
