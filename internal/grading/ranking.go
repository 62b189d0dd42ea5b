package grading

import (
	"fmt"
	"sort"
	"strings"
)

// TiePolicy selects how equal averages are ranked.
type TiePolicy string

const (
	// TieSequential gives every student a distinct rank in input order.
	TieSequential TiePolicy = "SEQUENTIAL"
	// TieCompetition shares ranks between equal averages and skips the following ranks (1,2,2,4).
	TieCompetition TiePolicy = "COMPETITION"
	// TieDense shares ranks between equal averages without gaps (1,2,2,3).
	TieDense TiePolicy = "DENSE"
)

// ParseTiePolicy maps a configuration value to a TiePolicy; empty means sequential.
func ParseTiePolicy(raw string) (TiePolicy, error) {
	switch TiePolicy(strings.ToUpper(strings.TrimSpace(raw))) {
	case "", TieSequential:
		return TieSequential, nil
	case TieCompetition:
		return TieCompetition, nil
	case TieDense:
		return TieDense, nil
	default:
		return "", fmt.Errorf("unknown tie policy %q", raw)
	}
}

// ClassStats are the class-wide figures written into every ranked report.
type ClassStats struct {
	Size    int     `json:"size"`
	Average float64 `json:"average"`
	Top     float64 `json:"top"`
	Bottom  float64 `json:"bottom"`
}

// RankClass ranks the complete set of draft reports for a class and period.
// roster lists the student ids that must each have exactly one report; its
// order is the input order used for sequential ranks. Reports are updated in
// place and returned sorted by rank.
func RankClass(reports []*Report, roster []string, policy TiePolicy) ([]*Report, ClassStats, error) {
	ordered, err := alignToRoster(reports, roster)
	if err != nil {
		return nil, ClassStats{}, err
	}
	if len(ordered) == 0 {
		return nil, ClassStats{}, &IncompleteClassError{}
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].OverallAverage > ordered[j].OverallAverage
	})

	stats := ClassStats{Size: len(ordered), Top: ordered[0].OverallAverage, Bottom: ordered[len(ordered)-1].OverallAverage}
	var sum float64
	dense := 0
	for i, r := range ordered {
		sum += r.OverallAverage
		tied := i > 0 && r.OverallAverage == ordered[i-1].OverallAverage
		if !tied {
			dense++
		}
		switch policy {
		case TieCompetition:
			if !tied {
				r.Rank = i + 1
			} else {
				r.Rank = ordered[i-1].Rank
			}
		case TieDense:
			r.Rank = dense
		default:
			r.Rank = i + 1
		}
	}
	stats.Average = Round2(sum / float64(len(ordered)))

	for _, r := range ordered {
		r.ClassSize = stats.Size
		r.ClassAverage = stats.Average
		r.ClassTopAverage = stats.Top
		r.ClassBottomAverage = stats.Bottom
		r.Status = StatusRanked
	}
	return ordered, stats, nil
}

func alignToRoster(reports []*Report, roster []string) ([]*Report, error) {
	byStudent := make(map[string]*Report, len(reports))
	var extra []string
	for _, r := range reports {
		if r == nil {
			continue
		}
		if _, dup := byStudent[r.StudentID]; dup {
			extra = append(extra, r.StudentID)
			continue
		}
		byStudent[r.StudentID] = r
	}

	ordered := make([]*Report, 0, len(roster))
	seen := make(map[string]bool, len(roster))
	var missing []string
	for _, id := range roster {
		if seen[id] {
			continue
		}
		seen[id] = true
		r, ok := byStudent[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		ordered = append(ordered, r)
	}
	for id := range byStudent {
		if !seen[id] {
			extra = append(extra, id)
		}
	}
	if len(missing) > 0 || len(extra) > 0 {
		sort.Strings(extra)
		return nil, &IncompleteClassError{Expected: len(seen), Built: len(ordered), Missing: missing, Extra: extra}
	}
	return ordered, nil
}
