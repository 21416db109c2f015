package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Aggregate combines the present sections into the final AEO score.
//
// Each present section contributes normalized score x weight. When a section
// is missing its weight is redistributed proportionally across the survivors,
// which the completeness string records. Global penalties then multiply the
// base: final = round(base x PRODUCT(1 - factor)), clamped to [0,100].
func Aggregate(analysis *Analysis, penalties []GlobalPenalty) AEOScore {
	present := make([]*Section, 0, len(SectionOrder))
	missing := make([]string, 0)
	for _, id := range SectionOrder {
		if s := analysis.Get(id); s != nil {
			present = append(present, s)
		} else {
			missing = append(missing, id)
		}
	}

	score := AEOScore{
		MaxScore:  100,
		Breakdown: make(map[string]SectionContribution, len(present)),
	}
	if len(present) == 0 {
		score.Completeness = "0/5 sections analyzed; no score available"
		return score
	}

	weightSum := 0
	for _, s := range present {
		weightSum += SectionWeights[s.ID]
	}

	var base float64
	for _, s := range present {
		normalized := 0.0
		if s.MaxScore > 0 {
			normalized = float64(s.TotalScore) / float64(s.MaxScore)
		}
		weight := float64(SectionWeights[s.ID]) * 100 / float64(weightSum)
		base += normalized * weight
		score.Breakdown[s.ID] = SectionContribution{
			Score:        s.TotalScore,
			Weight:       weight,
			Contribution: int(math.Round(normalized * weight)),
		}
	}

	baseScore := int(math.Round(base))
	factor := 1.0
	for _, p := range penalties {
		f := p.PenaltyFactor
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		factor *= 1 - f
	}
	final := int(math.Round(float64(baseScore) * factor))
	if final < 0 {
		final = 0
	}
	if final > 100 {
		final = 100
	}
	score.TotalScore = final
	score.Completeness = completeness(len(present), missing)
	return score
}

func completeness(present int, missing []string) string {
	if len(missing) == 0 {
		return "5/5 sections analyzed"
	}
	sort.Strings(missing)
	return fmt.Sprintf("%d/5 sections analyzed (%s unavailable); remaining weights rescaled proportionally",
		present, strings.Join(missing, ", "))
}
