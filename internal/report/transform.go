package report

import "fmt"

// CardSpec is what an analyzer emits for one metric before transformation.
// Scores are already decided by the analyzer; the transformer only derives
// statuses and totals.
type CardSpec struct {
	ID              string
	Name            string
	Explanation     string
	Score           int
	MaxScore        int
	Recommendations []Recommendation
	SuccessMessage  string
	RawData         any
}

// DrawerSpec groups card specs under one drawer.
type DrawerSpec struct {
	ID          string
	Name        string
	Description string
	Cards       []CardSpec
}

// BuildSection transforms analyzer output into the uniform section shape.
// It derives every status from the score thresholds, sums card scores into
// drawer totals and drawer totals into the section total, and rejects
// out-of-range values. A returned error indicates a programmer error in the
// emitting analyzer, not a property of the audited page.
func BuildSection(id, name string, drawers []DrawerSpec) (*Section, error) {
	weight, ok := SectionWeights[id]
	if !ok {
		return nil, fmt.Errorf("report: unknown section id %q", id)
	}
	sec := &Section{
		ID:               id,
		Name:             name,
		WeightPercentage: weight,
		Drawers:          make([]Drawer, 0, len(drawers)),
	}
	for _, ds := range drawers {
		d := Drawer{
			ID:          ds.ID,
			Name:        ds.Name,
			Description: ds.Description,
			Cards:       make([]Card, 0, len(ds.Cards)),
		}
		for _, cs := range ds.Cards {
			if cs.MaxScore < 0 {
				return nil, fmt.Errorf("report: card %s/%s has negative maxScore %d", ds.ID, cs.ID, cs.MaxScore)
			}
			if cs.Score < 0 || cs.Score > cs.MaxScore {
				return nil, fmt.Errorf("report: card %s/%s score %d out of range [0,%d]", ds.ID, cs.ID, cs.Score, cs.MaxScore)
			}
			if cs.SuccessMessage == "" {
				return nil, fmt.Errorf("report: card %s/%s has no success message", ds.ID, cs.ID)
			}
			if cs.Explanation == "" {
				return nil, fmt.Errorf("report: card %s/%s has no explanation", ds.ID, cs.ID)
			}
			for _, r := range cs.Recommendations {
				if r.Impact < 0 || r.Impact > 10 {
					return nil, fmt.Errorf("report: card %s/%s recommendation impact %d out of range", ds.ID, cs.ID, r.Impact)
				}
			}
			recs := cs.Recommendations
			if recs == nil {
				recs = []Recommendation{}
			}
			d.Cards = append(d.Cards, Card{
				ID:              cs.ID,
				Name:            cs.Name,
				Explanation:     cs.Explanation,
				Score:           cs.Score,
				MaxScore:        cs.MaxScore,
				Status:          StatusFor(cs.Score, cs.MaxScore),
				Recommendations: recs,
				SuccessMessage:  cs.SuccessMessage,
				RawData:         cs.RawData,
			})
			d.TotalScore += cs.Score
			d.MaxScore += cs.MaxScore
		}
		d.Status = StatusFor(d.TotalScore, d.MaxScore)
		sec.Drawers = append(sec.Drawers, d)
		sec.TotalScore += d.TotalScore
		sec.MaxScore += d.MaxScore
	}
	sec.Status = StatusFor(sec.TotalScore, sec.MaxScore)
	return sec, nil
}

// sectionMaxScores are the fixed maximum scores per section.
var sectionMaxScores = map[string]int{
	SectionDiscoverability: 100,
	SectionStructuredData:  170,
	SectionLLMFormatting:   100,
	SectionAccessibility:   100,
	SectionReadability:     100,
}

// ErrorSection substitutes a failed analyzer with a zero-score section
// carrying a single explanatory card, so the rest of the report survives.
func ErrorSection(id, name string, cause error) *Section {
	max := sectionMaxScores[id]
	msg := "analyzer failed"
	if cause != nil {
		msg = cause.Error()
	}
	return &Section{
		ID:               id,
		Name:             name,
		WeightPercentage: SectionWeights[id],
		TotalScore:       0,
		MaxScore:         max,
		Status:           StatusError,
		Drawers: []Drawer{{
			ID:          id + "-error",
			Name:        "Analyzer Error",
			Description: "This analysis could not be completed.",
			TotalScore:  0,
			MaxScore:    max,
			Status:      StatusError,
			Cards: []Card{{
				ID:          id + "-error",
				Name:        "Analysis Failed",
				Explanation: "The analyzer encountered an internal error and produced no metrics.",
				Score:       0,
				MaxScore:    max,
				Status:      StatusError,
				Recommendations: []Recommendation{{
					Problem:  fmt.Sprintf("The %s analysis failed: %s", name, msg),
					Solution: "Re-run the audit. If the failure persists, the page may use markup the auditor cannot process.",
					Impact:   5,
				}},
				SuccessMessage: "Analysis completed.",
			}},
		}},
	}
}

// Validate re-checks the summation invariants of a built section. It exists
// for the property suite and for guarding hand-assembled fixtures.
func Validate(s *Section) error {
	if s == nil {
		return fmt.Errorf("report: nil section")
	}
	secTotal, secMax := 0, 0
	for _, d := range s.Drawers {
		total, max := 0, 0
		for _, c := range d.Cards {
			if c.Score < 0 || c.Score > c.MaxScore {
				return fmt.Errorf("report: card %s score %d out of range [0,%d]", c.ID, c.Score, c.MaxScore)
			}
			total += c.Score
			max += c.MaxScore
		}
		if total != d.TotalScore || max != d.MaxScore {
			return fmt.Errorf("report: drawer %s totals %d/%d do not match card sums %d/%d", d.ID, d.TotalScore, d.MaxScore, total, max)
		}
		secTotal += d.TotalScore
		secMax += d.MaxScore
	}
	if secTotal != s.TotalScore || secMax != s.MaxScore {
		return fmt.Errorf("report: section %s totals %d/%d do not match drawer sums %d/%d", s.ID, s.TotalScore, s.MaxScore, secTotal, secMax)
	}
	return nil
}
