// Package report defines the uniform hierarchical report model produced by
// the audit pipeline: sections of drawers of metric cards, the aggregated
// AEO score, and the response envelope. Analyzers hand their raw results to
// the transformer in this package; nothing here invents scores.
package report

// Status classifies a card, drawer or section by its score ratio.
type Status string

const (
	StatusExcellent Status = "excellent"
	StatusGood      Status = "good"
	StatusWarning   Status = "warning"
	StatusError     Status = "error"
)

// StatusFor derives the status from score/maxScore. A zero maxScore means the
// unit is informational and cannot fail, so it reads as excellent.
func StatusFor(score, maxScore int) Status {
	if maxScore <= 0 {
		return StatusExcellent
	}
	ratio := float64(score) / float64(maxScore)
	switch {
	case ratio >= 0.9:
		return StatusExcellent
	case ratio >= 0.7:
		return StatusGood
	case ratio >= 0.5:
		return StatusWarning
	default:
		return StatusError
	}
}

// Recommendation is one actionable finding attached to a card.
type Recommendation struct {
	Problem     string `json:"problem"`
	Solution    string `json:"solution"`
	Explanation string `json:"explanation,omitempty"`
	// Impact ranks urgency from 0 (cosmetic) to 10 (critical).
	Impact int `json:"impact"`
}

// Card is the leaf scoring unit.
type Card struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Explanation     string           `json:"explanation"`
	Score           int              `json:"score"`
	MaxScore        int              `json:"maxScore"`
	Status          Status           `json:"status"`
	Recommendations []Recommendation `json:"recommendations"`
	// SuccessMessage is shown when Recommendations is empty.
	SuccessMessage string `json:"successMessage"`
	// RawData carries per-analyzer diagnostic detail. Each analyzer stores
	// its own typed struct here; it is never consulted for scoring.
	RawData any `json:"rawData,omitempty"`
}

// Drawer groups related cards inside a section.
type Drawer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	TotalScore  int    `json:"totalScore"`
	MaxScore    int    `json:"maxScore"`
	Status      Status `json:"status"`
	Cards       []Card `json:"cards"`
}

// Section is one analyzer's full output.
type Section struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	WeightPercentage int      `json:"weightPercentage"`
	TotalScore       int      `json:"totalScore"`
	MaxScore         int      `json:"maxScore"`
	Status           Status   `json:"status"`
	Drawers          []Drawer `json:"drawers"`
}

// GlobalPenalty is a multiplicative reduction applied to the aggregated
// score across all sections.
type GlobalPenalty struct {
	Type          string   `json:"type"`
	Description   string   `json:"description"`
	PenaltyFactor float64  `json:"penaltyFactor"`
	Details       []string `json:"details,omitempty"`
	Solutions     []string `json:"solutions,omitempty"`
}

// SectionContribution is one section's share of the final score.
type SectionContribution struct {
	Score        int     `json:"score"`
	Weight       float64 `json:"weight"`
	Contribution int     `json:"contribution"`
}

// AEOScore is the aggregated 0-100 result.
type AEOScore struct {
	TotalScore   int                            `json:"totalScore"`
	MaxScore     int                            `json:"maxScore"`
	Breakdown    map[string]SectionContribution `json:"breakdown"`
	Completeness string                         `json:"completeness"`
}

// Canonical section identifiers, in report order.
const (
	SectionDiscoverability = "discoverability"
	SectionStructuredData  = "structuredData"
	SectionLLMFormatting   = "llmFormatting"
	SectionAccessibility   = "accessibility"
	SectionReadability     = "readability"
)

// SectionWeights are the fixed aggregation weights; they sum to 100.
var SectionWeights = map[string]int{
	SectionDiscoverability: 20,
	SectionStructuredData:  25,
	SectionLLMFormatting:   25,
	SectionAccessibility:   15,
	SectionReadability:     15,
}

// SectionOrder fixes the deterministic ordering of sections in reports.
var SectionOrder = []string{
	SectionDiscoverability,
	SectionStructuredData,
	SectionLLMFormatting,
	SectionAccessibility,
	SectionReadability,
}

// Analysis holds the five sections plus the aggregate, in fixed order.
type Analysis struct {
	Discoverability *Section  `json:"discoverability,omitempty"`
	StructuredData  *Section  `json:"structuredData,omitempty"`
	LLMFormatting   *Section  `json:"llmFormatting,omitempty"`
	Accessibility   *Section  `json:"accessibility,omitempty"`
	Readability     *Section  `json:"readability,omitempty"`
	AEOScore        *AEOScore `json:"aeoScore,omitempty"`
}

// Get returns the section with the given canonical id, or nil.
func (a *Analysis) Get(id string) *Section {
	if a == nil {
		return nil
	}
	switch id {
	case SectionDiscoverability:
		return a.Discoverability
	case SectionStructuredData:
		return a.StructuredData
	case SectionLLMFormatting:
		return a.LLMFormatting
	case SectionAccessibility:
		return a.Accessibility
	case SectionReadability:
		return a.Readability
	}
	return nil
}

// Set stores a section under its canonical id.
func (a *Analysis) Set(id string, s *Section) {
	switch id {
	case SectionDiscoverability:
		a.Discoverability = s
	case SectionStructuredData:
		a.StructuredData = s
	case SectionLLMFormatting:
		a.LLMFormatting = s
	case SectionAccessibility:
		a.Accessibility = s
	case SectionReadability:
		a.Readability = s
	}
}

// Ordered returns the present sections in the canonical report order.
func (a *Analysis) Ordered() []*Section {
	if a == nil {
		return nil
	}
	out := make([]*Section, 0, len(SectionOrder))
	for _, id := range SectionOrder {
		if s := a.Get(id); s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Summary captures run-level bookkeeping for one audit.
type Summary struct {
	TotalTimeMs       int64 `json:"totalTimeMs"`
	SuccessCount      int   `json:"successCount"`
	FailureCount      int   `json:"failureCount"`
	PartialSuccess    bool  `json:"partialSuccess"`
	AnalysisCompleted bool  `json:"analysisCompleted"`
}
