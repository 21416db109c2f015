// Package analyzer implements the five audit analyzers. Each analyzer is a
// plain function from the shared immutable inputs to a report section; no
// analyzer reparses HTML or observes another analyzer's state. Scoring rules
// and knowledge bases live in this package; the report package only reshapes
// and totals what is emitted here.
package analyzer

import (
	"math"

	"github.com/geoaudit/geoaudit/internal/fetch"
	"github.com/geoaudit/geoaudit/internal/htmldoc"
	"github.com/geoaudit/geoaudit/internal/probe"
)

// Input carries everything an analyzer may read. Doc is nil when the HTML
// fetch failed; only the discoverability analyzer runs in that case.
type Input struct {
	URL       string
	Collected fetch.CollectedData
	Doc       *htmldoc.Document
	// AIBots is the canonical crawler list used for robots access scoring.
	// Empty means DefaultAIBots.
	AIBots []string
	// Probe is the performance result consumed by the accessibility analyzer.
	Probe probe.Result
}

func (in Input) aiBots() []string {
	if len(in.AIBots) > 0 {
		return in.AIBots
	}
	return DefaultAIBots
}

func roundRatio(max int, num, den int) int {
	if den <= 0 {
		return max
	}
	return int(math.Round(float64(max) * float64(num) / float64(den)))
}

func clampFloor(v, floor int) int {
	if v < floor {
		return floor
	}
	return v
}
