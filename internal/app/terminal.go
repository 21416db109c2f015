package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/geoaudit/geoaudit/internal/report"
)

// WriteScorecard renders a colored terminal summary of the audit.
func WriteScorecard(w io.Writer, rep *AuditReport) {
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)

	url := ""
	if rep.Data != nil {
		url = rep.Data.URL
	}
	bold.Fprintf(w, "GEO audit: %s\n", url)

	if rep.Analysis == nil || rep.Analysis.AEOScore == nil {
		color.New(color.FgRed).Fprintln(w, "no analysis available")
		if rep.Message != "" {
			fmt.Fprintln(w, rep.Message)
		}
		return
	}

	aeo := rep.Analysis.AEOScore
	scoreColor(float64(aeo.TotalScore)/100).Fprintf(w, "Overall score: %d/100\n", aeo.TotalScore)
	faint.Fprintf(w, "%s\n\n", aeo.Completeness)

	for _, sec := range rep.Analysis.Ordered() {
		ratio := 0.0
		if sec.MaxScore > 0 {
			ratio = float64(sec.TotalScore) / float64(sec.MaxScore)
		}
		scoreColor(ratio).Fprintf(w, "%-18s %3d/%d", sec.Name, sec.TotalScore, sec.MaxScore)
		faint.Fprintf(w, "  (weight %d%%, %s)\n", sec.WeightPercentage, sec.Status)
		for _, d := range sec.Drawers {
			for _, c := range d.Cards {
				for _, r := range c.Recommendations {
					if r.Impact >= 6 {
						color.New(color.FgYellow).Fprintf(w, "  ! %s\n", r.Problem)
					}
				}
			}
		}
	}

	if len(rep.GlobalPenalties) > 0 {
		fmt.Fprintln(w)
		for _, p := range rep.GlobalPenalties {
			color.New(color.FgRed, color.Bold).Fprintf(w, "PENALTY x%.1f: %s\n", 1-p.PenaltyFactor, p.Description)
			if len(p.Details) > 0 {
				faint.Fprintf(w, "  %s\n", strings.Join(p.Details, ", "))
			}
		}
	}

	if rep.Executive != "" {
		fmt.Fprintln(w)
		bold.Fprintln(w, "Summary")
		fmt.Fprintln(w, rep.Executive)
	}

	fmt.Fprintln(w)
	faint.Fprintf(w, "%d/4 artifacts fetched, %d ms total\n",
		rep.Summary.SuccessCount, rep.Summary.TotalTimeMs)
}

func scoreColor(ratio float64) *color.Color {
	switch {
	case ratio >= 0.9:
		return color.New(color.FgGreen, color.Bold)
	case ratio >= 0.7:
		return color.New(color.FgGreen)
	case ratio >= 0.5:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

// StatusBadge renders a status word with its conventional color, for tests
// and ad hoc tooling.
func StatusBadge(s report.Status) string {
	switch s {
	case report.StatusExcellent:
		return color.GreenString(string(s))
	case report.StatusGood:
		return color.HiGreenString(string(s))
	case report.StatusWarning:
		return color.YellowString(string(s))
	default:
		return color.RedString(string(s))
	}
}
