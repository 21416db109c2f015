package app

import (
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// WritePDFReport renders the audit as a simple A4 PDF. Layout is
// intentionally plain: headings per section, one line per card, and
// recommendations as indented bullet text.
func WritePDFReport(rep *AuditReport, outPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	url := ""
	if rep.Data != nil {
		url = rep.Data.URL
	}
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "GEO Audit Report", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, url, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if rep.Analysis != nil && rep.Analysis.AEOScore != nil {
		aeo := rep.Analysis.AEOScore
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 8, fmt.Sprintf("Overall score: %d/100", aeo.TotalScore), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, 5, aeo.Completeness, "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.Ln(2)
	}

	for _, p := range rep.GlobalPenalties {
		pdf.SetTextColor(180, 0, 0)
		pdf.MultiCell(0, 5, fmt.Sprintf("Penalty (factor %.1f): %s", p.PenaltyFactor, p.Description), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
	}

	if rep.Analysis != nil {
		for _, sec := range rep.Analysis.Ordered() {
			pdf.Ln(3)
			pdf.SetFont("Helvetica", "B", 13)
			pdf.CellFormat(0, 8, fmt.Sprintf("%s  %d/%d (%s)", sec.Name, sec.TotalScore, sec.MaxScore, sec.Status), "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 11)
			for _, d := range sec.Drawers {
				pdf.SetFont("Helvetica", "B", 11)
				pdf.CellFormat(0, 6, fmt.Sprintf("%s  %d/%d", d.Name, d.TotalScore, d.MaxScore), "", 1, "L", false, 0, "")
				pdf.SetFont("Helvetica", "", 11)
				for _, c := range d.Cards {
					pdf.CellFormat(0, 5, fmt.Sprintf("  %s: %d/%d", c.Name, c.Score, c.MaxScore), "", 1, "L", false, 0, "")
					for _, r := range c.Recommendations {
						pdf.SetFont("Helvetica", "", 10)
						pdf.MultiCell(0, 4.5, fmt.Sprintf("    - %s %s", r.Problem, r.Solution), "", "L", false)
						pdf.SetFont("Helvetica", "", 11)
					}
				}
			}
		}
	}

	if rep.Executive != "" {
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 8, "Executive Summary", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 5, rep.Executive, "", "L", false)
	}

	return pdf.OutputFileAndClose(outPath)
}
