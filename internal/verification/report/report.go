package report

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/idproof/idproof-backend/internal/verification/domain"
)

// Generator renders completed verification records as downloadable PDF
// reports
type Generator struct{}

// NewGenerator creates a report generator
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate renders the record into PDF bytes. Only completed records carry
// a full verdict bundle; callers enforce that before asking for a report.
func (g *Generator) Generate(rec *domain.Record) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Identity Verification Report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 12, "Identity Verification Report")
	pdf.Ln(16)

	pdf.SetFont("Helvetica", "", 11)
	g.row(pdf, "Record", fmt.Sprintf("#%d", rec.ID))
	g.row(pdf, "Created", rec.CreatedAt.Format(time.RFC1123))
	if rec.CompletedAt != nil {
		g.row(pdf, "Completed", rec.CompletedAt.Format(time.RFC1123))
	}
	g.row(pdf, "Status", string(rec.Status))
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 10, "Document Extraction")
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 11)
	g.row(pdf, "Name", strOrDash(rec.ExtractedName))
	g.row(pdf, "Date of birth", strOrDash(rec.ExtractedDOB))
	g.row(pdf, "Age on document", intOrDash(rec.ExtractedAge))
	g.row(pdf, "OCR language", strOrDash(rec.OCRLanguage))
	g.row(pdf, "OCR confidence", intOrDash(rec.OCRConfidence))
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 10, "Verification Results")
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 11)
	g.row(pdf, "Face match score", intOrDash(rec.FaceMatchScore))
	g.row(pdf, "Face confidence", intOrDash(rec.FaceConfidence))
	g.row(pdf, "Estimated age", intOrDash(rec.DetectedAge))
	g.row(pdf, "Age confidence", intOrDash(rec.AgeConfidence))
	g.row(pdf, "Identity verified", verdict(rec.IdentityVerified))
	g.row(pdf, "Age verified", verdict(rec.AgeVerified))
	pdf.Ln(6)

	if fb := rec.QualityFeedback; fb != nil {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.Cell(0, 10, "Feedback")
		pdf.Ln(10)
		pdf.SetFont("Helvetica", "", 10)
		for _, line := range fb.Overall {
			pdf.MultiCell(0, 6, "- "+line, "", "L", false)
		}
		for _, line := range fb.Face {
			pdf.MultiCell(0, 6, "- "+line, "", "L", false)
		}
		for _, line := range fb.Age {
			pdf.MultiCell(0, 6, "- "+line, "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) row(pdf *fpdf.Fpdf, label, value string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(55, 7, label)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, value)
	pdf.Ln(7)
}

func strOrDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func intOrDash(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func verdict(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}
