package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/nurpe/gigflow/internal/model"
)

// Generator renders hire confirmations with the built-in Helvetica face.
// Text outside cp1252 is replaced by the translator.
type Generator struct {
	fontName string
}

func NewGenerator() *Generator {
	return &Generator{fontName: "Helvetica"}
}

func (g *Generator) Generate(doc model.HireConfirmation) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont(g.fontName, "B", 16)
	pdf.CellFormat(0, 10, "Hire confirmation", "", 1, "C", false, 0, "")

	pdf.SetFont(g.fontName, "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Issued %s", formatDate(doc.IssuedAt)), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	section(pdf, g.fontName, "Gig")
	lines := []string{
		tr(doc.Gig.Title),
		fmt.Sprintf("Reference: %s", doc.Gig.ID),
		fmt.Sprintf("Client: %s", doc.Gig.OwnerID),
		fmt.Sprintf("Posted: %s", formatDate(doc.Gig.CreatedAt)),
		fmt.Sprintf("Budget: %s", formatAmount(doc.Gig.Budget)),
	}
	for _, line := range lines {
		pdf.MultiCell(0, 6, line, "", "L", false)
	}
	pdf.Ln(2)
	pdf.MultiCell(0, 5, tr(safeValue(doc.Gig.Description)), "", "L", false)
	pdf.Ln(4)

	section(pdf, g.fontName, "Accepted bid")
	headers := []string{"Bid", "Freelancer", "Price"}
	widths := []float64{70, 70, 30}
	drawTableRow(pdf, g.fontName, headers, widths, true)
	drawTableRow(pdf, g.fontName, []string{
		doc.Bid.ID.String(),
		doc.Bid.FreelancerID.String(),
		formatAmount(doc.Bid.Price),
	}, widths, false)
	pdf.Ln(2)
	pdf.SetFont(g.fontName, "", 10)
	pdf.MultiCell(0, 5, tr(safeValue(doc.Bid.Message)), "", "L", false)
	pdf.Ln(2)
	pdf.CellFormat(0, 6, fmt.Sprintf("Hired on %s", formatDate(doc.Bid.UpdatedAt)), "", 1, "L", false, 0, "")

	if doc.Bid.Price > doc.Gig.Budget {
		pdf.SetTextColor(200, 0, 0)
		pdf.MultiCell(0, 6, "Note: the accepted price exceeds the posted budget.", "", "L", false)
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.Ln(8)
	section(pdf, g.fontName, "Signatures")
	signatureBlock(pdf, g.fontName, "Client")
	signatureBlock(pdf, g.fontName, "Freelancer")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func section(pdf *gofpdf.Fpdf, fontName, title string) {
	pdf.SetFont(fontName, "B", 12)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
	pdf.SetFont(fontName, "", 10)
}

func drawTableRow(pdf *gofpdf.Fpdf, fontName string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 9)
	for i, col := range cols {
		align := "L"
		if i == len(cols)-1 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 8, col, "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func signatureBlock(pdf *gofpdf.Fpdf, fontName, label string) {
	pdf.SetFont(fontName, "", 11)
	pdf.CellFormat(0, 8, fmt.Sprintf("%s: ______________________", label), "", 1, "L", false, 0, "")
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatAmount(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02.01.2006")
}
