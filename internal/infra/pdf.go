package infra

// pdf.go — deal confirmation document rendering using go-pdf/fpdf.
// Produces an A4 summary of a completed deal version: parties, item table
// with line amounts, and the grand total. Written to
// storagePath/deal_{deal_id}_v{version}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"tradecore/internal/model"

	"github.com/go-pdf/fpdf"
)

// GenerateDealPDF renders the confirmation document for one deal version and
// returns the absolute path of the generated file.
func GenerateDealPDF(deal *model.Deal, buyerName, sellerName, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	fileName := fmt.Sprintf("deal_%s_v%d.pdf", deal.DealID, deal.Version)
	filePath := filepath.Join(storagePath, fileName)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 10, "Deal Confirmation", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, fmt.Sprintf("Deal %s — version %d", deal.DealID, deal.Version), "", 1, "C", false, 0, "")
	pdf.CellFormat(contentW, 5, deal.UpdatedAt.Format("02 Jan 2006 15:04 MST"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// ── Parties ──────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW/2, 6, "Buyer", "B", 0, "L", false, 0, "")
	pdf.CellFormat(contentW/2, 6, "Seller", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW/2, 6, buyerName, "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW/2, 6, sellerName, "", 1, "L", false, 0, "")
	if deal.ContractNumber != nil {
		pdf.Ln(2)
		pdf.CellFormat(contentW, 5, "Contract no. "+*deal.ContractNumber, "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	// ── Items table ──────────────────────────────────────────────────────────
	col1 := contentW * 0.08 // position
	col2 := contentW * 0.40 // product
	col3 := contentW * 0.14 // qty
	col4 := contentW * 0.18 // unit price
	col5 := contentW * 0.20 // line amount

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1, 6, "#", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col2, 6, "Product", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, "Qty", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col4, 6, "Unit price", "B", 0, "R", false, 0, "")
	pdf.CellFormat(col5, 6, "Amount", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, item := range deal.Items {
		name := item.ProductName
		if len(name) > 40 {
			name = name[:39] + "…"
		}
		pdf.CellFormat(col1, 6, fmt.Sprintf("%d", item.Position), "", 0, "C", false, 0, "")
		pdf.CellFormat(col2, 6, name, "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 6, item.Quantity.String()+" "+item.Unit, "", 0, "C", false, 0, "")
		pdf.CellFormat(col4, 6, item.UnitPrice.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(col5, 6, item.LineAmount().StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(2)

	// ── Total ────────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(col1+col2+col3+col4, 8, "TOTAL:", "", 0, "R", false, 0, "")
	pdf.CellFormat(col5, 8, deal.TotalAmount().StringFixed(2), "", 1, "R", false, 0, "")

	// ── Footer ───────────────────────────────────────────────────────────────
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(contentW, 5, "Accepted by both parties. Generated automatically.", "", 1, "C", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write %s: %w", filePath, err)
	}
	return filePath, nil
}
