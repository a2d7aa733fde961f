// Package receipt renders printable PDF receipts for confirmed sales.
// The folio is embedded as a QR code so a later return or audit can
// pull the canonical sale from the ledger by scanning it.
package receipt

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
	"github.com/ventamovil/posync/internal/models"
)

// 80mm thermal roll, height grows with the line count
const (
	pageWidth  = 80.0
	marginX    = 5.0
	qrSize     = 24.0
	lineHeight = 4.5
)

// Generate renders the receipt PDF for a confirmed sale
func Generate(rec *models.OfflineSaleRecord, storeName string) ([]byte, error) {
	if rec.Status != models.SaleStatusConfirmed {
		return nil, fmt.Errorf("sale %s is %s, receipts are only issued for confirmed sales", rec.ID, rec.Status)
	}
	if rec.Folio == "" {
		return nil, fmt.Errorf("sale %s has no folio yet", rec.ID)
	}

	pageHeight := 70.0 + float64(len(rec.LineItems))*lineHeight + qrSize
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "mm",
		Size:    gofpdf.SizeType{Wd: pageWidth, Ht: pageHeight},
	})
	pdf.SetMargins(marginX, 5, marginX)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	usable := pageWidth - 2*marginX

	// Header
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(usable, 5, storeName, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(usable, 4, fmt.Sprintf("Folio: %s", rec.Folio), "", 1, "C", false, 0, "")
	pdf.CellFormat(usable, 4, rec.CreatedAt.Format("2006-01-02 15:04"), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	// Line items
	pdf.SetFont("Arial", "B", 7)
	pdf.CellFormat(usable*0.45, lineHeight, "Product", "B", 0, "L", false, 0, "")
	pdf.CellFormat(usable*0.2, lineHeight, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(usable*0.35, lineHeight, "Total", "B", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 7)
	for _, li := range rec.LineItems {
		pdf.CellFormat(usable*0.45, lineHeight, li.ProductID, "", 0, "L", false, 0, "")
		pdf.CellFormat(usable*0.2, lineHeight, fmt.Sprintf("%.2f %s", li.Qty, li.UnitCode), "", 0, "R", false, 0, "")
		pdf.CellFormat(usable*0.35, lineHeight, fmt.Sprintf("%.2f", li.LineTotal), "", 1, "R", false, 0, "")
	}
	pdf.Ln(2)

	// Totals
	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(usable*0.65, 4, "Subtotal", "", 0, "R", false, 0, "")
	pdf.CellFormat(usable*0.35, 4, fmt.Sprintf("%.2f", rec.Subtotal), "", 1, "R", false, 0, "")
	pdf.CellFormat(usable*0.65, 4, "Tax", "", 0, "R", false, 0, "")
	pdf.CellFormat(usable*0.35, 4, fmt.Sprintf("%.2f", rec.TaxTotal), "", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(usable*0.65, 5, "Total", "", 0, "R", false, 0, "")
	pdf.CellFormat(usable*0.35, 5, fmt.Sprintf("%.2f", rec.GrandTotal), "", 1, "R", false, 0, "")
	pdf.Ln(2)

	// QR: folio plus sale uuid for ledger lookup
	qrContent := fmt.Sprintf("%s|%s", rec.Folio, rec.ID)
	qrPng, err := qrcode.Encode(qrContent, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to encode folio QR: %w", err)
	}

	imgOptions := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	_ = pdf.RegisterImageOptionsReader("folio_qr", imgOptions, bytes.NewReader(qrPng))
	pdf.ImageOptions("folio_qr", (pageWidth-qrSize)/2, pdf.GetY(), qrSize, qrSize, false, imgOptions, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
