package receipt

import (
	"fmt"
	"time"

	"shop-pos/internal/models"

	"github.com/phpdave11/gofpdf"
)

// WritePDF renders the same content as FormatText on an A4 page.
func WritePDF(path string, sale *models.Sale, shop Shop, printed time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetTitle(fmt.Sprintf("Receipt %s", Number(shop.Prefix, sale.ID)), true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 9, tr(shop.Name), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	if shop.Address != "" {
		pdf.CellFormat(0, 5, tr(shop.Address), "", 1, "C", false, 0, "")
	}
	if shop.Phone != "" {
		pdf.CellFormat(0, 5, tr("Ph: "+shop.Phone), "", 1, "C", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 7, "Receipt #"+Number(shop.Prefix, sale.ID), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	kv := func(k, v string) { pdf.CellFormat(0, 5, tr(k+": "+v), "", 1, "L", false, 0, "") }
	kv("Date", sale.SaleDate.Format("2006-01-02"))
	kv("Time", sale.SaleDate.Format("15:04:05"))
	kv("Cashier", cashier(sale))
	if shop.Terminal != "" {
		kv("Terminal", shop.Terminal)
	}
	pdf.Ln(3)

	if c := sale.Customer; c != nil && c.ID != models.WalkInCustomerID {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 6, "Customer Information:", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		kv("Name", c.Name)
		kv("Phone", orNA(c.Phone))
		kv("Address", orNA(c.Address))
		pdf.Ln(3)
	}

	// items table: 40/20/20/20 split of the printable width
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	w := pageW - left - right
	cols := []float64{w * 0.4, w * 0.2, w * 0.2, w * 0.2}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(0, 128, 0)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range []string{"Item", "Price", "Qty", "Total"} {
		pdf.CellFormat(cols[i], 8, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	for _, it := range sale.Items {
		pdf.CellFormat(cols[0], 7, tr(itemName(it)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(cols[1], 7, "Rs. "+it.UnitPrice.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(cols[2], 7, fmt.Sprint(it.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(cols[3], 7, "Rs. "+it.TotalPrice.StringFixed(2), "1", 1, "R", false, 0, "")
	}

	total := func(label, value string) {
		pdf.CellFormat(cols[0]+cols[1], 7, "", "", 0, "", false, 0, "")
		pdf.CellFormat(cols[2], 7, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(cols[3], 7, "Rs. "+value, "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 10)
	total("Subtotal:", sale.Subtotal.StringFixed(2))
	if sale.Discount.IsPositive() {
		total("Discount:", sale.Discount.StringFixed(2))
	}
	if sale.Tax.IsPositive() {
		total("Tax:", sale.Tax.StringFixed(2))
	}
	total("Total:", sale.Total.StringFixed(2))
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, "Payment Information:", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	kv("Payment Method", sale.PaymentMethod)
	switch sale.PaymentMethod {
	case models.PaymentCash:
		kv("Cash Amount", "Rs. "+sale.AmountPaid.StringFixed(2))
		kv("Change", "Rs. "+sale.ChangeGiven.StringFixed(2))
	case models.PaymentPartialUdhaar:
		kv("Cash Amount", "Rs. "+sale.AmountPaid.StringFixed(2))
		kv("Udhaar Amount", "Rs. "+sale.UdhaarAmount.StringFixed(2))
	case models.PaymentUdhaar:
		kv("Udhaar Amount", "Rs. "+sale.UdhaarAmount.StringFixed(2))
	}
	pdf.Ln(8)

	if shop.Footer != "" {
		pdf.CellFormat(0, 5, tr(shop.Footer), "", 1, "C", false, 0, "")
	}
	pdf.CellFormat(0, 5, "Please visit again.", "", 1, "C", false, 0, "")
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(0, 5, "Generated on: "+printed.Format("2006-01-02 15:04:05"), "", 1, "R", false, 0, "")

	return pdf.OutputFileAndClose(path)
}
