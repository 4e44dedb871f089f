// Package receipt renders completed sales as text and PDF receipts.
package receipt

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shop-pos/internal/models"
	"shop-pos/internal/settings"

	"github.com/shopspring/decimal"
)

const width = 50

// SaleSource loads a sale with items, products, customer and cashier.
type SaleSource interface {
	GetSale(ctx context.Context, id uint) (*models.Sale, error)
}

// SettingsSource reads shop settings with a fallback.
type SettingsSource interface {
	GetOr(ctx context.Context, key, def string) string
}

// Shop is the header and footer printed on every receipt.
type Shop struct {
	Name     string
	Address  string
	Phone    string
	Footer   string
	Prefix   string
	Terminal string
}

// Paths lists the files written for one receipt.
type Paths struct {
	Text string `json:"text"`
	PDF  string `json:"pdf,omitempty"`
}

type Generator struct {
	sales    SaleSource
	settings SettingsSource
	dir      string
	terminal string
	now      func() time.Time
}

func NewGenerator(sales SaleSource, settings SettingsSource, dir, terminal string) *Generator {
	return &Generator{sales: sales, settings: settings, dir: dir, terminal: terminal, now: time.Now}
}

func (g *Generator) shop(ctx context.Context) Shop {
	return Shop{
		Name:     g.settings.GetOr(ctx, settings.ShopName, "MAHER ZARAI MARKAZ"),
		Address:  g.settings.GetOr(ctx, settings.ShopAddress, ""),
		Phone:    g.settings.GetOr(ctx, settings.ShopPhone, ""),
		Footer:   g.settings.GetOr(ctx, settings.ReceiptFooter, "Thank you for your business!"),
		Prefix:   g.settings.GetOr(ctx, settings.ReceiptPrefix, "INV"),
		Terminal: g.terminal,
	}
}

// Generate writes receipt_<id>_<timestamp>.txt and, when withPDF is set, the
// matching .pdf into the receipt directory.
func (g *Generator) Generate(ctx context.Context, saleID uint, withPDF bool) (*Paths, error) {
	sale, err := g.sales.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return nil, err
	}

	shop := g.shop(ctx)
	now := g.now()
	base := filepath.Join(g.dir, fmt.Sprintf("receipt_%d_%s", sale.ID, now.Format("20060102_150405")))

	paths := &Paths{Text: base + ".txt"}
	if err := os.WriteFile(paths.Text, []byte(FormatText(sale, shop, now)), 0o644); err != nil {
		log.Printf("Error generating receipt: %v", err)
		return nil, err
	}
	if withPDF {
		paths.PDF = base + ".pdf"
		if err := WritePDF(paths.PDF, sale, shop, now); err != nil {
			log.Printf("Error generating PDF receipt: %v", err)
			return nil, err
		}
	}
	log.Printf("Receipt generated for sale %d: %s", sale.ID, base)
	return paths, nil
}

// Number is the printed receipt number, e.g. INV-000042.
func Number(prefix string, saleID uint) string {
	if prefix == "" {
		return fmt.Sprintf("%06d", saleID)
	}
	return fmt.Sprintf("%s-%06d", prefix, saleID)
}

// FormatText lays the sale out on a 50-column slip.
func FormatText(sale *models.Sale, shop Shop, printed time.Time) string {
	var b strings.Builder
	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}
	rule := func(ch string) { line("%s", strings.Repeat(ch, width)) }

	rule("=")
	line("%s", center(shop.Name))
	if shop.Address != "" {
		line("%s", center(shop.Address))
	}
	if shop.Phone != "" {
		line("%s", center("Ph: "+shop.Phone))
	}
	rule("=")
	line("")

	line("Receipt #%s", Number(shop.Prefix, sale.ID))
	line("Date: %s", sale.SaleDate.Format("2006-01-02"))
	line("Time: %s", sale.SaleDate.Format("15:04:05"))
	line("Cashier: %s", cashier(sale))
	if shop.Terminal != "" {
		line("Terminal: %s", shop.Terminal)
	}
	line("")

	if c := sale.Customer; c != nil && c.ID != models.WalkInCustomerID {
		line("Customer Information:")
		line("Name: %s", c.Name)
		line("Phone: %s", orNA(c.Phone))
		line("Address: %s", orNA(c.Address))
		line("")
	}

	rule("-")
	line("%-23s %9s %5s %10s", "Item", "Price", "Qty", "Total")
	rule("-")
	for _, it := range sale.Items {
		line("%-23s %9s %5d %10s", truncate(itemName(it), 23), it.UnitPrice.StringFixed(2), it.Quantity, it.TotalPrice.StringFixed(2))
	}
	rule("-")

	amount := func(label string, d decimal.Decimal) { line("%-40s%10s", label, d.StringFixed(2)) }
	amount("Subtotal:", sale.Subtotal)
	if sale.Discount.IsPositive() {
		amount("Discount:", sale.Discount)
	}
	if sale.Tax.IsPositive() {
		amount("Tax:", sale.Tax)
	}
	amount("Total:", sale.Total)
	line("")

	line("Payment Information:")
	line("Payment Method: %s", sale.PaymentMethod)
	switch sale.PaymentMethod {
	case models.PaymentCash:
		line("Cash Amount: %s", sale.AmountPaid.StringFixed(2))
		line("Change: %s", sale.ChangeGiven.StringFixed(2))
	case models.PaymentPartialUdhaar:
		line("Cash Amount: %s", sale.AmountPaid.StringFixed(2))
		line("Udhaar Amount: %s", sale.UdhaarAmount.StringFixed(2))
	case models.PaymentUdhaar:
		line("Udhaar Amount: %s", sale.UdhaarAmount.StringFixed(2))
	}
	line("")

	if shop.Footer != "" {
		line("%s", center(shop.Footer))
	}
	line("%s", center("Please visit again."))
	line("")
	line("Generated on: %s", printed.Format("2006-01-02 15:04:05"))
	return b.String()
}

func center(s string) string {
	s = truncate(s, width)
	pad := (width - len([]rune(s))) / 2
	return strings.Repeat(" ", pad) + s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func itemName(it models.SaleItem) string {
	if it.Product != nil {
		return it.Product.Name
	}
	return fmt.Sprintf("Product #%d", it.ProductID)
}

func cashier(sale *models.Sale) string {
	if sale.User == nil {
		return "N/A"
	}
	if sale.User.Name != "" {
		return sale.User.Name
	}
	return sale.User.Username
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
