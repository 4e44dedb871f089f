package reports

import (
	"fmt"
	"io"

	"shop-pos/internal/models"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Table is a report flattened for a spreadsheet sheet.
type Table struct {
	Title  string
	Header []string
	Rows   [][]interface{}
}

func money(d decimal.Decimal) float64 { return d.Round(2).InexactFloat64() }

func SalesTable(sales []models.Sale) Table {
	t := Table{Title: "Sales", Header: []string{"Sale ID", "Date", "Customer", "Cashier", "Payment", "Subtotal", "Discount", "Tax", "Total", "Paid", "Udhaar"}}
	for _, s := range sales {
		var customer, cashier string
		if s.Customer != nil {
			customer = s.Customer.Name
		}
		if s.User != nil {
			cashier = s.User.Username
		}
		t.Rows = append(t.Rows, []interface{}{
			s.ID, s.SaleDate.Format("2006-01-02 15:04"), customer, cashier, s.PaymentMethod,
			money(s.Subtotal), money(s.Discount), money(s.Tax), money(s.Total), money(s.AmountPaid), money(s.UdhaarAmount),
		})
	}
	return t
}

func MonthlyTable(days []DaySummary) Table {
	t := Table{Title: "Monthly Summary", Header: []string{"Date", "Sales", "Subtotal", "Discount", "Tax", "Total", "Udhaar"}}
	for _, d := range days {
		t.Rows = append(t.Rows, []interface{}{d.Date, d.NumSales, money(d.Subtotal), money(d.Discount), money(d.Tax), money(d.Total), money(d.Udhaar)})
	}
	return t
}

func TopProductsTable(rows []ProductSales) Table {
	t := Table{Title: "Top Products", Header: []string{"Product", "Category", "Sales", "Quantity", "Revenue", "Avg Price"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{r.Name, r.Category, r.NumSales, r.TotalQuantity, money(r.TotalRevenue), money(r.AvgPrice)})
	}
	return t
}

func ValuationTable(v *Valuation) Table {
	t := Table{Title: "Stock Valuation", Header: []string{"Category", "Product", "Quantity", "Cost Price", "Total Cost"}}
	for _, g := range v.Categories {
		for _, it := range g.Items {
			t.Rows = append(t.Rows, []interface{}{g.CategoryName, it.Name, it.Quantity, money(it.CostPrice), money(it.TotalCost)})
		}
		t.Rows = append(t.Rows, []interface{}{g.CategoryName + " subtotal", "", "", "", money(g.Subtotal)})
	}
	t.Rows = append(t.Rows, []interface{}{"GRAND TOTAL", "", "", "", money(v.GrandTotal)})
	return t
}

// ExportExcel writes each table to its own sheet, in order.
func ExportExcel(w io.Writer, tables ...Table) error {
	if len(tables) == 0 {
		return fmt.Errorf("nothing to export")
	}
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	for i, t := range tables {
		name := t.Title
		if len(name) > 31 {
			name = name[:31]
		}
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return err
		}

		header := make([]interface{}, len(t.Header))
		for j, h := range t.Header {
			header[j] = h
		}
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return err
		}
		if len(t.Header) > 0 {
			lastCol, _ := excelize.CoordinatesToCellName(len(t.Header), 1)
			if err := f.SetCellStyle(name, "A1", lastCol, bold); err != nil {
				return err
			}
		}
		for r, row := range t.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			row := row
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				return err
			}
		}
	}
	return f.Write(w)
}
