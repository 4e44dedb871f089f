package inventory

import (
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"shop-pos/internal/activity"
	"shop-pos/internal/apperr"
	"shop-pos/internal/models"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Column headers of the product list workbook.
var importColumns = []string{
	"Product_Name", "Category", "Purchase_Price", "Selling_Price",
	"Stock_Quantity", "Min_Stock_Level", "Supplier_ID", "Date_Added",
}

// ImportResult counts what an import did. Problems lists rows that could not be read.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Problems []string `json:"problems,omitempty"`
}

// ImportExcel reads the first sheet of a product list workbook. Rows whose name
// already exists are skipped, so the import is safe to run more than once.
func (s *Service) ImportExcel(ctx context.Context, userID uint, r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: not a readable xlsx file: %v", apperr.ErrValidation, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("%w: file is empty or missing header row", apperr.ErrValidation)
	}

	col := map[string]int{}
	for i, h := range rows[0] {
		col[strings.TrimSpace(h)] = i
	}
	if _, ok := col["Product_Name"]; !ok {
		return nil, fmt.Errorf("%w: required column Product_Name is missing", apperr.ErrValidation)
	}

	res := &ImportResult{}
	err = s.store.WithTx(ctx, func(tx *gorm.DB) error {
		for n, row := range rows[1:] {
			get := func(name string) string {
				i, ok := col[name]
				if !ok || i >= len(row) {
					return ""
				}
				return strings.TrimSpace(row[i])
			}

			name := get("Product_Name")
			if name == "" {
				continue
			}
			var exists int64
			if err := tx.Model(&models.Product{}).Where("name = ?", name).Count(&exists).Error; err != nil {
				return err
			}
			if exists > 0 {
				res.Skipped++
				continue
			}

			p, err := productFromRow(get)
			if err != nil {
				res.Skipped++
				res.Problems = append(res.Problems, fmt.Sprintf("row %d (%s): %v", n+2, name, err))
				continue
			}
			p.Name = name
			if p.SupplierID != nil {
				if err := checkSupplier(tx, p.SupplierID); err != nil {
					p.SupplierID = nil
				}
			}
			if err := tx.Create(p).Error; err != nil {
				return err
			}
			res.Imported++
		}
		if res.Imported == 0 {
			return nil
		}
		return activity.Record(tx, userID, activity.ProductChange, fmt.Sprintf("Imported %d products from Excel", res.Imported))
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Product import finished: %d imported, %d skipped", res.Imported, res.Skipped)
	return res, nil
}

func productFromRow(get func(string) string) (*models.Product, error) {
	p := &models.Product{Category: get("Category"), DateAdded: datatypes.Date(time.Now())}
	var err error
	if p.PurchasePrice, err = parseMoney(get("Purchase_Price")); err != nil {
		return nil, fmt.Errorf("Purchase_Price: %w", err)
	}
	if p.SellingPrice, err = parseMoney(get("Selling_Price")); err != nil {
		return nil, fmt.Errorf("Selling_Price: %w", err)
	}
	if p.StockQuantity, err = parseCount(get("Stock_Quantity")); err != nil {
		return nil, fmt.Errorf("Stock_Quantity: %w", err)
	}
	if p.MinStockLevel, err = parseCount(get("Min_Stock_Level")); err != nil {
		return nil, fmt.Errorf("Min_Stock_Level: %w", err)
	}
	if v := get("Supplier_ID"); v != "" {
		id, err := parseCount(v)
		if err != nil {
			return nil, fmt.Errorf("Supplier_ID: %w", err)
		}
		if id > 0 {
			sid := uint(id)
			p.SupplierID = &sid
		}
	}
	if v := get("Date_Added"); v != "" {
		if d, ok := parseDate(v); ok {
			p.DateAdded = datatypes.Date(d)
		}
	}
	return p, nil
}

func parseMoney(v string) (decimal.Decimal, error) {
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative value %s", v)
	}
	return d.Round(2), nil
}

// parseCount accepts "12" and "12.0", which is how spreadsheets often store whole numbers.
func parseCount(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return 0, err
	}
	if d.IsNegative() || !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("not a whole number: %s", v)
	}
	return int(d.IntPart()), nil
}

// parseDate reads an Excel serial date or one of the common text layouts.
func parseDate(v string) (time.Time, bool) {
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		return t, err == nil
	}
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05", "02/01/2006", "1/2/2006"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ExportExcel writes every product to a workbook with the import column layout,
// so an export can be edited and imported into another shop.
func (s *Service) ExportExcel(ctx context.Context, w io.Writer) error {
	products, err := s.List(ctx, Filter{})
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Products"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	header := make([]interface{}, len(importColumns))
	for i, h := range importColumns {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, p := range products {
		var supplier interface{}
		if p.SupplierID != nil {
			supplier = *p.SupplierID
		}
		row := []interface{}{
			p.Name,
			p.Category,
			p.PurchasePrice.InexactFloat64(),
			p.SellingPrice.InexactFloat64(),
			p.StockQuantity,
			p.MinStockLevel,
			supplier,
			time.Time(p.DateAdded).Format("2006-01-02"),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	return f.Write(w)
}
