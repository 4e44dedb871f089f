// Package reports holds the read-only aggregations over sales and stock.
package reports

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"shop-pos/internal/apperr"
	"shop-pos/internal/database"
	"shop-pos/internal/models"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type Service struct {
	store *database.Store
}

func NewService(store *database.Store) *Service { return &Service{store: store} }

// dayBounds turns an inclusive day range into [start, end).
func dayBounds(from, to time.Time) (time.Time, time.Time, error) {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.Local)
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.Local).AddDate(0, 0, 1)
	if !start.Before(end) {
		return start, end, fmt.Errorf("%w: start date is after end date", apperr.ErrValidation)
	}
	return start, end, nil
}

// Sales lists sales between two dates inclusive, newest first, with customer and cashier.
func (s *Service) Sales(ctx context.Context, from, to time.Time) ([]models.Sale, error) {
	start, end, err := dayBounds(from, to)
	if err != nil {
		return nil, err
	}
	out := []models.Sale{}
	err = s.store.DB().WithContext(ctx).
		Preload("Customer").
		Preload("User").
		Where("sale_date >= ? AND sale_date < ?", start, end).
		Order("sale_date desc, id desc").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DaySummary aggregates one calendar day.
type DaySummary struct {
	Date     string          `json:"date"`
	NumSales int             `json:"num_sales"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"total_discount"`
	Tax      decimal.Decimal `json:"total_tax"`
	Total    decimal.Decimal `json:"total_sales"`
	Udhaar   decimal.Decimal `json:"total_udhaar"`
}

func (d *DaySummary) add(sale models.Sale) {
	d.NumSales++
	d.Subtotal = d.Subtotal.Add(sale.Subtotal)
	d.Discount = d.Discount.Add(sale.Discount)
	d.Tax = d.Tax.Add(sale.Tax)
	d.Total = d.Total.Add(sale.Total)
	d.Udhaar = d.Udhaar.Add(sale.UdhaarAmount)
}

// DailyReport is one day's sales and their totals.
type DailyReport struct {
	Summary DaySummary    `json:"summary"`
	Sales   []models.Sale `json:"sales"`
}

func (s *Service) DailySummary(ctx context.Context, day time.Time) (*DailyReport, error) {
	sales, err := s.Sales(ctx, day, day)
	if err != nil {
		return nil, err
	}
	r := &DailyReport{Summary: DaySummary{Date: day.Format(dateLayout)}, Sales: sales}
	for _, sale := range sales {
		r.Summary.add(sale)
	}
	return r, nil
}

// MonthlySummary returns one row per day that had sales, newest day first. Days are
// grouped in Go so the same code works on every driver.
func (s *Service) MonthlySummary(ctx context.Context, year int, month time.Month) ([]DaySummary, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: month must be 1-12", apperr.ErrValidation)
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	last := first.AddDate(0, 1, -1)
	sales, err := s.Sales(ctx, first, last)
	if err != nil {
		return nil, err
	}

	byDay := map[string]*DaySummary{}
	for _, sale := range sales {
		key := sale.SaleDate.In(time.Local).Format(dateLayout)
		d, ok := byDay[key]
		if !ok {
			d = &DaySummary{Date: key}
			byDay[key] = d
		}
		d.add(sale)
	}

	out := make([]DaySummary, 0, len(byDay))
	for _, d := range byDay {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

// ProductSales is one row of the best-seller report.
type ProductSales struct {
	ProductID     uint            `json:"id"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	NumSales      int64           `json:"num_sales"`
	TotalQuantity int64           `json:"total_quantity"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	AvgPrice      decimal.Decimal `json:"avg_price"`
}

// TopProducts ranks products by quantity sold between two dates inclusive.
func (s *Service) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductSales, error) {
	start, end, err := dayBounds(from, to)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	var rows []struct {
		ProductID     uint
		Name          string
		Category      string
		NumSales      int64
		TotalQuantity int64
		TotalRevenue  float64
		AvgPrice      float64
	}
	err = s.store.DB().WithContext(ctx).Table("sale_items").
		Select(`products.id AS product_id, products.name AS name, products.category AS category,
			COUNT(DISTINCT sales.id) AS num_sales, SUM(sale_items.quantity) AS total_quantity,
			SUM(sale_items.total_price) AS total_revenue, AVG(sale_items.unit_price) AS avg_price`).
		Joins("JOIN products ON sale_items.product_id = products.id").
		Joins("JOIN sales ON sale_items.sale_id = sales.id").
		Where("sales.sale_date >= ? AND sales.sale_date < ?", start, end).
		Group("products.id, products.name, products.category").
		Order("total_quantity desc").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]ProductSales, len(rows))
	for i, r := range rows {
		out[i] = ProductSales{
			ProductID:     r.ProductID,
			Name:          r.Name,
			Category:      r.Category,
			NumSales:      r.NumSales,
			TotalQuantity: r.TotalQuantity,
			TotalRevenue:  decimal.NewFromFloat(r.TotalRevenue).Round(2),
			AvgPrice:      decimal.NewFromFloat(r.AvgPrice).Round(2),
		}
	}
	return out, nil
}

// Dashboard is the landing-screen summary.
type Dashboard struct {
	TodaySales     decimal.Decimal `json:"today_sales"`
	TodayCount     int64           `json:"today_count"`
	TotalCustomers int64           `json:"total_customers"`
	LowStockItems  int64           `json:"low_stock_items"`
	TotalUdhaar    decimal.Decimal `json:"total_udhaar"`
}

// Dashboard never fails: each figure that cannot be read shows as zero.
func (s *Service) Dashboard(ctx context.Context) Dashboard {
	now := time.Now()
	start, end, _ := dayBounds(now, now)

	today := s.store.Execute(ctx,
		"SELECT COALESCE(SUM(total), 0) AS total, COUNT(id) AS count FROM sales WHERE sale_date >= ? AND sale_date < ?",
		[]interface{}{start, end}, database.FetchOne)
	customers := s.store.Execute(ctx,
		"SELECT COUNT(id) AS count FROM customers WHERE id <> ?",
		[]interface{}{models.WalkInCustomerID}, database.FetchOne)
	low := s.store.Execute(ctx,
		"SELECT COUNT(id) AS count FROM products WHERE stock_quantity <= min_stock_level",
		nil, database.FetchOne)
	udhaar := s.store.Execute(ctx,
		"SELECT COALESCE(SUM(balance), 0) AS total FROM customers",
		nil, database.FetchOne)

	return Dashboard{
		TodaySales:     toDecimal(today.Row["total"]),
		TodayCount:     toInt(today.Row["count"]),
		TotalCustomers: toInt(customers.Row["count"]),
		LowStockItems:  toInt(low.Row["count"]),
		TotalUdhaar:    toDecimal(udhaar.Row["total"]),
	}
}

// ValuationItem is one product row of the stock valuation.
type ValuationItem struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	CostPrice decimal.Decimal `json:"cost_price"`
	TotalCost decimal.Decimal `json:"total_cost"`
}

// CategoryGroup is every product of one category with its subtotal.
type CategoryGroup struct {
	CategoryName string          `json:"category_name"`
	Items        []ValuationItem `json:"items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type Valuation struct {
	Categories []CategoryGroup `json:"categories"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// StockValuation values stock on hand at purchase price, grouped by category.
func (s *Service) StockValuation(ctx context.Context) (*Valuation, error) {
	var products []models.Product
	if err := s.store.DB().WithContext(ctx).Order("name").Find(&products).Error; err != nil {
		return nil, err
	}

	v := &Valuation{Categories: []CategoryGroup{}, GrandTotal: decimal.Zero}
	grouped := map[string]*CategoryGroup{}
	for _, p := range products {
		cat := p.Category
		if cat == "" {
			cat = "Uncategorized"
		}
		g, ok := grouped[cat]
		if !ok {
			g = &CategoryGroup{CategoryName: cat, Items: []ValuationItem{}, Subtotal: decimal.Zero}
			grouped[cat] = g
		}

		total := p.PurchasePrice.Mul(decimal.NewFromInt(int64(p.StockQuantity))).Round(2)
		g.Items = append(g.Items, ValuationItem{
			Name:      p.Name,
			Quantity:  p.StockQuantity,
			CostPrice: p.PurchasePrice,
			TotalCost: total,
		})
		g.Subtotal = g.Subtotal.Add(total)
		v.GrandTotal = v.GrandTotal.Add(total)
	}

	for _, g := range grouped {
		v.Categories = append(v.Categories, *g)
	}
	sort.Slice(v.Categories, func(i, j int) bool { return v.Categories[i].CategoryName < v.Categories[j].CategoryName })
	return v, nil
}

// toDecimal reads an aggregate column whatever type the driver handed back.
func toDecimal(v interface{}) decimal.Decimal {
	switch x := v.(type) {
	case nil:
		return decimal.Zero
	case float64:
		return decimal.NewFromFloat(x).Round(2)
	case float32:
		return decimal.NewFromFloat32(x).Round(2)
	case int64:
		return decimal.NewFromInt(x)
	case int:
		return decimal.NewFromInt(int64(x))
	case []byte:
		d, _ := decimal.NewFromString(string(x))
		return d.Round(2)
	case string:
		d, _ := decimal.NewFromString(x)
		return d.Round(2)
	default:
		d, _ := decimal.NewFromString(fmt.Sprint(x))
		return d.Round(2)
	}
}

func toInt(v interface{}) int64 {
	switch x := v.(type) {
	case nil:
		return 0
	case int64:
		return x
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float64:
		return int64(x)
	case []byte:
		n, _ := strconv.ParseInt(string(x), 10, 64)
		return n
	case string:
		n, _ := strconv.ParseInt(x, 10, 64)
		return n
	default:
		return toDecimal(x).IntPart()
	}
}

// Totals sums revenue and credit between two dates inclusive.
func (s *Service) Totals(ctx context.Context, from, to time.Time) (*database.SalesTotals, error) {
	start, end, err := dayBounds(from, to)
	if err != nil {
		return nil, err
	}
	return s.store.SalesTotals(ctx, start, end)
}
