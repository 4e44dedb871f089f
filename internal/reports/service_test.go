package reports

import (
	"bytes"
	"context"
	"testing"
	"time"

	"shop-pos/internal/apperr"
	"shop-pos/internal/billing"
	"shop-pos/internal/database"
	"shop-pos/internal/database/dbtest"
	"shop-pos/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fixture struct {
	store *database.Store
	svc   *Service
	urea  models.Product
	seed  models.Product
	ali   models.Customer
}

func setup(t *testing.T) fixture {
	t.Helper()
	store := dbtest.New(t)
	sales := billing.NewService(store)
	ctx := context.Background()
	admin := dbtest.AdminID(t, store)

	f := fixture{
		store: store,
		svc:   NewService(store),
		urea:  dbtest.Product(t, store, "Urea Bag", 1800, 10),
		seed:  dbtest.Product(t, store, "Seed Pack", 250, 20),
		ali:   dbtest.Customer(t, store, "Ali Khan"),
	}

	_, err := sales.CompleteSale(ctx, billing.Checkout{
		UserID:        admin,
		Items:         []billing.Line{{ProductID: f.urea.ID, Quantity: 3, UnitPrice: f.urea.SellingPrice}},
		PaymentMethod: models.PaymentCash,
		CashAmount:    decimal.NewFromInt(5400),
	})
	require.NoError(t, err)
	_, err = sales.CompleteSale(ctx, billing.Checkout{
		CustomerID: f.ali.ID,
		UserID:     admin,
		Items: []billing.Line{
			{ProductID: f.seed.ID, Quantity: 5, UnitPrice: f.seed.SellingPrice},
			{ProductID: f.urea.ID, Quantity: 1, UnitPrice: f.urea.SellingPrice},
		},
		Discount:      decimal.NewFromInt(100),
		PaymentMethod: models.PaymentUdhaar,
	})
	require.NoError(t, err)
	return f
}

func TestSalesAndDailySummary(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	today := time.Now()

	sales, err := f.svc.Sales(ctx, today, today)
	require.NoError(t, err)
	require.Len(t, sales, 2)
	require.NotNil(t, sales[0].Customer)
	require.Equal(t, "admin", sales[0].User.Username)

	daily, err := f.svc.DailySummary(ctx, today)
	require.NoError(t, err)
	require.Equal(t, 2, daily.Summary.NumSales)
	require.Equal(t, "8350.00", daily.Summary.Total.StringFixed(2))
	require.Equal(t, "2950.00", daily.Summary.Udhaar.StringFixed(2))

	yesterday := today.AddDate(0, 0, -1)
	none, err := f.svc.Sales(ctx, yesterday, yesterday)
	require.NoError(t, err)
	require.Empty(t, none)

	_, err = f.svc.Sales(ctx, today, yesterday)
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestMonthlySummary(t *testing.T) {
	f := setup(t)
	now := time.Now()

	days, err := f.svc.MonthlySummary(context.Background(), now.Year(), now.Month())
	require.NoError(t, err)
	require.Len(t, days, 1)
	require.Equal(t, now.Format("2006-01-02"), days[0].Date)
	require.Equal(t, 2, days[0].NumSales)
	require.Equal(t, "8450.00", days[0].Subtotal.StringFixed(2))
	require.Equal(t, "100.00", days[0].Discount.StringFixed(2))

	_, err = f.svc.MonthlySummary(context.Background(), 2024, 13)
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestTopProductsAndTotals(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	today := time.Now()

	top, err := f.svc.TopProducts(ctx, today, today, 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	require.Equal(t, "Seed Pack", top[0].Name)
	require.EqualValues(t, 5, top[0].TotalQuantity)
	require.Equal(t, "Urea Bag", top[1].Name)
	require.EqualValues(t, 2, top[1].NumSales)
	require.Equal(t, "7200.00", top[1].TotalRevenue.StringFixed(2))

	totals, err := f.svc.Totals(ctx, today, today)
	require.NoError(t, err)
	require.EqualValues(t, 2, totals.TotalCount)
	require.Equal(t, "8350.00", totals.TotalRevenue.StringFixed(2))
}

func TestDashboard(t *testing.T) {
	f := setup(t)
	d := f.svc.Dashboard(context.Background())

	require.Equal(t, "8350.00", d.TodaySales.StringFixed(2))
	require.EqualValues(t, 2, d.TodayCount)
	require.EqualValues(t, 1, d.TotalCustomers)
	require.Zero(t, d.LowStockItems)
	require.Equal(t, "2950.00", d.TotalUdhaar.StringFixed(2))
}

func TestStockValuation(t *testing.T) {
	store := dbtest.New(t)
	svc := NewService(store)
	dbtest.Product(t, store, "Urea Bag", 100, 10) // cost 80
	p := dbtest.Product(t, store, "Loose Twine", 10, 5)
	require.NoError(t, store.DB().Model(&p).Update("category", "").Error)

	v, err := svc.StockValuation(context.Background())
	require.NoError(t, err)
	require.Len(t, v.Categories, 2)
	require.Equal(t, "General", v.Categories[0].CategoryName)
	require.Equal(t, "800.00", v.Categories[0].Subtotal.StringFixed(2))
	require.Equal(t, "Uncategorized", v.Categories[1].CategoryName)
	require.Equal(t, "840.00", v.GrandTotal.StringFixed(2))
}

func TestExportExcel(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	now := time.Now()

	days, err := f.svc.MonthlySummary(ctx, now.Year(), now.Month())
	require.NoError(t, err)
	top, err := f.svc.TopProducts(ctx, now, now, 10)
	require.NoError(t, err)
	v, err := f.svc.StockValuation(ctx)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ExportExcel(&buf, MonthlyTable(days), TopProductsTable(top), ValuationTable(v)))

	wb, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer wb.Close()
	require.Equal(t, []string{"Monthly Summary", "Top Products", "Stock Valuation"}, wb.GetSheetList())

	rows, err := wb.GetRows("Top Products")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "Seed Pack", rows[1][0])

	require.Error(t, ExportExcel(&buf))
}
