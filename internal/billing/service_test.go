package billing

import (
	"context"
	"sync"
	"testing"

	"shop-pos/internal/apperr"
	"shop-pos/internal/database/dbtest"
	"shop-pos/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCheckoutCashSale(t *testing.T) {
	store := dbtest.New(t)
	svc := NewService(store)
	ctx := context.Background()
	admin := dbtest.AdminID(t, store)
	urea := dbtest.Product(t, store, "Urea Bag", 1800, 10)

	cart := svc.NewCart()
	_, err := cart.Add(ctx, urea.ID, 2)
	require.NoError(t, err)

	sale, err := svc.Checkout(ctx, cart, admin, models.PaymentCash, dec("4000"))
	require.NoError(t, err)
	require.Equal(t, "3600.00", sale.Total.StringFixed(2))
	require.Equal(t, "400.00", sale.ChangeGiven.StringFixed(2))
	require.True(t, sale.UdhaarAmount.IsZero())
	require.Equal(t, models.WalkInCustomerID, sale.CustomerID)
	require.True(t, cart.Empty())

	p, err := svc.Product(ctx, urea.ID)
	require.NoError(t, err)
	require.Equal(t, 8, p.StockQuantity)

	got, err := svc.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	require.Equal(t, "Urea Bag", got.Items[0].Product.Name)
	require.Equal(t, "Walk-in Customer", got.Customer.Name)

	var logged int64
	store.DB().Model(&models.UserActivity{}).Where("action = ?", "Create Sale").Count(&logged)
	require.EqualValues(t, 1, logged)
}

func TestCompleteSaleRejectsOversell(t *testing.T) {
	store := dbtest.New(t)
	svc := NewService(store)
	ctx := context.Background()
	admin := dbtest.AdminID(t, store)
	urea := dbtest.Product(t, store, "Urea Bag", 1800, 10)
	seed := dbtest.Product(t, store, "Seed Pack", 250, 5)

	_, err := svc.CompleteSale(ctx, Checkout{
		UserID: admin,
		Items: []Line{
			{ProductID: seed.ID, Quantity: 1, UnitPrice: seed.SellingPrice},
			{ProductID: urea.ID, Quantity: 15, UnitPrice: urea.SellingPrice},
		},
		PaymentMethod: models.PaymentCash,
		CashAmount:    dec("100000"),
	})
	require.ErrorIs(t, err, ErrInsufficientStock)

	var sales, items int64
	store.DB().Model(&models.Sale{}).Count(&sales)
	store.DB().Model(&models.SaleItem{}).Count(&items)
	require.Zero(t, sales)
	require.Zero(t, items)

	p, _ := svc.Product(ctx, seed.ID)
	require.Equal(t, 5, p.StockQuantity)
}

func TestCompleteSaleSplitsDuplicateLinesAgainstStock(t *testing.T) {
	store := dbtest.New(t)
	svc := NewService(store)
	ctx := context.Background()
	admin := dbtest.AdminID(t, store)
	urea := dbtest.Product(t, store, "Urea Bag", 1800, 10)

	_, err := svc.CompleteSale(ctx, Checkout{
		UserID: admin,
		Items: []Line{
			{ProductID: urea.ID, Quantity: 6, UnitPrice: urea.SellingPrice},
			{ProductID: urea.ID, Quantity: 6, UnitPrice: urea.SellingPrice},
		},
		PaymentMethod: models.PaymentCash,
		CashAmount:    dec("100000"),
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
}

func TestPartialUdhaarAddsToBalance(t *testing.T) {
	store := dbtest.New(t)
	svc := NewService(store)
	ctx := context.Background()
	admin := dbtest.AdminID(t, store)
	seed := dbtest.Product(t, store, "Seed Pack", 250, 5)
	ali := dbtest.Customer(t, store, "Ali Khan")

	sale, err := svc.CompleteSale(ctx, Checkout{
		CustomerID:    ali.ID,
		UserID:        admin,
		Items:         []Line{{ProductID: seed.ID, Quantity: 2, UnitPrice: seed.SellingPrice}},
		PaymentMethod: models.PaymentPartialUdhaar,
		CashAmount:    dec("200"),
	})
	require.NoError(t, err)
	require.Equal(t, "500.00", sale.Total.StringFixed(2))
	require.Equal(t, "300.00", sale.UdhaarAmount.StringFixed(2))
	require.Equal(t, "200.00", sale.AmountPaid.StringFixed(2))

	var c models.Customer
	require.NoError(t, store.DB().First(&c, ali.ID).Error)
	require.Equal(t, "300.00", c.Balance.StringFixed(2))
}

func TestFullUdhaarSale(t *testing.T) {
	store := dbtest.New(t)
	svc := NewService(store)
	ctx := context.Background()
	admin := dbtest.AdminID(t, store)
	seed := dbtest.Product(t, store, "Seed Pack", 250, 5)
	ali := dbtest.Customer(t, store, "Ali Khan")

	sale, err := svc.CompleteSale(ctx, Checkout{
		CustomerID:    ali.ID,
		UserID:        admin,
		Items:         []Line{{ProductID: seed.ID, Quantity: 1, UnitPrice: seed.SellingPrice}},
		Tax:           dec("12.5"),
		PaymentMethod: models.PaymentUdhaar,
	})
	require.NoError(t, err)
	require.Equal(t, "262.50", sale.UdhaarAmount.StringFixed(2))
	require.True(t, sale.AmountPaid.IsZero())
}

func TestPaymentValidation(t *testing.T) {
	store := dbtest.New(t)
	svc := NewService(store)
	ctx := context.Background()
	admin := dbtest.AdminID(t, store)
	seed := dbtest.Product(t, store, "Seed Pack", 250, 5)
	ali := dbtest.Customer(t, store, "Ali Khan")
	items := func() []Line { return []Line{{ProductID: seed.ID, Quantity: 2, UnitPrice: seed.SellingPrice}} }

	cases := []struct {
		name string
		in   Checkout
		want error
	}{
		{"empty", Checkout{UserID: admin, PaymentMethod: models.PaymentCash}, ErrEmptySale},
		{"short cash", Checkout{UserID: admin, Items: items(), PaymentMethod: models.PaymentCash, CashAmount: dec("499.99")}, ErrInsufficientCash},
		{"walk-in udhaar", Checkout{UserID: admin, Items: items(), PaymentMethod: models.PaymentUdhaar}, ErrWalkInCredit},
		{"walk-in partial", Checkout{CustomerID: models.WalkInCustomerID, UserID: admin, Items: items(), PaymentMethod: models.PaymentPartialUdhaar, CashAmount: dec("100")}, ErrWalkInCredit},
		{"partial zero cash", Checkout{CustomerID: ali.ID, UserID: admin, Items: items(), PaymentMethod: models.PaymentPartialUdhaar}, ErrInvalidSplit},
		{"partial full cash", Checkout{CustomerID: ali.ID, UserID: admin, Items: items(), PaymentMethod: models.PaymentPartialUdhaar, CashAmount: dec("500")}, ErrInvalidSplit},
		{"unknown method", Checkout{UserID: admin, Items: items(), PaymentMethod: "Cheque"}, ErrInvalidPaymentMethod},
		{"negative discount", Checkout{UserID: admin, Items: items(), Discount: dec("-1"), PaymentMethod: models.PaymentCash, CashAmount: dec("600")}, ErrNegativeAdjustment},
		{"discount over total", Checkout{UserID: admin, Items: items(), Discount: dec("501"), PaymentMethod: models.PaymentCash}, ErrNegativeTotal},
		{"unknown customer", Checkout{CustomerID: 999, UserID: admin, Items: items(), PaymentMethod: models.PaymentUdhaar}, ErrCustomerNotFound},
		{"unknown product", Checkout{UserID: admin, Items: []Line{{ProductID: 999, Quantity: 1, UnitPrice: dec("1")}}, PaymentMethod: models.PaymentCash, CashAmount: dec("1")}, apperr.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CompleteSale(ctx, tc.in)
			require.ErrorIs(t, err, tc.want)
		})
	}

	var sales int64
	store.DB().Model(&models.Sale{}).Count(&sales)
	require.Zero(t, sales)
	p, _ := svc.Product(ctx, seed.ID)
	require.Equal(t, 5, p.StockQuantity)
}

func TestSaleTotalsAreRecomputed(t *testing.T) {
	store := dbtest.New(t)
	svc := NewService(store)
	ctx := context.Background()
	admin := dbtest.AdminID(t, store)
	seed := dbtest.Product(t, store, "Seed Pack", 250, 5)

	sale, err := svc.CompleteSale(ctx, Checkout{
		UserID:        admin,
		Items:         []Line{{ProductID: seed.ID, Quantity: 3, UnitPrice: seed.SellingPrice, Total: dec("1")}},
		Discount:      dec("50"),
		PaymentMethod: models.PaymentCash,
		CashAmount:    dec("700"),
	})
	require.NoError(t, err)
	require.Equal(t, "700.00", sale.Total.StringFixed(2))
	require.True(t, sale.ChangeGiven.IsZero())
	require.Equal(t, "750.00", sale.Items[0].TotalPrice.StringFixed(2))
}

func TestCompleteSalePricesFromCatalog(t *testing.T) {
	store := dbtest.New(t)
	svc := NewService(store)
	ctx := context.Background()
	admin := dbtest.AdminID(t, store)
	urea := dbtest.Product(t, store, "Urea Bag", 1800, 10)

	lowball := Checkout{
		UserID:        admin,
		Items:         []Line{{ProductID: urea.ID, Quantity: 3, UnitPrice: dec("0.01")}},
		PaymentMethod: models.PaymentCash,
		CashAmount:    dec("0.03"),
	}
	_, err := svc.CompleteSale(ctx, lowball)
	require.ErrorIs(t, err, ErrInsufficientCash)
	require.Equal(t, "0.01", lowball.Items[0].UnitPrice.StringFixed(2), "caller's lines are left untouched")

	lowball.CashAmount = dec("5400")
	sale, err := svc.CompleteSale(ctx, lowball)
	require.NoError(t, err)
	require.Equal(t, "5400.00", sale.Total.StringFixed(2))
	require.Equal(t, "1800.00", sale.Items[0].UnitPrice.StringFixed(2))
	require.True(t, sale.ChangeGiven.IsZero())
}

func TestCheckoutUsesPriceAtSaleTime(t *testing.T) {
	store := dbtest.New(t)
	svc := NewService(store)
	ctx := context.Background()
	admin := dbtest.AdminID(t, store)
	urea := dbtest.Product(t, store, "Urea Bag", 1800, 10)

	cart := svc.NewCart()
	_, err := cart.Add(ctx, urea.ID, 2)
	require.NoError(t, err)
	require.NoError(t, store.DB().Model(&models.Product{}).Where("id = ?", urea.ID).Update("selling_price", dec("2000")).Error)

	sale, err := svc.Checkout(ctx, cart, admin, models.PaymentCash, dec("4000"))
	require.NoError(t, err)
	require.Equal(t, "4000.00", sale.Total.StringFixed(2))
}

func TestConcurrentSalesNeverOversell(t *testing.T) {
	store, _ := dbtest.NewFile(t)
	svc := NewService(store)
	ctx := context.Background()
	admin := dbtest.AdminID(t, store)
	urea := dbtest.Product(t, store, "Urea Bag", 100, 5)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CompleteSale(ctx, Checkout{
				UserID:        admin,
				Items:         []Line{{ProductID: urea.ID, Quantity: 1, UnitPrice: urea.SellingPrice}},
				PaymentMethod: models.PaymentCash,
				CashAmount:    dec("100"),
			})
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 5, ok)
	p, err := svc.Product(ctx, urea.ID)
	require.NoError(t, err)
	require.Zero(t, p.StockQuantity)
}

func TestRegistryKeepsCartPerUser(t *testing.T) {
	store := dbtest.New(t)
	svc := NewService(store)
	reg := NewRegistry(svc)
	ctx := context.Background()
	urea := dbtest.Product(t, store, "Urea Bag", 1800, 10)

	require.NoError(t, reg.With(1, func(c *Cart) error {
		_, err := c.Add(ctx, urea.ID, 2)
		return err
	}))
	require.NoError(t, reg.With(2, func(c *Cart) error {
		require.True(t, c.Empty())
		return nil
	}))
	require.NoError(t, reg.With(1, func(c *Cart) error {
		require.Len(t, c.Items(), 1)
		return nil
	}))

	reg.Drop(1)
	require.NoError(t, reg.With(1, func(c *Cart) error {
		require.True(t, c.Empty())
		return nil
	}))
}
