package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shop-pos/internal/config"
	"shop-pos/internal/database/dbtest"
	"shop-pos/internal/handlers"
	"shop-pos/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t      *testing.T
	router *gin.Engine
	h      *handlers.Handler
}

func newFixture(t *testing.T) *fixture {
	gin.SetMode(gin.TestMode)
	store := dbtest.New(t)
	cfg := config.Config{
		JWTSecret:   "test-secret",
		TokenTTL:    time.Hour,
		ReceiptDir:  t.TempDir(),
		BackupDir:   t.TempDir(),
		CORSOrigins: []string{"http://localhost:5173"},
	}
	h := handlers.New(store, cfg)
	return &fixture{t: t, router: NewRouter(h, cfg), h: h}
}

func (f *fixture) call(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) login(username, password string) string {
	f.t.Helper()
	w := f.call(http.MethodPost, "/login", "", gin.H{"username": username, "password": password})
	require.Equal(f.t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	decode(f.t, w, &out)
	return out.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (f *fixture) cashier(admin string) string {
	f.t.Helper()
	w := f.call(http.MethodPost, "/api/users", admin, gin.H{
		"name": "Sara", "username": "sara", "role": models.RoleCashier, "password": "till-1",
	})
	require.Equal(f.t, http.StatusCreated, w.Code, w.Body.String())
	return f.login("sara", "till-1")
}

func (f *fixture) product(admin, name string, price, stock int) uint {
	f.t.Helper()
	w := f.call(http.MethodPost, "/api/products", admin, gin.H{
		"name": name, "category": "Fertilizer", "purchase_price": price - 100,
		"selling_price": price, "stock_quantity": stock, "min_stock_level": 2,
	})
	require.Equal(f.t, http.StatusCreated, w.Code, w.Body.String())
	var p models.Product
	decode(f.t, w, &p)
	return p.ID
}

func TestHealthAndLogin(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusOK, f.call(http.MethodGet, "/health", "", nil).Code)
	require.Equal(t, http.StatusUnauthorized, f.call(http.MethodPost, "/login", "", gin.H{"username": "admin", "password": "nope"}).Code)
	require.Equal(t, http.StatusBadRequest, f.call(http.MethodPost, "/login", "", gin.H{"username": "admin"}).Code)
	require.Equal(t, http.StatusUnauthorized, f.call(http.MethodGet, "/api/products", "", nil).Code)

	admin := f.login("admin", "admin")
	w := f.call(http.MethodGet, "/api/me", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, w.Body.String(), "password")
}

func TestRoleGuards(t *testing.T) {
	f := newFixture(t)
	admin := f.login("admin", "admin")
	cashier := f.cashier(admin)

	require.Equal(t, http.StatusForbidden, f.call(http.MethodPost, "/api/products", cashier, gin.H{"name": "Urea"}).Code)
	require.Equal(t, http.StatusForbidden, f.call(http.MethodGet, "/api/reports/daily", cashier, nil).Code)
	require.Equal(t, http.StatusForbidden, f.call(http.MethodGet, "/api/settings", cashier, nil).Code)
	require.Equal(t, http.StatusOK, f.call(http.MethodGet, "/api/products", cashier, nil).Code)
	require.Equal(t, http.StatusOK, f.call(http.MethodGet, "/api/dashboard", cashier, nil).Code)
}

func TestCartCheckoutFlow(t *testing.T) {
	f := newFixture(t)
	admin := f.login("admin", "admin")
	cashier := f.cashier(admin)
	urea := f.product(admin, "Urea", 1800, 5)

	w := f.call(http.MethodPost, "/api/cart/items", cashier, gin.H{"product_id": urea, "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 2 in cart + 4 more exceeds the 5 on hand.
	w = f.call(http.MethodPost, "/api/cart/items", cashier, gin.H{"product_id": urea, "quantity": 4})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.call(http.MethodPut, "/api/cart/adjustments", cashier, gin.H{"discount": "100"})
	require.Equal(t, http.StatusOK, w.Code)
	var cart struct {
		Totals struct {
			Subtotal decimal.Decimal `json:"subtotal"`
			Total    decimal.Decimal `json:"total"`
		} `json:"totals"`
	}
	decode(t, w, &cart)
	require.True(t, cart.Totals.Subtotal.Equal(decimal.NewFromInt(3600)))
	require.True(t, cart.Totals.Total.Equal(decimal.NewFromInt(3500)))

	w = f.call(http.MethodPost, "/api/cart/checkout", cashier, gin.H{"payment_method": models.PaymentCash, "cash_amount": "3000"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.call(http.MethodPost, "/api/cart/checkout", cashier, gin.H{"payment_method": models.PaymentCash, "cash_amount": "4000"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		SaleID uint        `json:"sale_id"`
		Sale   models.Sale `json:"sale"`
	}
	decode(t, w, &created)
	require.True(t, created.Sale.ChangeGiven.Equal(decimal.NewFromInt(500)))
	require.Len(t, created.Sale.Items, 1)

	w = f.call(http.MethodGet, "/api/cart", cashier, nil)
	require.Contains(t, w.Body.String(), `"items":[]`)

	var p models.Product
	decode(t, f.call(http.MethodGet, "/api/products/"+itoa(urea), cashier, nil), &p)
	require.Equal(t, 3, p.StockQuantity)

	w = f.call(http.MethodPost, "/api/sales/"+itoa(created.SaleID)+"/receipt", cashier, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), "receipt_")

	require.Equal(t, http.StatusNotFound, f.call(http.MethodGet, "/api/sales/999", cashier, nil).Code)
}

func TestCashierCannotSetPriceAtCheckout(t *testing.T) {
	f := newFixture(t)
	admin := f.login("admin", "admin")
	cashier := f.cashier(admin)
	urea := f.product(admin, "Urea", 1800, 10)

	body := gin.H{
		"items":          []gin.H{{"product_id": urea, "quantity": 3, "unit_price": "0.01"}},
		"payment_method": models.PaymentCash,
		"cash_amount":    "0.03",
	}
	require.Equal(t, http.StatusBadRequest, f.call(http.MethodPost, "/api/checkout", cashier, body).Code)

	body["cash_amount"] = "5400"
	w := f.call(http.MethodPost, "/api/checkout", cashier, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Sale models.Sale `json:"sale"`
	}
	decode(t, w, &created)
	require.True(t, created.Sale.Total.Equal(decimal.NewFromInt(5400)))
	require.True(t, created.Sale.Items[0].UnitPrice.Equal(decimal.NewFromInt(1800)))
}

func TestUdhaarFlow(t *testing.T) {
	f := newFixture(t)
	admin := f.login("admin", "admin")
	seed := f.product(admin, "Seed", 250, 10)

	w := f.call(http.MethodPost, "/api/customers", admin, gin.H{"name": "Ali", "phone": "0300"})
	require.Equal(t, http.StatusCreated, w.Code)
	var ali models.Customer
	decode(t, w, &ali)

	w = f.call(http.MethodPost, "/api/checkout", admin, gin.H{
		"items":          []gin.H{{"product_id": seed, "quantity": 2, "unit_price": "250"}},
		"payment_method": models.PaymentUdhaar,
	})
	require.Equal(t, http.StatusBadRequest, w.Code, "walk-in cannot take udhaar")

	w = f.call(http.MethodPost, "/api/checkout", admin, gin.H{
		"customer_id":    ali.ID,
		"items":          []gin.H{{"product_id": seed, "quantity": 2, "unit_price": "250"}},
		"payment_method": models.PaymentPartialUdhaar,
		"cash_amount":    "200",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	path := "/api/customers/" + itoa(ali.ID)
	require.Equal(t, http.StatusBadRequest, f.call(http.MethodPost, path+"/payments", admin, gin.H{"amount": "301"}).Code)
	w = f.call(http.MethodPost, path+"/payments", admin, gin.H{"amount": "300", "notes": "settled"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var paid struct {
		Balance decimal.Decimal `json:"balance"`
	}
	decode(t, w, &paid)
	require.True(t, paid.Balance.IsZero())

	w = f.call(http.MethodGet, path+"/ledger", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ledger []map[string]interface{}
	decode(t, w, &ledger)
	require.Len(t, ledger, 2)
	require.Equal(t, "payment", ledger[0]["kind"])

	require.Equal(t, http.StatusConflict, f.call(http.MethodDelete, path, admin, nil).Code)
}

func TestAdminEndpoints(t *testing.T) {
	f := newFixture(t)
	admin := f.login("admin", "admin")

	w := f.call(http.MethodPost, "/api/suppliers", admin, gin.H{"name": "Engro"})
	require.Equal(t, http.StatusCreated, w.Code)
	var sup models.Supplier
	decode(t, w, &sup)
	w = f.call(http.MethodPost, "/api/products", admin, gin.H{"name": "DAP", "selling_price": 9000, "supplier_id": sup.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Equal(t, http.StatusConflict, f.call(http.MethodDelete, "/api/suppliers/"+itoa(sup.ID), admin, nil).Code)

	w = f.call(http.MethodPut, "/api/settings", admin, gin.H{"shop_name": "Kissan Store"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Kissan Store")

	require.Equal(t, http.StatusOK, f.call(http.MethodGet, "/api/reports/daily", admin, nil).Code)
	require.Equal(t, http.StatusBadRequest, f.call(http.MethodGet, "/api/reports/sales?from=yesterday", admin, nil).Code)
	require.Equal(t, http.StatusBadRequest, f.call(http.MethodGet, "/api/reports/export?kind=pie", admin, nil).Code)

	w = f.call(http.MethodGet, "/api/reports/export?kind=valuation", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))

	w = f.call(http.MethodGet, "/api/activity?action=Setting+Change", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "shop_name")

	require.Equal(t, http.StatusServiceUnavailable, f.call(http.MethodPost, "/api/ask", admin, gin.H{"message": "stock?"}).Code)
	require.Equal(t, http.StatusBadRequest, f.call(http.MethodPost, "/api/backups/restore", admin, gin.H{"name": "../shop.db"}).Code)
	require.Equal(t, http.StatusBadRequest, f.call(http.MethodDelete, "/api/users/1", admin, nil).Code)
}

func itoa(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
