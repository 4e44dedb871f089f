// Package dbtest opens throwaway sqlite stores for package tests.
package dbtest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shop-pos/internal/config"
	"shop-pos/internal/database"
	"shop-pos/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// New returns an initialized in-memory store unique to the test.
func New(t testing.TB) *database.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return open(t, config.Config{DBDriver: "sqlite", DBDSN: fmt.Sprintf("file:%s?mode=memory&cache=shared", name)})
}

// NewFile returns an initialized store backed by a file in a temp dir, for tests
// that need backups.
func NewFile(t testing.TB) (*database.Store, string) {
	t.Helper()
	dir := t.TempDir()
	return open(t, config.Config{DBDriver: "sqlite", DBDSN: filepath.Join(dir, "shop.db")}), dir
}

func open(t testing.TB, cfg config.Config) *database.Store {
	t.Helper()
	s, err := database.Open(cfg, nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init db: %v", err)
	}
	return s
}

// Product inserts a product with the given selling price and stock.
func Product(t testing.TB, s *database.Store, name string, price int64, stock int) models.Product {
	t.Helper()
	p := models.Product{
		Name:          name,
		Category:      "General",
		PurchasePrice: decimal.NewFromInt(price).Mul(decimal.NewFromFloat(0.8)),
		SellingPrice:  decimal.NewFromInt(price),
		StockQuantity: stock,
		MinStockLevel: 2,
		DateAdded:     datatypes.Date(time.Now()),
	}
	if err := s.DB().Create(&p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

// Customer inserts a customer with a zero balance.
func Customer(t testing.TB, s *database.Store, name string) models.Customer {
	t.Helper()
	c := models.Customer{Name: name, Phone: "0300-0000000", Balance: decimal.Zero, CreatedAt: time.Now()}
	if err := s.DB().Create(&c).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return c
}

// AdminID is the seeded admin's id.
func AdminID(t testing.TB, s *database.Store) uint {
	t.Helper()
	var u models.User
	if err := s.DB().Where("username = ?", "admin").First(&u).Error; err != nil {
		t.Fatalf("load admin: %v", err)
	}
	return u.ID
}
