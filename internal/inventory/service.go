// Package inventory manages products and their stock.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"shop-pos/internal/activity"
	"shop-pos/internal/apperr"
	"shop-pos/internal/database"
	"shop-pos/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound  = fmt.Errorf("%w: product", apperr.ErrNotFound)
	ErrSupplierNotFound = fmt.Errorf("%w: supplier", apperr.ErrNotFound)
	ErrDuplicateName    = fmt.Errorf("%w: a product with this name already exists", apperr.ErrValidation)
	ErrNegativeStock    = fmt.Errorf("%w: adjustment would make stock negative", apperr.ErrValidation)
	ErrZeroAdjustment   = fmt.Errorf("%w: adjustment must be non-zero", apperr.ErrValidation)
	ErrProductInUse     = fmt.Errorf("%w: product has sales history", apperr.ErrIntegrity)
)

// Filter narrows List. Empty fields match everything.
type Filter struct {
	Search       string `form:"search"`
	Category     string `form:"category"`
	LowStockOnly bool   `form:"low_stock"`
}

// ProductInput is the editable part of a product. StockQuantity is only read on
// Create; later changes go through AdjustStock so they are audited.
type ProductInput struct {
	Name          string          `json:"name" binding:"required"`
	Category      string          `json:"category"`
	Description   string          `json:"description"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	StockQuantity int             `json:"stock_quantity"`
	MinStockLevel int             `json:"min_stock_level"`
	SupplierID    *uint           `json:"supplier_id"`
}

func (in *ProductInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	if in.Name == "" {
		return fmt.Errorf("%w: product name is required", apperr.ErrValidation)
	}
	if in.PurchasePrice.IsNegative() || in.SellingPrice.IsNegative() {
		return fmt.Errorf("%w: prices cannot be negative", apperr.ErrValidation)
	}
	if in.StockQuantity < 0 || in.MinStockLevel < 0 {
		return fmt.Errorf("%w: stock and minimum level cannot be negative", apperr.ErrValidation)
	}
	if in.SupplierID != nil && *in.SupplierID == 0 {
		in.SupplierID = nil
	}
	in.PurchasePrice = in.PurchasePrice.Round(2)
	in.SellingPrice = in.SellingPrice.Round(2)
	return nil
}

type Service struct {
	store *database.Store
}

func NewService(store *database.Store) *Service { return &Service{store: store} }

func (s *Service) List(ctx context.Context, f Filter) ([]models.Product, error) {
	q := s.store.DB().WithContext(ctx).Preload("Supplier").Order("name")
	if term := strings.TrimSpace(f.Search); term != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(term)+"%")
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.LowStockOnly {
		q = q.Where("stock_quantity <= min_stock_level")
	}
	products := []models.Product{}
	if err := q.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	err := s.store.DB().WithContext(ctx).Preload("Supplier").First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) Create(ctx context.Context, userID uint, in ProductInput) (*models.Product, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	p := models.Product{
		Name:          in.Name,
		Category:      in.Category,
		Description:   in.Description,
		PurchasePrice: in.PurchasePrice,
		SellingPrice:  in.SellingPrice,
		StockQuantity: in.StockQuantity,
		MinStockLevel: in.MinStockLevel,
		SupplierID:    in.SupplierID,
		DateAdded:     datatypes.Date(time.Now()),
	}
	err := s.store.WithTx(ctx, func(tx *gorm.DB) error {
		if err := checkName(tx, p.Name, 0); err != nil {
			return err
		}
		if err := checkSupplier(tx, p.SupplierID); err != nil {
			return err
		}
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		return activity.Record(tx, userID, activity.ProductChange, fmt.Sprintf("Added product '%s' (stock %d)", p.Name, p.StockQuantity))
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Update replaces the descriptive fields and prices. Stock is left untouched.
func (s *Service) Update(ctx context.Context, userID, id uint, in ProductInput) (*models.Product, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	err := s.store.WithTx(ctx, func(tx *gorm.DB) error {
		var p models.Product
		if err := tx.First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}
		if err := checkName(tx, in.Name, id); err != nil {
			return err
		}
		if err := checkSupplier(tx, in.SupplierID); err != nil {
			return err
		}
		err := tx.Model(&p).Select("name", "category", "description", "purchase_price", "selling_price", "min_stock_level", "supplier_id").
			Updates(models.Product{
				Name:          in.Name,
				Category:      in.Category,
				Description:   in.Description,
				PurchasePrice: in.PurchasePrice,
				SellingPrice:  in.SellingPrice,
				MinStockLevel: in.MinStockLevel,
				SupplierID:    in.SupplierID,
			}).Error
		if err != nil {
			return err
		}
		return activity.Record(tx, userID, activity.ProductChange, fmt.Sprintf("Updated product '%s'", in.Name))
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a product that no sale references.
func (s *Service) Delete(ctx context.Context, userID, id uint) error {
	return s.store.WithTx(ctx, func(tx *gorm.DB) error {
		var p models.Product
		if err := tx.First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}
		var sold int64
		if err := tx.Model(&models.SaleItem{}).Where("product_id = ?", id).Count(&sold).Error; err != nil {
			return err
		}
		if sold > 0 {
			return fmt.Errorf("%w: '%s' appears on %d sale lines", ErrProductInUse, p.Name, sold)
		}
		if err := tx.Delete(&p).Error; err != nil {
			return err
		}
		return activity.Record(tx, userID, activity.ProductChange, fmt.Sprintf("Deleted product '%s'", p.Name))
	})
}

// AdjustStock applies a signed delta with a reason, e.g. a delivery (+) or breakage (-).
func (s *Service) AdjustStock(ctx context.Context, userID, id uint, delta int, reason string) (*models.Product, error) {
	if delta == 0 {
		return nil, ErrZeroAdjustment
	}
	reason = strings.TrimSpace(reason)
	err := s.store.WithTx(ctx, func(tx *gorm.DB) error {
		var p models.Product
		if err := tx.First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}
		res := tx.Model(&models.Product{}).
			Where("id = ? AND stock_quantity + ? >= 0", id, delta).
			UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", delta))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: '%s' has %d, change %+d", ErrNegativeStock, p.Name, p.StockQuantity, delta)
		}
		desc := fmt.Sprintf("Stock for '%s' changed by %+d (%d -> %d)", p.Name, delta, p.StockQuantity, p.StockQuantity+delta)
		if reason != "" {
			desc += ": " + reason
		}
		return activity.Record(tx, userID, activity.StockUpdate, desc)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("Stock adjusted for product %d by %+d", id, delta)
	return s.Get(ctx, id)
}

// SetSellingPrice changes only the selling price.
func (s *Service) SetSellingPrice(ctx context.Context, userID, id uint, price decimal.Decimal) (*models.Product, error) {
	if price.IsNegative() {
		return nil, fmt.Errorf("%w: price cannot be negative", apperr.ErrValidation)
	}
	price = price.Round(2)
	err := s.store.WithTx(ctx, func(tx *gorm.DB) error {
		var p models.Product
		if err := tx.First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}
		if err := tx.Model(&p).Update("selling_price", price).Error; err != nil {
			return err
		}
		return activity.Record(tx, userID, activity.ProductChange,
			fmt.Sprintf("Price of '%s' changed from %s to %s", p.Name, p.SellingPrice.StringFixed(2), price.StringFixed(2)))
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// LowStock lists products at or below their minimum level, emptiest first.
func (s *Service) LowStock(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	err := s.store.DB().WithContext(ctx).
		Where("stock_quantity <= min_stock_level").
		Order("stock_quantity, name").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// Categories returns the distinct non-empty categories in use.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	cats := []string{}
	err := s.store.DB().WithContext(ctx).Model(&models.Product{}).
		Where("category <> ''").
		Distinct().Order("category").
		Pluck("category", &cats).Error
	if err != nil {
		return nil, err
	}
	return cats, nil
}

// FindByName returns products whose name contains term, for lookups by voice or chat.
func (s *Service) FindByName(ctx context.Context, term string) ([]models.Product, error) {
	return s.List(ctx, Filter{Search: term})
}

func checkName(tx *gorm.DB, name string, exceptID uint) error {
	var n int64
	if err := tx.Model(&models.Product{}).Where("name = ? AND id <> ?", name, exceptID).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: '%s'", ErrDuplicateName, name)
	}
	return nil
}

func checkSupplier(tx *gorm.DB, id *uint) error {
	if id == nil {
		return nil
	}
	var n int64
	if err := tx.Model(&models.Supplier{}).Where("id = ?", *id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrSupplierNotFound, *id)
	}
	return nil
}
