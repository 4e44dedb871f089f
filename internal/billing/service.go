package billing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"shop-pos/internal/activity"
	"shop-pos/internal/apperr"
	"shop-pos/internal/database"
	"shop-pos/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrEmptySale            = fmt.Errorf("%w: cannot complete sale with no items", apperr.ErrValidation)
	ErrInvalidQuantity      = fmt.Errorf("%w: quantity must be positive", apperr.ErrValidation)
	ErrInsufficientStock    = fmt.Errorf("%w: insufficient stock", apperr.ErrValidation)
	ErrInsufficientCash     = fmt.Errorf("%w: cash amount is less than the total", apperr.ErrValidation)
	ErrWalkInCredit         = fmt.Errorf("%w: cannot use udhaar for walk-in customer", apperr.ErrValidation)
	ErrInvalidSplit         = fmt.Errorf("%w: for partial udhaar, cash amount must be > 0 and < total", apperr.ErrValidation)
	ErrInvalidPaymentMethod = fmt.Errorf("%w: payment method must be Cash, Udhaar or Partial Udhaar", apperr.ErrValidation)
	ErrNegativeAdjustment   = fmt.Errorf("%w: discount and tax cannot be negative", apperr.ErrValidation)
	ErrNegativeTotal        = fmt.Errorf("%w: discount exceeds subtotal plus tax", apperr.ErrValidation)
	ErrLineNotFound         = fmt.Errorf("%w: product is not in the cart", apperr.ErrNotFound)
	ErrProductNotFound      = fmt.Errorf("%w: product", apperr.ErrNotFound)
	ErrCustomerNotFound     = fmt.Errorf("%w: customer", apperr.ErrNotFound)
	ErrSaleNotFound         = fmt.Errorf("%w: sale", apperr.ErrNotFound)
)

// Checkout is everything needed to complete one sale.
type Checkout struct {
	CustomerID    uint
	UserID        uint
	Items         []Line
	Discount      decimal.Decimal
	Tax           decimal.Decimal
	PaymentMethod string
	CashAmount    decimal.Decimal
}

// Service owns the sale-completion transaction.
type Service struct {
	store *database.Store
}

func NewService(store *database.Store) *Service { return &Service{store: store} }

// NewCart returns an empty cart that reads products through this service.
func (s *Service) NewCart() *Cart { return NewCart(s) }

// Product implements ProductLookup straight from the database.
func (s *Service) Product(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	err := s.store.DB().WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// payment is the validated cash/credit split of a sale.
type payment struct {
	paid   decimal.Decimal
	change decimal.Decimal
	credit decimal.Decimal
}

func splitPayment(method string, customerID uint, total, cash decimal.Decimal) (payment, error) {
	switch method {
	case models.PaymentCash:
		if cash.LessThan(total) {
			return payment{}, fmt.Errorf("%w: cash %s, total %s", ErrInsufficientCash, cash.StringFixed(2), total.StringFixed(2))
		}
		return payment{paid: cash, change: cash.Sub(total), credit: decimal.Zero}, nil
	case models.PaymentUdhaar:
		if customerID == models.WalkInCustomerID {
			return payment{}, ErrWalkInCredit
		}
		return payment{paid: decimal.Zero, change: decimal.Zero, credit: total}, nil
	case models.PaymentPartialUdhaar:
		if customerID == models.WalkInCustomerID {
			return payment{}, ErrWalkInCredit
		}
		if !cash.IsPositive() || !cash.LessThan(total) {
			return payment{}, ErrInvalidSplit
		}
		return payment{paid: cash, change: decimal.Zero, credit: total.Sub(cash)}, nil
	default:
		return payment{}, ErrInvalidPaymentMethod
	}
}

// CompleteSale validates the checkout, prices every line from the catalog, then
// writes the sale header, its items, the stock decrements, the customer's credit
// and an activity entry in a single transaction. Nothing persists unless
// everything does.
func (s *Service) CompleteSale(ctx context.Context, in Checkout) (*models.Sale, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptySale
	}
	in.Items = append([]Line(nil), in.Items...)
	if in.CustomerID == 0 {
		in.CustomerID = models.WalkInCustomerID
	}
	if in.Discount.IsNegative() || in.Tax.IsNegative() || in.CashAmount.IsNegative() {
		return nil, ErrNegativeAdjustment
	}

	wanted := map[uint]int{}
	for _, l := range in.Items {
		if l.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		wanted[l.ProductID] += l.Quantity
	}
	discount, tax, cash := in.Discount.Round(2), in.Tax.Round(2), in.CashAmount.Round(2)

	var sale models.Sale
	err := s.store.WithTx(ctx, func(tx *gorm.DB) error {
		var customer models.Customer
		if err := tx.First(&customer, in.CustomerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: id %d", ErrCustomerNotFound, in.CustomerID)
			}
			return err
		}

		// Check every line against stock before the first write, and price it
		// from the catalog. Whatever price the caller sent is not trusted.
		ids := make([]uint, 0, len(wanted))
		for id := range wanted {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		catalog := make(map[uint]models.Product, len(ids))
		for _, id := range ids {
			var p models.Product
			if err := tx.First(&p, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: id %d", ErrProductNotFound, id)
				}
				return err
			}
			if p.StockQuantity < wanted[id] {
				return fmt.Errorf("%w: '%s' has %d, sale needs %d", ErrInsufficientStock, p.Name, p.StockQuantity, wanted[id])
			}
			catalog[id] = p
		}
		for i, l := range in.Items {
			p := catalog[l.ProductID]
			in.Items[i].Name = p.Name
			in.Items[i].UnitPrice = p.SellingPrice
			in.Items[i].Total = lineTotal(p.SellingPrice, l.Quantity)
		}

		totals := computeTotals(in.Items, discount, tax)
		if totals.Total.IsNegative() {
			return ErrNegativeTotal
		}
		pay, err := splitPayment(in.PaymentMethod, in.CustomerID, totals.Total, cash)
		if err != nil {
			return err
		}

		sale = models.Sale{
			CustomerID:    in.CustomerID,
			UserID:        in.UserID,
			SaleDate:      time.Now(),
			Subtotal:      totals.Subtotal,
			Discount:      totals.Discount,
			Tax:           totals.Tax,
			Total:         totals.Total,
			PaymentMethod: in.PaymentMethod,
			AmountPaid:    pay.paid,
			ChangeGiven:   pay.change,
			UdhaarAmount:  pay.credit,
			Status:        "completed",
		}

		if err := tx.Create(&sale).Error; err != nil {
			return err
		}

		for _, l := range in.Items {
			item := models.SaleItem{
				SaleID:     sale.ID,
				ProductID:  l.ProductID,
				Quantity:   l.Quantity,
				UnitPrice:  l.UnitPrice,
				TotalPrice: l.Total,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			sale.Items = append(sale.Items, item)

			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock_quantity >= ?", l.ProductID, l.Quantity).
				UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", l.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: product id %d", ErrInsufficientStock, l.ProductID)
			}
		}

		if pay.credit.IsPositive() {
			balance := customer.Balance.Add(pay.credit)
			if err := tx.Model(&models.Customer{}).Where("id = ?", customer.ID).Update("balance", balance).Error; err != nil {
				return err
			}
		}

		return activity.Record(tx, in.UserID, activity.CreateSale,
			fmt.Sprintf("Sale ID %d, Total: %s", sale.ID, sale.Total.StringFixed(2)))
	})
	if err != nil {
		log.Printf("Failed to create sale: %v", err)
		return nil, err
	}

	log.Printf("Sale %d completed: total %s via %s", sale.ID, sale.Total.StringFixed(2), sale.PaymentMethod)
	return &sale, nil
}

// Checkout completes the cart's sale and clears the cart on success.
func (s *Service) Checkout(ctx context.Context, cart *Cart, userID uint, method string, cash decimal.Decimal) (*models.Sale, error) {
	totals := cart.Totals()
	sale, err := s.CompleteSale(ctx, Checkout{
		CustomerID:    cart.CustomerID(),
		UserID:        userID,
		Items:         cart.Items(),
		Discount:      totals.Discount,
		Tax:           totals.Tax,
		PaymentMethod: method,
		CashAmount:    cash,
	})
	if err != nil {
		return nil, err
	}
	cart.Clear()
	return sale, nil
}

// GetSale loads a sale with its items, products, customer and cashier.
func (s *Service) GetSale(ctx context.Context, id uint) (*models.Sale, error) {
	var sale models.Sale
	err := s.store.DB().WithContext(ctx).
		Preload("Items.Product").
		Preload("Customer").
		Preload("User").
		First(&sale, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSaleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}
