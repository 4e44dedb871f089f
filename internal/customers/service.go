// Package customers manages customer accounts and udhaar repayments.
package customers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"shop-pos/internal/activity"
	"shop-pos/internal/apperr"
	"shop-pos/internal/database"
	"shop-pos/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrCustomerNotFound = fmt.Errorf("%w: customer", apperr.ErrNotFound)
	ErrWalkIn           = fmt.Errorf("%w: the walk-in customer cannot be changed", apperr.ErrValidation)
	ErrInvalidPayment   = fmt.Errorf("%w: payment must be greater than zero and not exceed the balance", apperr.ErrValidation)
	ErrCustomerInUse    = fmt.Errorf("%w: customer has sales, payments or an open balance", apperr.ErrIntegrity)
)

// CustomerInput is the editable part of a customer. Balance only moves through
// sales and payments.
type CustomerInput struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (in *CustomerInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	if in.Name == "" {
		return fmt.Errorf("%w: customer name is required", apperr.ErrValidation)
	}
	return nil
}

type Service struct {
	store *database.Store
}

func NewService(store *database.Store) *Service { return &Service{store: store} }

// List returns every customer except walk-in, optionally matching name or phone.
func (s *Service) List(ctx context.Context, search string) ([]models.Customer, error) {
	q := s.store.DB().WithContext(ctx).Where("id <> ?", models.WalkInCustomerID).Order("name")
	if term := strings.TrimSpace(search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(name) LIKE ? OR phone LIKE ?", like, like)
	}
	out := []models.Customer{}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Debtors lists customers who owe money, largest balance first.
func (s *Service) Debtors(ctx context.Context) ([]models.Customer, error) {
	out := []models.Customer{}
	err := s.store.DB().WithContext(ctx).
		Where("id <> ? AND balance > 0", models.WalkInCustomerID).
		Order("balance desc, name").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Customer, error) {
	var c models.Customer
	err := s.store.DB().WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) Create(ctx context.Context, userID uint, in CustomerInput) (*models.Customer, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	c := models.Customer{Name: in.Name, Phone: in.Phone, Address: in.Address, Balance: decimal.Zero, CreatedAt: time.Now()}
	err := s.store.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&c).Error; err != nil {
			return err
		}
		return activity.Record(tx, userID, activity.CustomerChange, fmt.Sprintf("Added customer '%s'", c.Name))
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) Update(ctx context.Context, userID, id uint, in CustomerInput) (*models.Customer, error) {
	if id == models.WalkInCustomerID {
		return nil, ErrWalkIn
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	err := s.store.WithTx(ctx, func(tx *gorm.DB) error {
		var c models.Customer
		if err := tx.First(&c, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCustomerNotFound
			}
			return err
		}
		err := tx.Model(&c).Updates(map[string]interface{}{"name": in.Name, "phone": in.Phone, "address": in.Address}).Error
		if err != nil {
			return err
		}
		return activity.Record(tx, userID, activity.CustomerChange, fmt.Sprintf("Updated customer '%s'", in.Name))
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a customer with no history. Accounts with sales or payments stay
// so the ledger keeps adding up.
func (s *Service) Delete(ctx context.Context, userID, id uint) error {
	if id == models.WalkInCustomerID {
		return ErrWalkIn
	}
	return s.store.WithTx(ctx, func(tx *gorm.DB) error {
		var c models.Customer
		if err := tx.First(&c, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCustomerNotFound
			}
			return err
		}
		if !c.Balance.IsZero() {
			return fmt.Errorf("%w: '%s' owes %s", ErrCustomerInUse, c.Name, c.Balance.StringFixed(2))
		}
		var sales, payments int64
		if err := tx.Model(&models.Sale{}).Where("customer_id = ?", id).Count(&sales).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.UdhaarPayment{}).Where("customer_id = ?", id).Count(&payments).Error; err != nil {
			return err
		}
		if sales+payments > 0 {
			return fmt.Errorf("%w: '%s' has %d sales and %d payments", ErrCustomerInUse, c.Name, sales, payments)
		}
		if err := tx.Delete(&c).Error; err != nil {
			return err
		}
		return activity.Record(tx, userID, activity.CustomerChange, fmt.Sprintf("Deleted customer '%s'", c.Name))
	})
}

// RecordPayment books a repayment against the customer's balance. The payment row,
// the balance decrement and the activity entry commit together.
func (s *Service) RecordPayment(ctx context.Context, customerID uint, amount decimal.Decimal, userID uint, notes string) (*models.UdhaarPayment, error) {
	if customerID == models.WalkInCustomerID {
		return nil, ErrWalkIn
	}
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, ErrInvalidPayment
	}

	var p models.UdhaarPayment
	err := s.store.WithTx(ctx, func(tx *gorm.DB) error {
		var c models.Customer
		if err := tx.First(&c, customerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCustomerNotFound
			}
			return err
		}
		if amount.GreaterThan(c.Balance) {
			return fmt.Errorf("%w: balance is %s", ErrInvalidPayment, c.Balance.StringFixed(2))
		}

		p = models.UdhaarPayment{
			CustomerID:  customerID,
			Amount:      amount,
			PaymentDate: time.Now(),
			RecordedBy:  userID,
			Notes:       strings.TrimSpace(notes),
		}
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		if err := tx.Model(&c).Update("balance", c.Balance.Sub(amount)).Error; err != nil {
			return err
		}
		return activity.Record(tx, userID, activity.UdhaarPayment,
			fmt.Sprintf("Received %s from customer ID %d", amount.StringFixed(2), customerID))
	})
	if err != nil {
		log.Printf("Failed to add udhaar payment: %v", err)
		return nil, err
	}
	return &p, nil
}

// LedgerEntry is one movement on a customer's account. Credit raises the balance,
// Payment lowers it.
type LedgerEntry struct {
	Date    time.Time       `json:"date"`
	Kind    string          `json:"kind"`
	SaleID  uint            `json:"sale_id,omitempty"`
	Amount  decimal.Decimal `json:"amount"`
	Notes   string          `json:"notes,omitempty"`
	Balance decimal.Decimal `json:"balance_after"`
}

const (
	EntryCredit  = "credit"
	EntryPayment = "payment"
)

// Ledger returns credit sales and repayments, newest first, with the running balance.
func (s *Service) Ledger(ctx context.Context, customerID uint) ([]LedgerEntry, error) {
	if _, err := s.Get(ctx, customerID); err != nil {
		return nil, err
	}
	db := s.store.DB().WithContext(ctx)

	var sales []models.Sale
	if err := db.Where("customer_id = ? AND udhaar_amount > 0", customerID).Find(&sales).Error; err != nil {
		return nil, err
	}
	var payments []models.UdhaarPayment
	if err := db.Where("customer_id = ?", customerID).Find(&payments).Error; err != nil {
		return nil, err
	}

	entries := make([]LedgerEntry, 0, len(sales)+len(payments))
	for _, sale := range sales {
		entries = append(entries, LedgerEntry{Date: sale.SaleDate, Kind: EntryCredit, SaleID: sale.ID, Amount: sale.UdhaarAmount})
	}
	for _, p := range payments {
		entries = append(entries, LedgerEntry{Date: p.PaymentDate, Kind: EntryPayment, Amount: p.Amount, Notes: p.Notes})
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Date.Before(entries[j].Date) })
	running := decimal.Zero
	for i := range entries {
		if entries[i].Kind == EntryCredit {
			running = running.Add(entries[i].Amount)
		} else {
			running = running.Sub(entries[i].Amount)
		}
		entries[i].Balance = running
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}
