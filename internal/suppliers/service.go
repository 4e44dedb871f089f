// Package suppliers manages supplier contacts.
package suppliers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shop-pos/internal/activity"
	"shop-pos/internal/apperr"
	"shop-pos/internal/database"
	"shop-pos/internal/models"

	"gorm.io/gorm"
)

var (
	ErrSupplierNotFound = fmt.Errorf("%w: supplier", apperr.ErrNotFound)
	ErrSupplierInUse    = fmt.Errorf("%w: supplier is linked to products", apperr.ErrIntegrity)
)

type SupplierInput struct {
	Name          string `json:"name" binding:"required"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Address       string `json:"address"`
}

func (in *SupplierInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.ContactPerson = strings.TrimSpace(in.ContactPerson)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	in.Address = strings.TrimSpace(in.Address)
	if in.Name == "" {
		return fmt.Errorf("%w: supplier name is required", apperr.ErrValidation)
	}
	return nil
}

type Service struct {
	store *database.Store
}

func NewService(store *database.Store) *Service { return &Service{store: store} }

func (s *Service) List(ctx context.Context) ([]models.Supplier, error) {
	out := []models.Supplier{}
	if err := s.store.DB().WithContext(ctx).Order("name").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Supplier, error) {
	var sup models.Supplier
	err := s.store.DB().WithContext(ctx).First(&sup, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSupplierNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sup, nil
}

func (s *Service) Create(ctx context.Context, userID uint, in SupplierInput) (*models.Supplier, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	sup := models.Supplier{
		Name:          in.Name,
		ContactPerson: in.ContactPerson,
		Phone:         in.Phone,
		Email:         in.Email,
		Address:       in.Address,
		CreatedAt:     time.Now(),
	}
	err := s.store.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&sup).Error; err != nil {
			return err
		}
		return activity.Record(tx, userID, activity.SupplierChange, fmt.Sprintf("Added supplier '%s'", sup.Name))
	})
	if err != nil {
		return nil, err
	}
	return &sup, nil
}

func (s *Service) Update(ctx context.Context, userID, id uint, in SupplierInput) (*models.Supplier, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	err := s.store.WithTx(ctx, func(tx *gorm.DB) error {
		var sup models.Supplier
		if err := tx.First(&sup, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSupplierNotFound
			}
			return err
		}
		err := tx.Model(&sup).Updates(map[string]interface{}{
			"name":           in.Name,
			"contact_person": in.ContactPerson,
			"phone":          in.Phone,
			"email":          in.Email,
			"address":        in.Address,
		}).Error
		if err != nil {
			return err
		}
		return activity.Record(tx, userID, activity.SupplierChange, fmt.Sprintf("Updated supplier '%s'", in.Name))
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete refuses while any product still names the supplier. The check runs
// before the delete because not every store enforces the foreign key.
func (s *Service) Delete(ctx context.Context, userID, id uint) error {
	return s.store.WithTx(ctx, func(tx *gorm.DB) error {
		var sup models.Supplier
		if err := tx.First(&sup, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSupplierNotFound
			}
			return err
		}
		var linked int64
		if err := tx.Model(&models.Product{}).Where("supplier_id = ?", id).Count(&linked).Error; err != nil {
			return err
		}
		if linked > 0 {
			return fmt.Errorf("%w: '%s' supplies %d products", ErrSupplierInUse, sup.Name, linked)
		}
		if err := tx.Delete(&sup).Error; err != nil {
			return err
		}
		return activity.Record(tx, userID, activity.SupplierChange, fmt.Sprintf("Deleted supplier '%s'", sup.Name))
	})
}
