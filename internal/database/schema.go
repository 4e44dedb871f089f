package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"shop-pos/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultAdminUsername = "admin"
	defaultAdminPassword = "admin"
)

// DefaultSettings are inserted on first run; existing values are never overwritten.
var DefaultSettings = map[string]string{
	"shop_name":             "MAHER ZARAI MARKAZ",
	"shop_address":          "",
	"shop_phone":            "",
	"theme":                 "light_green",
	"receipt_footer":        "Thank you for your business!",
	"receipt_prefix":        "INV",
	"auto_backup_enabled":   "true",
	"auto_backup_time":      "21:00",
	"backup_retention_days": "30",
}

// Init creates the schema and seeds defaults. Safe on every startup.
func (s *Store) Init(ctx context.Context) error {
	if err := s.Migrate(ctx); err != nil {
		return err
	}
	if err := s.Seed(ctx); err != nil {
		return err
	}
	log.Println("✅ Database initialized")
	return nil
}

// Migrate syncs every table.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

// Seed inserts the admin user, the walk-in customer and default settings when absent.
func (s *Store) Seed(ctx context.Context) error {
	db := s.DB().WithContext(ctx)

	var admin models.User
	err := db.Where("username = ?", defaultAdminUsername).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		hash, err := bcrypt.GenerateFromPassword([]byte(defaultAdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		admin = models.User{
			Name:         "Administrator",
			Username:     defaultAdminUsername,
			PasswordHash: string(hash),
			Role:         models.RoleAdmin,
		}
		if err := db.Create(&admin).Error; err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	} else if err != nil {
		return err
	}

	var walkIn models.Customer
	err = db.First(&walkIn, models.WalkInCustomerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		walkIn = models.Customer{ID: models.WalkInCustomerID, Name: "Walk-in Customer", Balance: decimal.Zero, CreatedAt: time.Now()}
		if err := db.Create(&walkIn).Error; err != nil {
			return fmt.Errorf("seed walk-in customer: %w", err)
		}
		if s.Driver() == "postgres" {
			// explicit id insert does not advance the serial
			if err := db.Exec("SELECT setval(pg_get_serial_sequence('customers', 'id'), (SELECT MAX(id) FROM customers))").Error; err != nil {
				return err
			}
		}
	} else if err != nil {
		return err
	}

	defaults := make([]models.Setting, 0, len(DefaultSettings))
	for k, v := range DefaultSettings {
		defaults = append(defaults, models.Setting{Key: k, Value: v})
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&defaults).Error; err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	return nil
}
