// Package activity writes and reads the user_activity audit trail.
package activity

import (
	"context"
	"time"

	"shop-pos/internal/models"

	"gorm.io/gorm"
)

// Action names recorded in the log.
const (
	Login          = "Login"
	CreateSale     = "Create Sale"
	StockUpdate    = "Stock Update"
	UdhaarPayment  = "Udhaar Payment"
	SettingChange  = "Setting Change"
	ProductChange  = "Product Change"
	CustomerChange = "Customer Change"
	SupplierChange = "Supplier Change"
	UserChange     = "User Change"
	Backup         = "Backup"
	Restore        = "Restore"
)

// Record appends one entry. Pass the transaction handle when the entry must commit
// or roll back together with the change it describes.
func Record(db *gorm.DB, userID uint, action, description string) error {
	return db.Create(&models.UserActivity{
		UserID:      userID,
		Action:      action,
		Description: description,
		Timestamp:   time.Now(),
	}).Error
}

// Filter narrows Recent.
type Filter struct {
	UserID uint
	Action string
	Limit  int
}

// Recent returns the newest entries first.
func Recent(ctx context.Context, db *gorm.DB, f Filter) ([]models.UserActivity, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	q := db.WithContext(ctx).Order("timestamp desc, id desc").Limit(f.Limit)
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	var out []models.UserActivity
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
