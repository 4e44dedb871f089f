// Package settings reads and writes the shop's key/value configuration.
package settings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"shop-pos/internal/activity"
	"shop-pos/internal/apperr"
	"shop-pos/internal/database"
	"shop-pos/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Well-known keys.
const (
	ShopName            = "shop_name"
	ShopAddress         = "shop_address"
	ShopPhone           = "shop_phone"
	Theme               = "theme"
	ReceiptFooter       = "receipt_footer"
	ReceiptPrefix       = "receipt_prefix"
	AutoBackupEnabled   = "auto_backup_enabled"
	AutoBackupTime      = "auto_backup_time"
	BackupRetentionDays = "backup_retention_days"
)

var (
	ErrSettingNotFound = fmt.Errorf("%w: setting", apperr.ErrNotFound)
	ErrEmptyKey        = fmt.Errorf("%w: setting key is required", apperr.ErrValidation)
)

type Service struct {
	store *database.Store
}

func NewService(store *database.Store) *Service { return &Service{store: store} }

// Get returns ErrSettingNotFound for a key that was never set.
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrEmptyKey
	}
	var st models.Setting
	// struct condition so the reserved word `key` gets quoted per dialect
	err := s.store.DB().WithContext(ctx).Where(&models.Setting{Key: key}).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("%w: %s", ErrSettingNotFound, key)
	}
	if err != nil {
		return "", err
	}
	return st.Value, nil
}

// GetOr returns def when the key is missing or unreadable.
func (s *Service) GetOr(ctx context.Context, key, def string) string {
	v, err := s.Get(ctx, key)
	if err != nil {
		return def
	}
	return v
}

// Bool parses a stored flag; anything unparsable yields def.
func (s *Service) Bool(ctx context.Context, key string, def bool) bool {
	b, err := strconv.ParseBool(s.GetOr(ctx, key, ""))
	if err != nil {
		return def
	}
	return b
}

func (s *Service) Int(ctx context.Context, key string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s.GetOr(ctx, key, "")))
	if err != nil {
		return def
	}
	return n
}

func (s *Service) All(ctx context.Context) (map[string]string, error) {
	var rows []models.Setting
	if err := s.store.DB().WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

// Set inserts or replaces one value.
func (s *Service) Set(ctx context.Context, userID uint, key, value string) error {
	return s.SetMany(ctx, userID, map[string]string{key: value})
}

// SetMany saves a whole settings form in one transaction.
func (s *Service) SetMany(ctx context.Context, userID uint, values map[string]string) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		if strings.TrimSpace(k) == "" {
			return ErrEmptyKey
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)

	return s.store.WithTx(ctx, func(tx *gorm.DB) error {
		for _, k := range keys {
			row := models.Setting{Key: strings.TrimSpace(k), Value: values[k]}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value"}),
			}).Create(&row).Error
			if err != nil {
				return err
			}
			if err := activity.Record(tx, userID, activity.SettingChange, fmt.Sprintf("Setting '%s' changed to '%s'", row.Key, row.Value)); err != nil {
				return err
			}
		}
		return nil
	})
}
