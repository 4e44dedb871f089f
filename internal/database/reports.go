package database

import (
	"context"
	"time"

	"shop-pos/internal/models"

	"github.com/shopspring/decimal"
)

// SalesTotals is revenue and count over a window
type SalesTotals struct {
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalCredit  decimal.Decimal `json:"total_udhaar"`
	TotalCount   int64           `json:"total_count"`
}

// SalesTotals sums completed sales with start <= sale_date < end.
func (s *Store) SalesTotals(ctx context.Context, start, end time.Time) (*SalesTotals, error) {
	var row struct {
		Revenue float64
		Credit  float64
	}

	// COALESCE ensures we get 0 instead of NULL if no sales exist
	err := s.DB().WithContext(ctx).Model(&models.Sale{}).
		Where("sale_date >= ? AND sale_date < ?", start, end).
		Select("COALESCE(SUM(total), 0) AS revenue, COALESCE(SUM(udhaar_amount), 0) AS credit").
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	var count int64
	err = s.DB().WithContext(ctx).Model(&models.Sale{}).
		Where("sale_date >= ? AND sale_date < ?", start, end).
		Count(&count).Error
	if err != nil {
		return nil, err
	}

	return &SalesTotals{
		TotalRevenue: decimal.NewFromFloat(row.Revenue).Round(2),
		TotalCredit:  decimal.NewFromFloat(row.Credit).Round(2),
		TotalCount:   count,
	}, nil
}
