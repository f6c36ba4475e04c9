package database

import (
	"context"
	"fmt"
	"time"

	"stockwatch/internal/models"
)

// timelineQuery pairs each status row with the previous row of the same
// product. Filtering on one (country, brand) makes product_id the series key.
const timelineQuery = `
SELECT
	p.sku AS sku,
	p.name AS product_name,
	s.observed_at AS observed_at,
	s.status AS status,
	s.current_price AS current_price,
	LAG(s.status) OVER (PARTITION BY s.product_id ORDER BY s.observed_at) AS prev_status,
	LAG(s.observed_at) OVER (PARTITION BY s.product_id ORDER BY s.observed_at) AS prev_observed_at
FROM status_observations s
JOIN products p ON p.id = s.product_id
JOIN countries c ON c.id = s.country_id
JOIN brands b ON b.id = s.brand_id
WHERE c.code = ? AND b.name = ?
ORDER BY p.sku, s.observed_at`

// StatusTimeline returns every status observation of a storefront ordered by
// product and time
func (gdb *GormDB) StatusTimeline(ctx context.Context, country, brand string) ([]models.TimelineRow, error) {
	var rows []models.TimelineRow
	if err := gdb.db.WithContext(ctx).Raw(timelineQuery, country, brand).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load status timeline: %w", err)
	}
	return rows, nil
}

// PriceHistory returns the price rows of sku in time order. An empty country
// matches all countries; a zero since disables the look-back bound.
func (gdb *GormDB) PriceHistory(ctx context.Context, sku, country string, since time.Time) ([]models.PriceHistoryRow, error) {
	query := gdb.db.WithContext(ctx).
		Table("price_observations AS po").
		Select("p.sku AS sku, c.code AS country, po.observed_at AS observed_at, po.price AS price, po.reason AS reason").
		Joins("JOIN products p ON p.id = po.product_id").
		Joins("JOIN countries c ON c.id = po.country_id").
		Where("p.sku = ?", sku)

	if country != "" {
		query = query.Where("c.code = ?", country)
	}
	if !since.IsZero() {
		query = query.Where("po.observed_at >= ?", since)
	}

	var rows []models.PriceHistoryRow
	if err := query.Order("po.observed_at").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load price history: %w", err)
	}
	return rows, nil
}

// PriceChangesOn returns the price rows written on the calendar day of day,
// evaluated in day's location
func (gdb *GormDB) PriceChangesOn(ctx context.Context, day time.Time, country string) ([]models.PriceHistoryRow, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	var rows []models.PriceHistoryRow
	err := gdb.db.WithContext(ctx).
		Table("price_observations AS po").
		Select("p.sku AS sku, c.code AS country, po.observed_at AS observed_at, po.price AS price, po.reason AS reason").
		Joins("JOIN products p ON p.id = po.product_id").
		Joins("JOIN countries c ON c.id = po.country_id").
		Where("c.code = ? AND po.observed_at >= ? AND po.observed_at < ?", country, start, end).
		Order("p.sku, po.observed_at").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load price changes: %w", err)
	}
	return rows, nil
}

// SearchSKUs returns the products whose SKU contains term
func (gdb *GormDB) SearchSKUs(ctx context.Context, term string) ([]models.Product, error) {
	var products []models.Product
	err := gdb.db.WithContext(ctx).
		Where("sku LIKE ?", "%"+term+"%").
		Order("sku").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search skus: %w", err)
	}
	return products, nil
}
