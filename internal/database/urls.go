package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stockwatch/internal/models"
)

// AddURL stores url if it is not stored yet and reports whether it was added
func (gdb *GormDB) AddURL(ctx context.Context, url string) (bool, error) {
	rec := models.URLRecord{URL: url}
	result := gdb.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
	if result.Error != nil {
		return false, fmt.Errorf("failed to add url: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListURLs returns all curated URLs in insertion order
func (gdb *GormDB) ListURLs(ctx context.Context) ([]string, error) {
	var urls []string
	err := gdb.db.WithContext(ctx).Model(&models.URLRecord{}).Order("id").Pluck("url", &urls).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list urls: %w", err)
	}
	return urls, nil
}

// SearchURLs returns the URLs containing term
func (gdb *GormDB) SearchURLs(ctx context.Context, term string) ([]string, error) {
	var urls []string
	err := gdb.db.WithContext(ctx).Model(&models.URLRecord{}).
		Where("url LIKE ?", "%"+term+"%").
		Order("id").
		Pluck("url", &urls).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search urls: %w", err)
	}
	return urls, nil
}

// RemoveURL deletes url and its product links. Removing an unknown URL returns ErrNotFound.
func (gdb *GormDB) RemoveURL(ctx context.Context, url string) error {
	return gdb.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.URLRecord
		if err := tx.Where("url = ?", url).Take(&rec).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Where("url_id = ?", rec.ID).Delete(&models.ProductURL{}).Error; err != nil {
			return fmt.Errorf("failed to unlink url: %w", err)
		}
		if err := tx.Delete(&rec).Error; err != nil {
			return fmt.Errorf("failed to remove url: %w", err)
		}
		return nil
	})
}
