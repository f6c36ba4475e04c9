package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stockwatch/internal/models"
)

// LedgerTx is the set of row primitives available inside one scoped transaction
type LedgerTx interface {
	// ResolveProduct returns the id of the product with sku, creating it with
	// name on first sight. The name of an existing product is left untouched.
	ResolveProduct(sku, name string) (uint, error)
	ResolveCountry(code string) (uint, error)
	ResolveBrand(name string) (uint, error)
	// ResolveIdentity dispatches to the resolver of kind. Products created this
	// way get an empty name.
	ResolveIdentity(kind models.IdentityKind, key string) (uint, error)
	LinkProductURL(productID uint, url string) error
	UpsertStatus(row *models.StatusObservation) error
	// LastPrice returns the latest price row of the pair, or nil when there is none
	LastPrice(productID, countryID uint) (*models.PriceObservation, error)
	InsertPrices(rows []models.PriceObservation) error
}

type gormTx struct {
	tx *gorm.DB
}

func (t *gormTx) ResolveIdentity(kind models.IdentityKind, key string) (uint, error) {
	switch kind {
	case models.IdentityProduct:
		return t.ResolveProduct(key, "")
	case models.IdentityCountry:
		return t.ResolveCountry(key)
	case models.IdentityBrand:
		return t.ResolveBrand(key)
	default:
		return 0, fmt.Errorf("unknown identity kind %d", kind)
	}
}

// Identity rows are inserted with ON CONFLICT DO NOTHING and then selected, so
// concurrent writers never create two rows for one natural key.

func (t *gormTx) ResolveProduct(sku, name string) (uint, error) {
	row := models.Product{SKU: sku, Name: name}
	if err := t.tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("failed to insert product %s: %w", sku, err)
	}

	var existing models.Product
	if err := t.tx.Select("id").Where("sku = ?", sku).Take(&existing).Error; err != nil {
		return 0, fmt.Errorf("failed to resolve product %s: %w", sku, notFound(err))
	}
	return existing.ID, nil
}

func (t *gormTx) ResolveCountry(code string) (uint, error) {
	row := models.Country{Code: code}
	if err := t.tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("failed to insert country %s: %w", code, err)
	}

	var existing models.Country
	if err := t.tx.Select("id").Where("code = ?", code).Take(&existing).Error; err != nil {
		return 0, fmt.Errorf("failed to resolve country %s: %w", code, notFound(err))
	}
	return existing.ID, nil
}

func (t *gormTx) ResolveBrand(name string) (uint, error) {
	row := models.Brand{Name: name}
	if err := t.tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("failed to insert brand %s: %w", name, err)
	}

	var existing models.Brand
	if err := t.tx.Select("id").Where("name = ?", name).Take(&existing).Error; err != nil {
		return 0, fmt.Errorf("failed to resolve brand %s: %w", name, notFound(err))
	}
	return existing.ID, nil
}

func (t *gormTx) LinkProductURL(productID uint, url string) error {
	rec := models.URLRecord{URL: url}
	if err := t.tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to insert url: %w", err)
	}

	var existing models.URLRecord
	if err := t.tx.Select("id").Where("url = ?", url).Take(&existing).Error; err != nil {
		return fmt.Errorf("failed to resolve url: %w", notFound(err))
	}

	link := models.ProductURL{ProductID: productID, URLID: existing.ID}
	if err := t.tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
		return fmt.Errorf("failed to link product %d to url: %w", productID, err)
	}
	return nil
}

// UpsertStatus writes one status fact. A row with the same
// (product, country, brand, observed_at) key is overwritten, never duplicated.
func (t *gormTx) UpsertStatus(row *models.StatusObservation) error {
	err := t.tx.Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "product_id"},
				{Name: "country_id"},
				{Name: "brand_id"},
				{Name: "observed_at"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"status", "product_type", "current_price"}),
		}).
		Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert status: %w", err)
	}
	return nil
}

func (t *gormTx) LastPrice(productID, countryID uint) (*models.PriceObservation, error) {
	var last models.PriceObservation
	err := t.tx.Where("product_id = ? AND country_id = ?", productID, countryID).
		Order("observed_at DESC").
		Take(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load last price: %w", err)
	}
	return &last, nil
}

func (t *gormTx) InsertPrices(rows []models.PriceObservation) error {
	if len(rows) == 0 {
		return nil
	}
	if err := t.tx.Omit(clause.Associations).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to insert price rows: %w", err)
	}
	return nil
}
