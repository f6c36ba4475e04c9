package models

import "time"

// Status is the availability of a product at one observation
type Status string

const (
	StatusIn  Status = "IN"
	StatusOut Status = "OUT"
)

// PriceReason labels why a price row was written
type PriceReason string

const (
	PriceReasonFirstRecorded PriceReason = "First recorded price"
	PriceReasonNewlyScraped  PriceReason = "Newly scraped price"
	PriceReasonLastKnown     PriceReason = "Last known price"
)

// PriceUnavailable is the raw price recorded when a page has no price element
const PriceUnavailable = "N/A"

// Product types inferred from the product name
const (
	ProductTypeShark = "Shark"
	ProductTypeNinja = "Ninja"
)

// Observation is one classified product page at a point in time.
// Price is kept exactly as scraped; normalization happens in the ledgers.
type Observation struct {
	ExternalID  string    `json:"external_id"`
	ProductName string    `json:"product_name"`
	ObservedAt  time.Time `json:"observed_at"`
	URL         string    `json:"url"`
	Status      Status    `json:"status"`
	ProductType string    `json:"product_type"`
	Price       string    `json:"price"`
}

// StatusObservation is an append-only availability fact
type StatusObservation struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID    uint      `gorm:"not null;uniqueIndex:uq_status_key,priority:1" json:"product_id"`
	CountryID    uint      `gorm:"not null;uniqueIndex:uq_status_key,priority:2;index:idx_status_country_brand,priority:1" json:"country_id"`
	BrandID      uint      `gorm:"not null;uniqueIndex:uq_status_key,priority:3;index:idx_status_country_brand,priority:2" json:"brand_id"`
	ObservedAt   time.Time `gorm:"not null;uniqueIndex:uq_status_key,priority:4" json:"observed_at"`
	Status       Status    `gorm:"type:varchar(3);not null" json:"status"`
	ProductType  string    `gorm:"type:varchar(32)" json:"product_type"`
	CurrentPrice *float64  `gorm:"type:decimal(10,2)" json:"current_price,omitempty"`

	Product Product `gorm:"foreignKey:ProductID" json:"-"`
	Country Country `gorm:"foreignKey:CountryID" json:"-"`
	Brand   Brand   `gorm:"foreignKey:BrandID" json:"-"`
}

func (StatusObservation) TableName() string {
	return "status_observations"
}

// PriceObservation is an append-only price fact. Rows are only written when
// the price changes, see ledger.PlanPriceRows.
type PriceObservation struct {
	ID         uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID  uint        `gorm:"not null;uniqueIndex:uq_price_key,priority:1" json:"product_id"`
	CountryID  uint        `gorm:"not null;uniqueIndex:uq_price_key,priority:2" json:"country_id"`
	ObservedAt time.Time   `gorm:"not null;uniqueIndex:uq_price_key,priority:3" json:"observed_at"`
	Price      float64     `gorm:"type:decimal(10,2);not null" json:"price"`
	Reason     PriceReason `gorm:"type:varchar(32);not null" json:"reason"`

	Product Product `gorm:"foreignKey:ProductID" json:"-"`
	Country Country `gorm:"foreignKey:CountryID" json:"-"`
}

func (PriceObservation) TableName() string {
	return "price_observations"
}
