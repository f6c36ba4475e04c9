package models

import "time"

// TimelineRow is one status observation of a (country, brand) timeline together
// with the previous observation of the same product, as produced by a LAG window.
type TimelineRow struct {
	SKU            string     `gorm:"column:sku" json:"sku"`
	ProductName    string     `gorm:"column:product_name" json:"product_name"`
	ObservedAt     time.Time  `gorm:"column:observed_at" json:"observed_at"`
	Status         Status     `gorm:"column:status" json:"status"`
	CurrentPrice   *float64   `gorm:"column:current_price" json:"current_price,omitempty"`
	PrevStatus     *Status    `gorm:"column:prev_status" json:"prev_status,omitempty"`
	PrevObservedAt *time.Time `gorm:"column:prev_observed_at" json:"prev_observed_at,omitempty"`
}

// PriceHistoryRow is one price ledger entry joined with its product and country
type PriceHistoryRow struct {
	SKU        string      `gorm:"column:sku" json:"sku"`
	Country    string      `gorm:"column:country" json:"country"`
	ObservedAt time.Time   `gorm:"column:observed_at" json:"observed_at"`
	Price      float64     `gorm:"column:price" json:"price"`
	Reason     PriceReason `gorm:"column:reason" json:"reason"`
}
