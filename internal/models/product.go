package models

import "time"

// Product is a storefront item identified by the external id (zid) taken from its URL
type Product struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SKU       string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"sku"`
	Name      string    `gorm:"type:text" json:"name"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (Product) TableName() string {
	return "products"
}

// Country is a storefront country code such as "NL", "BE" or "FR"
type Country struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Code string `gorm:"type:varchar(8);not null;uniqueIndex" json:"code"`
}

func (Country) TableName() string {
	return "countries"
}

// Brand is a storefront brand such as "Shark" or "Ninja"
type Brand struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"type:varchar(64);not null;uniqueIndex" json:"name"`
}

func (Brand) TableName() string {
	return "brands"
}

// IdentityKind is the closed set of natural-key tables resolved with get-or-create
type IdentityKind int

const (
	IdentityProduct IdentityKind = iota
	IdentityCountry
	IdentityBrand
)

func (k IdentityKind) String() string {
	switch k {
	case IdentityProduct:
		return "product"
	case IdentityCountry:
		return "country"
	case IdentityBrand:
		return "brand"
	default:
		return "unknown"
	}
}
