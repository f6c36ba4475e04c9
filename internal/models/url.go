package models

import "time"

// URLRecord is an operator-curated product page URL
type URLRecord struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	URL       string    `gorm:"type:varchar(500);not null;uniqueIndex" json:"url"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (URLRecord) TableName() string {
	return "urls"
}

// ProductURL links a product to every URL it has been scraped from
type ProductURL struct {
	ProductID uint `gorm:"primaryKey;autoIncrement:false" json:"product_id"`
	URLID     uint `gorm:"primaryKey;autoIncrement:false" json:"url_id"`
}

func (ProductURL) TableName() string {
	return "product_urls"
}
