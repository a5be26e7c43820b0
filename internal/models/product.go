package models

import "time"

type Product struct {
	ID         uint   `gorm:"primaryKey"`
	Name       string `gorm:"size:100;not null"`
	SKU        string `gorm:"size:50;uniqueIndex;not null"`
	Price      int64  `gorm:"not null"` // selling price, smallest currency unit
	Cost       int64  `gorm:"not null"` // purchase cost, smallest currency unit
	Stock      int    `gorm:"not null;default:0"`
	MinStock   int    `gorm:"not null;default:0"` // low-stock alert threshold
	CategoryID uint   `gorm:"index;not null"`
	Category   Category
	IsActive   bool `gorm:"not null;default:true"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
