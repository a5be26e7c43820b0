package models

import "time"

type InventoryLogType string

const (
	InventoryLogSale       InventoryLogType = "SALE"
	InventoryLogRestock    InventoryLogType = "RESTOCK"
	InventoryLogAdjustment InventoryLogType = "ADJUSTMENT"
	InventoryLogReturn     InventoryLogType = "RETURN"
)

// InventoryLog is the append-only audit trail of stock changes. Every mutation
// of Product.Stock writes exactly one entry in the same database transaction.
type InventoryLog struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	ProductID uint             `gorm:"index;not null" json:"product_id"`
	Product   Product          `json:"-"`
	Type      InventoryLogType `gorm:"size:20;not null;index" json:"type"`
	// QuantityChange is signed: negative for sales, positive for restocks.
	QuantityChange int       `gorm:"not null" json:"quantity_change"`
	PreviousStock  int       `gorm:"not null" json:"previous_stock"`
	NewStock       int       `gorm:"not null" json:"new_stock"`
	Reason         string    `gorm:"size:255" json:"reason"`
	UserID         uint      `gorm:"index;not null" json:"user_id"`
	CreatedAt      time.Time `json:"created_at"`
}
