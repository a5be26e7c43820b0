package models

import "time"

type NotificationType string

const (
	NotificationLowStock        NotificationType = "low_stock"
	NotificationNewTransaction  NotificationType = "new_transaction"
	NotificationPaymentReceived NotificationType = "payment_received"
	NotificationPaymentFailed   NotificationType = "payment_failed"
	NotificationInventoryUpdate NotificationType = "inventory_update"
)

type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"index;not null" json:"user_id"`
	Title     string           `gorm:"size:100;not null" json:"title"`
	Message   string           `gorm:"size:255;not null" json:"message"`
	Type      NotificationType `gorm:"size:30;not null" json:"type"`
	IsRead    bool             `gorm:"not null;default:false" json:"is_read"`
	Metadata  string           `gorm:"type:jsonb" json:"metadata"` // structured context, JSON
	CreatedAt time.Time        `json:"created_at"`
}
