package models

import "time"

type PaymentMethod string

const (
	PaymentMethodCash           PaymentMethod = "cash"
	PaymentMethodQRIS           PaymentMethod = "qris"
	PaymentMethodEWallet        PaymentMethod = "ewallet"
	PaymentMethodVirtualAccount PaymentMethod = "virtual_account"
)

// IsDigital reports whether the method settles through the payment gateway.
func (m PaymentMethod) IsDigital() bool {
	return m != PaymentMethodCash
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
	PaymentStatusExpired PaymentStatus = "EXPIRED"
)

type Transaction struct {
	ID                uint          `gorm:"primaryKey"`
	Number            string        `gorm:"size:50;uniqueIndex;not null"`
	Subtotal          int64         `gorm:"not null"`
	TaxAmount         int64         `gorm:"not null;default:0"`
	Discount          int64         `gorm:"not null;default:0"`
	FinalAmount       int64         `gorm:"not null"`
	PaymentMethod     PaymentMethod `gorm:"size:20;not null"`
	PaymentStatus     PaymentStatus `gorm:"size:20;not null;index"`
	GatewayPaymentID  string        `gorm:"size:100;index"` // invoice id assigned by the gateway
	GatewayPaymentURL string        `gorm:"size:255"`       // hosted checkout page
	CashierID         uint          `gorm:"index;not null"`
	Cashier           User
	PaidAt            *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Items             []TransactionItem
}

// TransactionItem is a line item snapshot. Created together with its parent
// transaction and never updated afterwards.
type TransactionItem struct {
	ID            uint `gorm:"primaryKey"`
	TransactionID uint `gorm:"index;not null"`
	ProductID     uint `gorm:"index;not null"`
	Product       Product
	Quantity      int   `gorm:"not null"`
	UnitPrice     int64 `gorm:"not null"` // price snapshot at sale time
	Subtotal      int64 `gorm:"not null"`
	CreatedAt     time.Time
}
