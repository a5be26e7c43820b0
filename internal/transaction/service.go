package transaction

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"tokopos-backend/internal/events"
	"tokopos-backend/internal/ident"
	"tokopos-backend/internal/inventory"
	"tokopos-backend/internal/models"
	"tokopos-backend/internal/payment"

	"gorm.io/gorm"
)

var (
	ErrNoItems              = errors.New("transaction requires at least one item")
	ErrInvalidQuantity      = errors.New("item quantity must be positive")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidDiscount      = errors.New("discount cannot exceed the amount due")
	ErrCashierNotFound      = errors.New("cashier not found")
	ErrGatewayUnavailable   = errors.New("payment gateway unavailable")
)

type CreateItem struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

type CreateRequest struct {
	Items         []CreateItem         `json:"items"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	Discount      int64                `json:"discount"`
	TaxRate       float64              `json:"tax_rate"` // percent, e.g. 11 for 11%
	PayerEmail    string               `json:"payer_email"`
}

// Create builds and persists a transaction with its line items. Cash sales
// are PAID immediately and their stock decrement, SALE logs and low-stock
// alerts commit atomically with the transaction row. Digital sales start
// PENDING and get a hosted invoice from the gateway; the invoice id and
// checkout URL are persisted onto the row for later reconciliation.
func Create(db *gorm.DB, gw payment.Gateway, req CreateRequest, cashierID uint) (*models.Transaction, error) {
	if len(req.Items) == 0 {
		return nil, ErrNoItems
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("product %d: %w", item.ProductID, ErrInvalidQuantity)
		}
	}
	switch req.PaymentMethod {
	case models.PaymentMethodCash, models.PaymentMethodQRIS,
		models.PaymentMethodEWallet, models.PaymentMethodVirtualAccount:
	default:
		return nil, ErrInvalidPaymentMethod
	}
	if req.Discount < 0 {
		return nil, ErrInvalidDiscount
	}
	if req.TaxRate < 0 || req.TaxRate > 100 {
		return nil, fmt.Errorf("tax rate must be between 0 and 100")
	}

	var cashier models.User
	if err := db.First(&cashier, "id = ? AND is_active = ?", cashierID, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCashierNotFound
		}
		return nil, err
	}

	productIDs := make([]uint, 0, len(req.Items))
	for _, item := range req.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	var products []models.Product
	if err := db.Find(&products, "id IN ? AND is_active = ?", productIDs, true).Error; err != nil {
		return nil, err
	}
	productByID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		productByID[p.ID] = p
	}

	var subtotal int64
	items := make([]models.TransactionItem, 0, len(req.Items))
	for _, item := range req.Items {
		p, ok := productByID[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %d: %w", item.ProductID, inventory.ErrProductNotFound)
		}
		lineTotal := p.Price * int64(item.Quantity)
		items = append(items, models.TransactionItem{
			ProductID: p.ID,
			Quantity:  item.Quantity,
			UnitPrice: p.Price,
			Subtotal:  lineTotal,
		})
		subtotal += lineTotal
	}

	taxAmount := int64(math.Round(float64(subtotal) * req.TaxRate / 100))
	finalAmount := subtotal + taxAmount - req.Discount
	if finalAmount < 0 {
		return nil, ErrInvalidDiscount
	}

	trx := models.Transaction{
		Number:        ident.TransactionNumber(),
		Subtotal:      subtotal,
		TaxAmount:     taxAmount,
		Discount:      req.Discount,
		FinalAmount:   finalAmount,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: models.PaymentStatusPending,
		CashierID:     cashier.ID,
		Items:         items,
	}
	if req.PaymentMethod == models.PaymentMethodCash {
		now := time.Now()
		trx.PaymentStatus = models.PaymentStatusPaid
		trx.PaidAt = &now
	}

	var evts []events.Event
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&trx).Error; err != nil {
			return err
		}
		if trx.PaymentStatus == models.PaymentStatusPaid {
			stockEvts, err := payment.ApplyPaidEffects(tx, &trx, cashier.ID)
			if err != nil {
				return err
			}
			evts = append(evts, stockEvts...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	evts = append(evts, events.Event{
		Topic: events.TopicTransactionCreated,
		Payload: events.TransactionCreated{
			TransactionID: trx.ID,
			Number:        trx.Number,
			FinalAmount:   trx.FinalAmount,
			CashierID:     cashier.ID,
		},
	})
	events.Publish(evts...)

	if req.PaymentMethod.IsDigital() {
		ctx, cancel := context.WithTimeout(context.Background(), payment.GatewayTimeout)
		defer cancel()

		inv, err := gw.CreateInvoice(ctx, payment.CreateInvoiceParams{
			ExternalID:    payment.ExternalID(trx.ID),
			Amount:        trx.FinalAmount,
			Currency:      "IDR",
			Description:   "Payment for " + trx.Number,
			PayerEmail:    req.PayerEmail,
			PaymentMethod: req.PaymentMethod,
		})
		if err != nil {
			// The transaction stays PENDING without a gateway reference;
			// the cashier retries or falls back to cash.
			return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}

		if err := db.Model(&models.Transaction{}).Where("id = ?", trx.ID).Updates(map[string]interface{}{
			"gateway_payment_id":  inv.ID,
			"gateway_payment_url": inv.InvoiceURL,
		}).Error; err != nil {
			return nil, err
		}
		trx.GatewayPaymentID = inv.ID
		trx.GatewayPaymentURL = inv.InvoiceURL
	}

	return &trx, nil
}
