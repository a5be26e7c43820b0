package payment

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tokopos-backend/internal/events"
	"tokopos-backend/internal/inventory"
	"tokopos-backend/internal/models"

	"gorm.io/gorm"
)

var ErrTransactionNotFound = errors.New("transaction not found")

// MapGatewayStatus translates the gateway's status vocabulary into ours.
// Anything unrecognized is treated as still pending.
func MapGatewayStatus(raw string) models.PaymentStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PAID", "SETTLED", "SUCCEEDED":
		return models.PaymentStatusPaid
	case "FAILED":
		return models.PaymentStatusFailed
	case "EXPIRED":
		return models.PaymentStatusExpired
	default:
		return models.PaymentStatusPending
	}
}

// Reconcile moves a transaction from PENDING into a terminal payment status
// and runs the transition's side effects exactly once. The status write is a
// conditional UPDATE guarded on the current status being PENDING, inside the
// same database transaction as the stock decrements and inventory logs:
// of any number of concurrent triggers (webhook, status poll, sweep) exactly
// one sees an affected row and runs the side effects. Returns the transaction
// after reconciliation and whether this call performed the transition.
func Reconcile(db *gorm.DB, transactionID uint, incoming models.PaymentStatus) (*models.Transaction, bool, error) {
	changed := false
	var evts []events.Event

	if incoming != models.PaymentStatusPending {
		err := db.Transaction(func(tx *gorm.DB) error {
			updates := map[string]interface{}{"payment_status": incoming}
			if incoming == models.PaymentStatusPaid {
				now := time.Now()
				updates["paid_at"] = &now
			}

			res := tx.Model(&models.Transaction{}).
				Where("id = ? AND payment_status = ?", transactionID, models.PaymentStatusPending).
				Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				// Already terminal, or the transaction does not exist.
				// Either way this trigger is a no-op.
				return nil
			}
			changed = true

			var trx models.Transaction
			if err := tx.Preload("Items").First(&trx, "id = ?", transactionID).Error; err != nil {
				return err
			}

			switch incoming {
			case models.PaymentStatusPaid:
				stockEvts, err := ApplyPaidEffects(tx, &trx, trx.CashierID)
				if err != nil {
					return err
				}
				evts = append(evts, stockEvts...)
				evts = append(evts, events.Event{
					Topic: events.TopicPaymentReceived,
					Payload: events.PaymentReceived{
						TransactionID: trx.ID,
						Number:        trx.Number,
						FinalAmount:   trx.FinalAmount,
					},
				})
			case models.PaymentStatusFailed:
				evts = append(evts, events.Event{
					Topic: events.TopicPaymentFailed,
					Payload: events.PaymentFailed{
						TransactionID: trx.ID,
						Number:        trx.Number,
						FinalAmount:   trx.FinalAmount,
					},
				})
			case models.PaymentStatusExpired:
				// status update only
			}
			return nil
		})
		if err != nil {
			return nil, false, err
		}

		events.Publish(evts...)
	}

	var trx models.Transaction
	if err := db.Preload("Items").First(&trx, "id = ?", transactionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrTransactionNotFound
		}
		return nil, false, err
	}
	return &trx, changed, nil
}

// ApplyPaidEffects decrements stock and appends SALE logs for every line item
// of a transaction that just transitioned into PAID. It must run inside the
// same database transaction as the status write. The returned events (low
// stock alerts) are published by the caller after commit.
func ApplyPaidEffects(tx *gorm.DB, trx *models.Transaction, actorID uint) ([]events.Event, error) {
	items := trx.Items
	if len(items) == 0 {
		if err := tx.Find(&items, "transaction_id = ?", trx.ID).Error; err != nil {
			return nil, err
		}
	}

	var evts []events.Event
	for _, item := range items {
		p, _, err := inventory.ApplySale(tx, item.ProductID, item.Quantity, actorID, "Sale "+trx.Number)
		if err != nil {
			return nil, fmt.Errorf("product %d: %w", item.ProductID, err)
		}
		if p.Stock <= p.MinStock {
			evts = append(evts, events.Event{
				Topic: events.TopicLowStock,
				Payload: events.LowStock{
					ProductID: p.ID,
					Name:      p.Name,
					SKU:       p.SKU,
					Stock:     p.Stock,
					MinStock:  p.MinStock,
				},
			})
		}
	}
	return evts, nil
}
