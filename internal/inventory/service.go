package inventory

import (
	"errors"
	"fmt"

	"tokopos-backend/internal/events"
	"tokopos-backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrStockConflict     = errors.New("stock changed concurrently")
)

// ApplySale decrements a product's stock for a sale. The decrement is a single
// conditional UPDATE with a floor check, so two concurrent sales can never
// over-sell the same product: one of them sees zero affected rows and fails
// with ErrInsufficientStock. The matching SALE log is written on the same tx.
func ApplySale(tx *gorm.DB, productID uint, qty int, actorID uint, reason string) (*models.Product, *models.InventoryLog, error) {
	if qty <= 0 {
		return nil, nil, fmt.Errorf("quantity must be positive, got %d", qty)
	}

	res := tx.Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return nil, nil, res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
			return nil, nil, err
		}
		if count == 0 {
			return nil, nil, ErrProductNotFound
		}
		return nil, nil, ErrInsufficientStock
	}

	var p models.Product
	if err := tx.First(&p, "id = ?", productID).Error; err != nil {
		return nil, nil, err
	}

	lg := models.InventoryLog{
		ProductID:      p.ID,
		Type:           models.InventoryLogSale,
		QuantityChange: -qty,
		PreviousStock:  p.Stock + qty,
		NewStock:       p.Stock,
		Reason:         reason,
		UserID:         actorID,
	}
	if err := tx.Create(&lg).Error; err != nil {
		return nil, nil, err
	}

	return &p, &lg, nil
}

// SetStock sets a product's stock to an absolute value, guarded by a
// compare-and-swap against the value just read. A concurrent writer between
// the read and the update makes the CAS miss and returns ErrStockConflict
// instead of silently clobbering the counter.
func SetStock(tx *gorm.DB, productID uint, newStock int, actorID uint, reason string) (*models.Product, *models.InventoryLog, error) {
	if newStock < 0 {
		return nil, nil, fmt.Errorf("stock cannot be negative, got %d", newStock)
	}

	var p models.Product
	if err := tx.First(&p, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrProductNotFound
		}
		return nil, nil, err
	}

	res := tx.Model(&models.Product{}).
		Where("id = ? AND stock = ?", productID, p.Stock).
		UpdateColumn("stock", newStock)
	if res.Error != nil {
		return nil, nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil, ErrStockConflict
	}

	delta := newStock - p.Stock
	typ := models.InventoryLogAdjustment
	if delta > 0 {
		typ = models.InventoryLogRestock
	}

	lg := models.InventoryLog{
		ProductID:      p.ID,
		Type:           typ,
		QuantityChange: delta,
		PreviousStock:  p.Stock,
		NewStock:       newStock,
		Reason:         reason,
		UserID:         actorID,
	}
	if err := tx.Create(&lg).Error; err != nil {
		return nil, nil, err
	}

	p.Stock = newStock
	return &p, &lg, nil
}

// LogInitialStock records the opening stock of a freshly created product so
// the ledger covers the counter's whole history.
func LogInitialStock(tx *gorm.DB, p *models.Product, actorID uint) error {
	if p.Stock == 0 {
		return nil
	}
	return tx.Create(&models.InventoryLog{
		ProductID:      p.ID,
		Type:           models.InventoryLogRestock,
		QuantityChange: p.Stock,
		PreviousStock:  0,
		NewStock:       p.Stock,
		Reason:         "Initial stock",
		UserID:         actorID,
	}).Error
}

type AdjustmentItem struct {
	ProductID uint   `json:"product_id"`
	NewStock  int    `json:"new_stock"`
	Reason    string `json:"reason"`
}

type AdjustmentResult struct {
	ProductID     uint   `json:"product_id"`
	OK            bool   `json:"ok"`
	Error         string `json:"error,omitempty"`
	PreviousStock int    `json:"previous_stock,omitempty"`
	NewStock      int    `json:"new_stock,omitempty"`
}

// Adjust applies a batch of stock corrections item by item. Each item commits
// (or fails) independently; the returned slice reports the outcome per item.
// Events go out only after the item's own transaction has committed.
func Adjust(db *gorm.DB, items []AdjustmentItem, actorID uint) []AdjustmentResult {
	results := make([]AdjustmentResult, 0, len(items))

	for _, item := range items {
		result := AdjustmentResult{ProductID: item.ProductID}

		var evts []events.Event
		err := db.Transaction(func(tx *gorm.DB) error {
			p, lg, err := SetStock(tx, item.ProductID, item.NewStock, actorID, item.Reason)
			if err != nil {
				return err
			}

			result.OK = true
			result.PreviousStock = lg.PreviousStock
			result.NewStock = lg.NewStock

			evts = append(evts, events.Event{
				Topic: events.TopicInventoryAdjusted,
				Payload: events.InventoryAdjusted{
					ProductID:     p.ID,
					Name:          p.Name,
					PreviousStock: lg.PreviousStock,
					NewStock:      lg.NewStock,
					ActorID:       actorID,
				},
			})
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
			return nil
		})
		if err != nil {
			result.OK = false
			result.Error = err.Error()
			results = append(results, result)
			continue
		}

		events.Publish(evts...)
		results = append(results, result)
	}

	return results
}
