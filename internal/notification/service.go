package notification

import (
	"encoding/json"
	"fmt"

	"tokopos-backend/internal/events"
	"tokopos-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service persists user-facing alerts. It consumes domain events published
// after mutations commit; a failed insert is logged and dropped, never
// propagated back into the mutation path.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Register subscribes the service to every notification-producing topic.
func (s *Service) Register() {
	must := func(err error) {
		if err != nil {
			zap.S().Fatalf("notification subscription failed: %v", err)
		}
	}
	must(events.Subscribe(events.TopicTransactionCreated, s.onTransactionCreated))
	must(events.Subscribe(events.TopicPaymentReceived, s.onPaymentReceived))
	must(events.Subscribe(events.TopicPaymentFailed, s.onPaymentFailed))
	must(events.Subscribe(events.TopicLowStock, s.onLowStock))
	must(events.Subscribe(events.TopicInventoryAdjusted, s.onInventoryAdjusted))
}

// Create writes one notification for one user.
func (s *Service) Create(userID uint, title, message string, typ models.NotificationType, metadata map[string]interface{}) error {
	metaStr := "null"
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			metaStr = string(b)
		}
	}

	n := models.Notification{
		UserID:   userID,
		Title:    title,
		Message:  message,
		Type:     typ,
		Metadata: metaStr,
	}
	if err := s.db.Create(&n).Error; err != nil {
		return fmt.Errorf("notification not saved: %w", err)
	}
	return nil
}

// BroadcastToRole writes the same notification for every active user holding
// the role.
func (s *Service) BroadcastToRole(role models.UserRole, title, message string, typ models.NotificationType, metadata map[string]interface{}) error {
	var users []models.User
	if err := s.db.Find(&users, "role = ? AND is_active = ?", role, true).Error; err != nil {
		return err
	}
	for _, u := range users {
		if err := s.Create(u.ID, title, message, typ, metadata); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) onTransactionCreated(e events.TransactionCreated) {
	err := s.BroadcastToRole(models.RoleAdmin,
		"New transaction",
		fmt.Sprintf("Transaction %s created, total %d", e.Number, e.FinalAmount),
		models.NotificationNewTransaction,
		map[string]interface{}{
			"transaction_id": e.TransactionID,
			"number":         e.Number,
			"final_amount":   e.FinalAmount,
			"cashier_id":     e.CashierID,
		})
	if err != nil {
		zap.L().Error("transaction notification failed", zap.Error(err))
	}
}

func (s *Service) onPaymentReceived(e events.PaymentReceived) {
	err := s.BroadcastToRole(models.RoleAdmin,
		"Payment received",
		fmt.Sprintf("Payment for %s confirmed, total %d", e.Number, e.FinalAmount),
		models.NotificationPaymentReceived,
		map[string]interface{}{
			"transaction_id": e.TransactionID,
			"number":         e.Number,
			"final_amount":   e.FinalAmount,
		})
	if err != nil {
		zap.L().Error("payment notification failed", zap.Error(err))
	}
}

func (s *Service) onPaymentFailed(e events.PaymentFailed) {
	err := s.BroadcastToRole(models.RoleAdmin,
		"Payment failed",
		fmt.Sprintf("Payment for %s failed", e.Number),
		models.NotificationPaymentFailed,
		map[string]interface{}{
			"transaction_id": e.TransactionID,
			"number":         e.Number,
		})
	if err != nil {
		zap.L().Error("payment notification failed", zap.Error(err))
	}
}

func (s *Service) onLowStock(e events.LowStock) {
	err := s.BroadcastToRole(models.RoleAdmin,
		"Low stock",
		fmt.Sprintf("%s (%s) is down to %d (minimum %d)", e.Name, e.SKU, e.Stock, e.MinStock),
		models.NotificationLowStock,
		map[string]interface{}{
			"product_id": e.ProductID,
			"sku":        e.SKU,
			"stock":      e.Stock,
			"min_stock":  e.MinStock,
		})
	if err != nil {
		zap.L().Error("low stock notification failed", zap.Error(err))
	}
}

func (s *Service) onInventoryAdjusted(e events.InventoryAdjusted) {
	err := s.BroadcastToRole(models.RoleAdmin,
		"Inventory updated",
		fmt.Sprintf("%s stock changed from %d to %d", e.Name, e.PreviousStock, e.NewStock),
		models.NotificationInventoryUpdate,
		map[string]interface{}{
			"product_id":     e.ProductID,
			"previous_stock": e.PreviousStock,
			"new_stock":      e.NewStock,
			"actor_id":       e.ActorID,
		})
	if err != nil {
		zap.L().Error("inventory notification failed", zap.Error(err))
	}
}
