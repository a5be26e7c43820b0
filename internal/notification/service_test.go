package notification

import (
	"fmt"
	"testing"

	"tokopos-backend/internal/events"
	"tokopos-backend/internal/models"
	"tokopos-backend/internal/testdb"

	"gorm.io/gorm"
)

var userSeq int

func seedUser(t *testing.T, db *gorm.DB, role models.UserRole, active bool) *models.User {
	t.Helper()
	userSeq++

	u := models.User{
		Name:         "User",
		Email:        fmt.Sprintf("user%d@example.com", userSeq),
		PasswordHash: "x",
		Role:         role,
		IsActive:     active,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return &u
}

func TestLowStockEventNotifiesActiveAdminsOnly(t *testing.T) {
	db := testdb.Open(t)
	events.Reset()

	admin := seedUser(t, db, models.RoleAdmin, true)
	inactiveAdmin := seedUser(t, db, models.RoleAdmin, false)
	cashier := seedUser(t, db, models.RoleCashier, true)

	NewService(db).Register()

	events.Publish(events.Event{
		Topic: events.TopicLowStock,
		Payload: events.LowStock{
			ProductID: 1,
			Name:      "Iced Tea",
			SKU:       "ICT-1",
			Stock:     2,
			MinStock:  5,
		},
	})

	var notifications []models.Notification
	if err := db.Find(&notifications).Error; err != nil {
		t.Fatalf("load notifications: %v", err)
	}
	if len(notifications) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifications))
	}

	n := notifications[0]
	if n.UserID != admin.ID {
		t.Errorf("recipient = %d, want active admin %d", n.UserID, admin.ID)
	}
	if n.Type != models.NotificationLowStock {
		t.Errorf("type = %s, want %s", n.Type, models.NotificationLowStock)
	}
	if n.IsRead {
		t.Error("new notification must start unread")
	}

	for _, excluded := range []uint{inactiveAdmin.ID, cashier.ID} {
		var count int64
		db.Model(&models.Notification{}).Where("user_id = ?", excluded).Count(&count)
		if count != 0 {
			t.Errorf("user %d received %d notifications, want 0", excluded, count)
		}
	}
}

func TestPaymentReceivedEventCreatesNotification(t *testing.T) {
	db := testdb.Open(t)
	events.Reset()

	admin := seedUser(t, db, models.RoleAdmin, true)

	NewService(db).Register()

	events.Publish(events.Event{
		Topic: events.TopicPaymentReceived,
		Payload: events.PaymentReceived{
			TransactionID: 7,
			Number:        "TRX-20260823-ABC",
			FinalAmount:   50000,
		},
	})

	var n models.Notification
	if err := db.First(&n, "user_id = ?", admin.ID).Error; err != nil {
		t.Fatalf("notification missing: %v", err)
	}
	if n.Type != models.NotificationPaymentReceived {
		t.Errorf("type = %s, want %s", n.Type, models.NotificationPaymentReceived)
	}
	if n.Metadata == "" || n.Metadata == "null" {
		t.Error("metadata not recorded")
	}
}
