package payment

import (
	"fmt"
	"testing"

	"tokopos-backend/internal/events"
	"tokopos-backend/internal/models"
	"tokopos-backend/internal/testdb"

	"gorm.io/gorm"
)

func TestMapGatewayStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want models.PaymentStatus
	}{
		{"PAID", models.PaymentStatusPaid},
		{"paid", models.PaymentStatusPaid},
		{"SETTLED", models.PaymentStatusPaid},
		{"SUCCEEDED", models.PaymentStatusPaid},
		{"FAILED", models.PaymentStatusFailed},
		{"EXPIRED", models.PaymentStatusExpired},
		{" expired ", models.PaymentStatusExpired},
		{"PENDING", models.PaymentStatusPending},
		{"ACTIVE", models.PaymentStatusPending},
		{"", models.PaymentStatusPending},
		{"SOMETHING_NEW", models.PaymentStatusPending},
	}

	for _, tc := range cases {
		if got := MapGatewayStatus(tc.raw); got != tc.want {
			t.Errorf("MapGatewayStatus(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}

var trxSeq int

// seedPendingTransaction creates a cashier, a product with the given stock and
// a PENDING digital transaction selling qty units of it.
func seedPendingTransaction(t *testing.T, db *gorm.DB, stock, qty int) (*models.Transaction, *models.Product) {
	t.Helper()
	trxSeq++

	cashier := models.User{
		Name:         "Kasir",
		Email:        fmt.Sprintf("kasir%d@example.com", trxSeq),
		PasswordHash: "x",
		Role:         models.RoleCashier,
		IsActive:     true,
	}
	if err := db.Create(&cashier).Error; err != nil {
		t.Fatalf("seed cashier: %v", err)
	}

	category := models.Category{Name: "Snacks"}
	if err := db.FirstOrCreate(&category, models.Category{Name: "Snacks"}).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}
	p := models.Product{
		Name:       "Chips",
		SKU:        fmt.Sprintf("CHP-%d", trxSeq),
		Price:      10000,
		Stock:      stock,
		MinStock:   2,
		CategoryID: category.ID,
		IsActive:   true,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	trx := models.Transaction{
		Number:           fmt.Sprintf("TRX-TEST-%d", trxSeq),
		Subtotal:         p.Price * int64(qty),
		FinalAmount:      p.Price * int64(qty),
		PaymentMethod:    models.PaymentMethodQRIS,
		PaymentStatus:    models.PaymentStatusPending,
		GatewayPaymentID: fmt.Sprintf("inv-%d", trxSeq),
		CashierID:        cashier.ID,
		Items: []models.TransactionItem{{
			ProductID: p.ID,
			Quantity:  qty,
			UnitPrice: p.Price,
			Subtotal:  p.Price * int64(qty),
		}},
	}
	if err := db.Create(&trx).Error; err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
	return &trx, &p
}

func TestReconcilePaidRunsEffectsExactlyOnce(t *testing.T) {
	db := testdb.Open(t)
	events.Reset()
	trx, p := seedPendingTransaction(t, db, 10, 3)

	var received []events.PaymentReceived
	if err := events.Subscribe(events.TopicPaymentReceived, func(e events.PaymentReceived) {
		received = append(received, e)
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// Webhook, status poll and sweep can all deliver the same PAID result.
	// Only the first one may decrement stock.
	for i := 0; i < 3; i++ {
		got, changed, err := Reconcile(db, trx.ID, models.PaymentStatusPaid)
		if err != nil {
			t.Fatalf("Reconcile #%d: %v", i+1, err)
		}
		if wantChanged := i == 0; changed != wantChanged {
			t.Errorf("Reconcile #%d changed = %v, want %v", i+1, changed, wantChanged)
		}
		if got.PaymentStatus != models.PaymentStatusPaid {
			t.Errorf("Reconcile #%d status = %s, want PAID", i+1, got.PaymentStatus)
		}
		if i == 0 && got.PaidAt == nil {
			t.Error("paid_at not set on transition")
		}
	}

	var fresh models.Product
	db.First(&fresh, "id = ?", p.ID)
	if fresh.Stock != 7 {
		t.Errorf("stock = %d, want 7 (single decrement)", fresh.Stock)
	}

	var logCount int64
	db.Model(&models.InventoryLog{}).Where("product_id = ?", p.ID).Count(&logCount)
	if logCount != 1 {
		t.Errorf("sale logs = %d, want 1", logCount)
	}

	if len(received) != 1 {
		t.Errorf("payment received events = %d, want 1", len(received))
	}
}

func TestReconcileExpiredLeavesStockAlone(t *testing.T) {
	db := testdb.Open(t)
	events.Reset()
	trx, p := seedPendingTransaction(t, db, 10, 3)

	got, changed, err := Reconcile(db, trx.ID, models.PaymentStatusExpired)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !changed {
		t.Error("expected transition to EXPIRED")
	}
	if got.PaymentStatus != models.PaymentStatusExpired {
		t.Errorf("status = %s, want EXPIRED", got.PaymentStatus)
	}
	if got.PaidAt != nil {
		t.Error("paid_at must stay empty for EXPIRED")
	}

	var fresh models.Product
	db.First(&fresh, "id = ?", p.ID)
	if fresh.Stock != 10 {
		t.Errorf("stock = %d, want 10 (no decrement)", fresh.Stock)
	}

	// A late PAID webhook after expiry must be ignored.
	got, changed, err = Reconcile(db, trx.ID, models.PaymentStatusPaid)
	if err != nil {
		t.Fatalf("Reconcile after expiry: %v", err)
	}
	if changed {
		t.Error("terminal status must not transition again")
	}
	if got.PaymentStatus != models.PaymentStatusExpired {
		t.Errorf("status = %s, want EXPIRED", got.PaymentStatus)
	}
}

func TestReconcileFailedPublishesFailureEvent(t *testing.T) {
	db := testdb.Open(t)
	events.Reset()
	trx, p := seedPendingTransaction(t, db, 10, 3)

	var failed []events.PaymentFailed
	if err := events.Subscribe(events.TopicPaymentFailed, func(e events.PaymentFailed) {
		failed = append(failed, e)
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	_, changed, err := Reconcile(db, trx.ID, models.PaymentStatusFailed)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !changed {
		t.Error("expected transition to FAILED")
	}
	if len(failed) != 1 || failed[0].TransactionID != trx.ID {
		t.Errorf("failure events = %+v, want one for trx %d", failed, trx.ID)
	}

	var fresh models.Product
	db.First(&fresh, "id = ?", p.ID)
	if fresh.Stock != 10 {
		t.Errorf("stock = %d, want 10", fresh.Stock)
	}
}

func TestReconcilePendingIsNoOp(t *testing.T) {
	db := testdb.Open(t)
	events.Reset()
	trx, _ := seedPendingTransaction(t, db, 10, 3)

	got, changed, err := Reconcile(db, trx.ID, models.PaymentStatusPending)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if changed {
		t.Error("PENDING must never transition")
	}
	if got.PaymentStatus != models.PaymentStatusPending {
		t.Errorf("status = %s, want PENDING", got.PaymentStatus)
	}
}

func TestReconcileUnknownTransaction(t *testing.T) {
	db := testdb.Open(t)
	events.Reset()

	_, _, err := Reconcile(db, 12345, models.PaymentStatusPaid)
	if err != ErrTransactionNotFound {
		t.Fatalf("err = %v, want ErrTransactionNotFound", err)
	}
}

func TestParseExternalID(t *testing.T) {
	cases := []struct {
		in     string
		wantID uint
		wantOK bool
	}{
		{"trx-42-1700000000", 42, true},
		{"trx-7-", 7, true},
		{"inv-42-1700000000", 0, false},
		{"trx-abc-1700000000", 0, false},
		{"trx-0-1700000000", 0, false},
		{"", 0, false},
	}

	for _, tc := range cases {
		id, ok := parseExternalID(tc.in)
		if id != tc.wantID || ok != tc.wantOK {
			t.Errorf("parseExternalID(%q) = (%d, %v), want (%d, %v)",
				tc.in, id, ok, tc.wantID, tc.wantOK)
		}
	}
}
