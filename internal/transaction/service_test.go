package transaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"tokopos-backend/internal/events"
	"tokopos-backend/internal/inventory"
	"tokopos-backend/internal/models"
	"tokopos-backend/internal/payment"
	"tokopos-backend/internal/testdb"

	"gorm.io/gorm"
)

type stubGateway struct {
	invoice *payment.Invoice
	err     error
	created []payment.CreateInvoiceParams
}

func (s *stubGateway) CreateInvoice(ctx context.Context, p payment.CreateInvoiceParams) (*payment.Invoice, error) {
	s.created = append(s.created, p)
	if s.err != nil {
		return nil, s.err
	}
	return s.invoice, nil
}

func (s *stubGateway) GetInvoice(ctx context.Context, id string) (*payment.Invoice, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.invoice, nil
}

var seedSeq int

func seedCashier(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	seedSeq++

	u := models.User{
		Name:         "Kasir",
		Email:        fmt.Sprintf("kasir%d@example.com", seedSeq),
		PasswordHash: "x",
		Role:         models.RoleCashier,
		IsActive:     true,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed cashier: %v", err)
	}
	return &u
}

func seedProduct(t *testing.T, db *gorm.DB, price int64, stock, minStock int) *models.Product {
	t.Helper()
	seedSeq++

	category := models.Category{Name: "General"}
	if err := db.FirstOrCreate(&category, models.Category{Name: "General"}).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}
	p := models.Product{
		Name:       "Item",
		SKU:        fmt.Sprintf("ITM-%d", seedSeq),
		Price:      price,
		Stock:      stock,
		MinStock:   minStock,
		CategoryID: category.ID,
		IsActive:   true,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return &p
}

func TestCreateCashSalePaysImmediately(t *testing.T) {
	db := testdb.Open(t)
	events.Reset()
	cashier := seedCashier(t, db)
	p := seedProduct(t, db, 10000, 10, 2)

	var created []events.TransactionCreated
	if err := events.Subscribe(events.TopicTransactionCreated, func(e events.TransactionCreated) {
		created = append(created, e)
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	trx, err := Create(db, &stubGateway{}, CreateRequest{
		Items:         []CreateItem{{ProductID: p.ID, Quantity: 3}},
		PaymentMethod: models.PaymentMethodCash,
		TaxRate:       11,
	}, cashier.ID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if trx.PaymentStatus != models.PaymentStatusPaid {
		t.Errorf("status = %s, want PAID", trx.PaymentStatus)
	}
	if trx.PaidAt == nil {
		t.Error("paid_at not set for cash sale")
	}
	if !strings.HasPrefix(trx.Number, "TRX-") {
		t.Errorf("number = %q, want TRX- prefix", trx.Number)
	}
	if trx.Subtotal != 30000 {
		t.Errorf("subtotal = %d, want 30000", trx.Subtotal)
	}
	if trx.TaxAmount != 3300 {
		t.Errorf("tax = %d, want 3300", trx.TaxAmount)
	}
	if trx.FinalAmount != 33300 {
		t.Errorf("final = %d, want 33300", trx.FinalAmount)
	}

	// Cash decrements stock atomically with the sale.
	var fresh models.Product
	db.First(&fresh, "id = ?", p.ID)
	if fresh.Stock != 7 {
		t.Errorf("stock = %d, want 7", fresh.Stock)
	}
	var logCount int64
	db.Model(&models.InventoryLog{}).
		Where("product_id = ? AND type = ?", p.ID, models.InventoryLogSale).
		Count(&logCount)
	if logCount != 1 {
		t.Errorf("sale logs = %d, want 1", logCount)
	}

	if len(created) != 1 || created[0].TransactionID != trx.ID {
		t.Errorf("created events = %+v, want one for trx %d", created, trx.ID)
	}
}

func TestCreateValidation(t *testing.T) {
	db := testdb.Open(t)
	events.Reset()
	cashier := seedCashier(t, db)
	p := seedProduct(t, db, 10000, 10, 2)

	cases := []struct {
		name    string
		req     CreateRequest
		wantErr error
	}{
		{
			"no items",
			CreateRequest{PaymentMethod: models.PaymentMethodCash},
			ErrNoItems,
		},
		{
			"zero quantity",
			CreateRequest{
				Items:         []CreateItem{{ProductID: p.ID, Quantity: 0}},
				PaymentMethod: models.PaymentMethodCash,
			},
			ErrInvalidQuantity,
		},
		{
			"bad method",
			CreateRequest{
				Items:         []CreateItem{{ProductID: p.ID, Quantity: 1}},
				PaymentMethod: "cheque",
			},
			ErrInvalidPaymentMethod,
		},
		{
			"negative discount",
			CreateRequest{
				Items:         []CreateItem{{ProductID: p.ID, Quantity: 1}},
				PaymentMethod: models.PaymentMethodCash,
				Discount:      -1,
			},
			ErrInvalidDiscount,
		},
		{
			"discount exceeds total",
			CreateRequest{
				Items:         []CreateItem{{ProductID: p.ID, Quantity: 1}},
				PaymentMethod: models.PaymentMethodCash,
				Discount:      999999,
			},
			ErrInvalidDiscount,
		},
		{
			"unknown product",
			CreateRequest{
				Items:         []CreateItem{{ProductID: 999, Quantity: 1}},
				PaymentMethod: models.PaymentMethodCash,
			},
			inventory.ErrProductNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Create(db, &stubGateway{}, tc.req, cashier.ID)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}

	// None of the rejected requests may leave a transaction behind.
	var count int64
	db.Model(&models.Transaction{}).Count(&count)
	if count != 0 {
		t.Errorf("transactions = %d, want 0", count)
	}
}

func TestCreateCashInsufficientStockRollsBack(t *testing.T) {
	db := testdb.Open(t)
	events.Reset()
	cashier := seedCashier(t, db)
	p := seedProduct(t, db, 10000, 2, 0)

	_, err := Create(db, &stubGateway{}, CreateRequest{
		Items:         []CreateItem{{ProductID: p.ID, Quantity: 5}},
		PaymentMethod: models.PaymentMethodCash,
	}, cashier.ID)
	if !errors.Is(err, inventory.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}

	// The whole sale rolls back: no transaction row, no stock change, no log.
	var count int64
	db.Model(&models.Transaction{}).Count(&count)
	if count != 0 {
		t.Errorf("transactions = %d, want 0", count)
	}
	var fresh models.Product
	db.First(&fresh, "id = ?", p.ID)
	if fresh.Stock != 2 {
		t.Errorf("stock = %d, want 2", fresh.Stock)
	}
}

func TestCreateDigitalSaleStaysPending(t *testing.T) {
	db := testdb.Open(t)
	events.Reset()
	cashier := seedCashier(t, db)
	p := seedProduct(t, db, 10000, 10, 2)

	gw := &stubGateway{invoice: &payment.Invoice{
		ID:         "inv-123",
		Status:     "PENDING",
		InvoiceURL: "https://pay.example.com/inv-123",
	}}

	trx, err := Create(db, gw, CreateRequest{
		Items:         []CreateItem{{ProductID: p.ID, Quantity: 4}},
		PaymentMethod: models.PaymentMethodQRIS,
		PayerEmail:    "buyer@example.com",
	}, cashier.ID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if trx.PaymentStatus != models.PaymentStatusPending {
		t.Errorf("status = %s, want PENDING", trx.PaymentStatus)
	}
	if trx.GatewayPaymentID != "inv-123" {
		t.Errorf("gateway id = %q, want inv-123", trx.GatewayPaymentID)
	}
	if trx.GatewayPaymentURL != "https://pay.example.com/inv-123" {
		t.Errorf("gateway url = %q", trx.GatewayPaymentURL)
	}

	if len(gw.created) != 1 {
		t.Fatalf("invoices created = %d, want 1", len(gw.created))
	}
	params := gw.created[0]
	if params.Amount != trx.FinalAmount {
		t.Errorf("invoice amount = %d, want %d", params.Amount, trx.FinalAmount)
	}
	if !strings.HasPrefix(params.ExternalID, fmt.Sprintf("trx-%d-", trx.ID)) {
		t.Errorf("external id = %q, want trx-%d- prefix", params.ExternalID, trx.ID)
	}

	// Stock is held until the payment is confirmed, not at creation.
	var fresh models.Product
	db.First(&fresh, "id = ?", p.ID)
	if fresh.Stock != 10 {
		t.Errorf("stock = %d, want 10", fresh.Stock)
	}
}

func TestCreateDigitalGatewayDownKeepsPendingRow(t *testing.T) {
	db := testdb.Open(t)
	events.Reset()
	cashier := seedCashier(t, db)
	p := seedProduct(t, db, 10000, 10, 2)

	gw := &stubGateway{err: errors.New("connection refused")}

	_, err := Create(db, gw, CreateRequest{
		Items:         []CreateItem{{ProductID: p.ID, Quantity: 1}},
		PaymentMethod: models.PaymentMethodEWallet,
	}, cashier.ID)
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("err = %v, want ErrGatewayUnavailable", err)
	}

	// The transaction row survives without a gateway reference; the cashier
	// can retry or switch to cash.
	var trx models.Transaction
	if err := db.First(&trx).Error; err != nil {
		t.Fatalf("transaction row missing: %v", err)
	}
	if trx.PaymentStatus != models.PaymentStatusPending {
		t.Errorf("status = %s, want PENDING", trx.PaymentStatus)
	}
	if trx.GatewayPaymentID != "" {
		t.Errorf("gateway id = %q, want empty", trx.GatewayPaymentID)
	}
}

func TestCreateCashLowStockAlertAtThreshold(t *testing.T) {
	db := testdb.Open(t)
	events.Reset()
	cashier := seedCashier(t, db)
	p := seedProduct(t, db, 10000, 6, 5)

	var alerts []events.LowStock
	if err := events.Subscribe(events.TopicLowStock, func(e events.LowStock) {
		alerts = append(alerts, e)
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// 6 -> 5 lands exactly on the threshold and must alert.
	_, err := Create(db, &stubGateway{}, CreateRequest{
		Items:         []CreateItem{{ProductID: p.ID, Quantity: 1}},
		PaymentMethod: models.PaymentMethodCash,
	}, cashier.ID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if len(alerts) != 1 {
		t.Fatalf("low stock alerts = %d, want 1", len(alerts))
	}
	if alerts[0].ProductID != p.ID || alerts[0].Stock != 5 || alerts[0].MinStock != 5 {
		t.Errorf("alert = %+v, want stock 5 at min 5", alerts[0])
	}
}

func TestCreateCashNoAlertAboveThreshold(t *testing.T) {
	db := testdb.Open(t)
	events.Reset()
	cashier := seedCashier(t, db)
	p := seedProduct(t, db, 10000, 7, 5)

	var alerts []events.LowStock
	if err := events.Subscribe(events.TopicLowStock, func(e events.LowStock) {
		alerts = append(alerts, e)
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// 7 -> 6 stays one above the threshold: silence.
	_, err := Create(db, &stubGateway{}, CreateRequest{
		Items:         []CreateItem{{ProductID: p.ID, Quantity: 1}},
		PaymentMethod: models.PaymentMethodCash,
	}, cashier.ID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if len(alerts) != 0 {
		t.Errorf("low stock alerts = %d, want 0", len(alerts))
	}
}

func TestCreateCashMultiProductCart(t *testing.T) {
	db := testdb.Open(t)
	events.Reset()
	cashier := seedCashier(t, db)
	p1 := seedProduct(t, db, 10000, 10, 2)
	p2 := seedProduct(t, db, 5000, 10, 2)

	trx, err := Create(db, &stubGateway{}, CreateRequest{
		Items: []CreateItem{
			{ProductID: p1.ID, Quantity: 3},
			{ProductID: p2.ID, Quantity: 1},
		},
		PaymentMethod: models.PaymentMethodCash,
	}, cashier.ID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if trx.FinalAmount != 35000 {
		t.Errorf("final = %d, want 35000", trx.FinalAmount)
	}
	if len(trx.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(trx.Items))
	}

	// Each product gets its own decrement and its own SALE log.
	var fresh models.Product
	db.First(&fresh, "id = ?", p1.ID)
	if fresh.Stock != 7 {
		t.Errorf("p1 stock = %d, want 7", fresh.Stock)
	}
	db.First(&fresh, "id = ?", p2.ID)
	if fresh.Stock != 9 {
		t.Errorf("p2 stock = %d, want 9", fresh.Stock)
	}
	var logCount int64
	db.Model(&models.InventoryLog{}).Where("type = ?", models.InventoryLogSale).Count(&logCount)
	if logCount != 2 {
		t.Errorf("sale logs = %d, want 2", logCount)
	}
}

func TestCreateInactiveCashierRejected(t *testing.T) {
	db := testdb.Open(t)
	events.Reset()
	cashier := seedCashier(t, db)
	p := seedProduct(t, db, 10000, 10, 2)

	db.Model(&models.User{}).Where("id = ?", cashier.ID).Update("is_active", false)

	_, err := Create(db, &stubGateway{}, CreateRequest{
		Items:         []CreateItem{{ProductID: p.ID, Quantity: 1}},
		PaymentMethod: models.PaymentMethodCash,
	}, cashier.ID)
	if !errors.Is(err, ErrCashierNotFound) {
		t.Fatalf("err = %v, want ErrCashierNotFound", err)
	}
}
