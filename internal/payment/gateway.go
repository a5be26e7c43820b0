package payment

import (
	"context"
	"fmt"
	"time"

	"tokopos-backend/internal/models"
)

// Invoice is the gateway-side view of a payment.
type Invoice struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
	InvoiceURL string `json:"invoice_url"`
	Amount     int64  `json:"amount"`
}

type CreateInvoiceParams struct {
	ExternalID    string
	Amount        int64
	Currency      string
	Description   string
	PayerEmail    string
	PaymentMethod models.PaymentMethod
	SuccessURL    string
	FailureURL    string
	Duration      time.Duration
}

// Gateway abstracts the hosted-invoice payment provider. The rest of the
// system only ever creates an invoice and polls its status.
type Gateway interface {
	CreateInvoice(ctx context.Context, p CreateInvoiceParams) (*Invoice, error)
	GetInvoice(ctx context.Context, id string) (*Invoice, error)
}

// ExternalID builds the structured reference sent to the gateway. Webhook
// processing parses the transaction id back out of this pattern.
func ExternalID(transactionID uint) string {
	return fmt.Sprintf("trx-%d-%d", transactionID, time.Now().Unix())
}
