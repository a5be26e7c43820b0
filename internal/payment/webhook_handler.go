package payment

import (
	"strconv"
	"strings"

	"tokopos-backend/internal/config"
	"tokopos-backend/internal/database"
	"tokopos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type WebhookPayload struct {
	ID            string `json:"id"`
	ExternalID    string `json:"external_id"`
	Status        string `json:"status"`
	PaymentMethod string `json:"payment_method"`
	PaidAmount    int64  `json:"paid_amount"`
	InvoiceURL    string `json:"invoice_url"`
}

// POST /api/payments/webhook (public)
// Always acknowledges with 200 when no matching transaction exists: the
// gateway retries on non-2xx, and retrying an unresolvable notification only
// risks duplicate processing.
func WebhookHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.GatewayCallbackToken != "" && c.Get("X-Callback-Token") != cfg.GatewayCallbackToken {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid callback token")
		}

		var body WebhookPayload
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid webhook body")
		}

		trx, found := findByExternalRef(database.DB, body.ExternalID, body.ID)
		if !found {
			zap.L().Warn("webhook for unknown transaction",
				zap.String("external_id", body.ExternalID),
				zap.String("invoice_id", body.ID))
			return c.JSON(fiber.Map{"received": true})
		}

		incoming := MapGatewayStatus(body.Status)
		if _, changed, err := Reconcile(database.DB, trx.ID, incoming); err != nil {
			zap.L().Error("webhook reconciliation failed",
				zap.Uint("transaction_id", trx.ID),
				zap.String("status", body.Status),
				zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "Could not process webhook")
		} else if changed {
			zap.L().Info("payment status updated via webhook",
				zap.Uint("transaction_id", trx.ID),
				zap.String("number", trx.Number),
				zap.String("status", string(incoming)))
		}

		return c.JSON(fiber.Map{"received": true})
	}
}

// findByExternalRef locates the transaction a gateway notification refers to:
// first by the transaction id embedded in the structured external id, then by
// exact match of the gateway's invoice id against the stored one.
func findByExternalRef(db *gorm.DB, externalID, invoiceID string) (*models.Transaction, bool) {
	if id, ok := parseExternalID(externalID); ok {
		var trx models.Transaction
		if err := db.First(&trx, "id = ?", id).Error; err == nil {
			return &trx, true
		}
	}
	if invoiceID != "" {
		var trx models.Transaction
		if err := db.First(&trx, "gateway_payment_id = ?", invoiceID).Error; err == nil {
			return &trx, true
		}
	}
	return nil, false
}

// parseExternalID extracts the transaction id from the "trx-<id>-<unix>"
// pattern produced by ExternalID.
func parseExternalID(s string) (uint, bool) {
	if !strings.HasPrefix(s, "trx-") {
		return 0, false
	}
	parts := strings.Split(s, "-")
	if len(parts) < 2 {
		return 0, false
	}
	id, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
